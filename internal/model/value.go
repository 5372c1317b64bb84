package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ValueKind tags the shape a widget produced
type ValueKind string

const (
	ValueText   ValueKind = "text"   // single choice, free text
	ValueNumber ValueKind = "number" // slider, numeric input
	ValueList   ValueKind = "list"   // multi-select
	ValueTable  ValueKind = "table"  // key/value table
)

// KeyValue is one row of a table answer
type KeyValue struct {
	Key   string `json:"key" bson:"key"`
	Value string `json:"value" bson:"value"`
}

// ResponseValue is the answer payload of an InteractionResponse. Exactly one
// of the fields matches Kind; the zero value means "nothing answered yet".
//
// On the wire it keeps the untyped shape the player emits: a string, a number,
// an array of strings or an array of {key,value} objects.
type ResponseValue struct {
	Kind   ValueKind
	Text   string
	Number float64
	List   []string
	Table  []KeyValue
}

func TextValue(s string) ResponseValue {
	return ResponseValue{Kind: ValueText, Text: s}
}

func NumberValue(n float64) ResponseValue {
	return ResponseValue{Kind: ValueNumber, Number: n}
}

func ListValue(items ...string) ResponseValue {
	if items == nil {
		items = []string{}
	}
	return ResponseValue{Kind: ValueList, List: items}
}

func TableValue(rows ...KeyValue) ResponseValue {
	if rows == nil {
		rows = []KeyValue{}
	}
	return ResponseValue{Kind: ValueTable, Table: rows}
}

// IsZero reports whether no value was supplied
func (v ResponseValue) IsZero() bool {
	return v.Kind == ""
}

// Raw returns the untyped form of the value
func (v ResponseValue) Raw() interface{} {
	switch v.Kind {
	case ValueText:
		return v.Text
	case ValueNumber:
		return v.Number
	case ValueList:
		return v.List
	case ValueTable:
		return v.Table
	default:
		return nil
	}
}

func (v ResponseValue) String() string {
	if v.IsZero() {
		return "<none>"
	}
	return fmt.Sprintf("%s(%v)", v.Kind, v.Raw())
}

func (v ResponseValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Raw())
}

func (v *ResponseValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = ResponseValue{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = TextValue(s)
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		if len(items) == 0 {
			*v = ListValue()
			return nil
		}
		if bytes.HasPrefix(bytes.TrimSpace(items[0]), []byte("{")) {
			var rows []KeyValue
			if err := json.Unmarshal(data, &rows); err != nil {
				return fmt.Errorf("decode table value: %w", err)
			}
			*v = TableValue(rows...)
			return nil
		}
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("decode list value: %w", err)
		}
		*v = ListValue(list...)
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("unsupported response value %s", string(data))
		}
		*v = NumberValue(n)
	}
	return nil
}

func (v ResponseValue) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if v.IsZero() {
		return bson.TypeNull, nil, nil
	}
	return bson.MarshalValue(v.Raw())
}

func (v *ResponseValue) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}

	switch t {
	case bson.TypeNull, bson.TypeUndefined:
		*v = ResponseValue{}
	case bson.TypeString:
		*v = TextValue(raw.StringValue())
	case bson.TypeDouble:
		*v = NumberValue(raw.Double())
	case bson.TypeInt32:
		*v = NumberValue(float64(raw.Int32()))
	case bson.TypeInt64:
		*v = NumberValue(float64(raw.Int64()))
	case bson.TypeArray:
		var items bson.A
		if err := raw.Unmarshal(&items); err != nil {
			return err
		}
		return v.fromArray(items)
	default:
		return fmt.Errorf("unsupported bson type %s for response value", t)
	}
	return nil
}

func (v *ResponseValue) fromArray(items bson.A) error {
	if len(items) == 0 {
		*v = ListValue()
		return nil
	}

	if _, ok := items[0].(string); ok {
		list := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("mixed list value element %T", item)
			}
			list = append(list, s)
		}
		*v = ListValue(list...)
		return nil
	}

	rows := make([]KeyValue, 0, len(items))
	for _, item := range items {
		var m map[string]interface{}
		switch doc := item.(type) {
		case primitive.D:
			m = doc.Map()
		case primitive.M:
			m = doc
		default:
			return fmt.Errorf("unsupported table row %T", item)
		}
		key, _ := m["key"].(string)
		val, _ := m["value"].(string)
		rows = append(rows, KeyValue{Key: key, Value: val})
	}
	*v = TableValue(rows...)
	return nil
}
