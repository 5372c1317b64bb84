package model

// InteractionType separates passive exploration from graded judgment.
type InteractionType string

const (
	InteractionLearning InteractionType = "learning"
	InteractionJudging  InteractionType = "judging"
)

// Interaction declares a trackable learner action on a slide. It is defined
// when the widget is built and never persisted on its own.
type Interaction struct {
	ID                 string          `json:"id" bson:"id"`
	ConceptID          string          `json:"conceptId" bson:"conceptId"`
	ConceptName        string          `json:"conceptName" bson:"conceptName"`
	Type               InteractionType `json:"type" bson:"type"`
	Description        string          `json:"description" bson:"description"`
	ConceptDescription string          `json:"conceptDescription,omitempty" bson:"conceptDescription,omitempty"`
}

// IsJudging reports whether responses to this interaction carry a correctness flag
func (i Interaction) IsJudging() bool {
	return i.Type == InteractionJudging
}
