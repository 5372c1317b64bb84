package model

// InteractionResponse records one learner action against an Interaction.
// Concept fields are copied from the declaring Interaction for analytics.
type InteractionResponse struct {
	InteractionID      string        `json:"interactionId" bson:"interactionId"`
	Value              ResponseValue `json:"value" bson:"value"`
	IsCorrect          *bool         `json:"isCorrect,omitempty" bson:"isCorrect,omitempty"`
	Timestamp          int64         `json:"timestamp" bson:"timestamp"` // epoch ms
	ConceptID          string        `json:"conceptId,omitempty" bson:"conceptId,omitempty"`
	ConceptName        string        `json:"conceptName,omitempty" bson:"conceptName,omitempty"`
	ConceptDescription string        `json:"conceptDescription,omitempty" bson:"conceptDescription,omitempty"`
	Question           string        `json:"question,omitempty" bson:"question,omitempty"`
}

// Graded reports whether the response carries a correctness verdict
func (r InteractionResponse) Graded() bool {
	return r.IsCorrect != nil
}
