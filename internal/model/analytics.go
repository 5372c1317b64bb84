package model

// ConceptStats aggregates persisted responses per pedagogical concept
type ConceptStats struct {
	ConceptID   string `json:"conceptId"`
	ConceptName string `json:"conceptName,omitempty"`
	Responses   int64  `json:"responses"`
	Correct     int64  `json:"correct"`
	Incorrect   int64  `json:"incorrect"`
}

// Accuracy is the share of graded responses that were correct
func (s ConceptStats) Accuracy() float64 {
	graded := s.Correct + s.Incorrect
	if graded == 0 {
		return 0
	}
	return float64(s.Correct) / float64(graded)
}
