package model

import "time"

// SlideEntry is one item of a submodule's ordered slide list
type SlideEntry struct {
	ID        string `json:"id" yaml:"id" bson:"id"`
	Type      string `json:"type" yaml:"type" bson:"type"`
	Title     string `json:"title" yaml:"title" bson:"title"`
	Component string `json:"component" yaml:"component" bson:"component"`
}

const SlideTypeCompletion = "completion"

// SlideInteractionData is the per-slide aggregate handed to persistence.
// TimeSpent is wall-clock milliseconds from mount to finalization.
type SlideInteractionData struct {
	SlideID      string                         `json:"slideId" bson:"slideId"`
	SlideTitle   string                         `json:"slideTitle" bson:"slideTitle"`
	ModuleID     string                         `json:"moduleId" bson:"moduleId"`
	SubmoduleID  string                         `json:"submoduleId" bson:"submoduleId"`
	TimeSpent    int64                          `json:"timeSpent" bson:"timeSpent"`
	Interactions map[string]InteractionResponse `json:"interactions" bson:"interactions"`

	// Learner and slide-instance identity, not part of the player payload
	StudentID string `json:"studentId,omitempty" bson:"studentId,omitempty"`
	ClassID   string `json:"classId,omitempty" bson:"classId,omitempty"`
	SessionID string `json:"sessionId,omitempty" bson:"sessionId,omitempty"`
}

// Dwell returns TimeSpent as a duration
func (d SlideInteractionData) Dwell() time.Duration {
	return time.Duration(d.TimeSpent) * time.Millisecond
}

// SlideRecord is a persisted SlideInteractionData
type SlideRecord struct {
	ID                   string `json:"id" bson:"_id,omitempty"`
	SlideInteractionData `bson:",inline"`
	SavedAt              time.Time `json:"savedAt" bson:"savedAt"`
}

// MountSlideRequest is the body of POST /v1/slides/sessions
type MountSlideRequest struct {
	ModuleID    string `json:"moduleId"`
	SubmoduleID string `json:"submoduleId"`
	SlideID     string `json:"slideId"`
	SlideTitle  string `json:"slideTitle,omitempty"`
}

// MountSlideResponse identifies the mounted slide instance
type MountSlideResponse struct {
	SessionID string     `json:"sessionId"`
	Slide     SlideEntry `json:"slide"`
	StartedAt time.Time  `json:"startedAt"`
}

// RecordInteractionRequest carries the widget's declaration and the learner's answer
type RecordInteractionRequest struct {
	Interaction Interaction   `json:"interaction"`
	Value       ResponseValue `json:"value"`
	IsCorrect   *bool         `json:"isCorrect,omitempty"`
	Question    string        `json:"question,omitempty"`
}

// UnmountSlideResponse reports what happened at finalization
type UnmountSlideResponse struct {
	TimeSpent    int64 `json:"timeSpent"`
	Interactions int   `json:"interactions"`
	Persisted    bool  `json:"persisted"`
}
