// Package capture turns a widget's completion signals into InteractionResponses.
package capture

import (
	"lessonplayer/internal/model"
	"lessonplayer/internal/scheduler"
)

// CompleteFunc receives each captured response
type CompleteFunc func(model.InteractionResponse)

// Wrapper declares that a widget region produces one Interaction. The
// completion callback is bound once, for the wrapper's whole lifetime.
type Wrapper struct {
	interaction model.Interaction
	onComplete  CompleteFunc
	clock       scheduler.Clock
	question    string
}

// Option configures a Wrapper
type Option func(*Wrapper)

// WithClock overrides the timestamp source
func WithClock(c scheduler.Clock) Option {
	return func(w *Wrapper) { w.clock = c }
}

// WithQuestion copies the prompt text onto every response
func WithQuestion(q string) Option {
	return func(w *Wrapper) { w.question = q }
}

// New creates a wrapper for interaction reporting to onComplete
func New(interaction model.Interaction, onComplete CompleteFunc, opts ...Option) *Wrapper {
	w := &Wrapper{
		interaction: interaction,
		onComplete:  onComplete,
		clock:       scheduler.Real{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Interaction returns the declaration this wrapper captures
func (w *Wrapper) Interaction() model.Interaction {
	return w.interaction
}

// Complete records one learner action. A zero value means the learner has
// not answered yet and nothing is reported.
func (w *Wrapper) Complete(value model.ResponseValue) bool {
	return w.emit(value, nil)
}

// Judge records a graded learner action
func (w *Wrapper) Judge(value model.ResponseValue, correct bool) bool {
	return w.emit(value, &correct)
}

func (w *Wrapper) emit(value model.ResponseValue, correct *bool) bool {
	if value.IsZero() || w.onComplete == nil {
		return false
	}

	w.onComplete(model.InteractionResponse{
		InteractionID:      w.interaction.ID,
		Value:              value,
		IsCorrect:          correct,
		Timestamp:          w.clock.Now().UnixMilli(),
		ConceptID:          w.interaction.ConceptID,
		ConceptName:        w.interaction.ConceptName,
		ConceptDescription: w.interaction.ConceptDescription,
		Question:           w.question,
	})
	return true
}
