// Package tracker owns one SlideInteractionData per mounted slide instance and
// measures time on slide from mount to finalization.
package tracker

import (
	"context"
	"sync"
	"time"

	"lessonplayer/internal/capture"
	"lessonplayer/internal/model"
	"lessonplayer/internal/scheduler"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const storeTimeout = 2 * time.Second

// InteractionStore holds the interaction map of each slide instance.
// Put overwrites any earlier response with the same interaction id.
type InteractionStore interface {
	Put(ctx context.Context, sessionID string, resp model.InteractionResponse) error
	All(ctx context.Context, sessionID string) (map[string]model.InteractionResponse, error)
	Drop(ctx context.Context, sessionID string) error
}

// Sink receives finalized slide data and reports whether it will be persisted
type Sink interface {
	Submit(ctx context.Context, data model.SlideInteractionData) bool
}

// Slide identifies what is being mounted and for whom
type Slide struct {
	Entry       model.SlideEntry
	ModuleID    string
	SubmoduleID string
	StudentID   string
	ClassID     string
}

// Deps are the collaborators shared by every Host
type Deps struct {
	Store  InteractionStore
	Sink   Sink
	Clock  scheduler.Clock
	Logger *zap.Logger
}

// Result is the outcome of finalizing a Host
type Result struct {
	Data      model.SlideInteractionData
	Persisted bool
}

// Host tracks a single mounted slide
type Host struct {
	id        string
	slide     Slide
	startedAt time.Time
	ctx       context.Context
	deps      Deps
	log       *zap.Logger

	mu        sync.Mutex
	finalized bool
}

// Mount starts tracking a slide. ctx values are kept for later store calls;
// its cancellation is not.
func Mount(ctx context.Context, slide Slide, deps Deps) *Host {
	if deps.Clock == nil {
		deps.Clock = scheduler.Real{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Store == nil {
		deps.Store = NewMemoryStore()
	}

	id := uuid.New().String()
	h := &Host{
		id:        id,
		slide:     slide,
		startedAt: deps.Clock.Now(),
		ctx:       context.WithoutCancel(ctx),
		deps:      deps,
		log: deps.Logger.With(
			zap.String("session_id", id),
			zap.String("slide_id", slide.Entry.ID),
			zap.String("student_id", slide.StudentID),
		),
	}
	h.log.Debug("Slide mounted")
	return h
}

func (h *Host) ID() string {
	return h.id
}

func (h *Host) Slide() Slide {
	return h.slide
}

func (h *Host) StartedAt() time.Time {
	return h.startedAt
}

// Finalized reports whether Unmount or Flush already ran
func (h *Host) Finalized() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.finalized
}

// HandleInteractionComplete stores resp in this slide's map. Responses that
// arrive after finalization are dropped.
func (h *Host) HandleInteractionComplete(resp model.InteractionResponse) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.finalized {
		h.log.Debug("Interaction after finalization ignored", zap.String("interaction_id", resp.InteractionID))
		return
	}

	ctx, cancel := context.WithTimeout(h.ctx, storeTimeout)
	defer cancel()
	if err := h.deps.Store.Put(ctx, h.id, resp); err != nil {
		h.log.Warn("Failed to store interaction", zap.String("interaction_id", resp.InteractionID), zap.Error(err))
	}
}

// Capture returns a capture wrapper whose completions land in this slide
func (h *Host) Capture(interaction model.Interaction, opts ...capture.Option) *capture.Wrapper {
	opts = append([]capture.Option{capture.WithClock(h.deps.Clock)}, opts...)
	return capture.New(interaction, h.HandleInteractionComplete, opts...)
}

// Unmount finalizes the slide because the learner navigated away
func (h *Host) Unmount(ctx context.Context) (Result, bool) {
	return h.finalize(ctx, "unmount")
}

// Flush finalizes the slide because the lesson completed
func (h *Host) Flush(ctx context.Context) (Result, bool) {
	return h.finalize(ctx, "flush")
}

func (h *Host) finalize(ctx context.Context, reason string) (Result, bool) {
	h.mu.Lock()
	if h.finalized {
		h.mu.Unlock()
		return Result{}, false
	}
	h.finalized = true
	h.mu.Unlock()

	timeSpent := h.deps.Clock.Now().Sub(h.startedAt).Milliseconds()
	if timeSpent < 0 {
		timeSpent = 0
	}

	interactions, err := h.deps.Store.All(ctx, h.id)
	if err != nil {
		h.log.Warn("Failed to read interactions, finalizing without them", zap.Error(err))
	}
	if interactions == nil {
		interactions = map[string]model.InteractionResponse{}
	}
	if err := h.deps.Store.Drop(ctx, h.id); err != nil {
		h.log.Warn("Failed to drop interaction map", zap.Error(err))
	}

	data := model.SlideInteractionData{
		SlideID:      h.slide.Entry.ID,
		SlideTitle:   h.slide.Entry.Title,
		ModuleID:     h.slide.ModuleID,
		SubmoduleID:  h.slide.SubmoduleID,
		TimeSpent:    timeSpent,
		Interactions: interactions,
		StudentID:    h.slide.StudentID,
		ClassID:      h.slide.ClassID,
		SessionID:    h.id,
	}

	persisted := false
	if h.deps.Sink != nil {
		persisted = h.deps.Sink.Submit(ctx, data)
	}

	h.log.Debug("Slide finalized",
		zap.String("reason", reason),
		zap.Int64("time_spent_ms", timeSpent),
		zap.Int("interactions", len(interactions)),
		zap.Bool("persisted", persisted),
	)
	return Result{Data: data, Persisted: persisted}, true
}
