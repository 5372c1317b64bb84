package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"lessonplayer/internal/capture"
	"lessonplayer/internal/catalog"
	"lessonplayer/internal/metrics"
	"lessonplayer/internal/model"
	"lessonplayer/internal/scheduler"
	"lessonplayer/internal/tracker"

	"go.uber.org/zap"
)

var (
	ErrSessionNotFound = errors.New("slide session not found")
	ErrUnknownSlide    = errors.New("slide not in catalog")
	ErrNoCompletion    = errors.New("no completion slide is showing")
)

type LessonConfig struct {
	Completion CompletionConfig
	// SlideMaxAge bounds how long a slide may stay mounted before the sweeper finalizes it
	SlideMaxAge time.Duration
}

type LessonDeps struct {
	Catalog   *catalog.Catalog
	Store     tracker.InteractionStore
	Gateway   *InteractionGateway
	Syncer    Syncer
	Scheduler scheduler.Scheduler
	Clock     scheduler.Clock
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

// LessonService handles the player's slide and completion lifecycle
type LessonService struct {
	cfg       LessonConfig
	catalog   *catalog.Catalog
	registry  *tracker.Registry
	tracking  tracker.Deps
	gateway   *InteractionGateway
	syncer    Syncer
	sched     scheduler.Scheduler
	clock     scheduler.Clock
	log       *zap.Logger
	metrics   *metrics.Metrics
	notifiers NotifierFactory

	mu          sync.Mutex
	completions map[string]*CompletionController // by student
}

// NewLessonService creates a new lesson service
func NewLessonService(cfg LessonConfig, deps LessonDeps) *LessonService {
	if deps.Scheduler == nil {
		deps.Scheduler = scheduler.Real{}
	}
	if deps.Clock == nil {
		deps.Clock = scheduler.Real{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Gateway == nil {
		deps.Gateway = NewInteractionGateway(MockSaver{Log: deps.Logger}, GatewayConfig{}, deps.Logger, deps.Metrics)
	}
	if cfg.SlideMaxAge <= 0 {
		cfg.SlideMaxAge = 2 * time.Hour
	}

	return &LessonService{
		cfg:      cfg,
		catalog:  deps.Catalog,
		registry: tracker.NewRegistry(),
		tracking: tracker.Deps{
			Store:  deps.Store,
			Sink:   deps.Gateway,
			Clock:  deps.Clock,
			Logger: deps.Logger,
		},
		gateway:     deps.Gateway,
		syncer:      deps.Syncer,
		sched:       deps.Scheduler,
		clock:       deps.Clock,
		log:         deps.Logger,
		metrics:     deps.Metrics,
		notifiers:   ChannelFactory(deps.Metrics),
		completions: make(map[string]*CompletionController),
	}
}

// SetNotifierFactory sets how host notifiers are built for each learner
func (s *LessonService) SetNotifierFactory(f NotifierFactory) {
	s.notifiers = f
}

// MountSlide starts tracking a slide for the learner
func (s *LessonService) MountSlide(ctx context.Context, learner *model.LearnerClaims, req model.MountSlideRequest) (*model.MountSlideResponse, error) {
	if req.SlideID == "" {
		return nil, ErrUnknownSlide
	}

	entry := model.SlideEntry{ID: req.SlideID, Title: req.SlideTitle}
	if s.catalog != nil {
		found, ok := s.catalog.Lookup(req.ModuleID, req.SubmoduleID, req.SlideID)
		if !ok {
			return nil, ErrUnknownSlide
		}
		entry = found
	}

	host := tracker.Mount(ctx, tracker.Slide{
		Entry:       entry,
		ModuleID:    req.ModuleID,
		SubmoduleID: req.SubmoduleID,
		StudentID:   learner.StudentID,
		ClassID:     learner.ClassID,
	}, s.tracking)
	s.registry.Add(host)

	return &model.MountSlideResponse{
		SessionID: host.ID(),
		Slide:     entry,
		StartedAt: host.StartedAt(),
	}, nil
}

// RecordInteraction reports whether the response was stored. Responses are
// not checked against the slide's declared interactions.
func (s *LessonService) RecordInteraction(ctx context.Context, learner *model.LearnerClaims, sessionID string, req model.RecordInteractionRequest) (bool, error) {
	host, err := s.ownedHost(learner, sessionID)
	if err != nil {
		return false, err
	}

	var opts []capture.Option
	if req.Question != "" {
		opts = append(opts, capture.WithQuestion(req.Question))
	}
	w := host.Capture(req.Interaction, opts...)

	if req.IsCorrect != nil {
		return w.Judge(req.Value, *req.IsCorrect), nil
	}
	return w.Complete(req.Value), nil
}

// UnmountSlide finalizes the slide and hands it to the persistence gateway
func (s *LessonService) UnmountSlide(ctx context.Context, learner *model.LearnerClaims, sessionID string) (*model.UnmountSlideResponse, error) {
	if _, err := s.ownedHost(learner, sessionID); err != nil {
		return nil, err
	}
	host, ok := s.registry.Remove(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}

	res, ok := host.Unmount(ctx)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &model.UnmountSlideResponse{
		TimeSpent:    res.Data.TimeSpent,
		Interactions: len(res.Data.Interactions),
		Persisted:    res.Persisted,
	}, nil
}

func (s *LessonService) ownedHost(learner *model.LearnerClaims, sessionID string) (*tracker.Host, error) {
	host, ok := s.registry.Get(sessionID)
	if !ok || host.Slide().StudentID != learner.StudentID {
		return nil, ErrSessionNotFound
	}
	return host, nil
}

// StartCompletion mounts the completion slide. Slides the learner left open
// are flushed first. While the learner's controller is live, repeating the
// call for the same submodule is a no-op and a call that completes a partial
// identity hands the ids to that controller. A finished controller, or one
// for another submodule, is stopped and replaced.
func (s *LessonService) StartCompletion(ctx context.Context, learner *model.LearnerClaims, req model.StartCompletionRequest) (model.CompletionSession, error) {
	for _, res := range s.registry.FlushStudent(ctx, learner.StudentID) {
		s.log.Debug("Flushed open slide on completion",
			zap.String("slide_id", res.Data.SlideID),
			zap.Bool("persisted", res.Persisted),
		)
	}

	id := model.CompletionIdentity{
		StudentID:   learner.StudentID,
		SubmoduleID: req.SubmoduleID,
		ModuleID:    req.ModuleID,
		ClassID:     learner.ClassID,
	}

	s.mu.Lock()
	if prev, ok := s.completions[learner.StudentID]; ok {
		if !prev.Finished() {
			cur := prev.Identity()
			if cur == id {
				s.mu.Unlock()
				return prev.Snapshot(), nil
			}
			if !cur.Complete() {
				s.mu.Unlock()
				prev.SetIdentity(id)
				return prev.Snapshot(), nil
			}
		}
		delete(s.completions, learner.StudentID)
		prev.Stop()
	}

	ctrl := NewCompletionController(s.cfg.Completion, CompletionDeps{
		Notifier:  s.notifiers(learner.StudentID),
		Syncer:    s.syncer,
		Scheduler: s.sched,
		Clock:     s.clock,
		Logger:    s.log,
		Metrics:   s.metrics,
	})
	s.completions[learner.StudentID] = ctrl
	s.mu.Unlock()

	ctrl.Start(id)
	return ctrl.Snapshot(), nil
}

// ReturnToModules is the "Return to Modules" click
func (s *LessonService) ReturnToModules(learner *model.LearnerClaims) (model.CompletionSession, error) {
	ctrl, ok := s.completion(learner.StudentID)
	if !ok {
		return model.CompletionSession{}, ErrNoCompletion
	}
	if err := ctrl.Return(); err != nil {
		return ctrl.Snapshot(), err
	}
	return ctrl.Snapshot(), nil
}

// StopCompletion unmounts the completion slide
func (s *LessonService) StopCompletion(learner *model.LearnerClaims) error {
	s.mu.Lock()
	ctrl, ok := s.completions[learner.StudentID]
	delete(s.completions, learner.StudentID)
	s.mu.Unlock()

	if !ok {
		return ErrNoCompletion
	}
	ctrl.Stop()
	return nil
}

func (s *LessonService) CompletionStatus(learner *model.LearnerClaims) (model.CompletionSession, error) {
	ctrl, ok := s.completion(learner.StudentID)
	if !ok {
		return model.CompletionSession{}, ErrNoCompletion
	}
	return ctrl.Snapshot(), nil
}

// Completion returns the learner's live controller
func (s *LessonService) Completion(studentID string) (*CompletionController, bool) {
	return s.completion(studentID)
}

func (s *LessonService) completion(studentID string) (*CompletionController, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctrl, ok := s.completions[studentID]
	return ctrl, ok
}

// OpenSlides returns the number of mounted slides
func (s *LessonService) OpenSlides() int {
	return s.registry.Len()
}

// SweepAbandoned finalizes slides whose player vanished without unmounting
// and stops completion controllers older than SlideMaxAge. It returns the
// number of slides finalized.
func (s *LessonService) SweepAbandoned(ctx context.Context) int {
	now := s.clock.Now()
	results := s.registry.Sweep(ctx, now, s.cfg.SlideMaxAge)
	if len(results) > 0 {
		s.log.Info("Swept abandoned slides", zap.Int("count", len(results)))
	}

	var stale []*CompletionController
	s.mu.Lock()
	for studentID, ctrl := range s.completions {
		started := ctrl.StartedAt()
		if started.IsZero() || now.Sub(started) < s.cfg.SlideMaxAge {
			continue
		}
		delete(s.completions, studentID)
		stale = append(stale, ctrl)
	}
	s.mu.Unlock()

	for _, ctrl := range stale {
		ctrl.Stop()
	}
	if len(stale) > 0 {
		s.log.Info("Swept abandoned completion slides", zap.Int("count", len(stale)))
	}
	return len(results)
}

// OpenCompletions returns the number of tracked completion controllers
func (s *LessonService) OpenCompletions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.completions)
}

// Shutdown flushes open slides, closes completion slides and waits for
// in-flight saves until ctx is done.
func (s *LessonService) Shutdown(ctx context.Context) error {
	flushed := s.registry.FlushAll(ctx)

	s.mu.Lock()
	ctrls := s.completions
	s.completions = make(map[string]*CompletionController)
	s.mu.Unlock()
	for _, ctrl := range ctrls {
		ctrl.Stop()
	}
	s.gateway.Close()

	done := make(chan struct{})
	go func() {
		s.gateway.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("Lesson service stopped", zap.Int("flushed_slides", len(flushed)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
