package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"lessonplayer/internal/metrics"
	"lessonplayer/internal/model"
	"lessonplayer/internal/repository"

	"go.uber.org/zap"
)

// DefaultMinDwell is the dwell time below which an empty slide is not saved
const DefaultMinDwell = 5 * time.Second

// InteractionSaver persists one finalized slide
type InteractionSaver interface {
	SaveInteractionData(ctx context.Context, moduleID, submoduleID string, data model.SlideInteractionData) error
}

// SaverFunc adapts a function to InteractionSaver
type SaverFunc func(ctx context.Context, moduleID, submoduleID string, data model.SlideInteractionData) error

func (f SaverFunc) SaveInteractionData(ctx context.Context, moduleID, submoduleID string, data model.SlideInteractionData) error {
	return f(ctx, moduleID, submoduleID, data)
}

// ShouldPersist is the skip policy: a slide is saved if the learner did
// anything on it or stayed at least minDwell.
func ShouldPersist(data model.SlideInteractionData, minDwell time.Duration) bool {
	return len(data.Interactions) > 0 || data.Dwell() >= minDwell
}

type GatewayConfig struct {
	MinDwell    time.Duration
	SaveTimeout time.Duration
}

// InteractionGateway applies the skip policy and saves in the background.
// Save failures are logged and counted, never returned.
type InteractionGateway struct {
	saver   InteractionSaver
	cfg     GatewayConfig
	log     *zap.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewInteractionGateway creates a new gateway
func NewInteractionGateway(saver InteractionSaver, cfg GatewayConfig, log *zap.Logger, m *metrics.Metrics) *InteractionGateway {
	if cfg.MinDwell <= 0 {
		cfg.MinDwell = DefaultMinDwell
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &InteractionGateway{saver: saver, cfg: cfg, log: log, metrics: m}
}

// Submit implements tracker.Sink. It returns whether a save was dispatched;
// the caller never waits for the save itself.
func (g *InteractionGateway) Submit(ctx context.Context, data model.SlideInteractionData) bool {
	if !ShouldPersist(data, g.cfg.MinDwell) {
		g.log.Debug("Skipping trivial slide session",
			zap.String("slide_id", data.SlideID),
			zap.Int64("time_spent_ms", data.TimeSpent),
		)
		g.metrics.SlideFinalized(false)
		return false
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		g.log.Warn("Gateway closed, dropping slide interactions",
			zap.String("slide_id", data.SlideID),
			zap.String("student_id", data.StudentID),
		)
		g.metrics.SaveFailed()
		return false
	}
	g.wg.Add(1)
	g.mu.Unlock()

	g.metrics.SlideFinalized(true)
	go g.save(context.WithoutCancel(ctx), data)
	return true
}

func (g *InteractionGateway) save(ctx context.Context, data model.SlideInteractionData) {
	defer g.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			g.log.Error("Recovered from panic in interaction save", zap.Any("panic", r), zap.String("slide_id", data.SlideID))
			g.metrics.SaveFailed()
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, g.cfg.SaveTimeout)
	defer cancel()

	start := time.Now()
	err := g.saver.SaveInteractionData(ctx, data.ModuleID, data.SubmoduleID, data)
	g.metrics.ObserveSave(time.Since(start).Seconds())
	if err != nil {
		g.log.Warn("Failed to save slide interactions",
			zap.String("slide_id", data.SlideID),
			zap.String("module_id", data.ModuleID),
			zap.String("submodule_id", data.SubmoduleID),
			zap.Error(err),
		)
		g.metrics.SaveFailed()
		return
	}

	g.log.Debug("Saved slide interactions",
		zap.String("slide_id", data.SlideID),
		zap.Int("interactions", len(data.Interactions)),
		zap.Int64("time_spent_ms", data.TimeSpent),
	)
}

// Wait blocks until every dispatched save has returned
func (g *InteractionGateway) Wait() {
	g.wg.Wait()
}

// Close refuses further submits. Saves already dispatched keep running; call
// Wait to drain them.
func (g *InteractionGateway) Close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}

// MultiSaver calls every saver in order and joins their errors
type MultiSaver []InteractionSaver

func (m MultiSaver) SaveInteractionData(ctx context.Context, moduleID, submoduleID string, data model.SlideInteractionData) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.SaveInteractionData(ctx, moduleID, submoduleID, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MockSaver logs the record and resolves after a fixed delay. It never fails.
type MockSaver struct {
	Delay time.Duration
	Log   *zap.Logger
}

func (s MockSaver) SaveInteractionData(ctx context.Context, moduleID, submoduleID string, data model.SlideInteractionData) error {
	if s.Log != nil {
		s.Log.Info("Saving interaction data",
			zap.String("module_id", moduleID),
			zap.String("submodule_id", submoduleID),
			zap.String("slide_id", data.SlideID),
			zap.Int64("time_spent_ms", data.TimeSpent),
			zap.Int("interactions", len(data.Interactions)),
		)
	}
	if s.Delay <= 0 {
		return nil
	}
	t := time.NewTimer(s.Delay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
	return nil
}

// RepositorySaver stores records in MongoDB
type RepositorySaver struct {
	Repo repository.SlideRecordRepo
}

func (s RepositorySaver) SaveInteractionData(ctx context.Context, moduleID, submoduleID string, data model.SlideInteractionData) error {
	data.ModuleID = moduleID
	data.SubmoduleID = submoduleID
	return s.Repo.Create(ctx, &model.SlideRecord{SlideInteractionData: data, SavedAt: time.Now()})
}
