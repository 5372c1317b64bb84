package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"lessonplayer/internal/metrics"
	"lessonplayer/internal/model"
	"lessonplayer/internal/scheduler"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

var (
	ErrReturnNotReady   = errors.New("completion not synced yet")
	ErrCompletionClosed = errors.New("completion slide already closed")
)

// Syncer records that a learner finished a submodule
type Syncer interface {
	MarkCompleted(ctx context.Context, id model.CompletionIdentity) error
}

type CompletionConfig struct {
	EntryDelay          time.Duration
	AutoReturnDelay     time.Duration
	SyncTimeout         time.Duration
	SyncMaxRetries      uint64
	SyncInitialInterval time.Duration
}

// DefaultCompletionConfig returns the standard pacing
func DefaultCompletionConfig() CompletionConfig {
	return CompletionConfig{
		EntryDelay:          500 * time.Millisecond,
		AutoReturnDelay:     5 * time.Second,
		SyncTimeout:         5 * time.Second,
		SyncMaxRetries:      3,
		SyncInitialInterval: 200 * time.Millisecond,
	}
}

type CompletionDeps struct {
	Notifier  HostNotifier
	Syncer    Syncer
	Scheduler scheduler.Scheduler
	Clock     scheduler.Clock
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

// CompletionController drives one completion slide from mount to return.
// All state lives behind mu; timer and sync callbacks re-enter through it.
type CompletionController struct {
	cfg  CompletionConfig
	deps CompletionDeps
	log  *zap.Logger

	mu                  sync.Mutex
	identity            model.CompletionIdentity
	state               model.CompletionState
	animate             bool
	completionMarked    bool
	apiCompleted        bool
	userInitiatedReturn bool
	leftPlayer          bool // sync_failed return already requested the view change
	started             bool
	stopped             bool
	startedAt           time.Time

	cancelEntry scheduler.CancelFunc
	cancelAuto  scheduler.CancelFunc
	cancelSync  context.CancelFunc
	syncDone    chan struct{}
}

// NewCompletionController creates a controller in the entering state
func NewCompletionController(cfg CompletionConfig, deps CompletionDeps) *CompletionController {
	def := DefaultCompletionConfig()
	if cfg.EntryDelay <= 0 {
		cfg.EntryDelay = def.EntryDelay
	}
	if cfg.AutoReturnDelay <= 0 {
		cfg.AutoReturnDelay = def.AutoReturnDelay
	}
	if cfg.SyncTimeout <= 0 {
		cfg.SyncTimeout = def.SyncTimeout
	}
	if cfg.SyncInitialInterval <= 0 {
		cfg.SyncInitialInterval = def.SyncInitialInterval
	}
	if deps.Scheduler == nil {
		deps.Scheduler = scheduler.Real{}
	}
	if deps.Clock == nil {
		deps.Clock = scheduler.Real{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Notifier == nil {
		deps.Notifier = NewHostNotifier("", deps.Metrics)
	}
	if deps.Syncer == nil {
		deps.Syncer = MockSyncer{}
	}

	return &CompletionController{
		cfg:      cfg,
		deps:     deps,
		log:      deps.Logger,
		state:    model.CompletionEntering,
		syncDone: make(chan struct{}),
	}
}

// Start is the completion slide mount. It is a no-op after the first call.
func (c *CompletionController) Start(id model.CompletionIdentity) {
	c.mu.Lock()
	if c.started || c.stopped {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.startedAt = c.deps.Clock.Now()
	c.log = c.log.With(zap.String("student_id", id.StudentID), zap.String("submodule_id", id.SubmoduleID))
	c.deps.Metrics.CompletionEntered(string(model.CompletionEntering))
	c.deps.Notifier.SetCompletionSlide(true)
	c.cancelEntry = c.deps.Scheduler.ScheduleOnce(c.cfg.EntryDelay, c.onEntryDelay)
	c.mu.Unlock()

	c.SetIdentity(id)
}

// SetIdentity supplies the learner and lesson ids. The first complete identity
// triggers the sync; later calls never trigger it again.
func (c *CompletionController) SetIdentity(id model.CompletionIdentity) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped || c.completionMarked {
		return false
	}
	c.identity = id
	if !id.Complete() {
		c.log.Debug("Completion identity incomplete, sync deferred")
		return false
	}

	c.completionMarked = true
	c.enterLocked(model.CompletionAwaitingSync)

	ctx, cancel := context.WithCancel(context.Background())
	c.cancelSync = cancel
	go c.runSync(ctx, id)
	return true
}

func (c *CompletionController) runSync(ctx context.Context, id model.CompletionIdentity) {
	defer close(c.syncDone)

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				c.log.Error("Recovered from panic in completion sync", zap.Any("panic", r))
				err = errors.New("completion sync panicked")
			}
		}()

		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = c.cfg.SyncInitialInterval
		exp.MaxElapsedTime = 0
		policy := backoff.WithContext(backoff.WithMaxRetries(exp, c.cfg.SyncMaxRetries), ctx)

		err = backoff.RetryNotify(func() error {
			attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.SyncTimeout)
			defer cancel()
			return c.deps.Syncer.MarkCompleted(attemptCtx, id)
		}, policy, func(err error, wait time.Duration) {
			c.log.Warn("Completion sync failed, retrying", zap.Error(err), zap.Duration("wait", wait))
		})
	}()

	c.onSyncResult(err)
}

func (c *CompletionController) onSyncResult(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}
	if err != nil {
		c.log.Error("Completion sync gave up", zap.Error(err))
		c.enterLocked(model.CompletionSyncFailed)
		return
	}

	c.apiCompleted = true
	c.maybeReadyLocked()
}

func (c *CompletionController) onEntryDelay() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}
	c.animate = true
	c.maybeReadyLocked()
}

func (c *CompletionController) maybeReadyLocked() {
	if !c.apiCompleted || !c.animate || c.state != model.CompletionAwaitingSync {
		return
	}
	c.enterLocked(model.CompletionReady)
	c.cancelAuto = c.deps.Scheduler.ScheduleOnce(c.cfg.AutoReturnDelay, c.onAutoReturn)
}

func (c *CompletionController) onAutoReturn() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped || c.userInitiatedReturn || c.state.Terminal() {
		return
	}
	c.finishLocked(model.CompletionAutoReturned)
}

// Return is the learner's "Return to Modules" click
func (c *CompletionController) Return() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return ErrCompletionClosed
	}
	if c.state == model.CompletionSyncFailed {
		// progress was not saved, so only leave the player
		if !c.leftPlayer {
			c.leftPlayer = true
			c.deps.Notifier.RequestViewChange()
		}
		return nil
	}
	if !c.apiCompleted {
		return ErrReturnNotReady
	}
	if c.state.Terminal() {
		return nil
	}

	c.userInitiatedReturn = true
	if c.cancelAuto != nil {
		c.cancelAuto()
	}
	c.finishLocked(model.CompletionUserReturned)
	return nil
}

// finishLocked posts SUBMODULE_COMPLETED then SHOW_SUBMODULES under mu
func (c *CompletionController) finishLocked(state model.CompletionState) {
	c.enterLocked(state)
	c.deps.Notifier.NotifyCompletion(model.CompletionPayload{
		StudentID:   c.identity.StudentID,
		SubmoduleID: c.identity.SubmoduleID,
		ModuleID:    c.identity.ModuleID,
		ClassID:     c.identity.ClassID,
		Timestamp:   isoTimestamp(c.deps.Clock.Now()),
	})
	c.deps.Notifier.RequestViewChange()
}

func (c *CompletionController) enterLocked(state model.CompletionState) {
	c.state = state
	c.deps.Metrics.CompletionEntered(string(state))
	c.log.Debug("Completion state changed", zap.String("state", string(state)))
}

// Stop is the completion slide unmount. Timers and the sync are cancelled and
// IS_COMPLETION_SLIDE=false is posted once.
func (c *CompletionController) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}
	c.stopped = true

	if c.cancelEntry != nil {
		c.cancelEntry()
	}
	if c.cancelAuto != nil {
		c.cancelAuto()
	}
	if c.cancelSync != nil {
		c.cancelSync()
	}
	if c.started {
		c.deps.Notifier.SetCompletionSlide(false)
	}
}

// Finished reports whether the controller has stopped or already sent the
// learner back to the modules list. A finished controller is never reused.
func (c *CompletionController) Finished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped || c.leftPlayer || c.state.Terminal()
}

// StartedAt is the clock time of Start, zero before it
func (c *CompletionController) StartedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startedAt
}

// SyncDone is closed once the sync attempt, including retries, has finished
func (c *CompletionController) SyncDone() <-chan struct{} {
	return c.syncDone
}

func (c *CompletionController) Identity() model.CompletionIdentity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

func (c *CompletionController) Snapshot() model.CompletionSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.CompletionSession{
		State:               c.state,
		Animate:             c.animate,
		CompletionMarked:    c.completionMarked,
		APICompleted:        c.apiCompleted,
		UserInitiatedReturn: c.userInitiatedReturn,
		ReturnEnabled:       !c.stopped && (c.apiCompleted || c.state == model.CompletionSyncFailed),
	}
}
