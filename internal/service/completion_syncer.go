package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lessonplayer/internal/cache"
	"lessonplayer/internal/model"
	"lessonplayer/internal/repository"
	"lessonplayer/internal/scheduler"

	"go.uber.org/zap"
)

// MockSyncer resolves after Delay and never fails
type MockSyncer struct {
	Delay time.Duration
}

func (s MockSyncer) MarkCompleted(ctx context.Context, id model.CompletionIdentity) error {
	if s.Delay <= 0 {
		return nil
	}
	t := time.NewTimer(s.Delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CompletionAnnouncer is told about completions after they are stored
type CompletionAnnouncer interface {
	SubmoduleCompleted(ctx context.Context, id model.CompletionIdentity) error
}

// CompletionSyncer records completions with a Redis marker and a Mongo document
type CompletionSyncer struct {
	cache     cache.CompletionCache
	repo      repository.CompletionRepo
	announcer CompletionAnnouncer
	clock     scheduler.Clock
	log       *zap.Logger
}

// NewCompletionSyncer creates a syncer. repo and announcer may be nil.
func NewCompletionSyncer(c cache.CompletionCache, repo repository.CompletionRepo, announcer CompletionAnnouncer, clock scheduler.Clock, log *zap.Logger) *CompletionSyncer {
	if clock == nil {
		clock = scheduler.Real{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CompletionSyncer{cache: c, repo: repo, announcer: announcer, clock: clock, log: log}
}

func (s *CompletionSyncer) MarkCompleted(ctx context.Context, id model.CompletionIdentity) error {
	fresh, err := s.cache.MarkCompleted(ctx, id.StudentID, id.SubmoduleID)
	if err != nil {
		return fmt.Errorf("set completion marker: %w", err)
	}
	if !fresh {
		s.log.Debug("Completion already recorded",
			zap.String("student_id", id.StudentID),
			zap.String("submodule_id", id.SubmoduleID),
		)
		return nil
	}

	if s.repo != nil {
		if err := s.repo.Upsert(ctx, id, s.clock.Now()); err != nil {
			err = fmt.Errorf("store completion: %w", err)
			// clear so the retry does not see a stale marker
			if cerr := s.cache.Clear(context.WithoutCancel(ctx), id.StudentID, id.SubmoduleID); cerr != nil {
				return errors.Join(err, fmt.Errorf("clear completion marker: %w", cerr))
			}
			return err
		}
	}

	if s.announcer != nil {
		if err := s.announcer.SubmoduleCompleted(ctx, id); err != nil {
			s.log.Warn("Failed to announce completion", zap.String("student_id", id.StudentID), zap.Error(err))
		}
	}
	return nil
}
