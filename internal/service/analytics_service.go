package service

import (
	"context"
	"errors"
	"fmt"

	"lessonplayer/internal/cache"
	"lessonplayer/internal/model"
)

// AnalyticsService keeps per-concept and per-submodule aggregates in Redis
type AnalyticsService struct {
	analyticsCache cache.AnalyticsCache
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(analyticsCache cache.AnalyticsCache) *AnalyticsService {
	return &AnalyticsService{analyticsCache: analyticsCache}
}

// SaveInteractionData folds one finalized slide into the aggregates
func (s *AnalyticsService) SaveInteractionData(ctx context.Context, moduleID, submoduleID string, data model.SlideInteractionData) error {
	var errs []error
	for id, resp := range data.Interactions {
		if resp.ConceptID == "" {
			continue
		}
		if err := s.analyticsCache.IncrementConcept(ctx, resp.ConceptID, resp.ConceptName, resp.IsCorrect); err != nil {
			errs = append(errs, fmt.Errorf("concept %s (interaction %s): %w", resp.ConceptID, id, err))
		}
	}

	if data.TimeSpent > 0 {
		if err := s.analyticsCache.AddDwell(ctx, moduleID, submoduleID, data.TimeSpent); err != nil {
			errs = append(errs, fmt.Errorf("dwell: %w", err))
		}
	}
	return errors.Join(errs...)
}

// GetConceptStats returns the aggregate for a concept, or nil if never answered
func (s *AnalyticsService) GetConceptStats(ctx context.Context, conceptID string) (*model.ConceptStats, error) {
	return s.analyticsCache.GetConceptStats(ctx, conceptID)
}

// GetSubmoduleDwell returns total milliseconds learners spent in a submodule
func (s *AnalyticsService) GetSubmoduleDwell(ctx context.Context, moduleID, submoduleID string) (int64, error) {
	return s.analyticsCache.GetDwell(ctx, moduleID, submoduleID)
}
