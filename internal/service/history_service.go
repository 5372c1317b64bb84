package service

import (
	"context"
	"errors"

	"lessonplayer/internal/model"
	"lessonplayer/internal/repository"
)

var ErrHistoryDisabled = errors.New("learner history is not available")

// StudentProgress is a learner's persisted slide and completion history
type StudentProgress struct {
	StudentID   string                            `json:"studentId"`
	Slides      []*model.SlideRecord              `json:"slides"`
	Completions []*repository.SubmoduleCompletion `json:"completions"`
	// TimeSpent sums the dwell of every persisted slide in milliseconds
	TimeSpent int64 `json:"timeSpent"`
}

// HistoryService answers host queries about what a learner has done
type HistoryService struct {
	slides      repository.SlideRecordRepo
	completions repository.CompletionRepo
}

func NewHistoryService(slides repository.SlideRecordRepo, completions repository.CompletionRepo) *HistoryService {
	return &HistoryService{slides: slides, completions: completions}
}

// StudentProgress loads the learner's slide records and completed submodules
func (s *HistoryService) StudentProgress(ctx context.Context, studentID string) (*StudentProgress, error) {
	if s == nil || s.slides == nil || s.completions == nil {
		return nil, ErrHistoryDisabled
	}

	slides, err := s.slides.GetByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	completions, err := s.completions.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	p := &StudentProgress{
		StudentID:   studentID,
		Slides:      slides,
		Completions: completions,
	}
	if p.Slides == nil {
		p.Slides = []*model.SlideRecord{}
	}
	if p.Completions == nil {
		p.Completions = []*repository.SubmoduleCompletion{}
	}
	for _, rec := range slides {
		p.TimeSpent += rec.TimeSpent
	}
	return p, nil
}
