package service

import (
	"context"
	"testing"

	"lessonplayer/internal/cache"
	"lessonplayer/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyticsService_FoldsSlideIntoAggregates(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	svc := NewAnalyticsService(cache.NewAnalyticsCache(client))
	ctx := context.Background()

	yes, no := true, false
	data := model.SlideInteractionData{
		SlideID:   "sine-wave",
		TimeSpent: 4200,
		Interactions: map[string]model.InteractionResponse{
			"q1":     {InteractionID: "q1", ConceptID: "amplitude", ConceptName: "Amplitude", IsCorrect: &yes, Value: model.TextValue("2")},
			"q2":     {InteractionID: "q2", ConceptID: "amplitude", ConceptName: "Amplitude", IsCorrect: &no, Value: model.TextValue("1")},
			"slider": {InteractionID: "slider", ConceptID: "period", ConceptName: "Period", Value: model.NumberValue(6.28)},
			"free":   {InteractionID: "free", Value: model.TextValue("notes")},
		},
	}
	require.NoError(t, svc.SaveInteractionData(ctx, "trigonometry", "waves", data))
	require.NoError(t, svc.SaveInteractionData(ctx, "trigonometry", "waves", model.SlideInteractionData{TimeSpent: 800}))

	amp, err := svc.GetConceptStats(ctx, "amplitude")
	require.NoError(t, err)
	require.NotNil(t, amp)
	assert.Equal(t, int64(2), amp.Responses)
	assert.Equal(t, int64(1), amp.Correct)
	assert.Equal(t, int64(1), amp.Incorrect)
	assert.Equal(t, "Amplitude", amp.ConceptName)

	period, err := svc.GetConceptStats(ctx, "period")
	require.NoError(t, err)
	require.NotNil(t, period)
	assert.Equal(t, int64(1), period.Responses)
	assert.Zero(t, period.Correct+period.Incorrect)

	dwell, err := svc.GetSubmoduleDwell(ctx, "trigonometry", "waves")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), dwell)
}
