package service

import (
	"context"
	"testing"
	"time"

	"lessonplayer/internal/catalog"
	"lessonplayer/internal/model"
	"lessonplayer/internal/scheduler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wavesCatalog = `
modules:
  - id: trigonometry
    title: Trigonometry
    submodules:
      - id: waves
        title: Waves
        slides:
          - {id: intro, type: interactive, title: "What is a wave?", component: WaveIntro}
          - {id: done, type: completion, title: Well done, component: CompletionSlide}
`

type lessonFixture struct {
	svc   *LessonService
	clock *scheduler.Manual
	saver *recordingSaver
	gw    *InteractionGateway
	host  *recordingChannel
}

func newLessonFixture(t *testing.T, withCatalog bool) *lessonFixture {
	t.Helper()
	clock := scheduler.NewManual(epoch)
	saver := &recordingSaver{}
	gw := NewInteractionGateway(saver, GatewayConfig{}, nil, nil)

	var cat *catalog.Catalog
	if withCatalog {
		var err error
		cat, err = catalog.Parse([]byte(wavesCatalog))
		require.NoError(t, err)
	}

	svc := NewLessonService(LessonConfig{SlideMaxAge: time.Hour}, LessonDeps{
		Catalog:   cat,
		Gateway:   gw,
		Syncer:    MockSyncer{},
		Scheduler: clock,
		Clock:     clock,
	})
	host := &recordingChannel{}
	svc.SetNotifierFactory(ChannelFactory(nil, host))
	return &lessonFixture{svc: svc, clock: clock, saver: saver, gw: gw, host: host}
}

var (
	stu1 = &model.LearnerClaims{StudentID: "stu-1", ClassID: "class-9"}
	stu2 = &model.LearnerClaims{StudentID: "stu-2"}
)

func TestLesson_SlideLifecycle(t *testing.T) {
	f := newLessonFixture(t, true)
	ctx := context.Background()

	mounted, err := f.svc.MountSlide(ctx, stu1, model.MountSlideRequest{ModuleID: "trigonometry", SubmoduleID: "waves", SlideID: "intro"})
	require.NoError(t, err)
	assert.Equal(t, "What is a wave?", mounted.Slide.Title)
	assert.Equal(t, epoch, mounted.StartedAt)

	f.clock.Advance(100 * time.Millisecond)
	yes := true
	ok, err := f.svc.RecordInteraction(ctx, stu1, mounted.SessionID, model.RecordInteractionRequest{
		Interaction: quiz,
		Value:       model.ListValue("sin", "cos"),
		IsCorrect:   &yes,
		Question:    "Which functions are periodic?",
	})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.RecordInteraction(ctx, stu1, mounted.SessionID, model.RecordInteractionRequest{Interaction: quiz})
	require.NoError(t, err)
	assert.False(t, ok, "empty value is not reported")

	f.clock.Advance(1100 * time.Millisecond)
	out, err := f.svc.UnmountSlide(ctx, stu1, mounted.SessionID)
	require.NoError(t, err)
	f.gw.Wait()

	assert.Equal(t, int64(1200), out.TimeSpent)
	assert.Equal(t, 1, out.Interactions)
	assert.True(t, out.Persisted)

	saved := f.saver.saved()
	require.Len(t, saved, 1)
	resp := saved[0].Interactions["q1"]
	assert.Equal(t, "Which functions are periodic?", resp.Question)
	assert.Equal(t, "stu-1", saved[0].StudentID)
	assert.Equal(t, "class-9", saved[0].ClassID)

	_, err = f.svc.UnmountSlide(ctx, stu1, mounted.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Zero(t, f.svc.OpenSlides())
}

func TestLesson_UnknownSlide(t *testing.T) {
	f := newLessonFixture(t, true)

	_, err := f.svc.MountSlide(context.Background(), stu1, model.MountSlideRequest{ModuleID: "trigonometry", SubmoduleID: "waves", SlideID: "nope"})
	assert.ErrorIs(t, err, ErrUnknownSlide)
	_, err = f.svc.MountSlide(context.Background(), stu1, model.MountSlideRequest{})
	assert.ErrorIs(t, err, ErrUnknownSlide)
}

func TestLesson_WithoutCatalogTrustsRequest(t *testing.T) {
	f := newLessonFixture(t, false)

	mounted, err := f.svc.MountSlide(context.Background(), stu1, model.MountSlideRequest{SlideID: "free-slide", SlideTitle: "Free"})
	require.NoError(t, err)
	assert.Equal(t, model.SlideEntry{ID: "free-slide", Title: "Free"}, mounted.Slide)
}

func TestLesson_SessionsAreScopedToLearner(t *testing.T) {
	f := newLessonFixture(t, true)
	ctx := context.Background()

	mounted, err := f.svc.MountSlide(ctx, stu1, model.MountSlideRequest{ModuleID: "trigonometry", SubmoduleID: "waves", SlideID: "intro"})
	require.NoError(t, err)

	_, err = f.svc.RecordInteraction(ctx, stu2, mounted.SessionID, model.RecordInteractionRequest{Interaction: quiz, Value: model.TextValue("A")})
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.svc.UnmountSlide(ctx, stu2, mounted.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 1, f.svc.OpenSlides())
}

func TestLesson_CompletionFlow(t *testing.T) {
	f := newLessonFixture(t, true)
	ctx := context.Background()

	// left open by the player
	_, err := f.svc.MountSlide(ctx, stu1, model.MountSlideRequest{ModuleID: "trigonometry", SubmoduleID: "waves", SlideID: "intro"})
	require.NoError(t, err)
	f.clock.Advance(6 * time.Second)

	req := model.StartCompletionRequest{ModuleID: "trigonometry", SubmoduleID: "waves"}
	_, err = f.svc.StartCompletion(ctx, stu1, req)
	require.NoError(t, err)
	f.gw.Wait()
	assert.Zero(t, f.svc.OpenSlides())
	assert.Len(t, f.saver.saved(), 1)

	ctrl, ok := f.svc.Completion("stu-1")
	require.True(t, ok)
	waitClosed(t, ctrl.SyncDone())

	again, err := f.svc.StartCompletion(ctx, stu1, req)
	require.NoError(t, err)
	assert.True(t, again.APICompleted)
	same, _ := f.svc.Completion("stu-1")
	assert.Same(t, ctrl, same)

	snap, err := f.svc.ReturnToModules(stu1)
	require.NoError(t, err)
	assert.Equal(t, model.CompletionUserReturned, snap.State)
	assertCompletedThenShow(t, f.host)

	require.NoError(t, f.svc.StopCompletion(stu1))
	assert.ErrorIs(t, f.svc.StopCompletion(stu1), ErrNoCompletion)
	_, err = f.svc.CompletionStatus(stu1)
	assert.ErrorIs(t, err, ErrNoCompletion)
	_, err = f.svc.ReturnToModules(stu1)
	assert.ErrorIs(t, err, ErrNoCompletion)

	types := f.host.types()
	assert.Equal(t, model.HostMessage{Type: model.MsgIsCompletionSlide, Payload: false}, f.host.messages[len(types)-1])
}

func TestLesson_SweepAbandoned(t *testing.T) {
	f := newLessonFixture(t, true)
	ctx := context.Background()

	_, err := f.svc.MountSlide(ctx, stu1, model.MountSlideRequest{ModuleID: "trigonometry", SubmoduleID: "waves", SlideID: "intro"})
	require.NoError(t, err)
	f.clock.Advance(30 * time.Minute)
	_, err = f.svc.MountSlide(ctx, stu2, model.MountSlideRequest{ModuleID: "trigonometry", SubmoduleID: "waves", SlideID: "intro"})
	require.NoError(t, err)

	f.clock.Advance(31 * time.Minute)
	assert.Equal(t, 1, f.svc.SweepAbandoned(ctx))
	assert.Equal(t, 1, f.svc.OpenSlides())
}

func TestLesson_ShutdownFlushesEverything(t *testing.T) {
	f := newLessonFixture(t, true)
	ctx := context.Background()

	_, err := f.svc.MountSlide(ctx, stu1, model.MountSlideRequest{ModuleID: "trigonometry", SubmoduleID: "waves", SlideID: "intro"})
	require.NoError(t, err)
	f.clock.Advance(10 * time.Second)
	_, err = f.svc.StartCompletion(ctx, stu2, model.StartCompletionRequest{ModuleID: "trigonometry", SubmoduleID: "waves"})
	require.NoError(t, err)

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, f.svc.Shutdown(shutdownCtx))

	assert.Zero(t, f.svc.OpenSlides())
	assert.Len(t, f.saver.saved(), 1)
	assert.Equal(t, model.HostMessage{Type: model.MsgIsCompletionSlide, Payload: false}, f.host.messages[len(f.host.messages)-1])
}

func TestLesson_CompletionRemountAfterAutoReturn(t *testing.T) {
	f := newLessonFixture(t, true)
	ctx := context.Background()
	req := model.StartCompletionRequest{ModuleID: "trigonometry", SubmoduleID: "waves"}

	_, err := f.svc.StartCompletion(ctx, stu1, req)
	require.NoError(t, err)
	first, _ := f.svc.Completion("stu-1")
	waitClosed(t, first.SyncDone())
	f.clock.Advance(6 * time.Second)
	require.Equal(t, model.CompletionAutoReturned, first.Snapshot().State)
	require.Equal(t, 1, f.host.count(model.MsgSubmoduleCompleted))

	// player closed without unmounting, learner comes back later
	f.clock.Advance(24 * time.Hour)
	snap, err := f.svc.StartCompletion(ctx, stu1, req)
	require.NoError(t, err)
	assert.Equal(t, model.CompletionAwaitingSync, snap.State)

	second, ok := f.svc.Completion("stu-1")
	require.True(t, ok)
	assert.NotSame(t, first, second)
	waitClosed(t, second.SyncDone())
	f.clock.Advance(6 * time.Second)

	assert.Equal(t, model.CompletionAutoReturned, second.Snapshot().State)
	assert.Equal(t, 2, f.host.count(model.MsgSubmoduleCompleted))
	assert.Equal(t, 2, f.host.count(model.MsgShowSubmodules))
	assert.Equal(t, 1, f.svc.OpenCompletions())
}

func TestLesson_CompletionIdentityArrivesLater(t *testing.T) {
	f := newLessonFixture(t, true)
	ctx := context.Background()

	snap, err := f.svc.StartCompletion(ctx, stu1, model.StartCompletionRequest{ModuleID: "trigonometry"})
	require.NoError(t, err)
	assert.False(t, snap.CompletionMarked)
	ctrl, _ := f.svc.Completion("stu-1")

	f.clock.Advance(200 * time.Millisecond)
	snap, err = f.svc.StartCompletion(ctx, stu1, model.StartCompletionRequest{ModuleID: "trigonometry", SubmoduleID: "waves"})
	require.NoError(t, err)
	assert.True(t, snap.CompletionMarked)

	same, _ := f.svc.Completion("stu-1")
	assert.Same(t, ctrl, same)
	waitClosed(t, ctrl.SyncDone())
	f.clock.Advance(6 * time.Second)

	assert.Equal(t, []model.HostMessageType{
		model.MsgIsCompletionSlide,
		model.MsgSubmoduleCompleted,
		model.MsgShowSubmodules,
	}, f.host.types())
	msg, ok := f.host.find(model.MsgSubmoduleCompleted)
	require.True(t, ok)
	payload, ok := msg.Payload.(model.CompletionPayload)
	require.True(t, ok)
	assert.Equal(t, "waves", payload.SubmoduleID)
	// entry delay was not restarted by the second call
	assert.Equal(t, "2026-03-02T10:00:05.500Z", payload.Timestamp)
}

func TestLesson_SweepStopsStaleCompletions(t *testing.T) {
	f := newLessonFixture(t, true)
	ctx := context.Background()

	_, err := f.svc.StartCompletion(ctx, stu1, model.StartCompletionRequest{ModuleID: "trigonometry", SubmoduleID: "waves"})
	require.NoError(t, err)
	stale, _ := f.svc.Completion("stu-1")
	waitClosed(t, stale.SyncDone())

	f.clock.Advance(40 * time.Minute)
	_, err = f.svc.StartCompletion(ctx, stu2, model.StartCompletionRequest{ModuleID: "trigonometry", SubmoduleID: "waves"})
	require.NoError(t, err)
	fresh, _ := f.svc.Completion("stu-2")
	waitClosed(t, fresh.SyncDone())

	f.clock.Advance(21 * time.Minute)
	f.svc.SweepAbandoned(ctx)

	assert.Equal(t, 1, f.svc.OpenCompletions())
	assert.True(t, stale.Finished())
	_, err = f.svc.CompletionStatus(stu1)
	assert.ErrorIs(t, err, ErrNoCompletion)
	_, err = f.svc.CompletionStatus(stu2)
	assert.NoError(t, err)
}
