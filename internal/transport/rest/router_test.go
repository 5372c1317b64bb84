package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lessonplayer/internal/cache"
	"lessonplayer/internal/model"
	"lessonplayer/internal/scheduler"
	"lessonplayer/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	srv     *httptest.Server
	gateway *service.InteractionGateway
	lessons *service.LessonService
	clock   *scheduler.Manual
	auth    *service.AuthService
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	clock := scheduler.NewManual(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	auth := service.NewAuthService(service.AuthConfig{HostUsername: "admin", HostPassword: "pw", JWTSecret: "router-secret"})
	analytics := service.NewAnalyticsService(cache.NewAnalyticsCache(client))
	gateway := service.NewInteractionGateway(analytics, service.GatewayConfig{}, nil, nil)
	lessons := service.NewLessonService(service.LessonConfig{}, service.LessonDeps{
		Store:     cache.NewInteractionCache(client, time.Hour),
		Gateway:   gateway,
		Scheduler: clock,
		Clock:     clock,
	})

	srv := httptest.NewServer(NewRouter(&Container{
		AuthService:      auth,
		LessonService:    lessons,
		AnalyticsService: analytics,
	}))
	t.Cleanup(srv.Close)
	return &apiFixture{srv: srv, gateway: gateway, lessons: lessons, clock: clock, auth: auth}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body interface{}, out interface{}) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.srv.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (f *apiFixture) hostToken(t *testing.T) string {
	t.Helper()
	var login model.LoginResponse
	require.Equal(t, http.StatusOK, f.do(t, "POST", "/v1/auth/login", "", model.LoginRequest{Username: "admin", Password: "pw"}, &login))
	return login.Token
}

func (f *apiFixture) learnerToken(t *testing.T, host string) string {
	t.Helper()
	var tok model.LearnerTokenResponse
	require.Equal(t, http.StatusOK, f.do(t, "POST", "/v1/auth/learners/token", host, model.LearnerTokenRequest{StudentID: "stu-1", ClassID: "class-9"}, &tok))
	return tok.Token
}

func TestRouter_SlideLifecycle(t *testing.T) {
	f := newAPI(t)
	host := f.hostToken(t)
	learner := f.learnerToken(t, host)

	var mounted model.MountSlideResponse
	require.Equal(t, http.StatusCreated, f.do(t, "POST", "/v1/slides/sessions", learner,
		model.MountSlideRequest{ModuleID: "trigonometry", SubmoduleID: "waves", SlideID: "sine-wave", SlideTitle: "The sine wave"}, &mounted))
	require.NotEmpty(t, mounted.SessionID)

	f.clock.Advance(300 * time.Millisecond)
	var recorded map[string]bool
	require.Equal(t, http.StatusOK, f.do(t, "PUT", "/v1/slides/sessions/"+mounted.SessionID+"/interactions", learner,
		json.RawMessage(`{"interaction":{"id":"q1","conceptId":"amplitude","conceptName":"Amplitude","type":"judging"},"value":["2","3"],"isCorrect":true}`), &recorded))
	assert.True(t, recorded["recorded"])

	f.clock.Advance(900 * time.Millisecond)
	var out model.UnmountSlideResponse
	require.Equal(t, http.StatusOK, f.do(t, "DELETE", "/v1/slides/sessions/"+mounted.SessionID, learner, nil, &out))
	assert.Equal(t, int64(1200), out.TimeSpent)
	assert.Equal(t, 1, out.Interactions)
	assert.True(t, out.Persisted)
	f.gateway.Wait()

	assert.Equal(t, http.StatusNotFound, f.do(t, "DELETE", "/v1/slides/sessions/"+mounted.SessionID, learner, nil, nil))

	var stats struct {
		Stats    model.ConceptStats `json:"stats"`
		Accuracy float64            `json:"accuracy"`
	}
	require.Equal(t, http.StatusOK, f.do(t, "GET", "/v1/concepts/amplitude/stats", host, nil, &stats))
	assert.Equal(t, int64(1), stats.Stats.Responses)
	assert.Equal(t, 1.0, stats.Accuracy)

	var dwell struct {
		TimeSpent int64 `json:"timeSpent"`
	}
	require.Equal(t, http.StatusOK, f.do(t, "GET", "/v1/modules/trigonometry/submodules/waves/dwell", host, nil, &dwell))
	assert.Equal(t, int64(1200), dwell.TimeSpent)

	// no Mongo-backed history in this fixture
	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, "GET", "/v1/students/stu-1/progress", host, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, f.do(t, "GET", "/v1/students/stu-1/progress", learner, nil, nil))
}

func TestRouter_CompletionLifecycle(t *testing.T) {
	f := newAPI(t)
	learner := f.learnerToken(t, f.hostToken(t))

	assert.Equal(t, http.StatusNotFound, f.do(t, "GET", "/v1/completion", learner, nil, nil))

	var snap model.CompletionSession
	require.Equal(t, http.StatusOK, f.do(t, "POST", "/v1/completion", learner,
		model.StartCompletionRequest{ModuleID: "trigonometry", SubmoduleID: "waves"}, &snap))

	ctrl, ok := f.lessons.Completion("stu-1")
	require.True(t, ok)
	select {
	case <-ctrl.SyncDone():
	case <-time.After(5 * time.Second):
		t.Fatal("completion sync did not finish")
	}

	require.Equal(t, http.StatusOK, f.do(t, "POST", "/v1/completion/return", learner, nil, &snap))
	assert.Equal(t, model.CompletionUserReturned, snap.State)
	assert.True(t, snap.UserInitiatedReturn)

	assert.Equal(t, http.StatusNoContent, f.do(t, "DELETE", "/v1/completion", learner, nil, nil))
	assert.Equal(t, http.StatusNotFound, f.do(t, "POST", "/v1/completion/return", learner, nil, nil))
}

func TestRouter_Auth(t *testing.T) {
	f := newAPI(t)
	host := f.hostToken(t)
	learner := f.learnerToken(t, host)

	assert.Equal(t, http.StatusUnauthorized, f.do(t, "POST", "/v1/auth/login", "", model.LoginRequest{Username: "admin", Password: "nope"}, nil))
	assert.Equal(t, http.StatusUnauthorized, f.do(t, "POST", "/v1/slides/sessions", "", model.MountSlideRequest{SlideID: "s"}, nil))
	assert.Equal(t, http.StatusUnauthorized, f.do(t, "POST", "/v1/slides/sessions", host, model.MountSlideRequest{SlideID: "s"}, nil))
	assert.Equal(t, http.StatusUnauthorized, f.do(t, "GET", "/v1/concepts/amplitude/stats", learner, nil, nil))
	assert.Equal(t, http.StatusBadRequest, f.do(t, "POST", "/v1/auth/learners/token", host, model.LearnerTokenRequest{}, nil))

	// beacon-style unmount with the token in the query
	var mounted model.MountSlideResponse
	require.Equal(t, http.StatusCreated, f.do(t, "POST", "/v1/slides/sessions", learner, model.MountSlideRequest{SlideID: "s"}, &mounted))
	assert.Equal(t, http.StatusOK, f.do(t, "DELETE", "/v1/slides/sessions/"+mounted.SessionID+"?token="+learner, "", nil, nil))
}

func TestRouter_CORSAndHealth(t *testing.T) {
	f := newAPI(t)

	req, err := http.NewRequest("OPTIONS", f.srv.URL+"/v1/slides/sessions", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var health map[string]string
	require.Equal(t, http.StatusOK, f.do(t, "GET", "/health", "", nil, &health))
	assert.Equal(t, "ok", health["status"])
}

func TestCORS_TrustedOrigins(t *testing.T) {
	h := corsMiddleware(CORSConfig{AllowedOrigins: []string{"https://school.example"}})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://school.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://school.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
