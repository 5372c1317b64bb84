package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lessonplayer/internal/model"
	"lessonplayer/internal/service"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PostWithoutHostIsDropped(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	assert.False(t, hub.Post("stu-1", model.HostMessage{Type: model.MsgShowSubmodules}))
}

func TestHub_DeliversInOrderToEveryHost(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	a := &Connection{StudentID: "stu-1", Send: make(chan []byte, 8), Hub: hub}
	b := &Connection{StudentID: "stu-1", Send: make(chan []byte, 8), Hub: hub}
	other := &Connection{StudentID: "stu-2", Send: make(chan []byte, 8), Hub: hub}
	hub.Register(a)
	hub.Register(b)
	hub.Register(other)
	require.Eventually(t, func() bool { return hub.Connected("stu-1") && hub.Connected("stu-2") }, time.Second, 5*time.Millisecond)

	n := service.NewHostNotifier("stu-1", nil, hub)
	n.NotifyCompletion(model.CompletionPayload{StudentID: "stu-1", SubmoduleID: "waves"})
	n.RequestViewChange()

	for _, conn := range []*Connection{a, b} {
		var first, second map[string]interface{}
		require.NoError(t, json.Unmarshal(<-conn.Send, &first))
		require.NoError(t, json.Unmarshal(<-conn.Send, &second))
		assert.Equal(t, "SUBMODULE_COMPLETED", first["type"])
		assert.Equal(t, "waves", first["payload"].(map[string]interface{})["submoduleId"])
		assert.Equal(t, "SHOW_SUBMODULES", second["type"])
		assert.NotContains(t, second, "payload")
	}
	assert.Empty(t, other.Send)
}

func TestHub_UnregisterClosesConnection(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	conn := &Connection{StudentID: "stu-1", Send: make(chan []byte, 1), Hub: hub}
	hub.Register(conn)
	hub.Unregister(conn)

	require.Eventually(t, func() bool { return !hub.Connected("stu-1") }, time.Second, 5*time.Millisecond)
	_, open := <-conn.Send
	assert.False(t, open)
}

func TestOriginChecker(t *testing.T) {
	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/v1/ws/host", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	anyOrigin := OriginChecker([]string{"*"})
	assert.True(t, anyOrigin(req("https://evil.example")))

	trusted := OriginChecker([]string{"https://school.example/", " https://LMS.example "})
	assert.True(t, trusted(req("https://school.example")))
	assert.True(t, trusted(req("https://lms.example")))
	assert.False(t, trusted(req("https://evil.example")))
	assert.True(t, trusted(req("")))

	assert.True(t, OriginChecker(nil)(req("https://evil.example")))
}

func TestHandler_HostReceivesMessages(t *testing.T) {
	auth := service.NewAuthService(service.AuthConfig{JWTSecret: "ws-secret"})
	hub := NewHub(nil)
	defer hub.Close()
	h := NewHandler(hub, auth, []string{"https://school.example"}, nil)

	srv := httptest.NewServer(http.HandlerFunc(h.HostWS))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(url+"?token=bogus", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, err := auth.GenerateLearnerToken("stu-1", "class-9")
	require.NoError(t, err)

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err = websocket.DefaultDialer.Dial(url+"?token="+token, header)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header = http.Header{"Origin": []string{"https://school.example"}}
	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+token, header)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Connected("stu-1") }, 2*time.Second, 10*time.Millisecond)
	require.True(t, hub.Post("stu-1", model.HostMessage{Type: model.MsgIsCompletionSlide, Payload: true}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg map[string]interface{}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "IS_COMPLETION_SLIDE", msg["type"])
	assert.Equal(t, true, msg["payload"])
}
