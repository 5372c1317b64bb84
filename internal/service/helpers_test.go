package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"lessonplayer/internal/model"

	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type recordingSaver struct {
	mu    sync.Mutex
	err   error
	calls []model.SlideInteractionData
}

func (s *recordingSaver) SaveInteractionData(_ context.Context, moduleID, submoduleID string, data model.SlideInteractionData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data.ModuleID = moduleID
	data.SubmoduleID = submoduleID
	s.calls = append(s.calls, data)
	return s.err
}

func (s *recordingSaver) saved() []model.SlideInteractionData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.SlideInteractionData(nil), s.calls...)
}

type recordingChannel struct {
	mu       sync.Mutex
	student  []string
	messages []model.HostMessage
}

func (c *recordingChannel) Post(studentID string, msg model.HostMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.student = append(c.student, studentID)
	c.messages = append(c.messages, msg)
	return true
}

func (c *recordingChannel) types() []model.HostMessageType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.HostMessageType, 0, len(c.messages))
	for _, m := range c.messages {
		out = append(out, m.Type)
	}
	return out
}

func (c *recordingChannel) count(t model.HostMessageType) int {
	n := 0
	for _, got := range c.types() {
		if got == t {
			n++
		}
	}
	return n
}

func (c *recordingChannel) find(t model.HostMessageType) (model.HostMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.messages {
		if m.Type == t {
			return m, true
		}
	}
	return model.HostMessage{}, false
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "timed out waiting")
	}
}
