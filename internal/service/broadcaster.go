package service

import (
	"time"

	"lessonplayer/internal/metrics"
	"lessonplayer/internal/model"
)

// HostChannel delivers messages to a learner's embedding host (avoids import cycle
// with the transports). Post reports whether any host was listening.
type HostChannel interface {
	Post(studentID string, msg model.HostMessage) bool
}

// HostNotifier is the completion slide's view of the host application
type HostNotifier interface {
	SetCompletionSlide(active bool)
	NotifyCompletion(payload model.CompletionPayload)
	RequestViewChange()
}

// NotifierFactory binds a HostNotifier to one learner
type NotifierFactory func(studentID string) HostNotifier

// channelNotifier fans messages out to every configured channel
type channelNotifier struct {
	studentID string
	channels  []HostChannel
	metrics   *metrics.Metrics
}

// NewHostNotifier creates a notifier for studentID. With no channels every
// post is a no-op, like posting with no parent frame.
func NewHostNotifier(studentID string, m *metrics.Metrics, channels ...HostChannel) HostNotifier {
	return &channelNotifier{studentID: studentID, channels: channels, metrics: m}
}

// ChannelFactory returns a NotifierFactory over the given channels
func ChannelFactory(m *metrics.Metrics, channels ...HostChannel) NotifierFactory {
	return func(studentID string) HostNotifier {
		return NewHostNotifier(studentID, m, channels...)
	}
}

func (n *channelNotifier) SetCompletionSlide(active bool) {
	n.post(model.HostMessage{Type: model.MsgIsCompletionSlide, Payload: active})
}

func (n *channelNotifier) NotifyCompletion(payload model.CompletionPayload) {
	n.post(model.HostMessage{Type: model.MsgSubmoduleCompleted, Payload: payload})
}

func (n *channelNotifier) RequestViewChange() {
	n.post(model.HostMessage{Type: model.MsgShowSubmodules})
}

func (n *channelNotifier) post(msg model.HostMessage) {
	delivered := false
	for _, ch := range n.channels {
		if ch == nil {
			continue
		}
		if ch.Post(n.studentID, msg) {
			delivered = true
		}
	}
	n.metrics.HostMessage(string(msg.Type), delivered)
}

// isoTimestamp formats t the way browsers print Date.toISOString
func isoTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
