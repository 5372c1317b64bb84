// Package natsbus relays host messages over NATS for hosts that are not
// connected through the WebSocket hub.
package natsbus

import (
	"encoding/json"
	"fmt"
	"time"

	"lessonplayer/internal/model"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Publisher is the subset of *nats.Conn the notifier needs
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Notifier publishes host messages to <prefix>.<studentID>
type Notifier struct {
	pub    Publisher
	prefix string
	log    *zap.Logger
}

// Connect dials NATS with reconnects enabled
func Connect(url, name string, log *zap.Logger) (*nats.Conn, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return conn, nil
}

func NewNotifier(pub Publisher, prefix string, log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	if prefix == "" {
		prefix = "lessonplayer.host"
	}
	return &Notifier{pub: pub, prefix: prefix, log: log}
}

// Subject returns the subject a learner's host subscribes to
func (n *Notifier) Subject(studentID string) string {
	return n.prefix + "." + studentID
}

// Post implements service.HostChannel
func (n *Notifier) Post(studentID string, msg model.HostMessage) bool {
	if studentID == "" {
		return false
	}
	data, err := json.Marshal(msg)
	if err != nil {
		n.log.Error("Failed to encode host message", zap.String("type", string(msg.Type)), zap.Error(err))
		return false
	}
	if err := n.pub.Publish(n.Subject(studentID), data); err != nil {
		n.log.Warn("Failed to publish host message",
			zap.String("student_id", studentID),
			zap.String("type", string(msg.Type)),
			zap.Error(err),
		)
		return false
	}
	return true
}
