package event

import (
	"context"
	"encoding/json"
	"sync"

	"lessonplayer/internal/model"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	RoutingSlideSaved         = "slide.saved"
	RoutingSubmoduleCompleted = "submodule.completed"
)

// Channel is the subset of *amqp.Channel the publisher needs
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Envelope is the body of every published event
type Envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Publisher sends persisted slide records to a topic exchange
type Publisher struct {
	conn     *amqp.Connection
	channel  Channel
	exchange string
	log      *zap.Logger
	mu       sync.Mutex
}

// Dial connects to the broker and declares the topic exchange
func Dial(amqpURL, exchange string, log *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p := NewPublisher(ch, exchange, log)
	p.conn = conn
	return p, nil
}

// NewPublisher wraps an already open channel
func NewPublisher(ch Channel, exchange string, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{channel: ch, exchange: exchange, log: log}
}

func (p *Publisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	body, err := json.Marshal(Envelope{Type: eventType, Payload: payload})
	if err != nil {
		return err
	}

	p.log.Debug("Publishing event", zap.String("type", eventType), zap.Int("bytes", len(body)))

	// amqp channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel.PublishWithContext(ctx,
		p.exchange,
		eventType, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// SaveInteractionData publishes the record so downstream consumers can process it
func (p *Publisher) SaveInteractionData(ctx context.Context, moduleID, submoduleID string, data model.SlideInteractionData) error {
	return p.Publish(ctx, RoutingSlideSaved, data)
}

// SubmoduleCompleted announces a recorded completion
func (p *Publisher) SubmoduleCompleted(ctx context.Context, id model.CompletionIdentity) error {
	return p.Publish(ctx, RoutingSubmoduleCompleted, id)
}

func (p *Publisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
