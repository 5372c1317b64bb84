// Package metrics exposes prometheus collectors for slide tracking and the
// completion lifecycle. A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lessonplayer"

type Metrics struct {
	SlidesFinalized       *prometheus.CounterVec
	SaveFailures          prometheus.Counter
	SaveDuration          prometheus.Histogram
	CompletionTransitions *prometheus.CounterVec
	HostMessages          *prometheus.CounterVec
}

// New registers the collectors on reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SlidesFinalized: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slides_finalized_total",
			Help:      "Finalized slide sessions by persistence outcome.",
		}, []string{"outcome"}),
		SaveFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interaction_save_failures_total",
			Help:      "Slide interaction saves that returned an error or panicked.",
		}),
		SaveDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "interaction_save_duration_seconds",
			Help:      "Time spent in the interaction saver.",
			Buckets:   prometheus.DefBuckets,
		}),
		CompletionTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_transitions_total",
			Help:      "Completion controller state entries.",
		}, []string{"state"}),
		HostMessages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "host_messages_total",
			Help:      "Messages posted to the embedding host by type and delivery.",
		}, []string{"type", "delivery"}),
	}
}

func (m *Metrics) SlideFinalized(persisted bool) {
	if m == nil {
		return
	}
	outcome := "skipped"
	if persisted {
		outcome = "persisted"
	}
	m.SlidesFinalized.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SaveFailed() {
	if m == nil {
		return
	}
	m.SaveFailures.Inc()
}

func (m *Metrics) ObserveSave(seconds float64) {
	if m == nil {
		return
	}
	m.SaveDuration.Observe(seconds)
}

func (m *Metrics) CompletionEntered(state string) {
	if m == nil {
		return
	}
	m.CompletionTransitions.WithLabelValues(state).Inc()
}

func (m *Metrics) HostMessage(msgType string, delivered bool) {
	if m == nil {
		return
	}
	delivery := "dropped"
	if delivered {
		delivery = "delivered"
	}
	m.HostMessages.WithLabelValues(msgType, delivery).Inc()
}
