package session

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Turn outcomes.
const (
	OutcomeAnswered = "answered"
	OutcomeGreeted  = "greeted"
	OutcomeEmpty    = "empty"
	OutcomeError    = "error"
)

// Pipeline stages.
const (
	StageTranscribe = "transcribe"
	StageAgent      = "agent"
	StageSpeech     = "speech"
)

// Metrics are the session-level Prometheus collectors.
type Metrics struct {
	ActiveSessions prometheus.Gauge
	Turns          *prometheus.CounterVec
	StageDuration  *prometheus.HistogramVec
	ToolCalls      *prometheus.CounterVec
	AudioBytes     prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "finvox",
			Name:      "active_sessions",
			Help:      "Open voice stream connections.",
		}),
		Turns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finvox",
			Name:      "turns_total",
			Help:      "Audio frames handled, by outcome.",
		}, []string{"outcome"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "finvox",
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2, 4, 8, 16},
		}, []string{"stage"}),
		ToolCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finvox",
			Name:      "tool_calls_total",
			Help:      "Agent tool invocations, by tool and outcome.",
		}, []string{"tool", "outcome"}),
		AudioBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: "finvox",
			Name:      "audio_bytes_sent_total",
			Help:      "Synthesized audio bytes written to clients.",
		}),
	}
}

// ObserveTool records one tool call. Its signature matches agent.ToolObserver.
func (m *Metrics) ObserveTool(name string, _ time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ToolCalls.WithLabelValues(name, outcome).Inc()
}

func (m *Metrics) turn(outcome string) {
	if m != nil {
		m.Turns.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) stage(name string, start time.Time) {
	if m != nil {
		m.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}
}
