// Package metrics exposes Prometheus instrumentation for a running
// orchestrator, driven entirely by the same models.SessionEvent stream an
// orchestrator.Orchestrator already emits through its EventSink.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/haasonsaas/orchestrator/pkg/models"
)

// Metrics tracks planner turns, navigator dispatches, loop detections, and
// session outcomes.
type Metrics struct {
	SessionsStarted *prometheus.CounterVec
	SessionDuration *prometheus.HistogramVec
	PlannerTurns    prometheus.Counter
	NavigatorTurns  *prometheus.CounterVec
	LoopDetections  *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
	ActiveSessions  prometheus.Gauge
	NavigatorRounds *prometheus.HistogramVec
}

// New creates and registers all orchestrator metrics.
func New() *Metrics {
	return &Metrics{
		SessionsStarted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orchestrator_sessions_total",
				Help: "Total number of commands processed, by terminal outcome",
			},
			[]string{"outcome"},
		),
		SessionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orchestrator_session_duration_seconds",
				Help:    "Wall-clock duration of a ProcessCommand call",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"outcome"},
		),
		PlannerTurns: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "orchestrator_planner_turns_total",
				Help: "Total number of planner turns taken across all sessions",
			},
		),
		NavigatorTurns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orchestrator_navigator_turns_total",
				Help: "Total number of navigator dispatches, by tag",
			},
			[]string{"tag"},
		),
		LoopDetections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orchestrator_loop_detections_total",
				Help: "Total number of navigator loop detections, by tag",
			},
			[]string{"tag"},
		),
		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orchestrator_errors_total",
				Help: "Total number of session errors, by navigator tag (empty for planner-level errors)",
			},
			[]string{"tag"},
		),
		ActiveSessions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "orchestrator_active_sessions",
				Help: "Number of commands currently being processed",
			},
		),
		NavigatorRounds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orchestrator_navigator_rounds",
				Help:    "Inner-dialogue round number at which a navigator pair finished, by tag",
				Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
			},
			[]string{"tag"},
		),
	}
}

// Sink adapts Metrics into an orchestrator.EventSink-compatible func,
// observing every SessionEvent a command emits without the orchestrator
// package needing to know metrics exist.
func (m *Metrics) Sink(started time.Time) func(models.SessionEvent) {
	m.ActiveSessions.Inc()
	sessionDone := false
	return func(ev models.SessionEvent) {
		switch ev.Type {
		case models.SessionEventPlannerTurnStarted:
			m.PlannerTurns.Inc()
		case models.SessionEventNavigatorDispatched:
			m.NavigatorTurns.WithLabelValues(ev.Tag).Inc()
		case models.SessionEventNavigatorTurnFinished:
			m.NavigatorRounds.WithLabelValues(ev.Tag).Observe(float64(ev.NavigatorTurn))
		case models.SessionEventNavigatorLoopDetected:
			m.LoopDetections.WithLabelValues(ev.Tag).Inc()
		case models.SessionEventError:
			m.ErrorsTotal.WithLabelValues(ev.Tag).Inc()
		case models.SessionEventFinished, models.SessionEventCancelled, models.SessionEventTimedOut:
			if sessionDone {
				return
			}
			sessionDone = true
			outcome := outcomeFor(ev.Type)
			m.ActiveSessions.Dec()
			m.SessionsStarted.WithLabelValues(outcome).Inc()
			m.SessionDuration.WithLabelValues(outcome).Observe(time.Since(started).Seconds())
		}
	}
}

func outcomeFor(t models.SessionEventType) string {
	switch t {
	case models.SessionEventFinished:
		return "finished"
	case models.SessionEventCancelled:
		return "cancelled"
	case models.SessionEventTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}
