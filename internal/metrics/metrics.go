// Package metrics records session activity as Prometheus metrics through
// lifecycle hooks.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/facebook/flipper-sub000/pkg/domain"
)

const namespace = "inspector"

// Metrics holds the inspector collectors.
type Metrics struct {
	commands *prometheus.CounterVec
	duration *prometheus.HistogramVec
	errors   *prometheus.CounterVec
	pushes   *prometheus.CounterVec
	tracked  prometheus.Gauge
	sessions prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands handled, by method and outcome.",
		}, []string{"method", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Time spent handling a command on the owner goroutine.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Non-fatal errors reported to controllers, by kind.",
		}, []string{"kind"}),
		pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_events_total",
			Help:      "Push events sent to controllers.",
		}, []string{"event"}),
		tracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_objects",
			Help:      "Objects held by the tracker after the last command.",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Connected controller sessions.",
		}),
	}
	for _, c := range []prometheus.Collector{m.commands, m.duration, m.errors, m.pushes, m.tracked, m.sessions} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record metrics and then call next.
func (m *Metrics) Hooks(next domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnAttach: func(ctx context.Context, e *domain.EventBase) {
			m.sessions.Inc()
			if next.OnAttach != nil {
				next.OnAttach(ctx, e)
			}
		},
		OnDetach: func(ctx context.Context, e *domain.EventBase) {
			m.sessions.Dec()
			if next.OnDetach != nil {
				next.OnDetach(ctx, e)
			}
		},
		OnCommand: func(ctx context.Context, e *domain.CommandEvent) {
			outcome := "ok"
			if e.Err != nil {
				outcome = "error"
			}
			m.commands.WithLabelValues(e.Method, outcome).Inc()
			m.duration.WithLabelValues(e.Method).Observe(e.Duration.Seconds())
			m.tracked.Set(float64(e.Tracked))
			if next.OnCommand != nil {
				next.OnCommand(ctx, e)
			}
		},
		OnPush: func(ctx context.Context, e *domain.PushEvent) {
			m.pushes.WithLabelValues(e.Method).Inc()
			if next.OnPush != nil {
				next.OnPush(ctx, e)
			}
		},
		OnError: func(ctx context.Context, err error) {
			m.errors.WithLabelValues(Kind(err)).Inc()
			if next.OnError != nil {
				next.OnError(ctx, err)
			}
		},
	}
}

// Kind is the error label value: the wire error name.
func Kind(err error) string {
	return domain.NewErrorResponse(err, "").Name
}
