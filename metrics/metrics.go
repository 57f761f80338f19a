// Package metrics exports authentication counters to Prometheus.
package metrics

import (
	"context"

	"github.com/goliatone/go-authist"
	"github.com/prometheus/client_golang/prometheus"
)

const unknownCode = "Unknown"

// Collector counts failures by taxonomy code and activity events by type.
// It serves both as the failure hook and as an activity sink.
type Collector struct {
	failures *prometheus.CounterVec
	events   *prometheus.CounterVec
}

// New registers the counters with reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authist_failures_total",
			Help: "Authentication failures by error code.",
		}, []string{"code"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authist_events_total",
			Help: "Authentication activity events by type.",
		}, []string{"event"}),
	}

	for _, collector := range []prometheus.Collector{c.failures, c.events} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// OnFailure is an authist.FailureHook.
func (c *Collector) OnFailure(_ context.Context, err error) {
	code := unknownCode
	if ec, ok := authist.CodeOf(err); ok {
		code = string(ec)
	}
	c.failures.WithLabelValues(code).Inc()
}

// Record implements authist.ActivitySink.
func (c *Collector) Record(_ context.Context, event authist.ActivityEvent) error {
	c.events.WithLabelValues(string(event.EventType)).Inc()
	return nil
}

// Chain combines failure hooks into one. Nil hooks are skipped.
func Chain(hooks ...authist.FailureHook) authist.FailureHook {
	return func(ctx context.Context, err error) {
		for _, hook := range hooks {
			if hook != nil {
				hook(ctx, err)
			}
		}
	}
}

// Fanout records event on every sink and returns the first error.
func Fanout(sinks ...authist.ActivitySink) authist.ActivitySink {
	return authist.ActivitySinkFunc(func(ctx context.Context, event authist.ActivityEvent) error {
		var first error
		for _, sink := range sinks {
			if sink == nil {
				continue
			}
			if err := sink.Record(ctx, event); err != nil && first == nil {
				first = err
			}
		}
		return first
	})
}
