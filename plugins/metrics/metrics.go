// Package metrics exports lifecycle activity as Prometheus metrics.
//
// One Metrics value owns the collectors; each manager gets its own Observer
// view so several managers can share a registry:
//
//	mx := metrics.New(metrics.DefaultConfig())
//	api := lifecycle.NewManager(lifecycle.WithName("api"),
//	    lifecycle.WithObserver(mx.Observer("api")))
//	http.Handle("/metrics", mx.Handler())
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/stagehand/pkg/lifecycle"
)

// Config holds the configuration for metrics.
type Config struct {
	// Namespace prefixes every metric name.
	Namespace string

	// Registry receives the collectors. A fresh registry is created when nil.
	Registry *prometheus.Registry
}

// DefaultConfig returns a default metrics configuration.
func DefaultConfig() Config {
	return Config{Namespace: "stagehand"}
}

// Metrics holds the lifecycle collectors.
type Metrics struct {
	Registry *prometheus.Registry

	Transitions  *prometheus.CounterVec
	Rollbacks    *prometheus.CounterVec
	HookDuration *prometheus.HistogramVec
	HookFailures *prometheus.CounterVec
	CurrentStage *prometheus.GaugeVec
}

// New creates and registers the collectors.
func New(cfg Config) *Metrics {
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,

		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "transitions_total",
				Help:      "Committed stage transitions",
			},
			[]string{"manager", "from", "to"},
		),

		Rollbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "rollbacks_total",
				Help:      "Stage rollbacks, labelled by the stage that was abandoned",
			},
			[]string{"manager", "stage"},
		),

		HookDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "hook_duration_seconds",
				Help:      "Time spent waiting on each hook",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"manager", "stage"},
		),

		HookFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "hook_failures_total",
				Help:      "Hooks that errored, panicked or timed out",
			},
			[]string{"manager", "stage", "kind"},
		),

		CurrentStage: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "stage",
				Help:      "1 for the stage each manager is currently in, 0 otherwise",
			},
			[]string{"manager", "stage"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// Observer returns a lifecycle.Observer recording under the given manager name.
func (m *Metrics) Observer(manager string) lifecycle.Observer {
	o := &observer{m: m, manager: manager}
	o.setStage(lifecycle.StageUninitialized)
	return o
}

type observer struct {
	m       *Metrics
	manager string
}

func (o *observer) OnStageChange(previous, current lifecycle.Stage) {
	o.m.Transitions.WithLabelValues(o.manager, previous.String(), current.String()).Inc()
	o.setStage(current)
}

func (o *observer) OnHookComplete(stage lifecycle.Stage, d time.Duration, err error) {
	o.m.HookDuration.WithLabelValues(o.manager, stage.String()).Observe(d.Seconds())
	if err == nil {
		return
	}
	kind := "error"
	if errors.Is(err, lifecycle.ErrHookTimeout) {
		kind = "timeout"
	}
	o.m.HookFailures.WithLabelValues(o.manager, stage.String(), kind).Inc()
}

func (o *observer) OnRollback(from, to lifecycle.Stage, err error) {
	o.m.Rollbacks.WithLabelValues(o.manager, from.String()).Inc()
	o.setStage(to)
}

func (o *observer) setStage(current lifecycle.Stage) {
	for _, s := range lifecycle.Stages() {
		v := 0.0
		if s == current {
			v = 1
		}
		o.m.CurrentStage.WithLabelValues(o.manager, s.String()).Set(v)
	}
}
