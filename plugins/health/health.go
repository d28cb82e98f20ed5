// Package health exposes lifecycle stages as liveness and readiness probes.
//
// A manager is ready only in the ready stage and alive until it reaches
// shutdown. Probes are served on /live and /ready by the healthcheck handler.
package health

import (
	"errors"
	"fmt"

	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/stagehand/pkg/lifecycle"
)

var (
	ErrNotReady = errors.New("health: not ready")
	ErrShutdown = errors.New("health: shut down")
)

// StageReporter is the part of a manager the probes need.
type StageReporter interface {
	Name() string
	Stage() lifecycle.Stage
}

// ReadinessCheck fails unless m is in the ready stage.
func ReadinessCheck(m StageReporter) healthcheck.Check {
	return func() error {
		if s := m.Stage(); s != lifecycle.StageReady {
			return fmt.Errorf("%w: %s is %s", ErrNotReady, m.Name(), s)
		}
		return nil
	}
}

// LivenessCheck fails once m has shut down.
func LivenessCheck(m StageReporter) healthcheck.Check {
	return func() error {
		if m.Stage() == lifecycle.StageShutdown {
			return fmt.Errorf("%w: %s", ErrShutdown, m.Name())
		}
		return nil
	}
}

// Register adds the probes for every manager to h.
func Register(h healthcheck.Handler, managers ...StageReporter) {
	for _, m := range managers {
		h.AddReadinessCheck(m.Name()+"-stage", ReadinessCheck(m))
		h.AddLivenessCheck(m.Name()+"-stage", LivenessCheck(m))
	}
}

// NewHandler returns a handler with probes for the given managers.
func NewHandler(managers ...StageReporter) healthcheck.Handler {
	h := healthcheck.NewHandler()
	Register(h, managers...)
	return h
}

// NewMetricsHandler is NewHandler with check results also exported to registry.
func NewMetricsHandler(registry prometheus.Registerer, namespace string, managers ...StageReporter) healthcheck.Handler {
	h := healthcheck.NewMetricsHandler(registry, namespace)
	Register(h, managers...)
	return h
}
