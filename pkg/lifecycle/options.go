package lifecycle

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/bft-labs/stagehand/pkg/events"
	"github.com/bft-labs/stagehand/pkg/log"
)

// DefaultName is used when no name is configured.
const DefaultName = "default"

// Option configures a DefaultManager.
type Option func(*options)

type options struct {
	name         string
	autoEmit     bool
	timeout      time.Duration
	logger       log.Logger
	observers    []Observer
	tracer       trace.Tracer
	eventHandler events.ErrorHandler
}

func defaultOptions() options {
	return options{
		name:     DefaultName,
		autoEmit: true,
		logger:   log.NewNoopLogger(),
	}
}

// WithName sets the manager name used for logging, metrics and container
// registration. Empty names are ignored.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithAutoEmitEvents controls whether every committed transition emits
// "lifecycle:<stage>" on the bus. Enabled by default.
func WithAutoEmitEvents(enabled bool) Option {
	return func(o *options) {
		o.autoEmit = enabled
	}
}

// WithTimeout bounds how long each hook is waited for. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d < 0 {
			d = 0
		}
		o.timeout = d
	}
}

// WithLogger sets the logger. If not provided, nothing is logged.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver adds an observer. May be given more than once.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// WithTracer sets the tracer used for one span per transition.
// The default is a no-op tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithEventErrorHandler sets where failures of event listeners are reported.
// By default they are logged.
func WithEventErrorHandler(h events.ErrorHandler) Option {
	return func(o *options) {
		o.eventHandler = h
	}
}
