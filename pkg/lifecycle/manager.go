package lifecycle

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/stagehand/pkg/events"
	"github.com/bft-labs/stagehand/pkg/log"
)

const tracerName = "github.com/bft-labs/stagehand/pkg/lifecycle"

type hookEntry struct {
	id   HookID
	hook Hook
}

// DefaultManager implements Manager.
//
// Operations are meant to be driven by one caller at a time. The mutex keeps
// stage reads and hook rollbacks consistent, it does not serialize callers.
type DefaultManager struct {
	mu        sync.RWMutex
	stage     Stage
	hooks     map[Stage][]hookEntry
	timeout   time.Duration
	container Container

	name     string
	autoEmit bool
	bus      *events.Bus
	logger   log.Logger
	observer Observer
	tracer   trace.Tracer
}

// NewManager creates a manager in the uninitialized stage.
func NewManager(opts ...Option) *DefaultManager {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	logger := log.With(o.logger, log.String("manager", o.name))
	busOpts := []events.Option{events.WithLogger(logger)}
	if o.eventHandler != nil {
		busOpts = append(busOpts, events.WithErrorHandler(o.eventHandler))
	}

	var observer Observer = nopObserver{}
	switch len(o.observers) {
	case 0:
	case 1:
		observer = o.observers[0]
	default:
		observer = MultiObserver(o.observers)
	}

	tracer := o.tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(tracerName)
	}

	return &DefaultManager{
		stage:    StageUninitialized,
		hooks:    make(map[Stage][]hookEntry),
		timeout:  o.timeout,
		name:     o.name,
		autoEmit: o.autoEmit,
		bus:      events.NewBus(busOpts...),
		logger:   logger,
		observer: observer,
		tracer:   tracer,
	}
}

// Name returns the manager name.
func (m *DefaultManager) Name() string { return m.name }

// AutoEmitEvents reports whether transitions are announced on the bus.
func (m *DefaultManager) AutoEmitEvents() bool { return m.autoEmit }

// Timeout returns the per-hook timeout. Zero means unbounded.
func (m *DefaultManager) Timeout() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.timeout
}

// SetTimeout changes the per-hook timeout for subsequent transitions.
func (m *DefaultManager) SetTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	m.mu.Lock()
	m.timeout = d
	m.mu.Unlock()
}

// On registers hook for stage and returns its handle.
func (m *DefaultManager) On(stage Stage, hook Hook) HookID {
	if hook == nil {
		return ""
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if isIdentityComparable(hook) {
		for _, e := range m.hooks[stage] {
			if isIdentityComparable(e.hook) && e.hook == hook {
				return e.id
			}
		}
	}
	id := HookID(uuid.NewString())
	m.hooks[stage] = append(m.hooks[stage], hookEntry{id: id, hook: hook})
	return id
}

// Off removes the hook registered under id. Stages left without hooks are dropped.
func (m *DefaultManager) Off(stage Stage, id HookID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.hooks[stage]
	_, idx, ok := lo.FindIndexOf(list, func(e hookEntry) bool { return e.id == id })
	if !ok {
		return false
	}
	next := append(append([]hookEntry{}, list[:idx]...), list[idx+1:]...)
	if len(next) == 0 {
		delete(m.hooks, stage)
	} else {
		m.hooks[stage] = next
	}
	return true
}

// HookCount returns the number of hooks registered for stage.
func (m *DefaultManager) HookCount(stage Stage) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.hooks[stage])
}

// AddEventListener subscribes l to event on the manager's bus.
func (m *DefaultManager) AddEventListener(event string, l events.Listener) events.ListenerID {
	return m.bus.On(event, l)
}

// RemoveEventListener removes a subscription made with AddEventListener.
func (m *DefaultManager) RemoveEventListener(event string, id events.ListenerID) bool {
	return m.bus.Off(event, id)
}

// Emit publishes an arbitrary event on the manager's bus.
func (m *DefaultManager) Emit(event string, args ...any) {
	m.bus.Emit(event, args...)
}

// Events exposes the manager's bus for introspection.
func (m *DefaultManager) Events() *events.Bus { return m.bus }

// Initialize moves uninitialized -> initializing -> initialized.
func (m *DefaultManager) Initialize(ctx context.Context) error {
	return m.run(ctx, "initialize", []Stage{StageUninitialized},
		StageInitializing, StageInitialized)
}

// Start moves initialized -> starting -> started -> ready.
func (m *DefaultManager) Start(ctx context.Context) error {
	return m.run(ctx, "start", []Stage{StageInitialized},
		StageStarting, StageStarted, StageReady)
}

// Stop moves ready or started -> stopping -> stopped.
func (m *DefaultManager) Stop(ctx context.Context) error {
	return m.run(ctx, "stop", []Stage{StageReady, StageStarted},
		StageStopping, StageStopped)
}

// Shutdown moves stopped -> shutting-down -> shutdown.
func (m *DefaultManager) Shutdown(ctx context.Context) error {
	return m.run(ctx, "shutdown", []Stage{StageStopped},
		StageShuttingDown, StageShutdown)
}

// Stage returns the current stage.
func (m *DefaultManager) Stage() Stage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stage
}

// IsReady reports whether the current stage is ready.
func (m *DefaultManager) IsReady() bool { return m.Stage() == StageReady }

// IsShutdown reports whether the current stage is shutdown.
func (m *DefaultManager) IsShutdown() bool { return m.Stage() == StageShutdown }

// StageDescription returns the description of the current stage.
func (m *DefaultManager) StageDescription() string { return m.Stage().Description() }

// Reset returns to uninitialized and drops every hook and listener.
func (m *DefaultManager) Reset() {
	m.mu.Lock()
	previous := m.stage
	m.stage = StageUninitialized
	m.hooks = make(map[Stage][]hookEntry)
	m.mu.Unlock()

	m.bus.RemoveAllListeners()
	m.logger.Info("manager reset", log.Stringer("from", previous))
}

// run checks the precondition and walks steps in order. A failure on a later
// step unwinds, through table edges, to the stage the operation began from.
func (m *DefaultManager) run(ctx context.Context, op string, required []Stage, steps ...Stage) error {
	origin := m.Stage()
	if !lo.Contains(required, origin) {
		return &PreconditionError{Op: op, Required: required, Current: origin}
	}

	for i, step := range steps {
		if err := m.transitionTo(ctx, step); err != nil {
			if i > 0 {
				m.unwind(origin, err)
			}
			return err
		}
	}
	return nil
}

// unwind walks back from the current stage to origin along table edges,
// announcing each step. No hooks run on the way back.
func (m *DefaultManager) unwind(origin Stage, cause error) {
	current := m.Stage()
	path := rollbackPath(current, origin)
	if path == nil && current != origin {
		m.logger.Error("no table path back to origin",
			log.Stringer("from", current),
			log.Stringer("to", origin),
		)
		return
	}

	for _, next := range path {
		m.mu.Lock()
		from := m.stage
		if !IsValidTransition(from, next) {
			m.mu.Unlock()
			m.logger.Error("unwind stopped on illegal edge",
				log.Stringer("from", from),
				log.Stringer("to", next),
			)
			return
		}
		m.stage = next
		m.mu.Unlock()

		m.logger.Warn("operation unwound",
			log.Stringer("from", from),
			log.Stringer("to", next),
			log.Err(cause),
		)
		m.observer.OnRollback(from, next, cause)
		if m.autoEmit {
			m.bus.Emit(EventName(next), StageChange{Stage: next, PreviousStage: from})
		}
	}
}

// rollbackPath returns the shortest sequence of stages leading from one stage
// to another through the transition table, excluding from. It returns nil
// when from equals to or no path exists.
func rollbackPath(from, to Stage) []Stage {
	if from == to {
		return nil
	}
	prev := map[Stage]Stage{from: from}
	queue := []Stage{from}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for _, n := range transitions[s] {
			if _, seen := prev[n]; seen {
				continue
			}
			prev[n] = s
			if n == to {
				var path []Stage
				for at := to; at != from; at = prev[at] {
					path = append([]Stage{at}, path...)
				}
				return path
			}
			queue = append(queue, n)
		}
	}
	return nil
}

// transitionTo commits target, announces it, then runs its hooks
// concurrently. The first hook failure rolls back to the previous stage
// exactly once; all hooks are joined before returning.
func (m *DefaultManager) transitionTo(ctx context.Context, target Stage) error {
	m.mu.Lock()
	previous := m.stage
	if !IsValidTransition(previous, target) {
		m.mu.Unlock()
		return &TransitionError{From: previous, To: target}
	}
	m.stage = target
	hooks := lo.Map(m.hooks[target], func(e hookEntry, _ int) Hook { return e.hook })
	timeout := m.timeout
	m.mu.Unlock()

	ctx, span := m.tracer.Start(ctx, "lifecycle.transition", trace.WithAttributes(
		attribute.String("lifecycle.manager", m.name),
		attribute.String("lifecycle.from", previous.String()),
		attribute.String("lifecycle.to", target.String()),
		attribute.Int("lifecycle.hooks", len(hooks)),
	))
	defer span.End()

	m.logger.Info("stage transition",
		log.Stringer("from", previous),
		log.Stringer("to", target),
	)
	m.observer.OnStageChange(previous, target)

	if m.autoEmit {
		m.bus.Emit(EventName(target), StageChange{Stage: target, PreviousStage: previous})
	}

	if len(hooks) == 0 {
		return nil
	}

	var (
		g        errgroup.Group
		rollback sync.Once
		failure  error
	)
	for _, h := range hooks {
		h := h
		g.Go(func() error {
			err := m.runHook(ctx, target, h, timeout)
			if err != nil {
				rollback.Do(func() {
					failure = err
					m.rollback(target, previous, err)
				})
			}
			return err
		})
	}

	// failure is the error the rollback reported; Wait's own choice may differ.
	if g.Wait() != nil {
		span.RecordError(failure)
		span.SetStatus(codes.Error, failure.Error())
		return failure
	}
	return nil
}

func (m *DefaultManager) rollback(from, to Stage, cause error) {
	m.mu.Lock()
	m.stage = to
	m.mu.Unlock()

	m.logger.Warn("stage rolled back",
		log.Stringer("from", from),
		log.Stringer("to", to),
		log.Err(cause),
	)
	m.observer.OnRollback(from, to, cause)
}

func (m *DefaultManager) runHook(ctx context.Context, stage Stage, h Hook, timeout time.Duration) error {
	start := time.Now()
	err := execute(ctx, h, timeout)
	m.observer.OnHookComplete(stage, time.Since(start), err)
	if err == nil {
		return nil
	}

	m.logger.Error("hook failed", log.Stringer("stage", stage), log.Err(err))
	return &HookError{Stage: stage, Err: err}
}

// execute runs h, racing it against the timeout and ctx. A hook that loses
// the race keeps running; its result is discarded.
func execute(ctx context.Context, h Hook, timeout time.Duration) error {
	if timeout <= 0 && ctx.Done() == nil {
		return safeRun(ctx, h)
	}

	done := make(chan error, 1)
	go func() {
		done <- safeRun(ctx, h)
	}()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case err := <-done:
		return err
	case <-expired:
		return fmt.Errorf("%w after %s", ErrHookTimeout, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func safeRun(ctx context.Context, h Hook) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = fmt.Errorf("panic: %w", e)
				return
			}
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.Run(ctx)
}

// isIdentityComparable reports whether hook values can be deduplicated by
// ==. Only pointers qualify; funcs are not comparable and struct values
// may hold uncomparable fields.
func isIdentityComparable(h Hook) bool {
	return reflect.TypeOf(h).Kind() == reflect.Pointer
}
