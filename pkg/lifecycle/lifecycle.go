package lifecycle

import (
	"context"
	"time"

	"github.com/bft-labs/stagehand/pkg/events"
)

// Hook is work bound to a stage. It runs concurrently with the other hooks
// of the same stage each time the manager enters that stage.
type Hook interface {
	Run(ctx context.Context) error
}

// HookFunc adapts an ordinary function to Hook.
type HookFunc func(ctx context.Context) error

// Run calls f(ctx).
func (f HookFunc) Run(ctx context.Context) error { return f(ctx) }

// HookID identifies a hook registration returned by On.
type HookID string

// Observer is notified of manager activity. Calls are made synchronously,
// hook completions from the goroutine that ran the hook.
type Observer interface {
	OnStageChange(previous, current Stage)
	OnHookComplete(stage Stage, d time.Duration, err error)
	OnRollback(from, to Stage, err error)
}

// MultiObserver fans notifications out to several observers.
type MultiObserver []Observer

func (m MultiObserver) OnStageChange(previous, current Stage) {
	for _, o := range m {
		o.OnStageChange(previous, current)
	}
}

func (m MultiObserver) OnHookComplete(stage Stage, d time.Duration, err error) {
	for _, o := range m {
		o.OnHookComplete(stage, d, err)
	}
}

func (m MultiObserver) OnRollback(from, to Stage, err error) {
	for _, o := range m {
		o.OnRollback(from, to, err)
	}
}

type nopObserver struct{}

func (nopObserver) OnStageChange(Stage, Stage)                {}
func (nopObserver) OnHookComplete(Stage, time.Duration, error) {}
func (nopObserver) OnRollback(Stage, Stage, error)            {}

// Manager drives a component through the lifecycle stages.
type Manager interface {
	// Name returns the manager's configured name.
	Name() string

	// On registers a hook for a stage. Registering the same comparable hook
	// value twice on one stage returns the original handle.
	On(stage Stage, hook Hook) HookID

	// Off removes a hook registration.
	Off(stage Stage, id HookID) bool

	AddEventListener(event string, l events.Listener) events.ListenerID
	RemoveEventListener(event string, id events.ListenerID) bool
	Emit(event string, args ...any)

	Initialize(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Shutdown(ctx context.Context) error

	Stage() Stage
	IsReady() bool
	IsShutdown() bool
	StageDescription() string

	// Reset returns to uninitialized and drops all hooks and listeners.
	// Configuration is kept.
	Reset()
}

var _ Manager = (*DefaultManager)(nil)
