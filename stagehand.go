// Package stagehand drives a component through a fixed set of lifecycle
// stages and notifies interested parties as it moves.
//
// Example usage:
//
//	m := stagehand.New(stagehand.WithName("api"), stagehand.WithTimeout(5*time.Second))
//	m.On(stagehand.StageStarting, stagehand.HookFunc(func(ctx context.Context) error {
//	    return db.Ping(ctx)
//	}))
//	m.AddEventListener(stagehand.EventName(stagehand.StageReady), func(args ...any) error {
//	    fmt.Println("ready")
//	    return nil
//	})
//	if err := m.Initialize(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	if err := m.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
package stagehand

import (
	"github.com/bft-labs/stagehand/pkg/lifecycle"
)

// Manager is the lifecycle manager contract.
type Manager = lifecycle.Manager

// DefaultManager is the standard Manager implementation.
type DefaultManager = lifecycle.DefaultManager

// Stage identifies a lifecycle stage.
type Stage = lifecycle.Stage

// StageChange is the payload of every lifecycle:<stage> event.
type StageChange = lifecycle.StageChange

// Hook is work run when the manager enters a stage.
type Hook = lifecycle.Hook

// HookFunc adapts a function to Hook.
type HookFunc = lifecycle.HookFunc

// HookID identifies a registered hook for Off.
type HookID = lifecycle.HookID

// Observer receives stage changes, hook results and rollbacks.
type Observer = lifecycle.Observer

// Option configures New.
type Option = lifecycle.Option

const (
	StageUninitialized = lifecycle.StageUninitialized
	StageInitializing  = lifecycle.StageInitializing
	StageInitialized   = lifecycle.StageInitialized
	StageStarting      = lifecycle.StageStarting
	StageStarted       = lifecycle.StageStarted
	StageReady         = lifecycle.StageReady
	StageStopping      = lifecycle.StageStopping
	StageStopped       = lifecycle.StageStopped
	StageShuttingDown  = lifecycle.StageShuttingDown
	StageShutdown      = lifecycle.StageShutdown
)

var (
	ErrInvalidStage      = lifecycle.ErrInvalidStage
	ErrIllegalTransition = lifecycle.ErrIllegalTransition
	ErrHookFailed        = lifecycle.ErrHookFailed
	ErrHookTimeout       = lifecycle.ErrHookTimeout
)

// New returns a manager in the uninitialized stage.
func New(opts ...Option) *DefaultManager {
	return lifecycle.NewManager(opts...)
}

// EventName returns the event emitted when a manager enters stage.
func EventName(stage Stage) string {
	return lifecycle.EventName(stage)
}

var (
	WithName              = lifecycle.WithName
	WithAutoEmitEvents    = lifecycle.WithAutoEmitEvents
	WithTimeout           = lifecycle.WithTimeout
	WithLogger            = lifecycle.WithLogger
	WithObserver          = lifecycle.WithObserver
	WithTracer            = lifecycle.WithTracer
	WithEventErrorHandler = lifecycle.WithEventErrorHandler
)
