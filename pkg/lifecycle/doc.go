// Package lifecycle drives a component through a fixed sequence of stages
// and runs the hooks bound to each stage.
//
// # Stages
//
//	uninitialized -> initializing -> initialized -> starting -> started
//	  -> ready -> stopping -> stopped -> shutting-down -> shutdown
//
// The full adjacency table, including the backward edges used for
// rollback, is available through IsValidTransition and AllowedTransitions.
// shutdown is terminal.
//
// # Usage
//
//	m := lifecycle.NewManager(
//	    lifecycle.WithName("api"),
//	    lifecycle.WithTimeout(5*time.Second),
//	    lifecycle.WithLogger(logger),
//	)
//
//	m.On(lifecycle.StageStarting, lifecycle.HookFunc(func(ctx context.Context) error {
//	    return db.Ping(ctx)
//	}))
//
//	if err := m.Initialize(ctx); err != nil {
//	    return err
//	}
//	if err := m.Start(ctx); err != nil {
//	    var hookErr *lifecycle.HookError
//	    if errors.As(err, &hookErr) && hookErr.Timeout() {
//	        // a hook on hookErr.Stage did not finish in time
//	    }
//	    return err
//	}
//
// # Transitions
//
// Entering a stage commits it, emits "lifecycle:<stage>" on the manager's
// bus when auto-emit is enabled, and then runs every hook for the stage
// concurrently. Each hook is raced against the configured timeout. The
// first failure rolls the stage back to where it was; the transition does
// not return until every hook has finished or lost its race. A timed-out
// hook is not cancelled.
//
// When a later step of Initialize, Start, Stop or Shutdown fails, the
// manager is restored to the stage the operation started from, so the
// same operation can simply be called again. Retry does that with backoff.
//
// # Version
//
// Current version: 2.0.0
// Minimum compatible version: 2.0.0
//
// See version.go for version constants that can be used programmatically.
package lifecycle
