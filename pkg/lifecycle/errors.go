package lifecycle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Sentinel errors. Match with errors.Is; the concrete types below carry details.
var (
	ErrInvalidStage      = errors.New("lifecycle: operation not allowed in current stage")
	ErrIllegalTransition = errors.New("lifecycle: illegal stage transition")
	ErrHookFailed        = errors.New("lifecycle: hook failed")
	ErrHookTimeout       = errors.New("lifecycle: hook timed out")
)

// PreconditionError is returned when an operation is called from the wrong stage.
// Nothing is changed when it is returned.
type PreconditionError struct {
	Op       string
	Required []Stage
	Current  Stage
}

func (e *PreconditionError) Error() string {
	names := lo.Map(e.Required, func(s Stage, _ int) string { return s.String() })
	return fmt.Sprintf("lifecycle: %s requires stage %s, current stage is %s (%s)",
		e.Op, strings.Join(names, " or "), e.Current, e.Current.Description())
}

func (e *PreconditionError) Is(target error) bool { return target == ErrInvalidStage }

// TransitionError reports a move the transition table does not allow.
type TransitionError struct {
	From Stage
	To   Stage
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("lifecycle: illegal transition %s -> %s (%s -> %s)",
		e.From, e.To, e.From.Description(), e.To.Description())
}

func (e *TransitionError) Is(target error) bool { return target == ErrIllegalTransition }

// HookError is returned when a hook errors, panics or exceeds the timeout.
// The stage has already been rolled back when the caller sees it.
type HookError struct {
	Stage Stage
	Err   error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("lifecycle: hook failed (%s): %v", e.Stage, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

func (e *HookError) Is(target error) bool { return target == ErrHookFailed }

// Timeout reports whether the hook lost the race against the timer.
func (e *HookError) Timeout() bool { return errors.Is(e.Err, ErrHookTimeout) }
