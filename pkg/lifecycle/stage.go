package lifecycle

import (
	"fmt"

	"github.com/samber/lo"
)

// Stage is one point in the fixed lifecycle sequence.
type Stage int

const (
	StageUninitialized Stage = iota
	StageInitializing
	StageInitialized
	StageStarting
	StageStarted
	StageReady
	StageStopping
	StageStopped
	StageShuttingDown
	StageShutdown
)

var stageNames = [...]string{
	StageUninitialized: "uninitialized",
	StageInitializing:  "initializing",
	StageInitialized:   "initialized",
	StageStarting:      "starting",
	StageStarted:       "started",
	StageReady:         "ready",
	StageStopping:      "stopping",
	StageStopped:       "stopped",
	StageShuttingDown:  "shutting-down",
	StageShutdown:      "shutdown",
}

var stageDescriptions = [...]string{
	StageUninitialized: "Not initialized",
	StageInitializing:  "Initializing",
	StageInitialized:   "Initialized",
	StageStarting:      "Starting",
	StageStarted:       "Started",
	StageReady:         "Ready",
	StageStopping:      "Stopping",
	StageStopped:       "Stopped",
	StageShuttingDown:  "Shutting down",
	StageShutdown:      "Shut down",
}

// transitions is the adjacency table shared by every manager. Never mutated.
var transitions = map[Stage][]Stage{
	StageUninitialized: {StageInitializing},
	StageInitializing:  {StageInitialized, StageUninitialized},
	StageInitialized:   {StageStarting, StageUninitialized},
	StageStarting:      {StageStarted, StageInitialized},
	StageStarted:       {StageReady, StageStopping, StageStarting},
	StageReady:         {StageStopping, StageStarted},
	StageStopping:      {StageStopped, StageReady},
	StageStopped:       {StageShuttingDown, StageStarting},
	StageShuttingDown:  {StageShutdown, StageStopped},
	StageShutdown:      {},
}

// Stages returns every stage in lifecycle order.
func Stages() []Stage {
	out := make([]Stage, len(stageNames))
	for i := range stageNames {
		out[i] = Stage(i)
	}
	return out
}

// Valid reports whether s is one of the defined stages.
func (s Stage) Valid() bool {
	return s >= StageUninitialized && s <= StageShutdown
}

// String returns the canonical stage name, e.g. "shutting-down".
func (s Stage) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// Description returns a human-readable label for diagnostics.
func (s Stage) Description() string {
	if !s.Valid() {
		return "Unknown"
	}
	return stageDescriptions[s]
}

// IsTerminal reports whether no transition leaves s.
func (s Stage) IsTerminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// MarshalText implements encoding.TextMarshaler.
func (s Stage) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("lifecycle: invalid stage %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Stage) UnmarshalText(text []byte) error {
	parsed, err := ParseStage(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStage returns the stage with the given canonical name.
func ParseStage(name string) (Stage, error) {
	_, idx, ok := lo.FindIndexOf(stageNames[:], func(n string) bool { return n == name })
	if !ok {
		return StageUninitialized, fmt.Errorf("lifecycle: unknown stage %q", name)
	}
	return Stage(idx), nil
}

// IsValidTransition reports whether the table allows moving from one stage to another.
func IsValidTransition(from, to Stage) bool {
	return lo.Contains(transitions[from], to)
}

// AllowedTransitions returns a copy of the targets reachable from a stage.
func AllowedTransitions(from Stage) []Stage {
	return append([]Stage{}, transitions[from]...)
}

// EventName is the bus topic announced when a manager commits to stage.
func EventName(stage Stage) string {
	return "lifecycle:" + stage.String()
}

// StageChange is the payload of the auto-emitted lifecycle events.
type StageChange struct {
	Stage         Stage `json:"stage"`
	PreviousStage Stage `json:"previousStage"`
}
