package lifecycle

import (
	"testing"
)

func TestStage_String(t *testing.T) {
	tests := []struct {
		stage Stage
		want  string
	}{
		{StageUninitialized, "uninitialized"},
		{StageInitializing, "initializing"},
		{StageInitialized, "initialized"},
		{StageStarting, "starting"},
		{StageStarted, "started"},
		{StageReady, "ready"},
		{StageStopping, "stopping"},
		{StageStopped, "stopped"},
		{StageShuttingDown, "shutting-down"},
		{StageShutdown, "shutdown"},
		{Stage(99), "Stage(99)"},
	}

	for _, tt := range tests {
		if got := tt.stage.String(); got != tt.want {
			t.Errorf("Stage(%d).String() = %s, want %s", int(tt.stage), got, tt.want)
		}
	}
}

func TestStage_Description(t *testing.T) {
	if got := StageShuttingDown.Description(); got != "Shutting down" {
		t.Errorf("Description() = %q, want %q", got, "Shutting down")
	}
	if got := Stage(-1).Description(); got != "Unknown" {
		t.Errorf("Description() = %q, want Unknown", got)
	}
	for _, s := range Stages() {
		if s.Description() == "" {
			t.Errorf("%s has empty description", s)
		}
	}
}

func TestParseStage(t *testing.T) {
	for _, s := range Stages() {
		got, err := ParseStage(s.String())
		if err != nil {
			t.Fatalf("ParseStage(%q) error = %v", s, err)
		}
		if got != s {
			t.Errorf("ParseStage(%q) = %v", s, got)
		}
	}

	if _, err := ParseStage("shutting_down"); err == nil {
		t.Error("ParseStage accepted a non-canonical name")
	}
}

func TestStage_UnmarshalText(t *testing.T) {
	var s Stage
	if err := s.UnmarshalText([]byte("ready")); err != nil {
		t.Fatalf("UnmarshalText error = %v", err)
	}
	if s != StageReady {
		t.Errorf("stage = %v, want ready", s)
	}
	if err := s.UnmarshalText([]byte("nope")); err == nil {
		t.Error("UnmarshalText accepted an unknown name")
	}
	if _, err := Stage(42).MarshalText(); err == nil {
		t.Error("MarshalText accepted an invalid stage")
	}
}

func TestStages_Order(t *testing.T) {
	all := Stages()
	if len(all) != 10 {
		t.Fatalf("len(Stages()) = %d, want 10", len(all))
	}
	if all[0] != StageUninitialized || all[9] != StageShutdown {
		t.Errorf("Stages() = %v", all)
	}
}

func TestIsValidTransition_Table(t *testing.T) {
	valid := map[Stage][]Stage{
		StageUninitialized: {StageInitializing},
		StageInitializing:  {StageInitialized, StageUninitialized},
		StageInitialized:   {StageStarting, StageUninitialized},
		StageStarting:      {StageStarted, StageInitialized},
		StageStarted:       {StageReady, StageStopping, StageStarting},
		StageReady:         {StageStopping, StageStarted},
		StageStopping:      {StageStopped, StageReady},
		StageStopped:       {StageShuttingDown, StageStarting},
		StageShuttingDown:  {StageShutdown, StageStopped},
	}

	for _, from := range Stages() {
		for _, to := range Stages() {
			want := false
			for _, v := range valid[from] {
				if v == to {
					want = true
				}
			}
			if got := IsValidTransition(from, to); got != want {
				t.Errorf("IsValidTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestIsValidTransition_NoSelfLoops(t *testing.T) {
	for _, s := range Stages() {
		if IsValidTransition(s, s) {
			t.Errorf("%s -> %s should be invalid", s, s)
		}
	}
}

func TestShutdownIsTerminal(t *testing.T) {
	if n := len(AllowedTransitions(StageShutdown)); n != 0 {
		t.Errorf("shutdown has %d outgoing transitions", n)
	}
	if !StageShutdown.IsTerminal() {
		t.Error("shutdown.IsTerminal() = false")
	}
	if StageStopped.IsTerminal() {
		t.Error("stopped.IsTerminal() = true")
	}
}

func TestAllowedTransitions_ReturnsCopy(t *testing.T) {
	got := AllowedTransitions(StageStarted)
	got[0] = StageShutdown

	if IsValidTransition(StageStarted, StageShutdown) {
		t.Error("mutating the returned slice changed the table")
	}
	if !IsValidTransition(StageStarted, StageReady) {
		t.Error("started -> ready lost after mutation of copy")
	}
}

func TestEventName(t *testing.T) {
	if got := EventName(StageShuttingDown); got != "lifecycle:shutting-down" {
		t.Errorf("EventName = %q", got)
	}
}
