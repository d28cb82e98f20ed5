package cliconfig

import (
	"testing"
	"time"

	"github.com/bft-labs/stagehand/pkg/lifecycle"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Name != "default" {
		t.Errorf("Name = %v, want default", cfg.Name)
	}
	if !cfg.AutoEmit {
		t.Error("AutoEmit = false, want true")
	}
	if cfg.HookTimeout != 0 {
		t.Errorf("HookTimeout = %v, want 0", cfg.HookTimeout)
	}
	if cfg.StartAttempts != 3 {
		t.Errorf("StartAttempts = %v, want 3", cfg.StartAttempts)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func(mut func(*Config)) Config {
		cfg := DefaultConfig()
		mut(&cfg)
		return cfg
	}

	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"defaults", valid(func(*Config) {}), false},
		{"empty name", valid(func(c *Config) { c.Name = "" }), true},
		{"negative timeout", valid(func(c *Config) { c.HookTimeout = -time.Second }), true},
		{"zero attempts", valid(func(c *Config) { c.StartAttempts = 0 }), true},
		{"zero retry interval", valid(func(c *Config) { c.RetryInterval = 0 }), true},
		{"qos too high", valid(func(c *Config) { c.MQTTQoS = 3 }), true},
		{"gate cpu above one", valid(func(c *Config) { c.GateCPU = 1.5 }), true},
		{"negative gate memory", valid(func(c *Config) { c.GateMemory = -0.1 }), true},
		{"gate thresholds", valid(func(c *Config) { c.GateCPU, c.GateMemory = 0.9, 0.8 }), false},
		{"qos zero", valid(func(c *Config) { c.MQTTQoS = 0 }), false},
		{"hook without name", valid(func(c *Config) {
			c.Hooks = []HookSpec{{Stage: lifecycle.StageStarting}}
		}), true},
		{"hook with bad stage", valid(func(c *Config) {
			c.Hooks = []HookSpec{{Stage: lifecycle.Stage(40), Name: "x"}}
		}), true},
		{"hook with negative delay", valid(func(c *Config) {
			c.Hooks = []HookSpec{{Stage: lifecycle.StageReady, Name: "x", Delay: -time.Second}}
		}), true},
		{"good hook", valid(func(c *Config) {
			c.Hooks = []HookSpec{{Stage: lifecycle.StageReady, Name: "x", Delay: time.Second}}
		}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
