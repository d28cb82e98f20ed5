package cliconfig

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bft-labs/stagehand/pkg/lifecycle"
)

// Config holds CLI configuration for stagehand.
type Config struct {
	Name        string
	AutoEmit    bool
	HookTimeout time.Duration
	LogLevel    string

	// ListenAddr serves /live, /ready and /metrics. Empty disables the server.
	ListenAddr string

	StartAttempts int
	RetryInterval time.Duration

	WatchConfig bool

	// GateCPU and GateMemory are usage fractions above which start is
	// refused. Zero disables the check.
	GateCPU    float64
	GateMemory float64

	// MQTTBroker enables the MQTT bridge when set.
	MQTTBroker      string
	MQTTClientID    string
	MQTTUsername    string
	MQTTPassword    string
	MQTTTopicPrefix string
	MQTTQoS         int

	Hooks []HookSpec
}

// HookSpec declares a demo hook: it sleeps for Delay and then succeeds,
// or fails when Fail is set.
type HookSpec struct {
	Stage lifecycle.Stage
	Name  string
	Delay time.Duration
	Fail  bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Name:            lifecycle.DefaultName,
		AutoEmit:        true,
		LogLevel:        "info",
		ListenAddr:      ":9090",
		StartAttempts:   3,
		RetryInterval:   500 * time.Millisecond,
		MQTTClientID:    "stagehand",
		MQTTTopicPrefix: "stagehand",
		MQTTQoS:         1,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	if c.HookTimeout < 0 {
		return fmt.Errorf("hook timeout must not be negative")
	}
	if c.StartAttempts < 1 {
		return fmt.Errorf("start attempts must be at least 1")
	}
	if c.RetryInterval <= 0 {
		return fmt.Errorf("retry interval must be positive")
	}
	if c.GateCPU < 0 || c.GateCPU > 1 {
		return fmt.Errorf("gate cpu must be between 0 and 1")
	}
	if c.GateMemory < 0 || c.GateMemory > 1 {
		return fmt.Errorf("gate memory must be between 0 and 1")
	}
	if c.MQTTQoS < 0 || c.MQTTQoS > 2 {
		return fmt.Errorf("mqtt qos must be 0, 1 or 2")
	}
	for i, h := range c.Hooks {
		if h.Name == "" {
			return fmt.Errorf("hooks[%d]: name is required", i)
		}
		if !h.Stage.Valid() {
			return fmt.Errorf("hooks[%d]: invalid stage", i)
		}
		if h.Delay < 0 {
			return fmt.Errorf("hooks[%d]: delay must not be negative", i)
		}
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setIntPtr sets an int from a pointer, so zero can be configured explicitly.
func (s *configSetter) setIntPtr(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setFloatPtr sets a float from a pointer, so zero can be configured explicitly.
func (s *configSetter) setFloatPtr(flag string, value *float64, dst *float64) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setFloatFromString parses a string to float64 and sets the destination.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = f
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination.
// Zero is accepted; negative values are left to Validate.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
