package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/stagehand/pkg/lifecycle"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Name          string `toml:"name"`
	AutoEmit      *bool  `toml:"auto_emit"`
	HookTimeout   string `toml:"hook_timeout"`
	LogLevel      string `toml:"log_level"`
	ListenAddr    string `toml:"listen_addr"`
	StartAttempts int    `toml:"start_attempts"`
	RetryInterval string `toml:"retry_interval"`
	WatchConfig   *bool  `toml:"watch_config"`

	Gate  FileGateConfig `toml:"gate"`
	MQTT  FileMQTTConfig `toml:"mqtt"`
	Hooks []FileHook     `toml:"hooks"`
}

// FileGateConfig is the [gate] table.
type FileGateConfig struct {
	CPU    *float64 `toml:"cpu"`
	Memory *float64 `toml:"memory"`
}

// FileMQTTConfig is the [mqtt] table.
type FileMQTTConfig struct {
	Broker      string `toml:"broker"`
	ClientID    string `toml:"client_id"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`
	TopicPrefix string `toml:"topic_prefix"`
	QoS         *int   `toml:"qos"`
}

// FileHook is one [[hooks]] entry.
type FileHook struct {
	Stage lifecycle.Stage `toml:"stage"`
	Name  string          `toml:"name"`
	Delay string          `toml:"delay"`
	Fail  bool            `toml:"fail"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// LoadHookTimeout reads only hook_timeout from the file at path. ok is false
// when the key is absent, so callers keep the timeout they already have.
func LoadHookTimeout(path string) (d time.Duration, ok bool, err error) {
	fc, err := LoadFileConfig(path)
	if err != nil {
		return 0, false, err
	}
	if fc.HookTimeout == "" {
		return 0, false, nil
	}
	d, err = time.ParseDuration(fc.HookTimeout)
	if err != nil {
		return 0, false, fmt.Errorf("parse hook_timeout: %w", err)
	}
	return d, true, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.stagehand/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".stagehand", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("name", fc.Name, &cfg.Name)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("listen-addr", fc.ListenAddr, &cfg.ListenAddr)
	s.setString("mqtt-broker", fc.MQTT.Broker, &cfg.MQTTBroker)
	s.setString("mqtt-client-id", fc.MQTT.ClientID, &cfg.MQTTClientID)
	s.setString("mqtt-username", fc.MQTT.Username, &cfg.MQTTUsername)
	s.setString("mqtt-password", fc.MQTT.Password, &cfg.MQTTPassword)
	s.setString("mqtt-topic-prefix", fc.MQTT.TopicPrefix, &cfg.MQTTTopicPrefix)

	s.setBool("auto-emit", fc.AutoEmit, &cfg.AutoEmit)
	s.setBool("watch-config", fc.WatchConfig, &cfg.WatchConfig)

	s.setInt("start-attempts", fc.StartAttempts, &cfg.StartAttempts)
	s.setIntPtr("mqtt-qos", fc.MQTT.QoS, &cfg.MQTTQoS)
	s.setFloatPtr("gate-cpu", fc.Gate.CPU, &cfg.GateCPU)
	s.setFloatPtr("gate-memory", fc.Gate.Memory, &cfg.GateMemory)

	if err := s.setDuration("hook-timeout", fc.HookTimeout, &cfg.HookTimeout); err != nil {
		return err
	}
	if err := s.setDuration("retry-interval", fc.RetryInterval, &cfg.RetryInterval); err != nil {
		return err
	}

	for i, h := range fc.Hooks {
		spec := HookSpec{Stage: h.Stage, Name: h.Name, Fail: h.Fail}
		if h.Delay != "" {
			d, err := time.ParseDuration(h.Delay)
			if err != nil {
				return fmt.Errorf("parse hooks[%d].delay: %w", i, err)
			}
			spec.Delay = d
		}
		cfg.Hooks = append(cfg.Hooks, spec)
	}

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
