package cliconfig

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "STAGEHAND_"

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// Variables already set are kept. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// ApplyEnvConfig applies STAGEHAND_* environment variables to cfg.
// It respects flags that have been explicitly set (changed map).
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(key string) string { return os.Getenv(EnvPrefix + key) }

	s.setString("name", env("NAME"), &cfg.Name)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)
	s.setString("listen-addr", env("LISTEN_ADDR"), &cfg.ListenAddr)
	s.setString("mqtt-broker", env("MQTT_BROKER"), &cfg.MQTTBroker)
	s.setString("mqtt-client-id", env("MQTT_CLIENT_ID"), &cfg.MQTTClientID)
	s.setString("mqtt-username", env("MQTT_USERNAME"), &cfg.MQTTUsername)
	s.setString("mqtt-password", env("MQTT_PASSWORD"), &cfg.MQTTPassword)
	s.setString("mqtt-topic-prefix", env("MQTT_TOPIC_PREFIX"), &cfg.MQTTTopicPrefix)

	s.setBoolFromString("auto-emit", env("AUTO_EMIT"), &cfg.AutoEmit)
	s.setBoolFromString("watch-config", env("WATCH_CONFIG"), &cfg.WatchConfig)

	if err := s.setDuration("hook-timeout", env("HOOK_TIMEOUT"), &cfg.HookTimeout); err != nil {
		return err
	}
	if err := s.setDuration("retry-interval", env("RETRY_INTERVAL"), &cfg.RetryInterval); err != nil {
		return err
	}
	if err := s.setIntFromString("start-attempts", env("START_ATTEMPTS"), &cfg.StartAttempts); err != nil {
		return err
	}
	if err := s.setFloatFromString("gate-cpu", env("GATE_CPU"), &cfg.GateCPU); err != nil {
		return err
	}
	if err := s.setFloatFromString("gate-memory", env("GATE_MEMORY"), &cfg.GateMemory); err != nil {
		return err
	}
	if err := s.setIntFromString("mqtt-qos", env("MQTT_QOS"), &cfg.MQTTQoS); err != nil {
		return err
	}
	return nil
}
