package cliconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"STAGEHAND_NAME":           "api",
				"STAGEHAND_AUTO_EMIT":      "false",
				"STAGEHAND_HOOK_TIMEOUT":   "2s",
				"STAGEHAND_START_ATTEMPTS": "5",
				"STAGEHAND_MQTT_BROKER":    "tcp://broker:1883",
				"STAGEHAND_MQTT_QOS":       "0",
				"STAGEHAND_WATCH_CONFIG":   "1",
				"STAGEHAND_GATE_CPU":       "0.9",
			},
			changed: map[string]bool{},
			initial: Config{AutoEmit: true, MQTTQoS: 1},
			expected: Config{
				Name:          "api",
				AutoEmit:      false,
				HookTimeout:   2 * time.Second,
				StartAttempts: 5,
				MQTTBroker:    "tcp://broker:1883",
				MQTTQoS:       0,
				WatchConfig:   true,
				GateCPU:       0.9,
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"STAGEHAND_NAME":         "from-env",
				"STAGEHAND_HOOK_TIMEOUT": "9s",
			},
			changed: map[string]bool{"name": true},
			initial: Config{Name: "from-flag"},
			expected: Config{
				Name:        "from-flag",
				HookTimeout: 9 * time.Second,
			},
		},
		{
			name:    "returns error for invalid duration",
			envVars: map[string]string{"STAGEHAND_HOOK_TIMEOUT": "soon"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for invalid float",
			envVars: map[string]string{"STAGEHAND_GATE_MEMORY": "most"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for invalid int",
			envVars: map[string]string{"STAGEHAND_START_ATTEMPTS": "many"},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)

			if tt.wantErr {
				if err == nil {
					t.Error("ApplyEnvConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyEnvConfig() unexpected error: %v", err)
			}

			if cfg.Name != tt.expected.Name {
				t.Errorf("Name = %v, want %v", cfg.Name, tt.expected.Name)
			}
			if cfg.AutoEmit != tt.expected.AutoEmit {
				t.Errorf("AutoEmit = %v, want %v", cfg.AutoEmit, tt.expected.AutoEmit)
			}
			if cfg.HookTimeout != tt.expected.HookTimeout {
				t.Errorf("HookTimeout = %v, want %v", cfg.HookTimeout, tt.expected.HookTimeout)
			}
			if cfg.StartAttempts != tt.expected.StartAttempts {
				t.Errorf("StartAttempts = %v, want %v", cfg.StartAttempts, tt.expected.StartAttempts)
			}
			if cfg.MQTTBroker != tt.expected.MQTTBroker {
				t.Errorf("MQTTBroker = %v, want %v", cfg.MQTTBroker, tt.expected.MQTTBroker)
			}
			if cfg.MQTTQoS != tt.expected.MQTTQoS {
				t.Errorf("MQTTQoS = %v, want %v", cfg.MQTTQoS, tt.expected.MQTTQoS)
			}
			if cfg.WatchConfig != tt.expected.WatchConfig {
				t.Errorf("WatchConfig = %v, want %v", cfg.WatchConfig, tt.expected.WatchConfig)
			}
			if cfg.GateCPU != tt.expected.GateCPU {
				t.Errorf("GateCPU = %v, want %v", cfg.GateCPU, tt.expected.GateCPU)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("STAGEHAND_LOG_LEVEL=debug\n"), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("STAGEHAND_LOG_LEVEL", "")
	os.Unsetenv("STAGEHAND_LOG_LEVEL")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile() error = %v", err)
	}
	if got := os.Getenv("STAGEHAND_LOG_LEVEL"); got != "debug" {
		t.Errorf("STAGEHAND_LOG_LEVEL = %q, want debug", got)
	}
}

func TestLoadEnvFile_Missing(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("LoadEnvFile(missing) error = %v", err)
	}
	if err := LoadEnvFile(""); err != nil {
		t.Errorf("LoadEnvFile(\"\") error = %v", err)
	}
}
