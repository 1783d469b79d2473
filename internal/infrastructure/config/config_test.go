package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
site:
  id: "test-bench"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  host: "127.0.0.1"
  port: 8090
playback:
  ack_safety_margin_ms: 750
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-bench" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-bench")
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}

	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}

	if cfg.Playback.AckSafetyMarginMS != 750 {
		t.Errorf("Playback.AckSafetyMarginMS = %d, want 750", cfg.Playback.AckSafetyMarginMS)
	}

	// Defaults fill in sections the file omits
	if cfg.WebSocket.Path != "/ws" {
		t.Errorf("WebSocket.Path = %q, want %q", cfg.WebSocket.Path, "/ws")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "empty site id",
			mutate:  func(c *Config) { c.Site.ID = "" },
			wantErr: true,
		},
		{
			name:    "empty database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "invalid qos",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name:    "invalid api port",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: true,
		},
		{
			name:    "negative ack margin",
			mutate:  func(c *Config) { c.Playback.AckSafetyMarginMS = -1 },
			wantErr: true,
		},
		{
			name: "max ack timeout below min",
			mutate: func(c *Config) {
				c.Playback.MinAckTimeoutMS = 2000
				c.Playback.MaxAckTimeoutMS = 1000
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("MOTIONCORE_DATABASE_PATH", "/override/path.db")
	t.Setenv("MOTIONCORE_MQTT_HOST", "broker.local")
	t.Setenv("MOTIONCORE_MQTT_USERNAME", "core")

	cfg := defaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Database.Path != "/override/path.db" {
		t.Errorf("Database.Path = %q, want override", cfg.Database.Path)
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want override", cfg.MQTT.Broker.Host)
	}
	if cfg.MQTT.Auth.Username != "core" {
		t.Errorf("MQTT.Auth.Username = %q, want override", cfg.MQTT.Auth.Username)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
	if cfg.MQTT.Broker.ClientID != "motioncore" {
		t.Errorf("ClientID = %q, want %q", cfg.MQTT.Broker.ClientID, "motioncore")
	}
	if cfg.Playback.AckSafetyMarginMS != 1000 {
		t.Errorf("AckSafetyMarginMS = %d, want 1000", cfg.Playback.AckSafetyMarginMS)
	}
}
