package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	logger := zerolog.Nop()
	path := filepath.Join(t.TempDir(), "chatpad", "config.yaml")

	cfg, resolved, err := Load(&logger, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if cfg.HeartbeatInterval != time.Minute || cfg.MessageIDLength != 24 || !cfg.Presence.FilterByGroup {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadReadsFileAndEnv(t *testing.T) {
	logger := zerolog.Nop()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `graphql_url: http://chat.example.com/graphql
heartbeat_interval: 30s
presence:
  filter_by_group: false
  expiry_missed_heartbeats: 3
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CHATPAD_MAX_IMAGE_BYTES", "1024")

	cfg, _, err := Load(&logger, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GraphQLURL != "http://chat.example.com/graphql" {
		t.Fatalf("graphql_url = %q", cfg.GraphQLURL)
	}
	if cfg.HeartbeatInterval != 30*time.Second {
		t.Fatalf("heartbeat_interval = %v", cfg.HeartbeatInterval)
	}
	if cfg.Presence.FilterByGroup || cfg.Presence.ExpiryMissedHeartbeats != 3 {
		t.Fatalf("presence = %+v", cfg.Presence)
	}
	if cfg.PresenceExpiry() != 90*time.Second {
		t.Fatalf("PresenceExpiry = %v", cfg.PresenceExpiry())
	}
	if cfg.MaxImageBytes != 1024 {
		t.Fatalf("max_image_bytes = %d, want env override", cfg.MaxImageBytes)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	logger := zerolog.Nop()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("message_id_length: 4\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, err := Load(&logger, path); err == nil {
		t.Fatalf("expected validation error for short message ids")
	}
}

func TestUpdateFromOverwritesNonZero(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{APIAddr: ":9999", ReconnectDelay: time.Second})

	if cfg.APIAddr != ":9999" || cfg.ReconnectDelay != time.Second {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.HeartbeatInterval != time.Minute {
		t.Fatalf("zero value must not overwrite: %v", cfg.HeartbeatInterval)
	}
}
