package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
server:
  address: 127.0.0.1
  port: 9090
storage:
  db_path: /tmp/pc-test
security:
  signing_keys:
    - k1
    - k2
  token_ttl: 24h
  rate_limit:
    rps: 5
    burst: 10
realtime:
  send_buffer: 128
  typing_ttl: 2s
retention:
  enabled: true
  cron: "0 3 * * *"
  min_age: 720h
`

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr() != "127.0.0.1:9090" {
		t.Fatalf("addr: %s", cfg.Addr())
	}
	if cfg.Storage.DBPath != "/tmp/pc-test" {
		t.Fatalf("db path: %s", cfg.Storage.DBPath)
	}
	if len(cfg.Security.SigningKeys) != 2 {
		t.Fatalf("signing keys: %v", cfg.Security.SigningKeys)
	}
	if cfg.Security.TokenTTL.Duration() != 24*time.Hour {
		t.Fatalf("token ttl: %v", cfg.Security.TokenTTL.Duration())
	}
	if cfg.Realtime.TypingTTL.Duration() != 2*time.Second {
		t.Fatalf("typing ttl: %v", cfg.Realtime.TypingTTL.Duration())
	}
	if !cfg.Retention.Enabled || cfg.Retention.MinAge.Duration() != 720*time.Hour {
		t.Fatalf("retention: %+v", cfg.Retention)
	}
}

func TestDurationAcceptsBareSeconds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("realtime:\n  typing_ttl: 2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Realtime.TypingTTL.Duration() != 2*time.Second {
		t.Fatalf("bare number not read as seconds: %v", cfg.Realtime.TypingTTL.Duration())
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PULSECHAT_ADDR", "0.0.0.0:7070")
	t.Setenv("PULSECHAT_DB_PATH", "/tmp/env-db")
	t.Setenv("PULSECHAT_SIGNING_KEYS", "a, b ,c")
	t.Setenv("PULSECHAT_RATE_RPS", "2.5")

	cfg := &Config{}
	if !LoadEnvOverrides(cfg) {
		t.Fatalf("env not detected")
	}
	if cfg.Addr() != "0.0.0.0:7070" {
		t.Fatalf("addr: %s", cfg.Addr())
	}
	if cfg.Storage.DBPath != "/tmp/env-db" {
		t.Fatalf("db path: %s", cfg.Storage.DBPath)
	}
	if len(cfg.Security.SigningKeys) != 3 || cfg.Security.SigningKeys[1] != "b" {
		t.Fatalf("keys: %v", cfg.Security.SigningKeys)
	}
	if cfg.Security.RateLimit.RPS != 2.5 {
		t.Fatalf("rps: %v", cfg.Security.RateLimit.RPS)
	}
}

func TestLoadEffective_MissingFileNotFatal(t *testing.T) {
	cfg, _, err := LoadEffective(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file must not be fatal: %v", err)
	}
	if cfg.Addr() != "0.0.0.0:8080" {
		t.Fatalf("defaults missing: %s", cfg.Addr())
	}
}

func TestSigningKeyRuntime(t *testing.T) {
	SetRuntime(&RuntimeConfig{SigningKeys: []string{"k1", "k2"}})
	defer SetRuntime(nil)
	keys := GetSigningKeys()
	if len(keys) != 2 || keys[0] != "k1" {
		t.Fatalf("keys: %v", keys)
	}
	// returned slice is a copy
	keys[0] = "mutated"
	if GetSigningKeys()[0] != "k1" {
		t.Fatalf("runtime keys mutated through copy")
	}
}
