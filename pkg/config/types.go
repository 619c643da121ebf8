package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct, loaded from YAML with env
// overrides applied on top (see LoadEnvOverrides).
type Config struct {
	Server struct {
		Address string `yaml:"address"`
		Port    int    `yaml:"port"`
		TLS     struct {
			CertFile string `yaml:"cert_file"`
			KeyFile  string `yaml:"key_file"`
		} `yaml:"tls"`
	} `yaml:"server"`
	Storage struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"storage"`
	Security struct {
		// SigningKeys sign session tokens; any listed key verifies.
		SigningKeys []string `yaml:"signing_keys"`
		TokenTTL    Duration `yaml:"token_ttl"`
		CORS        struct {
			AllowedOrigins []string `yaml:"allowed_origins"`
		} `yaml:"cors"`
		RateLimit struct {
			RPS   float64 `yaml:"rps"`
			Burst int     `yaml:"burst"`
		} `yaml:"rate_limit"`
		IPWhitelist []string `yaml:"ip_whitelist"`
	} `yaml:"security"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	Realtime struct {
		// SendBuffer is the per-handle outbound queue size; a handle whose
		// buffer is full has events dropped rather than stalling others.
		SendBuffer int      `yaml:"send_buffer"`
		TypingTTL  Duration `yaml:"typing_ttl"`
		ReadLimit  int64    `yaml:"read_limit"`
	} `yaml:"realtime"`
	Validation struct {
		MaxTextLen  int `yaml:"max_text_len"`
		MaxNameLen  int `yaml:"max_name_len"`
		MaxEmojiLen int `yaml:"max_emoji_len"`
	} `yaml:"validation"`
	Retention Retention `yaml:"retention"`
}

// Retention controls the cleared-thread sweeper.
type Retention struct {
	Enabled   bool     `yaml:"enabled"`
	Cron      string   `yaml:"cron"`
	MinAge    Duration `yaml:"min_age"`
	BatchSize int      `yaml:"batch_size"`
	DryRun    bool     `yaml:"dry_run"`
}

// Addr returns host:port for the HTTP server.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	p := c.Server.Port
	if p == 0 {
		p = 8080
	}
	return fmt.Sprintf("%s:%d", addr, p)
}

// Duration wraps time.Duration and parses YAML strings like "2s" or
// plain numbers (interpreted as seconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*d = Duration(0)
		return nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		*d = Duration(td)
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(f * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration value: %q", node.Value)
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }
