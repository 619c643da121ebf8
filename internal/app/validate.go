package app

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"pulsechat/pkg/config"
	"pulsechat/pkg/logger"
)

// validateConfig checks the effective config and fills dev-friendly
// defaults where production values are missing.
func validateConfig(eff *config.Effective) error {
	if eff.Config == nil {
		return fmt.Errorf("nil config")
	}
	if eff.Addr == "" {
		eff.Addr = eff.Config.Addr()
	}
	if eff.DBPath == "" {
		eff.DBPath = "./.database"
	}
	if eff.Config.Security.RateLimit.RPS < 0 {
		return fmt.Errorf("rate limit rps must not be negative")
	}
	if len(eff.Config.Security.SigningKeys) == 0 {
		// ephemeral key: tokens do not survive a restart
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return fmt.Errorf("failed to generate dev signing key: %w", err)
		}
		eff.Config.Security.SigningKeys = []string{hex.EncodeToString(b)}
		logger.Warn("signing_keys_missing", "msg", "generated ephemeral dev key; set PULSECHAT_SIGNING_KEYS for production")
	}
	return nil
}
