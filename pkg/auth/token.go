package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"pulsechat/pkg/config"
)

// Session tokens are opaque bearer strings of the form
// <userID>.<expiryUnix>.<hex hmac-sha256(userID|expiry)>. They are
// minted with the first configured signing key and verified against all
// keys so key rotation does not invalidate live sessions.

// ErrInvalidToken is returned for malformed, forged or expired tokens.
var ErrInvalidToken = fmt.Errorf("invalid or expired token")

// DefaultTokenTTL applies when the config does not set one.
const DefaultTokenTTL = 30 * 24 * time.Hour

func sign(key, userID string, expiry int64) string {
	mac := hmac.New(sha256.New, []byte(key))
	fmt.Fprintf(mac, "%s|%d", userID, expiry)
	return hex.EncodeToString(mac.Sum(nil))
}

// MintToken issues a token for userID valid for ttl (DefaultTokenTTL
// when ttl is zero).
func MintToken(userID string, ttl time.Duration) (string, error) {
	keys := config.GetSigningKeys()
	if len(keys) == 0 {
		return "", fmt.Errorf("no signing keys configured")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	expiry := time.Now().Add(ttl).Unix()
	return fmt.Sprintf("%s.%d.%s", userID, expiry, sign(keys[0], userID, expiry)), nil
}

// VerifyToken checks the token against all configured signing keys and
// returns the embedded user ID.
func VerifyToken(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", ErrInvalidToken
	}
	userID := parts[0]
	expiry, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || userID == "" {
		return "", ErrInvalidToken
	}
	if time.Now().Unix() > expiry {
		return "", ErrInvalidToken
	}
	for _, k := range config.GetSigningKeys() {
		expected := sign(k, userID, expiry)
		if hmac.Equal([]byte(expected), []byte(parts[2])) {
			return userID, nil
		}
	}
	return "", ErrInvalidToken
}

// BearerToken extracts a bearer token from an Authorization header
// value, or returns "".
func BearerToken(header string) string {
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
