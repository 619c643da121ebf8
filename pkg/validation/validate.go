package validation

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"
)

// Rules holds the configurable limits applied to user-supplied input.
// They are set once at startup from the effective config.
type Rules struct {
	MaxTextLen  int
	MaxNameLen  int
	MaxEmojiLen int
}

var (
	rulesMu sync.RWMutex
	rules   = Rules{MaxTextLen: 4096, MaxNameLen: 128, MaxEmojiLen: 32}
)

// SetRules installs the global validation rules. Zero fields keep their
// defaults.
func SetRules(r Rules) {
	rulesMu.Lock()
	defer rulesMu.Unlock()
	if r.MaxTextLen > 0 {
		rules.MaxTextLen = r.MaxTextLen
	}
	if r.MaxNameLen > 0 {
		rules.MaxNameLen = r.MaxNameLen
	}
	if r.MaxEmojiLen > 0 {
		rules.MaxEmojiLen = r.MaxEmojiLen
	}
}

func current() Rules {
	rulesMu.RLock()
	defer rulesMu.RUnlock()
	return rules
}

// ValidateMessageText checks message body constraints: non-empty after
// trimming and within the configured byte limit.
func ValidateMessageText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("message text required")
	}
	if max := current().MaxTextLen; len(text) > max {
		return fmt.Errorf("message text exceeds %d bytes", max)
	}
	return nil
}

// ValidateUserID checks an opaque identity value supplied by a client.
func ValidateUserID(id string) error {
	if id == "" {
		return fmt.Errorf("user id required")
	}
	if len(id) > 128 {
		return fmt.Errorf("user id too long")
	}
	return nil
}

// ValidateEmoji checks a reaction emoji: non-empty, valid UTF-8 and
// within the configured limit.
func ValidateEmoji(emoji string) error {
	if emoji == "" {
		return fmt.Errorf("emoji required")
	}
	if !utf8.ValidString(emoji) {
		return fmt.Errorf("emoji is not valid utf-8")
	}
	if max := current().MaxEmojiLen; len(emoji) > max {
		return fmt.Errorf("emoji exceeds %d bytes", max)
	}
	return nil
}

// ValidateName checks a display name.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name required")
	}
	if max := current().MaxNameLen; len(name) > max {
		return fmt.Errorf("name exceeds %d bytes", max)
	}
	return nil
}
