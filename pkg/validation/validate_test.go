package validation

import (
	"strings"
	"testing"
)

func TestValidateMessageText(t *testing.T) {
	if err := ValidateMessageText("hello"); err != nil {
		t.Fatalf("valid text rejected: %v", err)
	}
	if err := ValidateMessageText("   "); err == nil {
		t.Fatalf("whitespace-only text accepted")
	}
	if err := ValidateMessageText(strings.Repeat("x", 5000)); err == nil {
		t.Fatalf("oversized text accepted")
	}
}

func TestValidateEmoji(t *testing.T) {
	if err := ValidateEmoji("👍"); err != nil {
		t.Fatalf("emoji rejected: %v", err)
	}
	if err := ValidateEmoji(""); err == nil {
		t.Fatalf("empty emoji accepted")
	}
	if err := ValidateEmoji(string([]byte{0xff, 0xfe})); err == nil {
		t.Fatalf("invalid utf-8 accepted")
	}
}

func TestSetRulesOverrides(t *testing.T) {
	SetRules(Rules{MaxTextLen: 10})
	defer SetRules(Rules{MaxTextLen: 4096, MaxNameLen: 128, MaxEmojiLen: 32})
	if err := ValidateMessageText(strings.Repeat("x", 11)); err == nil {
		t.Fatalf("override ignored")
	}
}
