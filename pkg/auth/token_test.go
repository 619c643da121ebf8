package auth

import (
	"strings"
	"testing"
	"time"

	"pulsechat/pkg/config"
)

func setKeys(t *testing.T, keys ...string) {
	t.Helper()
	config.SetRuntime(&config.RuntimeConfig{SigningKeys: keys})
	t.Cleanup(func() { config.SetRuntime(nil) })
}

func TestTokenRoundTrip(t *testing.T) {
	setKeys(t, "k1")

	tok, err := MintToken("alice", time.Hour)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	id, err := VerifyToken(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id != "alice" {
		t.Fatalf("wrong user: %s", id)
	}
}

func TestTokenExpiry(t *testing.T) {
	setKeys(t, "k1")

	tok, _ := MintToken("alice", -time.Minute)
	if _, err := VerifyToken(tok); err != ErrInvalidToken {
		t.Fatalf("expired token accepted: %v", err)
	}
}

func TestTokenTamper(t *testing.T) {
	setKeys(t, "k1")

	tok, _ := MintToken("alice", time.Hour)
	forged := strings.Replace(tok, "alice", "mallory", 1)
	if _, err := VerifyToken(forged); err == nil {
		t.Fatalf("forged token accepted")
	}
	if _, err := VerifyToken("garbage"); err == nil {
		t.Fatalf("garbage token accepted")
	}
	if _, err := VerifyToken(""); err == nil {
		t.Fatalf("empty token accepted")
	}
}

func TestTokenKeyRotation(t *testing.T) {
	setKeys(t, "old")
	tok, _ := MintToken("alice", time.Hour)

	// new key rotated in front; old key still verifies
	setKeys(t, "new", "old")
	if id, err := VerifyToken(tok); err != nil || id != "alice" {
		t.Fatalf("rotation broke live sessions: %v", err)
	}

	// old key dropped entirely
	setKeys(t, "new")
	if _, err := VerifyToken(tok); err == nil {
		t.Fatalf("token of removed key accepted")
	}
}

func TestBearerToken(t *testing.T) {
	if got := BearerToken("Bearer abc"); got != "abc" {
		t.Fatalf("got %q", got)
	}
	if got := BearerToken("bearer abc"); got != "abc" {
		t.Fatalf("case-insensitive scheme: got %q", got)
	}
	if got := BearerToken("Basic abc"); got != "" {
		t.Fatalf("non-bearer accepted: %q", got)
	}
}
