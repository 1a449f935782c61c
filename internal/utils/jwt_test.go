package utils

import (
	"testing"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("secret", "user-1", true, 5)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	cl, err := ParseAccessToken("secret", tok.Token)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if cl.UserID != "user-1" || !cl.EmailVerified {
		t.Fatalf("claims = %+v", cl)
	}
	if cl.ExpiresAt.Unix() != tok.Exp.Unix() {
		t.Fatalf("exp = %v, want %v", cl.ExpiresAt, tok.Exp)
	}
}

func TestParseAccessTokenRejects(t *testing.T) {
	tok, err := NewAccessToken("secret", "user-1", false, 5)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	if _, err := ParseAccessToken("other", tok.Token); err != ErrInvalidAccessToken {
		t.Errorf("wrong key: err = %v", err)
	}
	expired, err := NewAccessToken("secret", "user-1", false, -1)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	if _, err := ParseAccessToken("secret", expired.Token); err != ErrInvalidAccessToken {
		t.Errorf("expired: err = %v", err)
	}
	if _, err := ParseAccessToken("secret", "not-a-jwt"); err != ErrInvalidAccessToken {
		t.Errorf("garbage: err = %v", err)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !VerifyPassword(hash, "hunter22") {
		t.Error("VerifyPassword rejected the right password")
	}
	if VerifyPassword(hash, "hunter23") {
		t.Error("VerifyPassword accepted the wrong password")
	}
}

func TestHashTokenIsStable(t *testing.T) {
	if HashToken("abc") != HashToken("abc") || HashToken("abc") == HashToken("abd") {
		t.Fatal("HashToken must be deterministic and collision free for distinct inputs")
	}
	if len(HashToken("abc")) != 64 {
		t.Fatalf("len = %d, want 64", len(HashToken("abc")))
	}
}
