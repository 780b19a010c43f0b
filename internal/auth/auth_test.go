package auth

import "testing"

const secret = "test-secret"

func TestTokenRoundTrip(t *testing.T) {
	tok, err := MakeToken("user-1", secret)
	if err != nil {
		t.Fatalf("make token: %v", err)
	}
	uid, err := ParseToken(tok, secret)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if uid != "user-1" {
		t.Errorf("subject = %s, want user-1", uid)
	}
}

func TestTokenRejection(t *testing.T) {
	tok, _ := MakeToken("user-1", secret)

	if _, err := ParseToken(tok, "wrong-secret"); err == nil {
		t.Error("expected error for wrong secret")
	}
	if _, err := ParseToken("not.a.token", secret); err == nil {
		t.Error("expected error for garbage token")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "hunter22") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "hunter23") {
		t.Error("wrong password accepted")
	}
}

func TestRefreshTokenGeneration(t *testing.T) {
	raw, hash, err := GenerateRefreshToken()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(raw) != 64 { // 32 bytes hex
		t.Errorf("expected 64 char raw token, got %d", len(raw))
	}
	if HashRefreshToken(raw) != hash {
		t.Error("hash mismatch")
	}

	raw2, _, _ := GenerateRefreshToken()
	if raw == raw2 {
		t.Error("two generated tokens are identical")
	}
}
