package auth

import (
	"testing"
	"time"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3nha-forte")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := VerifyPassword(hash, "s3nha-forte"); err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if err := VerifyPassword(hash, "errada"); err == nil {
		t.Fatal("wrong password accepted")
	}
}

func TestOperatorTokenRoundTrip(t *testing.T) {
	token, expiresAt, err := GenerateOperatorToken("maria", "secret-key", "patglam-agent", 30)
	if err != nil {
		t.Fatalf("GenerateOperatorToken: %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Fatal("token already expired")
	}

	claims, err := ParseOperatorToken(token, "secret-key")
	if err != nil {
		t.Fatalf("ParseOperatorToken: %v", err)
	}
	if claims.Operator != "maria" {
		t.Fatalf("operator = %q", claims.Operator)
	}
	if claims.Issuer != "patglam-agent" {
		t.Fatalf("issuer = %q", claims.Issuer)
	}
}

func TestOperatorTokenWrongSecret(t *testing.T) {
	token, _, err := GenerateOperatorToken("maria", "secret-key", "patglam-agent", 30)
	if err != nil {
		t.Fatalf("GenerateOperatorToken: %v", err)
	}
	if _, err := ParseOperatorToken(token, "other-key"); err == nil {
		t.Fatal("token accepted under the wrong secret")
	}
}
