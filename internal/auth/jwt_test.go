package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndValidateToken(t *testing.T) {
	svc := NewJWTService("test-secret")

	token, err := svc.GenerateToken("acct-1", "owner@example.com")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("not a JWT: %q", token)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.AccountID != "acct-1" || claims.Email != "owner@example.com" {
		t.Errorf("claims %+v", claims)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-a").GenerateToken("acct-1", "")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := NewJWTService("secret-b").ValidateToken(token); err == nil {
		t.Error("token signed with a different secret validated")
	}
}

func TestValidateTokenExpired(t *testing.T) {
	svc := NewJWTService("test-secret")
	svc.accessDuration = -time.Minute

	token, err := svc.GenerateToken("acct-1", "")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := svc.ValidateToken(token); err == nil {
		t.Error("expired token validated")
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	svc := NewJWTService("test-secret")
	for _, tok := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := svc.ValidateToken(tok); err == nil {
			t.Errorf("garbage token %q validated", tok)
		}
	}
}

func TestValidateTokenRejectsUnsignedAlg(t *testing.T) {
	claims := Claims{AccountID: "acct-1"}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := NewJWTService("test-secret").ValidateToken(signed); err == nil {
		t.Error("alg=none token validated")
	}
}
