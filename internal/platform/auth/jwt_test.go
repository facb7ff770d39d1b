package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v4"
)

func TestJWTVerifierHS256(t *testing.T) {
	now := time.Date(2025, time.May, 1, 12, 0, 0, 0, time.UTC)
	verifier, err := NewJWTVerifier(WithHMACSecret("s3cret"), WithJWTClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewJWTVerifier: %v", err)
	}

	signed := signHS256(t, "s3cret", jwt.MapClaims{
		"id":      "64f1c0ffee",
		"isAdmin": true,
		"exp":     now.Add(time.Hour).Unix(),
	})
	token, err := verifier.VerifyIDToken(context.Background(), signed)
	if err != nil {
		t.Fatalf("VerifyIDToken: %v", err)
	}
	if token.UID != "64f1c0ffee" {
		t.Fatalf("expected id claim as uid, got %q", token.UID)
	}
	if token.Expires != now.Add(time.Hour).Unix() {
		t.Fatalf("unexpected expiry %d", token.Expires)
	}
	if isAdmin, _ := token.Claims["isAdmin"].(bool); !isAdmin {
		t.Fatalf("expected isAdmin claim to pass through")
	}
}

func TestJWTVerifierRejectsBadTokens(t *testing.T) {
	now := time.Date(2025, time.May, 1, 12, 0, 0, 0, time.UTC)
	verifier, err := NewJWTVerifier(
		WithHMACSecret("s3cret"),
		WithExpectedIssuer("techmall"),
		WithJWTClock(func() time.Time { return now }),
	)
	if err != nil {
		t.Fatalf("NewJWTVerifier: %v", err)
	}

	cases := []struct {
		name   string
		token  string
		wanted error
	}{
		{"wrong secret", signHS256(t, "other", jwt.MapClaims{"sub": "u1", "iss": "techmall", "exp": now.Add(time.Hour).Unix()}), ErrTokenInvalid},
		{"expired", signHS256(t, "s3cret", jwt.MapClaims{"sub": "u1", "iss": "techmall", "exp": now.Add(-time.Minute).Unix()}), ErrTokenExpired},
		{"missing exp", signHS256(t, "s3cret", jwt.MapClaims{"sub": "u1", "iss": "techmall"}), ErrTokenInvalid},
		{"wrong issuer", signHS256(t, "s3cret", jwt.MapClaims{"sub": "u1", "iss": "evil", "exp": now.Add(time.Hour).Unix()}), ErrTokenInvalid},
		{"no subject", signHS256(t, "s3cret", jwt.MapClaims{"iss": "techmall", "exp": now.Add(time.Hour).Unix()}), ErrTokenInvalid},
		{"garbage", "not-a-jwt", ErrTokenInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := verifier.VerifyIDToken(context.Background(), tc.token)
			if !errors.Is(err, tc.wanted) {
				t.Fatalf("expected %v, got %v", tc.wanted, err)
			}
		})
	}
}

func TestJWTVerifierRS256WithJWKS(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	fetches := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fetches++
		set := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{Key: &key.PublicKey, KeyID: "kid-1", Algorithm: "RS256", Use: "sig"}}}
		_ = json.NewEncoder(w).Encode(set)
	}))
	defer server.Close()

	verifier, err := NewJWTVerifier(WithJWKSURL(server.URL, server.Client()), WithExpectedAudience("storefront"))
	if err != nil {
		t.Fatalf("NewJWTVerifier: %v", err)
	}

	claims := jwt.MapClaims{"sub": "u-rsa", "aud": "storefront", "exp": time.Now().Add(time.Hour).Unix()}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = "kid-1"
	signed, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	for i := 0; i < 2; i++ {
		token, err := verifier.VerifyIDToken(context.Background(), signed)
		if err != nil {
			t.Fatalf("VerifyIDToken: %v", err)
		}
		if token.UID != "u-rsa" {
			t.Fatalf("unexpected uid %q", token.UID)
		}
	}
	if fetches != 1 {
		t.Fatalf("expected jwks fetched once, got %d", fetches)
	}

	hsOnly := signHS256(t, "whatever", jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(time.Hour).Unix()})
	if _, err := verifier.VerifyIDToken(context.Background(), hsOnly); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected HS256 to be rejected without a secret, got %v", err)
	}
}

func TestNewJWTVerifierRequiresKeyMaterial(t *testing.T) {
	if _, err := NewJWTVerifier(); err == nil {
		t.Fatalf("expected error without secret or jwks url")
	}
}

func signHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}
