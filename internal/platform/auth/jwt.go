package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	firebaseauth "firebase.google.com/go/v4/auth"
	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v4"
)

const defaultJWKSTTL = time.Hour

// JWTVerifier validates self-issued bearer tokens. HS256 tokens are checked against a shared
// secret; RS256 tokens are checked against keys from a JWKS endpoint. The subject comes from
// "sub", falling back to the "id" claim.
type JWTVerifier struct {
	secret   []byte
	jwks     *jwksKeySet
	issuer   string
	audience string
	now      func() time.Time
}

// JWTOption customises JWTVerifier.
type JWTOption func(*JWTVerifier)

// WithHMACSecret enables HS256 verification.
func WithHMACSecret(secret string) JWTOption {
	return func(v *JWTVerifier) {
		if secret != "" {
			v.secret = []byte(secret)
		}
	}
}

// WithJWKSURL enables RS256 verification against the key set served at url.
func WithJWKSURL(url string, client *http.Client) JWTOption {
	return func(v *JWTVerifier) {
		if strings.TrimSpace(url) == "" {
			return
		}
		if client == nil {
			client = &http.Client{Timeout: 10 * time.Second}
		}
		v.jwks = &jwksKeySet{url: url, client: client, ttl: defaultJWKSTTL}
	}
}

// WithExpectedIssuer requires the iss claim to match.
func WithExpectedIssuer(issuer string) JWTOption {
	return func(v *JWTVerifier) { v.issuer = strings.TrimSpace(issuer) }
}

// WithExpectedAudience requires the aud claim to contain audience.
func WithExpectedAudience(audience string) JWTOption {
	return func(v *JWTVerifier) { v.audience = strings.TrimSpace(audience) }
}

// WithJWTClock overrides the time source used for expiry checks.
func WithJWTClock(now func() time.Time) JWTOption {
	return func(v *JWTVerifier) {
		if now != nil {
			v.now = now
		}
	}
}

// NewJWTVerifier requires at least one of WithHMACSecret or WithJWKSURL.
func NewJWTVerifier(opts ...JWTOption) (*JWTVerifier, error) {
	v := &JWTVerifier{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	if len(v.secret) == 0 && v.jwks == nil {
		return nil, errors.New("auth: jwt verifier needs a secret or a jwks url")
	}
	return v, nil
}

// VerifyIDToken parses and validates the token, returning it in the Firebase token shape.
func (v *JWTVerifier) VerifyIDToken(ctx context.Context, raw string) (*firebaseauth.Token, error) {
	methods := make([]string, 0, 2)
	if len(v.secret) > 0 {
		methods = append(methods, jwt.SigningMethodHS256.Alg())
	}
	if v.jwks != nil {
		methods = append(methods, jwt.SigningMethodRS256.Alg())
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods(methods), jwt.WithoutClaimsValidation())
	_, err := parser.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() == jwt.SigningMethodHS256.Alg() {
			return v.secret, nil
		}
		kid, _ := token.Header["kid"].(string)
		return v.jwks.key(ctx, kid)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	now := v.now().Unix()
	if _, ok := claims["exp"]; !ok {
		return nil, fmt.Errorf("%w: missing exp", ErrTokenInvalid)
	}
	if !claims.VerifyExpiresAt(now, true) {
		return nil, ErrTokenExpired
	}
	if !claims.VerifyNotBefore(now, false) {
		return nil, fmt.Errorf("%w: token not yet valid", ErrTokenInvalid)
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return nil, fmt.Errorf("%w: unexpected issuer", ErrTokenInvalid)
	}
	if v.audience != "" && !claims.VerifyAudience(v.audience, true) {
		return nil, fmt.Errorf("%w: unexpected audience", ErrTokenInvalid)
	}

	subject, _ := claims["sub"].(string)
	if subject == "" {
		subject, _ = claims["id"].(string)
	}
	if strings.TrimSpace(subject) == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	token := &firebaseauth.Token{
		UID:    subject,
		Claims: map[string]any(claims),
	}
	token.Issuer, _ = claims["iss"].(string)
	token.Subject = subject
	if exp, ok := claims["exp"].(float64); ok {
		token.Expires = int64(exp)
	}
	if iat, ok := claims["iat"].(float64); ok {
		token.IssuedAt = int64(iat)
	}
	return token, nil
}

// jwksKeySet caches RS256 public keys and refetches on an unknown kid or after ttl.
type jwksKeySet struct {
	url    string
	client *http.Client
	ttl    time.Duration

	mu        sync.Mutex
	keys      map[string]jose.JSONWebKey
	fetchedAt time.Time
}

func (s *jwksKeySet) key(ctx context.Context, kid string) (any, error) {
	if kid == "" {
		return nil, errors.New("token missing kid header")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if jwk, ok := s.keys[kid]; ok && time.Since(s.fetchedAt) < s.ttl {
		return jwk.Key, nil
	}
	if err := s.refreshLocked(ctx); err != nil {
		return nil, err
	}
	jwk, ok := s.keys[kid]
	if !ok {
		return nil, fmt.Errorf("jwks key %q not found", kid)
	}
	return jwk.Key, nil
}

func (s *jwksKeySet) refreshLocked(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("jwks request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("jwks fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks fetch: unexpected status %d", resp.StatusCode)
	}

	var set jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("jwks decode: %w", err)
	}
	keys := make(map[string]jose.JSONWebKey, len(set.Keys))
	for _, jwk := range set.Keys {
		if jwk.KeyID != "" && jwk.Valid() && jwk.IsPublic() {
			keys[jwk.KeyID] = jwk
		}
	}
	if len(keys) == 0 {
		return errors.New("jwks: empty key set")
	}
	s.keys = keys
	s.fetchedAt = time.Now()
	return nil
}
