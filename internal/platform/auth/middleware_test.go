package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	firebaseauth "firebase.google.com/go/v4/auth"
)

type stubTokenVerifier struct {
	token    *firebaseauth.Token
	err      error
	received string
}

func (s *stubTokenVerifier) VerifyIDToken(_ context.Context, idToken string) (*firebaseauth.Token, error) {
	s.received = idToken
	if s.err != nil {
		return nil, s.err
	}
	return s.token, nil
}

func TestRequireAuth_AllowsValidToken(t *testing.T) {
	verifier := &stubTokenVerifier{
		token: &firebaseauth.Token{
			UID: "user-123",
			Claims: map[string]any{
				"role":  []any{"customer", "ADMIN", "admin"},
				"email": "ayesha@example.pk",
				"name":  "Ayesha Khan",
			},
		},
	}
	authn := NewAuthenticator(verifier)

	called := false
	handler := authn.RequireAuth(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			t.Fatalf("expected identity in context")
		}
		if identity.UID != "user-123" || identity.Email != "ayesha@example.pk" || identity.Name != "Ayesha Khan" {
			t.Fatalf("unexpected identity %#v", identity)
		}
		if len(identity.Roles) != 2 || !identity.IsAdmin() {
			t.Fatalf("expected deduplicated roles with admin, got %v", identity.Roles)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token-abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called {
		t.Fatalf("expected handler to be called")
	}
	if verifier.received != "token-abc" {
		t.Fatalf("expected token to be forwarded, got %q", verifier.received)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestRequireAuth_FallbackRoleAndIsAdminClaim(t *testing.T) {
	cases := []struct {
		name      string
		claims    map[string]any
		wantAdmin bool
	}{
		{"no role claim", map[string]any{}, false},
		{"isAdmin flag", map[string]any{"isAdmin": true}, true},
		{"role map", map[string]any{"role": map[string]any{"admin": true, "customer": false}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			authn := NewAuthenticator(&stubTokenVerifier{token: &firebaseauth.Token{UID: "u1", Claims: tc.claims}})
			var identity *Identity
			handler := authn.RequireAuth()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				identity, _ = IdentityFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "bearer t")
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if identity == nil {
				t.Fatalf("expected identity")
			}
			if identity.IsAdmin() != tc.wantAdmin {
				t.Fatalf("expected admin=%v, got roles %v", tc.wantAdmin, identity.Roles)
			}
			if !tc.wantAdmin && !identity.HasRole(RoleCustomer) {
				t.Fatalf("expected fallback customer role, got %v", identity.Roles)
			}
		})
	}
}

func TestRequireAuth_RejectsMissingHeader(t *testing.T) {
	authn := NewAuthenticator(&stubTokenVerifier{})
	handler := authn.RequireAuth()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler should not be called")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assertAuthError(t, rec, http.StatusUnauthorized, "unauthenticated")
}

func TestRequireAuth_ForbidsMissingRole(t *testing.T) {
	authn := NewAuthenticator(&stubTokenVerifier{token: &firebaseauth.Token{UID: "u1", Claims: map[string]any{"role": "customer"}}})
	handler := authn.RequireAuth(RoleAdmin)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer t")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assertAuthError(t, rec, http.StatusForbidden, "insufficient_role")
}

func TestRequireAuth_MapsVerificationErrors(t *testing.T) {
	cases := map[error]string{
		ErrTokenExpired:       "token_expired",
		ErrTokenInvalid:       "invalid_token",
		errors.New("network"): "invalid_token",
	}
	for verifyErr, code := range cases {
		authn := NewAuthenticator(&stubTokenVerifier{err: verifyErr})
		handler := authn.RequireAuth()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatalf("handler should not be called")
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer t")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assertAuthError(t, rec, http.StatusUnauthorized, code)
	}
}

func assertAuthError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d, got %d", status, rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != code {
		t.Fatalf("expected error %q, got %v", code, body["error"])
	}
}
