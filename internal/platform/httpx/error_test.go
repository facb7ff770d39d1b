package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestWriteErrorEnvelope(t *testing.T) {
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")
	rec := httptest.NewRecorder()

	WriteError(ctx, rec, NewError("insufficient_stock", "insufficient stock\nfor p1", http.StatusBadRequest).
		WithDetails(map[string]any{"productId": "p1"}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "insufficient_stock" || body["request_id"] != "req-1" {
		t.Fatalf("unexpected envelope %v", body)
	}
	if body["message"] != "insufficient stock for p1" {
		t.Fatalf("expected sanitised message, got %v", body["message"])
	}
	details, ok := body["details"].(map[string]any)
	if !ok || details["productId"] != "p1" {
		t.Fatalf("unexpected details %v", body["details"])
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		ProductID string `json:"productId"`
	}

	var dst payload
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"productId":"p1"}`))
	if err := DecodeJSON(req, 1024, &dst); err != nil || dst.ProductID != "p1" {
		t.Fatalf("unexpected decode result %v %#v", err, dst)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"productId":"p1","extra":1}`))
	if err := DecodeJSON(req, 1024, &dst); err == nil {
		t.Fatalf("expected unknown field to be rejected")
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 20)))
	if err := DecodeJSON(req, 10, &dst); !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("expected ErrBodyTooLarge, got %v", err)
	}
}
