package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/techmall/storefront-api/internal/platform/requestctx"
)

func TestParseCloudTraceContext(t *testing.T) {
	sc, ok := parseCloudTraceContext("105445aa7843bc8bf206b12000100000/1;o=1")
	if !ok {
		t.Fatalf("expected header to parse")
	}
	if sc.TraceID().String() != "105445aa7843bc8bf206b12000100000" {
		t.Fatalf("unexpected trace id %s", sc.TraceID())
	}
	if sc.SpanID().String() != "0000000000000001" {
		t.Fatalf("unexpected span id %s", sc.SpanID())
	}
	if !sc.IsSampled() || !sc.IsRemote() {
		t.Fatalf("expected sampled remote span context")
	}

	for _, header := range []string{"", "abc/1", "105445aa7843bc8bf206b12000100000/zz", "105445aa7843bc8bf206b12000100000/0"} {
		if _, ok := parseCloudTraceContext(header); ok {
			t.Fatalf("expected %q to be rejected", header)
		}
	}
}

func TestFormatCloudTraceHeader(t *testing.T) {
	got := formatCloudTraceHeader(requestctx.TraceInfo{TraceID: "105445aa7843bc8bf206b12000100000", SpanID: "00000000000000ff", Sampled: true})
	if got != "105445aa7843bc8bf206b12000100000/255;o=1" {
		t.Fatalf("unexpected header %q", got)
	}
}

func TestRequestLoggerMiddlewareRecordsMetrics(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	metrics := NewMetrics()

	r := chi.NewRouter()
	r.Use(InjectLoggerMiddleware(zap.New(core)))
	r.Use(RequestLoggerMiddleware(metrics))
	r.Get("/api/orders/{orderID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/orders/ord_1", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	if got := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("/api/orders/{orderID}", "GET", "404")); got != 1 {
		t.Fatalf("expected one request counted, got %v", got)
	}
	entries := logs.FilterMessage("request completed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one completion log, got %d", len(entries))
	}
	if entries[0].Level != zap.WarnLevel {
		t.Fatalf("expected warn level for 404, got %s", entries[0].Level)
	}
}

func TestRecoveryMiddlewareWritesJSON(t *testing.T) {
	handler := RecoveryMiddleware(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "internal_server_error") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestEventLoggerLevels(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logEvent := NewEventLogger(zap.New(core), "checkout")

	logEvent(context.Background(), "checkout.order.placed", map[string]any{"orderId": "ord_1"})
	logEvent(context.Background(), "checkout.payment.unreconciled", map[string]any{"transactionId": "TXN-1"})

	all := logs.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(all))
	}
	if all[0].Level != zap.InfoLevel || all[1].Level != zap.ErrorLevel {
		t.Fatalf("unexpected levels %s %s", all[0].Level, all[1].Level)
	}
	if all[0].LoggerName != "checkout" {
		t.Fatalf("unexpected logger name %q", all[0].LoggerName)
	}
	if all[1].ContextMap()["transactionId"] != "TXN-1" {
		t.Fatalf("expected transaction id field, got %v", all[1].ContextMap())
	}
}
