// Package idempotency replays the first response of a retried mutating request.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"
)

// DefaultTTL bounds how long a completed response stays replayable.
const DefaultTTL = 24 * time.Hour

// Status is the lifecycle state of a stored key.
type Status string

const (
	StatusInFlight  Status = "in_flight"
	StatusCompleted Status = "completed"
)

// ClaimState is the outcome of Acquire.
type ClaimState int

const (
	// ClaimAcquired means the caller owns the key and must Complete or Abandon it.
	ClaimAcquired ClaimState = iota
	// ClaimReplay means a stored response exists and should be written back.
	ClaimReplay
	// ClaimInFlight means another request holds the key.
	ClaimInFlight
)

// Claim carries the outcome of Acquire and, for replays, the stored record.
type Claim struct {
	State  ClaimState
	Record Record
}

// Record is one stored key.
type Record struct {
	Key            string              `json:"key"`
	Fingerprint    string              `json:"fingerprint"`
	Status         Status              `json:"status"`
	ResponseStatus int                 `json:"responseStatus,omitempty"`
	ResponseHeader map[string][]string `json:"responseHeader,omitempty"`
	ResponseBody   []byte              `json:"responseBody,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
	ExpiresAt      time.Time           `json:"expiresAt"`
}

func (r Record) expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// Response is the captured handler output.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Store persists keys. Keys passed in are already scoped to the caller.
type Store interface {
	Acquire(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Claim, error)
	Complete(ctx context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error
	Abandon(ctx context.Context, key string) error
	// Sweep deletes up to limit expired records. Stores with native expiry return 0.
	Sweep(ctx context.Context, now time.Time, limit int) (int, error)
}

// ErrKeyReused is returned when a key comes back with a different request body.
var ErrKeyReused = errors.New("idempotency: key reused for a different request")

func newInFlight(key, fingerprint string, now time.Time, ttl time.Duration) Record {
	return Record{
		Key:         key,
		Fingerprint: fingerprint,
		Status:      StatusInFlight,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
}

func claimFor(record Record, fingerprint string) (Claim, error) {
	if record.Fingerprint != fingerprint {
		return Claim{}, ErrKeyReused
	}
	if record.Status == StatusCompleted {
		return Claim{State: ClaimReplay, Record: record}, nil
	}
	return Claim{State: ClaimInFlight, Record: record}, nil
}

func completed(record Record, resp Response, now time.Time, ttl time.Duration) Record {
	record.Status = StatusCompleted
	record.ResponseStatus = resp.Status
	record.ResponseHeader = storableHeader(resp.Header)
	record.ResponseBody = append([]byte(nil), resp.Body...)
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.ExpiresAt = now.Add(ttl)
	return record
}

func documentID(key string) string {
	return digest([]byte(strings.TrimSpace(key)))
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func storableHeader(header http.Header) map[string][]string {
	out := make(map[string][]string, len(header))
	for name, values := range header {
		switch strings.ToLower(name) {
		case "content-length", "date", "connection", "transfer-encoding", "x-request-id":
			continue
		}
		out[http.CanonicalHeaderKey(name)] = append([]string(nil), values...)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func normaliseTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}
