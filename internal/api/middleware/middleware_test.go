package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/finledger/finledger/internal/domain"
)

// fakeResolver maps one known subject to a fixed owner id.
type fakeResolver struct {
	subject string
	ownerID uuid.UUID
}

func (f *fakeResolver) ResolveSubject(ctx context.Context, subjectID string) (uuid.UUID, error) {
	if subjectID != f.subject {
		return uuid.Nil, domain.ErrUnauthenticated
	}
	return f.ownerID, nil
}

func TestAuthResolvesSubject(t *testing.T) {
	ownerID := uuid.New()
	resolver := &fakeResolver{subject: "known-subject", ownerID: ownerID}

	var gotOwner uuid.UUID
	var gotOK bool
	handler := Auth(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOwner, gotOK = OwnerID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	req.Header.Set("X-Subject-ID", "known-subject")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !gotOK || gotOwner != ownerID {
		t.Errorf("handler saw owner %s (ok=%v), want %s", gotOwner, gotOK, ownerID)
	}
}

func TestAuthRejectsMissingOrUnknownSubject(t *testing.T) {
	resolver := &fakeResolver{subject: "known-subject", ownerID: uuid.New()}
	handler := Auth(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without authentication")
	}))

	// no header at all
	req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing header: status = %d, want 401", rec.Code)
	}

	// header present but unknown
	req = httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	req.Header.Set("X-Subject-ID", "nobody")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown subject: status = %d, want 401", rec.Code)
	}
}

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"unauthenticated", domain.ErrUnauthenticated, http.StatusUnauthorized},
		{"not found", fmt.Errorf("get account: %w", domain.ErrNotFound), http.StatusNotFound},
		{"validation", fmt.Errorf("%w: amount must be positive", domain.ErrValidation), http.StatusBadRequest},
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests},
		{"conflict", domain.ErrConflict, http.StatusConflict},
		{"upstream", fmt.Errorf("%w: gemini unavailable", domain.ErrUpstream), http.StatusBadGateway},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteDomainError(rec, tt.err)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content type = %q, want application/json", ct)
			}
		})
	}
}

func TestWriteDomainErrorRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteDomainError(rec, &domain.RateLimitError{RetryAfter: 90 * time.Second})

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "90" {
		t.Errorf("Retry-After = %q, want \"90\"", got)
	}
}

func TestWriteDomainErrorValidationLeaksDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteDomainError(rec, fmt.Errorf("%w: account name is required", domain.ErrValidation))

	body := rec.Body.String()
	if !strings.Contains(body, "account name is required") {
		t.Errorf("validation detail missing from body %q", body)
	}
}
