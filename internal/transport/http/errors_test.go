package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tessera-tickets/tessera/internal/domain"
)

func TestWriteDomainError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "validation failures map to 400",
			err:        domain.ErrInvalidQuantity,
			wantStatus: http.StatusBadRequest,
			wantCode:   codeInvalidQuantity,
		},
		{
			name:       "missing resources map to 404",
			err:        domain.ErrBookingNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   codeBookingNotFound,
		},
		{
			name:       "state conflicts map to 409",
			err:        domain.ErrAlreadyCancelled,
			wantStatus: http.StatusConflict,
			wantCode:   codeAlreadyCancelled,
		},
		{
			name:       "quota exhaustion maps to 409",
			err:        domain.ErrInsufficientQuota,
			wantStatus: http.StatusConflict,
			wantCode:   codeInsufficientQuota,
		},
		{
			name:       "wrapped conflict maps to 503",
			err:        fmt.Errorf("%w: could not serialize access", domain.ErrConcurrencyConflict),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   codeConcurrencyConflict,
		},
		{
			name:       "unknown errors become an opaque 500",
			err:        errors.New("pq: connection reset"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   codeInternalError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			writeDomainError(rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}

			var resp errorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Fatalf("expected code %s, got %s", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestWriteDomainError_ConflictSetsRetryAfter(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeDomainError(rec, domain.ErrConcurrencyConflict)

	if got := rec.Header().Get("Retry-After"); got != "1" {
		t.Fatalf("expected Retry-After header 1, got %q", got)
	}
}

func TestWriteDomainError_UnknownErrorHidesDetails(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeDomainError(rec, errors.New("ssl handshake failed for 10.0.0.7"))

	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != "internal error" {
		t.Fatalf("expected opaque message, got %q", resp.Error)
	}
}

func TestNotFoundHandler(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", HealthHandler)
	mux.Handle("/", NotFoundHandler())

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}

	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != codeNotFound {
		t.Fatalf("expected code %s, got %s", codeNotFound, resp.Code)
	}
}
