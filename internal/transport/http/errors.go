package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tessera-tickets/tessera/internal/domain"
)

const (
	codeMethodNotAllowed    = "method_not_allowed"
	codeNotFound            = "not_found"
	codeInvalidRequestBody  = "invalid_request_body"
	codeInvalidID           = "invalid_id"
	codeUnauthorized        = "unauthorized"
	codeForbidden           = "forbidden"
	codeInternalError       = "internal_error"
	codeUserIDRequired      = "user_id_required"
	codeInvalidQuantity     = "invalid_quantity"
	codeInsufficientQuota   = "insufficient_quota"
	codeEventNotBookable    = "event_not_bookable"
	codeEventOccurred       = "event_already_occurred"
	codeBookingExpired      = "booking_expired"
	codeAlreadyCancelled    = "booking_already_cancelled"
	codeNotConfirmable      = "booking_not_confirmable"
	codeNotRefundable       = "booking_not_refundable"
	codeBookingNotFound     = "booking_not_found"
	codeConcurrencyConflict = "concurrency_conflict"
	codeEventNotFound       = "event_not_found"
	codeTicketTypeNotFound  = "ticket_type_not_found"
	codeEventTitleRequired  = "event_title_required"
	codeInvalidEventWindow  = "invalid_event_window"
	codeInvalidStartsAt     = "invalid_starts_at"
	codeInvalidEndsAt       = "invalid_ends_at"
	codeInvalidTier         = "invalid_tier"
	codeInvalidPrice        = "invalid_price"
	codeInvalidQuota        = "invalid_quota"
	codeTicketTypeExists    = "ticket_type_already_exists"
	codeQuotaBelowSold      = "quota_below_sold"
	codeTicketTypeHasSales  = "ticket_type_has_sales"
	codeEventNotPublishable = "event_not_publishable"
	codeEventNotCancellable = "event_not_cancellable"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusMapping pairs each domain sentinel with the status and wire code it
// surfaces as. Matched with errors.Is because the storage layer wraps
// conflict failures around the sentinel.
var statusMapping = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrInvalidID, http.StatusBadRequest, codeInvalidID},
	{domain.ErrUserIDRequired, http.StatusBadRequest, codeUserIDRequired},
	{domain.ErrInvalidQuantity, http.StatusBadRequest, codeInvalidQuantity},
	{domain.ErrEventTitleRequired, http.StatusBadRequest, codeEventTitleRequired},
	{domain.ErrInvalidEventWindow, http.StatusBadRequest, codeInvalidEventWindow},
	{domain.ErrInvalidTier, http.StatusBadRequest, codeInvalidTier},
	{domain.ErrInvalidPrice, http.StatusBadRequest, codeInvalidPrice},
	{domain.ErrInvalidQuota, http.StatusBadRequest, codeInvalidQuota},

	{domain.ErrEventNotFound, http.StatusNotFound, codeEventNotFound},
	{domain.ErrTicketTypeNotFound, http.StatusNotFound, codeTicketTypeNotFound},
	{domain.ErrBookingNotFound, http.StatusNotFound, codeBookingNotFound},

	{domain.ErrInsufficientQuota, http.StatusConflict, codeInsufficientQuota},
	{domain.ErrEventNotBookable, http.StatusConflict, codeEventNotBookable},
	{domain.ErrEventAlreadyOccurred, http.StatusConflict, codeEventOccurred},
	{domain.ErrBookingExpired, http.StatusConflict, codeBookingExpired},
	{domain.ErrAlreadyCancelled, http.StatusConflict, codeAlreadyCancelled},
	{domain.ErrInvalidStateForConfirm, http.StatusConflict, codeNotConfirmable},
	{domain.ErrInvalidStateForRefund, http.StatusConflict, codeNotRefundable},
	{domain.ErrTicketTypeExists, http.StatusConflict, codeTicketTypeExists},
	{domain.ErrQuotaBelowSold, http.StatusConflict, codeQuotaBelowSold},
	{domain.ErrTicketTypeHasSales, http.StatusConflict, codeTicketTypeHasSales},
	{domain.ErrEventNotPublishable, http.StatusConflict, codeEventNotPublishable},
	{domain.ErrEventNotCancellable, http.StatusConflict, codeEventNotCancellable},

	{domain.ErrConcurrencyConflict, http.StatusServiceUnavailable, codeConcurrencyConflict},
}

// writeDomainError translates a service failure into the HTTP response.
// Unknown errors become an opaque 500; a conflict that survived the
// service's internal retries asks the client to try again shortly.
func writeDomainError(w http.ResponseWriter, err error) {
	for _, m := range statusMapping {
		if errors.Is(err, m.err) {
			if m.status == http.StatusServiceUnavailable {
				w.Header().Set("Retry-After", "1")
			}
			writeError(w, m.status, m.code, m.err.Error())
			return
		}
	}
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

// NotFoundHandler returns a JSON 404 response for unknown routes.
func NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
	})
}
