package domain

import "errors"

// Booking lifecycle failures, surfaced verbatim to the boundary layer.
var (
	ErrInvalidQuantity        = errors.New("quantity below minimum booking size")
	ErrInsufficientQuota      = errors.New("insufficient ticket quota")
	ErrEventNotBookable       = errors.New("event not bookable")
	ErrEventAlreadyOccurred   = errors.New("event already occurred")
	ErrBookingExpired         = errors.New("booking expired")
	ErrAlreadyCancelled       = errors.New("booking already cancelled")
	ErrInvalidStateForConfirm = errors.New("booking not in a confirmable state")
	ErrInvalidStateForRefund  = errors.New("booking not in a refundable state")
	ErrConcurrencyConflict    = errors.New("concurrent update conflict")
)

// Lookup and input validation failures.
var (
	ErrEventNotFound      = errors.New("event not found")
	ErrTicketTypeNotFound = errors.New("ticket type not found")
	ErrBookingNotFound    = errors.New("booking not found")
	ErrInvalidID          = errors.New("invalid id")
	ErrUserIDRequired     = errors.New("user id required")

	ErrEventTitleRequired = errors.New("event title required")
	ErrInvalidEventWindow = errors.New("event window invalid")
	ErrInvalidTier        = errors.New("unknown ticket tier")
	ErrInvalidPrice       = errors.New("price must not be negative")
	ErrInvalidQuota       = errors.New("quota must not be negative")
)

// Inventory maintenance failures.
var (
	ErrTicketTypeExists    = errors.New("ticket tier already exists for event")
	ErrQuotaBelowSold      = errors.New("quota cannot drop below sold count")
	ErrTicketTypeHasSales  = errors.New("ticket type has recorded sales")
	ErrEventNotPublishable = errors.New("event cannot be published")
	ErrEventNotCancellable = errors.New("event cannot be cancelled")
)
