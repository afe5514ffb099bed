package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// MinBookingQuantity is the smallest quantity a booking may reserve.
const MinBookingQuantity = 2

// Booking is a user's reservation against one ticket type. PENDING and
// CONFIRMED bookings count toward the ticket type's sold counter;
// CANCELLED is terminal and counts toward nothing.
type Booking struct {
	ID           uuid.UUID
	TicketTypeID uuid.UUID
	UserID       string
	Quantity     int
	Status       BookingStatus
	ExpiresAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ValidateQuantity enforces the minimum booking size policy.
func ValidateQuantity(quantity int) error {
	if quantity < MinBookingQuantity {
		return ErrInvalidQuantity
	}
	return nil
}

// NewPendingBooking builds the initial PENDING state with its expiry horizon.
func NewPendingBooking(id uuid.UUID, ticketTypeID uuid.UUID, userID string, quantity int, expiresAt, now time.Time) Booking {
	return Booking{
		ID:           id,
		TicketTypeID: ticketTypeID,
		UserID:       userID,
		Quantity:     quantity,
		Status:       BookingPending,
		ExpiresAt:    &expiresAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Live reports whether the booking currently holds inventory.
func (b Booking) Live() bool {
	return b.Status == BookingPending || b.Status == BookingConfirmed
}

// Expired reports whether a PENDING booking's window has lapsed.
// The boundary is exclusive for confirm eligibility: now == ExpiresAt
// already counts as expired.
func (b Booking) Expired(now time.Time) bool {
	if b.Status != BookingPending || b.ExpiresAt == nil {
		return false
	}
	return !now.Before(*b.ExpiresAt)
}

// Confirm moves PENDING to CONFIRMED and clears the expiry horizon.
// Confirmed bookings do not expire; no inventory changes hands here
// because the quantity was counted at creation.
func (b *Booking) Confirm(event Event, now time.Time) error {
	if b.Status != BookingPending {
		return ErrInvalidStateForConfirm
	}
	if event.HasStarted(now) {
		return ErrEventAlreadyOccurred
	}
	if b.Expired(now) {
		return ErrBookingExpired
	}
	b.Status = BookingConfirmed
	b.ExpiresAt = nil
	b.UpdatedAt = now
	return nil
}

// Cancel moves PENDING or CONFIRMED to CANCELLED. Both live states hold
// inventory, so the caller must release the quantity in the same unit of
// work. Refused once the event has started.
func (b *Booking) Cancel(event Event, now time.Time) error {
	if b.Status == BookingCancelled {
		return ErrAlreadyCancelled
	}
	if event.HasStarted(now) {
		return ErrEventAlreadyOccurred
	}
	b.Status = BookingCancelled
	b.UpdatedAt = now
	return nil
}

// Refund moves CONFIRMED to CANCELLED. It exists apart from Cancel because
// it applies only to already-confirmed (paid) bookings and is driven by
// support staff rather than the customer. The caller releases inventory.
func (b *Booking) Refund(event Event, now time.Time) error {
	if b.Status != BookingConfirmed {
		return ErrInvalidStateForRefund
	}
	if event.HasStarted(now) {
		return ErrEventAlreadyOccurred
	}
	b.Status = BookingCancelled
	b.UpdatedAt = now
	return nil
}

// Expire moves a lapsed PENDING booking to CANCELLED on behalf of the
// sweeper and reports whether the transition applied. Unlike Cancel it
// ignores event timing: a stale pending hold must free its inventory even
// when the sweeper catches up late. A booking that was confirmed or
// cancelled in the meantime is left untouched.
func (b *Booking) Expire(now time.Time) bool {
	if b.Status != BookingPending || !b.Expired(now) {
		return false
	}
	b.Status = BookingCancelled
	b.UpdatedAt = now
	return true
}

// BookingDetail is the read model for booking listings: the booking plus
// the ticket and event context needed to render it.
type BookingDetail struct {
	Booking
	Tier          TicketTier
	Price         decimal.Decimal
	EventID       uuid.UUID
	EventTitle    string
	EventStartsAt time.Time
}

// TotalPrice is the ticket price multiplied by the booked quantity.
func (d BookingDetail) TotalPrice() decimal.Decimal {
	return d.Price.Mul(decimal.NewFromInt(int64(d.Quantity)))
}
