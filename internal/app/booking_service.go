package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tessera-tickets/tessera/internal/clock"
	"github.com/tessera-tickets/tessera/internal/domain"
	"github.com/tessera-tickets/tessera/internal/monitoring"
)

// BookingRepository is the persistence surface of the booking lifecycle.
// Methods invoked inside WithTx share that transaction via the context.
type BookingRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetTicketTypeWithEvent(ctx context.Context, ticketTypeID uuid.UUID) (domain.TicketType, domain.Event, error)
	CreateBooking(ctx context.Context, booking domain.Booking) error
	GetBookingForUpdate(ctx context.Context, bookingID uuid.UUID) (domain.Booking, domain.Event, error)
	UpdateBookingState(ctx context.Context, booking domain.Booking) error
	GetBookingDetail(ctx context.Context, bookingID uuid.UUID) (domain.BookingDetail, error)
	ListBookingsByUser(ctx context.Context, userID string) ([]domain.BookingDetail, error)
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

// InventoryLedger adjusts a ticket type's sold counter. Both operations are
// atomic compare-and-set style mutations: Reserve fails with
// ErrInsufficientQuota instead of ever pushing sold past quota, and Release
// never drives sold below zero.
type InventoryLedger interface {
	Reserve(ctx context.Context, ticketTypeID uuid.UUID, quantity int) error
	Release(ctx context.Context, ticketTypeID uuid.UUID, quantity int) error
}

type BookingService struct {
	repo            BookingRepository
	ledger          InventoryLedger
	clock           clock.Clock
	expiry          ExpiryPolicy
	conflictRetries int
	retryBackoff    time.Duration
}

const defaultConflictRetries = 3
const defaultRetryBackoff = 20 * time.Millisecond

func NewBookingService(repo BookingRepository, ledger InventoryLedger, clk clock.Clock, opts ...BookingServiceOption) *BookingService {
	svc := &BookingService{
		repo:            repo,
		ledger:          ledger,
		clock:           clk,
		expiry:          DefaultExpiryPolicy(),
		conflictRetries: defaultConflictRetries,
		retryBackoff:    defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type BookingServiceOption func(*BookingService)

// WithExpiryPolicy overrides the default pending-booking expiry policy.
func WithExpiryPolicy(p ExpiryPolicy) BookingServiceOption {
	return func(s *BookingService) {
		if p.Before > 0 {
			s.expiry = p
		}
	}
}

// WithConflictRetries overrides how many times an operation is retried
// after a concurrency conflict before the conflict is surfaced.
func WithConflictRetries(n int) BookingServiceOption {
	return func(s *BookingService) {
		if n >= 0 {
			s.conflictRetries = n
		}
	}
}

// WithRetryBackoff overrides the pause between conflict retries.
func WithRetryBackoff(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if d > 0 {
			s.retryBackoff = d
		}
	}
}

type CreateBookingInput struct {
	TicketTypeID uuid.UUID
	UserID       string
	Quantity     int
}

// Create reserves quantity against the ticket type's quota and records a
// PENDING booking with its expiry horizon. The reserve and the booking row
// land in one transaction, so a failure leaves the ledger untouched.
func (s *BookingService) Create(ctx context.Context, in CreateBookingInput) (domain.Booking, error) {
	booking, err := s.create(ctx, in)
	monitoring.ObserveBookingOp("create", err)
	if err != nil {
		return domain.Booking{}, err
	}
	monitoring.AddReserved(booking.Quantity)
	return booking, nil
}

func (s *BookingService) create(ctx context.Context, in CreateBookingInput) (domain.Booking, error) {
	if in.TicketTypeID == uuid.Nil {
		return domain.Booking{}, domain.ErrInvalidID
	}
	if in.UserID == "" {
		return domain.Booking{}, domain.ErrUserIDRequired
	}
	if err := domain.ValidateQuantity(in.Quantity); err != nil {
		return domain.Booking{}, err
	}

	id := uuid.New()
	now := s.clock.Now()
	var result domain.Booking

	err := s.run(ctx, "create", func(txCtx context.Context) error {
		ticketType, event, err := s.repo.GetTicketTypeWithEvent(txCtx, in.TicketTypeID)
		if err != nil {
			return err
		}
		if err := event.CheckBookable(now); err != nil {
			return err
		}
		deadline, ok := s.expiry.DeadlineFor(event.StartsAt, now)
		if !ok {
			return domain.ErrEventNotBookable
		}

		if err := s.ledger.Reserve(txCtx, ticketType.ID, in.Quantity); err != nil {
			return err
		}

		booking := domain.NewPendingBooking(id, ticketType.ID, in.UserID, in.Quantity, deadline, now)
		if err := s.repo.CreateBooking(txCtx, booking); err != nil {
			return err
		}

		result = booking
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return result, nil
}

// Cancel moves a caller-owned PENDING or CONFIRMED booking to CANCELLED and
// releases its quantity. A booking owned by someone else reads as absent.
func (s *BookingService) Cancel(ctx context.Context, bookingID uuid.UUID, userID string) (domain.Booking, error) {
	booking, err := s.cancel(ctx, bookingID, userID)
	monitoring.ObserveBookingOp("cancel", err)
	if err != nil {
		return domain.Booking{}, err
	}
	monitoring.AddReleased(booking.Quantity)
	return booking, nil
}

func (s *BookingService) cancel(ctx context.Context, bookingID uuid.UUID, userID string) (domain.Booking, error) {
	if userID == "" {
		return domain.Booking{}, domain.ErrUserIDRequired
	}

	now := s.clock.Now()
	var result domain.Booking

	err := s.run(ctx, "cancel", func(txCtx context.Context) error {
		booking, event, err := s.repo.GetBookingForUpdate(txCtx, bookingID)
		if err != nil {
			return err
		}
		if booking.UserID != userID {
			return domain.ErrBookingNotFound
		}
		if err := booking.Cancel(event, now); err != nil {
			return err
		}
		if err := s.ledger.Release(txCtx, booking.TicketTypeID, booking.Quantity); err != nil {
			return err
		}
		if err := s.repo.UpdateBookingState(txCtx, booking); err != nil {
			return err
		}

		result = booking
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return result, nil
}

// Confirm moves a caller-owned PENDING booking to CONFIRMED before its
// expiry horizon. The quantity stays reserved, so the ledger is untouched.
func (s *BookingService) Confirm(ctx context.Context, bookingID uuid.UUID, userID string) (domain.Booking, error) {
	booking, err := s.confirm(ctx, bookingID, userID)
	monitoring.ObserveBookingOp("confirm", err)
	return booking, err
}

func (s *BookingService) confirm(ctx context.Context, bookingID uuid.UUID, userID string) (domain.Booking, error) {
	if userID == "" {
		return domain.Booking{}, domain.ErrUserIDRequired
	}

	now := s.clock.Now()
	var result domain.Booking

	err := s.run(ctx, "confirm", func(txCtx context.Context) error {
		booking, event, err := s.repo.GetBookingForUpdate(txCtx, bookingID)
		if err != nil {
			return err
		}
		if booking.UserID != userID {
			return domain.ErrBookingNotFound
		}
		if err := booking.Confirm(event, now); err != nil {
			return err
		}
		if err := s.repo.UpdateBookingState(txCtx, booking); err != nil {
			return err
		}

		result = booking
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return result, nil
}

// Refund moves a CONFIRMED booking to CANCELLED and releases its quantity.
// It is a support-staff action, so no ownership filter applies.
func (s *BookingService) Refund(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error) {
	booking, err := s.refund(ctx, bookingID)
	monitoring.ObserveBookingOp("refund", err)
	if err != nil {
		return domain.Booking{}, err
	}
	monitoring.AddReleased(booking.Quantity)
	return booking, nil
}

func (s *BookingService) refund(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error) {
	now := s.clock.Now()
	var result domain.Booking

	err := s.run(ctx, "refund", func(txCtx context.Context) error {
		booking, event, err := s.repo.GetBookingForUpdate(txCtx, bookingID)
		if err != nil {
			return err
		}
		if err := booking.Refund(event, now); err != nil {
			return err
		}
		if err := s.ledger.Release(txCtx, booking.TicketTypeID, booking.Quantity); err != nil {
			return err
		}
		if err := s.repo.UpdateBookingState(txCtx, booking); err != nil {
			return err
		}

		result = booking
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return result, nil
}

// SweepExpired cancels PENDING bookings whose expiry horizon has lapsed and
// releases their quantities, at most limit of them. Each booking gets its
// own transaction with a re-check under lock, so one that was confirmed
// after listing is left alone. Returns the number of bookings swept.
func (s *BookingService) SweepExpired(ctx context.Context, limit int) (int, error) {
	now := s.clock.Now()

	ids, err := s.repo.ListExpiredPending(ctx, now, limit)
	if err != nil {
		return 0, err
	}

	swept := 0
	var errs []error
	for _, id := range ids {
		released := 0
		err := s.run(ctx, "sweep", func(txCtx context.Context) error {
			released = 0
			booking, _, err := s.repo.GetBookingForUpdate(txCtx, id)
			if err != nil {
				if errors.Is(err, domain.ErrBookingNotFound) {
					return nil
				}
				return err
			}
			if !booking.Expire(now) {
				return nil
			}
			if err := s.ledger.Release(txCtx, booking.TicketTypeID, booking.Quantity); err != nil {
				return err
			}
			if err := s.repo.UpdateBookingState(txCtx, booking); err != nil {
				return err
			}
			released = booking.Quantity
			return nil
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("sweep booking %s: %w", id, err))
			continue
		}
		if released > 0 {
			swept++
			monitoring.AddReleased(released)
		}
	}
	return swept, errors.Join(errs...)
}

// GetBooking returns the booking with its ticket and event context. A
// non-empty userID restricts the lookup to that owner; the empty string is
// the staff path and skips the filter.
func (s *BookingService) GetBooking(ctx context.Context, bookingID uuid.UUID, userID string) (domain.BookingDetail, error) {
	detail, err := s.repo.GetBookingDetail(ctx, bookingID)
	if err != nil {
		return domain.BookingDetail{}, err
	}
	if userID != "" && detail.UserID != userID {
		return domain.BookingDetail{}, domain.ErrBookingNotFound
	}
	return detail, nil
}

// ListBookings returns the caller's bookings, newest first.
func (s *BookingService) ListBookings(ctx context.Context, userID string) ([]domain.BookingDetail, error) {
	if userID == "" {
		return nil, domain.ErrUserIDRequired
	}
	return s.repo.ListBookingsByUser(ctx, userID)
}

// run executes fn in a transaction, retrying a bounded number of times when
// the unit of work loses a serialization or lock race.
func (s *BookingService) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = s.repo.WithTx(ctx, fn)
		if err == nil || !errors.Is(err, domain.ErrConcurrencyConflict) {
			return err
		}
		if attempt >= s.conflictRetries {
			return err
		}
		monitoring.RecordConflictRetry(op)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * s.retryBackoff):
		}
	}
}
