package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tessera-tickets/tessera/internal/domain"
	"github.com/tessera-tickets/tessera/internal/testutil"
)

func TestBookingRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewBookingRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	startsAt := time.Now().UTC().Add(72 * time.Hour)

	t.Run("GetTicketTypeWithEvent returns both rows", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		eventID := testutil.InsertEvent(t, ctx, pool, domain.EventPublished, startsAt)
		ttID := testutil.InsertTicketType(t, ctx, pool, eventID, domain.TierVIP, "125.50", 40, 3)

		tt, event, err := repo.GetTicketTypeWithEvent(ctx, ttID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if tt.ID != ttID || tt.EventID != eventID {
			t.Fatalf("unexpected ticket type: %+v", tt)
		}
		if tt.Tier != domain.TierVIP || tt.Quota != 40 || tt.Sold != 3 {
			t.Fatalf("unexpected ticket type fields: %+v", tt)
		}
		if want := decimal.RequireFromString("125.50"); !tt.Price.Equal(want) {
			t.Fatalf("price = %s, want %s", tt.Price, want)
		}
		if event.ID != eventID || event.Status != domain.EventPublished {
			t.Fatalf("unexpected event: %+v", event)
		}

		_, _, err = repo.GetTicketTypeWithEvent(ctx, uuid.New())
		if !errors.Is(err, domain.ErrTicketTypeNotFound) {
			t.Fatalf("expected ErrTicketTypeNotFound, got %v", err)
		}
	})

	t.Run("CreateBooking persists and maps constraint failures", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		eventID := testutil.InsertEvent(t, ctx, pool, domain.EventPublished, startsAt)
		ttID := testutil.InsertTicketType(t, ctx, pool, eventID, domain.TierStandard, "19.99", 10, 0)
		now := time.Now().UTC()

		booking := domain.NewPendingBooking(uuid.New(), ttID, "user-1", 2, startsAt.Add(-24*time.Hour), now)
		if err := repo.CreateBooking(ctx, booking); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		var count int
		if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM bookings WHERE id = $1`, booking.ID).Scan(&count); err != nil {
			t.Fatalf("query count: %v", err)
		}
		if count != 1 {
			t.Fatalf("expected booking persisted, got count %d", count)
		}

		tooSmall := domain.NewPendingBooking(uuid.New(), ttID, "user-1", 1, startsAt.Add(-24*time.Hour), now)
		if err := repo.CreateBooking(ctx, tooSmall); !errors.Is(err, domain.ErrInvalidQuantity) {
			t.Fatalf("expected ErrInvalidQuantity, got %v", err)
		}

		orphan := domain.NewPendingBooking(uuid.New(), uuid.New(), "user-1", 2, startsAt.Add(-24*time.Hour), now)
		if err := repo.CreateBooking(ctx, orphan); !errors.Is(err, domain.ErrTicketTypeNotFound) {
			t.Fatalf("expected ErrTicketTypeNotFound, got %v", err)
		}
	})

	t.Run("GetBookingForUpdate returns booking and event", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		eventID := testutil.InsertEvent(t, ctx, pool, domain.EventPublished, startsAt)
		ttID := testutil.InsertTicketType(t, ctx, pool, eventID, domain.TierStandard, "19.99", 10, 2)
		expiry := time.Now().UTC().Add(48 * time.Hour)
		bookingID := testutil.InsertBooking(t, ctx, pool, ttID, "user-1", 2, domain.BookingPending, &expiry)

		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			booking, event, err := repo.GetBookingForUpdate(txCtx, bookingID)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if booking.ID != bookingID || booking.UserID != "user-1" || booking.Quantity != 2 {
				t.Fatalf("unexpected booking: %+v", booking)
			}
			if booking.ExpiresAt == nil {
				t.Fatalf("expected expires_at to be set")
			}
			if event.ID != eventID {
				t.Fatalf("event = %s, want %s", event.ID, eventID)
			}

			if _, _, err := repo.GetBookingForUpdate(txCtx, uuid.New()); !errors.Is(err, domain.ErrBookingNotFound) {
				t.Fatalf("expected ErrBookingNotFound, got %v", err)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("tx failed: %v", err)
		}
	})

	t.Run("UpdateBookingState persists a transition", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		eventID := testutil.InsertEvent(t, ctx, pool, domain.EventPublished, startsAt)
		ttID := testutil.InsertTicketType(t, ctx, pool, eventID, domain.TierStandard, "19.99", 10, 2)
		expiry := time.Now().UTC().Add(48 * time.Hour)
		bookingID := testutil.InsertBooking(t, ctx, pool, ttID, "user-1", 2, domain.BookingPending, &expiry)

		updated := domain.Booking{
			ID:        bookingID,
			Status:    domain.BookingConfirmed,
			ExpiresAt: nil,
			UpdatedAt: time.Now().UTC(),
		}
		if err := repo.UpdateBookingState(ctx, updated); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		detail, err := repo.GetBookingDetail(ctx, bookingID)
		if err != nil {
			t.Fatalf("get detail: %v", err)
		}
		if detail.Status != domain.BookingConfirmed {
			t.Fatalf("status = %s, want %s", detail.Status, domain.BookingConfirmed)
		}
		if detail.ExpiresAt != nil {
			t.Fatalf("expected expires_at cleared, got %v", detail.ExpiresAt)
		}

		missing := domain.Booking{ID: uuid.New(), Status: domain.BookingCancelled, UpdatedAt: time.Now().UTC()}
		if err := repo.UpdateBookingState(ctx, missing); !errors.Is(err, domain.ErrBookingNotFound) {
			t.Fatalf("expected ErrBookingNotFound, got %v", err)
		}
	})

	t.Run("GetBookingDetail joins tier, price and event", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		eventID := testutil.InsertEvent(t, ctx, pool, domain.EventPublished, startsAt)
		ttID := testutil.InsertTicketType(t, ctx, pool, eventID, domain.TierGroup, "12.00", 30, 4)
		expiry := time.Now().UTC().Add(48 * time.Hour)
		bookingID := testutil.InsertBooking(t, ctx, pool, ttID, "user-1", 4, domain.BookingPending, &expiry)

		detail, err := repo.GetBookingDetail(ctx, bookingID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if detail.Tier != domain.TierGroup {
			t.Fatalf("tier = %s, want %s", detail.Tier, domain.TierGroup)
		}
		if detail.EventID != eventID || detail.EventTitle == "" {
			t.Fatalf("unexpected event context: %+v", detail)
		}
		if want := decimal.RequireFromString("48.00"); !detail.TotalPrice().Equal(want) {
			t.Fatalf("total = %s, want %s", detail.TotalPrice(), want)
		}

		if _, err := repo.GetBookingDetail(ctx, uuid.New()); !errors.Is(err, domain.ErrBookingNotFound) {
			t.Fatalf("expected ErrBookingNotFound, got %v", err)
		}
	})

	t.Run("ListBookingsByUser returns only the owner's rows, newest first", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		eventID := testutil.InsertEvent(t, ctx, pool, domain.EventPublished, startsAt)
		ttID := testutil.InsertTicketType(t, ctx, pool, eventID, domain.TierStandard, "19.99", 30, 6)
		expiry := time.Now().UTC().Add(48 * time.Hour)

		first := testutil.InsertBooking(t, ctx, pool, ttID, "user-1", 2, domain.BookingPending, &expiry)
		time.Sleep(10 * time.Millisecond)
		second := testutil.InsertBooking(t, ctx, pool, ttID, "user-1", 2, domain.BookingConfirmed, nil)
		testutil.InsertBooking(t, ctx, pool, ttID, "user-2", 2, domain.BookingPending, &expiry)

		list, err := repo.ListBookingsByUser(ctx, "user-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("len = %d, want 2", len(list))
		}
		if list[0].ID != second || list[1].ID != first {
			t.Fatalf("expected newest first, got %s then %s", list[0].ID, list[1].ID)
		}
	})

	t.Run("ListExpiredPending honors cutoff and limit", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		eventID := testutil.InsertEvent(t, ctx, pool, domain.EventPublished, startsAt)
		ttID := testutil.InsertTicketType(t, ctx, pool, eventID, domain.TierStandard, "19.99", 30, 8)
		now := time.Now().UTC()

		oldest := now.Add(-2 * time.Hour)
		older := now.Add(-time.Hour)
		future := now.Add(time.Hour)
		first := testutil.InsertBooking(t, ctx, pool, ttID, "user-1", 2, domain.BookingPending, &oldest)
		second := testutil.InsertBooking(t, ctx, pool, ttID, "user-2", 2, domain.BookingPending, &older)
		testutil.InsertBooking(t, ctx, pool, ttID, "user-3", 2, domain.BookingPending, &future)
		testutil.InsertBooking(t, ctx, pool, ttID, "user-4", 2, domain.BookingConfirmed, nil)

		ids, err := repo.ListExpiredPending(ctx, now, 10)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(ids) != 2 {
			t.Fatalf("len = %d, want 2", len(ids))
		}
		if ids[0] != first || ids[1] != second {
			t.Fatalf("expected oldest first, got %v", ids)
		}

		ids, err = repo.ListExpiredPending(ctx, now, 1)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(ids) != 1 || ids[0] != first {
			t.Fatalf("expected only the oldest, got %v", ids)
		}
	})
}
