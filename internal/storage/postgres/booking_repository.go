package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tessera-tickets/tessera/internal/domain"
)

type BookingRepository struct {
	pool *pgxpool.Pool
	cfg  settings
}

func NewBookingRepository(pool *pgxpool.Pool, opts ...Option) *BookingRepository {
	return &BookingRepository{pool: pool, cfg: newSettings(opts)}
}

func (r *BookingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, r.cfg.lockTimeout, fn)
}

func (r *BookingRepository) GetTicketTypeWithEvent(ctx context.Context, ticketTypeID uuid.UUID) (domain.TicketType, domain.Event, error) {
	const query = `
SELECT tt.id, tt.event_id, tt.tier, tt.price, tt.quota, tt.sold, tt.created_at,
       e.id, e.title, e.starts_at, e.ends_at, e.status, e.created_at
FROM ticket_types tt
JOIN events e ON e.id = tt.event_id
WHERE tt.id = $1`

	var tt domain.TicketType
	var event domain.Event
	err := r.queryRow(ctx, query, ticketTypeID).Scan(
		&tt.ID, &tt.EventID, &tt.Tier, &tt.Price, &tt.Quota, &tt.Sold, &tt.CreatedAt,
		&event.ID, &event.Title, &event.StartsAt, &event.EndsAt, &event.Status, &event.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.TicketType{}, domain.Event{}, domain.ErrTicketTypeNotFound
		}
		return domain.TicketType{}, domain.Event{}, fmt.Errorf("get ticket type with event: %w", err)
	}
	return tt, event, nil
}

func (r *BookingRepository) CreateBooking(ctx context.Context, booking domain.Booking) error {
	const stmt = `
INSERT INTO bookings (id, ticket_type_id, user_id, quantity, status, expires_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.exec(ctx, stmt,
		booking.ID,
		booking.TicketTypeID,
		booking.UserID,
		booking.Quantity,
		booking.Status,
		booking.ExpiresAt,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrTicketTypeNotFound
		}
		if isCheckViolation(err) {
			return domain.ErrInvalidQuantity
		}
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// GetBookingForUpdate locks only the booking row; the joined ticket type
// and event rows stay unlocked so bookings of one event do not serialize
// behind each other.
func (r *BookingRepository) GetBookingForUpdate(ctx context.Context, bookingID uuid.UUID) (domain.Booking, domain.Event, error) {
	const query = `
SELECT b.id, b.ticket_type_id, b.user_id, b.quantity, b.status, b.expires_at, b.created_at, b.updated_at,
       e.id, e.title, e.starts_at, e.ends_at, e.status, e.created_at
FROM bookings b
JOIN ticket_types tt ON tt.id = b.ticket_type_id
JOIN events e ON e.id = tt.event_id
WHERE b.id = $1
FOR UPDATE OF b`

	var booking domain.Booking
	var event domain.Event
	err := r.queryRow(ctx, query, bookingID).Scan(
		&booking.ID, &booking.TicketTypeID, &booking.UserID, &booking.Quantity,
		&booking.Status, &booking.ExpiresAt, &booking.CreatedAt, &booking.UpdatedAt,
		&event.ID, &event.Title, &event.StartsAt, &event.EndsAt, &event.Status, &event.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Booking{}, domain.Event{}, domain.ErrBookingNotFound
		}
		return domain.Booking{}, domain.Event{}, fmt.Errorf("get booking: %w", err)
	}
	return booking, event, nil
}

func (r *BookingRepository) UpdateBookingState(ctx context.Context, booking domain.Booking) error {
	const stmt = `
UPDATE bookings
SET status = $2, expires_at = $3, updated_at = $4
WHERE id = $1`

	tag, err := r.exec(ctx, stmt, booking.ID, booking.Status, booking.ExpiresAt, booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update booking state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

const bookingDetailColumns = `
SELECT b.id, b.ticket_type_id, b.user_id, b.quantity, b.status, b.expires_at, b.created_at, b.updated_at,
       tt.tier, tt.price, e.id, e.title, e.starts_at
FROM bookings b
JOIN ticket_types tt ON tt.id = b.ticket_type_id
JOIN events e ON e.id = tt.event_id`

func (r *BookingRepository) GetBookingDetail(ctx context.Context, bookingID uuid.UUID) (domain.BookingDetail, error) {
	query := bookingDetailColumns + `
WHERE b.id = $1`

	detail, err := scanBookingDetail(r.queryRow(ctx, query, bookingID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.BookingDetail{}, domain.ErrBookingNotFound
		}
		return domain.BookingDetail{}, fmt.Errorf("get booking detail: %w", err)
	}
	return detail, nil
}

func (r *BookingRepository) ListBookingsByUser(ctx context.Context, userID string) ([]domain.BookingDetail, error) {
	query := bookingDetailColumns + `
WHERE b.user_id = $1
ORDER BY b.created_at DESC`

	rows, err := r.query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var details []domain.BookingDetail
	for rows.Next() {
		detail, err := scanBookingDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		details = append(details, detail)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate bookings: %w", rows.Err())
	}
	return details, nil
}

func (r *BookingRepository) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	const query = `
SELECT id
FROM bookings
WHERE status = 'PENDING' AND expires_at IS NOT NULL AND expires_at <= $1
ORDER BY expires_at ASC
LIMIT $2`

	rows, err := r.query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired pending: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan booking id: %w", err)
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate expired pending: %w", rows.Err())
	}
	return ids, nil
}

func scanBookingDetail(row pgx.Row) (domain.BookingDetail, error) {
	var d domain.BookingDetail
	err := row.Scan(
		&d.ID, &d.TicketTypeID, &d.UserID, &d.Quantity, &d.Status, &d.ExpiresAt, &d.CreatedAt, &d.UpdatedAt,
		&d.Tier, &d.Price, &d.EventID, &d.EventTitle, &d.EventStartsAt,
	)
	return d, err
}

func (r *BookingRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *BookingRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *BookingRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
