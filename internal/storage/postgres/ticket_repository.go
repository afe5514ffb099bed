package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tessera-tickets/tessera/internal/domain"
)

// TicketRepository is the inventory ledger. The sold counter moves only
// through Reserve and Release, each a single guarded UPDATE, so the
// 0 <= sold <= quota invariant holds at every observable instant.
type TicketRepository struct {
	pool *pgxpool.Pool
	cfg  settings
}

func NewTicketRepository(pool *pgxpool.Pool, opts ...Option) *TicketRepository {
	return &TicketRepository{pool: pool, cfg: newSettings(opts)}
}

func (r *TicketRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, r.cfg.lockTimeout, fn)
}

// Reserve adds quantity to sold unless that would exceed the quota. The
// guard rides in the UPDATE itself, so two concurrent reserves for the
// last seats cannot both pass a stale check.
func (r *TicketRepository) Reserve(ctx context.Context, ticketTypeID uuid.UUID, quantity int) error {
	const stmt = `
UPDATE ticket_types
SET sold = sold + $2
WHERE id = $1 AND sold + $2 <= quota`

	tag, err := r.exec(ctx, stmt, ticketTypeID, quantity)
	if err != nil {
		return fmt.Errorf("reserve tickets: %w", err)
	}
	if tag.RowsAffected() == 0 {
		const existsQuery = `SELECT EXISTS (SELECT 1 FROM ticket_types WHERE id = $1)`
		var exists bool
		if err := r.queryRow(ctx, existsQuery, ticketTypeID).Scan(&exists); err != nil {
			return fmt.Errorf("check ticket type: %w", err)
		}
		if !exists {
			return domain.ErrTicketTypeNotFound
		}
		return domain.ErrInsufficientQuota
	}
	return nil
}

// Release subtracts quantity from sold, clamping at zero.
func (r *TicketRepository) Release(ctx context.Context, ticketTypeID uuid.UUID, quantity int) error {
	const stmt = `
UPDATE ticket_types
SET sold = GREATEST(sold - $2, 0)
WHERE id = $1`

	tag, err := r.exec(ctx, stmt, ticketTypeID, quantity)
	if err != nil {
		return fmt.Errorf("release tickets: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTicketTypeNotFound
	}
	return nil
}

// GetTicketType returns the current ledger row.
func (r *TicketRepository) GetTicketType(ctx context.Context, ticketTypeID uuid.UUID) (domain.TicketType, error) {
	const query = `
SELECT id, event_id, tier, price, quota, sold, created_at
FROM ticket_types
WHERE id = $1`

	var tt domain.TicketType
	err := r.queryRow(ctx, query, ticketTypeID).Scan(
		&tt.ID, &tt.EventID, &tt.Tier, &tt.Price, &tt.Quota, &tt.Sold, &tt.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.TicketType{}, domain.ErrTicketTypeNotFound
		}
		return domain.TicketType{}, fmt.Errorf("get ticket type: %w", err)
	}
	return tt, nil
}

// SumBookedQuantity sums the quantities of PENDING and CONFIRMED bookings
// for a ticket type. The result must always reconcile with the sold
// counter; the ledger is authoritative, the booking rows explain it.
func (r *TicketRepository) SumBookedQuantity(ctx context.Context, ticketTypeID uuid.UUID) (int, error) {
	const query = `
SELECT COALESCE(SUM(quantity), 0)
FROM bookings
WHERE ticket_type_id = $1 AND status IN ('PENDING', 'CONFIRMED')`

	var total int
	if err := r.queryRow(ctx, query, ticketTypeID).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum booked quantity: %w", err)
	}
	return total, nil
}

func (r *TicketRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *TicketRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
