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

type EventRepository struct {
	pool *pgxpool.Pool
	cfg  settings
}

func NewEventRepository(pool *pgxpool.Pool, opts ...Option) *EventRepository {
	return &EventRepository{pool: pool, cfg: newSettings(opts)}
}

func (r *EventRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, r.cfg.lockTimeout, fn)
}

func (r *EventRepository) CreateEvent(ctx context.Context, event domain.Event) error {
	const stmt = `
INSERT INTO events (id, title, starts_at, ends_at, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.exec(ctx, stmt, event.ID, event.Title, event.StartsAt, event.EndsAt, event.Status, event.CreatedAt)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrInvalidEventWindow
		}
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

const eventColumns = `id, title, starts_at, ends_at, status, created_at`

func (r *EventRepository) GetEvent(ctx context.Context, eventID uuid.UUID) (domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return r.scanEvent(r.queryRow(ctx, query, eventID))
}

func (r *EventRepository) GetEventForUpdate(ctx context.Context, eventID uuid.UUID) (domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 FOR UPDATE`
	return r.scanEvent(r.queryRow(ctx, query, eventID))
}

func (r *EventRepository) scanEvent(row pgx.Row) (domain.Event, error) {
	var event domain.Event
	err := row.Scan(&event.ID, &event.Title, &event.StartsAt, &event.EndsAt, &event.Status, &event.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Event{}, domain.ErrEventNotFound
		}
		return domain.Event{}, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) UpdateEventStatus(ctx context.Context, eventID uuid.UUID, status domain.EventStatus) error {
	const stmt = `UPDATE events SET status = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, eventID, status)
	if err != nil {
		return fmt.Errorf("update event status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (r *EventRepository) ListEvents(ctx context.Context) ([]domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY created_at ASC`

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return collectEvents(rows)
}

func (r *EventRepository) ListPublishedUpcoming(ctx context.Context, now time.Time) ([]domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE status = 'PUBLISHED' AND starts_at > $1 ORDER BY starts_at ASC`

	rows, err := r.query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("list published events: %w", err)
	}
	return collectEvents(rows)
}

func collectEvents(rows pgx.Rows) ([]domain.Event, error) {
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var event domain.Event
		if err := rows.Scan(&event.ID, &event.Title, &event.StartsAt, &event.EndsAt, &event.Status, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, event)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate events: %w", rows.Err())
	}
	return events, nil
}

func (r *EventRepository) CreateTicketType(ctx context.Context, ticketType domain.TicketType) error {
	const stmt = `
INSERT INTO ticket_types (id, event_id, tier, price, quota, sold, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.exec(ctx, stmt,
		ticketType.ID,
		ticketType.EventID,
		ticketType.Tier,
		ticketType.Price,
		ticketType.Quota,
		ticketType.Sold,
		ticketType.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrTicketTypeExists
		}
		if isForeignKeyViolation(err) {
			return domain.ErrEventNotFound
		}
		return fmt.Errorf("create ticket type: %w", err)
	}
	return nil
}

func (r *EventRepository) GetTicketTypeForUpdate(ctx context.Context, ticketTypeID uuid.UUID) (domain.TicketType, error) {
	const query = `
SELECT id, event_id, tier, price, quota, sold, created_at
FROM ticket_types
WHERE id = $1
FOR UPDATE`

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

func (r *EventRepository) SetTicketTypeQuota(ctx context.Context, ticketTypeID uuid.UUID, quota int) error {
	const stmt = `UPDATE ticket_types SET quota = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, ticketTypeID, quota)
	if err != nil {
		// The sold <= quota table constraint backstops the service check.
		if isCheckViolation(err) {
			return domain.ErrQuotaBelowSold
		}
		return fmt.Errorf("set ticket type quota: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTicketTypeNotFound
	}
	return nil
}

func (r *EventRepository) DeleteTicketType(ctx context.Context, ticketTypeID uuid.UUID) error {
	const stmt = `DELETE FROM ticket_types WHERE id = $1`

	tag, err := r.exec(ctx, stmt, ticketTypeID)
	if err != nil {
		// Booking rows reference the tier with ON DELETE RESTRICT; any
		// booking history, even fully cancelled, keeps the tier on record.
		if isForeignKeyViolation(err) {
			return domain.ErrTicketTypeHasSales
		}
		return fmt.Errorf("delete ticket type: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTicketTypeNotFound
	}
	return nil
}

func (r *EventRepository) ListTicketTypesByEvent(ctx context.Context, eventID uuid.UUID) ([]domain.TicketType, error) {
	const query = `
SELECT id, event_id, tier, price, quota, sold, created_at
FROM ticket_types
WHERE event_id = $1
ORDER BY created_at ASC`

	rows, err := r.query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("list ticket types: %w", err)
	}
	defer rows.Close()

	var ticketTypes []domain.TicketType
	for rows.Next() {
		var tt domain.TicketType
		if err := rows.Scan(&tt.ID, &tt.EventID, &tt.Tier, &tt.Price, &tt.Quota, &tt.Sold, &tt.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ticket type: %w", err)
		}
		ticketTypes = append(ticketTypes, tt)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate ticket types: %w", rows.Err())
	}
	return ticketTypes, nil
}

func (r *EventRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *EventRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *EventRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
