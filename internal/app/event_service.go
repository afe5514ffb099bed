package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tessera-tickets/tessera/internal/clock"
	"github.com/tessera-tickets/tessera/internal/domain"
)

// EventRepository is the persistence surface of the organizer/admin side:
// events and the ticket types sold against them.
type EventRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateEvent(ctx context.Context, event domain.Event) error
	GetEvent(ctx context.Context, eventID uuid.UUID) (domain.Event, error)
	GetEventForUpdate(ctx context.Context, eventID uuid.UUID) (domain.Event, error)
	UpdateEventStatus(ctx context.Context, eventID uuid.UUID, status domain.EventStatus) error
	ListEvents(ctx context.Context) ([]domain.Event, error)
	ListPublishedUpcoming(ctx context.Context, now time.Time) ([]domain.Event, error)

	CreateTicketType(ctx context.Context, ticketType domain.TicketType) error
	GetTicketTypeForUpdate(ctx context.Context, ticketTypeID uuid.UUID) (domain.TicketType, error)
	SetTicketTypeQuota(ctx context.Context, ticketTypeID uuid.UUID, quota int) error
	DeleteTicketType(ctx context.Context, ticketTypeID uuid.UUID) error
	ListTicketTypesByEvent(ctx context.Context, eventID uuid.UUID) ([]domain.TicketType, error)
}

type EventService struct {
	repo  EventRepository
	clock clock.Clock
}

func NewEventService(repo EventRepository, clk clock.Clock) *EventService {
	return &EventService{
		repo:  repo,
		clock: clk,
	}
}

type CreateEventInput struct {
	Title    string
	StartsAt time.Time
	EndsAt   time.Time
}

// CreateEvent records a new event in DRAFT status.
func (s *EventService) CreateEvent(ctx context.Context, in CreateEventInput) (domain.Event, error) {
	if in.Title == "" {
		return domain.Event{}, domain.ErrEventTitleRequired
	}
	if !in.EndsAt.After(in.StartsAt) {
		return domain.Event{}, domain.ErrInvalidEventWindow
	}

	event := domain.Event{
		ID:        uuid.New(),
		Title:     in.Title,
		StartsAt:  in.StartsAt,
		EndsAt:    in.EndsAt,
		Status:    domain.EventDraft,
		CreatedAt: s.clock.Now(),
	}

	if err := s.repo.CreateEvent(ctx, event); err != nil {
		return domain.Event{}, err
	}
	return event, nil
}

// PublishEvent moves a DRAFT event to PUBLISHED, making it visible to the
// public listing.
func (s *EventService) PublishEvent(ctx context.Context, eventID uuid.UUID) (domain.Event, error) {
	var result domain.Event
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		event, err := s.repo.GetEventForUpdate(txCtx, eventID)
		if err != nil {
			return err
		}
		if event.Status != domain.EventDraft {
			return domain.ErrEventNotPublishable
		}
		if err := s.repo.UpdateEventStatus(txCtx, eventID, domain.EventPublished); err != nil {
			return err
		}
		event.Status = domain.EventPublished
		result = event
		return nil
	})
	if err != nil {
		return domain.Event{}, err
	}
	return result, nil
}

// CancelEvent moves a DRAFT or PUBLISHED event to CANCELLED. Existing
// bookings keep their state; new bookings against the event are refused.
func (s *EventService) CancelEvent(ctx context.Context, eventID uuid.UUID) (domain.Event, error) {
	var result domain.Event
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		event, err := s.repo.GetEventForUpdate(txCtx, eventID)
		if err != nil {
			return err
		}
		if event.Status == domain.EventCancelled {
			return domain.ErrEventNotCancellable
		}
		if err := s.repo.UpdateEventStatus(txCtx, eventID, domain.EventCancelled); err != nil {
			return err
		}
		event.Status = domain.EventCancelled
		result = event
		return nil
	})
	if err != nil {
		return domain.Event{}, err
	}
	return result, nil
}

// GetEvent returns an event with its ticket types.
func (s *EventService) GetEvent(ctx context.Context, eventID uuid.UUID) (domain.Event, []domain.TicketType, error) {
	event, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return domain.Event{}, nil, err
	}
	ticketTypes, err := s.repo.ListTicketTypesByEvent(ctx, eventID)
	if err != nil {
		return domain.Event{}, nil, err
	}
	return event, ticketTypes, nil
}

// ListEvents returns every event regardless of status.
func (s *EventService) ListEvents(ctx context.Context) ([]domain.Event, error) {
	return s.repo.ListEvents(ctx)
}

// ListPublishedEvents returns PUBLISHED events that have not yet started.
func (s *EventService) ListPublishedEvents(ctx context.Context) ([]domain.Event, error) {
	return s.repo.ListPublishedUpcoming(ctx, s.clock.Now())
}

type CreateTicketTypeInput struct {
	EventID uuid.UUID
	Tier    domain.TicketTier
	Price   decimal.Decimal
	Quota   int
}

// CreateTicketType adds a sellable tier to an event. Each tier may appear
// at most once per event.
func (s *EventService) CreateTicketType(ctx context.Context, in CreateTicketTypeInput) (domain.TicketType, error) {
	if in.EventID == uuid.Nil {
		return domain.TicketType{}, domain.ErrInvalidID
	}
	if !domain.ValidTier(in.Tier) {
		return domain.TicketType{}, domain.ErrInvalidTier
	}
	if in.Price.IsNegative() {
		return domain.TicketType{}, domain.ErrInvalidPrice
	}
	if in.Quota < 0 {
		return domain.TicketType{}, domain.ErrInvalidQuota
	}

	ticketType := domain.TicketType{
		ID:        uuid.New(),
		EventID:   in.EventID,
		Tier:      in.Tier,
		Price:     in.Price,
		Quota:     in.Quota,
		Sold:      0,
		CreatedAt: s.clock.Now(),
	}

	if err := s.repo.CreateTicketType(ctx, ticketType); err != nil {
		return domain.TicketType{}, err
	}
	return ticketType, nil
}

// SetTicketTypeQuota changes a ticket type's quota. The quota may never
// drop below the current sold count, checked under the row lock so a
// concurrent reserve cannot slip in between.
func (s *EventService) SetTicketTypeQuota(ctx context.Context, ticketTypeID uuid.UUID, quota int) (domain.TicketType, error) {
	if quota < 0 {
		return domain.TicketType{}, domain.ErrInvalidQuota
	}

	var result domain.TicketType
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		ticketType, err := s.repo.GetTicketTypeForUpdate(txCtx, ticketTypeID)
		if err != nil {
			return err
		}
		if quota < ticketType.Sold {
			return domain.ErrQuotaBelowSold
		}
		if err := s.repo.SetTicketTypeQuota(txCtx, ticketTypeID, quota); err != nil {
			return err
		}
		ticketType.Quota = quota
		result = ticketType
		return nil
	})
	if err != nil {
		return domain.TicketType{}, err
	}
	return result, nil
}

// DeleteTicketType removes a tier that never sold. Booking history is
// preserved, so any tier with bookings on record stays.
func (s *EventService) DeleteTicketType(ctx context.Context, ticketTypeID uuid.UUID) error {
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		ticketType, err := s.repo.GetTicketTypeForUpdate(txCtx, ticketTypeID)
		if err != nil {
			return err
		}
		if ticketType.Sold > 0 {
			return domain.ErrTicketTypeHasSales
		}
		return s.repo.DeleteTicketType(txCtx, ticketTypeID)
	})
}

// ListAvailableTicketTypes returns the event's tiers that still have
// unreserved quota.
func (s *EventService) ListAvailableTicketTypes(ctx context.Context, eventID uuid.UUID) ([]domain.TicketType, error) {
	if _, err := s.repo.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	ticketTypes, err := s.repo.ListTicketTypesByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	available := make([]domain.TicketType, 0, len(ticketTypes))
	for _, ticketType := range ticketTypes {
		if ticketType.Available() > 0 {
			available = append(available, ticketType)
		}
	}
	return available, nil
}
