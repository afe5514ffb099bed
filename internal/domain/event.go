package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventStatus string

const (
	EventDraft     EventStatus = "DRAFT"
	EventPublished EventStatus = "PUBLISHED"
	EventCancelled EventStatus = "CANCELLED"
)

// Event is the read-only context the booking core needs: start time for
// expiry and past-event guards, status to refuse cancelled events.
type Event struct {
	ID        uuid.UUID
	Title     string
	StartsAt  time.Time
	EndsAt    time.Time
	Status    EventStatus
	CreatedAt time.Time
}

// HasStarted reports whether the event start time has been reached.
func (e Event) HasStarted(now time.Time) bool {
	return !e.StartsAt.After(now)
}

// CheckBookable rejects bookings against cancelled or already started events.
func (e Event) CheckBookable(now time.Time) error {
	if e.Status == EventCancelled {
		return ErrEventNotBookable
	}
	if e.HasStarted(now) {
		return ErrEventNotBookable
	}
	return nil
}
