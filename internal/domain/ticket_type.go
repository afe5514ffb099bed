package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TicketTier string

const (
	TierStandard  TicketTier = "STANDARD"
	TierVIP       TicketTier = "VIP"
	TierEarlyBird TicketTier = "EARLY_BIRD"
	TierStudent   TicketTier = "STUDENT"
	TierGroup     TicketTier = "GROUP"
)

// ValidTier reports whether t is one of the sellable tiers.
func ValidTier(t TicketTier) bool {
	switch t {
	case TierStandard, TierVIP, TierEarlyBird, TierStudent, TierGroup:
		return true
	}
	return false
}

// TicketType is the sellable inventory unit for one event tier.
// Sold counts tickets held by PENDING and CONFIRMED bookings; the ledger
// keeps 0 <= Sold <= Quota at every observable instant.
type TicketType struct {
	ID        uuid.UUID
	EventID   uuid.UUID
	Tier      TicketTier
	Price     decimal.Decimal
	Quota     int
	Sold      int
	CreatedAt time.Time
}

// Available returns the quantity still open for reservation.
func (t TicketType) Available() int {
	return t.Quota - t.Sold
}
