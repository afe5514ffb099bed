package app

import "time"

// DefaultExpiryBefore is how long before event start a pending booking
// lapses unless confirmed.
const DefaultExpiryBefore = 24 * time.Hour

// ExpiryPolicy computes the expiry horizon for pending bookings as a fixed
// offset before the event start.
type ExpiryPolicy struct {
	Before time.Duration
}

// DefaultExpiryPolicy returns the standard 24h-before-start policy.
func DefaultExpiryPolicy() ExpiryPolicy {
	return ExpiryPolicy{Before: DefaultExpiryBefore}
}

// DeadlineFor returns the expiry horizon for a booking made now against an
// event starting at startsAt. The second return is false when the horizon
// would already have passed, meaning the event is too close to start for a
// pending window to exist at all.
func (p ExpiryPolicy) DeadlineFor(startsAt, now time.Time) (time.Time, bool) {
	deadline := startsAt.Add(-p.Before)
	if !deadline.After(now) {
		return time.Time{}, false
	}
	return deadline, true
}
