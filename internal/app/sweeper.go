package app

import (
	"context"
	"log"
	"time"

	"github.com/tessera-tickets/tessera/internal/monitoring"
)

// Sweeper periodically cancels pending bookings whose expiry horizon has
// lapsed, releasing their quantities back to the quota.
type Sweeper struct {
	bookings *BookingService
	interval time.Duration
	limit    int
	logger   *log.Logger
}

func NewSweeper(bookings *BookingService, interval time.Duration, limit int, logger *log.Logger) *Sweeper {
	return &Sweeper{
		bookings: bookings,
		interval: interval,
		limit:    limit,
		logger:   logger,
	}
}

// Run sweeps immediately, then once per interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	start := time.Now()
	swept, err := s.bookings.SweepExpired(ctx, s.limit)
	monitoring.ObserveSweep(time.Since(start), swept)
	if err != nil {
		s.logger.Printf("expiry sweep: %v", err)
	}
	if swept > 0 {
		s.logger.Printf("expiry sweep cancelled %d lapsed bookings", swept)
	}
}
