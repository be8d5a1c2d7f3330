package ledger

import (
	"context"
	"log"
	"time"

	"github.com/cloudx-io/auctionhouse/core"
)

// Scheduler drives forced finalization: on every tick it finalizes, as the
// configured operator, every Open auction whose deadline has passed. A
// finalize that fails (for example a rejecting payee) is logged and retried
// on the next tick; the ledger guarantees the auction is still Open.
type Scheduler struct {
	ledger   *Ledger
	operator core.Account
	interval time.Duration
}

// NewScheduler builds a scheduler sweeping at the given interval.
func NewScheduler(l *Ledger, operator core.Account, interval time.Duration) *Scheduler {
	return &Scheduler{ledger: l, operator: operator, interval: interval}
}

// Run sweeps until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("INFO: Finalization scheduler started (interval: %s, operator: %s)", s.interval, s.operator)
	for {
		select {
		case <-ctx.Done():
			log.Printf("INFO: Finalization scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep finalizes all currently expired Open auctions and reports how many
// settled.
func (s *Scheduler) Sweep(ctx context.Context) int {
	finalized := 0
	for _, id := range s.ledger.ExpiredOpen() {
		if err := s.ledger.Finalize(ctx, s.operator, id); err != nil {
			log.Printf("ERROR: Scheduled finalize of auction %d failed: %v", id, err)
			continue
		}
		finalized++
	}
	return finalized
}
