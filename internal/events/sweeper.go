package events

import (
	"context"
	"log"
	"time"
)

// Sweeper periodically expires old events. Same lifecycle contract as the
// cache sweeper: started with a context, stopped by cancelling it.
type Sweeper struct {
	store    *Store
	interval time.Duration
}

// NewSweeper creates a sweeper over the given store.
func NewSweeper(st *Store, interval time.Duration) *Sweeper {
	return &Sweeper{store: st, interval: interval}
}

// Start runs one pass immediately, then on every tick until the context is
// cancelled. It blocks; run it in its own goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	s.runOnce()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runOnce()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sweeper) runOnce() {
	res := s.store.Sweep()
	if res.Expired+res.Corrupt > 0 {
		log.Printf("event sweep: expired=%d corrupt=%d", res.Expired, res.Corrupt)
	}
}
