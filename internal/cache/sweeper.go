package cache

import (
	"context"
	"log"
	"time"
)

// Sweeper runs periodic maintenance passes over a FileCache. It is an
// explicitly owned background task: callers start it with a context and stop
// it by cancelling that context, so tests can trigger a pass directly instead
// of waiting on the wall clock.
type Sweeper struct {
	cache    *FileCache
	interval time.Duration
}

// NewSweeper creates a sweeper over the given cache.
func NewSweeper(c *FileCache, interval time.Duration) *Sweeper {
	return &Sweeper{cache: c, interval: interval}
}

// Start runs one pass immediately, then on every interval tick until the
// context is cancelled. It blocks; run it in its own goroutine.
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
	res := s.cache.Sweep()
	if res.Corrupt+res.Expired+res.Evicted > 0 {
		log.Printf("cache sweep: corrupt=%d expired=%d evicted=%d", res.Corrupt, res.Expired, res.Evicted)
	}
}
