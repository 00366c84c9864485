package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// IdleReaper deletes sessions that have not been touched since a cutoff.
type IdleReaper interface {
	ReapIdle(ctx context.Context, cutoff time.Time) (int, error)
}

// Reaper periodically removes stale capture sessions. Deleting a session
// releases any camera it holds and aborts its in-flight submission.
type Reaper struct {
	sessions  IdleReaper
	staleTTL  time.Duration
	interval  time.Duration
	now       func() time.Time
	onReap    func(n int)
	log       zerolog.Logger
	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewReaper creates a new stale session reaper.
func NewReaper(sessions IdleReaper, staleTTL, interval time.Duration, log zerolog.Logger) *Reaper {
	return &Reaper{
		sessions: sessions,
		staleTTL: staleTTL,
		interval: interval,
		now:      time.Now,
		log:      log.With().Str("component", "session-reaper").Logger(),
		done:     make(chan struct{}),
	}
}

// OnReap registers a callback receiving the number of sessions removed per sweep.
func (r *Reaper) OnReap(fn func(n int)) { r.onReap = fn }

// Start begins the sweep loop in background.
// Safe to call multiple times - only the first call starts the reaper.
func (r *Reaper) Start(ctx context.Context) {
	r.startOnce.Do(func() {
		r.wg.Add(1)
		go r.run(ctx)
		r.log.Info().Dur("interval", r.interval).Dur("stale_ttl", r.staleTTL).Msg("session reaper started")
	})
}

// Stop gracefully shuts down the reaper.
// Safe to call multiple times - only the first call stops the reaper.
func (r *Reaper) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
		r.log.Info().Msg("session reaper stopped")
	})
}

func (r *Reaper) run(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Debug().Msg("context cancelled, shutting down reaper")
			return
		case <-r.done:
			r.log.Debug().Msg("done signal received, shutting down reaper")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep runs one cleanup pass and returns the number of sessions removed.
func (r *Reaper) Sweep(ctx context.Context) int {
	cutoff := r.now().Add(-r.staleTTL)
	n, err := r.sessions.ReapIdle(ctx, cutoff)
	if err != nil {
		r.log.Error().Err(err).Int("reaped", n).Msg("stale session sweep failed")
	}
	if n > 0 {
		r.log.Info().Int("stale_deleted", n).Time("cutoff", cutoff).Msg("session cleanup")
	}
	if r.onReap != nil {
		r.onReap(n)
	}
	return n
}
