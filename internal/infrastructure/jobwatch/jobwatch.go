package jobwatch

import (
	"context"
	"time"

	"github.com/mileusna/crontab"
	"github.com/rs/zerolog"

	"github.com/hivoco/lens-kiosk/internal/domain/jobs"
	"github.com/hivoco/lens-kiosk/internal/infrastructure/metrics"
	"github.com/hivoco/lens-kiosk/internal/utils/platformerrors"
)

// PollTimeout bounds one poll of the video backend.
const PollTimeout = 30 * time.Second

// Watched are the statuses whose totals are exported.
var Watched = []jobs.Status{jobs.StatusFailed, jobs.StatusQueued}

// Counter returns the number of jobs in a status.
type Counter interface {
	Count(ctx context.Context, status jobs.Status) (int, error)
}

// Watcher periodically exports video job totals as gauges.
type Watcher struct {
	counter  Counter
	schedule string
	enabled  bool
	log      zerolog.Logger
}

// New creates a watcher firing on a five-field cron schedule.
func New(counter Counter, schedule string, enabled bool, log zerolog.Logger) *Watcher {
	return &Watcher{
		counter:  counter,
		schedule: schedule,
		enabled:  enabled,
		log:      log.With().Str("component", "job-watch").Logger(),
	}
}

// Run polls once, then on every schedule tick until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.enabled {
		<-ctx.Done()
		return nil
	}

	ctab := crontab.New()
	if err := ctab.AddJob(w.schedule, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), PollTimeout)
		defer cancel()
		w.Poll(jobCtx)
	}); err != nil {
		ctab.Shutdown()
		return platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "failed to schedule job watch")
	}
	w.log.Info().Str("schedule", w.schedule).Msg("job watch scheduled")

	w.Poll(ctx)

	<-ctx.Done()
	ctab.Shutdown()
	return nil
}

// Poll fetches the watched totals once. Failures are logged and counted;
// the previous gauge values are kept.
func (w *Watcher) Poll(ctx context.Context) {
	for _, status := range Watched {
		total, err := w.counter.Count(ctx, status)
		if err != nil {
			metrics.RecordJobWatchError()
			w.log.Warn().Err(err).Str("status", string(status)).Msg("job watch poll failed")
			continue
		}
		metrics.SetVideoJobs(string(status), total)
	}
}
