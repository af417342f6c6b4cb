package job

import (
	"context"
	"sync"
	"time"

	"linkpay/internal/core/domain"
	"linkpay/internal/core/ports"
	"linkpay/pkg/metrics"

	"github.com/rs/zerolog"
)

// Sweeper periodically expires overdue reminders and purges resolved
// balance and link requests past retention. Pay requests are kept because
// they back the notification feed.
type Sweeper struct {
	reminderRepo ports.ReminderRepository
	requestRepo  ports.RequestRepository
	interval     time.Duration
	retention    time.Duration
	metrics      *metrics.Metrics
	log          zerolog.Logger
	now          func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSweeper creates a sweeper. A non-positive retention disables purging.
func NewSweeper(
	reminderRepo ports.ReminderRepository,
	requestRepo ports.RequestRepository,
	interval, retention time.Duration,
	m *metrics.Metrics,
	log zerolog.Logger,
) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		reminderRepo: reminderRepo,
		requestRepo:  requestRepo,
		interval:     interval,
		retention:    retention,
		metrics:      m,
		log:          log.With().Str("job", "sweeper").Logger(),
		now:          func() time.Time { return time.Now().UTC() },
		stopCh:       make(chan struct{}),
	}
}

// Start runs one sweep immediately, then one per interval, until ctx is
// cancelled or Stop is called.
func (j *Sweeper) Start(ctx context.Context) {
	j.log.Info().Dur("interval", j.interval).Dur("retention", j.retention).Msg("sweeper started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			j.log.Info().Msg("sweeper stopped: context done")
			return
		case <-j.stopCh:
			j.log.Info().Msg("sweeper stopped")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// Stop ends Start. It is safe to call more than once.
func (j *Sweeper) Stop() {
	j.stopOnce.Do(func() { close(j.stopCh) })
}

// RunOnce performs a single sweep. Failures are logged; the next tick retries.
func (j *Sweeper) RunOnce(ctx context.Context) {
	now := j.now()

	expired, err := j.reminderRepo.ExpireBefore(ctx, domain.Day(now))
	if err != nil {
		j.log.Error().Err(err).Msg("expire reminders failed")
	} else if expired > 0 {
		j.metrics.SweeperAffected("expire_reminders", expired)
		j.log.Info().Int64("count", expired).Msg("reminders expired")
	}

	if j.retention <= 0 {
		return
	}
	purged, err := j.requestRepo.PurgeResolved(ctx,
		[]domain.RequestKind{domain.RequestBalance, domain.RequestLink},
		now.Add(-j.retention),
	)
	if err != nil {
		j.log.Error().Err(err).Msg("purge requests failed")
		return
	}
	if purged > 0 {
		j.metrics.SweeperAffected("purge_requests", purged)
		j.log.Info().Int64("count", purged).Msg("resolved requests purged")
	}
}
