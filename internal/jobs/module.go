package jobs

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"

	"github.com/corpora-dev/corpora/internal/config"
	"github.com/corpora-dev/corpora/pkg/logger"
)

// Module provides the ingestion job queue and progress broadcaster.
// The worker pool that drains the queue lives with the ingestion domain.
var Module = fx.Module("jobs",
	fx.Provide(
		newQueueFromConfig,
		NewBroadcaster,
	),
	fx.Invoke(registerLifecycle),
)

func newQueueFromConfig(cfg *config.Config, log *slog.Logger) *Queue {
	return NewQueue(cfg.Ingest.QueueCapacity, log)
}

// registerLifecycle starts the broadcaster and schedules periodic eviction
// of old terminal job statuses.
func registerLifecycle(lc fx.Lifecycle, b *Broadcaster, queue *Queue, cfg *config.Config, log *slog.Logger) {
	scheduler := cron.New()
	retention := cfg.Ingest.JobRetention

	_, err := scheduler.AddFunc(cfg.Ingest.CleanupSchedule, func() {
		queue.Cleanup(retention)
	})
	if err != nil {
		log.With(logger.Scope("jobs")).Warn("invalid cleanup schedule, cleanup disabled",
			slog.String("schedule", cfg.Ingest.CleanupSchedule),
			logger.Error(err))
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			b.Start()
			scheduler.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			<-scheduler.Stop().Done()
			b.Stop()
			return nil
		},
	})
}
