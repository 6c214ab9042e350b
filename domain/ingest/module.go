package ingest

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("ingest",
	fx.Provide(
		NewPipeline,
		NewPool,
		NewHandler,
	),
	fx.Invoke(
		RegisterRoutes,
		runPool,
	),
)

// runPool ties the worker pool to the application lifecycle. It starts
// after the settings service has loaded so the worker count reflects the
// persisted configuration.
func runPool(lc fx.Lifecycle, pool *Pool) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			pool.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			pool.Stop()
			return nil
		},
	})
}
