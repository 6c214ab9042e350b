package settings

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("settings",
	fx.Provide(
		NewRepository,
		NewService,
		NewHandler,
	),
	fx.Invoke(
		RegisterRoutes,
		loadOnStart,
	),
)

// loadOnStart overlays persisted settings onto defaults during startup
func loadOnStart(lc fx.Lifecycle, svc *Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return svc.Load(ctx)
		},
	})
}
