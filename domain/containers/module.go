package containers

import (
	"go.uber.org/fx"
)

var Module = fx.Module("containers",
	fx.Provide(
		NewRepository,
		NewService,
		NewHandler,
	),
	fx.Invoke(RegisterRoutes),
)
