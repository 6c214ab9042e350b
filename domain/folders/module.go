package folders

import (
	"go.uber.org/fx"
)

var Module = fx.Module("folders",
	fx.Provide(
		NewRepository,
		NewService,
		NewHandler,
	),
	fx.Invoke(RegisterRoutes),
)
