package reindex

import (
	"go.uber.org/fx"
)

// Module provides reindex dependencies via fx
var Module = fx.Module("reindex",
	fx.Provide(
		NewService,
		NewHandler,
	),
	fx.Invoke(RegisterRoutes),
)
