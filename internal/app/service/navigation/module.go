package navigation

import "go.uber.org/fx"

// Module exposes the navigation service via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
)
