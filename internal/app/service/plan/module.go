package plan

import (
	"context"

	"go.uber.org/fx"
)

// Module exposes the plan catalog via Fx and seeds it on startup.
var Module = fx.Options(
	fx.Provide(NewService),
	fx.Invoke(func(s *Service) error {
		return s.Seed(context.Background())
	}),
)
