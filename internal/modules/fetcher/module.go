package fetcher

import (
	"go.uber.org/fx"

	"capital_tracker/internal/modules/fetcher/service"
)

func Module() fx.Option {
	return fx.Module("fetcher",
		fx.Provide(
			service.NewClient,
			service.NewPreprocessor,
		),
	)
}
