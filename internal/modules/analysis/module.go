package analysis

import (
	"go.uber.org/fx"

	"capital_tracker/internal/modules/analysis/service"
)

func Module() fx.Option {
	return fx.Module("analysis",
		fx.Provide(
			service.NewAnalyzer,
		),
	)
}
