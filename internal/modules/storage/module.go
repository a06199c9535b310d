package storage

import (
	"context"

	"go.uber.org/fx"

	"capital_tracker/internal/modules/storage/service"
)

func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(
			service.NewStore,
		),
		fx.Invoke(func(lc fx.Lifecycle, store *service.Store) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					return store.EnsureSchema(ctx)
				},
			})
		}),
	)
}
