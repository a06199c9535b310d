package runner

import (
	"context"

	"go.uber.org/fx"

	"capital_tracker/internal/notify"
	"capital_tracker/pkg/logger"
)

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			notify.NewTelegram,
			NewRunner,
		),
		fx.Invoke(func(
			lc fx.Lifecycle,
			sh fx.Shutdowner,
			r *Runner,
			params Params,
			ctx context.Context,
		) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go func() {
						var err error
						if params.Live {
							err = r.RunLive(ctx, params.Date)
						} else {
							err = r.RunDaily(ctx, params.Date)
						}

						code := 0
						if err != nil {
							logger.Error("run failed: %v", err)
							code = 1
						}
						_ = sh.Shutdown(fx.ExitCode(code))
					}()
					return nil
				},
			})
		}),
	)
}
