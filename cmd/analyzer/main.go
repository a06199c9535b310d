package main

import (
	"context"
	"flag"
	"log"

	"go.uber.org/fx"

	"capital_tracker/internal/helper"
	"capital_tracker/internal/modules/analysis"
	"capital_tracker/internal/modules/config"
	"capital_tracker/internal/modules/fetcher"
	"capital_tracker/internal/modules/health"
	"capital_tracker/internal/modules/postgres"
	"capital_tracker/internal/modules/storage"
	"capital_tracker/internal/runner"
	"capital_tracker/pkg/logger"
	"capital_tracker/pkg/tracing"
)

func main() {
	live := flag.Bool("live", false, "consume the live tick stream instead of daily history")
	flag.Parse()

	date := helper.Today()
	if args := flag.Args(); len(args) > 0 {
		d, ok := helper.NormDate(args[0])
		if !ok {
			log.Fatalf("bad date %q, want YYYY-MM-DD or YYYYMMDD", args[0])
		}
		date = d
	}

	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()
	logger.SetServiceName("capital_tracker")
	tracing.SetServiceName("capital_tracker")

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		fx.Supply(runner.Params{Date: date, Live: *live}),
		config.Module(),
		postgres.Module(),
		storage.Module(),
		fetcher.Module(),
		analysis.Module(),
		health.Module(),
		runner.Module(),
		fx.Invoke(initTracing),
	)
	app.Run()
}

func initTracing(lc fx.Lifecycle, cfg *config.Config) error {
	if cfg.Jaeger.Host == "" {
		return nil
	}
	_, closeTracer, err := tracing.InitTracer(tracing.Config{
		Host: cfg.Jaeger.Host,
		Port: cfg.Jaeger.Port,
	})
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closeTracer()
			return nil
		},
	})
	return nil
}
