package runner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opentracing/opentracing-go"

	"capital_tracker/internal/models"
	"capital_tracker/internal/modules/config"
	"capital_tracker/internal/notify"
	"capital_tracker/pkg/logger"

	analysis "capital_tracker/internal/modules/analysis/service"
	fetcher "capital_tracker/internal/modules/fetcher/service"
	health "capital_tracker/internal/modules/health/service"
	storage "capital_tracker/internal/modules/storage/service"
)

// Params — аргументы запуска из CLI.
type Params struct {
	Date string
	Live bool
}

// Runner гоняет дневной анализ по watchlist: по сессии на символ,
// символы независимы и идут параллельно. Ошибка одного символа — это
// лог и счётчик, не падение прогона.
type Runner struct {
	cfg      *config.Config
	analyzer *analysis.Analyzer
	fetch    *fetcher.Client
	pre      *fetcher.Preprocessor
	store    *storage.Store
	n        *notify.Telegram
	health   *health.State
}

func NewRunner(
	cfg *config.Config,
	analyzer *analysis.Analyzer,
	fetch *fetcher.Client,
	pre *fetcher.Preprocessor,
	store *storage.Store,
	n *notify.Telegram,
	state *health.State,
) *Runner {
	return &Runner{
		cfg:      cfg,
		analyzer: analyzer,
		fetch:    fetch,
		pre:      pre,
		store:    store,
		n:        n,
		health:   state,
	}
}

// RunDaily — один прогон за дату. Ошибку возвращает, когда не читается
// watchlist или не получился ни один символ: частичные сбои — предупреждения.
func (r *Runner) RunDaily(ctx context.Context, date string) error {
	symbols, err := config.LoadWatchlist(r.cfg.Runner.SymbolsFile)
	if err != nil {
		return fmt.Errorf("RunDaily: %w", err)
	}

	logger.Info("daily run %s: %d symbols, parallelism %d", date, len(symbols), r.cfg.Runner.Parallelism)
	r.health.SetReady(true)

	var (
		wg     sync.WaitGroup
		okCnt  atomic.Int64
		failed atomic.Int64
	)
	sem := make(chan struct{}, r.cfg.Runner.Parallelism)

	for _, sym := range symbols {
		wg.Add(1)
		go func(sym config.WatchSymbol) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := r.runSymbol(ctx, sym, date); err != nil {
				failed.Add(1)
				logger.Error("symbol %s failed: %v", sym.Code, err)
				return
			}
			okCnt.Add(1)
		}(sym)
	}
	wg.Wait()

	logger.Info("daily run %s done: %d ok, %d failed", date, okCnt.Load(), failed.Load())
	if okCnt.Load() == 0 {
		return fmt.Errorf("RunDaily: no symbol produced a result for %s", date)
	}
	return nil
}

func (r *Runner) runSymbol(ctx context.Context, sym config.WatchSymbol, date string) error {
	span := opentracing.StartSpan("daily_analysis")
	span.SetTag("symbol", sym.Code)
	span.SetTag("date", date)
	defer span.Finish()
	ctx = opentracing.ContextWithSpan(ctx, span)

	ticks, fetched, err := r.loadOrFetch(ctx, sym.Code, date)
	if err != nil {
		return err
	}
	ticks = r.pre.Prepare(ticks)
	if len(ticks) == 0 {
		return fmt.Errorf("no tick data for %s %s", sym.Code, date)
	}
	if fetched {
		if err := r.store.SaveTicks(ctx, date, ticks); err != nil {
			// лента не сохранилась — анализ всё равно имеет смысл
			logger.Error("save ticks %s %s: %v", sym.Code, date, err)
		}
	}

	history, err := r.store.LoadCostHistory(ctx, sym.Code, date, r.maxPeriod())
	if err != nil {
		return err
	}

	result := r.analyzer.AnalyzeDay(sym.Code, date, ticks, history, sym.FloatMarketCap)

	if err := r.store.SaveResult(ctx, result); err != nil {
		return err
	}

	r.health.SessionDone(time.Now())
	r.n.Send(notify.Summary(result))
	return nil
}

func (r *Runner) loadOrFetch(ctx context.Context, symbol, date string) (ticks []models.Tick, fetched bool, err error) {
	has, err := r.store.HasTicks(ctx, symbol, date)
	if err != nil {
		return nil, false, err
	}
	if has {
		ticks, err = r.store.LoadTicks(ctx, symbol, date)
		return ticks, false, err
	}
	ticks, err = r.fetch.FetchTicks(ctx, symbol, date)
	return ticks, true, err
}

func (r *Runner) maxPeriod() int {
	max := 0
	for _, p := range r.cfg.Analysis.MAPeriods {
		if p > max {
			max = p
		}
	}
	return max
}
