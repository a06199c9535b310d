package runner

import (
	"context"
	"sort"
	"time"

	"capital_tracker/internal/modules/config"
	"capital_tracker/internal/notify"
	"capital_tracker/pkg/logger"

	analysis "capital_tracker/internal/modules/analysis/service"
)

// RunLive — интрадей-режим: тики из WebSocket кормят по сессии на символ,
// по отмене контекста сессии закрываются и результаты сохраняются как
// обычный дневной прогон.
func (r *Runner) RunLive(ctx context.Context, date string) error {
	symbols, err := config.LoadWatchlist(r.cfg.Runner.SymbolsFile)
	if err != nil {
		return err
	}

	codes := make([]string, 0, len(symbols))
	floatCaps := make(map[string]float64, len(symbols))
	for _, s := range symbols {
		codes = append(codes, s.Code)
		floatCaps[s.Code] = s.FloatMarketCap
	}

	stream := r.fetch.StreamTicks(ctx, codes)
	r.health.SetWSConnected(true)
	r.health.SetReady(true)

	sessions := make(map[string]*analysis.Session, len(codes))
	var count int64

	for t := range stream {
		s, ok := sessions[t.Symbol]
		if !ok {
			s = r.analyzer.NewSession(t.Symbol, date)
			sessions[t.Symbol] = s
		}
		s.Feed(t)
		count++
	}
	r.health.SetWSConnected(false)
	logger.Info("live stream closed after %d ticks, finishing %d sessions", count, len(sessions))

	// детерминированный порядок закрытия
	keys := make([]string, 0, len(sessions))
	for k := range sessions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// поток уже закрыт, на сохранение даём отдельный срок
	saveCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, code := range keys {
		history, err := r.store.LoadCostHistory(saveCtx, code, date, r.maxPeriod())
		if err != nil {
			logger.Error("cost history %s: %v", code, err)
			history = nil
		}
		result := sessions[code].Finish(history, floatCaps[code])
		if err := r.store.SaveResult(saveCtx, result); err != nil {
			logger.Error("save result %s %s: %v", code, date, err)
			continue
		}
		r.health.SessionDone(time.Now())
		r.n.Send(notify.Summary(result))
	}
	return nil
}
