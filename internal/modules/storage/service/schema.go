package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS ticks (
		symbol      TEXT             NOT NULL,
		ts          TIMESTAMPTZ      NOT NULL,
		date        TEXT             NOT NULL,
		price       DOUBLE PRECISION NOT NULL,
		volume      BIGINT           NOT NULL,
		amount      DOUBLE PRECISION NOT NULL,
		direction   TEXT             NOT NULL,
		bid1_price  DOUBLE PRECISION NOT NULL DEFAULT 0,
		bid1_volume BIGINT           NOT NULL DEFAULT 0,
		ask1_price  DOUBLE PRECISION NOT NULL DEFAULT 0,
		ask1_volume BIGINT           NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ticks_symbol_date ON ticks (symbol, date)`,
	`CREATE INDEX IF NOT EXISTS idx_ticks_ts ON ticks (ts)`,

	`CREATE TABLE IF NOT EXISTS daily_results (
		symbol                 TEXT NOT NULL,
		date                   TEXT NOT NULL,
		aggressive_buy_amount  DOUBLE PRECISION NOT NULL,
		aggressive_sell_amount DOUBLE PRECISION NOT NULL,
		defensive_buy_amount   DOUBLE PRECISION NOT NULL,
		defensive_sell_amount  DOUBLE PRECISION NOT NULL,
		algo_buy_amount        DOUBLE PRECISION NOT NULL,
		algo_sell_amount       DOUBLE PRECISION NOT NULL,
		weighted_cost          DOUBLE PRECISION NOT NULL,
		cost_ma_5              DOUBLE PRECISION NOT NULL,
		cost_ma_10             DOUBLE PRECISION NOT NULL,
		cost_ma_20             DOUBLE PRECISION NOT NULL,
		net_flow               DOUBLE PRECISION NOT NULL,
		net_flow_unscaled      BOOLEAN NOT NULL,
		concentration_ratio    DOUBLE PRECISION NOT NULL,
		chip_peak_price        DOUBLE PRECISION NOT NULL,
		chip_peak_volume       BIGINT NOT NULL,
		support_price          DOUBLE PRECISION,
		resistance_price       DOUBLE PRECISION,
		validation_status      TEXT NOT NULL,
		no_buy_flow            BOOLEAN NOT NULL,
		total_orders           INTEGER NOT NULL,
		original_orders        INTEGER NOT NULL,
		algo_orders            INTEGER NOT NULL,
		malformed_ticks        BIGINT NOT NULL,
		missing_quote_ticks    BIGINT NOT NULL,
		amount_skew_ticks      BIGINT NOT NULL,
		out_of_order_ticks     BIGINT NOT NULL,
		created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (symbol, date)
	)`,

	`CREATE TABLE IF NOT EXISTS daily_costs (
		symbol        TEXT NOT NULL,
		date          TEXT NOT NULL,
		weighted_cost DOUBLE PRECISION NOT NULL,
		UNIQUE (symbol, date)
	)`,
}

// EnsureSchema создаёт таблицы при первом запуске. Миграций нет —
// схема маленькая, IF NOT EXISTS достаточно.
func (s *Store) EnsureSchema(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.EnsureSchema: %w", err)
		}
	}()
	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		for _, stmt := range schemaStatements {
			if _, err := tx.Exec(ctxTx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
}
