package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"capital_tracker/internal/models"
	"capital_tracker/pkg/db"
)

// Store — персистентность конвейера: сырые тики, дневные результаты и
// компактная история стоимостей для скользящих средних (чтобы не
// перечитывать тики прошлых дней).
type Store struct {
	db *db.PgTxManager
}

func NewStore(manager *db.PgTxManager) *Store {
	return &Store{db: manager}
}

// SaveTicks кладёт дневную ленту одним CopyFrom.
func (s *Store) SaveTicks(ctx context.Context, date string, ticks []models.Tick) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.SaveTicks: %w", err)
		}
	}()
	if len(ticks) == 0 {
		return nil
	}

	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.CopyFrom(ctxTx,
			pgx.Identifier{"ticks"},
			[]string{"symbol", "ts", "date", "price", "volume", "amount", "direction",
				"bid1_price", "bid1_volume", "ask1_price", "ask1_volume"},
			pgx.CopyFromSlice(len(ticks), func(i int) ([]any, error) {
				t := ticks[i]
				return []any{t.Symbol, t.Timestamp, date, t.Price, t.Volume, t.Amount,
					t.Direction.String(), t.Bid1Price, t.Bid1Volume, t.Ask1Price, t.Ask1Volume}, nil
			}),
		)
		return err
	})
}

// LoadTicks читает ленту за день в порядке времени.
func (s *Store) LoadTicks(ctx context.Context, symbol, date string) (ticks []models.Tick, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.LoadTicks: %w", err)
		}
	}()

	rows, err := s.db.Conn().Query(ctx, `
		SELECT ts, price, volume, amount, direction,
		       bid1_price, bid1_volume, ask1_price, ask1_volume
		FROM ticks
		WHERE symbol = $1 AND date = $2
		ORDER BY ts`, symbol, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t   models.Tick
			dir string
		)
		t.Symbol = symbol
		if err := rows.Scan(&t.Timestamp, &t.Price, &t.Volume, &t.Amount, &dir,
			&t.Bid1Price, &t.Bid1Volume, &t.Ask1Price, &t.Ask1Volume); err != nil {
			return nil, err
		}
		t.Direction = models.ParseDirection(dir)
		ticks = append(ticks, t)
	}
	return ticks, rows.Err()
}

// SaveResult апсертит дневной результат и дневную стоимость.
func (s *Store) SaveResult(ctx context.Context, r models.DayResult) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.SaveResult: %w", err)
		}
	}()

	var supportPrice, resistancePrice *float64
	if r.HasSupport {
		supportPrice = &r.SupportPrice
	}
	if r.HasResistance {
		resistancePrice = &r.ResistancePrice
	}

	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, `
			INSERT INTO daily_results (
				symbol, date,
				aggressive_buy_amount, aggressive_sell_amount,
				defensive_buy_amount, defensive_sell_amount,
				algo_buy_amount, algo_sell_amount,
				weighted_cost, cost_ma_5, cost_ma_10, cost_ma_20,
				net_flow, net_flow_unscaled,
				concentration_ratio, chip_peak_price, chip_peak_volume,
				support_price, resistance_price,
				validation_status, no_buy_flow,
				total_orders, original_orders, algo_orders,
				malformed_ticks, missing_quote_ticks, amount_skew_ticks, out_of_order_ticks
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28)
			ON CONFLICT (symbol, date) DO UPDATE SET
				aggressive_buy_amount = EXCLUDED.aggressive_buy_amount,
				aggressive_sell_amount = EXCLUDED.aggressive_sell_amount,
				defensive_buy_amount = EXCLUDED.defensive_buy_amount,
				defensive_sell_amount = EXCLUDED.defensive_sell_amount,
				algo_buy_amount = EXCLUDED.algo_buy_amount,
				algo_sell_amount = EXCLUDED.algo_sell_amount,
				weighted_cost = EXCLUDED.weighted_cost,
				cost_ma_5 = EXCLUDED.cost_ma_5,
				cost_ma_10 = EXCLUDED.cost_ma_10,
				cost_ma_20 = EXCLUDED.cost_ma_20,
				net_flow = EXCLUDED.net_flow,
				net_flow_unscaled = EXCLUDED.net_flow_unscaled,
				concentration_ratio = EXCLUDED.concentration_ratio,
				chip_peak_price = EXCLUDED.chip_peak_price,
				chip_peak_volume = EXCLUDED.chip_peak_volume,
				support_price = EXCLUDED.support_price,
				resistance_price = EXCLUDED.resistance_price,
				validation_status = EXCLUDED.validation_status,
				no_buy_flow = EXCLUDED.no_buy_flow,
				total_orders = EXCLUDED.total_orders,
				original_orders = EXCLUDED.original_orders,
				algo_orders = EXCLUDED.algo_orders,
				malformed_ticks = EXCLUDED.malformed_ticks,
				missing_quote_ticks = EXCLUDED.missing_quote_ticks,
				amount_skew_ticks = EXCLUDED.amount_skew_ticks,
				out_of_order_ticks = EXCLUDED.out_of_order_ticks`,
			r.Symbol, r.Date,
			r.AggressiveBuyAmount, r.AggressiveSellAmount,
			r.DefensiveBuyAmount, r.DefensiveSellAmount,
			r.AlgoBuyAmount, r.AlgoSellAmount,
			r.WeightedCost, r.CostMA5, r.CostMA10, r.CostMA20,
			r.NetFlow, r.NetFlowUnscaled,
			r.ConcentrationRatio, r.ChipPeakPrice, r.ChipPeakVolume,
			supportPrice, resistancePrice,
			string(r.ValidationStatus), r.NoBuyFlow,
			r.TotalOrders, r.OriginalOrders, r.AlgoOrders,
			r.Counters.Malformed, r.Counters.MissingQuote, r.Counters.AmountSkew, r.Counters.OutOfOrder,
		)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctxTx, `
			INSERT INTO daily_costs (symbol, date, weighted_cost)
			VALUES ($1, $2, $3)
			ON CONFLICT (symbol, date) DO UPDATE SET weighted_cost = EXCLUDED.weighted_cost`,
			r.Symbol, r.Date, r.WeightedCost,
		)
		return err
	})
}

// LoadCostHistory — дневные стоимости строго раньше даты, свежие первыми.
// Ровно в том виде, в каком их ждёт калькулятор скользящих средних.
func (s *Store) LoadCostHistory(ctx context.Context, symbol, beforeDate string, limit int) (costs []float64, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.LoadCostHistory: %w", err)
		}
	}()

	rows, err := s.db.Conn().Query(ctx, `
		SELECT weighted_cost
		FROM daily_costs
		WHERE symbol = $1 AND date < $2
		ORDER BY date DESC
		LIMIT $3`, symbol, beforeDate, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var c float64
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		costs = append(costs, c)
	}
	return costs, rows.Err()
}

// HasTicks — есть ли уже лента за день (чтобы не ходить к источнику).
func (s *Store) HasTicks(ctx context.Context, symbol, date string) (ok bool, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.HasTicks: %w", err)
		}
	}()

	var count int64
	row := s.db.Conn().QueryRow(ctx,
		`SELECT count(1) FROM ticks WHERE symbol = $1 AND date = $2`, symbol, date)
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
