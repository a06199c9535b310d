package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capital_tracker/internal/models"
	"capital_tracker/internal/modules/config"
)

func newTestAnalyzer(cfg config.Analysis) *Analyzer {
	full := &config.Config{Analysis: cfg}
	return NewAnalyzer(full)
}

func TestSessionSingleAggressiveBuy(t *testing.T) {
	cfg := testAnalysisConfig()
	cfg.SyntheticThreshold = 200000
	a := newTestAnalyzer(cfg)

	tk := tickAt(0, 10.00, 20000, 200000, models.DirBuy)
	tk.Ask1Price, tk.Ask1Volume = 9.99, 100
	tk.Bid1Price, tk.Bid1Volume = 9.98, 100
	tk.Amount = 200000

	res := a.AnalyzeDay("600519", "2025-11-03", []models.Tick{tk}, nil, 0)

	assert.InDelta(t, 10.00, res.WeightedCost, 1e-9)
	assert.Equal(t, 200000.0, res.AggressiveBuyAmount)
	assert.Zero(t, res.DefensiveBuyAmount)
	assert.Equal(t, 1, res.TotalOrders)
	assert.Equal(t, 1, res.OriginalOrders)
	assert.False(t, res.NoBuyFlow)
}

func TestSessionTWAPSplit(t *testing.T) {
	a := newTestAnalyzer(testAnalysisConfig())

	var ticks []models.Tick
	for i := 0; i < 5; i++ {
		tk := tickAt(i, 10.00, 12500, 125000, models.DirBuy)
		tk.Ask1Price, tk.Ask1Volume = 9.99, 100
		tk.Bid1Price, tk.Bid1Volume = 9.98, 100
		ticks = append(ticks, tk)
	}

	res := a.AnalyzeDay("600519", "2025-11-03", ticks, nil, 0)

	assert.InDelta(t, 10.00, res.WeightedCost, 1e-9)
	assert.Equal(t, 1, res.AlgoOrders)
	assert.Equal(t, 500000.0, res.AlgoBuyAmount)
}

func TestSessionWindowEviction(t *testing.T) {
	a := newTestAnalyzer(testAnalysisConfig())

	mk := func(sec int) models.Tick {
		tk := tickAt(sec, 10.00, 30000, 300000, models.DirBuy)
		tk.Ask1Price, tk.Ask1Volume = 9.99, 100
		tk.Bid1Price, tk.Bid1Volume = 9.98, 100
		return tk
	}

	res := a.AnalyzeDay("600519", "2025-11-03", []models.Tick{mk(0), mk(40)}, nil, 0)

	assert.Zero(t, res.WeightedCost)
	assert.True(t, res.NoBuyFlow)
	assert.Zero(t, res.TotalOrders)
}

func TestSessionDefensiveWall(t *testing.T) {
	a := newTestAnalyzer(testAnalysisConfig())

	tk := tickAt(0, 9.99, 100000, 999000, models.DirBuy)
	tk.Bid1Price, tk.Bid1Volume = 9.99, 50000

	res := a.AnalyzeDay("600519", "2025-11-03", []models.Tick{tk}, nil, 0)

	assert.InDelta(t, 9.99, res.WeightedCost, 1e-9)
	assert.Equal(t, 999000.0, res.DefensiveBuyAmount)
	assert.Zero(t, res.AggressiveBuyAmount)
}

func TestSessionValidationAgainstPeak(t *testing.T) {
	cfg := testAnalysisConfig()
	cfg.SyntheticThreshold = 100000
	a := newTestAnalyzer(cfg)

	// покупки крупного капитала у 10.02, но почти весь оборот сидит на 13.00
	var ticks []models.Tick
	for i := 0; i < 10; i++ {
		tk := tickAt(i, 10.02, 2000, 20040, models.DirBuy)
		tk.Ask1Price, tk.Ask1Volume = 10.01, 100
		tk.Bid1Price, tk.Bid1Volume = 10.00, 100
		ticks = append(ticks, tk)
	}
	for i := 10; i < 60; i++ {
		ticks = append(ticks, tickAt(i, 13.00, 20000, 26000, models.DirSell))
	}

	res := a.AnalyzeDay("600519", "2025-11-03", ticks, nil, 0)

	require.InDelta(t, 10.02, res.WeightedCost, 1e-9)
	assert.InDelta(t, 13.00, res.ChipPeakPrice, 0.05)
	assert.Equal(t, models.ValidationInvalid, res.ValidationStatus)
}

func TestSessionNetFlowSymmetric(t *testing.T) {
	cfg := testAnalysisConfig()
	cfg.SyntheticThreshold = 1000000
	a := newTestAnalyzer(cfg)

	var ticks []models.Tick
	// три пары: миллионная покупка и миллионная продажа с одинаковой агрессией
	for i := 0; i < 3; i++ {
		buy := tickAt(i*100, 10.00, 100000, 1000000, models.DirBuy)
		buy.Ask1Price, buy.Ask1Volume = 9.99, 100
		buy.Bid1Price, buy.Bid1Volume = 9.98, 100

		sell := tickAt(i*100+1, 10.00, 100000, 1000000, models.DirSell)
		sell.Ask1Price, sell.Ask1Volume = 10.02, 100
		sell.Bid1Price, sell.Bid1Volume = 10.01, 100

		ticks = append(ticks, buy, sell)
	}

	res := a.AnalyzeDay("600519", "2025-11-03", ticks, nil, 1e9)

	assert.Zero(t, res.NetFlow)
	assert.False(t, res.NetFlowUnscaled)
}

func TestSessionMovingAverages(t *testing.T) {
	cfg := testAnalysisConfig()
	cfg.SyntheticThreshold = 500000
	a := newTestAnalyzer(cfg)

	tk := tickAt(0, 10.00, 100000, 1000000, models.DirBuy)
	tk.Ask1Price, tk.Ask1Volume = 9.99, 100
	tk.Bid1Price, tk.Bid1Volume = 9.98, 100

	history := []float64{9, 11, 10, 12, 8, 14, 10, 10, 10, 16}
	res := a.AnalyzeDay("600519", "2025-11-03", []models.Tick{tk}, history, 0)

	require.InDelta(t, 10.0, res.WeightedCost, 1e-9)
	// [10, 9, 11, 10, 12] -> 10.4
	assert.InDelta(t, 10.4, res.CostMA5, 1e-9)
	// первые десять: [10 9 11 10 12 8 14 10 10 10] -> 10.4
	assert.InDelta(t, 10.4, res.CostMA10, 1e-9)
	// истории меньше двадцати — среднее всех одиннадцати
	assert.InDelta(t, 10.909090909, res.CostMA20, 1e-6)
}

func TestSessionCountsQuality(t *testing.T) {
	a := newTestAnalyzer(testAnalysisConfig())

	bad := tickAt(0, 10.00, 100, -1, models.DirBuy)
	noQuote := tickAt(1, 10.00, 20000, 20000000, models.DirBuy)
	skew := tickAt(2, 10.00, 100, 50000, models.DirBuy) // ожидалось 100*10*100=100000

	res := a.AnalyzeDay("600519", "2025-11-03", []models.Tick{bad, noQuote, skew}, nil, 0)

	assert.EqualValues(t, 1, res.Counters.Malformed)
	assert.EqualValues(t, 1, res.Counters.MissingQuote)
	assert.GreaterOrEqual(t, res.Counters.AmountSkew, int64(1))
}

func TestSessionOutOfOrderTickIsNoise(t *testing.T) {
	a := newTestAnalyzer(testAnalysisConfig())
	s := a.NewSession("600519", "2025-11-03")

	s.Feed(tickAt(5, 10.00, 100, 10000, models.DirBuy))

	// откат назад: агрессивная покупка выше порога, но в синтез не попадает
	stale := tickAt(3, 10.00, 100000, 1000000, models.DirBuy)
	stale.Ask1Price, stale.Ask1Volume = 9.99, 100
	stale.Bid1Price, stale.Bid1Volume = 9.98, 100
	s.Feed(stale)

	s.Feed(tickAt(6, 10.00, 100, 10000, models.DirBuy))

	res := s.Finish(nil, 0)
	assert.EqualValues(t, 1, res.Counters.OutOfOrder)
	assert.Zero(t, res.TotalOrders)
	assert.Zero(t, res.WeightedCost)
	assert.Zero(t, res.AggressiveBuyAmount)
	assert.True(t, res.NoBuyFlow)

	// в гистограмму фишек протухший тик всё равно входит
	assert.EqualValues(t, 100200, res.ChipPeakVolume)
}

func TestSessionDeterministicReplay(t *testing.T) {
	a := newTestAnalyzer(testAnalysisConfig())

	var ticks []models.Tick
	for i := 0; i < 500; i++ {
		price := 10.0 + float64(i%37)*0.01
		volume := int64(100 + (i*31)%9000)
		dir := models.DirBuy
		if i%3 == 1 {
			dir = models.DirSell
		} else if i%17 == 0 {
			dir = models.DirNone
		}
		tk := tickAt(i, price, volume, price*float64(volume)*100, dir)
		if i%5 != 4 {
			tk.Bid1Price, tk.Bid1Volume = price-0.01, 500+int64(i%20000)
			tk.Ask1Price, tk.Ask1Volume = price+0.01, 400
		}
		ticks = append(ticks, tk)
	}
	history := []float64{10.1, 10.2, 10.3}

	first := a.AnalyzeDay("600519", "2025-11-03", ticks, history, 5e8)
	second := a.AnalyzeDay("600519", "2025-11-03", ticks, history, 5e8)

	require.Equal(t, first, second)
	assert.GreaterOrEqual(t, first.ConcentrationRatio, 0.0)
	assert.LessOrEqual(t, first.ConcentrationRatio, 1.0)
}
