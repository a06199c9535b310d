package service

import (
	"math"
	"time"

	"capital_tracker/internal/models"
	"capital_tracker/internal/modules/config"
	"capital_tracker/pkg/logger"
)

// Analyzer — фабрика сессий. Конфиг читается один раз и шарится между
// сессиями, они его не мутируют.
type Analyzer struct {
	cfg config.Analysis
}

func NewAnalyzer(cfg *config.Config) *Analyzer {
	return &Analyzer{cfg: cfg.Analysis}
}

// NewSession — состояние конвейера для одной пары (символ, дата).
// Создаётся на старте сессии, умирает после Finish.
func (a *Analyzer) NewSession(symbol, date string) *Session {
	s := &Session{
		symbol: symbol,
		date:   date,
		cfg:    a.cfg,
	}
	s.classifier = NewClassifier(a.cfg, &s.counters)
	s.builder = NewBuilder(a.cfg)
	s.cost = NewCostCalculator(a.cfg)
	s.chips = NewChipAnalyzer(a.cfg)
	return s
}

// AnalyzeDay — весь конвейер за один вызов: удобно для дневного реплея.
// Тики должны идти в порядке времени.
func (a *Analyzer) AnalyzeDay(symbol, date string, ticks []models.Tick, costHistory []float64, floatMarketCap float64) models.DayResult {
	s := a.NewSession(symbol, date)
	for _, t := range ticks {
		s.Feed(t)
	}
	return s.Finish(costHistory, floatMarketCap)
}

// Session — однопоточный событийный конвейер: классификатор → билдер →
// калькулятор → фишки. Feed синхронный, никаких ошибок наружу — деградации
// копятся в счётчиках.
type Session struct {
	symbol string
	date   string
	cfg    config.Analysis

	classifier *Classifier
	builder    *Builder
	cost       *CostCalculator
	chips      *ChipAnalyzer

	counters Counters
	ticks    []models.Tick
	orders   []models.SyntheticOrder

	lastTs time.Time
}

func (s *Session) Symbol() string { return s.symbol }
func (s *Session) Date() string   { return s.date }

// Feed прогоняет тик через классификатор и билдер. Тик сохраняется и для
// фишечной гистограммы: она меряет весь оборот, включая мелочь и шум.
func (s *Session) Feed(t models.Tick) {
	s.checkAmount(t)
	s.ticks = append(s.ticks, t)

	// откат времени — такая же битая запись, как отрицательный amount:
	// в синтез тик не попадает, только в счётчик и гистограмму
	if !s.lastTs.IsZero() && t.Timestamp.Before(s.lastTs) {
		s.counters.OutOfOrder++
		s.builder.Feed(t, models.LabelNoise)
		return
	}
	s.lastTs = t.Timestamp

	label, _ := s.classifier.Classify(t)
	s.orders = append(s.orders, s.builder.Feed(t, label)...)
}

// checkAmount — сверка amount против price×volume×lot. Ленты некоторых
// бирж округляют amount; расхождение сверх допуска только считаем.
func (s *Session) checkAmount(t models.Tick) {
	if t.Price <= 0 || t.Volume <= 0 || t.Amount <= 0 {
		return
	}
	expected := t.Price * float64(t.Volume) * float64(s.cfg.LotSize)
	if math.Abs(t.Amount-expected)/expected > s.cfg.AmountTolerance {
		s.counters.AmountSkew++
	}
}

// Finish закрывает сессию: финальный flush билдера и сборка DayResult.
// costHistory — дневные стоимости прошлых дней, свежие первыми.
func (s *Session) Finish(costHistory []float64, floatMarketCap float64) models.DayResult {
	s.orders = append(s.orders, s.builder.Flush()...)

	weightedCost, hasBuyFlow := s.cost.WeightedCost(s.orders)

	history := make([]float64, 0, len(costHistory)+1)
	history = append(history, weightedCost)
	history = append(history, costHistory...)

	netFlow, unscaled := s.cost.NetFlow(s.orders, floatMarketCap)
	totals := s.cost.Totals(s.orders)

	dist := s.chips.Build(s.ticks)
	peaks := s.chips.Peaks(dist, 1)

	result := models.DayResult{
		Symbol: s.symbol,
		Date:   s.date,

		AggressiveBuyAmount:  totals.AggressiveBuy,
		AggressiveSellAmount: totals.AggressiveSell,
		DefensiveBuyAmount:   totals.DefensiveBuy,
		DefensiveSellAmount:  totals.DefensiveSell,
		AlgoBuyAmount:        totals.AlgoBuy,
		AlgoSellAmount:       totals.AlgoSell,

		WeightedCost: weightedCost,
		NoBuyFlow:    !hasBuyFlow,

		NetFlow:         netFlow,
		NetFlowUnscaled: unscaled,

		ConcentrationRatio: s.chips.Concentration(dist),
		ValidationStatus:   s.chips.Validate(weightedCost, dist),

		TotalOrders:    totals.TotalOrders,
		OriginalOrders: totals.OriginalOrders,
		AlgoOrders:     totals.AlgoOrders,

		Counters: s.counters.Snapshot(),
	}

	for _, period := range s.cfg.MAPeriods {
		ma := s.cost.CostMA(history, period)
		switch period {
		case 5:
			result.CostMA5 = ma
		case 10:
			result.CostMA10 = ma
		case 20:
			result.CostMA20 = ma
		}
	}

	if len(peaks) > 0 {
		result.ChipPeakPrice = peaks[0].Center
		result.ChipPeakVolume = peaks[0].Volume
	}

	if len(s.ticks) > 0 {
		refPrice := s.ticks[len(s.ticks)-1].Price // закрытие сессии
		sup, res, hasSup, hasRes := s.chips.SupportResistance(dist, refPrice)
		result.SupportPrice, result.HasSupport = sup, hasSup
		result.ResistancePrice, result.HasResistance = res, hasRes
	}

	logger.Info("session done %s %s: ticks=%d orders=%d cost=%.2f net_flow=%.6f status=%s",
		s.symbol, s.date, len(s.ticks), len(s.orders), weightedCost, netFlow, result.ValidationStatus)

	return result
}
