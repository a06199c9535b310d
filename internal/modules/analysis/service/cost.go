package service

import (
	movingaverage "github.com/RobinUS2/golang-moving-average"

	"capital_tracker/internal/models"
	"capital_tracker/internal/modules/config"
)

// CostCalculator — расчёты без состояния по списку ордеров одной сессии.
// Кросс-дневная история (дневные стоимости) приходит снаружи, внутри
// никакого скрытого состояния.
type CostCalculator struct {
	weights   models.WeightMap
	maPeriods []int
}

// FlowTotals — срезы по намерению без весов плюс статистика ордеров.
type FlowTotals struct {
	AggressiveBuy  float64
	AggressiveSell float64
	DefensiveBuy   float64
	DefensiveSell  float64
	AlgoBuy        float64
	AlgoSell       float64

	TotalOrders    int
	OriginalOrders int
	AlgoOrders     int
}

func NewCostCalculator(cfg config.Analysis) *CostCalculator {
	return &CostCalculator{
		weights:   cfg.Weights(),
		maPeriods: cfg.MAPeriods,
	}
}

func (c *CostCalculator) orderWeight(o models.SyntheticOrder) float64 {
	return c.weights.Weight(string(o.OrderType)) * o.Confidence
}

// WeightedCost — взвешенный VWAP по BUY-ордерам:
//
//	cost = Σ(amount_i × W_i) / Σ(volume_i × W_i)
//
// Считаем только накопление: продажи стоимость позиции не формируют.
// Второй результат — были ли вообще BUY-ордера с положительным весом.
func (c *CostCalculator) WeightedCost(orders []models.SyntheticOrder) (float64, bool) {
	var numerator, denominator kahanSum
	for _, o := range orders {
		if o.Side != models.SideBuy {
			continue
		}
		w := c.orderWeight(o)
		if w == 0 {
			continue
		}
		numerator.Add(o.TotalAmount * w)
		denominator.Add(float64(o.TotalVolume) * w)
	}
	if denominator.Sum() == 0 {
		return 0, false
	}
	return numerator.Sum() / denominator.Sum(), true
}

// CostMA — среднее первых period значений истории [сегодня, вчера, ...];
// если истории меньше — среднее того, что есть. Нулевые дни (не было
// BUY-потока) остаются в окне, иначе окно тихо поплывёт.
func (c *CostCalculator) CostMA(history []float64, period int) float64 {
	if len(history) == 0 || period <= 0 {
		return 0
	}
	n := period
	if len(history) < n {
		n = len(history)
	}
	ma := movingaverage.New(period)
	for i := 0; i < n; i++ {
		ma.Add(history[i])
	}
	return ma.Avg()
}

// NetFlow — взвешенный приток минус отток, нормированный на free float.
// Без известного free float возвращаем сырую разницу и флаг unscaled.
func (c *CostCalculator) NetFlow(orders []models.SyntheticOrder, floatMarketCap float64) (float64, bool) {
	var in, out kahanSum
	for _, o := range orders {
		w := c.orderWeight(o)
		if o.Side == models.SideBuy {
			in.Add(o.TotalAmount * w)
		} else {
			out.Add(o.TotalAmount * w)
		}
	}
	diff := in.Sum() - out.Sum()
	if floatMarketCap == 0 {
		return diff, true
	}
	return diff / floatMarketCap, false
}

// Totals — невзвешенные суммы для UI-срезов по намерению.
func (c *CostCalculator) Totals(orders []models.SyntheticOrder) FlowTotals {
	var t FlowTotals
	t.TotalOrders = len(orders)
	for _, o := range orders {
		if o.Algo() {
			t.AlgoOrders++
			if o.Side == models.SideBuy {
				t.AlgoBuy += o.TotalAmount
			} else {
				t.AlgoSell += o.TotalAmount
			}
			continue
		}
		t.OriginalOrders++
		if o.Side == models.SideBuy {
			t.AggressiveBuy += o.AggressiveAmount
			t.DefensiveBuy += o.DefensiveAmount
		} else {
			t.AggressiveSell += o.AggressiveAmount
			t.DefensiveSell += o.DefensiveAmount
		}
	}
	return t
}
