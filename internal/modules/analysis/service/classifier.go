package service

import (
	"math"

	"capital_tracker/internal/models"
	"capital_tracker/internal/modules/config"
)

// Classifier — чистая функция tick -> (label, base weight).
// Крупные принты делим на агрессивные (съедают котировку) и защитные
// (стоят стеной в стакане), мелочь уходит в SMALL_* и ждёт склейки.
type Classifier struct {
	bigOrderThreshold float64
	wallThreshold     int64
	weights           models.WeightMap

	counters *Counters
}

func NewClassifier(cfg config.Analysis, counters *Counters) *Classifier {
	return &Classifier{
		bigOrderThreshold: cfg.BigOrderThreshold,
		wallThreshold:     cfg.WallThreshold,
		weights:           cfg.Weights(),
		counters:          counters,
	}
}

// Classify никогда не возвращает ошибку: битый тик — это NOISE плюс счётчик.
func (c *Classifier) Classify(t models.Tick) (models.Label, float64) {
	if t.Malformed() {
		c.counters.Malformed++
		return c.labeled(models.LabelNoise)
	}

	if t.Amount < c.bigOrderThreshold {
		switch t.Direction {
		case models.DirBuy:
			return c.labeled(models.LabelSmallBuy)
		case models.DirSell:
			return c.labeled(models.LabelSmallSell)
		default:
			return c.labeled(models.LabelNoise)
		}
	}

	switch t.Direction {
	case models.DirBuy:
		return c.labeled(c.classifyBigBuy(t))
	case models.DirSell:
		return c.labeled(c.classifyBigSell(t))
	default:
		// крупный принт без стороны — консервативно в шум
		return c.labeled(models.LabelNoise)
	}
}

func (c *Classifier) classifyBigBuy(t models.Tick) models.Label {
	hasBid := t.Bid1Price > 0
	hasAsk := t.Ask1Price > 0

	if !hasBid && !hasAsk {
		// без стакана пассивность не доказать
		c.counters.MissingQuote++
		return models.LabelAggBuy
	}

	// залоченный рынок: bid == ask == цена сделки, считаем защитной
	if hasBid && hasAsk && t.Bid1Price == t.Ask1Price && t.Price == t.Bid1Price {
		return models.LabelDefBuy
	}

	if hasAsk && t.Price >= t.Ask1Price {
		return models.LabelAggBuy
	}
	if hasBid && t.Price <= t.Bid1Price && t.Bid1Volume >= c.wallThreshold {
		return models.LabelDefBuy
	}
	if hasBid && hasAsk {
		if math.Abs(t.Price-t.Ask1Price) < math.Abs(t.Price-t.Bid1Price) {
			return models.LabelAggBuy
		}
		return models.LabelDefBuy
	}

	// стакан неполный, ни одно правило не сработало
	c.counters.MissingQuote++
	return models.LabelAggBuy
}

func (c *Classifier) classifyBigSell(t models.Tick) models.Label {
	hasBid := t.Bid1Price > 0
	hasAsk := t.Ask1Price > 0

	if !hasBid && !hasAsk {
		c.counters.MissingQuote++
		return models.LabelAggSell
	}

	if hasBid && hasAsk && t.Bid1Price == t.Ask1Price && t.Price == t.Ask1Price {
		return models.LabelDefSell
	}

	// пересечение бида — активная продажа в стакан
	if hasBid && t.Price <= t.Bid1Price {
		return models.LabelAggSell
	}
	if hasAsk && t.Price >= t.Ask1Price && t.Ask1Volume >= c.wallThreshold {
		return models.LabelDefSell
	}
	if hasBid && hasAsk {
		if math.Abs(t.Price-t.Bid1Price) < math.Abs(t.Price-t.Ask1Price) {
			return models.LabelAggSell
		}
		return models.LabelDefSell
	}

	c.counters.MissingQuote++
	return models.LabelAggSell
}

func (c *Classifier) labeled(l models.Label) (models.Label, float64) {
	return l, c.weights.Weight(string(l))
}
