package service

import "capital_tracker/internal/models"

// Counters — счётчики качества данных одной сессии. Сессия однопоточная,
// атомики не нужны.
type Counters struct {
	Malformed    int64
	MissingQuote int64
	AmountSkew   int64
	OutOfOrder   int64
}

func (c *Counters) Snapshot() models.QualityCounters {
	return models.QualityCounters{
		Malformed:    c.Malformed,
		MissingQuote: c.MissingQuote,
		AmountSkew:   c.AmountSkew,
		OutOfOrder:   c.OutOfOrder,
	}
}
