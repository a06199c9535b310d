package models

// ValidationStatus — итог сверки оценки стоимости с пиком фишек.
type ValidationStatus string

const (
	ValidationValid   ValidationStatus = "VALID"
	ValidationInvalid ValidationStatus = "INVALID"
)

// QualityCounters — счётчики деградаций за сессию. Плохие тики не роняют
// конвейер, но каждый случай должен быть виден в результате.
type QualityCounters struct {
	Malformed    int64 // битые записи, ушедшие в NOISE
	MissingQuote int64 // крупные принты без снимка стакана
	AmountSkew   int64 // amount расходится с price×volume сверх допуска
	OutOfOrder   int64 // тики с откатом времени назад
}

// DayResult — результат анализа одной пары (символ, дата).
type DayResult struct {
	Symbol string
	Date   string

	// Срезы по намерению, без весов.
	AggressiveBuyAmount  float64
	AggressiveSellAmount float64
	DefensiveBuyAmount   float64
	DefensiveSellAmount  float64
	AlgoBuyAmount        float64
	AlgoSellAmount       float64

	// Стоимостные метрики.
	WeightedCost float64
	CostMA5      float64
	CostMA10     float64
	CostMA20     float64

	// Поток: нормирован на free float, если он известен.
	NetFlow         float64
	NetFlowUnscaled bool // free float неизвестен, NetFlow — сырая разница

	// Фишки.
	ConcentrationRatio float64
	ChipPeakPrice      float64
	ChipPeakVolume     int64
	SupportPrice       float64
	HasSupport         bool
	ResistancePrice    float64
	HasResistance      bool

	ValidationStatus ValidationStatus
	NoBuyFlow        bool // не было ни одного BUY-ордера с положительным весом

	// Статистика по ордерам.
	TotalOrders    int
	OriginalOrders int
	AlgoOrders     int

	Counters QualityCounters
}

// TotalBuyAmount — суммарная покупка крупного капитала за день.
func (r DayResult) TotalBuyAmount() float64 {
	return r.AggressiveBuyAmount + r.DefensiveBuyAmount + r.AlgoBuyAmount
}

// TotalSellAmount — суммарная продажа крупного капитала за день.
func (r DayResult) TotalSellAmount() float64 {
	return r.AggressiveSellAmount + r.DefensiveSellAmount + r.AlgoSellAmount
}
