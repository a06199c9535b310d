package service

import (
	"sort"
	"time"

	"capital_tracker/internal/models"
	"capital_tracker/internal/modules/config"
	"capital_tracker/pkg/logger"
)

// Builder склеивает мелкие однонаправленные принты внутри временного окна
// в синтетические ордера — гипотезы о нарезанных родительских заявках.
// Состояние per-symbol, время только событийное: "сейчас" — это timestamp
// входящего тика, иначе ломается детерминизм реплея.
type Builder struct {
	window    time.Duration
	threshold float64
	twapVar   float64
	vwapCV    float64

	buffers map[string]*tickBuffer
}

type bufferedTick struct {
	tick  models.Tick
	label models.Label
}

// tickBuffer — два FIFO-буфера одного символа, по буферу на сторону.
// Держатся отсортированными по времени.
type tickBuffer struct {
	buy  []bufferedTick
	sell []bufferedTick
}

func NewBuilder(cfg config.Analysis) *Builder {
	return &Builder{
		window:    cfg.Window(),
		threshold: cfg.SyntheticThreshold,
		twapVar:   cfg.TWAPIntervalVariance,
		vwapCV:    cfg.VWAPAmountCV,
		buffers:   make(map[string]*tickBuffer),
	}
}

// Feed принимает размеченный тик и возвращает ноль или больше синтетических
// ордеров. Порядок детерминирован: сначала BUY-сторона, потом SELL.
func (b *Builder) Feed(t models.Tick, label models.Label) []models.SyntheticOrder {
	if label == models.LabelNoise {
		return nil
	}

	buf, ok := b.buffers[t.Symbol]
	if !ok {
		buf = &tickBuffer{}
		b.buffers[t.Symbol] = buf
	}

	entry := bufferedTick{tick: t, label: label}
	switch {
	case label.BuySide():
		buf.buy = appendSorted(buf.buy, entry)
	case label.SellSide():
		buf.sell = appendSorted(buf.sell, entry)
	default:
		return nil
	}

	// событие двигает время для обеих сторон
	cutoff := t.Timestamp.Add(-b.window)
	buf.buy = evictBefore(buf.buy, cutoff)
	buf.sell = evictBefore(buf.sell, cutoff)

	var orders []models.SyntheticOrder
	if o, ok := b.tryEmit(buf.buy, models.SideBuy); ok {
		orders = append(orders, o)
		buf.buy = buf.buy[:0]
	}
	if o, ok := b.tryEmit(buf.sell, models.SideSell); ok {
		orders = append(orders, o)
		buf.sell = buf.sell[:0]
	}
	return orders
}

// Flush — завершение сессии: добираем буферы, дотянувшие до порога.
// Остатки ниже порога — масса SMALL/NOISE, они и не должны были считаться.
func (b *Builder) Flush() []models.SyntheticOrder {
	symbols := make([]string, 0, len(b.buffers))
	for s := range b.buffers {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	var orders []models.SyntheticOrder
	for _, s := range symbols {
		buf := b.buffers[s]
		if o, ok := b.tryEmit(buf.buy, models.SideBuy); ok {
			orders = append(orders, o)
		}
		if o, ok := b.tryEmit(buf.sell, models.SideSell); ok {
			orders = append(orders, o)
		}
		buf.buy = nil
		buf.sell = nil
	}
	return orders
}

func (b *Builder) tryEmit(entries []bufferedTick, side models.OrderSide) (models.SyntheticOrder, bool) {
	if len(entries) == 0 {
		return models.SyntheticOrder{}, false
	}

	var amount kahanSum
	for _, e := range entries {
		amount.Add(e.tick.Amount)
	}
	if amount.Sum() < b.threshold {
		return models.SyntheticOrder{}, false
	}

	order := b.build(entries, side, amount.Sum())
	logger.Debug("synthetic order %s %s amount=%.0f type=%s ticks=%d",
		order.Symbol, order.Side, order.TotalAmount, order.OrderType, order.TickCount)
	return order, true
}

func (b *Builder) build(entries []bufferedTick, side models.OrderSide, totalAmount float64) models.SyntheticOrder {
	var (
		totalVolume int64
		aggAmount   kahanSum
		defAmount   kahanSum
	)
	for _, e := range entries {
		totalVolume += e.tick.Volume
		if e.label.Aggressive() {
			aggAmount.Add(e.tick.Amount)
		} else if e.label.Defensive() {
			defAmount.Add(e.tick.Amount)
		}
	}

	vwap := 0.0
	if totalVolume > 0 {
		vwap = totalAmount / float64(totalVolume)
	}

	orderType, confidence := b.detectPattern(entries)

	return models.SyntheticOrder{
		StartTime:        entries[0].tick.Timestamp,
		EndTime:          entries[len(entries)-1].tick.Timestamp,
		Symbol:           entries[0].tick.Symbol,
		Side:             side,
		TotalVolume:      totalVolume,
		TotalAmount:      totalAmount,
		VWAP:             vwap,
		TickCount:        len(entries),
		OrderType:        orderType,
		Confidence:       confidence,
		AggressiveAmount: aggAmount.Sum(),
		DefensiveAmount:  defAmount.Sum(),
	}
}

// detectPattern распознаёт алгоритмическую нарезку: TWAP — стабильные
// интервалы между дочерними принтами, VWAP — стабильные суммы.
func (b *Builder) detectPattern(entries []bufferedTick) (models.OrderType, float64) {
	if len(entries) < 3 {
		return models.OrderOriginal, 1.0
	}

	intervals := make([]float64, 0, len(entries)-1)
	for i := 1; i < len(entries); i++ {
		intervals = append(intervals, entries[i].tick.Timestamp.Sub(entries[i-1].tick.Timestamp).Seconds())
	}
	if variance(intervals) < b.twapVar {
		return models.OrderAlgoTWAP, 1.3
	}

	amounts := make([]float64, 0, len(entries))
	for _, e := range entries {
		amounts = append(amounts, e.tick.Amount)
	}
	// исторически variance/mean, не настоящий CV — сохранено для паритета
	if m := mean(amounts); m > 0 && variance(amounts)/m < b.vwapCV {
		return models.OrderAlgoVWAP, 1.3
	}

	return models.OrderOriginal, 1.0
}

// appendSorted держит буфер упорядоченным по времени: поздний тик просто
// дописывается, редкий out-of-order вставляется на своё место.
func appendSorted(entries []bufferedTick, e bufferedTick) []bufferedTick {
	n := len(entries)
	if n == 0 || !e.tick.Timestamp.Before(entries[n-1].tick.Timestamp) {
		return append(entries, e)
	}
	i := sort.Search(n, func(j int) bool {
		return entries[j].tick.Timestamp.After(e.tick.Timestamp)
	})
	entries = append(entries, bufferedTick{})
	copy(entries[i+1:], entries[i:])
	entries[i] = e
	return entries
}

func evictBefore(entries []bufferedTick, cutoff time.Time) []bufferedTick {
	i := 0
	for i < len(entries) && entries[i].tick.Timestamp.Before(cutoff) {
		i++
	}
	if i == 0 {
		return entries
	}
	return append(entries[:0], entries[i:]...)
}
