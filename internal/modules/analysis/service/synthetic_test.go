package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capital_tracker/internal/models"
)

func TestBuilderSingleLargeTick(t *testing.T) {
	b := NewBuilder(testAnalysisConfig())

	tk := tickAt(0, 9.99, 100000, 999000, models.DirBuy)
	orders := b.Feed(tk, models.LabelDefBuy)

	require.Len(t, orders, 1)
	o := orders[0]
	assert.Equal(t, models.SideBuy, o.Side)
	assert.Equal(t, models.OrderOriginal, o.OrderType)
	assert.Equal(t, 1.0, o.Confidence)
	assert.Equal(t, 1, o.TickCount)
	assert.Equal(t, 999000.0, o.TotalAmount)
	assert.Equal(t, 999000.0, o.DefensiveAmount)
	assert.Zero(t, o.AggressiveAmount)
	assert.InDelta(t, 9.99, o.VWAP, 1e-9)

	// буфер очищен
	assert.Empty(t, b.Flush())
}

func TestBuilderTWAPSplit(t *testing.T) {
	b := NewBuilder(testAnalysisConfig())

	// пять равных принтов раз в секунду; порог добирается на четвёртом
	var orders []models.SyntheticOrder
	for i := 0; i < 5; i++ {
		tk := tickAt(i, 10.00, 12500, 125000, models.DirBuy)
		got := b.Feed(tk, models.LabelAggBuy)
		if i < 3 {
			assert.Empty(t, got, "tick %d must not emit", i)
		}
		orders = append(orders, got...)
	}

	require.Len(t, orders, 1)
	o := orders[0]
	assert.Equal(t, models.OrderAlgoTWAP, o.OrderType)
	assert.Equal(t, 1.3, o.Confidence)
	assert.Equal(t, 4, o.TickCount)
	assert.Equal(t, 500000.0, o.TotalAmount)
	assert.InDelta(t, 10.0, o.VWAP, 1e-9)
	assert.LessOrEqual(t, o.EndTime.Sub(o.StartTime), 30*time.Second)

	// пятый тик остался ниже порога и при flush отбрасывается
	assert.Empty(t, b.Flush())
}

func TestBuilderWindowEviction(t *testing.T) {
	b := NewBuilder(testAnalysisConfig())

	first := tickAt(0, 10.00, 3000, 300000, models.DirBuy)
	require.Empty(t, b.Feed(first, models.LabelAggBuy))

	// спустя 40с первый тик протух до проверки порога
	second := tickAt(40, 10.00, 3000, 300000, models.DirBuy)
	require.Empty(t, b.Feed(second, models.LabelAggBuy))

	// остатки по 300000 ниже порога — сессия закрывается пустой
	assert.Empty(t, b.Flush())
}

func TestBuilderVWAPPattern(t *testing.T) {
	b := NewBuilder(testAnalysisConfig())

	// рваные интервалы, но почти одинаковые суммы
	secs := []int{0, 1, 9, 10, 18}
	var orders []models.SyntheticOrder
	for i, s := range secs {
		tk := tickAt(s, 10.00, 2500, 125000+float64(i), models.DirBuy)
		orders = append(orders, b.Feed(tk, models.LabelSmallBuy)...)
	}

	require.Len(t, orders, 1)
	assert.Equal(t, models.OrderAlgoVWAP, orders[0].OrderType)
	assert.Equal(t, 1.3, orders[0].Confidence)
}

func TestBuilderSidesIndependent(t *testing.T) {
	b := NewBuilder(testAnalysisConfig())

	buy := tickAt(0, 10.00, 3000, 300000, models.DirBuy)
	require.Empty(t, b.Feed(buy, models.LabelAggBuy))

	// продажа не добивает порог покупок
	sell := tickAt(1, 10.00, 3000, 300000, models.DirSell)
	require.Empty(t, b.Feed(sell, models.LabelAggSell))

	// вторая покупка добирает порог: BUY эмитится, SELL остаётся
	buy2 := tickAt(2, 10.00, 2000, 200000, models.DirBuy)
	orders := b.Feed(buy2, models.LabelAggBuy)
	require.Len(t, orders, 1)
	assert.Equal(t, models.SideBuy, orders[0].Side)
	assert.Equal(t, 500000.0, orders[0].TotalAmount)
}

func TestBuilderBuyEmitsBeforeSell(t *testing.T) {
	cfg := testAnalysisConfig()
	cfg.SyntheticThreshold = 100000
	b := NewBuilder(cfg)

	// каждая сторона эмитится на том Feed, где добрала порог, поэтому обе
	// стороны сразу получаются только через вытеснение: продажа с
	// отрицательной суммой (билдер битые тики сам не фильтрует) держит
	// продажи ниже порога, пока не выпадет из окна
	require.Empty(t, b.Feed(tickAt(0, 10.00, 500, -50000, models.DirSell), models.LabelSmallSell))
	require.Empty(t, b.Feed(tickAt(1, 10.00, 1200, 120000, models.DirSell), models.LabelSmallSell))
	require.Empty(t, b.Feed(tickAt(2, 10.00, 600, 60000, models.DirBuy), models.LabelSmallBuy))

	// t=31: тик t=0 протух, продажи 120000, покупки 60000+50000 — обе
	// стороны эмитятся в одном вызове, BUY первым
	orders := b.Feed(tickAt(31, 10.00, 500, 50000, models.DirBuy), models.LabelSmallBuy)
	require.Len(t, orders, 2)
	assert.Equal(t, models.SideBuy, orders[0].Side)
	assert.Equal(t, models.SideSell, orders[1].Side)
}

func TestBuilderNoiseIgnored(t *testing.T) {
	b := NewBuilder(testAnalysisConfig())
	orders := b.Feed(tickAt(0, 10.00, 9000, 900000, models.DirNone), models.LabelNoise)
	assert.Empty(t, orders)
	assert.Empty(t, b.Flush())
}

func TestBuilderFlushDiscardsSubThresholdTail(t *testing.T) {
	b := NewBuilder(testAnalysisConfig())

	// одного тика мало для порога, второй его добирает
	require.Empty(t, b.Feed(tickAt(0, 10.00, 3000, 300000, models.DirBuy), models.LabelAggBuy))
	got := b.Feed(tickAt(1, 10.00, 3000, 300000, models.DirBuy), models.LabelAggBuy)

	// 600000 >= 500000: эмиссия случается уже на втором feed
	require.Len(t, got, 1)

	// а сессия с хвостом ниже порога закрывается пусто
	require.Empty(t, b.Feed(tickAt(2, 10.00, 1000, 100000, models.DirBuy), models.LabelAggBuy))
	assert.Empty(t, b.Flush())
}

func TestBuilderVolumeConservation(t *testing.T) {
	b := NewBuilder(testAnalysisConfig())

	var fedVolume, emittedVolume int64
	for i := 0; i < 50; i++ {
		tk := tickAt(i, 10.00, 1000, 100000, models.DirBuy)
		fedVolume += tk.Volume
		for _, o := range b.Feed(tk, models.LabelSmallBuy) {
			emittedVolume += o.TotalVolume
		}
	}
	for _, o := range b.Flush() {
		emittedVolume += o.TotalVolume
	}

	assert.LessOrEqual(t, emittedVolume, fedVolume)
}

func TestBuilderOutOfOrderTolerated(t *testing.T) {
	b := NewBuilder(testAnalysisConfig())

	require.Empty(t, b.Feed(tickAt(5, 10.00, 2000, 200000, models.DirBuy), models.LabelAggBuy))
	// поздний тик со старым таймстемпом просто встаёт на своё место
	require.Empty(t, b.Feed(tickAt(3, 10.00, 2000, 200000, models.DirBuy), models.LabelAggBuy))

	orders := b.Feed(tickAt(6, 10.00, 1000, 100000, models.DirBuy), models.LabelAggBuy)
	require.Len(t, orders, 1)
	assert.Equal(t, tickAt(3, 0, 0, 0, models.DirNone).Timestamp, orders[0].StartTime)
	assert.Equal(t, tickAt(6, 0, 0, 0, models.DirNone).Timestamp, orders[0].EndTime)
}
