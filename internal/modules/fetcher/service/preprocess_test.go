package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capital_tracker/internal/models"
)

func rawTick(sec int, price float64, volume int64, dir models.Direction) models.Tick {
	base := time.Date(2025, 11, 3, 9, 30, 0, 0, time.UTC)
	return models.Tick{
		Timestamp: base.Add(time.Duration(sec) * time.Second),
		Symbol:    "600519",
		Price:     price,
		Volume:    volume,
		Amount:    price * float64(volume) * 100,
		Direction: dir,
	}
}

func TestCleanDropsGarbage(t *testing.T) {
	p := NewPreprocessor()

	ticks := []models.Tick{
		rawTick(0, 10.00, 100, models.DirBuy),
		rawTick(1, 0, 100, models.DirBuy),      // нулевая цена
		rawTick(2, 20000, 100, models.DirSell), // цена вне диапазона
		rawTick(3, 10.00, 0, models.DirBuy),    // нулевой объём
		rawTick(4, 10.01, 200, models.DirSell),
	}
	cleaned, stats := p.Clean(ticks)

	require.Len(t, cleaned, 2)
	assert.Equal(t, 2, stats.BadPrice)
	assert.Equal(t, 1, stats.BadVolume)
}

func TestCleanKeepsMalformedForClassifier(t *testing.T) {
	p := NewPreprocessor()

	// отрицательный amount и перевёрнутый стакан — работа классификатора
	bad := rawTick(0, 10.00, 100, models.DirBuy)
	bad.Amount = -5
	inverted := rawTick(1, 10.00, 100, models.DirSell)
	inverted.Bid1Price, inverted.Ask1Price = 10.05, 10.01

	cleaned, _ := p.Clean([]models.Tick{bad, inverted})
	assert.Len(t, cleaned, 2)
}

func TestDedupe(t *testing.T) {
	p := NewPreprocessor()

	a := rawTick(0, 10.00, 100, models.DirBuy)
	b := rawTick(0, 10.00, 100, models.DirBuy) // точный дубль
	c := rawTick(0, 10.00, 100, models.DirSell)

	out, dropped := p.Dedupe([]models.Tick{a, b, c})
	assert.Len(t, out, 2)
	assert.Equal(t, 1, dropped)
}

func TestSortByTimeStable(t *testing.T) {
	p := NewPreprocessor()

	first := rawTick(1, 10.00, 100, models.DirBuy)
	second := rawTick(0, 10.01, 200, models.DirSell)
	third := rawTick(0, 10.02, 300, models.DirBuy) // одно время со вторым

	out := p.SortByTime([]models.Tick{first, second, third})
	require.Len(t, out, 3)
	assert.Equal(t, 10.01, out[0].Price)
	assert.Equal(t, 10.02, out[1].Price) // порядок ленты сохранён
	assert.Equal(t, 10.00, out[2].Price)
}

func TestPrepareFullCycle(t *testing.T) {
	p := NewPreprocessor()

	ticks := []models.Tick{
		rawTick(5, 10.00, 100, models.DirBuy),
		rawTick(5, 10.00, 100, models.DirBuy), // дубль
		rawTick(0, 10.01, 200, models.DirSell),
		rawTick(3, 0, 100, models.DirBuy), // мусор
	}
	out := p.Prepare(ticks)

	require.Len(t, out, 2)
	assert.True(t, out[0].Timestamp.Before(out[1].Timestamp))
}
