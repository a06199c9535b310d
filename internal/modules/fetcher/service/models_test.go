package service

import (
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capital_tracker/internal/models"
)

func TestWireTickDecode(t *testing.T) {
	payload := []byte(`{
		"ts": 1762155000123,
		"symbol": "600519",
		"price": 10.02,
		"volume": 2500,
		"amount": 2505000,
		"direction": "B",
		"bid1_price": 10.01,
		"bid1_volume": 1200,
		"ask1_price": 10.02,
		"ask1_volume": 800
	}`)

	var w wireTick
	require.NoError(t, sonic.Unmarshal(payload, &w))

	tick := w.toTick()
	assert.Equal(t, time.UnixMilli(1762155000123).UTC(), tick.Timestamp)
	assert.Equal(t, "600519", tick.Symbol)
	assert.Equal(t, models.DirBuy, tick.Direction)
	assert.Equal(t, 10.02, tick.Price)
	assert.EqualValues(t, 2500, tick.Volume)
	assert.True(t, tick.HasQuote())
}

func TestParseDirectionVariants(t *testing.T) {
	cases := map[string]models.Direction{
		"B":    models.DirBuy,
		"BUY":  models.DirBuy,
		"buy":  models.DirBuy,
		"1":    models.DirBuy,
		"S":    models.DirSell,
		"SELL": models.DirSell,
		"2":    models.DirSell,
		"N":    models.DirNone,
		"":     models.DirNone,
		"wat":  models.DirNone,
	}
	for raw, want := range cases {
		assert.Equal(t, want, models.ParseDirection(raw), "raw=%q", raw)
	}
}

func TestDecodeTicksSkipsBrokenRows(t *testing.T) {
	wire := []wireTick{
		{TsMs: 1762155000123, Symbol: "600519", Price: 10, Volume: 1, Amount: 1000, Direction: "B"},
		{TsMs: 0, Symbol: "600519"},  // нет времени
		{TsMs: 1762155000124},        // нет символа
	}
	ticks := decodeTicks(wire)
	require.Len(t, ticks, 1)
	assert.Equal(t, "600519", ticks[0].Symbol)
}
