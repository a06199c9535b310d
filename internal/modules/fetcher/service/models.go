package service

import (
	"time"

	"capital_tracker/internal/models"
)

// wireTick — формат тика у источника Level-2. amount приходит в валюте,
// volume в лотах, направление строкой.
type wireTick struct {
	TsMs      int64   `json:"ts"`
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Volume    int64   `json:"volume"`
	Amount    float64 `json:"amount"`
	Direction string  `json:"direction"`

	Bid1Price  float64 `json:"bid1_price"`
	Bid1Volume int64   `json:"bid1_volume"`
	Ask1Price  float64 `json:"ask1_price"`
	Ask1Volume int64   `json:"ask1_volume"`
}

// toTick нормализует сырой тик: строка направления схлопывается в закрытый
// Direction ещё на границе, дальше ядро строк не видит.
func (w wireTick) toTick() models.Tick {
	return models.Tick{
		Timestamp:  time.UnixMilli(w.TsMs).UTC(),
		Symbol:     w.Symbol,
		Price:      w.Price,
		Volume:     w.Volume,
		Amount:     w.Amount,
		Direction:  models.ParseDirection(w.Direction),
		Bid1Price:  w.Bid1Price,
		Bid1Volume: w.Bid1Volume,
		Ask1Price:  w.Ask1Price,
		Ask1Volume: w.Ask1Volume,
	}
}
