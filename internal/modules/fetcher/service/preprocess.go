package service

import (
	"sort"

	"capital_tracker/internal/models"
	"capital_tracker/pkg/logger"
)

// Preprocessor чистит ленту перед конвейером: мусорные записи, дубли,
// сортировка по времени. Ядро и само переживёт битый тик, но зачем
// кормить его заведомым мусором.
type Preprocessor struct {
	minPrice float64
	maxPrice float64
}

func NewPreprocessor() *Preprocessor {
	return &Preprocessor{
		minPrice: 0.01,
		maxPrice: 10000,
	}
}

// CleanStats — сколько и почему выкинули.
type CleanStats struct {
	BadPrice   int
	BadVolume  int
	Duplicates int
}

// Clean отбрасывает записи с ценой вне разумного диапазона и нулевым
// объёмом. Отрицательный amount и перевёрнутый стакан НЕ отбрасываются:
// их обязан посчитать классификатор.
func (p *Preprocessor) Clean(ticks []models.Tick) ([]models.Tick, CleanStats) {
	var stats CleanStats
	cleaned := make([]models.Tick, 0, len(ticks))
	for _, t := range ticks {
		if t.Price < p.minPrice || t.Price > p.maxPrice {
			stats.BadPrice++
			continue
		}
		if t.Volume <= 0 {
			stats.BadVolume++
			continue
		}
		cleaned = append(cleaned, t)
	}
	if stats.BadPrice+stats.BadVolume > 0 {
		logger.Info("preprocess: dropped %d bad price, %d bad volume", stats.BadPrice, stats.BadVolume)
	}
	return cleaned, stats
}

// Dedupe убирает точные дубли (timestamp, price, volume, direction) —
// некоторые источники шлют кадры повторно после реконнекта.
func (p *Preprocessor) Dedupe(ticks []models.Tick) ([]models.Tick, int) {
	type key struct {
		ts     int64
		price  float64
		volume int64
		dir    models.Direction
	}
	seen := make(map[key]struct{}, len(ticks))
	out := ticks[:0]
	dropped := 0
	for _, t := range ticks {
		k := key{ts: t.Timestamp.UnixMilli(), price: t.Price, volume: t.Volume, dir: t.Direction}
		if _, ok := seen[k]; ok {
			dropped++
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	return out, dropped
}

// SortByTime — стабильная сортировка по времени; одновременные тики
// сохраняют порядок ленты.
func (p *Preprocessor) SortByTime(ticks []models.Tick) []models.Tick {
	sort.SliceStable(ticks, func(i, j int) bool {
		return ticks[i].Timestamp.Before(ticks[j].Timestamp)
	})
	return ticks
}

// Prepare — полный цикл: clean, dedupe, sort.
func (p *Preprocessor) Prepare(ticks []models.Tick) []models.Tick {
	cleaned, _ := p.Clean(ticks)
	deduped, _ := p.Dedupe(cleaned)
	return p.SortByTime(deduped)
}
