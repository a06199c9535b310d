package service

import (
	"math"
	"sort"

	"capital_tracker/internal/models"
	"capital_tracker/internal/modules/config"
)

// ChipAnalyzer строит распределение фишек — гистограмму оборота по ценовым
// корзинам. Работает по сырым тикам, не по синтетике: фишки меряют оборот
// всего рынка, а не только крупного капитала.
type ChipAnalyzer struct {
	priceBins int
	tolerance float64
}

func NewChipAnalyzer(cfg config.Analysis) *ChipAnalyzer {
	return &ChipAnalyzer{
		priceBins: cfg.PriceBins,
		tolerance: cfg.ValidationDistance,
	}
}

// Build раскладывает тики по равным ценовым корзинам [center-step/2, center+step/2).
func (a *ChipAnalyzer) Build(ticks []models.Tick) models.ChipDistribution {
	if len(ticks) == 0 {
		return models.ChipDistribution{}
	}

	minPrice, maxPrice := ticks[0].Price, ticks[0].Price
	for _, t := range ticks[1:] {
		if t.Price < minPrice {
			minPrice = t.Price
		}
		if t.Price > maxPrice {
			maxPrice = t.Price
		}
	}

	if maxPrice == minPrice {
		var total int64
		for _, t := range ticks {
			total += t.Volume
		}
		return models.ChipDistribution{
			Step:    0,
			Buckets: []models.ChipBucket{{Center: minPrice, Volume: total}},
		}
	}

	step := (maxPrice - minPrice) / float64(a.priceBins)
	buckets := make([]models.ChipBucket, a.priceBins)
	for i := range buckets {
		buckets[i].Center = minPrice + (float64(i)+0.5)*step
	}

	for _, t := range ticks {
		idx := int((t.Price - minPrice) / step)
		if idx < 0 {
			idx = 0
		}
		if idx >= a.priceBins {
			idx = a.priceBins - 1 // max_price попадает в последнюю корзину
		}
		buckets[idx].Volume += t.Volume
	}

	return models.ChipDistribution{Step: step, Buckets: buckets}
}

// Peaks — топ-N корзин по обороту; при равенстве выигрывает меньшая цена.
func (a *ChipAnalyzer) Peaks(d models.ChipDistribution, topN int) []models.ChipBucket {
	if d.Empty() || topN <= 0 {
		return nil
	}
	sorted := make([]models.ChipBucket, len(d.Buckets))
	copy(sorted, d.Buckets)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Volume != sorted[j].Volume {
			return sorted[i].Volume > sorted[j].Volume
		}
		return sorted[i].Center < sorted[j].Center
	})
	if topN > len(sorted) {
		topN = len(sorted)
	}
	return sorted[:topN]
}

// SupportResistance ищет опору и сопротивление вокруг референсной цены
// (закрытие сессии): самая тяжёлая корзина не выше неё и самая тяжёлая
// строго выше. Пустая сторона — поле не задано.
func (a *ChipAnalyzer) SupportResistance(d models.ChipDistribution, refPrice float64) (support, resistance float64, hasSupport, hasResistance bool) {
	if d.Empty() {
		return 0, 0, false, false
	}

	var supVol, resVol int64 = -1, -1
	for _, b := range d.Buckets {
		if b.Center <= refPrice {
			if b.Volume > supVol {
				supVol = b.Volume
				support = b.Center
				hasSupport = true
			}
		} else {
			if b.Volume > resVol {
				resVol = b.Volume
				resistance = b.Center
				hasResistance = true
			}
		}
	}
	return support, resistance, hasSupport, hasResistance
}

// Concentration — доля оборота в топ-⌊bins/5⌋ корзинах.
func (a *ChipAnalyzer) Concentration(d models.ChipDistribution) float64 {
	total := d.TotalVolume()
	if total == 0 {
		return 0
	}

	k := len(d.Buckets) / 5
	if k < 1 {
		k = 1
	}
	var top int64
	for _, b := range a.Peaks(d, k) {
		top += b.Volume
	}
	return float64(top) / float64(total)
}

// Validate сверяет оценку стоимости с главным пиком фишек. Далеко от пика —
// оценка не годится как прокси кост-базиса. Нет данных — нечем опровергнуть,
// статус VALID.
func (a *ChipAnalyzer) Validate(weightedCost float64, d models.ChipDistribution) models.ValidationStatus {
	if weightedCost <= 0 || d.Empty() {
		return models.ValidationValid
	}
	peaks := a.Peaks(d, 1)
	if len(peaks) == 0 || peaks[0].Center <= 0 {
		return models.ValidationValid
	}
	peak := peaks[0].Center
	if math.Abs(weightedCost-peak)/peak > a.tolerance {
		return models.ValidationInvalid
	}
	return models.ValidationValid
}
