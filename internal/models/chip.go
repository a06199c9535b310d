package models

// ChipBucket — одна ценовая корзина распределения фишек.
type ChipBucket struct {
	Center float64
	Volume int64
}

// ChipDistribution — гистограмма оборота по ценовым корзинам за сессию.
// Корзины отсортированы по цене, центры равноудалены с шагом Step.
type ChipDistribution struct {
	Step    float64
	Buckets []ChipBucket
}

func (d ChipDistribution) Empty() bool { return len(d.Buckets) == 0 }

// TotalVolume — суммарный оборот по всем корзинам.
func (d ChipDistribution) TotalVolume() int64 {
	var total int64
	for _, b := range d.Buckets {
		total += b.Volume
	}
	return total
}
