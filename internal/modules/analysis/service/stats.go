package service

// mean — среднее арифметическое, 0 для пустого среза.
func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var k kahanSum
	for _, x := range xs {
		k.Add(x)
	}
	return k.Sum() / float64(len(xs))
}

// variance — популяционная дисперсия (делитель N, как np.var).
func variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var k kahanSum
	for _, x := range xs {
		d := x - m
		k.Add(d * d)
	}
	return k.Sum() / float64(len(xs))
}

// kahanSum — компенсированное суммирование. Дневные суммы по одному
// инструменту укладываются в float64, но накопление в один проход
// обязано быть численно устойчивым.
type kahanSum struct {
	sum float64
	c   float64
}

func (k *kahanSum) Add(x float64) {
	y := x - k.c
	t := k.sum + y
	k.c = (t - k.sum) - y
	k.sum = t
}

func (k *kahanSum) Sum() float64 { return k.sum }
