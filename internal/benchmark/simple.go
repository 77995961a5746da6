package benchmark

import "math"

func fiveUnevenPeakTrap(x []float64) float64 {
	v := x[0]
	switch {
	case v >= 0 && v < 2.5:
		return 80 * (2.5 - v)
	case v >= 2.5 && v < 5:
		return 64 * (v - 2.5)
	case v >= 5 && v < 7.5:
		return 64 * (7.5 - v)
	case v >= 7.5 && v < 12.5:
		return 28 * (v - 7.5)
	case v >= 12.5 && v < 17.5:
		return 28 * (17.5 - v)
	case v >= 17.5 && v < 22.5:
		return 32 * (v - 17.5)
	case v >= 22.5 && v < 27.5:
		return 32 * (27.5 - v)
	case v >= 27.5 && v <= 30:
		return 80 * (v - 27.5)
	}
	// Outside [0, 30] the trap is undefined.
	return math.NaN()
}

func equalMaxima(x []float64) float64 {
	return math.Pow(math.Sin(5*math.Pi*x[0]), 6)
}

func unevenDecreasingMaxima(x []float64) float64 {
	t := (x[0] - 0.08) / 0.854
	envelope := math.Exp(-2 * math.Ln2 * t * t)
	wave := math.Sin(5 * math.Pi * (math.Pow(x[0], 0.75) - 0.05))
	return envelope * math.Pow(wave, 6)
}

func himmelblau(x []float64) float64 {
	a := x[0]*x[0] + x[1] - 11
	b := x[0] + x[1]*x[1] - 7
	return 200 - a*a - b*b
}

func sixHumpCamelBack(x []float64) float64 {
	x2 := x[0] * x[0]
	x4 := x2 * x2
	y2 := x[1] * x[1]
	expr1 := (4.0 - 2.1*x2 + x4/3.0) * x2
	expr2 := x[0] * x[1]
	expr3 := (4.0*y2 - 4.0) * y2
	return -1.0 * (expr1 + expr2 + expr3)
}

func shubert(x []float64) float64 {
	result := 1.0
	for _, xi := range x {
		sum := 0.0
		for j := 1; j <= 5; j++ {
			fj := float64(j)
			sum += fj * math.Cos((fj+1)*xi+fj)
		}
		result *= sum
	}
	return -result
}

func vincent(x []float64) float64 {
	d := float64(len(x))
	result := 0.0
	for _, xi := range x {
		result += math.Sin(10*math.Log(xi)) / d
	}
	return result
}

func modifiedRastriginAll(x []float64) float64 {
	k := rastriginK(len(x))
	result := 0.0
	for i, xi := range x {
		result += 10 + 9*math.Cos(2*math.Pi*k[i]*xi)
	}
	return -result
}

func rastriginK(dim int) []float64 {
	switch dim {
	case 2:
		return []float64{3, 4}
	case 8:
		return []float64{1, 2, 1, 2, 1, 3, 1, 4}
	case 16:
		return []float64{1, 2, 1, 2, 1, 3, 1, 4, 1, 2, 1, 2, 1, 3, 1, 4}
	}
	k := make([]float64, dim)
	for i := range k {
		k[i] = 1
	}
	return k
}
