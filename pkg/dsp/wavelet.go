package dsp

import "math"

// Коэффициенты масштабирующего фильтра вейвлета Добеши-4
var db4Scaling [4]float64

func init() {
	s := math.Sqrt(3)
	d := 4 * math.Sqrt2
	db4Scaling = [4]float64{
		(1 + s) / d,
		(3 + s) / d,
		(3 - s) / d,
		(1 - s) / d,
	}
}

// dwtStep выполняет один уровень дискретного вейвлет-разложения
// с периодическим продолжением сигнала
func dwtStep(signal []float64) (approx, detail []float64) {
	n := len(signal)
	half := n / 2
	approx = make([]float64, half)
	detail = make([]float64, half)

	for i := 0; i < half; i++ {
		var a, dt float64
		for k := 0; k < 4; k++ {
			v := signal[(2*i+k)%n]
			a += db4Scaling[k] * v
			// Вейвлет-фильтр: g[k] = (-1)^k * h[3-k]
			if k%2 == 0 {
				dt += db4Scaling[3-k] * v
			} else {
				dt -= db4Scaling[3-k] * v
			}
		}
		approx[i] = a
		detail[i] = dt
	}
	return approx, detail
}

// WaveletEnergies выполняет разложение Добеши-4 глубины depth и возвращает
// средние энергии детализирующих уровней d1..dN и аппроксимации aN.
// Длина результата depth+1.
func WaveletEnergies(signal []float64, depth int) []float64 {
	energies := make([]float64, 0, depth+1)
	current := signal

	for level := 0; level < depth; level++ {
		if len(current) < 8 {
			// Сигнал слишком короткий для следующего уровня
			for len(energies) < depth {
				energies = append(energies, 0)
			}
			break
		}
		approx, detail := dwtStep(current)
		energies = append(energies, meanEnergy(detail))
		current = approx
	}

	energies = append(energies, meanEnergy(current))
	return energies
}

func meanEnergy(coeffs []float64) float64 {
	if len(coeffs) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range coeffs {
		sum += c * c
	}
	return sum / float64(len(coeffs))
}
