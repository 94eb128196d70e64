package dsp

import "math"

// Hann возвращает оконную функцию Ханна длины n.
// Таперирование перед FFT обязательно: без него спектральная утечка
// портит оценки пиков, и фичи перестают совпадать с обучением.
func Hann(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := 0; i < n; i++ {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

// LargestPow2 возвращает наибольшую степень двойки, не превышающую n
func LargestPow2(n int) int {
	p := 1
	for p*2 <= n {
		p *= 2
	}
	return p
}

// FFT выполняет быстрое преобразование Фурье по основанию 2 на месте.
// Длина обоих срезов должна быть степенью двойки.
func FFT(re, im []float64) {
	n := len(re)

	// Перестановка бит-реверсом
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j |= bit
		if i < j {
			re[i], re[j] = re[j], re[i]
			im[i], im[j] = im[j], im[i]
		}
	}

	for length := 2; length <= n; length <<= 1 {
		ang := -2 * math.Pi / float64(length)
		wRe, wIm := math.Cos(ang), math.Sin(ang)
		for start := 0; start < n; start += length {
			curRe, curIm := 1.0, 0.0
			half := length / 2
			for k := 0; k < half; k++ {
				i1 := start + k
				i2 := start + k + half
				tRe := re[i2]*curRe - im[i2]*curIm
				tIm := re[i2]*curIm + im[i2]*curRe
				re[i2] = re[i1] - tRe
				im[i2] = im[i1] - tIm
				re[i1] += tRe
				im[i1] += tIm
				curRe, curIm = curRe*wRe-curIm*wIm, curRe*wIm+curIm*wRe
			}
		}
	}
}

// PowerSpectrum вычисляет односторонний спектр мощности сигнала.
// Сигнал центрируется, таперируется окном Ханна и усекается до степени двойки.
// Возвращает мощности бинов 0..n/2-1.
func PowerSpectrum(signal []float64) []float64 {
	n := LargestPow2(len(signal))
	if n < 2 {
		return nil
	}

	mean := Mean(signal[:n])
	taper := Hann(n)

	re := make([]float64, n)
	im := make([]float64, n)
	for i := 0; i < n; i++ {
		re[i] = (signal[i] - mean) * taper[i]
	}

	FFT(re, im)

	power := make([]float64, n/2)
	for k := 0; k < n/2; k++ {
		power[k] = re[k]*re[k] + im[k]*im[k]
	}
	return power
}

// FreqBins возвращает частоты бинов одностороннего спектра длины bins
// при частоте дискретизации fs и длине FFT 2*bins.
func FreqBins(bins int, fs float64) []float64 {
	freqs := make([]float64, bins)
	for k := 0; k < bins; k++ {
		freqs[k] = float64(k) * fs / float64(2*bins)
	}
	return freqs
}
