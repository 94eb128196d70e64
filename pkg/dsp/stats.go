package dsp

import "math"

// Mean вычисляет среднее значение
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

// Std вычисляет стандартное отклонение
func Std(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	mean := Mean(data)
	variance := 0.0
	for _, v := range data {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(data))
	return math.Sqrt(variance)
}

// RMS вычисляет среднеквадратичное значение
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(data)))
}

// Min возвращает минимум
func Min(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	min := data[0]
	for _, v := range data[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

// Max возвращает максимум
func Max(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	max := data[0]
	for _, v := range data[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// AbsMean вычисляет среднее модулей
func AbsMean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += math.Abs(v)
	}
	return sum / float64(len(data))
}

// AbsMax возвращает максимум модулей
func AbsMax(data []float64) float64 {
	max := 0.0
	for _, v := range data {
		if a := math.Abs(v); a > max {
			max = a
		}
	}
	return max
}

// Skewness вычисляет коэффициент асимметрии распределения
func Skewness(data []float64) float64 {
	n := float64(len(data))
	if n < 3 {
		return 0
	}
	mean := Mean(data)
	std := Std(data)
	if std == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		z := (v - mean) / std
		sum += z * z * z
	}
	return sum / n
}

// Kurtosis вычисляет эксцесс распределения (без вычитания 3)
func Kurtosis(data []float64) float64 {
	n := float64(len(data))
	if n < 4 {
		return 0
	}
	mean := Mean(data)
	std := Std(data)
	if std == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		z := (v - mean) / std
		sum += z * z * z * z
	}
	return sum / n
}

// SafeFloat заменяет NaN и Inf на ноль, чтобы не ломать JSON и модель
func SafeFloat(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Clamp ограничивает значение диапазоном [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
