package dsp

import (
	"math"
	"sort"
)

// Peak представляет спектральный пик
type Peak struct {
	Index int     // Индекс бина
	Freq  float64 // Частота в Гц
	Power float64 // Мощность бина
}

// FindPeaks находит до maxPeaks локальных максимумов спектра, разнесенных
// не менее чем на minSeparation Гц. Бин DC пропускается. Пики возвращаются
// в порядке возрастания частоты.
func FindPeaks(power, freqs []float64, maxPeaks int, minSeparation float64) []Peak {
	if len(power) < 3 || len(power) != len(freqs) {
		return nil
	}

	var candidates []Peak
	for i := 1; i < len(power)-1; i++ {
		if power[i] > power[i-1] && power[i] >= power[i+1] {
			candidates = append(candidates, Peak{Index: i, Freq: freqs[i], Power: power[i]})
		}
	}

	// Сильнейшие сначала, затем отбор с учетом минимального разнесения
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Power > candidates[j].Power })

	var peaks []Peak
	for _, c := range candidates {
		if len(peaks) >= maxPeaks {
			break
		}
		tooClose := false
		for _, p := range peaks {
			if math.Abs(p.Freq-c.Freq) < minSeparation {
				tooClose = true
				break
			}
		}
		if !tooClose {
			peaks = append(peaks, c)
		}
	}

	sort.Slice(peaks, func(i, j int) bool { return peaks[i].Freq < peaks[j].Freq })
	return peaks
}

// DampingRatio оценивает коэффициент демпфирования моды методом
// полуширины полосы: zeta = (f2 - f1) / (2 * f_peak), где f1 и f2 -
// частоты на уровне половинной мощности по обе стороны пика.
func DampingRatio(power, freqs []float64, p Peak) float64 {
	if p.Index <= 0 || p.Index >= len(power)-1 || p.Freq <= 0 {
		return 0
	}
	half := p.Power / 2

	f1 := freqs[0]
	for i := p.Index; i > 0; i-- {
		if power[i-1] <= half {
			f1 = interpCrossing(freqs[i-1], freqs[i], power[i-1], power[i], half)
			break
		}
	}

	f2 := freqs[len(freqs)-1]
	for i := p.Index; i < len(power)-1; i++ {
		if power[i+1] <= half {
			f2 = interpCrossing(freqs[i], freqs[i+1], power[i], power[i+1], half)
			break
		}
	}

	zeta := (f2 - f1) / (2 * p.Freq)
	return Clamp(zeta, 0, 1)
}

// interpCrossing линейно интерполирует частоту пересечения уровня level
func interpCrossing(fa, fb, pa, pb, level float64) float64 {
	if pa == pb {
		return (fa + fb) / 2
	}
	t := (level - pa) / (pb - pa)
	return fa + t*(fb-fa)
}
