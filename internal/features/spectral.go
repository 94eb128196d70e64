package features

import (
	"math"

	"github.com/Krimson/vibro-monitor/pkg/dsp"
)

// spectralFeatures вычисляет девять спектральных фич сигнала:
// центроид, энтропию, полную энергию, энергии четырех фиксированных полос,
// частоту и мощность доминирующего пика
func spectralFeatures(signal []float64, sampleRate float64) [9]float64 {
	power := dsp.PowerSpectrum(signal)
	if len(power) == 0 {
		return [9]float64{}
	}
	freqs := dsp.FreqBins(len(power), sampleRate)

	var total, centroidNum float64
	for k := 1; k < len(power); k++ {
		total += power[k]
		centroidNum += freqs[k] * power[k]
	}

	centroid := 0.0
	if total > 0 {
		centroid = centroidNum / total
	}

	// Спектральная энтропия, нормированная к [0,1]
	entropy := 0.0
	if total > 0 && len(power) > 2 {
		for k := 1; k < len(power); k++ {
			p := power[k] / total
			if p > 0 {
				entropy -= p * math.Log(p)
			}
		}
		entropy /= math.Log(float64(len(power) - 1))
	}

	// Энергии фиксированных полос
	var bands [4]float64
	for k := 1; k < len(power); k++ {
		for b := 0; b < 4; b++ {
			if freqs[k] >= bandEdges[b] && freqs[k] < bandEdges[b+1] {
				bands[b] += power[k]
				break
			}
		}
	}

	// Доминирующий пик без DC-бина
	peakIdx := 1
	for k := 2; k < len(power); k++ {
		if power[k] > power[peakIdx] {
			peakIdx = k
		}
	}

	return [9]float64{
		dsp.SafeFloat(centroid),
		dsp.SafeFloat(entropy),
		dsp.SafeFloat(total),
		dsp.SafeFloat(bands[0]),
		dsp.SafeFloat(bands[1]),
		dsp.SafeFloat(bands[2]),
		dsp.SafeFloat(bands[3]),
		dsp.SafeFloat(freqs[peakIdx]),
		dsp.SafeFloat(power[peakIdx]),
	}
}
