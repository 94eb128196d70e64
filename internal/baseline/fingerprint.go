package baseline

import (
	"fmt"

	"github.com/Krimson/vibro-monitor/internal/window"
	"github.com/Krimson/vibro-monitor/pkg/dsp"
)

// Максимум отслеживаемых мод в отпечатке
const maxFingerprintPeaks = 5

// Минимальное разнесение пиков в Гц
const peakSeparationHz = 1.0

// fingerprint - спектральная выжимка окна для эталона и для сравнения
type fingerprint struct {
	peaks        []dsp.Peak
	dampings     []float64
	sensorEnergy map[int]float64
}

// extractFingerprint усредняет спектры датчиков, находит пики мод,
// оценивает демпфирование и полную энергию каждого датчика
func extractFingerprint(w *window.Window, sampleRate float64) (*fingerprint, error) {
	ids := w.SensorIDs()
	if len(ids) == 0 {
		return nil, fmt.Errorf("window has no sensors")
	}

	// Общая длина спектра: минимальная степень двойки среди датчиков
	minBins := 0
	spectra := make(map[int][]float64, len(ids))
	for _, id := range ids {
		power := dsp.PowerSpectrum(window.Magnitude(w.Sensors[id]))
		if len(power) == 0 {
			return nil, fmt.Errorf("sensor %d: window too short for spectrum", id)
		}
		spectra[id] = power
		if minBins == 0 || len(power) < minBins {
			minBins = len(power)
		}
	}

	avg := make([]float64, minBins)
	sensorEnergy := make(map[int]float64, len(ids))
	for _, id := range ids {
		power := spectra[id]
		energy := 0.0
		for k := 1; k < len(power); k++ {
			energy += power[k]
			if k < minBins {
				avg[k] += power[k]
			}
		}
		sensorEnergy[id] = energy
	}
	for k := range avg {
		avg[k] /= float64(len(ids))
	}

	freqs := dsp.FreqBins(minBins, sampleRate)
	peaks := dsp.FindPeaks(avg, freqs, maxFingerprintPeaks, peakSeparationHz)
	if len(peaks) == 0 {
		return nil, fmt.Errorf("no spectral peaks found in window")
	}

	dampings := make([]float64, len(peaks))
	for i, p := range peaks {
		dampings[i] = dsp.DampingRatio(avg, freqs, p)
	}

	return &fingerprint{
		peaks:        peaks,
		dampings:     dampings,
		sensorEnergy: sensorEnergy,
	}, nil
}
