package dsp

import (
	"math"
	"testing"
)

func sineSignal(freq, fs float64, n int) []float64 {
	signal := make([]float64, n)
	for i := range signal {
		signal[i] = math.Sin(2 * math.Pi * freq * float64(i) / fs)
	}
	return signal
}

func TestPowerSpectrum_PeakAtSineFrequency(t *testing.T) {
	fs := 100.0
	signal := sineSignal(10.0, fs, 512)

	power := PowerSpectrum(signal)
	freqs := FreqBins(len(power), fs)

	maxIdx := 0
	for i, p := range power {
		if p > power[maxIdx] {
			maxIdx = i
		}
	}

	if math.Abs(freqs[maxIdx]-10.0) > fs/512 {
		t.Errorf("Expected spectral peak near 10 Hz, got %.3f Hz", freqs[maxIdx])
	}
}

func TestFindPeaks_TwoSines(t *testing.T) {
	fs := 100.0
	n := 1024
	signal := make([]float64, n)
	for i := range signal {
		tSec := float64(i) / fs
		signal[i] = math.Sin(2*math.Pi*8*tSec) + 0.5*math.Sin(2*math.Pi*21*tSec)
	}

	power := PowerSpectrum(signal)
	freqs := FreqBins(len(power), fs)
	peaks := FindPeaks(power, freqs, 3, 2.0)

	if len(peaks) < 2 {
		t.Fatalf("Expected at least 2 peaks, got %d", len(peaks))
	}
	if math.Abs(peaks[0].Freq-8.0) > 0.3 {
		t.Errorf("Expected first peak near 8 Hz, got %.3f Hz", peaks[0].Freq)
	}
	if math.Abs(peaks[1].Freq-21.0) > 0.3 {
		t.Errorf("Expected second peak near 21 Hz, got %.3f Hz", peaks[1].Freq)
	}
}

func TestRMS(t *testing.T) {
	data := []float64{3, -3, 3, -3}
	if rms := RMS(data); math.Abs(rms-3.0) > 1e-12 {
		t.Errorf("Expected RMS=3, got %f", rms)
	}
}

func TestStd_Constant(t *testing.T) {
	data := []float64{5, 5, 5, 5, 5}
	if std := Std(data); std != 0 {
		t.Errorf("Expected zero std for constant signal, got %f", std)
	}
}

func TestKurtosis_Gaussianish(t *testing.T) {
	// Синус имеет эксцесс 1.5 (платикуртик по сравнению с гауссом)
	signal := sineSignal(5.0, 100.0, 2000)
	k := Kurtosis(signal)
	if math.Abs(k-1.5) > 0.1 {
		t.Errorf("Expected kurtosis near 1.5 for a sine, got %f", k)
	}
}

func TestWaveletEnergies_Length(t *testing.T) {
	signal := sineSignal(12.0, 100.0, 800)
	energies := WaveletEnergies(signal, 3)
	if len(energies) != 4 {
		t.Fatalf("Expected 4 energy levels (d1..d3 + a3), got %d", len(energies))
	}
	total := 0.0
	for _, e := range energies {
		if e < 0 {
			t.Errorf("Energy must be non-negative, got %f", e)
		}
		total += e
	}
	if total == 0 {
		t.Error("Expected non-zero total wavelet energy for a sine")
	}
}

func TestClamp(t *testing.T) {
	if v := Clamp(1.5, 0, 1); v != 1 {
		t.Errorf("Expected clamp to 1, got %f", v)
	}
	if v := Clamp(-0.5, 0, 1); v != 0 {
		t.Errorf("Expected clamp to 0, got %f", v)
	}
	if v := Clamp(0.42, 0, 1); v != 0.42 {
		t.Errorf("Expected passthrough, got %f", v)
	}
}
