package features

import "github.com/Krimson/vibro-monitor/pkg/dsp"

// timeDomainFeatures вычисляет семь временных фич сигнала:
// RMS, размах, эксцесс, асимметрию, крест-фактор, форм-фактор, импульс-фактор
func timeDomainFeatures(signal []float64) [7]float64 {
	rms := dsp.RMS(signal)
	peakToPeak := dsp.Max(signal) - dsp.Min(signal)
	absMean := dsp.AbsMean(signal)
	absMax := dsp.AbsMax(signal)

	crest, shape, impulse := 0.0, 0.0, 0.0
	if rms > 0 {
		crest = absMax / rms
	}
	if absMean > 0 {
		shape = rms / absMean
		impulse = absMax / absMean
	}

	return [7]float64{
		dsp.SafeFloat(rms),
		dsp.SafeFloat(peakToPeak),
		dsp.SafeFloat(dsp.Kurtosis(signal)),
		dsp.SafeFloat(dsp.Skewness(signal)),
		dsp.SafeFloat(crest),
		dsp.SafeFloat(shape),
		dsp.SafeFloat(impulse),
	}
}
