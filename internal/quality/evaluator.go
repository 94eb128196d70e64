package quality

import (
	"math"
	"sort"

	"github.com/Krimson/vibro-monitor/internal/config"
	"github.com/Krimson/vibro-monitor/internal/window"
	"github.com/Krimson/vibro-monitor/pkg/dsp"
)

// Band представляет категорию качества
type Band string

const (
	BandExcellent Band = "excellent"
	BandGood      Band = "good"
	BandWarn      Band = "warn"
	BandCritical  Band = "critical"
	BandPoor      Band = "poor"
)

// QCResult содержит метрики качества одного окна
type QCResult struct {
	JitterMS   float64 `json:"jitter_ms"`
	JitterBand Band    `json:"jitter_band"`
	Clipping   []int   `json:"clipping"` // Датчики с зажатым сигналом
	SNRDb      float64 `json:"snr_db"`
	SNRBand    Band    `json:"snr_band"`
}

// Evaluator вычисляет метрики качества сигнала по сырому окну
type Evaluator struct {
	sampleRate    float64
	fullScaleG    float64
	clipRunLength int
}

// NewEvaluator создает оценщик качества по настройкам приложения
func NewEvaluator(cfg *config.Config) *Evaluator {
	return &Evaluator{
		sampleRate:    cfg.SampleRateHz,
		fullScaleG:    cfg.ClipFullScaleG,
		clipRunLength: cfg.ClipRunLength,
	}
}

// Evaluate вычисляет джиттер, клиппинг и SNR окна
func (e *Evaluator) Evaluate(w *window.Window) QCResult {
	jitter := e.jitterMS(w)
	snr := e.snrDb(w)

	return QCResult{
		JitterMS:   jitter,
		JitterBand: ClassifyJitter(jitter),
		Clipping:   e.clippedSensors(w),
		SNRDb:      snr,
		SNRBand:    ClassifySNR(snr),
	}
}

// ClassifyJitter относит джиттер к одной из четырех категорий.
// Границы: <1 excellent, <3 good, <5 warn, иначе critical.
func ClassifyJitter(jitterMS float64) Band {
	switch {
	case jitterMS < 1:
		return BandExcellent
	case jitterMS < 3:
		return BandGood
	case jitterMS < 5:
		return BandWarn
	default:
		return BandCritical
	}
}

// ClassifySNR относит SNR к одной из трех категорий.
// Границы: >30 excellent, >20 good, иначе poor.
func ClassifySNR(snrDb float64) Band {
	switch {
	case snrDb > 30:
		return BandExcellent
	case snrDb > 20:
		return BandGood
	default:
		return BandPoor
	}
}

// jitterMS вычисляет стандартное отклонение межсэмпловых интервалов
// в миллисекундах по всем датчикам окна
func (e *Evaluator) jitterMS(w *window.Window) float64 {
	var deltas []float64
	for _, seq := range w.Sensors {
		for i := 1; i < len(seq); i++ {
			deltas = append(deltas, float64(seq[i].TsMS-seq[i-1].TsMS))
		}
	}
	return dsp.Std(deltas)
}

// clippedSensors находит датчики, у которых подряд идущие сэмплы
// упираются в полную шкалу измерения
func (e *Evaluator) clippedSensors(w *window.Window) []int {
	saturation := 0.98 * e.fullScaleG
	var clipped []int

	for id, seq := range w.Sensors {
		if e.hasClipRun(seq, saturation) {
			clipped = append(clipped, id)
		}
	}
	sort.Ints(clipped)
	return clipped
}

func (e *Evaluator) hasClipRun(seq []window.Sample, saturation float64) bool {
	runX, runY, runZ := 0, 0, 0
	for _, s := range seq {
		runX = nextRun(runX, s.X, saturation)
		runY = nextRun(runY, s.Y, saturation)
		runZ = nextRun(runZ, s.Z, saturation)
		if runX >= e.clipRunLength || runY >= e.clipRunLength || runZ >= e.clipRunLength {
			return true
		}
	}
	return false
}

func nextRun(run int, v, saturation float64) int {
	if math.Abs(v) >= saturation {
		return run + 1
	}
	return 0
}

// snrDb оценивает отношение сигнал/шум в децибелах: мощность в полосах
// вокруг спектральных пиков против мощности вне полос, усредненное по датчикам
func (e *Evaluator) snrDb(w *window.Window) float64 {
	var ratios []float64

	for _, id := range w.SensorIDs() {
		mags := window.Magnitude(w.Sensors[id])
		power := dsp.PowerSpectrum(mags)
		if len(power) == 0 {
			continue
		}
		freqs := dsp.FreqBins(len(power), e.sampleRate)
		peaks := dsp.FindPeaks(power, freqs, 3, 1.0)
		if len(peaks) == 0 {
			continue
		}

		inBand := make(map[int]bool)
		for _, p := range peaks {
			for k := p.Index - 2; k <= p.Index+2; k++ {
				if k >= 1 && k < len(power) {
					inBand[k] = true
				}
			}
		}

		signal, noise := 0.0, 0.0
		for k := 1; k < len(power); k++ {
			if inBand[k] {
				signal += power[k]
			} else {
				noise += power[k]
			}
		}
		if noise > 0 {
			ratios = append(ratios, signal/noise)
		}
	}

	if len(ratios) == 0 {
		return 0
	}
	return 10 * math.Log10(dsp.Mean(ratios))
}
