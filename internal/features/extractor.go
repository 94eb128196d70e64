package features

import (
	"errors"
	"fmt"
	"math"

	"github.com/Krimson/vibro-monitor/internal/config"
	"github.com/Krimson/vibro-monitor/internal/model"
	"github.com/Krimson/vibro-monitor/internal/window"
	"github.com/Krimson/vibro-monitor/pkg/dsp"
)

// ErrSchemaMismatch означает расхождение формы окна или порядка фич
// с контрактом загруженной модели. Это ошибка конфигурации: обработка
// сессии останавливается до исправления.
var ErrSchemaMismatch = errors.New("feature schema mismatch")

// Число фич на датчик: 7 временных + 9 спектральных + 4 вейвлетных
const perSensorFeatures = 20

// Границы фиксированных частотных полос в Гц
var bandEdges = [5]float64{0, 5, 15, 30, 50}

// Extractor детерминированно превращает окно в вектор фич.
// Никакого скрытого состояния: один и тот же вход дает один и тот же выход.
type Extractor struct {
	sampleRate      float64
	expectedSensors int
	minSamples      int
}

// NewExtractor создает экстрактор по настройкам приложения
func NewExtractor(cfg *config.Config) *Extractor {
	return &Extractor{
		sampleRate:      cfg.SampleRateHz,
		expectedSensors: cfg.ExpectedSensors,
		minSamples:      int(cfg.MinWindowFill * cfg.WindowDurationSec * cfg.SampleRateHz),
	}
}

// Extract вычисляет вектор фич окна в порядке, заданном снапшотом модели.
// Любое расхождение формы окна с контрактом модели фатально для сессии.
func (e *Extractor) Extract(w *window.Window, snap *model.Snapshot) ([]float64, error) {
	if err := e.validateShape(w, snap); err != nil {
		return nil, err
	}

	values := make([]float64, 0, model.FeatureCount)

	// Пер-датчиковые фичи в порядке возрастания номера датчика
	sensorIDs := w.SensorIDs()
	rmsAcc := make([]float64, 0, len(sensorIDs))
	peakFreqAcc := make([]float64, 0, len(sensorIDs))

	for _, id := range sensorIDs {
		signal := detrended(window.Magnitude(w.Sensors[id]))

		td := timeDomainFeatures(signal)
		sd := spectralFeatures(signal, e.sampleRate)
		wd := dsp.WaveletEnergies(signal, 3)

		values = append(values, td[:]...)
		values = append(values, sd[:]...)
		values = append(values, wd...)

		rmsAcc = append(rmsAcc, td[0])
		peakFreqAcc = append(peakFreqAcc, sd[7])
	}

	// Кросс-датчиковые агрегаты
	values = append(values,
		dsp.Mean(rmsAcc),
		dsp.Std(rmsAcc),
		dsp.Mean(peakFreqAcc),
		dsp.Std(peakFreqAcc),
	)

	// Производные фичи по спецификации артефакта
	for _, d := range snap.Derived {
		v, err := evalDerived(d, values)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
		}
		values = append(values, dsp.SafeFloat(v))
	}

	if len(values) != len(snap.FeatureNames) {
		return nil, fmt.Errorf("%w: produced %d values for %d feature names",
			ErrSchemaMismatch, len(values), len(snap.FeatureNames))
	}
	return values, nil
}

// validateShape проверяет форму окна против предположений формул фич
func (e *Extractor) validateShape(w *window.Window, snap *model.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: no model snapshot", ErrSchemaMismatch)
	}
	if w.SensorCount != e.expectedSensors {
		return fmt.Errorf("%w: expected %d sensors, window has %d",
			ErrSchemaMismatch, e.expectedSensors, w.SensorCount)
	}
	for id, seq := range w.Sensors {
		if len(seq) < e.minSamples {
			return fmt.Errorf("%w: sensor %d has %d samples, need %d",
				ErrSchemaMismatch, id, len(seq), e.minSamples)
		}
	}
	baseCount := e.expectedSensors*perSensorFeatures + 4
	if baseCount+len(snap.Derived) != len(snap.FeatureNames) {
		return fmt.Errorf("%w: model declares %d names for %d base + %d derived features",
			ErrSchemaMismatch, len(snap.FeatureNames), baseCount, len(snap.Derived))
	}
	return nil
}

// detrended убирает постоянную составляющую (гравитацию) из сигнала
func detrended(signal []float64) []float64 {
	mean := dsp.Mean(signal)
	out := make([]float64, len(signal))
	for i, v := range signal {
		out[i] = v - mean
	}
	return out
}

// evalDerived вычисляет одну производную фичу
func evalDerived(d model.DerivedSpec, values []float64) (float64, error) {
	get := func(i int) (float64, error) {
		if i < 0 || i >= len(values) {
			return 0, fmt.Errorf("derived %q: index %d out of range", d.Name, i)
		}
		return values[i], nil
	}

	switch d.Op {
	case "ratio":
		if len(d.Args) != 2 {
			return 0, fmt.Errorf("derived %q: ratio needs 2 args", d.Name)
		}
		a, err := get(d.Args[0])
		if err != nil {
			return 0, err
		}
		b, err := get(d.Args[1])
		if err != nil {
			return 0, err
		}
		if b == 0 {
			return 0, nil
		}
		return a / b, nil

	case "diff":
		if len(d.Args) != 2 {
			return 0, fmt.Errorf("derived %q: diff needs 2 args", d.Name)
		}
		a, err := get(d.Args[0])
		if err != nil {
			return 0, err
		}
		b, err := get(d.Args[1])
		if err != nil {
			return 0, err
		}
		return a - b, nil

	case "log1p":
		if len(d.Args) != 1 {
			return 0, fmt.Errorf("derived %q: log1p needs 1 arg", d.Name)
		}
		a, err := get(d.Args[0])
		if err != nil {
			return 0, err
		}
		return math.Log1p(math.Abs(a)), nil

	case "scale":
		if len(d.Args) != 1 {
			return 0, fmt.Errorf("derived %q: scale needs 1 arg", d.Name)
		}
		a, err := get(d.Args[0])
		if err != nil {
			return 0, err
		}
		return d.K * a, nil

	case "mean":
		if len(d.Args) == 0 {
			return 0, fmt.Errorf("derived %q: mean needs args", d.Name)
		}
		sum := 0.0
		for _, idx := range d.Args {
			a, err := get(idx)
			if err != nil {
				return 0, err
			}
			sum += a
		}
		return sum / float64(len(d.Args)), nil

	default:
		return 0, fmt.Errorf("derived %q: unknown op %q", d.Name, d.Op)
	}
}
