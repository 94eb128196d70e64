package session

import (
	"errors"
	"fmt"

	"github.com/Krimson/vibro-monitor/internal/alerts"
	"github.com/Krimson/vibro-monitor/internal/anomaly"
	"github.com/Krimson/vibro-monitor/internal/baseline"
	"github.com/Krimson/vibro-monitor/internal/config"
	"github.com/Krimson/vibro-monitor/internal/features"
	"github.com/Krimson/vibro-monitor/internal/metrics"
	"github.com/Krimson/vibro-monitor/internal/model"
	"github.com/Krimson/vibro-monitor/internal/quality"
	"github.com/Krimson/vibro-monitor/internal/stream"
	"github.com/Krimson/vibro-monitor/internal/window"
	"github.com/prometheus/client_golang/prometheus"
)

// ErrSchemaMismatch сигнализирует о несовместимости модели и потока:
// сессия должна остановиться с ошибкой, а не продолжать со
// сломанными признаками
var ErrSchemaMismatch = errors.New("feature schema mismatch")

// Pipeline обрабатывает одно собранное окно: качество сигнала,
// признаки, скоринг, сравнение с эталоном и правила оповещения.
// Стадии не держат состояния сессии: диспетчер оповещений живет
// в sessionState и передается с каждым окном, активный эталон
// менеджер эталонов выбирает по конструкции.
type Pipeline struct {
	evaluator *quality.Evaluator
	extractor *features.Extractor
	models    *model.Manager
	detector  *anomaly.Detector
	baselines *baseline.Manager
}

// NewPipeline собирает конвейер обработки окон
func NewPipeline(cfg *config.Config, models *model.Manager, baselines *baseline.Manager) *Pipeline {
	return &Pipeline{
		evaluator: quality.NewEvaluator(cfg),
		extractor: features.NewExtractor(cfg),
		models:    models,
		detector:  anomaly.NewDetector(cfg),
		baselines: baselines,
	}
}

// ProcessWindow прогоняет окно сессии через все стадии конвейера.
// Ошибка схемы признаков фатальна для сессии.
func (p *Pipeline) ProcessWindow(structureID string, w *window.Window, dispatcher *alerts.Dispatcher) (*stream.WindowResult, error) {
	timer := prometheus.NewTimer(metrics.ProcessingDuration)
	defer timer.ObserveDuration()

	qc := p.evaluator.Evaluate(w)

	snap := p.models.Current()
	values, err := p.extractor.Extract(w, snap)
	if err != nil {
		if errors.Is(err, features.ErrSchemaMismatch) {
			return nil, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
		}
		return nil, fmt.Errorf("feature extraction failed: %w", err)
	}

	ml := p.detector.Score(values, snap)
	if ml.IsAnomaly {
		metrics.AnomaliesDetected.Inc()
	}

	var cmp *baseline.ComparativeResult
	if result, ok := p.baselines.Compare(structureID, w); ok {
		cmp = result
	}

	raised := dispatcher.Evaluate(qc, &ml, cmp)
	metrics.AlertsActive.WithLabelValues(structureID).Set(float64(dispatcher.ActiveCount()))

	return &stream.WindowResult{
		StartMS:     w.StartMS,
		EndMS:       w.EndMS,
		QC:          qc,
		MLAnomaly:   &ml,
		Comparative: cmp,
		Alerts:      raised,
	}, nil
}
