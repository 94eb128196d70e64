package stream

import (
	"github.com/Krimson/vibro-monitor/internal/alerts"
	"github.com/Krimson/vibro-monitor/internal/anomaly"
	"github.com/Krimson/vibro-monitor/internal/baseline"
	"github.com/Krimson/vibro-monitor/internal/quality"
)

// Типы событий исходящего потока
const (
	EventWindowResult     = "window_result"
	EventBaselineMarked   = "baseline_marked"
	EventBaselineSelected = "baseline_selected"
	EventParametersUpdate = "parameters_update"
	EventError            = "error"
)

// Event - конверт события исходящего потока. Тип определяет,
// какое из опциональных полей заполнено.
type Event struct {
	Type        string             `json:"type"`
	StructureID string             `json:"structure_id,omitempty"`
	TsMS        int64              `json:"ts_ms"`
	Window      *WindowResult      `json:"window,omitempty"`
	Baseline    *baseline.Baseline `json:"baseline,omitempty"`
	Parameters  *Parameters        `json:"parameters,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// WindowResult - результат обработки одного окна для фронтенда
type WindowResult struct {
	StartMS     int64                       `json:"start_ms"`
	EndMS       int64                       `json:"end_ms"`
	QC          quality.QCResult            `json:"qc"`
	MLAnomaly   *anomaly.Result             `json:"ml_anomaly,omitempty"`
	Comparative *baseline.ComparativeResult `json:"comparative,omitempty"`
	Alerts      []alerts.Alert              `json:"alerts,omitempty"`
}

// Parameters - действующие параметры обработки, отправляются
// клиенту при изменении конфигурации
type Parameters struct {
	WindowDurationSec float64 `json:"window_duration_sec"`
	SampleRateHz      float64 `json:"sample_rate_hz"`
	AnomalyThreshold  float64 `json:"anomaly_threshold"`
	ActiveBaselineID  string  `json:"active_baseline_id,omitempty"`
}

// NewWindowResultEvent собирает событие результата окна
func NewWindowResultEvent(structureID string, tsMS int64, result *WindowResult) *Event {
	return &Event{
		Type:        EventWindowResult,
		StructureID: structureID,
		TsMS:        tsMS,
		Window:      result,
	}
}

// NewBaselineMarkedEvent собирает событие создания эталона
func NewBaselineMarkedEvent(structureID string, tsMS int64, b *baseline.Baseline) *Event {
	return &Event{
		Type:        EventBaselineMarked,
		StructureID: structureID,
		TsMS:        tsMS,
		Baseline:    b,
	}
}

// NewBaselineSelectedEvent собирает событие выбора активного эталона
func NewBaselineSelectedEvent(structureID string, tsMS int64, b *baseline.Baseline) *Event {
	return &Event{
		Type:        EventBaselineSelected,
		StructureID: structureID,
		TsMS:        tsMS,
		Baseline:    b,
	}
}

// NewParametersEvent собирает событие смены параметров обработки
func NewParametersEvent(structureID string, tsMS int64, p *Parameters) *Event {
	return &Event{
		Type:        EventParametersUpdate,
		StructureID: structureID,
		TsMS:        tsMS,
		Parameters:  p,
	}
}

// NewErrorEvent собирает событие ошибки сессии
func NewErrorEvent(structureID string, tsMS int64, message string) *Event {
	return &Event{
		Type:        EventError,
		StructureID: structureID,
		TsMS:        tsMS,
		Error:       message,
	}
}
