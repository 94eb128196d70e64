package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SamplesReceived считает принятые по WebSocket сэмплы
	SamplesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vibro_samples_received_total",
		Help: "Total number of accelerometer samples received",
	})

	// SamplesDropped считает отброшенные сэмплы по причинам
	SamplesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vibro_samples_dropped_total",
		Help: "Total number of samples dropped, by reason",
	}, []string{"reason"})

	// WindowsCompleted считает собранные окна
	WindowsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vibro_windows_completed_total",
		Help: "Total number of completed analysis windows",
	})

	// WindowsDiscarded считает окна, отброшенные по таймауту
	WindowsDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vibro_windows_discarded_total",
		Help: "Total number of incomplete windows discarded as stale",
	})

	// AnomaliesDetected считает окна с баллом выше порога
	AnomaliesDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vibro_anomalies_detected_total",
		Help: "Total number of windows scored above the anomaly threshold",
	})

	// AlertsActive отражает текущее число активных оповещений
	// по каждой конструкции
	AlertsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vibro_alerts_active",
		Help: "Number of currently active alerts, by structure",
	}, []string{"structure_id"})

	// ProcessingDuration измеряет время обработки одного окна
	ProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vibro_window_processing_duration_seconds",
		Help:    "Time spent processing one analysis window",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})
)
