package session

import "time"

// Status представляет статус сессии мониторинга
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusStopped Status = "STOPPED"
	StatusError   Status = "ERROR"
)

// Session представляет сессию мониторинга одной конструкции.
// Сессия создается автоматически при поступлении первых сэмплов.
type Session struct {
	ID              string     `json:"id"`
	StructureID     string     `json:"structure_id"`
	Status          Status     `json:"status"`
	StartedAt       time.Time  `json:"started_at"`
	StoppedAt       *time.Time `json:"stopped_at,omitempty"`
	TotalDurationMs int64      `json:"total_duration_ms"`
	TotalSamples    int64      `json:"total_samples"`
	TotalWindows    int64      `json:"total_windows"`
	LastError       string     `json:"last_error,omitempty"`
}
