package stream

import "github.com/Krimson/vibro-monitor/internal/window"

// SampleMessage - сэмпл акселерометра на проводе
type SampleMessage struct {
	StructureID string  `json:"structure_id"`
	SensorID    int     `json:"sensor_id"`
	TsMS        int64   `json:"ts_ms"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Z           float64 `json:"z"`
}

// ToSample конвертирует проводное сообщение во внутренний сэмпл
func (m *SampleMessage) ToSample() window.Sample {
	return window.Sample{
		SensorID: m.SensorID,
		TsMS:     m.TsMS,
		X:        m.X,
		Y:        m.Y,
		Z:        m.Z,
	}
}

// AckMessage - подтверждение приема, отправляется источнику
// после каждых N принятых сэмплов
type AckMessage struct {
	Type     string `json:"type"`
	Received int64  `json:"received"`
}
