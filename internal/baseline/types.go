package baseline

import "time"

// Baseline - эталонный спектральный отпечаток здорового состояния
// конструкции. После создания никогда не мутируется.
type Baseline struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	PeakFrequencies []float64       `json:"peak_frequencies"` // Гц, по возрастанию
	DampingRatios   []float64       `json:"damping_ratios"`   // По модам, в порядке пиков
	SensorEnergy    map[int]float64 `json:"sensor_energy"`    // Полная спектральная энергия по датчикам
}

// ComparativeResult - сравнение живого окна с активным эталоном
type ComparativeResult struct {
	BaselineID   string          `json:"baseline_id"`
	DeltaF       []float64       `json:"delta_f"`       // Сдвиг частоты по пикам, %
	DampingDelta []float64       `json:"damping_delta"` // Сдвиг демпфирования по модам
	Heatmap      map[int]float64 `json:"heatmap"`       // Аномальность энергии по датчикам, [0,1]
	Quality      float64         `json:"quality"`       // Общее согласие с эталоном, [0,1]
}

// MaxAbsShift возвращает максимальный по модулю сдвиг частоты в процентах
func (c *ComparativeResult) MaxAbsShift() float64 {
	max := 0.0
	for _, d := range c.DeltaF {
		if a := abs(d); a > max {
			max = a
		}
	}
	return max
}

// ShiftSeverity классифицирует сдвиг собственной частоты.
// Границы: |сдвиг|>5% alert, >2% warn, иначе ok.
func ShiftSeverity(shiftPct float64) string {
	switch {
	case abs(shiftPct) > 5:
		return "alert"
	case abs(shiftPct) > 2:
		return "warn"
	default:
		return "ok"
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
