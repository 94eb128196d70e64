package alerts

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Krimson/vibro-monitor/internal/anomaly"
	"github.com/Krimson/vibro-monitor/internal/baseline"
	"github.com/Krimson/vibro-monitor/internal/config"
	"github.com/Krimson/vibro-monitor/internal/quality"
)

const (
	SeverityWarn  = "warn"
	SeverityAlert = "alert"
)

// Пороги правил оповещения
const (
	jitterWarnMS      = 5.0
	freqShiftAlertPct = 5.0
	energyWarnLevel   = 0.7
)

// Alert - активное оповещение. Пара {ID, Severity} уникальна
// среди активных: повторное срабатывание того же правила с тем же
// текстом подавляется до истечения TTL.
type Alert struct {
	ID        string    `json:"id"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

type alertKey struct {
	id       string
	severity string
}

// Dispatcher применяет правила оповещения к результатам обработки
// окна и подавляет дубликаты в пределах TTL
type Dispatcher struct {
	mu     sync.Mutex
	active map[alertKey]*Alert
	ttl    time.Duration
	now    func() time.Time

	raised     int64
	suppressed int64
	expired    int64
}

// NewDispatcher создает диспетчер оповещений по настройкам приложения
func NewDispatcher(cfg *config.Config) *Dispatcher {
	return &Dispatcher{
		active: make(map[alertKey]*Alert),
		ttl:    cfg.AlertTTL,
		now:    time.Now,
	}
}

// Evaluate применяет все правила к результатам одного окна и возвращает
// новые либо изменившиеся оповещения. Результат сравнения и скоринга
// могут отсутствовать: соответствующие правила тогда не проверяются.
func (d *Dispatcher) Evaluate(qc quality.QCResult, ml *anomaly.Result, cmp *baseline.ComparativeResult) []Alert {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.sweepLocked(now)

	var emitted []Alert
	emit := func(id, severity, message string) {
		if a := d.raiseLocked(id, severity, message, now); a != nil {
			emitted = append(emitted, *a)
		}
	}

	if qc.JitterMS >= jitterWarnMS {
		emit("jitter", SeverityWarn, "high jitter")
	}
	if len(qc.Clipping) > 0 {
		emit("clipping", SeverityAlert,
			fmt.Sprintf("signal clipping on %s", sensorList(qc.Clipping)))
	}

	if cmp != nil {
		if shift := cmp.MaxAbsShift(); shift > freqShiftAlertPct {
			emit("freq_shift", SeverityAlert,
				fmt.Sprintf("frequency shift %.1f%%", shift))
		}
		if hot := hotSensors(cmp.Heatmap); len(hot) > 0 {
			emit("energy", SeverityWarn,
				fmt.Sprintf("energy anomaly on %s", sensorList(hot)))
		}
	}

	if ml != nil && ml.IsAnomaly {
		emit("anomaly", SeverityAlert, "anomaly detected")
	}

	return emitted
}

// raiseLocked регистрирует срабатывание правила. Возвращает оповещение,
// если оно новое или его текст изменился, иначе nil.
func (d *Dispatcher) raiseLocked(id, severity, message string, now time.Time) *Alert {
	key := alertKey{id: id, severity: severity}

	if existing, ok := d.active[key]; ok {
		if existing.Message == message {
			// Тот же текст в пределах TTL: подавляем, но продлеваем жизнь
			existing.LastSeen = now
			d.suppressed++
			return nil
		}
		// Текст изменился: заменяем и начинаем отсчет заново
		existing.Message = message
		existing.FirstSeen = now
		existing.LastSeen = now
		d.raised++
		return existing
	}

	a := &Alert{
		ID:        id,
		Severity:  severity,
		Message:   message,
		FirstSeen: now,
		LastSeen:  now,
	}
	d.active[key] = a
	d.raised++
	log.Printf("[ALERTS] Raised %s/%s: %s", id, severity, message)
	return a
}

// sweepLocked удаляет оповещения, не подтверждавшиеся дольше TTL
func (d *Dispatcher) sweepLocked(now time.Time) {
	for key, a := range d.active {
		if now.Sub(a.LastSeen) > d.ttl {
			delete(d.active, key)
			d.expired++
		}
	}
}

// Active возвращает срез активных оповещений, отсортированный по ID
func (d *Dispatcher) Active() []Alert {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Alert, 0, len(d.active))
	for _, a := range d.active {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		return out[i].Severity < out[j].Severity
	})
	return out
}

// ActiveCount возвращает число активных оповещений
func (d *Dispatcher) ActiveCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.active)
}

// GetStats возвращает счетчики срабатываний, подавлений и истечений
func (d *Dispatcher) GetStats() (raised, suppressed, expired int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.raised, d.suppressed, d.expired
}

// hotSensors возвращает датчики с аномальной энергией, по возрастанию номера
func hotSensors(heatmap map[int]float64) []int {
	var hot []int
	for id, v := range heatmap {
		if v > energyWarnLevel {
			hot = append(hot, id)
		}
	}
	sort.Ints(hot)
	return hot
}

// sensorList форматирует номера датчиков как "S1, S3, S5"
func sensorList(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("S%d", id)
	}
	return strings.Join(parts, ", ")
}
