package window

import (
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/Krimson/vibro-monitor/internal/config"
)

// Buffer накапливает сэмплы датчиков в окна фиксированной длительности.
// Окна режутся по границам логического времени, чтобы все датчики
// попадали в один и тот же временной диапазон.
type Buffer struct {
	durationMS      int64
	stepMS          int64 // Шаг между началами окон; равен длительности при нулевом перекрытии
	minSamples      int   // Минимум сэмплов на датчик для валидного FFT-разрешения
	expectedSensors int
	staleTimeoutMS  int64
	tolMS           int64
	dropTooOldMS    int64

	mu      sync.Mutex
	pending map[int64]*pendingWindow
	stopped bool

	stats struct {
		mu         sync.RWMutex
		received   int64
		dropped    int64
		outOfOrder int64
		completed  int64
		discarded  int64
	}
}

// NewBuffer создает буфер окон по настройкам приложения
func NewBuffer(cfg *config.Config) *Buffer {
	durationMS := int64(cfg.WindowDurationSec * 1000)
	stepMS := int64(cfg.WindowDurationSec * (1 - cfg.WindowOverlap) * 1000)
	if stepMS <= 0 {
		stepMS = durationMS
	}
	minSamples := int(cfg.MinWindowFill * cfg.WindowDurationSec * cfg.SampleRateHz)

	return &Buffer{
		durationMS:      durationMS,
		stepMS:          stepMS,
		minSamples:      minSamples,
		expectedSensors: cfg.ExpectedSensors,
		staleTimeoutMS:  cfg.StaleWindowTimeout.Milliseconds(),
		tolMS:           cfg.OutOfOrderTolerance.Milliseconds(),
		dropTooOldMS:    cfg.DropTooOldMS,
	}
}

// Ingest добавляет сэмпл и возвращает окно, если оно собралось.
// Невалидные и безнадежно опоздавшие сэмплы отбрасываются без ошибки.
func (b *Buffer) Ingest(s Sample) *Window {
	if err := b.validateSample(s); err != nil {
		b.incrementDropped()
		log.Printf("[WARN] Invalid sample dropped: %v", err)
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		return nil
	}
	if b.pending == nil {
		b.pending = make(map[int64]*pendingWindow)
	}

	nowWall := time.Now().UnixMilli()
	maxSeen := b.maxSeenTSLocked()

	if maxSeen > 0 && maxSeen-s.TsMS > b.dropTooOldMS {
		b.incrementDropped()
		log.Printf("[WARN] Sample too old, dropped: sensor=%d ts_diff=%d", s.SensorID, maxSeen-s.TsMS)
		return nil
	}
	if maxSeen > 0 && maxSeen-s.TsMS > b.tolMS {
		b.incrementOutOfOrder()
		log.Printf("[WARN] Out of order sample: sensor=%d ts_diff=%d", s.SensorID, maxSeen-s.TsMS)
	}

	// При перекрытии окон сэмпл может принадлежать нескольким окнам сразу
	for _, start := range b.windowStarts(s.TsMS) {
		pw, ok := b.pending[start]
		if !ok {
			pw = newPendingWindow(start, start+b.durationMS)
			b.pending[start] = pw
		}
		pw.addSample(s)
		pw.lastAddedWall = nowWall
	}
	b.incrementReceived()

	return b.sealReadyLocked(s.TsMS)
}

// Sweep отбрасывает окна, не собравшиеся за грейс-период, и возвращает
// окна, которые успели собраться, но чья граница так и не была пересечена
// новыми сэмплами.
func (b *Buffer) Sweep() []*Window {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now().UnixMilli()
	var ready []*Window

	for start, pw := range b.pending {
		if now-pw.lastAddedWall <= b.staleTimeoutMS {
			continue
		}
		if pw.isComplete(b.expectedSensors, b.minSamples) {
			ready = append(ready, pw.seal())
			b.incrementCompleted()
		} else {
			b.incrementDiscarded()
			log.Printf("[WINDOW] Stale partial window discarded: start=%d sensors=%d", start, len(pw.sensors))
		}
		delete(b.pending, start)
	}

	sort.Slice(ready, func(i, j int) bool { return ready[i].StartMS < ready[j].StartMS })
	return ready
}

// Stop освобождает все накопленные частичные окна
func (b *Buffer) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopped = true
	released := len(b.pending)
	b.pending = nil

	if released > 0 {
		log.Printf("[WINDOW] Released %d partial windows on stop", released)
	}
	b.logStats()
}

// GetStats возвращает счетчики буфера
func (b *Buffer) GetStats() (received, dropped, outOfOrder, completed, discarded int64) {
	b.stats.mu.RLock()
	defer b.stats.mu.RUnlock()
	return b.stats.received, b.stats.dropped, b.stats.outOfOrder, b.stats.completed, b.stats.discarded
}

func (b *Buffer) validateSample(s Sample) error {
	if s.TsMS <= 0 {
		return fmt.Errorf("invalid timestamp: %d", s.TsMS)
	}
	if s.SensorID < 0 {
		return fmt.Errorf("invalid sensor id: %d", s.SensorID)
	}
	for _, v := range [3]float64{s.X, s.Y, s.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("invalid acceleration value: %f", v)
		}
	}
	return nil
}

// windowStarts возвращает начала всех окон, покрывающих момент ts
func (b *Buffer) windowStarts(ts int64) []int64 {
	first := (ts / b.stepMS) * b.stepMS
	var starts []int64
	for start := first; start > first-b.durationMS; start -= b.stepMS {
		if start < 0 {
			break
		}
		if ts >= start && ts < start+b.durationMS {
			starts = append(starts, start)
		}
	}
	return starts
}

// sealReadyLocked закрывает самое старое окно, чья граница пройдена временем ts.
// Неполное окно с пройденной границей остается ждать опоздавшие сэмплы
// до stale-таймаута.
func (b *Buffer) sealReadyLocked(ts int64) *Window {
	var oldest *pendingWindow
	var oldestStart int64
	for start, pw := range b.pending {
		if ts < pw.endMS {
			continue
		}
		if oldest == nil || start < oldestStart {
			oldest = pw
			oldestStart = start
		}
	}
	if oldest == nil {
		return nil
	}
	if !oldest.isComplete(b.expectedSensors, b.minSamples) {
		return nil
	}

	delete(b.pending, oldestStart)
	b.incrementCompleted()
	return oldest.seal()
}

func (b *Buffer) maxSeenTSLocked() int64 {
	var max int64
	for _, pw := range b.pending {
		for _, seq := range pw.sensors {
			if n := len(seq); n > 0 && seq[n-1].TsMS > max {
				max = seq[n-1].TsMS
			}
		}
	}
	return max
}

// Методы для работы со статистикой
func (b *Buffer) incrementReceived() {
	b.stats.mu.Lock()
	b.stats.received++
	b.stats.mu.Unlock()
}

func (b *Buffer) incrementDropped() {
	b.stats.mu.Lock()
	b.stats.dropped++
	b.stats.mu.Unlock()
}

func (b *Buffer) incrementOutOfOrder() {
	b.stats.mu.Lock()
	b.stats.outOfOrder++
	b.stats.mu.Unlock()
}

func (b *Buffer) incrementCompleted() {
	b.stats.mu.Lock()
	b.stats.completed++
	b.stats.mu.Unlock()
}

func (b *Buffer) incrementDiscarded() {
	b.stats.mu.Lock()
	b.stats.discarded++
	b.stats.mu.Unlock()
}

func (b *Buffer) logStats() {
	b.stats.mu.RLock()
	defer b.stats.mu.RUnlock()
	log.Printf("[STATS] received=%d dropped=%d out_of_order=%d completed=%d discarded=%d",
		b.stats.received, b.stats.dropped, b.stats.outOfOrder, b.stats.completed, b.stats.discarded)
}
