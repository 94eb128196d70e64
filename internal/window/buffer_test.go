package window

import (
	"testing"
	"time"

	"github.com/Krimson/vibro-monitor/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		WindowDurationSec:   1.0,
		SampleRateHz:        10.0,
		ExpectedSensors:     2,
		MinWindowFill:       0.8, // 8 сэмплов на датчик минимум
		WindowOverlap:       0.0,
		StaleWindowTimeout:  50 * time.Millisecond,
		OutOfOrderTolerance: 200 * time.Millisecond,
		DropTooOldMS:        2000,
	}
}

func feed(t *testing.T, b *Buffer, sensorID int, fromMS, toMS, stepMS int64) *Window {
	t.Helper()
	var out *Window
	for ts := fromMS; ts < toMS; ts += stepMS {
		if w := b.Ingest(Sample{SensorID: sensorID, TsMS: ts, X: 0.1, Y: 0.0, Z: 1.0}); w != nil {
			out = w
		}
	}
	return out
}

func TestBuffer_EmitsCompleteWindow(t *testing.T) {
	b := NewBuffer(testConfig())
	defer b.Stop()

	// Оба датчика целиком заполняют окно [10000, 11000)
	feed(t, b, 1, 10000, 11000, 100)
	feed(t, b, 2, 10000, 11000, 100)

	// Окно закрывается только после пересечения границы следующим сэмплом
	w := b.Ingest(Sample{SensorID: 1, TsMS: 11000, X: 0, Y: 0, Z: 1})
	if w == nil {
		t.Fatal("Expected a sealed window after boundary crossing")
	}
	if w.StartMS != 10000 || w.EndMS != 11000 {
		t.Errorf("Expected window [10000,11000), got [%d,%d)", w.StartMS, w.EndMS)
	}
	if w.SensorCount != 2 {
		t.Errorf("Expected 2 sensors, got %d", w.SensorCount)
	}
	if w.SampleCount != 20 {
		t.Errorf("Expected 20 samples, got %d", w.SampleCount)
	}
}

func TestBuffer_PartialWindowNotEmitted(t *testing.T) {
	b := NewBuffer(testConfig())
	defer b.Stop()

	// Только один датчик из двух ожидаемых
	feed(t, b, 1, 10000, 11000, 100)

	if w := b.Ingest(Sample{SensorID: 1, TsMS: 11000, X: 0, Y: 0, Z: 1}); w != nil {
		t.Fatalf("Partial window must not be emitted, got window with %d samples", w.SampleCount)
	}
}

func TestBuffer_StalePartialDiscarded(t *testing.T) {
	b := NewBuffer(testConfig())
	defer b.Stop()

	feed(t, b, 1, 10000, 11000, 100)

	// Ждем дольше stale-таймаута и запускаем уборку
	time.Sleep(70 * time.Millisecond)
	windows := b.Sweep()
	if len(windows) != 0 {
		t.Errorf("Expected no windows from sweep, got %d", len(windows))
	}

	_, _, _, _, discarded := b.GetStats()
	if discarded != 1 {
		t.Errorf("Expected 1 discarded window, got %d", discarded)
	}
}

func TestBuffer_SweepEmitsCompleteStaleWindow(t *testing.T) {
	b := NewBuffer(testConfig())
	defer b.Stop()

	// Окно собрано целиком, но граница так и не пересечена новыми сэмплами
	feed(t, b, 1, 10000, 11000, 100)
	feed(t, b, 2, 10000, 11000, 100)

	time.Sleep(70 * time.Millisecond)
	windows := b.Sweep()
	if len(windows) != 1 {
		t.Fatalf("Expected 1 window from sweep, got %d", len(windows))
	}
	if windows[0].SampleCount != 20 {
		t.Errorf("Expected 20 samples, got %d", windows[0].SampleCount)
	}
}

func TestBuffer_OutOfOrderWithinTolerance(t *testing.T) {
	b := NewBuffer(testConfig())
	defer b.Stop()

	b.Ingest(Sample{SensorID: 1, TsMS: 10000, X: 0, Y: 0, Z: 1})
	b.Ingest(Sample{SensorID: 1, TsMS: 10200, X: 0, Y: 0, Z: 1})
	b.Ingest(Sample{SensorID: 1, TsMS: 10100, X: 0, Y: 0, Z: 1}) // опоздал, но в пределах допуска

	received, dropped, _, _, _ := b.GetStats()
	if received != 3 {
		t.Errorf("Expected 3 received samples, got %d", received)
	}
	if dropped != 0 {
		t.Errorf("Expected 0 dropped samples, got %d", dropped)
	}
}

func TestBuffer_DropTooOld(t *testing.T) {
	cfg := testConfig()
	cfg.DropTooOldMS = 500
	b := NewBuffer(cfg)
	defer b.Stop()

	b.Ingest(Sample{SensorID: 1, TsMS: 10000, X: 0, Y: 0, Z: 1})
	b.Ingest(Sample{SensorID: 1, TsMS: 11000, X: 0, Y: 0, Z: 1})
	b.Ingest(Sample{SensorID: 1, TsMS: 10100, X: 0, Y: 0, Z: 1}) // отстал на 900мс при допуске 500

	received, dropped, _, _, _ := b.GetStats()
	if received != 2 {
		t.Errorf("Expected 2 received samples, got %d", received)
	}
	if dropped != 1 {
		t.Errorf("Expected 1 dropped sample, got %d", dropped)
	}
}

func TestBuffer_InvalidSampleDropped(t *testing.T) {
	b := NewBuffer(testConfig())
	defer b.Stop()

	if w := b.Ingest(Sample{SensorID: 1, TsMS: 0, X: 0, Y: 0, Z: 1}); w != nil {
		t.Error("Invalid sample must not produce a window")
	}

	_, dropped, _, _, _ := b.GetStats()
	if dropped != 1 {
		t.Errorf("Expected 1 dropped sample, got %d", dropped)
	}
}
