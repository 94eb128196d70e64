package baseline

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/Krimson/vibro-monitor/internal/config"
	"github.com/Krimson/vibro-monitor/internal/window"
)

func testConfig() *config.Config {
	return &config.Config{SampleRateHz: 100.0}
}

// makeWindow строит окно: каждый датчик несет синус частоты freq
// с заданной амплитудой на вертикальной оси
func makeWindow(sensors, n int, freq, amplitude float64) *window.Window {
	w := &window.Window{
		StartMS: 10000,
		EndMS:   10000 + int64(n)*10,
		Sensors: make(map[int][]window.Sample),
	}
	for id := 1; id <= sensors; id++ {
		seq := make([]window.Sample, n)
		for i := 0; i < n; i++ {
			seq[i] = window.Sample{
				SensorID: id,
				TsMS:     w.StartMS + int64(i)*10,
				Z:        1.0 + amplitude*math.Sin(2*math.Pi*freq*float64(i)/100.0),
			}
		}
		w.Sensors[id] = seq
		w.SampleCount += n
	}
	w.SensorCount = sensors
	return w
}

func TestMark_CreatesImmutableBaseline(t *testing.T) {
	m := NewManager(testConfig(), nil, nil)
	w := makeWindow(3, 2048, 10.0, 0.1)

	b, err := m.Mark(context.Background(), "healthy", "после монтажа", w)
	if err != nil {
		t.Fatalf("Mark failed: %v", err)
	}
	if b.ID == "" || b.Name != "healthy" {
		t.Errorf("Unexpected baseline identity: id=%q name=%q", b.ID, b.Name)
	}
	if len(b.PeakFrequencies) == 0 {
		t.Fatal("Expected at least one peak frequency in fingerprint")
	}
	if math.Abs(b.PeakFrequencies[0]-10.0) > 0.2 {
		t.Errorf("Expected first peak near 10 Hz, got %f", b.PeakFrequencies[0])
	}
	if len(b.DampingRatios) != len(b.PeakFrequencies) {
		t.Errorf("Damping ratios must align with peaks: %d vs %d",
			len(b.DampingRatios), len(b.PeakFrequencies))
	}
}

func TestMark_NeverOverwrites(t *testing.T) {
	m := NewManager(testConfig(), nil, nil)
	w := makeWindow(3, 2048, 10.0, 0.1)

	first, err := m.Mark(context.Background(), "base", "", w)
	if err != nil {
		t.Fatalf("Mark failed: %v", err)
	}
	second, err := m.Mark(context.Background(), "base", "", w)
	if err != nil {
		t.Fatalf("Mark failed: %v", err)
	}

	if first.ID == second.ID {
		t.Error("Expected distinct baseline ids for repeated mark")
	}
	if got := len(m.List()); got != 2 {
		t.Errorf("Expected 2 baselines in list, got %d", got)
	}
}

func TestSelect_UnknownIDFails(t *testing.T) {
	m := NewManager(testConfig(), nil, nil)
	w := makeWindow(3, 2048, 10.0, 0.1)

	b, err := m.Mark(context.Background(), "base", "", w)
	if err != nil {
		t.Fatalf("Mark failed: %v", err)
	}
	if err := m.Select("bridge-1", b.ID); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	if err := m.Select("bridge-1", "no-such-id"); !errors.Is(err, ErrBaselineNotFound) {
		t.Errorf("Expected ErrBaselineNotFound, got %v", err)
	}
	// Активный эталон не должен измениться после неудачного выбора
	if active := m.Active("bridge-1"); active == nil || active.ID != b.ID {
		t.Error("Active baseline must stay unchanged after failed select")
	}
}

func TestSelect_IsolatedPerStructure(t *testing.T) {
	m := NewManager(testConfig(), nil, nil)
	w := makeWindow(3, 2048, 10.0, 0.1)

	b, err := m.Mark(context.Background(), "base", "", w)
	if err != nil {
		t.Fatalf("Mark failed: %v", err)
	}
	if err := m.Select("bridge-A", b.ID); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	// Выбор для одной конструкции не затрагивает остальные
	if active := m.Active("bridge-B"); active != nil {
		t.Errorf("Expected no active baseline for bridge-B, got %s", active.ID)
	}
	if _, ok := m.Compare("bridge-B", w); ok {
		t.Error("Expected no comparative result for structure without active baseline")
	}

	if active := m.Active("bridge-A"); active == nil || active.ID != b.ID {
		t.Error("Expected baseline active for bridge-A")
	}
	if _, ok := m.Compare("bridge-A", w); !ok {
		t.Error("Expected comparative result for bridge-A")
	}
}

func TestCompare_NoActiveBaseline(t *testing.T) {
	m := NewManager(testConfig(), nil, nil)
	w := makeWindow(3, 2048, 10.0, 0.1)

	if _, ok := m.Compare("bridge-1", w); ok {
		t.Error("Expected no comparative result without an active baseline")
	}
}

func TestCompare_IdenticalWindowAgrees(t *testing.T) {
	m := NewManager(testConfig(), nil, nil)
	w := makeWindow(3, 2048, 10.0, 0.1)

	b, err := m.Mark(context.Background(), "base", "", w)
	if err != nil {
		t.Fatalf("Mark failed: %v", err)
	}
	if err := m.Select("bridge-1", b.ID); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	result, ok := m.Compare("bridge-1", w)
	if !ok {
		t.Fatal("Expected comparative result with active baseline")
	}
	if result.MaxAbsShift() > 0.01 {
		t.Errorf("Expected near-zero frequency shift, got %f%%", result.MaxAbsShift())
	}
	if result.Quality < 0.9 {
		t.Errorf("Expected high quality for identical window, got %f", result.Quality)
	}
	for id, v := range result.Heatmap {
		if v > 0.05 {
			t.Errorf("Expected near-zero energy anomaly for sensor %d, got %f", id, v)
		}
	}
}

func TestCompare_FrequencyShiftAlert(t *testing.T) {
	m := NewManager(testConfig(), nil, nil)

	// Эталон на 10.0 Гц, живое окно на 10.6 Гц: сдвиг около 6%
	if _, err := m.Mark(context.Background(), "base", "", makeWindow(3, 2048, 10.0, 0.1)); err != nil {
		t.Fatalf("Mark failed: %v", err)
	}
	if err := m.Select("bridge-1", m.List()[0].ID); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	result, ok := m.Compare("bridge-1", makeWindow(3, 2048, 10.6, 0.1))
	if !ok {
		t.Fatal("Expected comparative result")
	}

	shift := result.MaxAbsShift()
	if shift < 5.0 || shift > 7.0 {
		t.Errorf("Expected shift near 6%%, got %f%%", shift)
	}
	if sev := ShiftSeverity(shift); sev != "alert" {
		t.Errorf("Expected alert severity for %f%% shift, got %s", shift, sev)
	}
}

func TestCompare_EnergyHeatmap(t *testing.T) {
	m := NewManager(testConfig(), nil, nil)

	if _, err := m.Mark(context.Background(), "base", "", makeWindow(3, 2048, 10.0, 0.1)); err != nil {
		t.Fatalf("Mark failed: %v", err)
	}
	if err := m.Select("bridge-1", m.List()[0].ID); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	// Амплитуда вчетверо выше: энергия растет в 16 раз
	live := makeWindow(3, 2048, 10.0, 0.4)
	result, ok := m.Compare("bridge-1", live)
	if !ok {
		t.Fatal("Expected comparative result")
	}
	for id, v := range result.Heatmap {
		if v < 0.7 {
			t.Errorf("Expected strong energy anomaly for sensor %d, got %f", id, v)
		}
	}
}

func TestShiftSeverity_Bands(t *testing.T) {
	cases := []struct {
		shift    float64
		severity string
	}{
		{0.0, "ok"},
		{1.9, "ok"},
		{-1.5, "ok"},
		{2.1, "warn"},
		{-3.0, "warn"},
		{5.1, "alert"},
		{-6.0, "alert"},
	}
	for _, c := range cases {
		if got := ShiftSeverity(c.shift); got != c.severity {
			t.Errorf("ShiftSeverity(%f): expected %s, got %s", c.shift, c.severity, got)
		}
	}
}
