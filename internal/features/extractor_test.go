package features

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/Krimson/vibro-monitor/internal/config"
	"github.com/Krimson/vibro-monitor/internal/model"
	"github.com/Krimson/vibro-monitor/internal/window"
)

func testConfig() *config.Config {
	return &config.Config{
		WindowDurationSec: 5.12,
		SampleRateHz:      100.0,
		ExpectedSensors:   5,
		MinWindowFill:     1.0, // 512 сэмплов на датчик
	}
}

// testSnapshot собирает снапшот модели: 104 базовых + 52 производных фичи
func testSnapshot() *model.Snapshot {
	const base = 104
	const derivedCount = 52

	names := make([]string, 0, model.FeatureCount)
	for i := 0; i < base; i++ {
		names = append(names, fmt.Sprintf("base_%03d", i))
	}

	derived := make([]model.DerivedSpec, 0, derivedCount)
	for i := 0; i < derivedCount; i++ {
		name := fmt.Sprintf("derived_%02d", i)
		derived = append(derived, model.DerivedSpec{
			Name: name,
			Op:   "log1p",
			Args: []int{i * 2}, // четные базовые индексы
		})
		names = append(names, name)
	}

	return &model.Snapshot{
		Version:      "test-1",
		FeatureNames: names,
		Threshold:    0.6,
		Derived:      derived,
	}
}

// makeWindow строит окно: вертикальная ось несет синус заданной частоты
func makeWindow(sensors, n int, freq float64) *window.Window {
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
				X:        0,
				Y:        0,
				Z:        1.0 + 0.1*math.Sin(2*math.Pi*freq*float64(i)/100.0),
			}
		}
		w.Sensors[id] = seq
		w.SampleCount += n
	}
	w.SensorCount = sensors
	return w
}

func TestExtract_VectorLengthMatchesModel(t *testing.T) {
	e := NewExtractor(testConfig())
	snap := testSnapshot()
	w := makeWindow(5, 512, 10.0)

	values, err := e.Extract(w, snap)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(values) != model.FeatureCount {
		t.Errorf("Expected %d features, got %d", model.FeatureCount, len(values))
	}
	if len(values) != len(snap.FeatureNames) {
		t.Errorf("Vector length %d does not match feature name list %d", len(values), len(snap.FeatureNames))
	}
}

func TestExtract_Deterministic(t *testing.T) {
	e := NewExtractor(testConfig())
	snap := testSnapshot()
	w := makeWindow(5, 512, 10.0)

	first, err := e.Extract(w, snap)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	second, err := e.Extract(w, snap)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("Feature %d differs between identical runs: %f vs %f", i, first[i], second[i])
		}
	}
}

func TestExtract_PeakFrequencyFeature(t *testing.T) {
	e := NewExtractor(testConfig())
	snap := testSnapshot()
	w := makeWindow(5, 512, 12.0)

	values, err := e.Extract(w, snap)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	// Пиковая частота первого датчика: смещение 7 временных + 7 спектральных
	peakFreq := values[14]
	if math.Abs(peakFreq-12.0) > 0.3 {
		t.Errorf("Expected peak frequency near 12 Hz, got %f", peakFreq)
	}

	// Агрегаты: все датчики одинаковые, разброс пиковой частоты нулевой
	meanPeak := values[102]
	stdPeak := values[103]
	if math.Abs(meanPeak-peakFreq) > 1e-9 {
		t.Errorf("Expected mean peak frequency %f, got %f", peakFreq, meanPeak)
	}
	if stdPeak != 0 {
		t.Errorf("Expected zero std of peak frequency for identical sensors, got %f", stdPeak)
	}
}

func TestExtract_WrongSensorCountFatal(t *testing.T) {
	e := NewExtractor(testConfig())
	snap := testSnapshot()
	w := makeWindow(3, 512, 10.0)

	_, err := e.Extract(w, snap)
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("Expected ErrSchemaMismatch for wrong sensor count, got %v", err)
	}
}

func TestExtract_ShortWindowFatal(t *testing.T) {
	e := NewExtractor(testConfig())
	snap := testSnapshot()
	w := makeWindow(5, 100, 10.0)

	_, err := e.Extract(w, snap)
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("Expected ErrSchemaMismatch for short window, got %v", err)
	}
}

func TestExtract_DerivedCountMismatchFatal(t *testing.T) {
	e := NewExtractor(testConfig())
	snap := testSnapshot()
	snap.Derived = snap.Derived[:51] // контракт модели нарушен

	w := makeWindow(5, 512, 10.0)
	_, err := e.Extract(w, snap)
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("Expected ErrSchemaMismatch for derived count mismatch, got %v", err)
	}
}

func TestExtract_NoSnapshotFatal(t *testing.T) {
	e := NewExtractor(testConfig())
	w := makeWindow(5, 512, 10.0)

	_, err := e.Extract(w, nil)
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("Expected ErrSchemaMismatch without model snapshot, got %v", err)
	}
}
