package window

import (
	"math"
	"sort"
)

// Sample представляет одно измерение акселерометра
type Sample struct {
	SensorID int     // Номер датчика на конструкции
	TsMS     int64   // Временная метка в миллисекундах
	X        float64 // Ускорение по оси X в g
	Y        float64 // Ускорение по оси Y в g
	Z        float64 // Ускорение по оси Z в g
}

// Window представляет окно фиксированной длительности со всеми датчиками
type Window struct {
	StartMS     int64            // Начало окна
	EndMS       int64            // Конец окна
	Sensors     map[int][]Sample // Упорядоченные сэмплы по датчикам
	SensorCount int              // Число датчиков, давших данные
	SampleCount int              // Суммарное число сэмплов
}

// SensorIDs возвращает отсортированный список датчиков окна
func (w *Window) SensorIDs() []int {
	ids := make([]int, 0, len(w.Sensors))
	for id := range w.Sensors {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// DurationMS возвращает длительность окна
func (w *Window) DurationMS() int64 {
	return w.EndMS - w.StartMS
}

// Magnitude возвращает модули вектора ускорения последовательности сэмплов
func Magnitude(samples []Sample) []float64 {
	mags := make([]float64, len(samples))
	for i, s := range samples {
		mags[i] = math.Sqrt(s.X*s.X + s.Y*s.Y + s.Z*s.Z)
	}
	return mags
}

// pendingWindow - внутреннее состояние еще не собранного окна
type pendingWindow struct {
	startMS       int64
	endMS         int64
	sensors       map[int][]Sample
	lastAddedWall int64 // Wall-clock время последнего добавления, для stale-политики
}

func newPendingWindow(startMS, endMS int64) *pendingWindow {
	return &pendingWindow{
		startMS: startMS,
		endMS:   endMS,
		sensors: make(map[int][]Sample),
	}
}

// addSample вставляет сэмпл с сохранением порядка по времени
func (pw *pendingWindow) addSample(s Sample) {
	seq := pw.sensors[s.SensorID]
	if n := len(seq); n > 0 && s.TsMS < seq[n-1].TsMS {
		// Поздний сэмпл в пределах допуска: вставляем по месту
		i := sort.Search(n, func(i int) bool { return seq[i].TsMS > s.TsMS })
		seq = append(seq, Sample{})
		copy(seq[i+1:], seq[i:])
		seq[i] = s
		pw.sensors[s.SensorID] = seq
		return
	}
	pw.sensors[s.SensorID] = append(seq, s)
}

// isComplete проверяет, что каждый из ожидаемых датчиков набрал минимум сэмплов
func (pw *pendingWindow) isComplete(expectedSensors, minSamples int) bool {
	if len(pw.sensors) < expectedSensors {
		return false
	}
	for _, seq := range pw.sensors {
		if len(seq) < minSamples {
			return false
		}
	}
	return true
}

// seal превращает собранное окно в неизменяемый Window
func (pw *pendingWindow) seal() *Window {
	total := 0
	sensors := make(map[int][]Sample, len(pw.sensors))
	for id, seq := range pw.sensors {
		cp := make([]Sample, len(seq))
		copy(cp, seq)
		sensors[id] = cp
		total += len(seq)
	}
	return &Window{
		StartMS:     pw.startMS,
		EndMS:       pw.endMS,
		Sensors:     sensors,
		SensorCount: len(sensors),
		SampleCount: total,
	}
}
