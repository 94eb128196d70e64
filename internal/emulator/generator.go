package emulator

import (
	"math"
	"math/rand"
	"sync"
)

// Mode - одна собственная мода колебаний конструкции
type Mode struct {
	FreqHz    float64
	Amplitude float64 // в g
}

// DefaultModes возвращает типичные моды малого моста
func DefaultModes() []Mode {
	return []Mode{
		{FreqHz: 2.5, Amplitude: 0.08},
		{FreqHz: 6.8, Amplitude: 0.05},
		{FreqHz: 13.4, Amplitude: 0.03},
	}
}

// Generator синтезирует показания акселерометров: сумма модальных
// синусоид с независимыми фазами по датчикам плюс шум. В аномальном
// режиме частоты мод сдвигаются вниз, имитируя потерю жесткости.
type Generator struct {
	modes      []Mode
	noiseLevel float64
	rng        *rand.Rand

	// Фазы по датчикам и модам, стабильны в течение прогона
	phases map[int][]float64

	// Затухающий ударный импульс: редкие проезды и удары
	impulseLeft int
	impulseAmp  float64

	mu      sync.Mutex
	anomaly bool
}

// NewGenerator создает генератор сигнала с заданными модами
func NewGenerator(modes []Mode, noiseLevel float64, seed int64) *Generator {
	return &Generator{
		modes:      modes,
		noiseLevel: noiseLevel,
		rng:        rand.New(rand.NewSource(seed)),
		phases:     make(map[int][]float64),
	}
}

// SetAnomaly включает или выключает аномальный режим
func (g *Generator) SetAnomaly(enabled bool) {
	g.mu.Lock()
	g.anomaly = enabled
	g.mu.Unlock()
}

// Anomaly возвращает текущий режим генератора
func (g *Generator) Anomaly() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.anomaly
}

// At возвращает показания датчика в момент времени tsMS
func (g *Generator) At(tsMS int64, sensorID int) (x, y, z float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	phases, ok := g.phases[sensorID]
	if !ok {
		phases = make([]float64, len(g.modes))
		for i := range phases {
			phases[i] = g.rng.Float64() * 2 * math.Pi
		}
		g.phases[sensorID] = phases
	}

	t := float64(tsMS) / 1000.0
	var signal float64
	for i, mode := range g.modes {
		freq := mode.FreqHz
		amp := mode.Amplitude
		if g.anomaly {
			// Потеря жесткости: частоты проседают, амплитуда растет
			freq *= 0.93
			amp *= 1.6
		}
		signal += amp * math.Sin(2*math.Pi*freq*t+phases[i])
	}

	// Редкий ударный импульс с экспоненциальным затуханием
	if g.impulseLeft == 0 && g.rng.Float64() < 0.0005 {
		g.impulseLeft = 50
		g.impulseAmp = 0.3 + 0.4*g.rng.Float64()
	}
	if g.impulseLeft > 0 {
		decay := float64(g.impulseLeft) / 50.0
		signal += g.impulseAmp * decay * math.Sin(2*math.Pi*25*t)
		g.impulseLeft--
	}

	noise := func() float64 { return g.rng.NormFloat64() * g.noiseLevel }

	// Вертикальная ось несет гравитацию и почти весь полезный сигнал
	x = 0.1*signal + noise()
	y = 0.1*signal + noise()
	z = 1.0 + signal + noise()
	return x, y, z
}
