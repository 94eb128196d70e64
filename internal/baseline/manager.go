package baseline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Krimson/vibro-monitor/internal/config"
	"github.com/Krimson/vibro-monitor/internal/window"
	"github.com/Krimson/vibro-monitor/pkg/dsp"
)

// ErrBaselineNotFound возвращается при выборе неизвестного эталона
var ErrBaselineNotFound = errors.New("baseline not found")

// Repository определяет интерфейс постоянного хранилища эталонов
type Repository interface {
	SaveBaseline(ctx context.Context, b *Baseline) error
	ListBaselines(ctx context.Context) ([]*Baseline, error)
}

// CacheStore определяет интерфейс кэша эталонов
type CacheStore interface {
	SetBaseline(ctx context.Context, b *Baseline) error
	GetBaseline(ctx context.Context, id string) (*Baseline, error)
}

// Manager хранит именованные эталоны и сравнивает живые окна с активным.
// Каталог эталонов общий, но активный эталон выбирается для каждой
// конструкции отдельно: выбор для одного моста не влияет на сравнение
// других. Mark и Select - единственные мутации; Compare читает ссылку
// на активный эталон один раз и дорабатывает на этом снапшоте, даже
// если Select подменил ее по ходу вызова.
type Manager struct {
	sampleRate float64
	cache      CacheStore
	repository Repository

	mu        sync.Mutex // Сериализует mark/select
	baselines []*Baseline
	byID      map[string]*Baseline

	// Активный эталон по конструкции
	active map[string]*Baseline
}

// NewManager создает менеджер эталонов. Кэш и репозиторий опциональны.
func NewManager(cfg *config.Config, cache CacheStore, repository Repository) *Manager {
	return &Manager{
		sampleRate: cfg.SampleRateHz,
		cache:      cache,
		repository: repository,
		byID:       make(map[string]*Baseline),
		active:     make(map[string]*Baseline),
	}
}

// LoadPersisted поднимает сохраненные эталоны из репозитория на старте
func (m *Manager) LoadPersisted(ctx context.Context) error {
	if m.repository == nil {
		return nil
	}
	baselines, err := m.repository.ListBaselines(ctx)
	if err != nil {
		return fmt.Errorf("failed to load baselines: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range baselines {
		if _, exists := m.byID[b.ID]; exists {
			continue
		}
		m.baselines = append(m.baselines, b)
		m.byID[b.ID] = b
	}
	log.Printf("[BASELINE] Loaded %d persisted baselines", len(baselines))
	return nil
}

// Mark снимает спектральный отпечаток окна и сохраняет его как новый
// неизменяемый эталон. Существующие эталоны никогда не перезаписываются.
func (m *Manager) Mark(ctx context.Context, name, description string, w *window.Window) (*Baseline, error) {
	fp, err := extractFingerprint(w, m.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint window: %w", err)
	}

	freqs := make([]float64, len(fp.peaks))
	for i, p := range fp.peaks {
		freqs[i] = p.Freq
	}

	b := &Baseline{
		ID:              uuid.New().String(),
		Name:            name,
		Description:     description,
		CreatedAt:       time.Now(),
		PeakFrequencies: freqs,
		DampingRatios:   fp.dampings,
		SensorEnergy:    fp.sensorEnergy,
	}

	if m.repository != nil {
		if err := m.repository.SaveBaseline(ctx, b); err != nil {
			return nil, fmt.Errorf("failed to persist baseline: %w", err)
		}
	}
	if m.cache != nil {
		if err := m.cache.SetBaseline(ctx, b); err != nil {
			log.Printf("[WARN] Failed to cache baseline: %v", err)
		}
	}

	m.mu.Lock()
	m.baselines = append(m.baselines, b)
	m.byID[b.ID] = b
	m.mu.Unlock()

	log.Printf("[BASELINE] Marked baseline %s (%s): peaks=%v", b.ID, b.Name, b.PeakFrequencies)
	return b, nil
}

// Select делает эталон активным для конструкции. Это только подмена
// указателя: идущие Compare дорабатывают на прежнем эталоне.
func (m *Manager) Select(structureID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrBaselineNotFound, id)
	}

	m.active[structureID] = b
	log.Printf("[BASELINE] Selected baseline %s (%s) for structure %s", b.ID, b.Name, structureID)
	return nil
}

// List возвращает эталоны в порядке создания
func (m *Manager) List() []*Baseline {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Baseline, len(m.baselines))
	copy(out, m.baselines)
	return out
}

// Active возвращает активный эталон конструкции или nil
func (m *Manager) Active(structureID string) *Baseline {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[structureID]
}

// Compare сравнивает окно с эталоном, активным для конструкции.
// Второй результат false, если активного эталона нет.
func (m *Manager) Compare(structureID string, w *window.Window) (*ComparativeResult, bool) {
	m.mu.Lock()
	base := m.active[structureID]
	m.mu.Unlock()
	if base == nil {
		return nil, false
	}

	fp, err := extractFingerprint(w, m.sampleRate)
	if err != nil {
		log.Printf("[WARN] Failed to fingerprint live window: %v", err)
		return nil, false
	}

	return compareFingerprint(base, fp), true
}

// compareFingerprint считает сдвиги частот и демпфирования по сопоставленным
// пикам, тепловую карту энергии по датчикам и общий скор согласия
func compareFingerprint(base *Baseline, live *fingerprint) *ComparativeResult {
	result := &ComparativeResult{
		BaselineID: base.ID,
		Heatmap:    make(map[int]float64, len(live.sensorEnergy)),
	}

	matched := 0
	for i, baseFreq := range base.PeakFrequencies {
		j, ok := nearestPeak(live.peaks, baseFreq)
		if !ok {
			continue
		}
		matched++
		result.DeltaF = append(result.DeltaF, (live.peaks[j].Freq-baseFreq)/baseFreq*100)
		if i < len(base.DampingRatios) && j < len(live.dampings) {
			result.DampingDelta = append(result.DampingDelta, live.dampings[j]-base.DampingRatios[i])
		}
	}

	for id, liveEnergy := range live.sensorEnergy {
		result.Heatmap[id] = energyAnomaly(base.SensorEnergy[id], liveEnergy)
	}

	result.Quality = qualityScore(base, result, matched)
	return result
}

// nearestPeak ищет ближайший по частоте живой пик в пределах допуска
// 20% от частоты эталонного пика (но не уже 1 Гц)
func nearestPeak(peaks []dsp.Peak, baseFreq float64) (int, bool) {
	tolerance := math.Max(0.2*baseFreq, 1.0)
	best := -1
	bestDist := tolerance
	for j, p := range peaks {
		if d := math.Abs(p.Freq - baseFreq); d <= bestDist {
			best = j
			bestDist = d
		}
	}
	return best, best >= 0
}

// energyAnomaly превращает отношение энергий в скор [0,1]:
// четырехкратное изменение энергии дает максимум
func energyAnomaly(baseEnergy, liveEnergy float64) float64 {
	if baseEnergy <= 0 {
		if liveEnergy > 0 {
			return 1
		}
		return 0
	}
	if liveEnergy <= 0 {
		return 1
	}
	return dsp.Clamp(math.Abs(math.Log(liveEnergy/baseEnergy))/math.Log(4), 0, 1)
}

// qualityScore сводит согласие частот и демпфирования в один скор [0,1].
// Несопоставленные эталонные пики штрафуют скор целиком.
func qualityScore(base *Baseline, result *ComparativeResult, matched int) float64 {
	if len(base.PeakFrequencies) == 0 {
		return 0
	}

	freqAgreement := 1.0
	if len(result.DeltaF) > 0 {
		sum := 0.0
		for _, d := range result.DeltaF {
			sum += math.Abs(d)
		}
		freqAgreement = 1 - dsp.Clamp(sum/float64(len(result.DeltaF))/10.0, 0, 1)
	}

	dampAgreement := 1.0
	if len(result.DampingDelta) > 0 {
		sum := 0.0
		for _, d := range result.DampingDelta {
			sum += math.Abs(d)
		}
		dampAgreement = 1 - dsp.Clamp(sum/float64(len(result.DampingDelta))/0.05, 0, 1)
	}

	matchedRatio := float64(matched) / float64(len(base.PeakFrequencies))
	return dsp.Clamp((0.6*freqAgreement+0.4*dampAgreement)*matchedRatio, 0, 1)
}
