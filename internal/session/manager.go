package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Krimson/vibro-monitor/internal/alerts"
	"github.com/Krimson/vibro-monitor/internal/config"
	"github.com/Krimson/vibro-monitor/internal/metrics"
	"github.com/Krimson/vibro-monitor/internal/stream"
	"github.com/Krimson/vibro-monitor/internal/window"
	"github.com/google/uuid"
)

// ErrSessionActive возвращается при попытке удалить сессию,
// которая еще принимает данные
var ErrSessionActive = errors.New("session is active")

// Broadcaster доставляет события потока подписанным клиентам
type Broadcaster interface {
	Broadcast(e *stream.Event)
}

// WindowProcessor прогоняет собранное окно сессии через конвейер
// обработки. Диспетчер оповещений принадлежит сессии и передается
// с каждым окном.
type WindowProcessor interface {
	ProcessWindow(structureID string, w *window.Window, dispatcher *alerts.Dispatcher) (*stream.WindowResult, error)
}

// sessionState - рабочее состояние активной сессии: сама сессия,
// ее буфер окон и ее собственный диспетчер оповещений
type sessionState struct {
	session    *Session
	buffer     *window.Buffer
	dispatcher *alerts.Dispatcher

	// Сериализует обработку окон сессии: в полете всегда не более
	// одного окна, прием и уборщик не пересекаются
	procMu sync.Mutex

	// Последнее собранное окно, источник для пометки эталона
	lastWindow atomic.Pointer[window.Window]

	// Снимки счетчиков буфера для передачи дельт в метрики
	lastDropped   int64
	lastCompleted int64
	lastDiscarded int64
}

// Manager управляет сессиями мониторинга. Сессия создается
// автоматически при первом сэмпле конструкции и живет, пока
// поступают данные либо пока ее не остановят явно. Остановленная
// или аварийная сессия блокирует конструкцию до явного удаления.
type Manager struct {
	cfg         *config.Config
	pipeline    WindowProcessor
	cache       CacheStore
	repository  Repository
	broadcaster Broadcaster

	mu      sync.RWMutex
	active  map[string]*sessionState
	stopped map[string]*Session
}

// NewManager создает менеджер сессий. Кэш и репозиторий опциональны:
// без них сессии живут только в памяти.
func NewManager(cfg *config.Config, pipeline WindowProcessor, cache CacheStore, repository Repository, broadcaster Broadcaster) *Manager {
	return &Manager{
		cfg:         cfg,
		pipeline:    pipeline,
		cache:       cache,
		repository:  repository,
		broadcaster: broadcaster,
		active:      make(map[string]*sessionState),
		stopped:     make(map[string]*Session),
	}
}

// Ingest принимает один сэмпл. Если сэмпл закрывает окно,
// окно сразу проходит конвейер обработки.
func (m *Manager) Ingest(ctx context.Context, msg *stream.SampleMessage) error {
	structureID := msg.StructureID
	if structureID == "" {
		structureID = "default"
	}

	state, err := m.getOrCreateSession(ctx, structureID)
	if err != nil {
		return fmt.Errorf("failed to get or create session: %w", err)
	}

	state.procMu.Lock()
	defer state.procMu.Unlock()

	if state.session.Status != StatusActive {
		return fmt.Errorf("session for %s is not active: %s", structureID, state.session.Status)
	}

	metrics.SamplesReceived.Inc()
	state.session.TotalSamples++

	if w := state.buffer.Ingest(msg.ToSample()); w != nil {
		m.processWindow(ctx, state, w)
	}
	return nil
}

// processWindow прогоняет окно через конвейер и рассылает результат.
// Вызывается только под procMu сессии. Несовместимость схемы
// признаков останавливает сессию с ошибкой.
func (m *Manager) processWindow(ctx context.Context, state *sessionState, w *window.Window) {
	structureID := state.session.StructureID
	state.lastWindow.Store(w)

	result, err := m.pipeline.ProcessWindow(structureID, w, state.dispatcher)
	if err != nil {
		if errors.Is(err, ErrSchemaMismatch) {
			log.Printf("[SESSION] Halting session for %s: %v", structureID, err)
			m.haltSession(ctx, state, err)
			return
		}
		log.Printf("[WARN] Window processing failed for %s: %v", structureID, err)
		m.broadcast(stream.NewErrorEvent(structureID, w.EndMS, err.Error()))
		return
	}

	state.session.TotalWindows++
	m.broadcast(stream.NewWindowResultEvent(structureID, w.EndMS, result))

	if m.cache != nil {
		if err := m.cache.SetLatestResult(ctx, structureID, result); err != nil {
			log.Printf("[WARN] Failed to cache latest result for %s: %v", structureID, err)
		}
		if err := m.cache.SetSession(ctx, state.session); err != nil {
			log.Printf("[WARN] Failed to update session in cache: %v", err)
		}
	}
}

// haltSession переводит сессию в состояние ошибки и выводит ее
// из приема данных. Конструкция остается заблокированной, пока
// сессию не удалят явно.
func (m *Manager) haltSession(ctx context.Context, state *sessionState, cause error) {
	now := time.Now()
	s := state.session
	s.Status = StatusError
	s.StoppedAt = &now
	s.TotalDurationMs = now.Sub(s.StartedAt).Milliseconds()
	s.LastError = cause.Error()

	m.broadcast(stream.NewErrorEvent(s.StructureID, now.UnixMilli(), cause.Error()))
	m.persistStopped(ctx, s)

	m.mu.Lock()
	delete(m.active, s.StructureID)
	m.stopped[s.StructureID] = s
	m.mu.Unlock()
	state.buffer.Stop()
}

// StopSession останавливает активную сессию конструкции
func (m *Manager) StopSession(ctx context.Context, structureID string) (*Session, error) {
	m.mu.Lock()
	state, ok := m.active[structureID]
	if ok {
		delete(m.active, structureID)
	}
	m.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: active session for %s", ErrNotFound, structureID)
	}
	state.buffer.Stop()

	// Дожидаемся окна в полете: короткая синхронная обработка
	// дорабатывает до конца
	state.procMu.Lock()
	now := time.Now()
	s := state.session
	s.Status = StatusStopped
	s.StoppedAt = &now
	s.TotalDurationMs = now.Sub(s.StartedAt).Milliseconds()
	state.procMu.Unlock()

	m.mu.Lock()
	m.stopped[structureID] = s
	m.mu.Unlock()

	m.persistStopped(ctx, s)
	log.Printf("[SESSION] Stopped session %s for %s, duration: %dms", s.ID, structureID, s.TotalDurationMs)
	return s, nil
}

// DeleteSession удаляет завершенную сессию конструкции из памяти
// и кэша, снова открывая конструкцию для приема данных. Активную
// сессию сначала нужно остановить.
func (m *Manager) DeleteSession(ctx context.Context, structureID string) error {
	m.mu.Lock()
	if _, ok := m.active[structureID]; ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSessionActive, structureID)
	}
	_, found := m.stopped[structureID]
	delete(m.stopped, structureID)
	m.mu.Unlock()

	if m.cache != nil {
		if _, err := m.cache.GetSession(ctx, structureID); err == nil {
			found = true
		}
		if err := m.cache.DeleteSession(ctx, structureID); err != nil {
			return fmt.Errorf("failed to delete session from cache: %w", err)
		}
	}
	if !found {
		return fmt.Errorf("%w: stopped session for %s", ErrNotFound, structureID)
	}

	metrics.AlertsActive.DeleteLabelValues(structureID)
	log.Printf("[SESSION] Deleted stopped session for %s", structureID)
	return nil
}

// persistStopped фиксирует завершенную сессию в хранилищах
func (m *Manager) persistStopped(ctx context.Context, s *Session) {
	if m.repository != nil {
		if err := m.repository.UpdateSession(ctx, s); err != nil {
			log.Printf("[WARN] Failed to persist session %s: %v", s.ID, err)
		}
	}
	if m.cache != nil {
		if err := m.cache.SetSession(ctx, s); err != nil {
			log.Printf("[WARN] Failed to update session in cache: %v", err)
		}
	}
}

// GetSession возвращает активную сессию конструкции
func (m *Manager) GetSession(structureID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.active[structureID]
	if !ok {
		return nil, false
	}
	return state.session, true
}

// ListActive возвращает активные сессии
func (m *Manager) ListActive() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.active))
	for _, state := range m.active {
		out = append(out, state.session)
	}
	return out
}

// ListSessions возвращает сессии из долговременного хранилища
func (m *Manager) ListSessions(ctx context.Context, limit, offset int) ([]*Session, error) {
	if m.repository == nil {
		return nil, errors.New("session repository is not configured")
	}
	return m.repository.ListSessions(ctx, limit, offset)
}

// LastWindow возвращает последнее собранное окно конструкции
func (m *Manager) LastWindow(structureID string) (*window.Window, bool) {
	m.mu.RLock()
	state, ok := m.active[structureID]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	w := state.lastWindow.Load()
	return w, w != nil
}

// ActiveAlerts возвращает активные оповещения всех сессий,
// сгруппированные по конструкции
func (m *Manager) ActiveAlerts() map[string][]alerts.Alert {
	m.mu.RLock()
	states := make(map[string]*sessionState, len(m.active))
	for id, state := range m.active {
		states[id] = state
	}
	m.mu.RUnlock()

	out := make(map[string][]alerts.Alert, len(states))
	for id, state := range states {
		if active := state.dispatcher.Active(); len(active) > 0 {
			out[id] = active
		}
	}
	return out
}

// GetLatestResult возвращает последний результат окна конструкции
func (m *Manager) GetLatestResult(ctx context.Context, structureID string) (*stream.WindowResult, error) {
	if m.cache == nil {
		return nil, errors.New("session cache is not configured")
	}
	return m.cache.GetLatestResult(ctx, structureID)
}

// RunSweeper периодически сбрасывает устаревшие окна всех активных
// сессий и синхронизирует счетчики буферов с метриками
func (m *Manager) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(m.cfg.SweepIntervalMS) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweepAll(ctx)
		}
	}
}

func (m *Manager) sweepAll(ctx context.Context) {
	m.mu.RLock()
	states := make([]*sessionState, 0, len(m.active))
	for _, state := range m.active {
		states = append(states, state)
	}
	m.mu.RUnlock()

	for _, state := range states {
		state.procMu.Lock()
		for _, w := range state.buffer.Sweep() {
			if state.session.Status != StatusActive {
				break
			}
			m.processWindow(ctx, state, w)
		}
		m.syncBufferMetrics(state)
		state.procMu.Unlock()
	}
}

// syncBufferMetrics передает дельты счетчиков буфера в Prometheus
func (m *Manager) syncBufferMetrics(state *sessionState) {
	_, dropped, _, completed, discarded := state.buffer.GetStats()

	if d := dropped - state.lastDropped; d > 0 {
		metrics.SamplesDropped.WithLabelValues("buffer").Add(float64(d))
	}
	if d := completed - state.lastCompleted; d > 0 {
		metrics.WindowsCompleted.Add(float64(d))
	}
	if d := discarded - state.lastDiscarded; d > 0 {
		metrics.WindowsDiscarded.Add(float64(d))
	}
	state.lastDropped = dropped
	state.lastCompleted = completed
	state.lastDiscarded = discarded
}

// getOrCreateSession возвращает активную сессию конструкции,
// при необходимости создавая новую
func (m *Manager) getOrCreateSession(ctx context.Context, structureID string) (*sessionState, error) {
	m.mu.RLock()
	if state, ok := m.active[structureID]; ok {
		m.mu.RUnlock()
		return state, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.active[structureID]; ok {
		return state, nil
	}

	// Остановленная или аварийная сессия не принимает данные,
	// пока ее не удалят явно
	if prev, ok := m.stopped[structureID]; ok {
		return nil, fmt.Errorf("session for %s is not active: %s", structureID, prev.Status)
	}
	if m.cache != nil {
		if cached, err := m.cache.GetSession(ctx, structureID); err == nil && cached.Status != StatusActive {
			return nil, fmt.Errorf("session for %s is not active: %s", structureID, cached.Status)
		}
	}

	s := &Session{
		ID:          uuid.New().String(),
		StructureID: structureID,
		Status:      StatusActive,
		StartedAt:   time.Now(),
	}
	state := &sessionState{
		session:    s,
		buffer:     window.NewBuffer(m.cfg),
		dispatcher: alerts.NewDispatcher(m.cfg),
	}
	m.active[structureID] = state

	log.Printf("[SESSION] Auto-created session %s for structure %s", s.ID, structureID)

	if m.repository != nil {
		if err := m.repository.SaveSession(ctx, s); err != nil {
			log.Printf("[WARN] Failed to persist new session %s: %v", s.ID, err)
		}
	}
	if m.cache != nil {
		if err := m.cache.SetSession(ctx, s); err != nil {
			log.Printf("[WARN] Failed to cache new session %s: %v", s.ID, err)
		}
	}
	return state, nil
}

// broadcast отправляет событие, если вещатель настроен
func (m *Manager) broadcast(e *stream.Event) {
	if m.broadcaster != nil {
		m.broadcaster.Broadcast(e)
	}
}
