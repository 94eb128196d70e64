package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/Krimson/vibro-monitor/internal/baseline"
	"github.com/Krimson/vibro-monitor/internal/session"
	"github.com/Krimson/vibro-monitor/internal/stream"
	"github.com/gorilla/mux"
)

// HTTPHandler обрабатывает HTTP запросы управления эталонами и сессиями
type HTTPHandler struct {
	sessions    *session.Manager
	baselines   *baseline.Manager
	broadcaster session.Broadcaster
}

// NewHTTPHandler создает новый HTTP обработчик
func NewHTTPHandler(sessions *session.Manager, baselines *baseline.Manager, broadcaster session.Broadcaster) *HTTPHandler {
	return &HTTPHandler{
		sessions:    sessions,
		baselines:   baselines,
		broadcaster: broadcaster,
	}
}

// RegisterRoutes регистрирует маршруты в роутере
func (h *HTTPHandler) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/baselines", h.ListBaselines).Methods("GET")
	api.HandleFunc("/baselines/mark", h.MarkBaseline).Methods("POST")
	api.HandleFunc("/baselines/{id}/select", h.SelectBaseline).Methods("POST")

	api.HandleFunc("/alerts", h.ListAlerts).Methods("GET")

	api.HandleFunc("/sessions", h.ListSessions).Methods("GET")
	api.HandleFunc("/sessions/active", h.ListActiveSessions).Methods("GET")
	api.HandleFunc("/sessions/{structure_id}/stop", h.StopSession).Methods("POST")
	api.HandleFunc("/sessions/{structure_id}/latest", h.GetLatestResult).Methods("GET")
	api.HandleFunc("/sessions/{structure_id}", h.DeleteSession).Methods("DELETE")
}

// MarkBaselineRequest - запрос на пометку эталона
type MarkBaselineRequest struct {
	StructureID string `json:"structure_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ListBaselines возвращает все сохраненные эталоны
// @Summary Список эталонов
// @Description Возвращает все эталонные отпечатки и активный эталон конструкции
// @Tags Baselines
// @Produce json
// @Param structure_id query string false "ID конструкции" default(default)
// @Success 200 {object} map[string]interface{} "Список эталонов"
// @Router /api/baselines [get]
func (h *HTTPHandler) ListBaselines(w http.ResponseWriter, r *http.Request) {
	baselines := h.baselines.List()
	structureID := getQueryString(r, "structure_id", "default")

	var activeID string
	if active := h.baselines.Active(structureID); active != nil {
		activeID = active.ID
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"baselines": baselines,
		"active_id": activeID,
		"count":     len(baselines),
	})
}

// MarkBaseline создает эталон из последнего собранного окна
// @Summary Пометить эталон
// @Description Снимает спектральный отпечаток последнего окна конструкции и сохраняет его как эталон
// @Tags Baselines
// @Accept json
// @Produce json
// @Param request body MarkBaselineRequest true "Параметры эталона"
// @Success 201 {object} baseline.Baseline "Созданный эталон"
// @Failure 400 {object} map[string]interface{} "Неверный запрос"
// @Failure 409 {object} map[string]interface{} "Нет собранного окна"
// @Router /api/baselines/mark [post]
func (h *HTTPHandler) MarkBaseline(w http.ResponseWriter, r *http.Request) {
	var req MarkBaselineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "Baseline name is required")
		return
	}
	structureID := req.StructureID
	if structureID == "" {
		structureID = "default"
	}

	lastWindow, ok := h.sessions.LastWindow(structureID)
	if !ok {
		respondError(w, http.StatusConflict, "No completed window available yet")
		return
	}

	b, err := h.baselines.Mark(r.Context(), req.Name, req.Description, lastWindow)
	if err != nil {
		log.Printf("[ERROR] Failed to mark baseline: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to mark baseline")
		return
	}

	h.broadcaster.Broadcast(stream.NewBaselineMarkedEvent(structureID, time.Now().UnixMilli(), b))
	respondJSON(w, http.StatusCreated, b)
}

// SelectBaseline делает эталон активным для конструкции
// @Summary Выбрать активный эталон
// @Description Делает указанный эталон активным для сравнительного анализа конструкции
// @Tags Baselines
// @Produce json
// @Param id path string true "ID эталона"
// @Param structure_id query string false "ID конструкции" default(default)
// @Success 200 {object} baseline.Baseline "Активный эталон"
// @Failure 404 {object} map[string]interface{} "Эталон не найден"
// @Router /api/baselines/{id}/select [post]
func (h *HTTPHandler) SelectBaseline(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	structureID := getQueryString(r, "structure_id", "default")

	if err := h.baselines.Select(structureID, id); err != nil {
		if errors.Is(err, baseline.ErrBaselineNotFound) {
			respondError(w, http.StatusNotFound, "Baseline not found")
			return
		}
		log.Printf("[ERROR] Failed to select baseline %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "Failed to select baseline")
		return
	}

	active := h.baselines.Active(structureID)
	h.broadcaster.Broadcast(stream.NewBaselineSelectedEvent(structureID, time.Now().UnixMilli(), active))
	respondJSON(w, http.StatusOK, active)
}

// ListAlerts возвращает активные оповещения по конструкциям
// @Summary Активные оповещения
// @Description Возвращает оповещения, активные в данный момент, сгруппированные по конструкциям
// @Tags Alerts
// @Produce json
// @Success 200 {object} map[string]interface{} "Активные оповещения"
// @Router /api/alerts [get]
func (h *HTTPHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	active := h.sessions.ActiveAlerts()
	total := 0
	for _, list := range active {
		total += len(list)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": active,
		"count":  total,
	})
}

// ListSessions возвращает сессии из долговременного хранилища
// @Summary Список сессий
// @Description Возвращает сохраненные сессии мониторинга
// @Tags Sessions
// @Produce json
// @Param limit query int false "Максимум записей" default(50)
// @Param offset query int false "Смещение" default(0)
// @Success 200 {object} map[string]interface{} "Список сессий"
// @Router /api/sessions [get]
func (h *HTTPHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	limit := getQueryInt(r, "limit", 50)
	offset := getQueryInt(r, "offset", 0)

	sessions, err := h.sessions.ListSessions(r.Context(), limit, offset)
	if err != nil {
		log.Printf("[ERROR] Failed to list sessions: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"limit":    limit,
		"offset":   offset,
		"count":    len(sessions),
	})
}

// ListActiveSessions возвращает активные сессии
// @Summary Активные сессии
// @Description Возвращает сессии, принимающие данные прямо сейчас
// @Tags Sessions
// @Produce json
// @Success 200 {object} map[string]interface{} "Активные сессии"
// @Router /api/sessions/active [get]
func (h *HTTPHandler) ListActiveSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.sessions.ListActive()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// StopSession останавливает активную сессию конструкции
// @Summary Остановить сессию
// @Description Останавливает активную сессию мониторинга конструкции
// @Tags Sessions
// @Produce json
// @Param structure_id path string true "ID конструкции"
// @Success 200 {object} session.Session "Остановленная сессия"
// @Failure 404 {object} map[string]interface{} "Активная сессия не найдена"
// @Router /api/sessions/{structure_id}/stop [post]
func (h *HTTPHandler) StopSession(w http.ResponseWriter, r *http.Request) {
	structureID := mux.Vars(r)["structure_id"]

	s, err := h.sessions.StopSession(r.Context(), structureID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Active session not found")
			return
		}
		log.Printf("[ERROR] Failed to stop session for %s: %v", structureID, err)
		respondError(w, http.StatusInternalServerError, "Failed to stop session")
		return
	}

	respondJSON(w, http.StatusOK, s)
}

// DeleteSession удаляет завершенную сессию конструкции, снова
// открывая ее для приема данных
// @Summary Удалить сессию
// @Description Удаляет остановленную или аварийную сессию, разрешая новый прием данных для конструкции
// @Tags Sessions
// @Produce json
// @Param structure_id path string true "ID конструкции"
// @Success 200 {object} map[string]interface{} "Сессия удалена"
// @Failure 404 {object} map[string]interface{} "Завершенная сессия не найдена"
// @Failure 409 {object} map[string]interface{} "Сессия еще активна"
// @Router /api/sessions/{structure_id} [delete]
func (h *HTTPHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	structureID := mux.Vars(r)["structure_id"]

	if err := h.sessions.DeleteSession(r.Context(), structureID); err != nil {
		switch {
		case errors.Is(err, session.ErrSessionActive):
			respondError(w, http.StatusConflict, "Session is still active, stop it first")
		case errors.Is(err, session.ErrNotFound):
			respondError(w, http.StatusNotFound, "Stopped session not found")
		default:
			log.Printf("[ERROR] Failed to delete session for %s: %v", structureID, err)
			respondError(w, http.StatusInternalServerError, "Failed to delete session")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"structure_id": structureID,
		"deleted":      true,
	})
}

// GetLatestResult возвращает последний результат окна конструкции
// @Summary Последний результат
// @Description Возвращает результат обработки последнего окна конструкции
// @Tags Sessions
// @Produce json
// @Param structure_id path string true "ID конструкции"
// @Success 200 {object} stream.WindowResult "Результат окна"
// @Failure 404 {object} map[string]interface{} "Результат не найден"
// @Router /api/sessions/{structure_id}/latest [get]
func (h *HTTPHandler) GetLatestResult(w http.ResponseWriter, r *http.Request) {
	structureID := mux.Vars(r)["structure_id"]

	result, err := h.sessions.GetLatestResult(r.Context(), structureID)
	if err != nil {
		respondError(w, http.StatusNotFound, "No result available")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// ===== Утилиты =====

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[ERROR] Failed to encode JSON response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":  message,
		"status": status,
	})
}

func getQueryInt(r *http.Request, key string, defaultValue int) int {
	valueStr := r.URL.Query().Get(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getQueryString(r *http.Request, key, defaultValue string) string {
	if value := r.URL.Query().Get(key); value != "" {
		return value
	}
	return defaultValue
}
