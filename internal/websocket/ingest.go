package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/Krimson/vibro-monitor/internal/config"
	"github.com/Krimson/vibro-monitor/internal/metrics"
	"github.com/Krimson/vibro-monitor/internal/stream"
	"github.com/gorilla/websocket"
)

// Ingestor принимает сэмплы во входной конвейер
type Ingestor interface {
	Ingest(ctx context.Context, msg *stream.SampleMessage) error
}

// IngestHandler принимает поток сэмплов от датчиков по WebSocket
type IngestHandler struct {
	sessions  Ingestor
	ackEveryN int
}

// NewIngestHandler создает обработчик входящего потока
func NewIngestHandler(cfg *config.Config, sessions Ingestor) *IngestHandler {
	return &IngestHandler{
		sessions:  sessions,
		ackEveryN: cfg.AckEveryN,
	}
}

// HandleIngest обрабатывает соединение источника сэмплов. Каждое
// текстовое сообщение - один сэмпл в JSON. Каждые N принятых сэмплов
// источнику отправляется подтверждение.
func (h *IngestHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ERROR] Failed to upgrade ingest connection: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[INGEST] Source connected: %s", r.RemoteAddr)

	var received int64
	ctx := r.Context()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[INGEST] Source %s read error: %v", r.RemoteAddr, err)
			}
			break
		}

		var msg stream.SampleMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			// Испорченный сэмпл не роняет соединение
			log.Printf("[WARN] Dropping malformed sample from %s: %v", r.RemoteAddr, err)
			metrics.SamplesDropped.WithLabelValues("malformed").Inc()
			continue
		}

		if err := h.sessions.Ingest(ctx, &msg); err != nil {
			log.Printf("[WARN] Sample rejected: %v", err)
			metrics.SamplesDropped.WithLabelValues("rejected").Inc()
			continue
		}

		received++
		if h.ackEveryN > 0 && received%int64(h.ackEveryN) == 0 {
			ack := stream.AckMessage{Type: "ack", Received: received}
			if err := conn.WriteJSON(ack); err != nil {
				log.Printf("[INGEST] Failed to send ack to %s: %v", r.RemoteAddr, err)
				break
			}
		}
	}

	log.Printf("[INGEST] Source disconnected: %s, received %d samples", r.RemoteAddr, received)
}
