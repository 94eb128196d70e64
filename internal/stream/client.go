package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/gorilla/websocket"
)

const sendBufferSize = 1024

// gorillaConn адаптирует gorilla/websocket соединение к интерфейсу Conn
type gorillaConn struct {
	conn *websocket.Conn
}

func (g *gorillaConn) WriteJSON(v interface{}) error {
	return g.conn.WriteJSON(v)
}

func (g *gorillaConn) ReadMessage() (int, []byte, error) {
	return g.conn.ReadMessage()
}

func (g *gorillaConn) Close() error {
	return g.conn.Close()
}

// GorillaDialer устанавливает WebSocket соединение через gorilla/websocket
func GorillaDialer(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	return &gorillaConn{conn: conn}, nil
}

// Sender отправляет сэмплы приемнику через WebSocket и переживает
// обрывы соединения. Сэмплы, накопившиеся без соединения сверх
// буфера, отбрасываются.
type Sender struct {
	rec *Reconnector
	out chan *SampleMessage
}

// NewSender создает отправителя сэмплов на указанный адрес
func NewSender(url string) *Sender {
	return &Sender{
		rec: NewReconnector(url, GorillaDialer),
		out: make(chan *SampleMessage, sendBufferSize),
	}
}

// State возвращает состояние соединения отправителя
func (s *Sender) State() State {
	return s.rec.State()
}

// Send ставит сэмпл в очередь отправки. Не блокируется: при
// переполненном буфере сэмпл отбрасывается.
func (s *Sender) Send(m *SampleMessage) bool {
	select {
	case s.out <- m:
		return true
	default:
		return false
	}
}

// Run гоняет цикл отправки до отмены контекста
func (s *Sender) Run(ctx context.Context) error {
	return s.rec.Run(ctx, func(conn Conn) error {
		return s.pump(ctx, conn)
	})
}

// pump передает сэмплы из очереди в соединение и параллельно
// читает подтверждения, пока соединение живо
func (s *Sender) pump(ctx context.Context, conn Conn) error {
	readErr := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			var ack AckMessage
			if err := json.Unmarshal(data, &ack); err == nil && ack.Type == "ack" {
				log.Printf("[STREAM] Ack received: %d samples", ack.Received)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return err
		case m := <-s.out:
			if err := conn.WriteJSON(m); err != nil {
				return fmt.Errorf("failed to send sample: %w", err)
			}
		}
	}
}
