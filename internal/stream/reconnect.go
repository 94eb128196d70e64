package stream

import (
	"context"
	"log"
	"sync"
	"time"
)

// State - состояние машины переподключения
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateConnected  State = "connected"
	StateBackoff    State = "backoff"
	StateParked     State = "parked"
)

// Расписание пауз между попытками. После исчерпания машина
// паркуется и пробует раз в parkedRetryInterval.
var backoffSchedule = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	4 * time.Second,
	8 * time.Second,
	10 * time.Second,
}

const parkedRetryInterval = 30 * time.Second

// Conn - минимальный интерфейс WebSocket соединения,
// достаточный для отправителя
type Conn interface {
	WriteJSON(v interface{}) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Dialer устанавливает соединение с приемником
type Dialer func(ctx context.Context, url string) (Conn, error)

// Reconnector держит соединение живым: подключается, отдает соединение
// обработчику и переподключается с экспоненциальной паузой после обрыва
type Reconnector struct {
	url   string
	dial  Dialer
	sleep func(ctx context.Context, d time.Duration) error

	mu    sync.Mutex
	state State
}

// NewReconnector создает машину переподключения для указанного адреса
func NewReconnector(url string, dial Dialer) *Reconnector {
	return &Reconnector{
		url:   url,
		dial:  dial,
		sleep: sleepCtx,
		state: StateIdle,
	}
}

// State возвращает текущее состояние машины
func (r *Reconnector) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Reconnector) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Run крутит цикл подключения до отмены контекста. При успешном
// подключении вызывает onConnected и блокируется до возврата из него;
// возврат трактуется как обрыв, и цикл начинает переподключение
// со свежим отсчетом попыток.
func (r *Reconnector) Run(ctx context.Context, onConnected func(Conn) error) error {
	attempt := 0

	for {
		if err := ctx.Err(); err != nil {
			r.setState(StateIdle)
			return err
		}

		r.setState(StateConnecting)
		conn, err := r.dial(ctx, r.url)
		if err == nil {
			attempt = 0
			r.setState(StateConnected)
			log.Printf("[STREAM] Connected to %s", r.url)

			err = onConnected(conn)
			conn.Close()
			log.Printf("[STREAM] Connection to %s lost: %v", r.url, err)
		} else {
			log.Printf("[STREAM] Dial %s failed: %v", r.url, err)
		}

		attempt++
		var delay time.Duration
		if attempt <= len(backoffSchedule) {
			r.setState(StateBackoff)
			delay = backoffSchedule[attempt-1]
		} else {
			r.setState(StateParked)
			delay = parkedRetryInterval
		}

		if err := r.sleep(ctx, delay); err != nil {
			r.setState(StateIdle)
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
