package stream

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeConn struct {
	closed bool
}

func (c *fakeConn) WriteJSON(v interface{}) error     { return nil }
func (c *fakeConn) ReadMessage() (int, []byte, error) { return 0, nil, errors.New("closed") }
func (c *fakeConn) Close() error                      { c.closed = true; return nil }

// fakeNetwork управляет исходом каждой попытки подключения
// и записывает длительности пауз
type fakeNetwork struct {
	outcomes []error // nil - успех
	dials    int
	sleeps   []time.Duration
	cancel   context.CancelFunc
	conns    []*fakeConn
}

func (f *fakeNetwork) dial(ctx context.Context, url string) (Conn, error) {
	if f.dials >= len(f.outcomes) {
		// Сценарий исчерпан: останавливаем цикл
		f.cancel()
		return nil, errors.New("scenario exhausted")
	}
	err := f.outcomes[f.dials]
	f.dials++
	if err != nil {
		return nil, err
	}
	conn := &fakeConn{}
	f.conns = append(f.conns, conn)
	return conn, nil
}

func (f *fakeNetwork) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.sleeps = append(f.sleeps, d)
	return nil
}

func runScenario(t *testing.T, outcomes []error, onConnected func(Conn) error) *fakeNetwork {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	network := &fakeNetwork{outcomes: outcomes, cancel: cancel}
	r := NewReconnector("ws://receiver/ws/ingest", network.dial)
	r.sleep = network.sleep

	if onConnected == nil {
		onConnected = func(Conn) error { return errors.New("connection dropped") }
	}
	if err := r.Run(ctx, onConnected); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context cancellation, got %v", err)
	}
	return network
}

func TestRun_BackoffSchedule(t *testing.T) {
	refused := errors.New("connection refused")
	// Семь неудачных попыток: пять по расписанию, затем парковка
	network := runScenario(t, []error{refused, refused, refused, refused, refused, refused, refused}, nil)

	expected := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second,
		30 * time.Second,
		30 * time.Second,
	}
	if len(network.sleeps) != len(expected) {
		t.Fatalf("Expected %d sleeps, got %d: %v", len(expected), len(network.sleeps), network.sleeps)
	}
	for i, d := range expected {
		if network.sleeps[i] != d {
			t.Errorf("Sleep %d: expected %v, got %v", i, d, network.sleeps[i])
		}
	}
}

func TestRun_SuccessResetsBackoff(t *testing.T) {
	refused := errors.New("connection refused")
	// Две неудачи, успех с последующим обрывом, снова неудача
	network := runScenario(t, []error{refused, refused, nil, refused}, nil)

	expected := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		1 * time.Second, // После успешного подключения отсчет начинается заново
		2 * time.Second,
	}
	if len(network.sleeps) != len(expected) {
		t.Fatalf("Expected %d sleeps, got %d: %v", len(expected), len(network.sleeps), network.sleeps)
	}
	for i, d := range expected {
		if network.sleeps[i] != d {
			t.Errorf("Sleep %d: expected %v, got %v", i, d, network.sleeps[i])
		}
	}
}

func TestRun_ClosesConnAfterHandlerReturns(t *testing.T) {
	network := runScenario(t, []error{nil}, func(Conn) error {
		return errors.New("write failed")
	})

	if len(network.conns) != 1 {
		t.Fatalf("Expected 1 connection, got %d", len(network.conns))
	}
	if !network.conns[0].closed {
		t.Error("Expected connection closed after handler returned")
	}
}

func TestRun_ParkedStateAfterScheduleExhausted(t *testing.T) {
	refused := errors.New("connection refused")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	network := &fakeNetwork{
		outcomes: []error{refused, refused, refused, refused, refused, refused},
		cancel:   cancel,
	}
	r := NewReconnector("ws://receiver/ws/ingest", network.dial)

	var lastState State
	r.sleep = func(ctx context.Context, d time.Duration) error {
		lastState = r.State()
		network.sleeps = append(network.sleeps, d)
		return ctx.Err()
	}

	if err := r.Run(ctx, func(Conn) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context cancellation, got %v", err)
	}
	if lastState != StateParked {
		t.Errorf("Expected parked state after exhausting schedule, got %s", lastState)
	}
	if r.State() != StateIdle {
		t.Errorf("Expected idle state after stop, got %s", r.State())
	}
}
