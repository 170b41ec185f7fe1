package twitch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"twitch-chat-guard/model"
)

type fakeTransport struct {
	mu    sync.Mutex
	dials int
	err   error
	conns chan *fakeConn
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{conns: make(chan *fakeConn, 16)}
}

func (t *fakeTransport) Dial(context.Context) (Conn, error) {
	t.mu.Lock()
	t.dials++
	err := t.err
	t.mu.Unlock()

	if err != nil {
		return nil, err
	}
	c := newFakeConn()
	t.conns <- c
	return c, nil
}

func (t *fakeTransport) dialCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dials
}

func (t *fakeTransport) nextConn(tb testing.TB) *fakeConn {
	tb.Helper()
	select {
	case c := <-t.conns:
		return c
	case <-time.After(2 * time.Second):
		tb.Fatalf("transport was not dialed")
		return nil
	}
}

type fakeConn struct {
	frames    chan string
	errs      chan error
	closed    chan struct{}
	closeOnce sync.Once
	wrote     chan string
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan string, 16),
		errs:   make(chan error, 1),
		closed: make(chan struct{}),
		wrote:  make(chan string, 64),
	}
}

func (c *fakeConn) ReadFrame() (string, error) {
	select {
	case f := <-c.frames:
		return f, nil
	case err := <-c.errs:
		return "", err
	case <-c.closed:
		return "", ErrClosed
	}
}

func (c *fakeConn) WriteLine(line string) error {
	select {
	case <-c.closed:
		return errors.New("write on closed conn")
	default:
	}
	c.wrote <- line
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) expectWrites(tb testing.TB, want ...string) {
	tb.Helper()
	for _, w := range want {
		select {
		case got := <-c.wrote:
			if got != w {
				tb.Fatalf("expected write %q, got %q", w, got)
			}
		case <-time.After(2 * time.Second):
			tb.Fatalf("timed out waiting for write %q", w)
		}
	}
}

// handshakeDone читает строки рукопожатия.
func (c *fakeConn) handshakeDone(tb testing.TB) {
	tb.Helper()
	c.handshakeRest(tb, 4)
}

// handshakeRest пропускает n оставшихся строк рукопожатия.
func (c *fakeConn) handshakeRest(tb testing.TB, n int) {
	tb.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-c.wrote:
		case <-time.After(2 * time.Second):
			tb.Fatalf("handshake not sent")
		}
	}
}

type recorder struct {
	statuses chan model.ConnectionStatus
	messages chan model.ChatEvent
	onMsg    func(model.ChatEvent)
}

func newRecorder() *recorder {
	return &recorder{
		statuses: make(chan model.ConnectionStatus, 64),
		messages: make(chan model.ChatEvent, 64),
	}
}

func (r *recorder) OnMessage(ev model.ChatEvent) {
	if r.onMsg != nil {
		r.onMsg(ev)
	}
	r.messages <- ev
}

func (r *recorder) OnStatus(s model.ConnectionStatus) { r.statuses <- s }

func (r *recorder) expectStatuses(tb testing.TB, want ...model.ConnectionStatus) {
	tb.Helper()
	for i, w := range want {
		select {
		case got := <-r.statuses:
			if got != w {
				tb.Fatalf("status %d: expected %s, got %s", i, w, got)
			}
		case <-time.After(2 * time.Second):
			tb.Fatalf("status %d: timed out waiting for %s", i, w)
		}
	}
}

func (r *recorder) expectNoStatus(tb testing.TB, within time.Duration) {
	tb.Helper()
	select {
	case got := <-r.statuses:
		tb.Fatalf("unexpected status %s", got)
	case <-time.After(within):
	}
}

func (r *recorder) nextMessage(tb testing.TB) model.ChatEvent {
	tb.Helper()
	select {
	case ev := <-r.messages:
		return ev
	case <-time.After(2 * time.Second):
		tb.Fatalf("timed out waiting for message")
		return model.ChatEvent{}
	}
}
