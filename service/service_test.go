package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"twitch-chat-guard/classifier"
	"twitch-chat-guard/model"
	"twitch-chat-guard/moderation"
	"twitch-chat-guard/tokens"
	"twitch-chat-guard/twitch"
)

type pipeTransport struct {
	conns chan *pipeConn
}

func (t *pipeTransport) Dial(context.Context) (twitch.Conn, error) {
	c := &pipeConn{
		frames: make(chan string, 16),
		wrote:  make(chan string, 64),
		closed: make(chan struct{}),
	}
	t.conns <- c
	return c, nil
}

type pipeConn struct {
	frames chan string
	wrote  chan string
	closed chan struct{}
	once   sync.Once
}

func (c *pipeConn) ReadFrame() (string, error) {
	select {
	case f := <-c.frames:
		return f, nil
	case <-c.closed:
		return "", twitch.ErrClosed
	}
}

func (c *pipeConn) WriteLine(line string) error {
	select {
	case <-c.closed:
		return net.ErrClosed
	default:
	}
	c.wrote <- line
	return nil
}

func (c *pipeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *pipeConn) expect(t *testing.T, want string) {
	t.Helper()
	select {
	case got := <-c.wrote:
		if got != want {
			t.Fatalf("expected write %q, got %q", want, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %q", want)
	}
}

func TestServiceRunModeratesChannel(t *testing.T) {
	transport := &pipeTransport{conns: make(chan *pipeConn, 4)}
	log := zaptest.NewLogger(t)

	svc := New(Config{
		Channels:   []string{"#Streamer"},
		Identity:   tokens.Static{Username: "bot", Token: "secret"},
		Session:    twitch.Options{Transport: transport, MaxReconnects: -1},
		Classifier: classifier.DefaultConfig(),
		Policy:     moderation.DefaultSettings(),
		Deps:       Deps{Log: log},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	var conn *pipeConn
	select {
	case conn = <-transport.conns:
	case <-time.After(2 * time.Second):
		t.Fatalf("session did not dial")
	}

	conn.expect(t, "PASS oauth:secret")
	conn.expect(t, "NICK bot")
	conn.expect(t, "CAP REQ :twitch.tv/tags twitch.tv/commands")
	conn.expect(t, "JOIN #streamer")

	conn.frames <- ":bot.tmi.twitch.tv 366 bot #streamer :End of /NAMES list\r\n"
	conn.frames <- "@id=42 :spammer!spammer@spammer.tmi.twitch.tv PRIVMSG #streamer :FREE FOLLOWERS!!! bit.ly/scam123\r\n"

	conn.expect(t, "PRIVMSG #streamer :/delete 42")

	deadline := time.Now().Add(2 * time.Second)
	for {
		logged, err := svc.Log("streamer")
		if err != nil {
			t.Fatalf("Log returned error: %v", err)
		}
		if len(logged) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("delete was not recorded")
		}
		time.Sleep(10 * time.Millisecond)
	}

	states := svc.Channels()
	if len(states) != 1 || states[0].Status != "connected" || states[0].Stats.SpamDetected != 1 {
		t.Fatalf("unexpected state: %+v", states)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

type rotatingProvider struct {
	mu    sync.Mutex
	calls int
}

func (p *rotatingProvider) Identity(context.Context) (tokens.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return tokens.Identity{Username: "bot", Token: fmt.Sprintf("token%d", p.calls)}, nil
}

func TestServiceReconnectUsesFreshToken(t *testing.T) {
	transport := &pipeTransport{conns: make(chan *pipeConn, 4)}
	provider := &rotatingProvider{}

	svc := New(Config{
		Channels: []string{"streamer"},
		Identity: provider,
		Session:  twitch.Options{Transport: transport, ReconnectDelay: 10 * time.Millisecond, MaxReconnects: 1},
		Policy:   moderation.DefaultSettings(),
		Deps:     Deps{Log: zaptest.NewLogger(t)},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	defer func() {
		cancel()
		<-done
	}()
	go func() {
		defer close(done)
		_ = svc.Run(ctx)
	}()

	next := func() *pipeConn {
		t.Helper()
		select {
		case c := <-transport.conns:
			return c
		case <-time.After(2 * time.Second):
			t.Fatalf("session did not dial")
			return nil
		}
	}

	// token1 уходит на проверку в Run, первое подключение получает token2.
	first := next()
	first.expect(t, "PASS oauth:token2")
	_ = first.Close()

	second := next()
	second.expect(t, "PASS oauth:token3")
	second.expect(t, "NICK bot")
}

func TestServiceRunRequiresIdentity(t *testing.T) {
	svc := New(Config{Channels: []string{"chan"}, Identity: tokens.Static{}})

	if err := svc.Run(context.Background()); !errors.Is(err, tokens.ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
}

func TestServiceMonitorSurface(t *testing.T) {
	svc := New(Config{
		Channels:   []string{"#Chan", "chan", "other", " "},
		Classifier: classifier.DefaultConfig(),
		Policy:     moderation.DefaultSettings(),
	})

	states := svc.Channels()
	if len(states) != 2 || states[0].Channel != "chan" || states[1].Channel != "other" {
		t.Fatalf("unexpected channels: %+v", states)
	}
	if states[0].Status != model.StatusDisconnected.String() {
		t.Fatalf("new session must be disconnected, got %s", states[0].Status)
	}

	if err := svc.SetBlacklist("#CHAN", []string{"Casino"}); err != nil {
		t.Fatalf("SetBlacklist returned error: %v", err)
	}
	c, err := svc.Classify("chan", "best casino here")
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if c.Score != 40 || !strings.Contains(strings.Join(c.Reasons, ","), "Blacklist: casino") {
		t.Fatalf("channel blacklist must apply: %+v", c)
	}

	if c, _ := svc.Classify("other", "best casino here"); c.Score != 0 {
		t.Fatalf("blacklist must be per channel: %+v", c)
	}
	if c, _ := svc.Classify("", "hello"); c.Score != 0 {
		t.Fatalf("unexpected default classification: %+v", c)
	}

	if err := svc.SetLinkPolicy("other", true, nil); err != nil {
		t.Fatalf("SetLinkPolicy returned error: %v", err)
	}
	if !svc.Channels()[1].BlockAllLinks {
		t.Fatalf("link policy must be updated")
	}

	if _, err := svc.Act(context.Background(), "chan", ActionRequest{Type: model.ActionBan, Username: "u"}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}

	if err := svc.SetBlacklist("nope", nil); !errors.Is(err, ErrUnknownChannel) {
		t.Fatalf("expected ErrUnknownChannel, got %v", err)
	}
	if _, err := svc.Log("nope"); !errors.Is(err, ErrUnknownChannel) {
		t.Fatalf("expected ErrUnknownChannel, got %v", err)
	}
	if _, err := svc.Classify("nope", "x"); !errors.Is(err, ErrUnknownChannel) {
		t.Fatalf("expected ErrUnknownChannel, got %v", err)
	}
}
