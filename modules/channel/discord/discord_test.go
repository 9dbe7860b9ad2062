package discord

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/convobridge/convobridge/internal/channel"
	gateway "github.com/convobridge/convobridge/internal/discord"
	"github.com/convobridge/convobridge/pkg/message"
)

type fakeTransport struct {
	mu    sync.Mutex
	conns []*fakeConn
	dials int
}

func (t *fakeTransport) Dial(_ context.Context, _ string) (gateway.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dials++
	c := newFakeConn()
	t.conns = append(t.conns, c)
	return c, nil
}

func (t *fakeTransport) dialCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dials
}

func (t *fakeTransport) lastConn() *fakeConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.conns) == 0 {
		return nil
	}
	return t.conns[len(t.conns)-1]
}

type fakeConn struct {
	incoming chan []byte
	readErrs chan error
	writes   chan []byte

	mu      sync.Mutex
	closed  bool
	closeCh chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		incoming: make(chan []byte, 16),
		readErrs: make(chan error, 1),
		writes:   make(chan []byte, 16),
		closeCh:  make(chan struct{}),
	}
}

func (c *fakeConn) Read(ctx context.Context) ([]byte, error) {
	select {
	case data := <-c.incoming:
		return data, nil
	case err := <-c.readErrs:
		return nil, err
	case <-c.closeCh:
		return nil, &gateway.CloseError{Code: 1000, Reason: "closed"}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *fakeConn) Write(_ context.Context, data []byte) error {
	c.writes <- data
	return nil
}

func (c *fakeConn) Close(int, string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.closeCh)
	return nil
}

func (c *fakeConn) feed(t *testing.T, p string) {
	t.Helper()
	select {
	case c.incoming <- []byte(p):
	case <-time.After(time.Second):
		t.Fatal("timed out feeding payload")
	}
}

// fail injects a read error, simulating an unexpected socket drop.
func (c *fakeConn) fail(t *testing.T, err error) {
	t.Helper()
	select {
	case c.readErrs <- err:
	case <-time.After(time.Second):
		t.Fatal("timed out injecting read error")
	}
}

type envelope struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d"`
	T  string          `json:"t"`
}

func (c *fakeConn) nextWrite(t *testing.T) envelope {
	t.Helper()
	select {
	case data := <-c.writes:
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("decode written payload: %v", err)
		}
		return env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for client payload")
		return envelope{}
	}
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func newTestModule(t *testing.T) (*Discord, *fakeTransport) {
	t.Helper()
	ft := &fakeTransport{}
	d := &Discord{
		config:    Config{Token: "test-token"},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracker:   channel.NewStatusTracker(),
		handlers:  make(map[int]channel.Handler),
		transport: ft,
	}
	d.config.defaults()
	d.client = NewClient(d.config.Token, d.config.APIURL, d.config.Timeout)
	return d, ft
}

// handshake drives the fake socket through HELLO and READY, returning after
// the channel reports connected.
func handshake(t *testing.T, d *Discord, conn *fakeConn, sessionID string) {
	t.Helper()
	conn.feed(t, `{"op":10,"d":{"heartbeat_interval":45000}}`)
	if env := conn.nextWrite(t); env.Op != 1 {
		t.Fatalf("first write op = %d, want heartbeat", env.Op)
	}
	if env := conn.nextWrite(t); env.Op != 2 {
		t.Fatalf("second write op = %d, want identify", env.Op)
	}
	conn.feed(t, `{"op":0,"t":"READY","s":1,"d":{"session_id":"`+sessionID+`"}}`)
	eventually(t, func() bool {
		return d.Status().State == channel.StateConnected
	}, "channel never reached connected state")
}

func TestConnect_ReachesConnectedAfterReady(t *testing.T) {
	t.Parallel()

	d, ft := newTestModule(t)
	if err := d.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if got := d.Status().State; got != channel.StateConnecting {
		t.Fatalf("state after Connect = %q, want connecting", got)
	}
	handshake(t, d, ft.lastConn(), "sess-1")

	if err := d.Disconnect(context.Background()); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if got := d.Status().State; got != channel.StateDisconnected {
		t.Errorf("state after Disconnect = %q", got)
	}
}

func TestOnMessage_DeliversInboundAndUnsubscribes(t *testing.T) {
	t.Parallel()

	d, ft := newTestModule(t)
	received := make(chan message.ChannelMessage, 4)
	unsubscribe := d.OnMessage(func(msg message.ChannelMessage) {
		received <- msg
	})

	if err := d.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	conn := ft.lastConn()
	handshake(t, d, conn, "sess-1")

	conn.feed(t, `{"op":0,"t":"MESSAGE_CREATE","s":2,"d":{"id":"m1","channel_id":"c1","content":"hi","author":{"id":"u1","username":"alice"}}}`)
	select {
	case msg := <-received:
		if msg.ID != "m1" || msg.ChannelID != "c1" || msg.Text != "hi" {
			t.Errorf("msg = %+v", msg)
		}
		if msg.Platform != message.PlatformDiscord {
			t.Errorf("platform = %q", msg.Platform)
		}
	case <-time.After(time.Second):
		t.Fatal("message never delivered")
	}

	unsubscribe()
	conn.feed(t, `{"op":0,"t":"MESSAGE_CREATE","s":3,"d":{"id":"m2","channel_id":"c1","content":"again","author":{"id":"u1"}}}`)
	select {
	case msg := <-received:
		t.Fatalf("received %+v after unsubscribe", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestInbound_FiltersOwnAndBotMessages(t *testing.T) {
	t.Parallel()

	d, ft := newTestModule(t)
	d.botUser = &User{ID: "bot-self"}
	received := make(chan message.ChannelMessage, 4)
	d.OnMessage(func(msg message.ChannelMessage) { received <- msg })

	if err := d.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	conn := ft.lastConn()
	handshake(t, d, conn, "sess-1")

	// Own echo and a foreign bot are both dropped with allow_bots off.
	conn.feed(t, `{"op":0,"t":"MESSAGE_CREATE","s":2,"d":{"id":"m1","channel_id":"c1","content":"echo","author":{"id":"bot-self","bot":true}}}`)
	conn.feed(t, `{"op":0,"t":"MESSAGE_CREATE","s":3,"d":{"id":"m2","channel_id":"c1","content":"spam","author":{"id":"other-bot","bot":true}}}`)
	conn.feed(t, `{"op":0,"t":"MESSAGE_CREATE","s":4,"d":{"id":"m3","channel_id":"c1","content":"human","author":{"id":"u1"}}}`)

	select {
	case msg := <-received:
		if msg.ID != "m3" {
			t.Errorf("delivered %q, want only the human message", msg.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("human message never delivered")
	}
	select {
	case msg := <-received:
		t.Fatalf("unexpected extra delivery: %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDrop_ResumesOnceThenErrors(t *testing.T) {
	t.Parallel()

	d, ft := newTestModule(t)
	if err := d.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	conn := ft.lastConn()
	handshake(t, d, conn, "sess-resume")

	conn.fail(t, &gateway.CloseError{Code: 4008, Reason: "rate limited"})

	eventually(t, func() bool { return ft.dialCount() == 2 }, "no reconnect dial after drop")
	conn2 := ft.lastConn()
	conn2.feed(t, `{"op":10,"d":{"heartbeat_interval":45000}}`)
	if env := conn2.nextWrite(t); env.Op != 1 {
		t.Fatalf("first write op = %d, want heartbeat", env.Op)
	}
	env := conn2.nextWrite(t)
	if env.Op != 6 {
		t.Fatalf("second write op = %d, want resume", env.Op)
	}
	var resume struct {
		SessionID string `json:"session_id"`
		Seq       int64  `json:"seq"`
	}
	if err := json.Unmarshal(env.D, &resume); err != nil {
		t.Fatalf("decode resume: %v", err)
	}
	if resume.SessionID != "sess-resume" || resume.Seq != 1 {
		t.Errorf("resume = %+v", resume)
	}

	// Second drop before READY: no further attempts, channel goes to error.
	conn2.fail(t, &gateway.CloseError{Code: 1006, Reason: "abnormal closure"})
	eventually(t, func() bool {
		return d.Status().State == channel.StateError
	}, "channel never entered error state")
	if ft.dialCount() != 2 {
		t.Errorf("dials = %d, want 2", ft.dialCount())
	}
}

func TestDrop_ReadyResetsResumeBudget(t *testing.T) {
	t.Parallel()

	d, ft := newTestModule(t)
	if err := d.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	handshake(t, d, ft.lastConn(), "sess-1")

	ft.lastConn().fail(t, &gateway.CloseError{Code: 1006, Reason: "drop one"})
	eventually(t, func() bool { return ft.dialCount() == 2 }, "no dial after first drop")
	conn2 := ft.lastConn()
	conn2.feed(t, `{"op":10,"d":{"heartbeat_interval":45000}}`)
	conn2.nextWrite(t) // heartbeat
	conn2.nextWrite(t) // resume
	conn2.feed(t, `{"op":0,"t":"READY","s":5,"d":{"session_id":"sess-2"}}`)
	eventually(t, func() bool {
		return d.Status().State == channel.StateConnected
	}, "resumed session never reached connected")

	// A later drop gets a fresh single attempt.
	conn2.fail(t, &gateway.CloseError{Code: 1006, Reason: "drop two"})
	eventually(t, func() bool { return ft.dialCount() == 3 }, "no dial after post-ready drop")
}

func TestSend_RequiresConnectedState(t *testing.T) {
	t.Parallel()

	d, _ := newTestModule(t)
	err := d.Send(context.Background(), message.Outbound{ChannelID: "c1", Text: "hi"})
	if err != channel.ErrNotConnected {
		t.Errorf("Send = %v, want ErrNotConnected", err)
	}
}

func TestConfig_ReportsIdentity(t *testing.T) {
	t.Parallel()

	d, _ := newTestModule(t)
	cfg := d.Config()
	if cfg.ID != "channel.discord" || cfg.Platform != message.PlatformDiscord {
		t.Errorf("cfg = %+v", cfg)
	}
	if !cfg.Enabled {
		t.Error("channel should default to enabled")
	}

	disabled := false
	d.config.Enabled = &disabled
	if d.Config().Enabled {
		t.Error("explicitly disabled channel reports enabled")
	}
}
