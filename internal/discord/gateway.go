package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"time"
)

// ReadyEvent is delivered to OnReady subscribers when the gateway completes
// its handshake.
type ReadyEvent struct {
	SessionID string
}

// DisconnectEvent is delivered to OnDisconnect subscribers when the socket
// drops for any reason other than a caller-initiated Disconnect.
type DisconnectEvent struct {
	Code   int
	Reason string
	Err    error
}

// Options configures a Gateway. Token is required; everything else has a
// working default.
type Options struct {
	Token     string
	Intents   int
	URL       string
	Transport Transport
	Clock     Clock
	Logger    *slog.Logger
}

// Gateway owns exactly one realtime connection to Discord and runs its
// handshake, heartbeat, and session protocol. It never reconnects on its
// own: when the socket drops, subscribers are notified and the caller
// decides whether to call PrepareResume and Connect again.
type Gateway struct {
	token     string
	intents   int
	url       string
	transport Transport
	clock     Clock
	logger    *slog.Logger

	mu            sync.Mutex
	conn          Conn
	dialing       bool
	disconnecting bool
	seq           int64
	hasSeq        bool
	sessionID     string
	resume        *resumeState
	hbStop        chan struct{}

	onMessage    subscribers[json.RawMessage]
	onReady      subscribers[ReadyEvent]
	onDisconnect subscribers[DisconnectEvent]
}

type resumeState struct {
	sessionID string
	seq       int64
}

// NewGateway creates a disconnected Gateway.
func NewGateway(opts Options) (*Gateway, error) {
	if opts.Token == "" {
		return nil, ErrMissingToken
	}
	if opts.Intents == 0 {
		opts.Intents = DefaultIntents
	}
	if opts.URL == "" {
		opts.URL = DefaultGatewayURL
	}
	if opts.Transport == nil {
		opts.Transport = NewWebsocketTransport()
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Gateway{
		token:     opts.Token,
		intents:   opts.Intents,
		url:       opts.URL,
		transport: opts.Transport,
		clock:     opts.Clock,
		logger:    opts.Logger.With("component", "discord-gateway"),
	}, nil
}

// Connect opens the gateway socket and starts the protocol loop. Calling it
// while already connected (or while a dial is in flight) is a no-op.
func (g *Gateway) Connect(ctx context.Context) error {
	g.mu.Lock()
	if g.conn != nil || g.dialing {
		g.mu.Unlock()
		return nil
	}
	g.dialing = true
	g.disconnecting = false
	url := g.url
	g.mu.Unlock()

	conn, err := g.transport.Dial(ctx, url)

	g.mu.Lock()
	g.dialing = false
	if err != nil {
		g.mu.Unlock()
		return fmt.Errorf("discord: connect gateway: %w", err)
	}
	if g.disconnecting {
		// Disconnect raced the dial; drop the fresh socket.
		g.mu.Unlock()
		_ = conn.Close(1000, "client disconnect")
		return nil
	}
	g.conn = conn
	g.mu.Unlock()

	g.logger.Info("gateway connected", "url", url)
	go g.readLoop(conn)
	return nil
}

// Disconnect closes the socket with code 1000 and clears all session state.
// Disconnect suppresses the disconnect notification: subscribers only hear
// about drops they did not ask for. Idempotent.
func (g *Gateway) Disconnect(_ context.Context) error {
	g.mu.Lock()
	g.disconnecting = true
	g.stopHeartbeatLocked()
	conn := g.conn
	g.conn = nil
	g.seq = 0
	g.hasSeq = false
	g.sessionID = ""
	g.resume = nil
	g.mu.Unlock()

	if conn != nil {
		g.logger.Info("gateway disconnecting")
		return conn.Close(1000, "client disconnect")
	}
	return nil
}

// PrepareResume primes the next handshake to send RESUME with the given
// session instead of a fresh IDENTIFY. Called before reconnecting after a
// clean drop.
func (g *Gateway) PrepareResume(sessionID string, seq int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resume = &resumeState{sessionID: sessionID, seq: seq}
}

// Connected reports whether a socket is currently open.
func (g *Gateway) Connected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.conn != nil
}

// SessionID returns the session captured from READY, or "" before the
// handshake completes.
func (g *Gateway) SessionID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sessionID
}

// Sequence returns the last seen sequence number. ok is false until the
// first sequenced payload arrives.
func (g *Gateway) Sequence() (seq int64, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq, g.hasSeq
}

// OnMessageCreate subscribes to MESSAGE_CREATE dispatches. The handler
// receives the raw event data. Returns an unsubscribe function.
func (g *Gateway) OnMessageCreate(fn func(json.RawMessage)) func() {
	return g.onMessage.add(fn)
}

// OnReady subscribes to READY dispatches. Returns an unsubscribe function.
func (g *Gateway) OnReady(fn func(ReadyEvent)) func() {
	return g.onReady.add(fn)
}

// OnDisconnect subscribes to unexpected socket drops. Returns an unsubscribe
// function.
func (g *Gateway) OnDisconnect(fn func(DisconnectEvent)) func() {
	return g.onDisconnect.add(fn)
}

// readLoop decodes payloads until the socket fails. Handlers run on this
// goroutine, so a slow subscriber delays later events on the same socket.
func (g *Gateway) readLoop(conn Conn) {
	for {
		data, err := conn.Read(context.Background())
		if err != nil {
			g.handleSocketEnd(conn, err)
			return
		}
		g.handlePayload(conn, data)
	}
}

func (g *Gateway) handlePayload(conn Conn, data []byte) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		g.logger.Debug("dropping malformed gateway payload", "error", err)
		return
	}

	// Sequence is tracked on every payload, whatever the opcode, so that
	// heartbeats always echo the latest value.
	if p.S != nil {
		g.mu.Lock()
		g.seq = *p.S
		g.hasSeq = true
		g.mu.Unlock()
	}

	switch p.Op {
	case opHello:
		g.handleHello(conn, p.D)
	case opHeartbeat:
		g.sendHeartbeat(conn)
	case opReconnect:
		g.logger.Warn("gateway requested reconnect")
		_ = conn.Close(4000, "reconnect requested by gateway")
	case opInvalidSession:
		g.handleInvalidSession(conn)
	case opDispatch:
		g.handleDispatch(p)
	case opHeartbeatAck:
		// Acks are not tracked.
	default:
		g.logger.Debug("ignoring gateway opcode", "op", p.Op)
	}
}

func (g *Gateway) handleHello(conn Conn, data json.RawMessage) {
	var hello helloData
	if err := json.Unmarshal(data, &hello); err != nil {
		g.failConnection(conn, fmt.Errorf("%w: %v", ErrInvalidHello, err))
		return
	}
	iv := hello.HeartbeatInterval
	if iv <= 0 || math.IsNaN(iv) || math.IsInf(iv, 0) {
		g.failConnection(conn, fmt.Errorf("%w: %v", ErrInvalidHello, iv))
		return
	}
	interval := time.Duration(iv * float64(time.Millisecond))

	g.startHeartbeat(conn, interval)

	g.mu.Lock()
	primed := g.resume
	g.resume = nil
	g.mu.Unlock()

	if primed != nil {
		g.logger.Info("resuming gateway session", "session_id", primed.sessionID, "seq", primed.seq)
		g.send(conn, payload{Op: opResume}, resumeData{
			Token:     g.token,
			SessionID: primed.sessionID,
			Seq:       primed.seq,
		})
		return
	}

	g.logger.Info("identifying to gateway")
	g.send(conn, payload{Op: opIdentify}, identifyData{
		Token:   g.token,
		Intents: g.intents,
		Properties: identifyProperties{
			OS:      runtime.GOOS,
			Browser: "convobridge",
			Device:  "convobridge",
		},
	})
}

func (g *Gateway) handleInvalidSession(conn Conn) {
	g.mu.Lock()
	g.resume = nil
	g.seq = 0
	g.hasSeq = false
	g.sessionID = ""
	g.mu.Unlock()

	g.logger.Warn("gateway session invalidated, re-identifying")
	g.send(conn, payload{Op: opIdentify}, identifyData{
		Token:   g.token,
		Intents: g.intents,
		Properties: identifyProperties{
			OS:      runtime.GOOS,
			Browser: "convobridge",
			Device:  "convobridge",
		},
	})
}

func (g *Gateway) handleDispatch(p payload) {
	switch p.T {
	case eventReady:
		var ready readyData
		if err := json.Unmarshal(p.D, &ready); err != nil {
			g.logger.Debug("dropping malformed READY", "error", err)
			return
		}
		g.mu.Lock()
		g.sessionID = ready.SessionID
		g.mu.Unlock()
		g.logger.Info("gateway ready", "session_id", ready.SessionID)
		g.onReady.notify(ReadyEvent{SessionID: ready.SessionID})
	case eventMessageCreate:
		g.onMessage.notify(p.D)
	}
}

// startHeartbeat sends one heartbeat immediately, then one per interval on a
// dedicated goroutine until the socket ends.
func (g *Gateway) startHeartbeat(conn Conn, interval time.Duration) {
	g.mu.Lock()
	g.stopHeartbeatLocked()
	stop := make(chan struct{})
	g.hbStop = stop
	g.mu.Unlock()

	g.sendHeartbeat(conn)

	ticker := g.clock.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C():
				g.sendHeartbeat(conn)
			case <-stop:
				return
			}
		}
	}()
}

func (g *Gateway) stopHeartbeatLocked() {
	if g.hbStop != nil {
		close(g.hbStop)
		g.hbStop = nil
	}
}

func (g *Gateway) sendHeartbeat(conn Conn) {
	g.mu.Lock()
	var d *int64
	if g.hasSeq {
		seq := g.seq
		d = &seq
	}
	g.mu.Unlock()

	data, err := json.Marshal(heartbeatPayload{Op: opHeartbeat, D: d})
	if err != nil {
		return
	}
	if err := conn.Write(context.Background(), data); err != nil {
		g.logger.Warn("heartbeat write failed", "error", err)
	}
}

// send marshals d into the payload envelope and writes it. Write failures
// surface through the read loop when the socket actually dies.
func (g *Gateway) send(conn Conn, env payload, d any) {
	raw, err := json.Marshal(d)
	if err != nil {
		g.logger.Error("marshal gateway payload", "op", env.Op, "error", err)
		return
	}
	env.D = raw
	data, err := json.Marshal(env)
	if err != nil {
		g.logger.Error("marshal gateway envelope", "op", env.Op, "error", err)
		return
	}
	if err := conn.Write(context.Background(), data); err != nil {
		g.logger.Warn("gateway write failed", "op", env.Op, "error", err)
	}
}

// SendPayload writes an arbitrary payload on the current socket. Returns
// ErrNotConnected when no socket is open.
func (g *Gateway) SendPayload(ctx context.Context, op int, d any) error {
	g.mu.Lock()
	conn := g.conn
	g.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("discord: marshal payload: %w", err)
	}
	data, err := json.Marshal(payload{Op: op, D: raw})
	if err != nil {
		return fmt.Errorf("discord: marshal envelope: %w", err)
	}
	return conn.Write(ctx, data)
}

// failConnection terminates a protocol-violating socket. The resulting read
// error surfaces through the disconnect path.
func (g *Gateway) failConnection(conn Conn, err error) {
	g.logger.Error("gateway protocol error", "error", err)
	_ = conn.Close(1002, err.Error())
}

// handleSocketEnd tears down state after the read loop exits. Caller-initiated
// disconnects stay silent; everything else notifies subscribers.
func (g *Gateway) handleSocketEnd(conn Conn, err error) {
	g.mu.Lock()
	if g.conn != conn {
		// A newer socket replaced this one; nothing to tear down.
		g.mu.Unlock()
		return
	}
	wasDisconnecting := g.disconnecting
	g.stopHeartbeatLocked()
	g.conn = nil
	g.mu.Unlock()

	if wasDisconnecting {
		return
	}

	ev := DisconnectEvent{Err: err}
	var closeErr *CloseError
	if errors.As(err, &closeErr) {
		ev.Code = closeErr.Code
		ev.Reason = closeErr.Reason
	} else if err != nil {
		ev.Reason = err.Error()
	}

	g.logger.Warn("gateway socket dropped", "code", ev.Code, "reason", ev.Reason)
	g.onDisconnect.notify(ev)
}
