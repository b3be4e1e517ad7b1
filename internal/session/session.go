package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"discord-cli-ws/internal/gateway"
)

// Gateway opcodes this client speaks. Everything else passes through as an
// opaque dispatch.
const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatAck   = 11
)

// payload is the gateway envelope. The d field stays raw: its shape depends
// on the opcode and most of them are not this client's business.
type payload struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d,omitempty"`
	S  *int64          `json:"s,omitempty"`
	T  string          `json:"t,omitempty"`
}

type helloData struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"` // milliseconds
}

type heartbeatPayload struct {
	Op int    `json:"op"`
	D  *int64 `json:"d"`
}

type identifyPayload struct {
	Op int          `json:"op"`
	D  identifyData `json:"d"`
}

type identifyData struct {
	Token      string             `json:"token"`
	Intents    int                `json:"intents"`
	Properties identifyProperties `json:"properties"`
}

type identifyProperties struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Device  string `json:"device"`
}

var (
	// ErrReconnectRequested means the gateway asked for a fresh connection.
	ErrReconnectRequested = errors.New("session: gateway requested reconnect")

	// ErrInvalidSession means the gateway rejected the session outright.
	ErrInvalidSession = errors.New("session: gateway invalidated the session")

	// ErrNoHeartbeatAck means a heartbeat went unacknowledged for a full
	// interval. The connection is a zombie and must be replaced.
	ErrNoHeartbeatAck = errors.New("session: heartbeat not acknowledged")

	// ErrNoHello means the gateway never sent its hello.
	ErrNoHello = errors.New("session: no hello from gateway")
)

// Config carries everything one session needs to come up.
type Config struct {
	URL          string
	Token        string
	Intents      int
	HelloTimeout time.Duration
}

const defaultHelloTimeout = 15 * time.Second

// Session drives one gateway connection at a time: dial, hello, identify,
// then the heartbeat loop until the connection dies.
type Session struct {
	dialer *gateway.Dialer
	cfg    Config
	log    *zap.Logger

	mu      sync.Mutex
	st      Status
	haveSeq bool
}

// Status is a point-in-time snapshot for the ops endpoint.
type Status struct {
	Connected  bool   `json:"connected"`
	ConnID     string `json:"conn_id,omitempty"`
	Seq        int64  `json:"seq"`
	Events     uint64 `json:"events"`
	LastAckRTT string `json:"last_ack_rtt,omitempty"`
}

func New(dialer *gateway.Dialer, cfg Config, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.HelloTimeout <= 0 {
		cfg.HelloTimeout = defaultHelloTimeout
	}
	return &Session{dialer: dialer, cfg: cfg, log: log}
}

// Status returns the current snapshot. Safe to call from any goroutine.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st
}

// Run drives one connection from handshake to death and returns the reason
// it ended: a *gateway.ClosedError, a transport error, or one of the
// session sentinels. Whether to reconnect is the caller's decision.
func (s *Session) Run(ctx context.Context) error {
	connID := uuid.NewString()
	log := s.log.With(zap.String("conn_id", connID))

	conn, err := s.dialer.DialContext(ctx, s.cfg.URL)
	if err != nil {
		return err
	}
	defer conn.Close(gateway.StatusNormalClosure, "")

	s.resetConn(connID)
	defer s.setConnected(false)

	hello, err := s.awaitHello(ctx, conn, log)
	if err != nil {
		return err
	}
	interval := time.Duration(hello.HeartbeatInterval) * time.Millisecond
	log.Info("gateway session up", zap.Duration("heartbeat_interval", interval))

	if err := s.identify(ctx, conn); err != nil {
		return err
	}
	s.setConnected(true)

	return s.loop(ctx, conn, interval, log)
}

// awaitHello spins on the receive window until the hello payload arrives or
// the budget runs out.
func (s *Session) awaitHello(ctx context.Context, conn *gateway.Conn, log *zap.Logger) (*helloData, error) {
	deadline := time.Now().Add(s.cfg.HelloTimeout)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var p payload
		ok, err := conn.RecvJSON(ctx, &p)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		observePayload(p.Op)
		if p.Op != opHello {
			log.Debug("payload before hello", zap.Int("op", p.Op))
			continue
		}
		var h helloData
		if err := json.Unmarshal(p.D, &h); err != nil {
			return nil, fmt.Errorf("session: hello payload: %w", err)
		}
		if h.HeartbeatInterval <= 0 {
			return nil, errors.New("session: hello without heartbeat interval")
		}
		return &h, nil
	}
	return nil, ErrNoHello
}

func (s *Session) identify(ctx context.Context, conn *gateway.Conn) error {
	p := identifyPayload{
		Op: opIdentify,
		D: identifyData{
			Token:   s.cfg.Token,
			Intents: s.cfg.Intents,
			Properties: identifyProperties{
				OS:      "Windows",
				Browser: "Chrome",
			},
		},
	}
	if err := conn.SendJSON(ctx, p); err != nil {
		return fmt.Errorf("session: identify: %w", err)
	}
	return nil
}

func (s *Session) sendHeartbeat(ctx context.Context, conn *gateway.Conn) error {
	p := heartbeatPayload{Op: opHeartbeat, D: s.seqPtr()}
	if err := conn.SendJSON(ctx, p); err != nil {
		return fmt.Errorf("session: heartbeat: %w", err)
	}
	heartbeatsTotal.Inc()
	return nil
}

// loop services inbound payloads and the heartbeat cadence. The bounded
// receive window keeps the cadence honest even when the gateway goes quiet.
func (s *Session) loop(ctx context.Context, conn *gateway.Conn, interval time.Duration, log *zap.Logger) error {
	var (
		nextBeat = time.Now().Add(firstBeatDelay(interval))
		lastBeat time.Time
		acked    = true
	)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var p payload
		ok, err := conn.RecvJSON(ctx, &p)
		if err != nil {
			var ce *gateway.ClosedError
			if errors.As(err, &ce) {
				log.Warn("gateway closed the connection",
					zap.Int("code", ce.Signal.Code),
					zap.String("reason", ce.Signal.Reason))
			}
			return err
		}
		if ok {
			observePayload(p.Op)
			switch p.Op {
			case opDispatch:
				if p.S != nil {
					s.setSeq(*p.S)
				}
				s.countEvent()
				log.Debug("dispatch", zap.String("event", p.T))
			case opHeartbeat:
				// The gateway wants proof of life right now.
				if err := s.sendHeartbeat(ctx, conn); err != nil {
					return err
				}
				lastBeat = time.Now()
				acked = false
				nextBeat = lastBeat.Add(interval)
			case opHeartbeatAck:
				acked = true
				if !lastBeat.IsZero() {
					rtt := time.Since(lastBeat)
					heartbeatRTT.Set(rtt.Seconds())
					s.setAckRTT(rtt)
				}
			case opReconnect:
				return ErrReconnectRequested
			case opInvalidSession:
				return ErrInvalidSession
			case opHello:
				// A repeated hello refreshes the cadence.
				var h helloData
				if err := json.Unmarshal(p.D, &h); err == nil && h.HeartbeatInterval > 0 {
					interval = time.Duration(h.HeartbeatInterval) * time.Millisecond
				}
			default:
				log.Debug("unhandled op", zap.Int("op", p.Op))
			}
		}

		if !time.Now().Before(nextBeat) {
			if !acked {
				// Zombie connection: the previous beat was never answered.
				return ErrNoHeartbeatAck
			}
			if err := s.sendHeartbeat(ctx, conn); err != nil {
				return err
			}
			lastBeat = time.Now()
			acked = false
			nextBeat = lastBeat.Add(interval)
		}
	}
}

func (s *Session) seqPtr() *int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.haveSeq {
		return nil
	}
	v := s.st.Seq
	return &v
}

func (s *Session) resetConn(connID string) {
	s.mu.Lock()
	s.st.ConnID = connID
	s.st.Connected = false
	s.st.Seq = 0
	s.st.LastAckRTT = ""
	s.haveSeq = false
	s.mu.Unlock()
}

func (s *Session) setConnected(v bool) {
	s.mu.Lock()
	s.st.Connected = v
	s.mu.Unlock()
}

func (s *Session) setSeq(v int64) {
	s.mu.Lock()
	s.st.Seq = v
	s.haveSeq = true
	s.mu.Unlock()
}

func (s *Session) countEvent() {
	s.mu.Lock()
	s.st.Events++
	s.mu.Unlock()
}

func (s *Session) setAckRTT(d time.Duration) {
	s.mu.Lock()
	s.st.LastAckRTT = d.String()
	s.mu.Unlock()
}
