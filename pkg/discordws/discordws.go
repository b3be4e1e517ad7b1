package discordws

// Package discordws provides a small public surface for reusing this repository as a library.
// The implementation lives in internal/ and may change without notice.

import (
	"context"

	"discord-cli-ws/internal/config"
	"discord-cli-ws/internal/gateway"
	"discord-cli-ws/internal/ops"
	"discord-cli-ws/internal/session"

	"go.uber.org/zap"
)

// --- Transport ---

type Conn = gateway.Conn

type Dialer = gateway.Dialer

type Frame = gateway.Frame

type FrameKind = gateway.FrameKind

type CloseSignal = gateway.CloseSignal

type InflateError = gateway.InflateError

type DecodeError = gateway.DecodeError

type ClosedError = gateway.ClosedError

const (
	FrameText   = gateway.FrameText
	FrameBinary = gateway.FrameBinary
	FrameClose  = gateway.FrameClose
	FrameOther  = gateway.FrameOther

	StatusNormalClosure = gateway.StatusNormalClosure
)

// DecodeFrame interprets one inbound frame and unmarshals its payload into
// dst. See gateway.DecodeFrame for the exact contract.
func DecodeFrame(f *Frame, dst any) (bool, error) { return gateway.DecodeFrame(f, dst) }

// --- Config ---

type Config = config.Config

// LoadConfig loads the YAML configuration file and fills in defaults.
func LoadConfig(path string) (*Config, error) { return config.Load(path) }

// --- Session ---

type Session = session.Session

type SessionConfig = session.Config

type SessionStatus = session.Status

type Runner = session.Runner

type Backoff = session.Backoff

// NewSession builds a session over the given dialer. A nil logger disables
// logging.
func NewSession(d *Dialer, cfg SessionConfig, log *zap.Logger) *Session {
	return session.New(d, cfg, log)
}

// NewRunner wraps a session with the reconnect loop.
func NewRunner(sess *Session, bo Backoff, log *zap.Logger) *Runner {
	return session.NewRunner(sess, bo, log)
}

// --- Ops ---

// ServeOps serves /metrics, /healthz and /statusz on addr until context
// cancellation.
func ServeOps(ctx context.Context, addr string, status func() any) error {
	return ops.Serve(ctx, addr, ops.StatusFunc(status))
}
