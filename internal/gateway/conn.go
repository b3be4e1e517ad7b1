package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// recvWait bounds every receive so a caller's loop keeps servicing its
	// own timers (heartbeats above all) even on a silent connection.
	recvWait = 500 * time.Millisecond

	// writeWait is the send deadline used when the caller's context does
	// not carry one.
	writeWait = 10 * time.Second

	// closeWait bounds the courtesy close frame on shutdown.
	closeWait = time.Second
)

// wsStream is the subset of *websocket.Conn the transport relies on. Tests
// substitute their own implementation.
type wsStream interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type frameResult struct {
	frame *Frame
	err   error
}

// Conn is an established gateway stream plus the typed receive and send
// operations a session loop drives. It adds no locking over the engine: at
// most one receive and one send may be in flight at a time, which a
// single-loop caller gets for free.
type Conn struct {
	ws  wsStream
	log *zap.Logger

	// pending holds a read that outlived its caller's wait window. The
	// next receive collects it instead of starting another, so the frame
	// sequence is never disturbed by timeouts.
	pending chan frameResult
}

func newConn(ws wsStream, log *zap.Logger) *Conn {
	if log == nil {
		log = zap.NewNop()
	}
	return &Conn{ws: ws, log: log}
}

// RecvJSON waits up to half a second for one frame and decodes it into dst.
// It returns (true, nil) when dst was populated and (false, nil) when the
// window elapsed or the frame carried no payload. Errors are a *ClosedError
// when the remote shut the stream down with a status, an *InflateError or
// *DecodeError when the payload was unusable, and a wrapped engine error
// when the transport itself failed.
//
// The timeout cancels only the wait. A read still in flight is parked and
// handed to the next call, leaving the stream itself untouched.
func (c *Conn) RecvJSON(ctx context.Context, dst any) (bool, error) {
	if c.pending == nil {
		ch := make(chan frameResult, 1)
		c.pending = ch
		go func() {
			f, err := c.readFrame()
			ch <- frameResult{frame: f, err: err}
		}()
	}

	timer := time.NewTimer(recvWait)
	defer timer.Stop()

	select {
	case res := <-c.pending:
		c.pending = nil
		if res.err != nil {
			return false, fmt.Errorf("gateway: read: %w", res.err)
		}
		return c.decode(res.frame, dst)
	case <-timer.C:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (c *Conn) decode(f *Frame, dst any) (bool, error) {
	ok, err := DecodeFrame(f, dst)
	if err == nil {
		return ok, nil
	}

	// Undecodable payloads are logged here, with the payload attached,
	// before the typed error goes back to the caller unchanged.
	var ie *InflateError
	var de *DecodeError
	switch {
	case errors.As(err, &ie):
		decodeFailuresTotal.WithLabelValues("inflate").Inc()
		c.log.Warn("binary frame did not inflate",
			zap.Error(ie.Err),
			zap.Binary("payload", ie.Data))
	case errors.As(err, &de):
		decodeFailuresTotal.WithLabelValues("decode").Inc()
		c.log.Warn("frame did not parse as JSON",
			zap.Error(de.Err),
			zap.String("payload", de.Text))
	}
	return false, err
}

// readFrame blocks on the engine for the next data frame and maps it into
// the Frame model. A clean end of stream yields (nil, nil).
func (c *Conn) readFrame() (*Frame, error) {
	mt, data, err := c.ws.ReadMessage()
	if err != nil {
		var ce *websocket.CloseError
		if errors.As(err, &ce) {
			switch ce.Code {
			case websocket.CloseNoStatusReceived:
				// The peer's close frame carried no status payload.
				return &Frame{Kind: FrameClose}, nil
			case websocket.CloseAbnormalClosure:
				// 1006 never appears on the wire; the engine synthesizes
				// it when the peer drops without a close handshake.
				return nil, err
			}
			return &Frame{Kind: FrameClose, Close: &CloseSignal{Code: ce.Code, Reason: ce.Text}}, nil
		}
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}

	switch mt {
	case websocket.TextMessage:
		observeFrame("rx", len(data))
		return &Frame{Kind: FrameText, Data: data}, nil
	case websocket.BinaryMessage:
		observeFrame("rx", len(data))
		return &Frame{Kind: FrameBinary, Data: data}, nil
	default:
		// The engine surfaces only data messages here, but stay exhaustive.
		return &Frame{Kind: FrameOther}, nil
	}
}

// SendJSON marshals v and transmits it as a single text frame, awaited to
// completion under the context's deadline (or a default one). Marshalling
// happens first: when it fails, nothing reaches the transport.
func (c *Conn) SendJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("gateway: encode payload: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("gateway: send: %w", err)
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("gateway: send: %w", err)
	}
	observeFrame("tx", len(data))
	return nil
}

// Close sends a close frame with the given status and releases the
// underlying stream.
func (c *Conn) Close(code int, reason string) error {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWait))
	return c.ws.Close()
}
