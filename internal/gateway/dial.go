package gateway

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// The gateway fingerprints clients on the upgrade request, so the handshake
// below reproduces a Chrome 108 on Windows request verbatim. None of these
// values may drift. The engine supplies the upgrade mechanics itself: the
// per-connection Sec-WebSocket-Key, the protocol version, and the
// permessage-deflate offer through its compression option.
const (
	gatewayHost   = "gateway.discord.gg"
	gatewayOrigin = "https://discord.com"
	browserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36"
)

func fingerprintHeader() http.Header {
	h := http.Header{}
	h.Set("Host", gatewayHost)
	h.Set("User-Agent", browserAgent)
	h.Set("Accept", "*/*")
	h.Set("Accept-Language", "en-US,en;q=0.5")
	h.Set("Accept-Encoding", "gzip, deflate, br")
	h.Set("Origin", gatewayOrigin)
	h.Set("Sec-Fetch-Dest", "websocket")
	h.Set("Sec-Fetch-Mode", "websocket")
	h.Set("Sec-Fetch-Site", "cross-site")
	h.Set("Pragma", "no-cache")
	h.Set("Cache-Control", "no-cache")
	return h
}

const defaultHandshakeTimeout = 45 * time.Second

// Dialer establishes gateway connections. The zero value is usable.
type Dialer struct {
	// HandshakeTimeout bounds the whole upgrade, 45s when zero.
	HandshakeTimeout time.Duration

	// Fwmark tags the dialing socket for policy routing on Linux. Zero
	// leaves the socket unmarked.
	Fwmark uint32

	// Logger is attached to established connections. Nil disables logging.
	Logger *zap.Logger
}

// DialContext performs the fingerprinted upgrade against rawurl and returns
// the established stream, ready for both directions. The connection accepts
// frames of any size (no read limit). A failed handshake returns an error
// and never a half-open connection.
func (d *Dialer) DialContext(ctx context.Context, rawurl string) (*Conn, error) {
	tracer := otel.Tracer("discord-cli-ws/gateway")
	ctx, span := tracer.Start(ctx, "gateway.dial",
		trace.WithAttributes(attribute.String("gateway.url", rawurl)))
	defer span.End()

	timeout := d.HandshakeTimeout
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}

	netDialer := &net.Dialer{Timeout: timeout}
	if d.Fwmark != 0 {
		netDialer.Control = socketMarkControl(d.Fwmark)
	}

	wsDialer := &websocket.Dialer{
		Proxy:             http.ProxyFromEnvironment,
		NetDialContext:    netDialer.DialContext,
		HandshakeTimeout:  timeout,
		TLSClientConfig:   &tls.Config{MinVersion: tls.VersionTLS12},
		EnableCompression: true,
	}

	start := time.Now()
	wsConn, resp, err := wsDialer.DialContext(ctx, rawurl, fingerprintHeader())
	observeDial(time.Since(start), err == nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "handshake failed")
		if resp != nil {
			return nil, fmt.Errorf("gateway: dial %s failed (status %d): %w", rawurl, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("gateway: dial %s failed: %w", rawurl, err)
	}

	wsConn.SetReadLimit(0) // No limit

	span.SetStatus(codes.Ok, "")
	return newConn(wsConn, d.Logger), nil
}

// Probe checks that the endpoint completes the upgrade and reports how long
// the handshake took. The connection is closed right away without any
// payload exchange.
func (d *Dialer) Probe(ctx context.Context, rawurl string) (time.Duration, error) {
	start := time.Now()
	conn, err := d.DialContext(ctx, rawurl)
	if err != nil {
		return 0, err
	}
	_ = conn.Close(StatusNormalClosure, "probe")
	return time.Since(start), nil
}
