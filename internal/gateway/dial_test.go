package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func mustRecv(t *testing.T, c *Conn, dst any) {
	t.Helper()
	for i := 0; i < 10; i++ {
		ok, err := c.RecvJSON(context.Background(), dst)
		require.NoError(t, err)
		if ok {
			return
		}
	}
	t.Fatal("no frame delivered")
}

func TestDialContextSendsFingerprintHeaders(t *testing.T) {
	type handshake struct {
		host   string
		header http.Header
	}
	got := make(chan handshake, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- handshake{host: r.Host, header: r.Header.Clone()}
		c, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		_, _, _ = c.ReadMessage()
	}))
	defer srv.Close()

	d := &Dialer{}
	conn, err := d.DialContext(context.Background(), wsURL(srv))
	require.NoError(t, err)
	defer conn.Close(StatusNormalClosure, "test")

	hs := <-got
	assert.Equal(t, "gateway.discord.gg", hs.host)

	for k, want := range map[string]string{
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36",
		"Accept":          "*/*",
		"Accept-Language": "en-US,en;q=0.5",
		"Accept-Encoding": "gzip, deflate, br",
		"Origin":          "https://discord.com",
		"Sec-Fetch-Dest":  "websocket",
		"Sec-Fetch-Mode":  "websocket",
		"Sec-Fetch-Site":  "cross-site",
		"Pragma":          "no-cache",
		"Cache-Control":   "no-cache",
	} {
		assert.Equal(t, want, hs.header.Get(k), k)
	}

	// The engine supplies the upgrade mechanics on its own.
	assert.NotEmpty(t, hs.header.Get("Sec-WebSocket-Key"))
	assert.Equal(t, "13", hs.header.Get("Sec-WebSocket-Version"))
	assert.Contains(t, hs.header.Get("Sec-WebSocket-Extensions"), "permessage-deflate")
}

func TestDialContextEndToEnd(t *testing.T) {
	ackFrame := deflate(t, `{"op":11}`)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		// Hello in plain text, then an ack as zlib-compressed binary.
		_ = c.WriteMessage(websocket.TextMessage, []byte(`{"op":10,"d":{"heartbeat_interval":41250}}`))
		_ = c.WriteMessage(websocket.BinaryMessage, ackFrame)

		// Echo one frame from the client, then close with a status.
		mt, data, err := c.ReadMessage()
		if err == nil && mt == websocket.TextMessage {
			_ = c.WriteMessage(websocket.TextMessage, data)
		}
		msg := websocket.FormatCloseMessage(1000, "bye")
		_ = c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_, _, _ = c.ReadMessage() // wait for the peer's close echo
	}))
	defer srv.Close()

	d := &Dialer{HandshakeTimeout: 5 * time.Second, Logger: zaptest.NewLogger(t)}
	conn, err := d.DialContext(context.Background(), wsURL(srv))
	require.NoError(t, err)

	var hello map[string]any
	mustRecv(t, conn, &hello)
	assert.Equal(t, float64(10), hello["op"])

	var ack map[string]any
	mustRecv(t, conn, &ack)
	assert.Equal(t, float64(11), ack["op"])

	require.NoError(t, conn.SendJSON(context.Background(), map[string]any{"op": 1, "d": 7}))

	var echo map[string]any
	mustRecv(t, conn, &echo)
	assert.Equal(t, float64(1), echo["op"])
	assert.Equal(t, float64(7), echo["d"])

	// The close status eventually surfaces as a terminal error.
	var lastErr error
	for i := 0; i < 10; i++ {
		_, lastErr = conn.RecvJSON(context.Background(), new(any))
		if lastErr != nil {
			break
		}
	}
	var ce *ClosedError
	require.ErrorAs(t, lastErr, &ce)
	assert.Equal(t, 1000, ce.Signal.Code)
	assert.Equal(t, "bye", ce.Signal.Reason)
}

func TestDialContextPeerDropsConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		// Tear down TCP without any close handshake.
		_ = c.NetConn().Close()
	}))
	defer srv.Close()

	d := &Dialer{}
	conn, err := d.DialContext(context.Background(), wsURL(srv))
	require.NoError(t, err)
	defer conn.Close(StatusNormalClosure, "test")

	var lastErr error
	for i := 0; i < 10 && lastErr == nil; i++ {
		_, lastErr = conn.RecvJSON(context.Background(), new(any))
	}
	require.Error(t, lastErr)

	// A vanished peer is a transport failure, not a remote close.
	var ce *ClosedError
	assert.False(t, errors.As(lastErr, &ce))
}

func TestDialContextHandshakeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no upgrade here", http.StatusNotFound)
	}))
	defer srv.Close()

	d := &Dialer{}
	conn, err := d.DialContext(context.Background(), wsURL(srv))
	require.Error(t, err)
	assert.Nil(t, conn)
	assert.ErrorContains(t, err, "status 404")
}

func TestProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		// The probe closes right away; swallow the close frame.
		_, _, _ = c.ReadMessage()
		_ = c.Close()
	}))
	defer srv.Close()

	d := &Dialer{}
	rtt, err := d.Probe(context.Background(), wsURL(srv))
	require.NoError(t, err)
	assert.Greater(t, rtt, time.Duration(0))
}
