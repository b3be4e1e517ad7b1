package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"discord-cli-ws/internal/gateway"
)

func TestRunner_RedialsUntilCanceled(t *testing.T) {
	var dials atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dials.Add(1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	sess := New(&gateway.Dialer{}, Config{URL: wsURL(srv), Token: "t"}, zaptest.NewLogger(t))
	r := NewRunner(sess, Backoff{
		Min:    50 * time.Millisecond,
		Max:    100 * time.Millisecond,
		Factor: 2,
	}, zaptest.NewLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 700*time.Millisecond)
	defer cancel()

	err := r.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, dials.Load(), int32(2))
}

func TestRunner_StopsImmediatelyOnCanceledContext(t *testing.T) {
	sess := New(&gateway.Dialer{}, Config{URL: "ws://127.0.0.1:1", Token: "t"}, nil)
	r := NewRunner(sess, Backoff{Min: time.Hour, Max: time.Hour, Factor: 1}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
