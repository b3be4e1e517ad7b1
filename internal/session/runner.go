package session

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// healthyUptime is how long a connection has to survive before the backoff
// schedule starts over.
const healthyUptime = time.Minute

// Runner keeps a session alive: every ending, the terminal close included,
// leads to a redial after a backoff delay.
type Runner struct {
	sess *Session
	bo   Backoff
	log  *zap.Logger
}

func NewRunner(sess *Session, bo Backoff, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{sess: sess, bo: bo, log: log}
}

// Run loops until the context ends and returns the context's error.
func (r *Runner) Run(ctx context.Context) error {
	for {
		started := time.Now()
		err := r.sess.Run(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Since(started) >= healthyUptime {
			r.bo.Reset()
		}

		reconnectsTotal.Inc()
		delay := r.bo.Next()
		r.log.Warn("gateway session ended, reconnecting",
			zap.Error(err),
			zap.Duration("delay", delay))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
