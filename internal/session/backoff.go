package session

import (
	"math/rand"
	"sync"
	"time"
)

var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

func randInt63n(n int64) int64 {
	if n <= 0 {
		return 0
	}
	rngMu.Lock()
	defer rngMu.Unlock()
	return rng.Int63n(n)
}

// applyJitter spreads d uniformly across [d-jitter, d+jitter], never below
// zero.
func applyJitter(d, jitter time.Duration) time.Duration {
	if jitter <= 0 {
		return d
	}
	span := int64(2*jitter) + 1
	j := time.Duration(randInt63n(span)) - jitter
	if d+j < 0 {
		return d
	}
	return d + j
}

// firstBeatDelay picks the initial heartbeat offset somewhere inside one
// interval, so restarted fleets do not beat in lockstep.
func firstBeatDelay(interval time.Duration) time.Duration {
	if interval <= 0 {
		return 0
	}
	return time.Duration(randInt63n(int64(interval)))
}

// fallbackDelay paces retries when the schedule has no usable Min.
const fallbackDelay = time.Second

// Backoff hands out reconnect delays: multiplicative growth from Min up to
// Max, each delay jittered. A zero Min is treated as one second. Not safe
// for concurrent use.
type Backoff struct {
	Min    time.Duration
	Max    time.Duration
	Factor float64
	Jitter time.Duration

	next time.Duration
}

// Next returns the delay to wait before the following attempt and advances
// the schedule.
func (b *Backoff) Next() time.Duration {
	floor := b.Min
	if floor <= 0 {
		floor = fallbackDelay
	}
	if b.next <= 0 {
		b.next = floor
	}
	d := applyJitter(b.next, b.Jitter)

	grown := time.Duration(float64(b.next) * b.Factor)
	if grown > b.Max {
		grown = b.Max
	}
	if grown <= 0 {
		grown = floor
	}
	b.next = grown
	return d
}

// Reset starts the schedule over.
func (b *Backoff) Reset() { b.next = 0 }
