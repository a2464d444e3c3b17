// Package ratelimit paces calls against external services: a ticker-based
// Limiter for page fetches and a blocking Pacer for the fixed pauses between
// provider calls and keywords.
package ratelimit

import (
	"context"
	"math/rand/v2"
	"time"
)

// Limiter spaces operations at a fixed rate with optional jitter. It is safe
// for concurrent use by multiple goroutines.
type Limiter struct {
	ticker   *time.Ticker
	jitter   float64 // 0.0 to 1.0
	interval time.Duration
}

// NewLimiter creates a limiter allowing rps operations per second. Jitter is
// clamped to [0, 1]. If rps is <= 0, the limiter does not block.
func NewLimiter(rps float64, jitter float64) *Limiter {
	l := &Limiter{jitter: clamp(jitter)}
	if rps <= 0 {
		return l
	}
	l.interval = time.Duration(float64(time.Second) / rps)
	l.ticker = time.NewTicker(l.interval)
	return l
}

// Wait blocks until the next operation may run or ctx is canceled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.ticker == nil {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.ticker.C:
	}

	extra := stretch(l.interval, l.jitter) - l.interval
	if extra <= 0 {
		return nil
	}
	t := time.NewTimer(extra)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop releases the limiter's ticker.
func (l *Limiter) Stop() {
	if l != nil && l.ticker != nil {
		l.ticker.Stop()
	}
}

// Pacer inserts a fixed, blocking pause after an operation. Unlike Limiter it
// does not measure elapsed time: every Pause sleeps the full delay. A nil or
// zero-delay Pacer never blocks.
type Pacer struct {
	delay  time.Duration
	jitter float64
	sleep  func(time.Duration)
}

// NewPacer returns a Pacer pausing for delay, lengthened by up to jitter of
// it. A pause is never shorter than delay.
func NewPacer(delay time.Duration, jitter float64) *Pacer {
	return NewPacerWithSleep(delay, jitter, time.Sleep)
}

// NewPacerWithSleep is NewPacer with the blocking call replaced by sleep,
// for callers that need to observe or skip the pauses.
func NewPacerWithSleep(delay time.Duration, jitter float64, sleep func(time.Duration)) *Pacer {
	if delay < 0 {
		delay = 0
	}
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Pacer{delay: delay, jitter: clamp(jitter), sleep: sleep}
}

// Delay is the configured base pause.
func (p *Pacer) Delay() time.Duration {
	if p == nil {
		return 0
	}
	return p.delay
}

// Pause blocks the calling goroutine for the pacer's delay.
func (p *Pacer) Pause() {
	if p == nil || p.delay <= 0 {
		return
	}
	p.sleep(stretch(p.delay, p.jitter))
}

// stretch returns d lengthened uniformly by up to jitter*d.
func stretch(d time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return d
	}
	return d + time.Duration(float64(d)*jitter*rand.Float64())
}

func clamp(jitter float64) float64 {
	switch {
	case jitter < 0:
		return 0
	case jitter > 1:
		return 1
	}
	return jitter
}
