// Package resilience provides the retry policy used around outbound
// network calls: the Places API client and the FTP delivery of export
// files. The collection pipeline itself never retries; a search that
// fails after its final attempt simply yields zero candidates for that
// category and city.
package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Policy controls retry behavior with exponential backoff and jitter.
type Policy struct {
	Attempts       int           // total attempts including the first; default 3
	InitialBackoff time.Duration // delay before the first retry; default 2s
	MaxBackoff     time.Duration // backoff cap; default 30s
	Multiplier     float64       // backoff growth per attempt; default 2.0
	Jitter         float64       // +/- fraction of the delay; default 0.25
}

// DefaultPolicy matches the request settings the scrapers ran with.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:       3,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		Jitter:         0.25,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.Attempts <= 0 {
		p.Attempts = d.Attempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = d.InitialBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = d.MaxBackoff
	}
	if p.Multiplier <= 0 {
		p.Multiplier = d.Multiplier
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	return p
}

// Fetch runs fn until it succeeds, the attempts are exhausted, a
// non-transient error occurs, or ctx is cancelled. The last error is
// returned.
func Fetch[T any](ctx context.Context, p Policy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()

	var zero T
	var lastErr error
	for attempt := 0; attempt < p.Attempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !Transient(err) || attempt == p.Attempts-1 {
			return zero, lastErr
		}

		delay := p.backoff(attempt)
		zap.L().Warn("retrying fetch",
			zap.String("operation", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
	return zero, lastErr
}

func (p Policy) backoff(attempt int) time.Duration {
	delay := float64(p.InitialBackoff) * math.Pow(p.Multiplier, float64(attempt))
	delay = math.Min(delay, float64(p.MaxBackoff))
	if p.Jitter > 0 {
		delay += (rand.Float64()*2 - 1) * delay * p.Jitter
	}
	return time.Duration(math.Max(delay, 0))
}

// transientErr marks an error as retryable.
type transientErr struct{ err error }

func (e *transientErr) Error() string { return e.err.Error() }
func (e *transientErr) Unwrap() error { return e.err }

// MarkTransient flags an error as safe to retry, e.g. an HTTP 429 or
// 5xx from a data source.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &transientErr{err: err}
}

// RetryableStatus reports whether an HTTP status is worth retrying.
func RetryableStatus(code int) bool {
	return code == 408 || code == 429 || code >= 500
}

// Transient reports whether an error is retryable: explicitly marked,
// a network timeout, or a recognizable connection-level failure.
func Transient(err error) bool {
	if err == nil {
		return false
	}

	var te *transientErr
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset",
		"connection refused",
		"broken pipe",
		"no such host",
		"i/o timeout",
		"tls handshake timeout",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
