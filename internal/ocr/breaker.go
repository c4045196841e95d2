package ocr

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrOpticalUnavailable is returned while the breaker is open.
var ErrOpticalUnavailable = errors.New("ocr: optical provider unavailable, breaker open")

// BreakerState is the state of a Breaker.
type BreakerState int

const (
	// BreakerClosed passes every call through.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects calls until the cooldown elapses.
	BreakerOpen
	// BreakerHalfOpen lets one probe through.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig controls when a Breaker opens and for how long.
type BreakerConfig struct {
	// Failures is the number of consecutive failures that opens the breaker.
	Failures int
	// Cooldown is how long the breaker stays open before a probe.
	Cooldown time.Duration
}

// Breaker wraps an OpticalExtractor so that a provider that keeps failing
// is skipped for the rest of a run instead of timing out on every document.
// Context cancellation does not count as a failure.
type Breaker struct {
	next OpticalExtractor
	cfg  BreakerConfig

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time

	now func() time.Time
}

// NewBreaker wraps next. Non-positive settings default to 3 failures and a
// five minute cooldown.
func NewBreaker(next OpticalExtractor, cfg BreakerConfig) *Breaker {
	if cfg.Failures <= 0 {
		cfg.Failures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	return &Breaker{next: next, cfg: cfg, now: time.Now}
}

// OCR implements OpticalExtractor.
func (b *Breaker) OCR(ctx context.Context, content []byte, pages []int) (string, error) {
	if !b.allow() {
		return "", ErrOpticalUnavailable
	}
	text, err := b.next.OCR(ctx, content, pages)
	b.record(err)
	return text, err
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != BreakerOpen {
		return true
	}
	if b.now().Sub(b.openedAt) < b.cfg.Cooldown {
		return false
	}
	b.state = BreakerHalfOpen
	return true
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil || errors.Is(err, context.Canceled) {
		if b.state == BreakerHalfOpen {
			zap.L().Info("ocr: optical provider recovered")
		}
		b.state = BreakerClosed
		b.failures = 0
		return
	}

	b.failures++
	if b.state == BreakerHalfOpen || b.failures >= b.cfg.Failures {
		if b.state != BreakerOpen {
			zap.L().Warn("ocr: optical provider failing, pausing recognition",
				zap.Int("failures", b.failures),
				zap.Duration("cooldown", b.cfg.Cooldown),
			)
		}
		b.state = BreakerOpen
		b.openedAt = b.now()
	}
}
