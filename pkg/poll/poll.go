package poll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidBaseDelay = errors.New("BaseDelay must be greater than 0")
	ErrInvalidTimeout   = errors.New("timeout must be greater than 0")
	ErrTimeout          = errors.New("operation timed out")
)

// Config defines parameters for backoff polling.
type Config struct {
	// Initial delay before first retry
	BaseDelay time.Duration
	// Multiplier for delay on each retry
	Factor float64
	// Optional maximum delay between retries
	MaxDelay time.Duration
}

// Interval returns a Config polling at a fixed interval. Device liveness
// checks (port reachability, critical services) poll this way.
func Interval(d time.Duration) *Config {
	return &Config{BaseDelay: d, Factor: 1.0}
}

// BackoffWithContext repeatedly calls the operation until timeout is reached,
// it returns true, an error, or the context is canceled. It waits between
// attempts starting from Config.BaseDelay and increasing by Config.Factor,
// capped by Config.MaxDelay if set. When the timeout elapses ErrTimeout is
// returned so callers can distinguish liveness failures from hard errors.
func BackoffWithContext(ctx context.Context, cfg *Config, timeout time.Duration, opFn func(context.Context) (bool, error)) error {
	if timeout <= 0 {
		return ErrInvalidTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	delay := cfg.BaseDelay
	if delay <= 0 {
		return fmt.Errorf("invalid Config: %w", ErrInvalidBaseDelay)
	}

	for {
		done, err := opFn(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-time.After(delay):
			next := time.Duration(float64(delay) * cfg.Factor)
			if cfg.MaxDelay > 0 && next > cfg.MaxDelay {
				next = cfg.MaxDelay
			}
			delay = next
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrTimeout
			}
			return ctx.Err()
		}
	}
}
