// Package retry provides a retry mechanism for LLM calls with
// exponential backoff.
package retry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aatumaykin/cronbot/internal/logger"
)

const (
	defaultMaxAttempts  = 3
	defaultInitialDelay = 1 * time.Second
	defaultMaxDelay     = 10 * time.Second
)

// Config represents retry configuration. Zero values fall back to the
// package defaults.
type Config struct {
	MaxAttempts    int            // Maximum number of attempts (default: 3)
	InitialBackoff time.Duration  // Initial backoff duration (default: 1s)
	MaxBackoff     time.Duration  // Maximum backoff duration (default: 10s)
	Logger         *logger.Logger // Optional; attempts are logged through it
}

// Do executes fn until it succeeds, the error is not retryable, the
// attempts are exhausted or the context ends. Backoff between attempts
// grows exponentially from InitialBackoff up to MaxBackoff.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInitialDelay
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxDelay
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		backoff := calculateBackoff(attempt, cfg.InitialBackoff, cfg.MaxBackoff)
		log.Warn("Retryable call failed, backing off",
			logger.Field{Key: "attempt", Value: attempt + 1},
			logger.Field{Key: "max_attempts", Value: cfg.MaxAttempts},
			logger.Field{Key: "backoff", Value: backoff.String()},
			logger.Field{Key: "error", Value: err.Error()})

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", cfg.MaxAttempts, lastErr)
}

// nonRetryablePatterns match failures that repeating cannot fix.
var nonRetryablePatterns = []string{
	"400", // Bad Request
	"401", // Unauthorized
	"403", // Forbidden
	"404", // Not Found
	"context canceled",
}

// retryablePatterns match transient failures worth another attempt.
var retryablePatterns = []string{
	"deadline exceeded",
	"timeout",
	"timed out",
	"connection refused",
	"connection reset",
	"temporary",
	"eof",
	"429",
	"too many requests",
	"rate limit",
	"500",
	"502",
	"503",
	"504",
	"529",
	"overloaded",
	"internal server error",
	"bad gateway",
	"service unavailable",
}

// IsRetryable reports whether the error looks transient. Authentication,
// client-side and cancellation errors are never retried; unknown errors
// are not retried either.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	msg := strings.ToLower(err.Error())

	for _, pattern := range nonRetryablePatterns {
		if strings.Contains(msg, pattern) {
			return false
		}
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// calculateBackoff returns 2^attempt * initial, capped at max.
func calculateBackoff(attempt int, initial, max time.Duration) time.Duration {
	backoff := time.Duration(1<<uint(attempt)) * initial
	if backoff > max {
		return max
	}
	return backoff
}
