package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fastConfig keeps test backoffs in the microsecond range.
func fastConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: time.Microsecond,
		MaxBackoff:     10 * time.Microsecond,
	}
}

func TestIsRetryable_TimeoutErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "context deadline exceeded",
			err:  errors.New("context deadline exceeded"),
			want: true,
		},
		{
			name: "request timeout",
			err:  errors.New("request timeout"),
			want: true,
		},
		{
			name: "mixed case timeout",
			err:  errors.New("Connection Timeout"),
			want: true,
		},
		{
			name: "timed out wording",
			err:  errors.New("dial tcp: i/o timed out"),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsRetryable_ServerAndRateLimitErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "429 status", err: errors.New("unexpected status 429"), want: true},
		{name: "rate limit wording", err: errors.New("rate limit exceeded"), want: true},
		{name: "too many requests", err: errors.New("Too Many Requests"), want: true},
		{name: "500 status", err: errors.New("server returned 500"), want: true},
		{name: "bad gateway", err: errors.New("502 Bad Gateway"), want: true},
		{name: "service unavailable", err: errors.New("Service Unavailable"), want: true},
		{name: "anthropic overloaded", err: errors.New("overloaded_error"), want: true},
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), want: true},
		{name: "unexpected eof", err: errors.New("unexpected EOF"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsRetryable_NonRetryableErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "unauthorized", err: errors.New("status 401 Unauthorized"), want: false},
		{name: "forbidden", err: errors.New("status 403 Forbidden"), want: false},
		{name: "bad request", err: errors.New("status 400: invalid model"), want: false},
		{name: "not found", err: errors.New("status 404: no such model"), want: false},
		{name: "context canceled", err: errors.New("context canceled"), want: false},
		{name: "unknown error", err: errors.New("something odd happened"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return nil
	})

	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_SuccessAfterRetry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_AllAttemptsFail(t *testing.T) {
	cause := errors.New("request timeout")
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return cause
	})

	if err == nil {
		t.Fatal("Do() expected error")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Do() error %v does not wrap %v", err, cause)
	}
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	cause := errors.New("status 401 Unauthorized")
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return cause
	})

	if !errors.Is(err, cause) {
		t.Errorf("Do() error = %v, want %v", err, cause)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := Config{MaxAttempts: 5, InitialBackoff: time.Hour, MaxBackoff: time.Hour}
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, cfg, func() error {
			calls++
			return errors.New("request timeout")
		})
	}()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Do() error = %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Do() did not return after context cancellation")
	}

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		name    string
		attempt int
		initial time.Duration
		max     time.Duration
		want    time.Duration
	}{
		{name: "first attempt", attempt: 0, initial: time.Second, max: time.Minute, want: time.Second},
		{name: "second attempt doubles", attempt: 1, initial: time.Second, max: time.Minute, want: 2 * time.Second},
		{name: "third attempt quadruples", attempt: 2, initial: time.Second, max: time.Minute, want: 4 * time.Second},
		{name: "capped at max", attempt: 10, initial: time.Second, max: 10 * time.Second, want: 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calculateBackoff(tt.attempt, tt.initial, tt.max); got != tt.want {
				t.Errorf("calculateBackoff(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestDo_DefaultsApplied(t *testing.T) {
	// Zero config still runs fn and stops on a non-retryable error
	// without waiting through any backoff.
	calls := 0
	start := time.Now()
	err := Do(context.Background(), Config{}, func() error {
		calls++
		return errors.New("status 400: bad request")
	})

	if err == nil {
		t.Fatal("Do() expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Do() took %v, expected immediate return", elapsed)
	}
}
