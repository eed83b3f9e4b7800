package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"podwatch/internal/services"
)

type retryPolicy struct {
	attempts int
	base     time.Duration
	limit    time.Duration
	sleeper  func(time.Duration)
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{attempts: 5, base: time.Second, limit: 30 * time.Second}
}

// do calls send until it succeeds, fails permanently, or runs out of attempts.
func (p retryPolicy) do(ctx context.Context, send func() (string, error)) (string, error) {
	attempts := max(p.attempts, 1)
	for attempt := 1; ; attempt++ {
		content, err := send()
		if err == nil {
			return content, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if attempt >= attempts || !retryable(err) {
			if attempt > 1 {
				return "", fmt.Errorf("gave up after %d attempts: %w", attempt, err)
			}
			return "", err
		}
		if waitErr := p.wait(ctx, p.delay(attempt, err)); waitErr != nil {
			return "", waitErr
		}
	}
}

// delay honours Retry-After, otherwise doubles from base per attempt.
func (p retryPolicy) delay(attempt int, err error) time.Duration {
	var d time.Duration
	var statusErr *statusError
	if errors.As(err, &statusErr) && statusErr.retryAfter > 0 {
		d = statusErr.retryAfter
	} else if p.base > 0 {
		d = p.base << min(attempt-1, 16)
	}
	if p.limit > 0 && d > p.limit {
		d = p.limit
	}
	return d
}

func (p retryPolicy) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if p.sleeper != nil {
		p.sleeper(d)
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryable reports whether a single attempt's failure is transient. The
// caller has already ruled out an expired parent context, so a deadline error
// here is the per-request client timeout.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var emptyErr *emptyReplyError
	if errors.As(err, &emptyErr) {
		return true
	}
	var statusErr *statusError
	if errors.As(err, &statusErr) {
		return statusErr.code == http.StatusRequestTimeout ||
			statusErr.code == http.StatusTooManyRequests ||
			statusErr.code >= http.StatusInternalServerError
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// tagFailure maps a final error onto the pipeline's failure categories.
// Cancellation passes through untagged.
func tagFailure(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var statusErr *statusError
	if errors.As(err, &statusErr) {
		switch statusErr.code {
		case http.StatusTooManyRequests:
			return services.Wrap(services.ErrRateLimited, "analyze", op, "rate limited by model provider", err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return services.Wrap(services.ErrConfiguration, "analyze", op, "model provider rejected credentials", err)
		case http.StatusBadRequest, http.StatusNotFound:
			return services.Wrap(services.ErrConfiguration, "analyze", op, "model provider rejected request", err)
		}
	}
	return services.Wrap(services.ErrServiceUnavailable, "analyze", op, "model provider unavailable", err)
}

func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return max(time.Duration(seconds)*time.Second, 0)
	}
	if when, err := http.ParseTime(value); err == nil {
		return max(time.Until(when), 0)
	}
	return 0
}
