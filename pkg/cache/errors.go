package cache

import (
	"context"
	"errors"
	"time"

	memerrors "github.com/matzehuels/memtower/pkg/errors"
)

// ErrUnsupportedURL is returned by [Open] for an unknown URL scheme.
var ErrUnsupportedURL = errors.New("unsupported cache URL")

// connError classifies a failure to reach a backend. A context deadline
// becomes TIMEOUT, anything else NETWORK_ERROR.
func connError(backend string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return memerrors.Wrap(memerrors.ErrCodeTimeout, err, "connect %s: timed out", backend)
	}
	return memerrors.Wrap(memerrors.ErrCodeNetwork, err, "connect %s", backend)
}

// RetryableError marks a transient backend failure.
type RetryableError struct{ Err error }

// Retryable wraps err as a [RetryableError]. Retryable(nil) is nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err wraps a [RetryableError].
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// retryDelay is the first backoff delay. It doubles after each attempt.
var retryDelay = 100 * time.Millisecond

// RetryWithBackoff calls fn up to three times. Only errors wrapped with
// [Retryable] are retried; the last error is returned unwrapped.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	const attempts = 3
	delay := retryDelay
	var lastErr error

	for i := 0; i < attempts; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsRetryable(err) {
			return err
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	var re *RetryableError
	if errors.As(lastErr, &re) {
		return re.Err
	}
	return lastErr
}
