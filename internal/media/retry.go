package media

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// CancelToken lets the initiator abandon an in-flight retrieval. A retry
// whose token is cancelled performs no observable side effect: no store
// write, no upload result applied.
type CancelToken struct {
	cancelled atomic.Bool
}

func NewCancelToken() *CancelToken {
	return &CancelToken{}
}

func (t *CancelToken) Cancel() {
	t.cancelled.Store(true)
}

func (t *CancelToken) Cancelled() bool {
	if t == nil {
		return false
	}
	return t.cancelled.Load()
}

// ErrCancelled reports an abandoned retrieval; nothing was written.
var ErrCancelled = errors.New("media retrieval cancelled")

// TerminalError marks retry exhaustion, distinct from a transient in-flight
// failure. The caller may re-trigger manually, restarting at attempt 1.
type TerminalError struct {
	Attempts int
	Err      error
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("media retrieval failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TerminalError) Unwrap() error {
	return e.Err
}

// retrySchedule is the fixed delay between attempts; overflow attempts reuse
// the last entry.
var retrySchedule = [...]time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}

const maxAttempts = 3

func delayForAttempt(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	index := attempt - 1
	if index >= len(retrySchedule) {
		index = len(retrySchedule) - 1
	}
	return retrySchedule[index]
}
