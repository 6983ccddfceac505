package worker

import (
	"math"
	"time"
)

// Defaults sized for Calendar API hiccups: five attempts with a backoff
// starting at two seconds and capped at a minute, so a rate-limited or
// briefly unreachable calendar drains the queue within a few minutes.
const (
	defaultMaxRetries    = 5
	defaultInitialDelay  = 2 * time.Second
	defaultMaxDelay      = time.Minute
	defaultBackoffFactor = 2.0
)

// RetryPolicy schedules repeat attempts for failed calendar sync tasks.
// The zero value is usable; unset fields take the defaults above.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// Exhausted reports whether the given attempt (1-based) is past the retry
// budget, in which case the task is dead-lettered instead of rescheduled.
func (r RetryPolicy) Exhausted(attempt int) bool {
	maxRetries := r.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return attempt >= maxRetries
}

// NextDelay returns the wait before the given attempt (1-based). Growth is
// exponential, clamped at MaxDelay so a prolonged calendar outage keeps
// tasks inside the polling horizon instead of pushing them out indefinitely.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	initial := r.InitialDelay
	if initial <= 0 {
		initial = defaultInitialDelay
	}
	factor := r.BackoffFactor
	if factor <= 0 {
		factor = defaultBackoffFactor
	}
	maxDelay := r.MaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxDelay
	}

	d := time.Duration(float64(initial) * math.Pow(factor, float64(attempt-1)))
	if d > maxDelay || d <= 0 {
		d = maxDelay
	}
	return d
}
