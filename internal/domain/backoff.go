package domain

import (
	"log/slog"
	"time"

	m "groundskeeper.dev/pkg/groundskeeper/internal/model"
)

// maxCooldown caps the exponential backoff.
const maxCooldown = 240 * time.Minute

// Backoff is the per-operation circuit breaker. It wraps the persisted
// state object, which the caller loads at start and flushes at the end of a
// run; the state is passed in explicitly, never held as ambient global
// state.
type Backoff struct {
	state *m.BackoffState
	now   func() time.Time
}

// NewBackoff wraps a loaded state. now is injectable for tests; nil means
// time.Now.
func NewBackoff(state *m.BackoffState, now func() time.Time) *Backoff {
	if now == nil {
		now = time.Now
	}

	return &Backoff{state: state, now: now}
}

// Cooldown computes the wait after a given consecutive-failure count:
// min(2^(count-1), 240) minutes.
func Cooldown(failures int) time.Duration {
	if failures <= 0 {
		return 0
	}

	minutes := 1 << (failures - 1)

	cooldown := time.Duration(minutes) * time.Minute
	if cooldown > maxCooldown || minutes <= 0 {
		cooldown = maxCooldown
	}

	return cooldown
}

// Check reports whether a new attempt of the operation may proceed. When the
// cooldown is still running it returns the remaining wait; a deferral is
// cooperative scheduling, not an error.
func (b *Backoff) Check(operation string) (remaining time.Duration, allowed bool) {
	record, ok := b.state.FailedDeployments[operation]
	if !ok || record.Count == 0 {
		return 0, true
	}

	cooldown := Cooldown(record.Count)

	elapsed := b.now().Sub(record.LastFailure)
	if elapsed < cooldown {
		return cooldown - elapsed, false
	}

	return 0, true
}

// RecordFailure increments the consecutive-failure count and logs the
// attempt.
func (b *Backoff) RecordFailure(operation string) {
	record := b.state.FailedDeployments[operation]
	record.Count++
	record.LastFailure = b.now()
	b.state.FailedDeployments[operation] = record

	b.appendAttempt(operation, false)

	slog.Info("operation failure recorded",
		"operation", operation,
		"consecutiveFailures", record.Count,
		"cooldown", Cooldown(record.Count))
}

// RecordSuccess resets the consecutive-failure count unconditionally.
func (b *Backoff) RecordSuccess(operation string) {
	delete(b.state.FailedDeployments, operation)
	b.appendAttempt(operation, true)
}

func (b *Backoff) appendAttempt(operation string, success bool) {
	b.state.DeploymentAttempts[operation] = append(
		b.state.DeploymentAttempts[operation],
		m.AttemptRecord{Timestamp: b.now(), Success: success},
	)
}
