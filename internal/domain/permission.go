package domain

import (
	"fmt"
	"log/slog"

	"groundskeeper.dev/pkg/groundskeeper/internal/adapter"
)

// ErrYield is returned when another automation already holds the project
// lock. Callers exit cleanly with zero mutations; yielding never records a
// backoff failure.
type ErrYield struct {
	Holder string
}

func (e *ErrYield) Error() string {
	return fmt.Sprintf("yielding to competing automation held by %s", e.Holder)
}

// PermissionGovernor gates mutating runs behind the cooperative project
// lock.
type PermissionGovernor struct {
	lockDir    string
	identifier string

	lock *adapter.Flock
}

func NewPermissionGovernor(lockDir, identifier string) *PermissionGovernor {
	return &PermissionGovernor{lockDir: lockDir, identifier: identifier}
}

// Acquire takes the project lock or returns ErrYield when a competitor
// holds it.
func (g *PermissionGovernor) Acquire() error {
	lock, holder, err := adapter.TryAcquireLock(g.lockDir, g.identifier)
	if err != nil {
		return fmt.Errorf("acquire project lock: %w", err)
	}

	if holder != nil {
		slog.Info("project lock held elsewhere, yielding", "holder", holder.Holder)

		return &ErrYield{Holder: holder.Holder}
	}

	g.lock = lock

	return nil
}

// Release drops the lock. Safe to call when Acquire yielded or failed.
func (g *PermissionGovernor) Release() {
	g.lock.Release()
	g.lock = nil
}
