package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	m "groundskeeper.dev/pkg/groundskeeper/internal/model"
)

func TestCooldown(t *testing.T) {
	cases := []struct {
		failures int
		want     time.Duration
	}{
		{0, 0},
		{1, 1 * time.Minute},
		{2, 2 * time.Minute},
		{3, 4 * time.Minute},
		{4, 8 * time.Minute},
		{8, 128 * time.Minute},
		{9, 240 * time.Minute},
		{20, 240 * time.Minute},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Cooldown(tc.failures), "failures=%d", tc.failures)
	}
}

func TestBackoffCheck(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }

	b := NewBackoff(m.NewBackoffState(), now)

	t.Run("unknown operation allowed", func(t *testing.T) {
		remaining, allowed := b.Check("deploy-fix")
		assert.True(t, allowed)
		assert.Zero(t, remaining)
	})

	t.Run("three failures impose four minutes", func(t *testing.T) {
		b.RecordFailure("deploy-fix")
		b.RecordFailure("deploy-fix")
		b.RecordFailure("deploy-fix")

		remaining, allowed := b.Check("deploy-fix")
		assert.False(t, allowed)
		assert.Equal(t, 4*time.Minute, remaining)
	})

	t.Run("cooldown drains with the clock", func(t *testing.T) {
		clock = clock.Add(3 * time.Minute)

		remaining, allowed := b.Check("deploy-fix")
		assert.False(t, allowed)
		assert.Equal(t, time.Minute, remaining)

		clock = clock.Add(time.Minute)

		_, allowed = b.Check("deploy-fix")
		assert.True(t, allowed)
	})

	t.Run("success resets the counter", func(t *testing.T) {
		b.RecordSuccess("deploy-fix")
		b.RecordFailure("deploy-fix")

		remaining, allowed := b.Check("deploy-fix")
		assert.False(t, allowed)
		assert.Equal(t, time.Minute, remaining, "counter restarted at one")
	})

	t.Run("operations are independent", func(t *testing.T) {
		_, allowed := b.Check("update")
		assert.True(t, allowed)
	})
}

func TestBackoffAttemptHistory(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	state := m.NewBackoffState()
	b := NewBackoff(state, func() time.Time { return clock })

	b.RecordFailure("update")
	b.RecordSuccess("update")

	attempts := state.DeploymentAttempts["update"]
	require.Len(t, attempts, 2)
	assert.False(t, attempts[0].Success)
	assert.True(t, attempts[1].Success)
	assert.Equal(t, clock, attempts[0].Timestamp)

	_, tracked := state.FailedDeployments["update"]
	assert.False(t, tracked, "success removes the failure record")
}
