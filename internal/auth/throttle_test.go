package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestThrottle(t *testing.T, maxFailures int) (*LoginThrottle, *time.Time) {
	t.Helper()
	th := NewLoginThrottle(ThrottleConfig{
		MaxFailures:   maxFailures,
		Window:        time.Minute,
		Lockout:       10 * time.Minute,
		SweepInterval: time.Hour,
	})
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	th.now = func() time.Time { return clock }
	return th, &clock
}

func TestLoginThrottle_LocksOutAtLimit(t *testing.T) {
	th, _ := newTestThrottle(t, 3)

	for i := 0; i < 2; i++ {
		allowed, _ := th.Allow("1.2.3.4", "alice")
		assert.True(t, allowed, "attempt %d should be allowed", i+1)
		locked, _ := th.RecordFailure("1.2.3.4", "alice")
		assert.False(t, locked)
	}

	locked, lockout := th.RecordFailure("1.2.3.4", "alice")
	assert.True(t, locked)
	assert.Equal(t, 10*time.Minute, lockout)

	allowed, retry := th.Allow("1.2.3.4", "alice")
	assert.False(t, allowed)
	assert.Equal(t, 10*time.Minute, retry)
}

func TestLoginThrottle_OldFailuresSlideOutOfWindow(t *testing.T) {
	th, clock := newTestThrottle(t, 3)

	th.RecordFailure("1.2.3.4", "alice")
	*clock = clock.Add(40 * time.Second)
	th.RecordFailure("1.2.3.4", "alice")

	// The first failure is now older than the window.
	*clock = clock.Add(30 * time.Second)
	locked, _ := th.RecordFailure("1.2.3.4", "alice")
	assert.False(t, locked)

	locked, _ = th.RecordFailure("1.2.3.4", "alice")
	assert.True(t, locked)
}

func TestLoginThrottle_RetryAfterCountsDown(t *testing.T) {
	th, clock := newTestThrottle(t, 1)

	th.RecordFailure("1.2.3.4", "alice")
	*clock = clock.Add(4 * time.Minute)

	allowed, retry := th.Allow("1.2.3.4", "alice")
	assert.False(t, allowed)
	assert.Equal(t, 6*time.Minute, retry)

	*clock = clock.Add(6 * time.Minute)
	allowed, _ = th.Allow("1.2.3.4", "alice")
	assert.True(t, allowed)

	locked, _ := th.RecordFailure("1.2.3.4", "alice")
	assert.True(t, locked, "a lockout that ended starts a fresh window")
}

func TestLoginThrottle_SuccessForgetsFailures(t *testing.T) {
	th, _ := newTestThrottle(t, 2)

	th.RecordFailure("1.2.3.4", "alice")
	th.RecordSuccess("1.2.3.4", "alice")

	locked, _ := th.RecordFailure("1.2.3.4", "alice")
	assert.False(t, locked)
}

func TestLoginThrottle_KeysArePairs(t *testing.T) {
	th, _ := newTestThrottle(t, 1)

	th.RecordFailure("1.2.3.4", "alice")

	allowed, _ := th.Allow("1.2.3.4", "bob")
	assert.True(t, allowed)
	allowed, _ = th.Allow("5.6.7.8", "alice")
	assert.True(t, allowed)
	allowed, _ = th.Allow("1.2.3.4:alice", "")
	assert.True(t, allowed)
	allowed, _ = th.Allow("1.2.3.4", "Alice")
	assert.True(t, allowed, "accounts arrive canonical and are compared as given")
}

func TestLoginThrottle_SweepDropsIdleEntries(t *testing.T) {
	th, clock := newTestThrottle(t, 1)

	th.RecordFailure("1.2.3.4", "alice")
	th.RecordFailure("1.2.3.4", "bob")
	require.Len(t, th.logs, 2)

	*clock = clock.Add(2 * time.Hour)
	th.RecordFailure("9.9.9.9", "carol")

	assert.Len(t, th.logs, 1)
	_, ok := th.logs[throttleKey{"9.9.9.9", "carol"}]
	assert.True(t, ok)
}

func TestNewLoginThrottle_Defaults(t *testing.T) {
	th := NewLoginThrottle(ThrottleConfig{})
	assert.Equal(t, DefaultThrottleConfig(), th.cfg)
}
