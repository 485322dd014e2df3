package auth

import (
	"sync"
	"time"
)

// ThrottleConfig configures a LoginThrottle. Zero fields take the defaults
// of DefaultThrottleConfig.
type ThrottleConfig struct {
	MaxFailures   int           // failures inside Window that trigger a lockout
	Window        time.Duration // how far back failures are counted
	Lockout       time.Duration // how long a locked-out account stays blocked
	SweepInterval time.Duration // minimum gap between sweeps of idle entries
}

// DefaultThrottleConfig returns the production limits.
func DefaultThrottleConfig() ThrottleConfig {
	return ThrottleConfig{
		MaxFailures:   5,
		Window:        15 * time.Minute,
		Lockout:       30 * time.Minute,
		SweepInterval: 5 * time.Minute,
	}
}

// throttleKey identifies one client address trying one account. account is
// already canonical; the throttle never rewrites it.
type throttleKey struct {
	ip      string
	account string
}

// failureLog holds the failure times still inside the window, oldest first.
type failureLog struct {
	failures    []time.Time
	lockedUntil time.Time
}

// prune drops failures older than the window start.
func (l *failureLog) prune(windowStart time.Time) {
	i := 0
	for i < len(l.failures) && !l.failures[i].After(windowStart) {
		i++
	}
	l.failures = l.failures[i:]
}

func (l *failureLog) locked(now time.Time) (bool, time.Duration) {
	if now.Before(l.lockedUntil) {
		return true, l.lockedUntil.Sub(now)
	}
	return false, 0
}

func (l *failureLog) idle(now, windowStart time.Time) bool {
	l.prune(windowStart)
	return len(l.failures) == 0 && !now.Before(l.lockedUntil)
}

// LoginThrottle blocks an (ip, account) pair for Lockout once it has
// MaxFailures failed logins inside a sliding Window. Idle entries are swept
// while failures are recorded, so there is no background goroutine.
type LoginThrottle struct {
	cfg ThrottleConfig

	mu        sync.Mutex
	logs      map[throttleKey]*failureLog
	lastSweep time.Time
	now       func() time.Time
}

// NewLoginThrottle creates a throttle.
func NewLoginThrottle(cfg ThrottleConfig) *LoginThrottle {
	def := DefaultThrottleConfig()
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = def.MaxFailures
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.Lockout <= 0 {
		cfg.Lockout = def.Lockout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	return &LoginThrottle{
		cfg:  cfg,
		logs: make(map[throttleKey]*failureLog),
		now:  time.Now,
	}
}

// Allow reports whether a login for account from ip may be checked. When it
// may not, retryAfter is the time left on the lockout.
func (t *LoginThrottle) Allow(ip, account string) (allowed bool, retryAfter time.Duration) {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.logs[throttleKey{ip, account}]
	if !ok {
		return true, 0
	}
	if locked, left := l.locked(now); locked {
		return false, left
	}
	return true, 0
}

// RecordFailure logs a failed login. It reports whether this failure started
// a lockout and for how long.
func (t *LoginThrottle) RecordFailure(ip, account string) (lockedOut bool, lockout time.Duration) {
	now := t.now()
	windowStart := now.Add(-t.cfg.Window)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.sweepLocked(now, windowStart)

	key := throttleKey{ip, account}
	l, ok := t.logs[key]
	if !ok {
		l = &failureLog{}
		t.logs[key] = l
	}
	l.prune(windowStart)
	l.failures = append(l.failures, now)
	if len(l.failures) < t.cfg.MaxFailures {
		return false, 0
	}

	// The lockout starts a fresh window once it ends.
	l.failures = l.failures[:0]
	l.lockedUntil = now.Add(t.cfg.Lockout)
	return true, t.cfg.Lockout
}

// RecordSuccess forgets the pair after a successful login.
func (t *LoginThrottle) RecordSuccess(ip, account string) {
	t.mu.Lock()
	delete(t.logs, throttleKey{ip, account})
	t.mu.Unlock()
}

// sweepLocked drops idle entries at most once per SweepInterval.
// Callers hold t.mu.
func (t *LoginThrottle) sweepLocked(now, windowStart time.Time) {
	if now.Sub(t.lastSweep) < t.cfg.SweepInterval {
		return
	}
	t.lastSweep = now
	for key, l := range t.logs {
		if l.idle(now, windowStart) {
			delete(t.logs, key)
		}
	}
}
