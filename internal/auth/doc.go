// Package auth holds the account security primitives of the service.
//
// Passwords are hashed with bcrypt by Hasher, which also enforces the length
// limits (at least MinPasswordLength runes, at most 72 bytes):
//
//	h := auth.NewHasher(cfg.Auth.BcryptCost)
//	hash, err := h.Hash(password)
//	err = h.Check(password, hash) // ErrInvalidPassword on mismatch
//
// LoginThrottle keeps a sliding log of failed logins per client IP and
// account and locks the pair out once the log reaches the limit. Accounts are
// passed in canonical form; the HTTP layer uses users.NormalizeUsername so the
// lockout follows the stored account:
//
//	th := auth.NewLoginThrottle(auth.DefaultThrottleConfig())
//	if ok, retry := th.Allow(ip, account); !ok { ... }
//	th.RecordFailure(ip, account)
//
// SecurityHeadersMiddleware and StrictTransportSecurityMiddleware are gin
// middleware applied to every response.
package auth
