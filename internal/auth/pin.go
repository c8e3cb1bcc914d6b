// Package auth guards the delivery endpoint with a shared PIN.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidPIN      = errors.New("invalid PIN")
	ErrTooManyAttempts = errors.New("too many failed PIN attempts")
)

// PINVerifier checks a per-request PIN against one configured secret.
// The configured value may be a plain PIN or a bcrypt hash of it.
type PINVerifier struct {
	hash    []byte
	limiter *Limiter
}

// NewPINVerifier hashes pin once at startup. An empty pin rejects every request.
func NewPINVerifier(pin string, limiter *Limiter) (*PINVerifier, error) {
	v := &PINVerifier{limiter: limiter}
	pin = strings.TrimSpace(pin)
	switch {
	case pin == "":
	case strings.HasPrefix(pin, "$2"):
		if _, err := bcrypt.Cost([]byte(pin)); err != nil {
			return nil, fmt.Errorf("parse pin hash: %w", err)
		}
		v.hash = []byte(pin)
	default:
		hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash pin: %w", err)
		}
		v.hash = hash
	}
	return v, nil
}

// Configured reports whether a PIN was set.
func (v *PINVerifier) Configured() bool {
	return len(v.hash) > 0
}

// Verify checks pin for the given client (usually the remote address).
func (v *PINVerifier) Verify(client, pin string) error {
	if v.limiter != nil && v.limiter.Blocked(client) {
		return ErrTooManyAttempts
	}
	if len(v.hash) == 0 || bcrypt.CompareHashAndPassword(v.hash, []byte(pin)) != nil {
		if v.limiter != nil {
			v.limiter.Fail(client)
		}
		return ErrInvalidPIN
	}
	if v.limiter != nil {
		v.limiter.Reset(client)
	}
	return nil
}

// Limiter counts failures per client inside a sliding expiry window.
type Limiter struct {
	cache *cache.Cache
	max   int
}

// NewLimiter blocks a client after max failures until window passes without
// new entries. A non-positive max disables blocking.
func NewLimiter(max int, window time.Duration) *Limiter {
	return &Limiter{cache: cache.New(window, 2*window), max: max}
}

func (l *Limiter) Blocked(client string) bool {
	if l.max <= 0 {
		return false
	}
	n, ok := l.cache.Get(client)
	return ok && n.(int) >= l.max
}

// Fail records a failure and returns the running count.
func (l *Limiter) Fail(client string) int {
	if err := l.cache.Add(client, 1, cache.DefaultExpiration); err == nil {
		return 1
	}
	n, err := l.cache.IncrementInt(client, 1)
	if err != nil {
		l.cache.Set(client, 1, cache.DefaultExpiration)
		return 1
	}
	return n
}

func (l *Limiter) Reset(client string) {
	l.cache.Delete(client)
}
