package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownBackend is returned by Open for an unrecognised backend name.
var ErrUnknownBackend = errors.New("unknown store backend")

// Backend selects and configures the key-value store behind the catalogue.
type Backend struct {
	Kind        string
	BadgerDir   string
	RedisURL    string
	DatabaseURL string
	// MemoryQuota caps the memory backend, in bytes. Zero is unlimited.
	MemoryQuota int
}

// Open connects the configured backend. The returned func releases it.
func Open(ctx context.Context, b Backend) (KV, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(strings.TrimSpace(b.Kind)) {
	case "", "memory":
		return NewMemoryKV(b.MemoryQuota), noop, nil
	case "badger":
		kv, err := OpenBadger(b.BadgerDir)
		if err != nil {
			return nil, nil, err
		}
		return kv, kv.Close, nil
	case "redis":
		kv, err := NewRedisKV(b.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return kv, kv.Close, nil
	case "postgres":
		kv, db, err := OpenPostgresKV(ctx, b.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return kv, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, b.Kind)
	}
}
