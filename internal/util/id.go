package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a random identifier, optionally prefixed.
func NewID(prefix string) string {
	id := uuid.NewString()
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}

// ShortID is a compact form used for request ids.
func ShortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
