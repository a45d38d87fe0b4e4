package uuidx

import (
	"strings"

	"github.com/google/uuid"
)

// New returns a time-ordered (version 7) UUID. It panics when the random source fails.
func New() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewString returns New() formatted as a string.
func NewString() string {
	return New().String()
}

// OrNew returns id when it is non-blank and a fresh id otherwise.
func OrNew(id string) string {
	if strings.TrimSpace(id) != "" {
		return id
	}
	return NewString()
}
