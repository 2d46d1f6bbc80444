package app

import "github.com/google/uuid"

// IDGenerator returns a fresh session id.
type IDGenerator func() string

// newSessionID generates a UUIDv4 string.
func newSessionID() string {
	return uuid.NewString()
}
