// Package id provides ID generation for the engine.
//
// Spaces carry a stable UUID that survives group recreation and
// serialization round-trips; request-scoped identifiers use ULIDs so
// logs sort by time.
package id

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewSpaceUUID generates the stable identity for a new space.
func NewSpaceUUID() string {
	return uuid.New().String()
}

// IsSpaceUUID reports whether s parses as a space UUID.
func IsSpaceUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewRequestID generates a lexicographically sortable request ID.
func NewRequestID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return "req_" + ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
