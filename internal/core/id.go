package core

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"
)

// NewID returns an opaque identifier that sorts by generation time:
// a base-36 unix-millisecond prefix followed by a random suffix.
func NewID() string {
	prefix := strconv.FormatInt(time.Now().UnixMilli(), 36)
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		// Fallback keeps IDs unique enough within a single process.
		return prefix + strconv.FormatInt(time.Now().UnixNano()%1e9, 36)
	}
	return prefix + hex.EncodeToString(suffix)
}
