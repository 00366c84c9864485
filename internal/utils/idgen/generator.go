package idgen

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// New returns a lower-case prefix_ULID identifier. IDs from one process sort by creation time.
func New(prefix string) string {
	entropyMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	entropyMu.Unlock()
	return prefix + "_" + strings.ToLower(id.String())
}

// IsValid reports whether value is a prefix_ULID identifier.
func IsValid(prefix, value string) bool {
	_, err := Parse(prefix, value)
	return err == nil
}

// Parse strips the prefix and returns the ULID.
func Parse(prefix, value string) (ulid.ULID, error) {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, prefix+"_") {
		return ulid.ULID{}, ulid.ErrDataSize
	}
	return ulid.ParseStrict(strings.ToUpper(strings.TrimPrefix(value, prefix+"_")))
}
