package ids

import (
	"fmt"
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// accountNumberSpace is the number of distinct 9-digit account numbers.
const accountNumberSpace = 1_000_000_000

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)

	numbersMu sync.Mutex
	numbers   = mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
)

// New returns a lexicographically sortable identifier suitable for storage keys.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// AccountNumber returns a random zero-padded 9-digit account number.
// Uniqueness is the caller's concern.
func AccountNumber() string {
	numbersMu.Lock()
	n := numbers.Intn(accountNumberSpace)
	numbersMu.Unlock()
	return fmt.Sprintf("%09d", n)
}

// Reference returns a short upper-case code for display on statements.
func Reference() string {
	return strings.ToUpper(uuid.NewString()[:8])
}

// RequestID returns an identifier for correlating a single HTTP request.
func RequestID() string {
	return uuid.NewString()
}
