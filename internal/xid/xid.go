// Package xid generates the identifiers handed out for draft sessions
// and their lines. The ids embed the creation nanosecond so log lines
// mentioning a draft read in order, with a random suffix so one
// operator cannot guess another's draft id.
package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// New returns a prefixed, time-ordered identifier. Randomness guards
// against collisions between drafts created in the same nanosecond.
func New(prefix string) string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%x-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(buf))
}
