package domain

import (
	"errors"
	"time"
)

// SessionTTL is how long stored connection credentials stay resolvable.
// Records are destroyed by backend-enforced expiry only; a successful bulk
// send leaves the record in place for reuse until it lapses.
const SessionTTL = 24 * time.Hour

// SessionRecord holds the durable connection parameters extracted from a
// validated Telegram connection. It is the one serializable snapshot of an
// otherwise stateful, expensive-to-reestablish connection: enough to rebuild
// the connection later without re-running the authorization check.
type SessionRecord struct {
	DC         int    // data-center id the account is pinned to
	ServerAddr string // MTProto server address for that DC
	Port       int
	AuthKey    string // raw authorization key, hex encoded
	TakeoutID  string // optional, empty unless a takeout session was exported
}

// AccountStats is the lightweight account summary surfaced after login.
type AccountStats struct {
	Messages int `json:"messages"`
	Groups   int `json:"groups"`
}

var (
	// ErrInvalidArtifact marks an upload that is not recognizable as a
	// session artifact. Caller-fixable, never retried.
	ErrInvalidArtifact = errors.New("invalid session artifact")

	// ErrNotAuthorized means Telegram did not recognize the uploaded session
	// as an authorized account. Distinct from transport failures.
	ErrNotAuthorized = errors.New("session not authorized")

	// ErrSessionNotFound means a handle resolved to nothing: expired, never
	// issued, or written to a backend that has since rotated out. Callers
	// must surface it as an authorization failure, not a server fault.
	ErrSessionNotFound = errors.New("session not found")
)
