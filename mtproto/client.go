// Package mtproto wraps the external Telegram protocol client. All direct
// communication with Telegram lives behind these interfaces; the rest of the
// system only stores, resolves and schedules the credentials a connection
// needs.
package mtproto

import (
	"context"

	"github.com/gramforge/gramcast/domain"
)

// Client is one live protocol connection tied to a single account.
type Client interface {
	// Authorized reports whether the connection belongs to an authorized
	// account. A false result is distinct from a transport error.
	Authorized(ctx context.Context) (bool, error)

	// Credentials snapshots the durable connection parameters so the
	// connection can be rebuilt later without re-authorizing.
	Credentials() (*domain.SessionRecord, error)

	// AccountStats surfaces a lightweight account summary. Best-effort.
	AccountStats(ctx context.Context) (domain.AccountStats, error)

	// SendMessage delivers text to a single recipient id.
	SendMessage(ctx context.Context, recipient int64, text string) error

	// Close tears the connection down. Safe to call on every exit path.
	Close() error
}

// Connector opens protocol connections. The authenticate path seeds one from
// an uploaded session artifact; the dispatch path rebuilds one from stored
// credentials, trusting them as already validated.
type Connector interface {
	FromSessionFile(ctx context.Context, path string) (Client, error)
	FromRecord(ctx context.Context, rec *domain.SessionRecord) (Client, error)
}
