package mtproto

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/amarnathcjd/gogram/telegram"

	"github.com/gramforge/gramcast/domain"
)

// GogramConnector opens MTProto connections through gogram.
type GogramConnector struct {
	appID   int32
	appHash string
}

func NewGogramConnector(appID int32, appHash string) *GogramConnector {
	return &GogramConnector{appID: appID, appHash: appHash}
}

// FromSessionFile seeds a connection from a session artifact on disk.
func (g *GogramConnector) FromSessionFile(ctx context.Context, path string) (Client, error) {
	cl, err := telegram.NewClient(telegram.ClientConfig{
		AppID:     g.appID,
		AppHash:   g.appHash,
		Session:   path,
		NoUpdates: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client from session file: %w", err)
	}
	if err := cl.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return &gogramClient{cl: cl}, nil
}

// FromRecord rebuilds a connection from stored credentials. The auth key is
// trusted as already validated; no authorization check is re-run.
func (g *GogramConnector) FromRecord(ctx context.Context, rec *domain.SessionRecord) (Client, error) {
	cl, err := g.clientFromRecord(rec)
	if err != nil {
		return nil, err
	}
	if err := cl.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect with stored credentials: %w", err)
	}
	return &gogramClient{cl: cl}, nil
}

// clientFromRecord builds an unconnected client with the stored credentials
// loaded into it. LoadSession is the library's supported import path; the
// dial then reuses the recorded DC address and auth key instead of
// negotiating fresh ones.
func (g *GogramConnector) clientFromRecord(rec *domain.SessionRecord) (*telegram.Client, error) {
	key, err := hex.DecodeString(rec.AuthKey)
	if err != nil {
		return nil, fmt.Errorf("malformed auth key in session record: %w", err)
	}

	cl, err := telegram.NewClient(telegram.ClientConfig{
		AppID:         g.appID,
		AppHash:       g.appHash,
		MemorySession: true,
		NoUpdates:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	if err := cl.LoadSession(&telegram.Session{
		Key:      key,
		Hash:     authKeyHash(key),
		Hostname: net.JoinHostPort(rec.ServerAddr, strconv.Itoa(rec.Port)),
		AppID:    g.appID,
	}); err != nil {
		return nil, fmt.Errorf("failed to load stored credentials: %w", err)
	}
	return cl, nil
}

// authKeyHash derives the MTProto auth_key_hash: the low 8 bytes of SHA1(key).
func authKeyHash(key []byte) []byte {
	sum := sha1.Sum(key)
	return sum[12:]
}

type gogramClient struct {
	cl *telegram.Client
}

func (c *gogramClient) Authorized(ctx context.Context) (bool, error) {
	if _, err := c.cl.GetMe(); err != nil {
		if isAuthError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// isAuthError separates "Telegram rejected this session" from transport and
// server failures.
func isAuthError(err error) bool {
	msg := err.Error()
	for _, code := range []string{
		"AUTH_KEY_UNREGISTERED",
		"AUTH_KEY_INVALID",
		"SESSION_REVOKED",
		"SESSION_EXPIRED",
		"USER_DEACTIVATED",
	} {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return false
}

func (c *gogramClient) Credentials() (*domain.SessionRecord, error) {
	raw := c.cl.ExportRawSession()

	host, portStr, err := net.SplitHostPort(raw.Hostname)
	if err != nil {
		return nil, fmt.Errorf("unexpected session hostname %q: %w", raw.Hostname, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("unexpected session port %q: %w", portStr, err)
	}

	return &domain.SessionRecord{
		DC:         int(c.cl.GetDC()),
		ServerAddr: host,
		Port:       port,
		AuthKey:    hex.EncodeToString(raw.Key),
		// Takeout sessions are not modeled by the underlying library.
		TakeoutID: "",
	}, nil
}

// AccountStats counts open dialogs. Message totals are not cheaply available
// over MTProto and stay zero.
func (c *gogramClient) AccountStats(ctx context.Context) (domain.AccountStats, error) {
	dialogs, err := c.cl.GetDialogs()
	if err != nil {
		return domain.AccountStats{}, err
	}
	return domain.AccountStats{Groups: len(dialogs)}, nil
}

func (c *gogramClient) SendMessage(ctx context.Context, recipient int64, text string) error {
	_, err := c.cl.SendMessage(recipient, text)
	return err
}

func (c *gogramClient) Close() error {
	return c.cl.Disconnect()
}
