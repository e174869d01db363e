package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/gramforge/gramcast/cache"
	"github.com/gramforge/gramcast/domain"
	"github.com/gramforge/gramcast/internal/scratch"
	"github.com/gramforge/gramcast/log"
	"github.com/gramforge/gramcast/mtproto"
)

// BackendRotator is the post-hoc rotation hook the services fire after a
// unit of work. Implemented by cache.Rotator.
type BackendRotator interface {
	MaybeRotate(ctx context.Context)
}

// LoginResult is what a successful authentication hands back to the caller.
type LoginResult struct {
	SessionID string
	Stats     domain.AccountStats
}

// AuthService validates uploaded session artifacts against Telegram and
// persists the derived connection credentials under an opaque handle.
type AuthService struct {
	store   cache.SessionStore
	conn    mtproto.Connector
	rotator BackendRotator
	log     log.Logger
}

func NewAuthService(store cache.SessionStore, conn mtproto.Connector, rotator BackendRotator, logger log.Logger) *AuthService {
	return &AuthService{
		store:   store,
		conn:    conn,
		rotator: rotator,
		log:     logger,
	}
}

// Authenticate drives the full login flow: stage the artifact in a scratch
// file, open a connection from it, check authorization, snapshot the durable
// credentials, mint a handle and store the record with a 24h TTL. The
// scratch file is removed on every exit path.
func (s *AuthService) Authenticate(ctx context.Context, filename string, artifact []byte) (*LoginResult, error) {
	if !strings.HasSuffix(filename, ".session") {
		return nil, fmt.Errorf("%w: expected a .session upload, got %q", domain.ErrInvalidArtifact, filename)
	}

	sf, err := scratch.New(scratchID(), artifact)
	if err != nil {
		return nil, fmt.Errorf("failed to stage session artifact: %w", err)
	}
	defer sf.Remove()

	cl, err := s.conn.FromSessionFile(ctx, sf.Path())
	if err != nil {
		return nil, fmt.Errorf("failed to open connection from artifact: %w", err)
	}
	defer cl.Close()

	authorized, err := cl.Authorized(ctx)
	if err != nil {
		return nil, fmt.Errorf("authorization check failed: %w", err)
	}
	if !authorized {
		return nil, domain.ErrNotAuthorized
	}

	rec, err := cl.Credentials()
	if err != nil {
		return nil, fmt.Errorf("failed to extract connection credentials: %w", err)
	}

	handle := "user:" + uuid.NewString()
	if err := s.store.Set(ctx, handle, rec, domain.SessionTTL); err != nil {
		return nil, fmt.Errorf("failed to store session record: %w", err)
	}

	// Stats are a collaborator call and best-effort: a failure here must not
	// undo an otherwise successful login.
	stats, err := cl.AccountStats(ctx)
	if err != nil {
		s.log.Warn(ctx, "account stats unavailable", map[string]any{
			"session_id": handle,
			"error":      err.Error(),
		})
		stats = domain.AccountStats{}
	}

	s.log.Info(ctx, "session authenticated", map[string]any{
		"session_id": handle,
		"dc_id":      rec.DC,
	})

	s.rotator.MaybeRotate(ctx)

	return &LoginResult{SessionID: handle, Stats: stats}, nil
}

// scratchID names a staging file as user:<16 hex chars>, the shape session
// artifacts are keyed under on disk.
func scratchID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "user:" + uuid.NewString()
	}
	return "user:" + hex.EncodeToString(buf)
}
