package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/gramforge/gramcast/cache"
	"github.com/gramforge/gramcast/domain"
	"github.com/gramforge/gramcast/log"
	"github.com/gramforge/gramcast/mtproto"
)

// sendInterval paces the per-recipient loop to stay under Telegram's
// per-account send-rate ceiling. A floor, not a target.
const sendInterval = 50 * time.Millisecond

// DispatchService resolves a session handle back into a live connection and
// fans one message out to a recipient list, one send at a time. Sends are
// sequential on purpose: the remote side rate-limits per account, and
// parallel sends against the same account would trip it.
type DispatchService struct {
	store    cache.SessionStore
	conn     mtproto.Connector
	rotator  BackendRotator
	log      log.Logger
	interval time.Duration
}

func NewDispatchService(store cache.SessionStore, conn mtproto.Connector, rotator BackendRotator, logger log.Logger) *DispatchService {
	return &DispatchService{
		store:    store,
		conn:     conn,
		rotator:  rotator,
		log:      logger,
		interval: sendInterval,
	}
}

// Dispatch sends message to every recipient in input order and returns how
// many sends succeeded. A failed recipient is logged and skipped, never
// aborting the batch; a fault before the loop starts aborts the whole call
// with zero sends. The session record is left in place for reuse.
func (s *DispatchService) Dispatch(ctx context.Context, handle, message string, recipients []int64) (int, error) {
	rec, err := s.store.Get(ctx, handle)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return 0, domain.ErrSessionNotFound
		}
		return 0, fmt.Errorf("failed to resolve session handle: %w", err)
	}

	cl, err := s.conn.FromRecord(ctx, rec)
	if err != nil {
		return 0, fmt.Errorf("failed to rebuild connection: %w", err)
	}
	defer cl.Close()

	// Fixed-interval pacing stage: one token per interval, no burst beyond
	// the first send.
	limiter := rate.NewLimiter(rate.Every(s.interval), 1)

	sent := 0
	for _, recipient := range recipients {
		if err := limiter.Wait(ctx); err != nil {
			return sent, fmt.Errorf("dispatch interrupted: %w", err)
		}
		if err := cl.SendMessage(ctx, recipient, message); err != nil {
			s.log.Warn(ctx, "failed to send message to recipient", map[string]any{
				"recipient": recipient,
				"error":     err.Error(),
			})
			continue
		}
		sent++
	}

	s.log.Info(ctx, "bulk dispatch finished", map[string]any{
		"session_id": handle,
		"total":      len(recipients),
		"sent":       sent,
	})

	s.rotator.MaybeRotate(ctx)

	return sent, nil
}
