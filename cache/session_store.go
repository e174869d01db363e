package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gramforge/gramcast/domain"
)

// SessionStore is a keyed-TTL store for session records.
type SessionStore interface {
	// Set writes the record under the handle with the given TTL.
	Set(ctx context.Context, handle string, rec *domain.SessionRecord, ttl time.Duration) error
	// Get resolves a handle, or returns domain.ErrSessionNotFound.
	Get(ctx context.Context, handle string) (*domain.SessionRecord, error)
}

// RedisSessionStore stores session records on whichever backend the rotator
// points to at call time. There is no fan-out across backends and no record
// migration: a record written before a rotation stays on the old backend and
// will miss until it expires there. Sessions issued near a rotation boundary
// may therefore disappear before their TTL lapses.
type RedisSessionStore struct {
	rotator *Rotator
}

func NewRedisSessionStore(rotator *Rotator) *RedisSessionStore {
	return &RedisSessionStore{rotator: rotator}
}

func sessionKey(handle string) string {
	return "session:" + handle
}

// Set serializes the record to a flat hash and applies the TTL.
func (s *RedisSessionStore) Set(ctx context.Context, handle string, rec *domain.SessionRecord, ttl time.Duration) error {
	client := s.rotator.Current()
	key := sessionKey(handle)

	entry := map[string]any{
		"dc_id":          rec.DC,
		"server_address": rec.ServerAddr,
		"port":           rec.Port,
		"auth_key":       rec.AuthKey,
		"takeout_id":     rec.TakeoutID,
	}
	if err := client.HSet(ctx, key, entry).Err(); err != nil {
		return fmt.Errorf("failed to store session record: %w", err)
	}
	if err := client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set session expiry: %w", err)
	}
	return nil
}

// Get deserializes the record stored under the handle.
func (s *RedisSessionStore) Get(ctx context.Context, handle string) (*domain.SessionRecord, error) {
	client := s.rotator.Current()

	res, err := client.HGetAll(ctx, sessionKey(handle)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session record: %w", err)
	}
	if len(res) == 0 {
		return nil, domain.ErrSessionNotFound
	}

	dc, err := strconv.Atoi(res["dc_id"])
	if err != nil {
		return nil, fmt.Errorf("malformed dc_id in stored session: %w", err)
	}
	port, err := strconv.Atoi(res["port"])
	if err != nil {
		return nil, fmt.Errorf("malformed port in stored session: %w", err)
	}

	return &domain.SessionRecord{
		DC:         dc,
		ServerAddr: res["server_address"],
		Port:       port,
		AuthKey:    res["auth_key"],
		TakeoutID:  res["takeout_id"],
	}, nil
}
