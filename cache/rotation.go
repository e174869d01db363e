package cache

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/gramforge/gramcast/log"
)

// rotationThreshold is the cumulative command count past which the active
// backend is considered close to its metered free quota (500K/month on the
// hosted tier) and the pointer moves on. Coarse and best-effort: the check
// runs post-hoc, so a burst can overshoot before the first rotation.
const rotationThreshold = 450_000

// Rotator owns the single process-wide pointer into the backend pool. The
// pointer only ever advances, by modular increment. It is mutated through
// compare-and-swap, so two requests racing past the threshold at once can at
// worst both advance it (benign over-rotation), never lose an advance.
type Rotator struct {
	pool *BackendPool
	idx  atomic.Uint32
	log  log.Logger

	// usage reads the backend's cumulative processed-command counter.
	// Swappable in tests.
	usage func(ctx context.Context, c *redis.Client) (int64, error)
}

func NewRotator(pool *BackendPool, logger log.Logger) *Rotator {
	return &Rotator{
		pool:  pool,
		log:   logger,
		usage: commandsProcessed,
	}
}

// Index returns the current pointer position, in [0, pool size).
func (r *Rotator) Index() int {
	return int(r.idx.Load()) % r.pool.Len()
}

// Current returns the backend the pointer designates right now. Callers must
// not cache the result across units of work.
func (r *Rotator) Current() *redis.Client {
	return r.pool.Client(r.Index())
}

// MaybeRotate inspects the active backend's usage counter and advances the
// pointer when it crosses the threshold. Rotation is an optimization, not a
// correctness requirement: every failure here is logged and swallowed so the
// request that triggered the check is never affected.
func (r *Rotator) MaybeRotate(ctx context.Context) {
	cur := r.idx.Load()
	client := r.pool.Client(int(cur) % r.pool.Len())

	used, err := r.usage(ctx, client)
	if err != nil {
		r.log.Error(ctx, "rotation check failed", err, map[string]any{
			"backend": int(cur)%r.pool.Len() + 1,
		})
		return
	}
	if used <= rotationThreshold {
		return
	}

	next := (cur + 1) % uint32(r.pool.Len())
	if r.idx.CompareAndSwap(cur, next) {
		r.log.Info(ctx, "rotated to next Redis backend", map[string]any{
			"backend":  int(next)%r.pool.Len() + 1,
			"commands": used,
		})
	}
}

// commandsProcessed extracts total_commands_processed from INFO stats.
func commandsProcessed(ctx context.Context, c *redis.Client) (int64, error) {
	info, err := c.Info(ctx, "stats").Result()
	if err != nil {
		return 0, err
	}
	return parseCommandsProcessed(info)
}

func parseCommandsProcessed(info string) (int64, error) {
	sc := bufio.NewScanner(strings.NewReader(info))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		val, ok := strings.CutPrefix(line, "total_commands_processed:")
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("malformed total_commands_processed %q: %w", val, err)
		}
		return n, nil
	}
	return 0, fmt.Errorf("total_commands_processed not present in INFO stats")
}
