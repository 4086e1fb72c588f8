package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// CutoffGuard bounds skill-match notification frequency per user: at most one
// notification per user within the cutoff window. Backed by redis SETNX with a
// TTL. Fails open: when redis is unavailable the send is allowed, since a
// duplicate nudge is cheaper than a silently stalled pipeline.
type CutoffGuard struct {
	logger *slog.Logger
	client *redis.Client
	window time.Duration
}

func NewCutoffGuard(logger *slog.Logger, client *redis.Client, window time.Duration) *CutoffGuard {
	return &CutoffGuard{
		logger: logger.With("component", "notification_cutoff"),
		client: client,
		window: window,
	}
}

// Allow reports whether a notification may be sent to the user now, and claims
// the window slot if so.
func (g *CutoffGuard) Allow(ctx context.Context, userID int64) bool {
	if g.client == nil || g.window <= 0 {
		return true
	}
	key := fmt.Sprintf("notify:cutoff:%d", userID)
	ok, err := g.client.SetNX(ctx, key, time.Now().Unix(), g.window).Result()
	if err != nil {
		g.logger.WarnContext(ctx, "cutoff check failed, allowing send", "user_id", userID, "error", err)
		return true
	}
	return ok
}
