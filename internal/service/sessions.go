package service

import (
	"context"
	"log/slog"

	"github.com/iliyamo/travel-booking/internal/querycache"
	"github.com/iliyamo/travel-booking/internal/session"
)

// WatchSessions keeps the query cache in step with session changes until
// ctx is done or the broker closes: sign-up invalidates the user list and
// sign-out drops every key scoped to the signed-out user.
func WatchSessions(ctx context.Context, b *session.Broker, c *querycache.Cache, logger *slog.Logger) {
	events, stop := b.Subscribe()
	defer stop()
	logger = logger.With("component", "session-watch")
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Type {
			case session.SignedUp:
				c.Apply(ctx, querycache.UserSignUp, querycache.Target{ID: ev.UserID})
			case session.SignedOut:
				if err := c.DropUser(ctx, ev.UserID); err != nil {
					logger.Warn("drop user keys failed", "user_id", ev.UserID, "error", err)
				}
			}
		}
	}
}
