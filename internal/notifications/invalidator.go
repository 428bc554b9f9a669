package notifications

import (
	"context"
	"log/slog"

	"github.com/kvo5/marvel-madness/internal/cache"
	"github.com/kvo5/marvel-madness/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// ViewInvalidator drops cached renders of view paths and tells subscribers to re-fetch.
type ViewInvalidator struct {
	rdb      *redis.Client
	notifier *Notifier
}

// NewViewInvalidator creates a ViewInvalidator. A nil client makes it a no-op.
func NewViewInvalidator(rdb *redis.Client) *ViewInvalidator {
	return &ViewInvalidator{rdb: rdb, notifier: NewNotifier(rdb)}
}

// Revalidate is best-effort: failures are logged and never fail the mutation that caused them.
func (v *ViewInvalidator) Revalidate(ctx context.Context, paths ...string) {
	if v.rdb == nil || len(paths) == 0 {
		return
	}

	keys := make([]string, 0, len(paths))
	for _, p := range paths {
		keys = append(keys, cache.ViewKey(p))
	}
	if err := v.rdb.Del(ctx, keys...).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "view cache delete failed",
			slog.Any("paths", paths), slog.String("error", err.Error()))
	}

	for _, p := range paths {
		if err := v.notifier.PublishRevalidate(ctx, p); err != nil {
			middleware.Logger.WarnContext(ctx, "revalidate publish failed",
				slog.String("path", p), slog.String("error", err.Error()))
		}
	}
}
