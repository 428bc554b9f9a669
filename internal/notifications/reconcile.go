package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kvo5/marvel-madness/internal/middleware"
	"github.com/kvo5/marvel-madness/internal/models"
	"github.com/kvo5/marvel-madness/internal/observability"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ReconcileListKey is the Redis list holding pending reconciliation records.
const ReconcileListKey = "reconcile:pending"

// ReconciliationQueue is a FIFO of reconciliation records backed by a Redis list.
type ReconciliationQueue struct {
	rdb      *redis.Client
	notifier *Notifier
	now      func() time.Time
}

// NewReconciliationQueue creates a queue on rdb.
func NewReconciliationQueue(rdb *redis.Client) *ReconciliationQueue {
	return &ReconciliationQueue{rdb: rdb, notifier: NewNotifier(rdb), now: time.Now}
}

// Record queues rec and announces it on ReconcileChannel. Without Redis the record is
// logged at error level so it is not lost silently.
func (q *ReconciliationQueue) Record(ctx context.Context, rec models.Reconciliation) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = q.now().UTC()
	}
	observability.ReconciliationsPending.WithLabelValues(rec.Step).Inc()

	if q.rdb == nil {
		middleware.Logger.ErrorContext(ctx, "reconciliation needed, no queue configured",
			slog.String("id", rec.ID),
			slog.String("step", rec.Step),
			slog.String("user_id", rec.UserID),
			slog.Any("data", rec.Data),
			slog.String("reason", rec.Reason),
		)
		return nil
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal reconciliation: %w", err)
	}
	if err := q.rdb.LPush(ctx, ReconcileListKey, raw).Err(); err != nil {
		return fmt.Errorf("queue reconciliation: %w", err)
	}
	if err := q.notifier.PublishReconcile(ctx, rec); err != nil {
		middleware.Logger.WarnContext(ctx, "reconcile publish failed", slog.String("error", err.Error()))
	}
	return nil
}

// Pop removes the oldest record. It returns nil, nil when the queue is empty.
func (q *ReconciliationQueue) Pop(ctx context.Context) (*models.Reconciliation, error) {
	if q.rdb == nil {
		return nil, nil
	}
	raw, err := q.rdb.RPop(ctx, ReconcileListKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("pop reconciliation: %w", err)
	}
	var rec models.Reconciliation
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode reconciliation: %w", err)
	}
	return &rec, nil
}

// Requeue puts rec back at the tail with its attempt count bumped.
func (q *ReconciliationQueue) Requeue(ctx context.Context, rec models.Reconciliation) error {
	if q.rdb == nil {
		return nil
	}
	rec.Attempts++
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal reconciliation: %w", err)
	}
	return q.rdb.LPush(ctx, ReconcileListKey, raw).Err()
}

// Len reports the number of pending records.
func (q *ReconciliationQueue) Len(ctx context.Context) (int64, error) {
	if q.rdb == nil {
		return 0, nil
	}
	return q.rdb.LLen(ctx, ReconcileListKey).Result()
}
