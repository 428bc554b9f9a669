package service

import (
	"context"
	"log/slog"

	"github.com/kvo5/marvel-madness/internal/models"
	"github.com/kvo5/marvel-madness/internal/observability"
	"github.com/kvo5/marvel-madness/internal/repository"
)

// DefaultMaxAttempts bounds how often a record is retried before it is dropped as dead.
const DefaultMaxAttempts = 5

// ReconcileQueue is the consuming side of the reconciliation queue.
type ReconcileQueue interface {
	Pop(ctx context.Context) (*models.Reconciliation, error)
	Requeue(ctx context.Context, rec models.Reconciliation) error
	Len(ctx context.Context) (int64, error)
}

// DrainReport summarizes one Drain pass.
type DrainReport struct {
	Applied  int `json:"applied"`
	Requeued int `json:"requeued"`
	Dead     int `json:"dead"`
}

// ReconcileService replays the local step of queued two-system writes.
type ReconcileService struct {
	queue       ReconcileQueue
	users       repository.UserRepository
	maxAttempts int
	logger      *observability.StructuredLogger
}

func NewReconcileService(queue ReconcileQueue, users repository.UserRepository, maxAttempts int, logger *slog.Logger) *ReconcileService {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &ReconcileService{
		queue:       queue,
		users:       users,
		maxAttempts: maxAttempts,
		logger:      observability.NewStructuredLogger("reconcile", logger),
	}
}

// Drain processes the records pending when it starts, at most limit of them when limit > 0.
// A record that fails again goes back on the queue until it reaches the attempt limit.
func (s *ReconcileService) Drain(ctx context.Context, limit int) (DrainReport, error) {
	var report DrainReport

	pending, err := s.queue.Len(ctx)
	if err != nil {
		return report, err
	}
	if limit > 0 && int64(limit) < pending {
		pending = int64(limit)
	}

	for i := int64(0); i < pending; i++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		rec, err := s.queue.Pop(ctx)
		if err != nil {
			return report, err
		}
		if rec == nil {
			break
		}

		err = s.apply(ctx, *rec)
		fields := []any{slog.String("id", rec.ID), slog.String("step", rec.Step), slog.String("user_id", rec.UserID)}
		switch {
		case err == nil:
			report.Applied++
			s.logger.LogServiceCall(ctx, "reconcile.apply", nil, fields...)
		case rec.Attempts+1 >= s.maxAttempts:
			report.Dead++
			s.logger.LogAsyncOperationError(ctx, "reconcile.dead", err, fields...)
		default:
			if err := s.queue.Requeue(ctx, *rec); err != nil {
				return report, err
			}
			report.Requeued++
			s.logger.LogServiceCall(ctx, "reconcile.apply", err, fields...)
		}
	}
	return report, nil
}

func (s *ReconcileService) apply(ctx context.Context, rec models.Reconciliation) error {
	switch rec.Step {
	case models.ReconcileDeleteLocalUser:
		err := s.users.Delete(ctx, rec.UserID)
		if models.IsCode(err, models.CodeNotFound) {
			return nil
		}
		return err
	case models.ReconcileSyncProfileImg:
		img, ok := rec.Data["img"]
		if !ok {
			return nil
		}
		err := s.users.Update(ctx, rec.UserID, map[string]interface{}{"img": img})
		if models.IsCode(err, models.CodeNotFound) {
			return nil
		}
		return err
	default:
		s.logger.LogAsyncOperationError(ctx, "reconcile.unknown_step", models.NewValidationError("unknown step"),
			slog.String("step", rec.Step))
		return nil
	}
}
