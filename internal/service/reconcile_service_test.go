package service

import (
	"context"
	"testing"

	"github.com/kvo5/marvel-madness/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeQueue is an in-memory FIFO matching the redis queue's Pop and Requeue order.
type fakeQueue struct {
	items []models.Reconciliation
}

func (q *fakeQueue) Pop(context.Context) (*models.Reconciliation, error) {
	if len(q.items) == 0 {
		return nil, nil
	}
	rec := q.items[0]
	q.items = q.items[1:]
	return &rec, nil
}

func (q *fakeQueue) Requeue(_ context.Context, rec models.Reconciliation) error {
	rec.Attempts++
	q.items = append(q.items, rec)
	return nil
}

func (q *fakeQueue) Len(context.Context) (int64, error) {
	return int64(len(q.items)), nil
}

func TestReconcileService_DrainAppliesSteps(t *testing.T) {
	var deleted []string
	var updated []map[string]interface{}
	users := &userRepoStub{
		deleteFn: func(_ context.Context, id string) error {
			deleted = append(deleted, id)
			if id == "gone" {
				return models.NewNotFoundError("User", id)
			}
			return nil
		},
		updateFn: func(_ context.Context, _ string, fields map[string]interface{}) error {
			updated = append(updated, fields)
			return nil
		},
	}
	queue := &fakeQueue{items: []models.Reconciliation{
		{ID: "1", Step: models.ReconcileDeleteLocalUser, UserID: "user_seed_3"},
		{ID: "2", Step: models.ReconcileDeleteLocalUser, UserID: "gone"},
		{ID: "3", Step: models.ReconcileSyncProfileImg, UserID: "user_seed_1", Data: map[string]string{"img": "/profile_pics/a.png"}},
		{ID: "4", Step: "rename_user", UserID: "user_seed_2"},
	}}

	report, err := NewReconcileService(queue, users, 0, nil).Drain(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, DrainReport{Applied: 4}, report)
	assert.Equal(t, []string{"user_seed_3", "gone"}, deleted)
	assert.Equal(t, []map[string]interface{}{{"img": "/profile_pics/a.png"}}, updated)
	assert.Empty(t, queue.items)
}

func TestReconcileService_DrainRequeuesThenDrops(t *testing.T) {
	users := &userRepoStub{
		deleteFn: func(context.Context, string) error { return errDB },
	}
	queue := &fakeQueue{items: []models.Reconciliation{
		{ID: "1", Step: models.ReconcileDeleteLocalUser, UserID: "user_seed_3"},
	}}
	svc := NewReconcileService(queue, users, 2, nil)

	report, err := svc.Drain(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, DrainReport{Requeued: 1}, report)
	require.Len(t, queue.items, 1)
	assert.Equal(t, 1, queue.items[0].Attempts)

	report, err = svc.Drain(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, DrainReport{Dead: 1}, report)
	assert.Empty(t, queue.items)
}

func TestReconcileService_DrainRespectsLimit(t *testing.T) {
	users := &userRepoStub{deleteFn: func(context.Context, string) error { return nil }}
	queue := &fakeQueue{items: []models.Reconciliation{
		{ID: "1", Step: models.ReconcileDeleteLocalUser, UserID: "a"},
		{ID: "2", Step: models.ReconcileDeleteLocalUser, UserID: "b"},
		{ID: "3", Step: models.ReconcileDeleteLocalUser, UserID: "c"},
	}}

	report, err := NewReconcileService(queue, users, 0, nil).Drain(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Applied)
	require.Len(t, queue.items, 1)
	assert.Equal(t, "3", queue.items[0].ID)
}

func TestReconcileService_DrainStopsOnCancel(t *testing.T) {
	users := &userRepoStub{deleteFn: func(context.Context, string) error { return nil }}
	queue := &fakeQueue{items: []models.Reconciliation{{ID: "1", Step: models.ReconcileDeleteLocalUser, UserID: "a"}}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewReconcileService(queue, users, 0, nil).Drain(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, queue.items, 1)
}
