package models

import "time"

// Reconciliation steps.
const (
	ReconcileDeleteLocalUser = "delete_local_user"
	ReconcileSyncProfileImg  = "sync_profile_image"
)

// Reconciliation records a two-system write whose second step did not land.
// It is queued so a drain can retry the local step later.
type Reconciliation struct {
	ID        string            `json:"id"`
	Step      string            `json:"step"`
	UserID    string            `json:"user_id"`
	Data      map[string]string `json:"data,omitempty"`
	Reason    string            `json:"reason"`
	Attempts  int               `json:"attempts"`
	CreatedAt time.Time         `json:"created_at"`
}
