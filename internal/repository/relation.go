package repository

import (
	"context"

	"github.com/kvo5/marvel-madness/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RelationRepository toggles the pairwise relations. Each toggle reports whether the
// relation is active afterwards.
type RelationRepository interface {
	ToggleFollow(ctx context.Context, followerID, followingID string) (bool, error)
	ToggleLike(ctx context.Context, userID string, postID uint) (bool, error)
	ToggleSave(ctx context.Context, userID string, postID uint) (bool, error)
	ToggleRepost(ctx context.Context, userID string, postID uint) (bool, error)
	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)
}

type relationRepository struct {
	db *gorm.DB
}

// NewRelationRepository creates a new relation repository
func NewRelationRepository(db *gorm.DB) RelationRepository {
	return &relationRepository{db: db}
}

type pair struct {
	model   interface{}
	conds   map[string]interface{}
	row     interface{}
	missing func() error
}

// toggle deletes the row matching p.conds when present, otherwise inserts p.row.
// The insert ignores a unique conflict so a concurrent toggle-on leaves one row.
func (r *relationRepository) toggle(ctx context.Context, p pair) (bool, error) {
	db := r.db.WithContext(ctx)

	var count int64
	if err := db.Model(p.model).Where(p.conds).Count(&count).Error; err != nil {
		return false, models.NewPersistenceError("Database error", err)
	}

	if count > 0 {
		if err := db.Where(p.conds).Delete(p.model).Error; err != nil {
			return false, models.NewPersistenceError("Database error", err)
		}
		return false, nil
	}

	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(p.row).Error; err != nil {
		if isForeignKeyViolation(err) {
			return false, p.missing()
		}
		return false, models.NewPersistenceError("Database error", err)
	}
	return true, nil
}

func (r *relationRepository) ToggleFollow(ctx context.Context, followerID, followingID string) (bool, error) {
	return r.toggle(ctx, pair{
		model: &models.Follow{},
		conds: map[string]interface{}{"follower_id": followerID, "following_id": followingID},
		row:   &models.Follow{FollowerID: followerID, FollowingID: followingID},
		missing: func() error {
			return models.NewNotFoundError("User", followingID)
		},
	})
}

func (r *relationRepository) ToggleLike(ctx context.Context, userID string, postID uint) (bool, error) {
	return r.toggle(ctx, pair{
		model:   &models.Like{},
		conds:   map[string]interface{}{"user_id": userID, "post_id": postID},
		row:     &models.Like{UserID: userID, PostID: postID},
		missing: postMissing(postID),
	})
}

func (r *relationRepository) ToggleSave(ctx context.Context, userID string, postID uint) (bool, error) {
	return r.toggle(ctx, pair{
		model:   &models.SavedPost{},
		conds:   map[string]interface{}{"user_id": userID, "post_id": postID},
		row:     &models.SavedPost{UserID: userID, PostID: postID},
		missing: postMissing(postID),
	})
}

// ToggleRepost creates or removes the caller's repost row of postID.
func (r *relationRepository) ToggleRepost(ctx context.Context, userID string, postID uint) (bool, error) {
	return r.toggle(ctx, pair{
		model:   &models.Post{},
		conds:   map[string]interface{}{"user_id": userID, "repost_of_id": postID},
		row:     &models.Post{UserID: userID, RepostOfID: &postID},
		missing: postMissing(postID),
	})
}

func (r *relationRepository) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	var count int64
	err := readDB(r.db).WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	if err != nil {
		return false, models.NewPersistenceError("Database error", err)
	}
	return count > 0, nil
}

func postMissing(postID uint) func() error {
	return func() error {
		return models.NewNotFoundError("Post", postID)
	}
}
