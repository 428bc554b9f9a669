package repository

import (
	"context"
	"errors"

	"github.com/kvo5/marvel-madness/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	Delete(ctx context.Context, id uint) error
	Feed(ctx context.Context, limit, offset int) ([]*models.Post, error)
	ByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Post, error)
	Detail(ctx context.Context, id uint) (*models.Post, error)
	Replies(ctx context.Context, parentID uint) ([]*models.Post, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		if isForeignKeyViolation(err) {
			if post.ParentPostID != nil {
				return models.NewNotFoundError("Post", *post.ParentPostID)
			}
			return models.NewNotFoundError("User", post.UserID)
		}
		return models.NewPersistenceError("Database error", err)
	}
	return nil
}

// GetByID loads a post with its author.
func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Preload("User").Preload("ParentPost.User").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewPersistenceError("Database error", err)
	}
	return &post, nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return models.NewPersistenceError("Database error", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

// withDetails selects counts and preloads authors, including the author of a reposted post.
func (r *postRepository) withDetails(ctx context.Context) *gorm.DB {
	return readDB(r.db).WithContext(ctx).
		Select(postCounts).
		Preload("User").
		Preload("RepostOf").
		Preload("RepostOf.User")
}

// Feed lists top-level posts and reposts, newest first.
func (r *postRepository) Feed(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.withDetails(ctx).
		Where("posts.parent_post_id IS NULL").
		Order("posts.created_at DESC, posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewPersistenceError("Database error", err)
	}
	return posts, nil
}

func (r *postRepository) ByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.withDetails(ctx).
		Where("posts.user_id = ? AND posts.parent_post_id IS NULL", userID).
		Order("posts.created_at DESC, posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewPersistenceError("Database error", err)
	}
	return posts, nil
}

func (r *postRepository) Detail(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.withDetails(ctx).Where("posts.id = ?", id).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewPersistenceError("Database error", err)
	}
	return &post, nil
}

// Replies lists the comments on parentID, oldest first.
func (r *postRepository) Replies(ctx context.Context, parentID uint) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.withDetails(ctx).
		Where("posts.parent_post_id = ?", parentID).
		Order("posts.created_at ASC, posts.id ASC").
		Find(&posts).Error
	if err != nil {
		return nil, models.NewPersistenceError("Database error", err)
	}
	return posts, nil
}
