package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/kvo5/marvel-madness/internal/cache"
	"github.com/kvo5/marvel-madness/internal/featureflags"
	"github.com/kvo5/marvel-madness/internal/models"
	"github.com/kvo5/marvel-madness/internal/observability"
	"github.com/kvo5/marvel-madness/internal/repository"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ViewService renders the read views that mutations invalidate. The default page of each
// view is cached under its view key.
type ViewService struct {
	users  repository.UserRepository
	posts  repository.PostRepository
	flags  *featureflags.Manager
	ttl    time.Duration
	logger *observability.StructuredLogger
}

func NewViewService(
	users repository.UserRepository,
	posts repository.PostRepository,
	flags *featureflags.Manager,
	ttl time.Duration,
	logger *slog.Logger,
) *ViewService {
	return &ViewService{
		users:  users,
		posts:  posts,
		flags:  flags,
		ttl:    ttl,
		logger: observability.NewStructuredLogger("view", logger),
	}
}

// Page clamps limit to (0, MaxPageSize] and offset to >= 0.
func Page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// cached runs fetch through the view cache when the page is the default one.
func (s *ViewService) cached(ctx context.Context, path string, firstPage bool, dest any, fetch func() error) error {
	if !firstPage || s.ttl <= 0 || !s.flags.EnabledOr(featureflags.ViewCache, "", true) {
		return fetch()
	}
	return cache.Aside(ctx, cache.ViewKey(path), dest, s.ttl, fetch)
}

func (s *ViewService) Feed(ctx context.Context, limit, offset int) (*models.FeedView, error) {
	limit, offset = Page(limit, offset)
	view := &models.FeedView{}
	err := s.cached(ctx, feedPath, limit == DefaultPageSize && offset == 0, view, func() error {
		posts, err := s.posts.Feed(ctx, limit, offset)
		if err != nil {
			return err
		}
		view.Posts = posts
		return nil
	})
	if err != nil {
		s.logger.LogServiceCall(ctx, "feed", err)
		return nil, err
	}
	return view, nil
}

// Profile renders a user's page with their latest top-level posts.
func (s *ViewService) Profile(ctx context.Context, username string, limit, offset int) (*models.ProfileView, error) {
	limit, offset = Page(limit, offset)
	view := &models.ProfileView{}
	err := s.cached(ctx, profilePath(username), limit == DefaultPageSize && offset == 0, view, func() error {
		user, err := s.users.GetByUsername(ctx, username)
		if err != nil {
			return err
		}
		posts, err := s.posts.ByUser(ctx, user.ID, limit, offset)
		if err != nil {
			return err
		}
		view.User, view.Posts = user, posts
		return nil
	})
	if err != nil {
		s.logger.LogServiceCall(ctx, "profile", err, slog.String("username", username))
		return nil, err
	}
	return view, nil
}

// Status renders one post with its replies. The post must belong to username.
func (s *ViewService) Status(ctx context.Context, username string, postID uint) (*models.StatusView, error) {
	view := &models.StatusView{}
	err := s.cached(ctx, statusPath(username, postID), true, view, func() error {
		post, err := s.posts.Detail(ctx, postID)
		if err != nil {
			return err
		}
		if post.User == nil || post.User.Username != username {
			return errPostNotFound
		}
		replies, err := s.posts.Replies(ctx, postID)
		if err != nil {
			return err
		}
		view.Post, view.Replies = post, replies
		return nil
	})
	if err != nil {
		s.logger.LogServiceCall(ctx, "status", err, slog.Uint64("post_id", uint64(postID)))
		return nil, err
	}
	return view, nil
}
