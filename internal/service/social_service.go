package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kvo5/marvel-madness/internal/featureflags"
	"github.com/kvo5/marvel-madness/internal/models"
	"github.com/kvo5/marvel-madness/internal/observability"
	"github.com/kvo5/marvel-madness/internal/repository"
)

// SocialService toggles follows, likes, reposts and bookmarks.
// Every toggle is a no-op returning false for an empty caller.
type SocialService struct {
	relations repository.RelationRepository
	flags     *featureflags.Manager
	logger    *observability.StructuredLogger
}

func NewSocialService(relations repository.RelationRepository, flags *featureflags.Manager, logger *slog.Logger) *SocialService {
	return &SocialService{
		relations: relations,
		flags:     flags,
		logger:    observability.NewStructuredLogger("social", logger),
	}
}

// ToggleFollow follows or unfollows targetID and reports whether the caller now follows it.
func (s *SocialService) ToggleFollow(ctx context.Context, callerID, targetID string) (bool, error) {
	if callerID == "" {
		return false, nil
	}
	op, ctx := begin(ctx, s.logger, "toggleFollow", callerID)

	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return false, op.end(ctx, models.NewValidationError("User id is required"))
	}
	if targetID == callerID && !s.flags.Enabled(featureflags.SelfFollow, callerID) {
		return false, op.end(ctx, models.NewValidationError("You cannot follow yourself"))
	}

	active, err := s.relations.ToggleFollow(ctx, callerID, targetID)
	return active, op.end(ctx, err, slog.String("target_id", targetID), slog.Bool("active", active))
}

func (s *SocialService) ToggleLike(ctx context.Context, callerID string, postID uint) (bool, error) {
	return s.togglePost(ctx, "toggleLike", callerID, postID, s.relations.ToggleLike)
}

// ToggleRepost creates or removes the caller's repost of postID.
func (s *SocialService) ToggleRepost(ctx context.Context, callerID string, postID uint) (bool, error) {
	return s.togglePost(ctx, "toggleRepost", callerID, postID, s.relations.ToggleRepost)
}

func (s *SocialService) ToggleSave(ctx context.Context, callerID string, postID uint) (bool, error) {
	return s.togglePost(ctx, "toggleSave", callerID, postID, s.relations.ToggleSave)
}

func (s *SocialService) togglePost(
	ctx context.Context,
	name, callerID string,
	postID uint,
	toggle func(context.Context, string, uint) (bool, error),
) (bool, error) {
	if callerID == "" {
		return false, nil
	}
	op, ctx := begin(ctx, s.logger, name, callerID)

	if postID == 0 {
		return false, op.end(ctx, models.NewValidationError("Invalid post ID"))
	}

	active, err := toggle(ctx, callerID, postID)
	return active, op.end(ctx, err, slog.Uint64("post_id", uint64(postID)), slog.Bool("active", active))
}
