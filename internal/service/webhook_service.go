package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/kvo5/marvel-madness/internal/identity"
	"github.com/kvo5/marvel-madness/internal/models"
	"github.com/kvo5/marvel-madness/internal/observability"
	"github.com/kvo5/marvel-madness/internal/repository"
)

// WebhookService mirrors identity-provider user lifecycle events into the local store.
type WebhookService struct {
	users       repository.UserRepository
	revalidator Revalidator
	logger      *observability.StructuredLogger
}

func NewWebhookService(users repository.UserRepository, revalidator Revalidator, logger *slog.Logger) *WebhookService {
	return &WebhookService{
		users:       users,
		revalidator: revalidator,
		logger:      observability.NewStructuredLogger("webhook", logger),
	}
}

// Handle applies one verified event. Unknown event types are ignored.
func (s *WebhookService) Handle(ctx context.Context, ev identity.WebhookEvent) error {
	switch ev.Type {
	case identity.EventUserCreated, identity.EventUserUpdated, identity.EventUserDeleted:
	default:
		s.logger.LogServiceCall(ctx, "webhook", nil, slog.String("type", ev.Type), slog.Bool("ignored", true))
		return nil
	}
	op, ctx := begin(ctx, s.logger, "webhook."+ev.Type, "")

	var user identity.UserPayload
	if err := json.Unmarshal(ev.Data, &user); err != nil {
		return op.end(ctx, models.NewValidationError("Invalid webhook payload"))
	}
	if user.ID == "" {
		return op.end(ctx, models.NewValidationError("Webhook payload has no user id"))
	}
	fields := []any{slog.String("user_id", user.ID)}

	switch ev.Type {
	case identity.EventUserCreated, identity.EventUserUpdated:
		local := &models.User{
			ID:          user.ID,
			Email:       user.PrimaryEmail(),
			Username:    user.Username,
			DisplayName: user.DisplayName(),
		}
		if local.Username == "" {
			local.Username = user.ID
		}
		if local.Email == "" {
			return op.end(ctx, models.NewValidationError("Webhook user has no email address"), fields...)
		}
		if err := s.users.Upsert(ctx, local); err != nil {
			return op.end(ctx, err, fields...)
		}
		s.revalidator.Revalidate(ctx, profilePath(local.Username))

	case identity.EventUserDeleted:
		if err := s.users.Delete(ctx, user.ID); err != nil && !models.IsCode(err, models.CodeNotFound) {
			return op.end(ctx, err, fields...)
		}
		s.revalidator.Revalidate(ctx, feedPath)
	}
	return op.end(ctx, nil, fields...)
}
