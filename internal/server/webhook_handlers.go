package server

import (
	"encoding/json"
	"log/slog"

	"github.com/kvo5/marvel-madness/internal/identity"
	"github.com/kvo5/marvel-madness/internal/middleware"
	"github.com/kvo5/marvel-madness/internal/models"

	"github.com/gofiber/fiber/v2"
)

// IdentityWebhook handles POST /api/webhooks/identity
// @Summary Identity provider user lifecycle webhook
// @Tags webhooks
// @Accept json
// @Produce json
// @Param svix-id header string true "Delivery id"
// @Param svix-timestamp header string true "Unix timestamp"
// @Param svix-signature header string true "v1 signatures"
// @Success 200 {object} models.ActionResult
// @Failure 400 {object} models.ActionResult
// @Failure 401 {object} models.ActionResult
// @Failure 503 {object} models.ActionResult
// @Router /webhooks/identity [post]
func (s *Server) IdentityWebhook(c *fiber.Ctx) error {
	if s.webhooks == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ActionResult{Error: "Webhooks are not configured"})
	}

	body := c.Body()
	err := s.webhooks.Verify(identity.WebhookHeaders{
		ID:        c.Get("svix-id"),
		Timestamp: c.Get("svix-timestamp"),
		Signature: c.Get("svix-signature"),
	}, body)
	if err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "rejected webhook delivery",
			slog.String("svix_id", c.Get("svix-id")), slog.String("error", err.Error()))
		return respondAction(c, models.NewUnauthenticatedError("Invalid webhook signature"))
	}

	var ev identity.WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return respondAction(c, models.NewValidationError("Invalid webhook payload"))
	}

	if err := s.webhookService.Handle(c.UserContext(), ev); err != nil {
		return respondAction(c, err)
	}
	return c.JSON(models.Succeeded())
}
