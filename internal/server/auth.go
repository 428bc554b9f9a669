package server

import (
	"strings"

	"github.com/kvo5/marvel-madness/internal/identity"
	"github.com/kvo5/marvel-madness/internal/middleware"
	"github.com/kvo5/marvel-madness/internal/models"

	"github.com/gofiber/fiber/v2"
)

// sessionToken takes the session token from the Authorization header, falling back to the
// identity provider's session cookie.
func sessionToken(c *fiber.Ctx) string {
	if parts := strings.Fields(c.Get(fiber.HeaderAuthorization)); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return c.Cookies(identity.SessionCookie)
}

// authenticate verifies the session and stores the caller id in locals and the user context.
func (s *Server) authenticate(c *fiber.Ctx) (string, error) {
	userID, err := s.sessions.Verify(sessionToken(c))
	if err != nil {
		return "", err
	}
	c.Locals("userID", userID)
	c.SetUserContext(middleware.WithUserID(c.UserContext(), userID))
	return userID, nil
}

// AuthRequired returns the authentication middleware
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := s.authenticate(c); err != nil {
			return respondAction(c, models.NewUnauthenticatedError("Not authenticated"))
		}
		return c.Next()
	}
}

// ViewerKey identifies anonymous and signed-in viewers for the websocket hub and rejects
// plain HTTP requests to websocket routes.
func (s *Server) ViewerKey() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !isWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		key := "ip:" + c.IP()
		if userID, err := s.authenticate(c); err == nil {
			key = "user:" + userID
		}
		c.Locals("viewerKey", key)
		return c.Next()
	}
}
