package server

import (
	"github.com/kvo5/marvel-madness/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetFeed handles GET /api/feed
// @Summary Latest top-level posts
// @Tags views
// @Produce json
// @Param limit query int false "Page size (default 20, max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} models.FeedView
// @Router /feed [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	view, err := s.viewService.Feed(c.UserContext(), c.QueryInt("limit"), c.QueryInt("offset"))
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(view)
}

// GetProfile handles GET /api/users/:username
// @Summary A user's profile and posts
// @Tags views
// @Produce json
// @Param username path string true "Username"
// @Param limit query int false "Page size (default 20, max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} models.ProfileView
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{username} [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	view, err := s.viewService.Profile(c.UserContext(), c.Params("username"), c.QueryInt("limit"), c.QueryInt("offset"))
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(view)
}

// GetStatus handles GET /api/users/:username/status/:id
// @Summary A post with its replies
// @Tags views
// @Produce json
// @Param username path string true "Author username"
// @Param id path int true "Post ID"
// @Success 200 {object} models.StatusView
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{username}/status/{id} [get]
func (s *Server) GetStatus(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	view, err := s.viewService.Status(c.UserContext(), c.Params("username"), postID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(view)
}
