package server

import (
	"context"
	"strings"

	"github.com/kvo5/marvel-madness/internal/identity"
	"github.com/kvo5/marvel-madness/internal/models"
	"github.com/kvo5/marvel-madness/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ToggleFollow handles POST /api/users/:id/follow
// @Summary Follow or unfollow a user
// @Tags social
// @Produce json
// @Param id path string true "Target user ID"
// @Success 200 {object} models.ActionResult
// @Failure 400 {object} models.ActionResult
// @Failure 401 {object} models.ActionResult
// @Security BearerAuth
// @Router /users/{id}/follow [post]
func (s *Server) ToggleFollow(c *fiber.Ctx) error {
	active, err := s.socialService.ToggleFollow(c.UserContext(), callerID(c), c.Params("id"))
	if err != nil {
		return respondAction(c, err)
	}
	return c.JSON(models.Toggled(active))
}

// ToggleLike handles POST /api/posts/:id/like
// @Summary Like or unlike a post
// @Tags social
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.ActionResult
// @Failure 404 {object} models.ActionResult
// @Security BearerAuth
// @Router /posts/{id}/like [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	return s.togglePost(c, s.socialService.ToggleLike)
}

// ToggleRepost handles POST /api/posts/:id/repost
// @Summary Repost or un-repost a post
// @Tags social
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.ActionResult
// @Security BearerAuth
// @Router /posts/{id}/repost [post]
func (s *Server) ToggleRepost(c *fiber.Ctx) error {
	return s.togglePost(c, s.socialService.ToggleRepost)
}

// ToggleSave handles POST /api/posts/:id/save
// @Summary Bookmark or un-bookmark a post
// @Tags social
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.ActionResult
// @Security BearerAuth
// @Router /posts/{id}/save [post]
func (s *Server) ToggleSave(c *fiber.Ctx) error {
	return s.togglePost(c, s.socialService.ToggleSave)
}

type postToggle func(ctx context.Context, callerID string, postID uint) (bool, error)

func (s *Server) togglePost(c *fiber.Ctx, toggle postToggle) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	active, err := toggle(c.UserContext(), callerID(c), postID)
	if err != nil {
		return respondAction(c, err)
	}
	return c.JSON(models.Toggled(active))
}

// AddComment handles POST /api/posts/:id/comments
// @Summary Reply to a post
// @Tags posts
// @Accept x-www-form-urlencoded
// @Produce json
// @Param id path int true "Parent post ID"
// @Param desc formData string false "Reply text (at most 140 characters)"
// @Success 201 {object} models.ActionResult
// @Failure 400 {object} models.ActionResult
// @Failure 404 {object} models.ActionResult
// @Security BearerAuth
// @Router /posts/{id}/comments [post]
func (s *Server) AddComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if _, err := s.postService.AddComment(c.UserContext(), service.AddCommentInput{
		CallerID: callerID(c),
		PostID:   postID,
		Desc:     c.FormValue("desc"),
	}); err != nil {
		return respondAction(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(models.Succeeded())
}

// AddPost handles POST /api/posts
// @Summary Create a post with an optional image or video
// @Tags posts
// @Accept multipart/form-data
// @Produce json
// @Param desc formData string false "Post text (at most 140 characters)"
// @Param file formData file false "Image or video attachment"
// @Param imgType formData string false "Aspect hint: square, wide or original"
// @Param isSensitive formData bool false "Mark the attachment as sensitive"
// @Success 201 {object} models.ActionResult
// @Failure 400 {object} models.ActionResult
// @Failure 502 {object} models.ActionResult
// @Security BearerAuth
// @Router /posts [post]
func (s *Server) AddPost(c *fiber.Ctx) error {
	sensitive, err := formBool(c, "isSensitive")
	if err != nil {
		return respondAction(c, err)
	}
	file, err := formFile(c, "file", s.config.UploadMaxBytes())
	if err != nil {
		return respondAction(c, err)
	}

	if _, err := s.postService.AddPost(c.UserContext(), service.AddPostInput{
		CallerID:    callerID(c),
		Desc:        c.FormValue("desc"),
		File:        file,
		ImgType:     strings.ToLower(strings.TrimSpace(c.FormValue("imgType"))),
		IsSensitive: sensitive,
	}); err != nil {
		return respondAction(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(models.Succeeded())
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete one of the caller's posts
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.ActionResult
// @Failure 403 {object} models.ActionResult
// @Failure 404 {object} models.ActionResult
// @Security BearerAuth
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.DeletePost(c.UserContext(), callerID(c), postID); err != nil {
		return respondAction(c, err)
	}
	return c.JSON(models.Succeeded())
}

// UpdateProfile handles POST /api/settings/profile
// @Summary Update the caller's profile
// @Tags settings
// @Accept multipart/form-data
// @Produce json
// @Param displayName formData string false "Display name"
// @Param bio formData string false "Bio"
// @Param location formData string false "Location"
// @Param role formData string false "DUELIST, VANGUARD or STRATEGIST"
// @Param rank formData string false "Competitive rank"
// @Param username formData string false "Current username, used to refresh the profile view"
// @Param profilePic formData file false "Profile picture"
// @Param coverPic formData file false "Cover picture"
// @Success 200 {object} models.ActionResult
// @Failure 400 {object} models.ActionResult
// @Failure 502 {object} models.ActionResult
// @Security BearerAuth
// @Router /settings/profile [post]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	maxBytes := s.config.UploadMaxBytes()
	profilePic, err := formFile(c, "profilePic", maxBytes)
	if err != nil {
		return respondAction(c, err)
	}
	coverPic, err := formFile(c, "coverPic", maxBytes)
	if err != nil {
		return respondAction(c, err)
	}

	in := service.UpdateProfileInput{
		CallerID:    callerID(c),
		DisplayName: formField(c, "displayName"),
		Bio:         formField(c, "bio"),
		Location:    formField(c, "location"),
		Role:        formField(c, "role"),
		Rank:        formField(c, "rank"),
		ProfilePic:  profilePic,
		CoverPic:    coverPic,
	}
	if username := formField(c, "username"); username != nil {
		in.Username = *username
	}

	if err := s.profileService.UpdateProfile(c.UserContext(), in); err != nil {
		return respondAction(c, err)
	}
	return c.JSON(models.Succeeded())
}

// DeleteAccount handles DELETE /api/account
// @Summary Delete the caller's account
// @Tags settings
// @Produce json
// @Success 200 {object} models.ActionResult
// @Failure 500 {object} models.ActionResult
// @Failure 502 {object} models.ActionResult
// @Security BearerAuth
// @Router /account [delete]
func (s *Server) DeleteAccount(c *fiber.Ctx) error {
	if err := s.profileService.DeleteAccount(c.UserContext(), callerID(c)); err != nil {
		return respondAction(c, err)
	}
	c.ClearCookie(identity.SessionCookie)
	return c.JSON(models.Succeeded())
}
