package server

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/kvo5/marvel-madness/internal/models"
	"github.com/kvo5/marvel-madness/internal/service"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = respondAction(c, models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
func humanizeParam(param string) string {
	switch param {
	case "id":
		return "ID"
	case "postId":
		return "post ID"
	}
	return param
}

// mapServiceError maps an AppError code to an HTTP status.
func mapServiceError(err error) int {
	switch models.ErrorCode(err) {
	case models.CodeUnauthenticated:
		return fiber.StatusUnauthorized
	case models.CodeValidation:
		return fiber.StatusBadRequest
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeUnauthorized:
		return fiber.StatusForbidden
	case models.CodeUpstream:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// respondAction writes the ActionResult for err with the mapped status.
func respondAction(c *fiber.Ctx, err error) error {
	return c.Status(mapServiceError(err)).JSON(models.ResultFromError(err))
}

// callerID returns the authenticated user id, or "" for anonymous requests.
func callerID(c *fiber.Ctx) string {
	uid, _ := c.Locals("userID").(string)
	return uid
}

// formField returns a submitted form value, or nil when the field was not submitted at all.
func formField(c *fiber.Ctx, key string) *string {
	if form, err := c.MultipartForm(); err == nil && form != nil {
		if v, ok := form.Value[key]; ok && len(v) > 0 {
			return &v[0]
		}
		return nil
	}
	args := c.Request().PostArgs()
	if !args.Has(key) {
		return nil
	}
	v := string(args.Peek(key))
	return &v
}

// formBool parses a checkbox-style field: absent or empty is false, "on" is true.
func formBool(c *fiber.Ctx, key string) (bool, error) {
	raw := strings.TrimSpace(c.FormValue(key))
	switch strings.ToLower(raw) {
	case "":
		return false, nil
	case "on":
		return true, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, models.NewValidationError("Invalid " + key + " value")
	}
	return v, nil
}

// formFile reads an uploaded file into memory. A missing or empty file yields nil.
// Files larger than maxBytes are truncated to maxBytes+1 so the service rejects them
// without buffering the whole body twice.
func formFile(c *fiber.Ctx, key string, maxBytes int64) (*service.FileUpload, error) {
	fh, err := c.FormFile(key)
	if err != nil || fh.Size == 0 {
		return nil, nil
	}

	src, err := fh.Open()
	if err != nil {
		return nil, models.NewValidationError("Unable to read uploaded file")
	}
	defer func() { _ = src.Close() }()

	var r io.Reader = src
	if maxBytes > 0 {
		r = io.LimitReader(src, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, models.NewValidationError("Unable to read uploaded file")
	}
	return &service.FileUpload{Name: fh.Filename, ContentType: fh.Header.Get(fiber.HeaderContentType), Data: data}, nil
}
