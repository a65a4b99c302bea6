package server

import (
	"errors"

	"bloodconnect/internal/models"
	"bloodconnect/internal/service"
	"bloodconnect/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	profile, err := s.profileService.GetProfile(ctx, currentUID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(profile)
}

// CompleteProfile handles POST /api/users/me/profile
func (s *Server) CompleteProfile(c *fiber.Ctx) error {
	var draft validation.ProfileDraft
	if err := c.BodyParser(&draft); err != nil {
		return badBody(c)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	uid := currentUID(c)
	phone := ""
	if claims := currentClaims(c); claims != nil {
		phone = claims.Phone
	} else if identity, err := s.authService.Me(ctx, uid); err == nil {
		phone = identity.Phone
	}

	profile, err := s.profileService.CompleteProfile(ctx, service.CompleteProfileInput{
		UID:   uid,
		Phone: phone,
		Draft: draft,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(profile)
}

// UpdateProfileField handles PATCH /api/users/me/fields/:field with body {"value": ...}.
// A failed write answers with the error status and the reverted update.
func (s *Server) UpdateProfileField(c *fiber.Ctx) error {
	var req struct {
		Value any `json:"value"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	update, err := s.profileService.UpdateField(ctx, service.UpdateFieldInput{
		UID:   currentUID(c),
		Field: c.Params("field"),
		Value: req.Value,
	})
	return respondFieldUpdate(c, update, err)
}

// ToggleAvailability handles POST /api/users/me/availability
func (s *Server) ToggleAvailability(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	update, err := s.profileService.ToggleAvailability(ctx, currentUID(c))
	return respondFieldUpdate(c, update, err)
}

func respondFieldUpdate(c *fiber.Ctx, update *service.FieldUpdate, err error) error {
	if err == nil {
		return c.JSON(update)
	}
	if update == nil {
		return respondServiceError(c, err)
	}

	status := statusForError(err)
	resp := fiber.Map{
		"error":     update.Error,
		"update":    update,
		"retryable": status != fiber.StatusNotFound,
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		resp["code"] = appErr.Code
	}
	return c.Status(status).JSON(resp)
}
