package server

import (
	"bloodconnect/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetFeatureFlags returns configured feature flags and evaluated state for current user.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	if s.featureFlags == nil {
		return c.JSON(fiber.Map{
			"raw":       map[string]string{},
			"evaluated": map[string]bool{},
		})
	}

	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(currentUID(c)),
	})
}

// SetUserRole handles PUT /api/admin/users/:uid/role
func (s *Server) SetUserRole(c *fiber.Ctx) error {
	var req struct {
		Role string `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	profile, err := s.profileService.SetRole(ctx, service.SetRoleInput{
		ActorUID:  currentUID(c),
		TargetUID: c.Params("uid"),
		Role:      req.Role,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(profile)
}

// ListStaff handles GET /api/admin/staff
func (s *Server) ListStaff(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	staff, err := s.profileService.ListStaff(ctx)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(staff)
}

// GetLocations handles GET /api/locations
func (s *Server) GetLocations(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"states": s.catalog.States()})
}
