package server

import (
	"bloodconnect/internal/models"
	"bloodconnect/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SendOTP handles POST /api/auth/otp/send
func (s *Server) SendOTP(c *fiber.Ctx) error {
	var req struct {
		CallingCode string `json:"callingCode"`
		Phone       string `json:"phone"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	challenge, err := s.authService.SendOTP(ctx, service.SendOTPInput{
		CallingCode: req.CallingCode,
		Phone:       req.Phone,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(challenge)
}

// ResendOTP handles POST /api/auth/otp/resend
func (s *Server) ResendOTP(c *fiber.Ctx) error {
	var req struct {
		VerificationID string `json:"verificationId"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	challenge, err := s.authService.ResendOTP(ctx, req.VerificationID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(challenge)
}

// VerifyOTP handles POST /api/auth/otp/verify
func (s *Server) VerifyOTP(c *fiber.Ctx) error {
	var req struct {
		VerificationID string `json:"verificationId"`
		Code           string `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := s.authService.VerifyOTP(ctx, service.VerifyOTPInput{
		VerificationID: req.VerificationID,
		Code:           req.Code,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(result)
}

// Me handles GET /api/auth/me
func (s *Server) Me(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	identity, err := s.authService.Me(ctx, currentUID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(identity)
}

// Refresh handles POST /api/auth/refresh
func (s *Server) Refresh(c *fiber.Ctx) error {
	claims := currentClaims(c)
	if claims == nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("A bearer token is required"))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := s.authService.Refresh(ctx, claims)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(result)
}

// Logout handles POST /api/auth/logout
func (s *Server) Logout(c *fiber.Ctx) error {
	claims := currentClaims(c)
	if claims == nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("A bearer token is required"))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := s.authService.Logout(ctx, claims); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
