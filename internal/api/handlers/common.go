package handlers

import (
	"errors"

	"counto/internal/domain"
	"counto/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func getUserID(c *fiber.Ctx) (uuid.UUID, error) {
	userIDStr, ok := c.Locals(middleware.LocalUserID).(string)
	if !ok {
		return uuid.Nil, fiber.ErrUnauthorized
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, err
	}

	return userID, nil
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "Unauthorized",
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}

func pathID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	return id, err == nil
}

// respondError maps the domain error taxonomy onto HTTP statuses. Anything
// unrecognised is logged and reported as fallback.
func respondError(c *fiber.Ctx, logger *zap.Logger, err error, fallback string) error {
	var (
		notFound   *domain.ErrNotFound
		validation *domain.ErrValidation
		conflict   *domain.ErrConflict
		external   *domain.ErrExternalService
	)

	switch {
	case errors.As(err, &notFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": notFound.Error(),
		})
	case errors.As(err, &validation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": validation.Error(),
			"field": validation.Field,
		})
	case errors.As(err, &conflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": conflict.Error(),
		})
	case errors.As(err, &external):
		logger.Error(fallback, zap.Error(err), zap.String("service", external.Service))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Upstream service unavailable",
		})
	}

	logger.Error(fallback, zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": fallback,
	})
}
