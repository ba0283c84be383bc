package handlers

import (
	"errors"
	"strconv"

	"labventory/internal/authz"
	checkInOutController "labventory/internal/controllers/checkInOut"
	"labventory/internal/models"
	"labventory/internal/repositories"
	"labventory/internal/services"
	"labventory/internal/utils"
	"labventory/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var (
	errInvalidBody = errors.New("invalid request body")
	errInvalidID   = errors.New("invalid id")
)

// badRequest errors carry a message that is safe to echo to the caller
var badRequest = []error{
	errInvalidBody,
	errInvalidID,
	utils.ErrValidation,
	authz.ErrInvalidRole,
	models.ErrInvalidItemType,
	models.ErrInvalidStatus,
	models.ErrInvalidHazardLevel,
	models.ErrInvalidPriority,
	models.ErrNegativeQuantity,
	models.ErrInvalidAction,
	services.ErrInvalidResolution,
	services.ErrInvalidImportInput,
	services.ErrInvalidReportType,
	services.ErrInvalidReportFormat,
	services.ErrWeakPassword,
	services.ErrEmptyQRPayload,
	checkInOutController.ErrPurposeRequired,
	checkInOutController.ErrInvalidQuantity,
	checkInOutController.ErrFractionalAmount,
	checkInOutController.ErrItemRequired,
}

// respondError maps domain errors onto status codes. Anything unrecognised is
// logged and answered with the generic fallback message.
func respondError(c *fiber.Ctx, log logger.Logger, err error, fallback string) error {
	var duplicateErr *services.DuplicateError
	if errors.As(err, &duplicateErr) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":     duplicateErr.Error(),
			"duplicate": duplicateErr.Result,
		})
	}

	for _, target := range badRequest {
		if errors.Is(err, target) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}

	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	case errors.Is(err, authz.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Insufficient permissions"})
	case errors.Is(err, services.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, checkInOutController.ErrItemUnavailable):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}

	log.Er(fallback, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallback})
}

// parseBody decodes the JSON body and runs the validate tags
func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return errInvalidBody
	}
	return utils.ValidateStruct(out)
}

func parseID(c *fiber.Ctx, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil {
		return uuid.Nil, errInvalidID
	}
	return id, nil
}

func queryUUID(c *fiber.Ctx, key string) (*uuid.UUID, error) {
	value := c.Query(key)
	if value == "" {
		return nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, errInvalidID
	}
	return &id, nil
}

func queryInt(c *fiber.Ctx, key string) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil || value < 0 {
		return 0
	}
	return value
}
