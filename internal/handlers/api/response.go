package api

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"kwtrack/internal/tracking"
)

// retryAfterSeconds is advertised to clients when an aggregation cannot be computed.
const retryAfterSeconds = 5

// jsonSuccess returns a 200 response with data wrapped in the standard envelope.
func jsonSuccess(c fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"data":   data,
	})
}

// jsonError returns an error response with the given HTTP status code.
func jsonError(c fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status": "error",
		"error":  message,
	})
}

// trackingError maps query-layer errors onto HTTP responses.
func trackingError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, tracking.ErrInvalidRange):
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, tracking.ErrNotFound):
		return jsonError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, tracking.ErrComputation):
		log.Printf("aggregation unavailable: %v", err)
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfterSeconds))
		return jsonError(c, fiber.StatusServiceUnavailable, "ranking data temporarily unavailable")
	default:
		log.Printf("unexpected tracking error: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal error")
	}
}
