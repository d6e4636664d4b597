// handlers/respond.go - Shared response helpers
package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"teammatcher/apperr"
)

// fail maps a business error onto an HTTP status and the standard error
// envelope. System errors are logged with their cause and surfaced opaquely.
func fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch apperr.CodeOf(err) {
	case apperr.CodeInvalidArgument:
		status = fiber.StatusBadRequest
	case apperr.CodeNotFound:
		status = fiber.StatusNotFound
	case apperr.CodePermissionDenied:
		status = fiber.StatusForbidden
	case apperr.CodeUnavailable:
		status = fiber.StatusServiceUnavailable
	case apperr.CodeSystem:
		log.Printf("%s %s failed: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   apperr.MessageOf(err),
	})
}

func ok(c *fiber.Ctx, data fiber.Map) error {
	body := fiber.Map{"success": true}
	for k, v := range data {
		body[k] = v
	}
	return c.JSON(body)
}
