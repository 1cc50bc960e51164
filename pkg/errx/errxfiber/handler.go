// Package errxfiber renders errx errors from fiber handlers.
package errxfiber

import (
	"errors"

	"github.com/Abraxas-365/lingua/pkg/errx"
	"github.com/Abraxas-365/lingua/pkg/logx"
	"github.com/gofiber/fiber/v2"
)

// ErrorHandler is a fiber.Config ErrorHandler that writes errx.Response
// bodies. Internal errors are logged and never leak their cause.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(errx.Response{
			Code:      "http_error",
			Message:   fe.Message,
			RequestID: requestID(c),
		})
	}

	status, body := errx.ToResponse(err)
	body.RequestID = requestID(c)

	entry := logx.WithContext(c.UserContext()).WithFields(logx.Fields{
		"status": status,
		"code":   body.Code,
		"method": c.Method(),
		"path":   c.Path(),
	}).WithError(err)
	if status >= fiber.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}

	return c.Status(status).JSON(body)
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return c.Get(fiber.HeaderXRequestID)
}
