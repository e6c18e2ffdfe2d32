package router

import (
	"github.com/gofiber/fiber/v2"
)

func HttpErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()
	if fiberErr, ok := err.(*fiber.Error); ok {
		code = fiberErr.Code
		message = fiberErr.Message
	}
	response := &Response{
		Success: false,
		Code:    code,
		Message: message,
		Error:   message,
	}
	logError(c, response.Code, response.Message)
	return c.Status(response.Code).JSON(response)
}
