package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/veltacrm/whatsapp-bridge/pkg/log"
)

// Response is the uniform handler envelope. Every bridging handler returns at
// least success and, on failure, error.
type Response struct {
	Success bool        `json:"success"`
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func logSuccess(c *fiber.Ctx, code int, message string) {
	statusMessage := http.StatusText(code)

	if statusMessage == message {
		log.Print(c).Info(fmt.Sprintf("%d %v", code, statusMessage))
	} else {
		log.Print(c).Info(fmt.Sprintf("%d %v", code, message))
	}
}

func logError(c *fiber.Ctx, code int, message string) {
	statusMessage := http.StatusText(code)

	if statusMessage == message {
		log.Print(c).Error(fmt.Sprintf("%d %v", code, statusMessage))
	} else {
		log.Print(c).Error(fmt.Sprintf("%d %v", code, message))
	}
}

func respondSuccess(c *fiber.Ctx, code int, message string, data interface{}) error {
	if strings.TrimSpace(message) == "" {
		message = http.StatusText(code)
	}
	response := Response{
		Success: true,
		Code:    code,
		Message: message,
		Data:    data,
	}

	logSuccess(c, response.Code, response.Message)
	return c.Status(response.Code).JSON(response)
}

func respondError(c *fiber.Ctx, code int, message string) error {
	if strings.TrimSpace(message) == "" {
		message = http.StatusText(code)
	}
	response := Response{
		Success: false,
		Code:    code,
		Message: message,
		Error:   message,
	}

	logError(c, response.Code, response.Message)
	return c.Status(response.Code).JSON(response)
}

func ResponseSuccess(c *fiber.Ctx, message string) error {
	return respondSuccess(c, http.StatusOK, message, nil)
}

func ResponseSuccessWithData(c *fiber.Ctx, message string, data interface{}) error {
	return respondSuccess(c, http.StatusOK, message, data)
}

func ResponseCreatedWithData(c *fiber.Ctx, message string, data interface{}) error {
	return respondSuccess(c, http.StatusCreated, message, data)
}

func ResponseNoContent(c *fiber.Ctx) error {
	return c.SendStatus(http.StatusNoContent)
}

func ResponseBadRequest(c *fiber.Ctx, message string) error {
	return respondError(c, http.StatusBadRequest, message)
}

func ResponseUnauthorized(c *fiber.Ctx, message string) error {
	return respondError(c, http.StatusUnauthorized, message)
}

func ResponseForbidden(c *fiber.Ctx, message string) error {
	return respondError(c, http.StatusForbidden, message)
}

func ResponseNotFound(c *fiber.Ctx, message string) error {
	return respondError(c, http.StatusNotFound, message)
}

// ResponseRequestTimeout reports the distinct timeout outcome used by the
// session-create path. A 408 does not imply the backend failed.
func ResponseRequestTimeout(c *fiber.Ctx, message string) error {
	return respondError(c, http.StatusRequestTimeout, message)
}

func ResponseInternalError(c *fiber.Ctx, message string) error {
	return respondError(c, http.StatusInternalServerError, message)
}

func ResponseBadGateway(c *fiber.Ctx, message string) error {
	return respondError(c, http.StatusBadGateway, message)
}
