package utils

import "github.com/gofiber/fiber/v2"

// APIResponse is the envelope every endpoint returns.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func send(c *fiber.Ctx, status int, response APIResponse) error {
	if response.Message == "" {
		if response.Success {
			response.Message = "success"
		} else {
			response.Message = "error"
		}
	}
	if status == 0 {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(response)
}

// SendSuccess writes a 200 envelope around data.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	return send(c, fiber.StatusOK, APIResponse{Success: true, Message: message, Data: data})
}

// SendSuccessWithStatus writes a success envelope with an explicit status.
func SendSuccessWithStatus(c *fiber.Ctx, status int, message string, data interface{}) error {
	return send(c, status, APIResponse{Success: true, Message: message, Data: data})
}

// SendError writes a failure envelope with the given status.
func SendError(c *fiber.Ctx, status int, message string) error {
	return send(c, status, APIResponse{Message: message})
}

// Fail writes a failure envelope carrying structured details, typically
// validation output.
func Fail(c *fiber.Ctx, status int, message string, details interface{}) error {
	return send(c, status, APIResponse{Message: message, Details: details})
}
