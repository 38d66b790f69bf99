package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/i474232898/weather-warehouse-api/internal/warehouse"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the failure kind and message.
type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ErrorHandler maps handler errors to status codes: warehouse connection
// failures to 503, query failures and anything unexpected to 500, fiber errors
// to their own code.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		kind := "internal"

		var fe *fiber.Error
		switch k, ok := warehouse.KindOf(err); {
		case ok && k == warehouse.KindConnection:
			code = fiber.StatusServiceUnavailable
			kind = string(k)
		case ok:
			kind = string(k)
		case errors.As(err, &fe):
			code = fe.Code
			kind = "http"
		}

		if code >= fiber.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Int("status", code),
				zap.Error(err),
			)
		}

		return c.Status(code).JSON(ErrorBody{
			Error: ErrorDetail{Kind: kind, Message: err.Error()},
		})
	}
}
