package middleware

import (
	"ash-trivia/internal/validation"

	"github.com/gofiber/fiber/v2"
)

const ValidatedIDKey = "validated_id"

// ValidationMiddleware provides request validation middleware
type ValidationMiddleware struct {
	validator *validation.Validator
}

func NewValidationMiddleware(v *validation.Validator) *ValidationMiddleware {
	if v == nil {
		v = validation.NewValidator()
	}
	return &ValidationMiddleware{validator: v}
}

// ValidateParamID checks the :id path parameter and stores it as int64.
func (vm *ValidationMiddleware) ValidateParamID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := validation.ParseID("id", c.Params("id"))
		if err != nil {
			return err // handled by ErrorHandler
		}
		c.Locals(ValidatedIDKey, id)
		return c.Next()
	}
}

// ParamID returns the id stored by ValidateParamID.
func ParamID(c *fiber.Ctx) int64 {
	id, _ := c.Locals(ValidatedIDKey).(int64)
	return id
}

// BindJSON parses the request body into dst and validates it.
func (vm *ValidationMiddleware) BindJSON(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return vm.validator.Struct(dst)
}

// BindQuery parses query parameters into dst and validates them.
func (vm *ValidationMiddleware) BindQuery(c *fiber.Ctx, dst any) error {
	if err := c.QueryParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query parameters")
	}
	return vm.validator.Struct(dst)
}
