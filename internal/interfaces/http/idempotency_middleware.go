package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/inventory-core/internal/application/dto"
)

// HeaderIdempotencyKey header que toda operación de escritura debe traer.
const HeaderIdempotencyKey = "X-Idempotency-Key"

// LocalIdempotencyKey key en c.Locals con la clave ya validada.
const LocalIdempotencyKey = "idempotency_key"

// IdempotencyMiddleware exige la clave de idempotencia en escrituras. Su
// ausencia es un 400 del caller; el core recibe la clave como string plano.
func IdempotencyMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := strings.TrimSpace(c.Get(HeaderIdempotencyKey))
		if key == "" {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Code:    "MISSING_IDEMPOTENCY_KEY",
				Message: "header " + HeaderIdempotencyKey + " requerido",
			})
		}
		c.Locals(LocalIdempotencyKey, key)
		return c.Next()
	}
}

// GetIdempotencyKey devuelve la clave de idempotencia del contexto.
func GetIdempotencyKey(c *fiber.Ctx) string {
	v := c.Locals(LocalIdempotencyKey)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
