package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/inventory-core/internal/application/dto"
	"github.com/tu-usuario/inventory-core/internal/domain"
)

// statusByCode traduce el código estable del error de dominio a status HTTP.
var statusByCode = map[string]int{
	"NOT_FOUND":     fiber.StatusNotFound,
	"INVALID_INPUT": fiber.StatusBadRequest,
	"FORBIDDEN":     fiber.StatusForbidden,

	"INVALID_QUANTITY":         fiber.StatusBadRequest,
	"INSUFFICIENT_STOCK":       fiber.StatusConflict,
	"INSUFFICIENT_AVAILABLE":   fiber.StatusConflict,
	"INSUFFICIENT_COST_LAYERS": fiber.StatusConflict,

	"INVALID_TRANSITION":         fiber.StatusConflict,
	"INVALID_STATE":              fiber.StatusConflict,
	"WAREHOUSE_MISMATCH":         fiber.StatusConflict,
	"ALLOCATE_IN_PROGRESS":       fiber.StatusConflict,
	"CANCEL_IN_PROGRESS":         fiber.StatusConflict,
	"FULFILL_IN_PROGRESS":        fiber.StatusConflict,
	"ALLOCATED_CANCEL_FORBIDDEN": fiber.StatusConflict,

	"IDEMPOTENCY_CONFLICT":   fiber.StatusConflict,
	"IDEMPOTENCY_INCOMPLETE": fiber.StatusConflict,
	"TX_RETRY_EXHAUSTED":     fiber.StatusConflict,

	"REVERSAL_NOT_POSSIBLE_CONSUMED": fiber.StatusConflict,
	"MISSING_LINE_MAPPING":           fiber.StatusConflict,

	"NEGATIVE_OVERRIDE_NOT_ALLOWED":     fiber.StatusForbidden,
	"NEGATIVE_OVERRIDE_REQUIRES_REASON": fiber.StatusConflict,
}

// respondError traduce un error de dominio a la respuesta HTTP. Errores no
// reconocidos responden 500 sin filtrar internos.
func respondError(c *fiber.Ctx, err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		status, ok := statusByCode[de.Code]
		if !ok {
			status = fiber.StatusInternalServerError
		}
		return c.Status(status).JSON(dto.ErrorResponse{Code: de.Code, Message: de.Message, Details: de.Details})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}
