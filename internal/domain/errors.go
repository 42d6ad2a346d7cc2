package domain

import (
	"errors"
	"fmt"
)

// Error de dominio con código estable legible por máquina.
// El código cruza la frontera del core (la capa HTTP lo traduce a status);
// Details lleva contexto saneado: nunca SQL, stack traces ni internos del driver.
type Error struct {
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is permite errors.Is contra el sentinel del mismo código.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithDetails devuelve una copia del error con detalles adicionales.
func (e *Error) WithDetails(details map[string]any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details}
}

// Errores de dominio (sin dependencias externas). Cada uno es un sentinel
// comparable con errors.Is; usar WithDetails para adjuntar contexto por llamada.
var (
	ErrNotFound     = &Error{Code: "NOT_FOUND", Message: "recurso no encontrado"}
	ErrInvalidInput = &Error{Code: "INVALID_INPUT", Message: "entrada inválida"}
	ErrForbidden    = &Error{Code: "FORBIDDEN", Message: "acceso denegado"}

	// Cantidades y disponibilidad
	ErrInvalidQuantity        = &Error{Code: "INVALID_QUANTITY", Message: "cantidad inválida"}
	ErrInsufficientStock      = &Error{Code: "INSUFFICIENT_STOCK", Message: "stock insuficiente"}
	ErrInsufficientAvailable  = &Error{Code: "INSUFFICIENT_AVAILABLE", Message: "disponibilidad insuficiente"}
	ErrInsufficientCostLayers = &Error{Code: "INSUFFICIENT_COST_LAYERS", Message: "capas de costo insuficientes"}

	// Máquina de estados de reservas
	ErrInvalidTransition        = &Error{Code: "INVALID_TRANSITION", Message: "transición de estado ilegal"}
	ErrInvalidState             = &Error{Code: "INVALID_STATE", Message: "estado inválido para la operación"}
	ErrWarehouseMismatch        = &Error{Code: "WAREHOUSE_MISMATCH", Message: "la bodega no coincide con la reserva"}
	ErrAllocateInProgress       = &Error{Code: "ALLOCATE_IN_PROGRESS", Message: "asignación concurrente en curso"}
	ErrCancelInProgress         = &Error{Code: "CANCEL_IN_PROGRESS", Message: "cancelación concurrente en curso"}
	ErrFulfillInProgress        = &Error{Code: "FULFILL_IN_PROGRESS", Message: "cumplimiento concurrente en curso"}
	ErrAllocatedCancelForbidden = &Error{Code: "ALLOCATED_CANCEL_FORBIDDEN", Message: "no se puede cancelar una reserva con cumplimiento parcial"}

	// Protocolo de idempotencia y reintentos
	ErrIdempotencyConflict   = &Error{Code: "IDEMPOTENCY_CONFLICT", Message: "payload distinto para la misma clave de idempotencia"}
	ErrIdempotencyIncomplete = &Error{Code: "IDEMPOTENCY_INCOMPLETE", Message: "intento anterior sin resolver; reintentar más tarde"}
	ErrTxRetryExhausted      = &Error{Code: "TX_RETRY_EXHAUSTED", Message: "reintentos de transacción agotados; seguro reintentar"}
	ErrRetryableConflict     = &Error{Code: "RETRYABLE_CONFLICT", Message: "conflicto de serialización; reintentable"}

	// Integridad de datos (no reintentable; requiere intervención de operador)
	ErrReversalNotPossibleConsumed = &Error{Code: "REVERSAL_NOT_POSSIBLE_CONSUMED", Message: "la capa destino ya fue consumida; reversión imposible"}
	ErrMissingLineMapping          = &Error{Code: "MISSING_LINE_MAPPING", Message: "falta mapeo de línea original a línea de reversión"}

	// Política de stock negativo
	ErrNegativeOverrideNotAllowed     = &Error{Code: "NEGATIVE_OVERRIDE_NOT_ALLOWED", Message: "el actor no puede autorizar stock negativo"}
	ErrNegativeOverrideRequiresReason = &Error{Code: "NEGATIVE_OVERRIDE_REQUIRES_REASON", Message: "autorizar stock negativo exige un motivo"}
)

// RetryableConflict marca err como conflicto transitorio reintentable
// preservando la causa para errors.Is/As.
func RetryableConflict(err error) error {
	return fmt.Errorf("%w: %w", ErrRetryableConflict, err)
}

// IsRetryable indica si el error amerita reintento interno de la transacción.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRetryableConflict)
}
