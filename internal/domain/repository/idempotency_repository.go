package repository

import (
	"context"

	"github.com/tu-usuario/inventory-core/internal/domain/entity"
)

// IdempotencyRepository puerto del protocolo de posteo idempotente.
type IdempotencyRepository interface {
	// Claim intenta insertar el registro en estado PENDING. Si ya existe uno
	// para (tenant, operación, clave) devuelve ese registro y created=false;
	// el Executor decide entre replay, IDEMPOTENCY_CONFLICT o
	// IDEMPOTENCY_INCOMPLETE.
	Claim(ctx context.Context, rec *entity.IdempotencyRecord) (existing *entity.IdempotencyRecord, created bool, err error)
	// Complete marca el registro COMPLETED y guarda el resultado serializado.
	Complete(ctx context.Context, tenantID, operation, key string, result []byte) error
	// Release elimina un registro PENDING cuyo intento falló con error de
	// negocio (sin efectos), para que el caller pueda reintentar con la misma
	// clave tras corregir el request.
	Release(ctx context.Context, tenantID, operation, key string) error
}
