package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/inventory-core/internal/domain/entity"
)

// MovementRepository define el puerto de persistencia del ledger de movimientos.
// El ledger es append-only: cabeceras y líneas se insertan una sola vez; no hay
// Update ni Delete. La corrección de un movimiento posteado es siempre un
// movimiento nuevo con deltas opuestos.
type MovementRepository interface {
	Insert(ctx context.Context, mov *entity.Movement) error
	InsertLines(ctx context.Context, lines []*entity.MovementLine) error
	GetByID(ctx context.Context, tenantID, id string) (*entity.Movement, error)
	GetLines(ctx context.Context, tenantID, movementID string) ([]*entity.MovementLine, error)
	// OnHand agrega Σ quantity_delta sobre líneas cuyo movimiento está POSTED.
	OnHand(ctx context.Context, b entity.Bucket) (decimal.Decimal, error)
	ListByBucket(ctx context.Context, b entity.Bucket, from, to *time.Time, limit, offset int) ([]*entity.MovementLine, error)
}
