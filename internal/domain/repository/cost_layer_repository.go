package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/inventory-core/internal/domain/entity"
)

// CostLayerRepository puerto de persistencia del motor de capas de costo.
// Los métodos *ForUpdate emiten SELECT ... FOR UPDATE y solo tienen sentido
// dentro de una transacción (repositorio atado a la tx por el TxRunner).
type CostLayerRepository interface {
	// ListOpenForUpdate bloquea las capas del bucket con remaining > 0 y sin
	// anular, en orden (layer_date ASC, layer_sequence ASC, id ASC). Ese orden
	// es el desempate FIFO y debe ser determinista para costeo reproducible.
	ListOpenForUpdate(ctx context.Context, b entity.Bucket) ([]*entity.CostLayer, error)
	GetForUpdate(ctx context.Context, tenantID, layerID string) (*entity.CostLayer, error)
	Insert(ctx context.Context, layer *entity.CostLayer) error
	UpdateRemaining(ctx context.Context, tenantID, layerID string, remaining decimal.Decimal) error
	// NextSequence siguiente layer_sequence para el bucket en la fecha dada.
	NextSequence(ctx context.Context, b entity.Bucket) (int64, error)

	InsertConsumption(ctx context.Context, c *entity.CostLayerConsumption) error
	// CountConsumptionsExcluding número de consumos registrados contra la capa,
	// excluyendo los del movimiento dado. Cualquier consumo ajeno bloquea la
	// reversión del traslado que la creó.
	CountConsumptionsExcluding(ctx context.Context, tenantID, layerID, movementID string) (int, error)

	InsertTransferLink(ctx context.Context, link *entity.CostLayerTransferLink) error
	// LinksByMovementForUpdate bloquea los links creados por un traslado para
	// caminar la cadena al revertir.
	LinksByMovementForUpdate(ctx context.Context, tenantID, movementID string) ([]*entity.CostLayerTransferLink, error)
}
