package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/inventory-core/internal/domain/entity"
	"github.com/tu-usuario/inventory-core/internal/domain/repository"
)

// Repos repositorios atados a una misma transacción.
type Repos struct {
	Movements    repository.MovementRepository
	CostLayers   repository.CostLayerRepository
	Reservations repository.ReservationRepository
	Catalog      repository.CatalogRepository
	Idempotency  repository.IdempotencyRepository
}

// TxRunner ejecuta fn dentro de una transacción de BD con aislamiento
// serializable, pasando repositorios atados a esa tx. Garantiza atomicidad:
// o todas las escrituras del callback comprometen o ninguna.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
}

// AvailabilityCache caché consultivo de disponibilidad por bucket. Nunca es
// fuente de verdad: los caminos de escritura recalculan bajo lock desde los
// repositorios y solo lo invalidan; únicamente el endpoint de lectura lo
// consulta.
type AvailabilityCache interface {
	Get(ctx context.Context, b entity.Bucket) (decimal.Decimal, bool)
	Set(ctx context.Context, b entity.Bucket, available decimal.Decimal, ttl time.Duration)
	Invalidate(ctx context.Context, b entity.Bucket)
}

// OperationLocker lock consultivo por recurso para detectar operaciones
// concurrentes en vuelo sobre la misma reserva (allocate/cancel/fulfill).
// TryLock no espera: devuelve ok=false de inmediato si otro worker lo tiene.
type OperationLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}
