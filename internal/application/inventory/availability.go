package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/inventory-core/internal/application/ports"
	"github.com/tu-usuario/inventory-core/internal/domain/entity"
	"github.com/tu-usuario/inventory-core/internal/domain/quantity"
	"github.com/tu-usuario/inventory-core/internal/domain/repository"
)

// AvailableInTx disponibilidad del bucket calculada desde los repositorios de
// la transacción actual: on-hand menos lo reservado sin cumplir de reservas
// OPEN/ALLOCATED. Es la única forma en que los caminos de escritura miran la
// disponibilidad; el caché jamás participa aquí.
func AvailableInTx(ctx context.Context, r ports.Repos, b entity.Bucket) (decimal.Decimal, error) {
	onHand, err := r.Movements.OnHand(ctx, b)
	if err != nil {
		return decimal.Zero, err
	}
	reserved, err := r.Reservations.SumActiveReserved(ctx, b)
	if err != nil {
		return decimal.Zero, err
	}
	return quantity.Sub(onHand, reserved), nil
}

// AvailabilityService camino de lectura: consulta el caché consultivo y, en
// miss, calcula desde los repositorios atados al pool y repuebla.
type AvailabilityService struct {
	movements    repository.MovementRepository
	reservations repository.ReservationRepository
	cache        ports.AvailabilityCache
	ttl          time.Duration
}

// NewAvailabilityService construye el servicio de lectura.
func NewAvailabilityService(movements repository.MovementRepository, reservations repository.ReservationRepository, cache ports.AvailabilityCache, ttl time.Duration) *AvailabilityService {
	return &AvailabilityService{movements: movements, reservations: reservations, cache: cache, ttl: ttl}
}

// Snapshot disponibilidad y on-hand de un bucket.
type Snapshot struct {
	OnHand    decimal.Decimal `json:"on_hand"`
	Reserved  decimal.Decimal `json:"reserved"`
	Available decimal.Decimal `json:"available"`
}

// Get devuelve el snapshot del bucket. El valor cacheado solo cubre Available;
// OnHand/Reserved siempre se leen de los repositorios.
func (s *AvailabilityService) Get(ctx context.Context, b entity.Bucket) (*Snapshot, error) {
	onHand, err := s.movements.OnHand(ctx, b)
	if err != nil {
		return nil, err
	}
	reserved, err := s.reservations.SumActiveReserved(ctx, b)
	if err != nil {
		return nil, err
	}
	available := quantity.Sub(onHand, reserved)
	s.cache.Set(ctx, b, available, s.ttl)
	return &Snapshot{OnHand: onHand, Reserved: reserved, Available: available}, nil
}

// GetAvailable devuelve solo la disponibilidad, sirviendo del caché si hay hit.
func (s *AvailabilityService) GetAvailable(ctx context.Context, b entity.Bucket) (decimal.Decimal, error) {
	if v, ok := s.cache.Get(ctx, b); ok {
		return v, nil
	}
	snap, err := s.Get(ctx, b)
	if err != nil {
		return decimal.Zero, err
	}
	return snap.Available, nil
}
