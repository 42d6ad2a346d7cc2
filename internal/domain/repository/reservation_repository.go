package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/inventory-core/internal/domain/entity"
)

// ReservationRepository puerto de persistencia de reservas. Las reservas nunca
// se borran; CANCELED queda retenida para auditoría.
type ReservationRepository interface {
	Insert(ctx context.Context, r *entity.Reservation) error
	GetByID(ctx context.Context, tenantID, id string) (*entity.Reservation, error)
	// GetForUpdate bloquea la fila de la reserva (SELECT FOR UPDATE) antes de
	// cualquier transición de estado.
	GetForUpdate(ctx context.Context, tenantID, id string) (*entity.Reservation, error)
	Update(ctx context.Context, r *entity.Reservation) error
	// SumActiveReserved Σ (reservado - cumplido) de reservas OPEN/ALLOCATED del
	// bucket; se resta del on-hand para calcular disponibilidad.
	SumActiveReserved(ctx context.Context, b entity.Bucket) (decimal.Decimal, error)
}

// CatalogRepository consultas de catálogo que el core necesita para validar
// (existencia y pertenencia al tenant de items, bodegas y ubicaciones).
type CatalogRepository interface {
	GetItem(ctx context.Context, tenantID, itemID string) (*entity.Item, error)
	GetWarehouse(ctx context.Context, tenantID, warehouseID string) (*entity.Warehouse, error)
	GetLocation(ctx context.Context, tenantID, locationID string) (*entity.Location, error)
}
