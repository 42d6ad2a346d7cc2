package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/inventory-core/internal/domain"
	"github.com/tu-usuario/inventory-core/internal/domain/entity"
	"github.com/tu-usuario/inventory-core/internal/domain/repository"
)

var _ repository.ReservationRepository = (*ReservationRepo)(nil)

// ReservationRepo implementación de reservas sobre PostgreSQL.
type ReservationRepo struct {
	q Querier
}

// NewReservationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewReservationRepository(q Querier) *ReservationRepo {
	return &ReservationRepo{q: q}
}

const reservationColumns = `id, tenant_id, item_id, location_id, uom, warehouse_id, status,
	quantity_reserved, quantity_fulfilled, requested_by, COALESCE(reference, ''), COALESCE(cancel_reason, ''),
	created_at, updated_at`

func scanReservation(row pgx.Row) (*entity.Reservation, error) {
	var res entity.Reservation
	err := row.Scan(&res.ID, &res.TenantID, &res.ItemID, &res.LocationID, &res.UOM,
		&res.WarehouseID, &res.Status, &res.QuantityReserved, &res.QuantityFulfilled,
		&res.RequestedBy, &res.Reference, &res.CancelReason, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Insert persiste una reserva nueva.
func (r *ReservationRepo) Insert(ctx context.Context, res *entity.Reservation) error {
	query := `
		INSERT INTO reservations (id, tenant_id, item_id, location_id, uom, warehouse_id, status,
			quantity_reserved, quantity_fulfilled, requested_by, reference, cancel_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query,
		res.ID, res.TenantID, res.ItemID, res.LocationID, res.UOM, res.WarehouseID, res.Status,
		res.QuantityReserved, res.QuantityFulfilled, res.RequestedBy,
		nullIfEmpty(res.Reference), nullIfEmpty(res.CancelReason), res.CreatedAt, res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

// GetByID obtiene una reserva sin bloquear.
func (r *ReservationRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE tenant_id = $1 AND id = $2`
	res, err := scanReservation(r.q.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound.WithDetails(map[string]any{"reservation_id": id})
		}
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

// GetForUpdate bloquea la fila de la reserva (SELECT FOR UPDATE) antes de una
// transición de estado.
func (r *ReservationRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*entity.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE tenant_id = $1 AND id = $2 FOR UPDATE`
	res, err := scanReservation(r.q.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound.WithDetails(map[string]any{"reservation_id": id})
		}
		return nil, fmt.Errorf("get reservation for update: %w", err)
	}
	return res, nil
}

// Update persiste estado, cantidades y motivo de una reserva.
func (r *ReservationRepo) Update(ctx context.Context, res *entity.Reservation) error {
	query := `
		UPDATE reservations
		SET status = $3, quantity_fulfilled = $4, cancel_reason = $5, updated_at = $6
		WHERE tenant_id = $1 AND id = $2`
	tag, err := r.q.Exec(ctx, query,
		res.TenantID, res.ID, res.Status, res.QuantityFulfilled,
		nullIfEmpty(res.CancelReason), res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound.WithDetails(map[string]any{"reservation_id": res.ID})
	}
	return nil
}

// SumActiveReserved Σ (reservado - cumplido) de reservas OPEN/ALLOCATED del bucket.
func (r *ReservationRepo) SumActiveReserved(ctx context.Context, b entity.Bucket) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(quantity_reserved - quantity_fulfilled), 0)
		FROM reservations
		WHERE tenant_id = $1 AND item_id = $2 AND location_id = $3 AND uom = $4
		  AND status IN ('OPEN', 'ALLOCATED')`
	var sum decimal.Decimal
	err := r.q.QueryRow(ctx, query, b.TenantID, b.ItemID, b.LocationID, b.UOM).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum active reserved: %w", err)
	}
	return sum, nil
}
