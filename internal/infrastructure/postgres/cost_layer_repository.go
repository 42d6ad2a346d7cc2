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

var _ repository.CostLayerRepository = (*CostLayerRepo)(nil)

// CostLayerRepo implementación de capas de costo sobre PostgreSQL.
// Los métodos *ForUpdate solo tienen sentido atados a una tx.
type CostLayerRepo struct {
	q Querier
}

// NewCostLayerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCostLayerRepository(q Querier) *CostLayerRepo {
	return &CostLayerRepo{q: q}
}

const costLayerColumns = `id, tenant_id, item_id, location_id, uom, remaining_quantity, unit_cost,
	layer_date, layer_sequence, source_movement_id, voided_at, created_at`

func scanCostLayer(row pgx.Row) (*entity.CostLayer, error) {
	var l entity.CostLayer
	err := row.Scan(&l.ID, &l.TenantID, &l.ItemID, &l.LocationID, &l.UOM,
		&l.RemainingQuantity, &l.UnitCost, &l.LayerDate, &l.LayerSequence,
		&l.SourceMovementID, &l.VoidedAt, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ListOpenForUpdate bloquea las capas abiertas del bucket en orden FIFO.
// El ORDER BY (layer_date, layer_sequence, id) es el desempate determinista
// del costeo; debe coincidir con inventory.LayerLess.
func (r *CostLayerRepo) ListOpenForUpdate(ctx context.Context, b entity.Bucket) ([]*entity.CostLayer, error) {
	query := `
		SELECT ` + costLayerColumns + `
		FROM cost_layers
		WHERE tenant_id = $1 AND item_id = $2 AND location_id = $3 AND uom = $4
		  AND remaining_quantity > 0 AND voided_at IS NULL
		ORDER BY layer_date ASC, layer_sequence ASC, id ASC
		FOR UPDATE`
	rows, err := r.q.Query(ctx, query, b.TenantID, b.ItemID, b.LocationID, b.UOM)
	if err != nil {
		return nil, fmt.Errorf("list open layers: %w", err)
	}
	defer rows.Close()

	var layers []*entity.CostLayer
	for rows.Next() {
		l, err := scanCostLayer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cost layer: %w", err)
		}
		layers = append(layers, l)
	}
	return layers, rows.Err()
}

// GetForUpdate bloquea una capa por id.
func (r *CostLayerRepo) GetForUpdate(ctx context.Context, tenantID, layerID string) (*entity.CostLayer, error) {
	query := `
		SELECT ` + costLayerColumns + `
		FROM cost_layers WHERE tenant_id = $1 AND id = $2
		FOR UPDATE`
	l, err := scanCostLayer(r.q.QueryRow(ctx, query, tenantID, layerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound.WithDetails(map[string]any{"layer_id": layerID})
		}
		return nil, fmt.Errorf("get layer for update: %w", err)
	}
	return l, nil
}

// Insert persiste una capa nueva.
func (r *CostLayerRepo) Insert(ctx context.Context, layer *entity.CostLayer) error {
	query := `
		INSERT INTO cost_layers (id, tenant_id, item_id, location_id, uom, remaining_quantity, unit_cost,
			layer_date, layer_sequence, source_movement_id, voided_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		layer.ID, layer.TenantID, layer.ItemID, layer.LocationID, layer.UOM,
		layer.RemainingQuantity, layer.UnitCost, layer.LayerDate, layer.LayerSequence,
		layer.SourceMovementID, layer.VoidedAt, layer.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert cost layer: %w", err)
	}
	return nil
}

// UpdateRemaining decrementa remaining_quantity. El CHECK >= 0 del esquema es
// la última línea de defensa; el motor nunca debería cruzarlo.
func (r *CostLayerRepo) UpdateRemaining(ctx context.Context, tenantID, layerID string, remaining decimal.Decimal) error {
	query := `UPDATE cost_layers SET remaining_quantity = $3 WHERE tenant_id = $1 AND id = $2`
	tag, err := r.q.Exec(ctx, query, tenantID, layerID, remaining)
	if err != nil {
		return fmt.Errorf("update remaining: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound.WithDetails(map[string]any{"layer_id": layerID})
	}
	return nil
}

// NextSequence siguiente layer_sequence del bucket.
func (r *CostLayerRepo) NextSequence(ctx context.Context, b entity.Bucket) (int64, error) {
	query := `
		SELECT COALESCE(MAX(layer_sequence), 0) + 1
		FROM cost_layers
		WHERE tenant_id = $1 AND item_id = $2 AND location_id = $3 AND uom = $4`
	var seq int64
	err := r.q.QueryRow(ctx, query, b.TenantID, b.ItemID, b.LocationID, b.UOM).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next layer sequence: %w", err)
	}
	return seq, nil
}

// InsertConsumption persiste un consumo (inmutable).
func (r *CostLayerRepo) InsertConsumption(ctx context.Context, c *entity.CostLayerConsumption) error {
	query := `
		INSERT INTO cost_layer_consumptions (id, tenant_id, cost_layer_id, movement_id, movement_line_id, quantity, unit_cost, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		c.ID, c.TenantID, c.CostLayerID, c.MovementID, c.MovementLineID,
		c.Quantity, c.UnitCost, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert consumption: %w", err)
	}
	return nil
}

// CountConsumptionsExcluding número de consumos contra la capa, excluyendo los
// del movimiento dado (el propio movimiento de reversión en curso).
func (r *CostLayerRepo) CountConsumptionsExcluding(ctx context.Context, tenantID, layerID, movementID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM cost_layer_consumptions
		WHERE tenant_id = $1 AND cost_layer_id = $2 AND movement_id <> $3`
	var n int
	err := r.q.QueryRow(ctx, query, tenantID, layerID, movementID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count consumptions: %w", err)
	}
	return n, nil
}

// InsertTransferLink persiste un link de traslado.
func (r *CostLayerRepo) InsertTransferLink(ctx context.Context, link *entity.CostLayerTransferLink) error {
	query := `
		INSERT INTO cost_layer_transfer_links (id, tenant_id, movement_id, out_line_id, source_layer_id, destination_layer_id, quantity, unit_cost, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		link.ID, link.TenantID, link.MovementID, link.OutLineID,
		link.SourceLayerID, link.DestinationLayerID, link.Quantity, link.UnitCost, link.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transfer link: %w", err)
	}
	return nil
}

// LinksByMovementForUpdate bloquea los links creados por un traslado, en orden
// estable por id para que reversiones concurrentes del mismo traslado (claves
// de idempotencia distintas) se serialicen de forma determinista.
func (r *CostLayerRepo) LinksByMovementForUpdate(ctx context.Context, tenantID, movementID string) ([]*entity.CostLayerTransferLink, error) {
	query := `
		SELECT id, tenant_id, movement_id, out_line_id, source_layer_id, destination_layer_id, quantity, unit_cost, created_at
		FROM cost_layer_transfer_links
		WHERE tenant_id = $1 AND movement_id = $2
		ORDER BY id ASC
		FOR UPDATE`
	rows, err := r.q.Query(ctx, query, tenantID, movementID)
	if err != nil {
		return nil, fmt.Errorf("links by movement: %w", err)
	}
	defer rows.Close()

	var links []*entity.CostLayerTransferLink
	for rows.Next() {
		var l entity.CostLayerTransferLink
		if err := rows.Scan(&l.ID, &l.TenantID, &l.MovementID, &l.OutLineID,
			&l.SourceLayerID, &l.DestinationLayerID, &l.Quantity, &l.UnitCost, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transfer link: %w", err)
		}
		links = append(links, &l)
	}
	return links, rows.Err()
}
