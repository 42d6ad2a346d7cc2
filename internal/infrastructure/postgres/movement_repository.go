package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/inventory-core/internal/domain"
	"github.com/tu-usuario/inventory-core/internal/domain/entity"
	"github.com/tu-usuario/inventory-core/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo implementación del ledger sobre PostgreSQL (usable con pool o tx).
// Solo INSERT y SELECT: el ledger es append-only por esquema y por contrato.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Insert persiste la cabecera del movimiento.
func (r *MovementRepo) Insert(ctx context.Context, mov *entity.Movement) error {
	query := `
		INSERT INTO movements (id, tenant_id, type, status, reference, occurred_at, posted_at, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		mov.ID, mov.TenantID, mov.Type, mov.Status, nullIfEmpty(mov.Reference),
		mov.OccurredAt, mov.PostedAt, mov.CreatedAt, mov.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

// InsertLines persiste las líneas del movimiento.
func (r *MovementRepo) InsertLines(ctx context.Context, lines []*entity.MovementLine) error {
	query := `
		INSERT INTO movement_lines (id, movement_id, item_id, location_id, uom, quantity_delta, unit_cost, reason_code, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for _, l := range lines {
		_, err := r.q.Exec(ctx, query,
			l.ID, l.MovementID, l.ItemID, l.LocationID, l.UOM,
			l.QuantityDelta, l.UnitCost, nullIfEmpty(l.ReasonCode), nullIfEmpty(l.Notes),
		)
		if err != nil {
			return fmt.Errorf("insert movement line: %w", err)
		}
	}
	return nil
}

// GetByID obtiene una cabecera por tenant e id.
func (r *MovementRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.Movement, error) {
	query := `
		SELECT id, tenant_id, type, status, COALESCE(reference, ''), occurred_at, posted_at, created_at, created_by
		FROM movements WHERE tenant_id = $1 AND id = $2`
	var m entity.Movement
	err := r.q.QueryRow(ctx, query, tenantID, id).Scan(
		&m.ID, &m.TenantID, &m.Type, &m.Status, &m.Reference,
		&m.OccurredAt, &m.PostedAt, &m.CreatedAt, &m.CreatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound.WithDetails(map[string]any{"movement_id": id})
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	return &m, nil
}

// GetLines obtiene las líneas de un movimiento en orden estable.
func (r *MovementRepo) GetLines(ctx context.Context, tenantID, movementID string) ([]*entity.MovementLine, error) {
	query := `
		SELECT l.id, l.movement_id, l.item_id, l.location_id, l.uom, l.quantity_delta, l.unit_cost,
		       COALESCE(l.reason_code, ''), COALESCE(l.notes, '')
		FROM movement_lines l
		JOIN movements m ON m.id = l.movement_id
		WHERE m.tenant_id = $1 AND l.movement_id = $2
		ORDER BY l.item_id, l.location_id, l.uom, l.id`
	rows, err := r.q.Query(ctx, query, tenantID, movementID)
	if err != nil {
		return nil, fmt.Errorf("get movement lines: %w", err)
	}
	defer rows.Close()

	var lines []*entity.MovementLine
	for rows.Next() {
		var l entity.MovementLine
		if err := rows.Scan(&l.ID, &l.MovementID, &l.ItemID, &l.LocationID, &l.UOM,
			&l.QuantityDelta, &l.UnitCost, &l.ReasonCode, &l.Notes); err != nil {
			return nil, fmt.Errorf("scan movement line: %w", err)
		}
		lines = append(lines, &l)
	}
	return lines, rows.Err()
}

// OnHand agrega Σ quantity_delta de líneas cuyo movimiento está POSTED.
// Agregación pura: los balances jamás se "parchan"; corregir es postear el
// movimiento opuesto.
func (r *MovementRepo) OnHand(ctx context.Context, b entity.Bucket) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(l.quantity_delta), 0)
		FROM movement_lines l
		JOIN movements m ON m.id = l.movement_id
		WHERE m.tenant_id = $1 AND m.status = 'POSTED'
		  AND l.item_id = $2 AND l.location_id = $3 AND l.uom = $4`
	var sum decimal.Decimal
	err := r.q.QueryRow(ctx, query, b.TenantID, b.ItemID, b.LocationID, b.UOM).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("on-hand: %w", err)
	}
	return sum, nil
}

// ListByBucket lista líneas posteadas de un bucket en un rango de fechas.
func (r *MovementRepo) ListByBucket(ctx context.Context, b entity.Bucket, from, to *time.Time, limit, offset int) ([]*entity.MovementLine, error) {
	query := `
		SELECT l.id, l.movement_id, l.item_id, l.location_id, l.uom, l.quantity_delta, l.unit_cost,
		       COALESCE(l.reason_code, ''), COALESCE(l.notes, '')
		FROM movement_lines l
		JOIN movements m ON m.id = l.movement_id
		WHERE m.tenant_id = $1 AND m.status = 'POSTED'
		  AND l.item_id = $2 AND l.location_id = $3 AND l.uom = $4`
	args := []any{b.TenantID, b.ItemID, b.LocationID, b.UOM}
	pos := 5
	if from != nil {
		query += fmt.Sprintf(" AND m.occurred_at >= $%d", pos)
		args = append(args, *from)
		pos++
	}
	if to != nil {
		query += fmt.Sprintf(" AND m.occurred_at < $%d", pos)
		args = append(args, *to)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY m.occurred_at DESC, l.id LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list by bucket: %w", err)
	}
	defer rows.Close()

	var lines []*entity.MovementLine
	for rows.Next() {
		var l entity.MovementLine
		if err := rows.Scan(&l.ID, &l.MovementID, &l.ItemID, &l.LocationID, &l.UOM,
			&l.QuantityDelta, &l.UnitCost, &l.ReasonCode, &l.Notes); err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}
		lines = append(lines, &l)
	}
	return lines, rows.Err()
}

// nullIfEmpty devuelve nil para strings vacíos (columnas NULLables).
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
