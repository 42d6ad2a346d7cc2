package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/inventory-core/internal/domain"
	"github.com/tu-usuario/inventory-core/internal/domain/entity"
	"github.com/tu-usuario/inventory-core/internal/domain/repository"
)

var _ repository.IdempotencyRepository = (*IdempotencyRepo)(nil)

// IdempotencyRepo registros de idempotencia sobre PostgreSQL. El índice único
// (tenant_id, operation, idempotency_key) es quien arbitra la carrera entre
// dos requests concurrentes con la misma clave.
type IdempotencyRepo struct {
	q Querier
}

func NewIdempotencyRepository(q Querier) *IdempotencyRepo {
	return &IdempotencyRepo{q: q}
}

const idempotencyColumns = `id, tenant_id, operation, idempotency_key, fingerprint, status, result, created_at, completed_at`

func scanIdempotencyRecord(row pgx.Row) (*entity.IdempotencyRecord, error) {
	var rec entity.IdempotencyRecord
	err := row.Scan(&rec.ID, &rec.TenantID, &rec.Operation, &rec.Key, &rec.Fingerprint,
		&rec.Status, &rec.Result, &rec.CreatedAt, &rec.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Claim intenta insertar el registro PENDING. Si la clave ya existe, devuelve
// el registro ganador para que el Executor resuelva replay o conflicto.
func (r *IdempotencyRepo) Claim(ctx context.Context, rec *entity.IdempotencyRecord) (*entity.IdempotencyRecord, bool, error) {
	query := `
		INSERT INTO idempotency_records (id, tenant_id, operation, idempotency_key, fingerprint, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		rec.ID, rec.TenantID, rec.Operation, rec.Key, rec.Fingerprint, rec.Status, rec.CreatedAt,
	)
	if err == nil {
		return nil, true, nil
	}
	if !isUniqueViolation(err) {
		return nil, false, fmt.Errorf("claim idempotency record: %w", err)
	}

	lookup := `
		SELECT ` + idempotencyColumns + `
		FROM idempotency_records
		WHERE tenant_id = $1 AND operation = $2 AND idempotency_key = $3`
	existing, err := scanIdempotencyRecord(r.q.QueryRow(ctx, lookup, rec.TenantID, rec.Operation, rec.Key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// El registro ganador fue liberado entre el INSERT y el SELECT;
			// el caller reintenta el claim completo.
			return nil, false, domain.RetryableConflict(err)
		}
		return nil, false, fmt.Errorf("lookup idempotency record: %w", err)
	}
	return existing, false, nil
}

// Complete marca COMPLETED y guarda el resultado. Se ejecuta dentro de la
// misma transacción que los efectos del posteo.
func (r *IdempotencyRepo) Complete(ctx context.Context, tenantID, operation, key string, result []byte) error {
	query := `
		UPDATE idempotency_records
		SET status = 'COMPLETED', result = $4, completed_at = NOW()
		WHERE tenant_id = $1 AND operation = $2 AND idempotency_key = $3 AND status = 'PENDING'`
	tag, err := r.q.Exec(ctx, query, tenantID, operation, key, result)
	if err != nil {
		return fmt.Errorf("complete idempotency record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound.WithDetails(map[string]any{"operation": operation, "idempotency_key": key})
	}
	return nil
}

// Release borra el registro PENDING de un intento que falló sin efectos.
func (r *IdempotencyRepo) Release(ctx context.Context, tenantID, operation, key string) error {
	query := `
		DELETE FROM idempotency_records
		WHERE tenant_id = $1 AND operation = $2 AND idempotency_key = $3 AND status = 'PENDING'`
	if _, err := r.q.Exec(ctx, query, tenantID, operation, key); err != nil {
		return fmt.Errorf("release idempotency record: %w", err)
	}
	return nil
}
