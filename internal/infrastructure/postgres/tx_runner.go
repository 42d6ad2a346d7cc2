package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tu-usuario/inventory-core/internal/application/ports"
	"github.com/tu-usuario/inventory-core/internal/domain"
)

// Ensure TxRunner implementa ports.TxRunner.
var _ ports.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL serializable
// con repositorios atados a la tx. Los conflictos de serialización (40001) y
// deadlocks (40P01) salen marcados como RETRYABLE_CONFLICT para que el wrapper
// de reintentos del protocolo de posteo los reintente con backoff.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia la transacción, ejecuta fn con repos atados a la tx y hace Commit
// o Rollback. Nada escrito dentro de un intento fallido es observable fuera.
func (r *TxRunner) Run(ctx context.Context, fn func(ctx context.Context, repos ports.Repos) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	repos := ports.Repos{
		Movements:    NewMovementRepository(tx),
		CostLayers:   NewCostLayerRepository(tx),
		Reservations: NewReservationRepository(tx),
		Catalog:      NewCatalogRepository(tx),
		Idempotency:  NewIdempotencyRepository(tx),
	}

	if err := fn(ctx, repos); err != nil {
		if isSerializationFailure(err) {
			return domain.RetryableConflict(err)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		if isSerializationFailure(err) {
			return domain.RetryableConflict(err)
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
