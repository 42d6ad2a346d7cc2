package posting

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tu-usuario/inventory-core/internal/application/ports"
	"github.com/tu-usuario/inventory-core/internal/domain"
	"github.com/tu-usuario/inventory-core/internal/domain/entity"
	"github.com/tu-usuario/inventory-core/internal/domain/repository"
	"github.com/tu-usuario/inventory-core/pkg/logger"
)

// Executor envuelve cada operación mutante con el protocolo de posteo
// idempotente: a lo sumo un efecto semántico por (tenant, operación, clave).
//
// Secuencia: reclama el registro PENDING fuera de la transacción del efecto
// (así un reintento concurrente lo ve en vuelo), ejecuta el efecto dentro del
// TxRunner con reintentos acotados, y marca COMPLETED con el resultado EN LA
// MISMA transacción del efecto: o comprometen juntos o ninguno.
type Executor struct {
	runner ports.TxRunner
	idem   repository.IdempotencyRepository // atado al pool, fuera de la tx del efecto
	policy RetryPolicy
	log    *logger.Logger
	now    func() time.Time
}

// NewExecutor construye el executor. clock nil usa time.Now.
func NewExecutor(runner ports.TxRunner, idem repository.IdempotencyRepository, policy RetryPolicy, log *logger.Logger, clock func() time.Time) *Executor {
	if clock == nil {
		clock = time.Now
	}
	return &Executor{runner: runner, idem: idem, policy: policy, log: log, now: clock}
}

// Fingerprint huella SHA-256 del payload canónico (JSON). Un reintento con la
// misma clave pero huella distinta es IDEMPOTENCY_CONFLICT.
func Fingerprint(payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("serializar payload: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// Effect efecto de negocio a ejecutar una sola vez. Corre dentro de la
// transacción serializable; su valor de retorno se serializa como resultado
// almacenado y devuelto en cada replay.
type Effect func(ctx context.Context, r ports.Repos) (any, error)

// Execute aplica el protocolo. Devuelve el resultado JSON (original o replay).
func (e *Executor) Execute(ctx context.Context, tenantID, operation, key string, payload any, effect Effect) ([]byte, error) {
	if tenantID == "" || operation == "" || key == "" {
		return nil, domain.ErrInvalidInput
	}
	fp, err := Fingerprint(payload)
	if err != nil {
		return nil, err
	}

	rec := &entity.IdempotencyRecord{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		Operation:   operation,
		Key:         key,
		Fingerprint: fp,
		Status:      entity.IdempotencyStatusPENDING,
		CreatedAt:   e.now(),
	}
	existing, created, err := e.idem.Claim(ctx, rec)
	if err != nil {
		return nil, err
	}
	if !created {
		switch {
		case existing.Status == entity.IdempotencyStatusCOMPLETED && existing.Fingerprint == fp:
			// Replay: el efecto ya se aplicó; devolver el resultado original.
			return existing.Result, nil
		case existing.Status == entity.IdempotencyStatusCOMPLETED:
			return nil, domain.ErrIdempotencyConflict.WithDetails(map[string]any{"operation": operation})
		default:
			// PENDING: intento en vuelo o muerto a mitad de transacción; el
			// caller reintenta tras backoff en vez de asumir fallo.
			return nil, domain.ErrIdempotencyIncomplete.WithDetails(map[string]any{"operation": operation})
		}
	}

	var result []byte
	runErr := Retry(ctx, e.policy, func(ctx context.Context) error {
		return e.runner.Run(ctx, func(ctx context.Context, r ports.Repos) error {
			out, err := effect(ctx, r)
			if err != nil {
				return err
			}
			raw, err := json.Marshal(out)
			if err != nil {
				return fmt.Errorf("serializar resultado: %w", err)
			}
			if err := r.Idempotency.Complete(ctx, tenantID, operation, key, raw); err != nil {
				return err
			}
			result = raw
			return nil
		})
	})
	if runErr != nil {
		// Fallo deliberado sin efectos: liberar el registro para que el caller
		// pueda reintentar con la misma clave. Un crash no pasa por aquí y el
		// registro queda PENDING, que es exactamente la señal INCOMPLETE.
		if relErr := e.idem.Release(ctx, tenantID, operation, key); relErr != nil && e.log != nil {
			e.log.Warn().Err(relErr).Str("operation", operation).Msg("liberar registro de idempotencia")
		}
		if errors.Is(runErr, domain.ErrTxRetryExhausted) && e.log != nil {
			e.log.Warn().Str("operation", operation).Str("tenant_id", tenantID).Msg("reintentos de transacción agotados")
		}
		return nil, runErr
	}
	return result, nil
}
