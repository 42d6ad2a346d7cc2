package posting

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/tu-usuario/inventory-core/internal/domain"
)

// RetryPolicy acota los reintentos internos ante conflictos de serialización:
// número de intentos, backoff exponencial con jitter y tiempo total.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	MaxElapsed  time.Duration
}

// DefaultRetryPolicy valores razonables para cargas con contención moderada.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseBackoff: 20 * time.Millisecond,
		MaxBackoff:  500 * time.Millisecond,
		MaxElapsed:  5 * time.Second,
	}
}

// backoff backoff exponencial con jitter completo: uniforme en [0, base*2^n],
// techo en MaxBackoff.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := p.BaseBackoff << uint(attempt)
	if d <= 0 || d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	return time.Duration(rand.Int63n(int64(d) + 1))
}

// Retry ejecuta fn reintentando solo errores marcados RETRYABLE_CONFLICT
// (la infraestructura mapea los códigos 40001/40P01 de Postgres a esa marca).
// Errores de negocio salen de inmediato. Al agotar intentos o tiempo devuelve
// TX_RETRY_EXHAUSTED, que el caller debe tratar como reintentable, no como
// fallo permanente.
func Retry(ctx context.Context, p RetryPolicy, fn func(ctx context.Context) error) error {
	start := time.Now()
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !domain.IsRetryable(lastErr) {
			return lastErr
		}
		if p.MaxElapsed > 0 && time.Since(start) >= p.MaxElapsed {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.backoff(attempt)):
		}
	}
	return fmt.Errorf("%w: %w", domain.ErrTxRetryExhausted, lastErr)
}
