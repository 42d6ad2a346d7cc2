package posting_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/inventory-core/internal/application/posting"
	"github.com/tu-usuario/inventory-core/internal/domain"
)

func TestRetry_ExitoInmediato(t *testing.T) {
	calls := 0
	err := posting.Retry(context.Background(), quickPolicy(5), func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_SoloReintentaConflictosMarcados(t *testing.T) {
	boom := errors.New("violación de regla")
	calls := 0
	err := posting.Retry(context.Background(), quickPolicy(5), func(ctx context.Context) error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls, "un error de negocio sale de inmediato")
}

func TestRetry_ConflictoTransitorio_Recupera(t *testing.T) {
	calls := 0
	err := posting.Retry(context.Background(), quickPolicy(5), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return domain.RetryableConflict(errors.New("serialization failure"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_Agotamiento_DevuelveExhausted(t *testing.T) {
	calls := 0
	err := posting.Retry(context.Background(), quickPolicy(3), func(ctx context.Context) error {
		calls++
		return domain.RetryableConflict(errors.New("serialization failure"))
	})
	require.ErrorIs(t, err, domain.ErrTxRetryExhausted)
	assert.ErrorIs(t, err, domain.ErrRetryableConflict, "el agotamiento conserva la causa")
	assert.Equal(t, 3, calls)
}

func TestRetry_ContextoCancelado_Corta(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := posting.Retry(ctx, quickPolicy(5), func(ctx context.Context) error {
		t.Fatal("no debe ejecutarse con contexto cancelado")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetry_TiempoTotalAcotado(t *testing.T) {
	p := posting.RetryPolicy{
		MaxAttempts: 100,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
		MaxElapsed:  20 * time.Millisecond,
	}
	calls := 0
	err := posting.Retry(context.Background(), p, func(ctx context.Context) error {
		calls++
		time.Sleep(5 * time.Millisecond)
		return domain.RetryableConflict(errors.New("serialization failure"))
	})
	require.ErrorIs(t, err, domain.ErrTxRetryExhausted)
	assert.Less(t, calls, 100, "MaxElapsed corta antes de agotar los intentos")
}
