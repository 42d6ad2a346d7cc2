package cache

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/inventory-core/internal/domain/entity"
)

func testBucket() entity.Bucket {
	return entity.Bucket{TenantID: "t-1", ItemID: "i-1", LocationID: "l-1", UOM: "EA"}
}

func TestMemoryAvailabilityCache_SetGetInvalidate(t *testing.T) {
	c := NewMemoryAvailabilityCache()
	ctx := context.Background()

	_, ok := c.Get(ctx, testBucket())
	assert.False(t, ok, "caché vacío es miss")

	c.Set(ctx, testBucket(), decimal.NewFromInt(70), time.Minute)
	v, ok := c.Get(ctx, testBucket())
	require.True(t, ok)
	assert.True(t, v.Equal(decimal.NewFromInt(70)))

	c.Invalidate(ctx, testBucket())
	_, ok = c.Get(ctx, testBucket())
	assert.False(t, ok)
}

func TestMemoryAvailabilityCache_TTLExpira(t *testing.T) {
	c := NewMemoryAvailabilityCache()
	ctx := context.Background()

	c.Set(ctx, testBucket(), decimal.NewFromInt(70), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	_, ok := c.Get(ctx, testBucket())
	assert.False(t, ok, "una entrada vencida es miss")
}

func TestMemoryOperationLocker_TryLock(t *testing.T) {
	l := NewMemoryOperationLocker()
	ctx := context.Background()

	release, ok, err := l.TryLock(ctx, "lock:res-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// Mientras está tomado, un segundo intento no espera: rechaza.
	_, ok, err = l.TryLock(ctx, "lock:res-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// Otra clave no compite.
	release2, ok, err := l.TryLock(ctx, "lock:res-2", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	release2()

	release()
	_, ok, err = l.TryLock(ctx, "lock:res-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "liberar habilita el siguiente intento")
}

func TestMemoryOperationLocker_TTLVencidoSePuedeRetomar(t *testing.T) {
	l := NewMemoryOperationLocker()
	ctx := context.Background()

	_, ok, err := l.TryLock(ctx, "lock:res-1", 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok, err = l.TryLock(ctx, "lock:res-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "un lock vencido no bloquea")
}
