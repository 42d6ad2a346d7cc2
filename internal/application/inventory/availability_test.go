package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/inventory-core/internal/application/apptest"
	"github.com/tu-usuario/inventory-core/internal/application/inventory"
	"github.com/tu-usuario/inventory-core/internal/domain/entity"
)

// recordingCache caché con un solo valor fijo, para observar hits y writes.
type recordingCache struct {
	value decimal.Decimal
	hit   bool
	sets  int
}

func (c *recordingCache) Get(context.Context, entity.Bucket) (decimal.Decimal, bool) {
	return c.value, c.hit
}
func (c *recordingCache) Set(_ context.Context, _ entity.Bucket, v decimal.Decimal, _ time.Duration) {
	c.value, c.sets = v, c.sets+1
}
func (c *recordingCache) Invalidate(context.Context, entity.Bucket) { c.hit = false }

func TestAvailability_SnapshotDescuentaReservado(t *testing.T) {
	store := apptest.NewStore()
	store.SeedCatalog(testTenant, testItem, testWarehouse, testLocA)
	uc := buildPostUC(store, false)

	_, err := uc.Post(context.Background(), receiveInput("key-rcv", "100", "2.00"))
	require.NoError(t, err)
	require.NoError(t, store.Repos().Reservations.Insert(context.Background(), &entity.Reservation{
		ID: "res-1", TenantID: testTenant, ItemID: testItem, LocationID: testLocA, UOM: "EA",
		WarehouseID: testWarehouse, Status: entity.ReservationStatusOPEN,
		QuantityReserved: dec("30"),
	}))

	cache := &recordingCache{}
	svc := inventory.NewAvailabilityService(store.Repos().Movements, store.Repos().Reservations, cache, time.Minute)

	snap, err := svc.Get(context.Background(), bucketAt(testLocA))
	require.NoError(t, err)
	assert.True(t, snap.OnHand.Equal(dec("100")))
	assert.True(t, snap.Reserved.Equal(dec("30")))
	assert.True(t, snap.Available.Equal(dec("70")))
	assert.Equal(t, 1, cache.sets, "el snapshot repuebla el caché")
}

func TestAvailability_GetAvailable_SirveDelCache(t *testing.T) {
	store := apptest.NewStore()
	cache := &recordingCache{value: dec("42"), hit: true}
	svc := inventory.NewAvailabilityService(store.Repos().Movements, store.Repos().Reservations, cache, time.Minute)

	v, err := svc.GetAvailable(context.Background(), bucketAt(testLocA))
	require.NoError(t, err)
	assert.True(t, v.Equal(dec("42")))
	assert.Zero(t, cache.sets, "un hit no recalcula")
}
