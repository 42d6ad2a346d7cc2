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
	"github.com/tu-usuario/inventory-core/internal/domain"
	"github.com/tu-usuario/inventory-core/internal/domain/entity"
	dominv "github.com/tu-usuario/inventory-core/internal/domain/inventory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testTenant = "00000000-0000-0000-0000-00000000000a"
	testItem   = "00000000-0000-0000-0000-00000000000b"
	testLocA   = "00000000-0000-0000-0000-0000000000aa"
	testLocB   = "00000000-0000-0000-0000-0000000000bb"
)

func bucketAt(locationID string) entity.Bucket {
	return entity.Bucket{TenantID: testTenant, ItemID: testItem, LocationID: locationID, UOM: "EA"}
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// seedLayer crea directamente una capa con fecha y costo dados.
func seedLayer(t *testing.T, store *apptest.Store, eng *inventory.CostEngine, loc string, qty, cost string, date time.Time) *entity.CostLayer {
	t.Helper()
	layer, err := eng.CreateLayer(context.Background(), store.Repos().CostLayers, bucketAt(loc), dec(qty), dec(cost), date, "mov-seed")
	require.NoError(t, err)
	return layer
}

// ──────────────────────────────────────────────────────────────────────────────
// Consume — orden FIFO y rebanado
// ──────────────────────────────────────────────────────────────────────────────

func TestConsume_FIFOPorFechaYSecuencia(t *testing.T) {
	store := apptest.NewStore()
	eng := inventory.NewCostEngine(nil)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	vieja := seedLayer(t, store, eng, testLocA, "50", "1.00", base)
	nueva := seedLayer(t, store, eng, testLocA, "50", "2.00", base.Add(24*time.Hour))

	// Consumir 80: agota la capa vieja (50 @ 1.00) y toma 30 de la nueva (@ 2.00)
	cons, err := eng.Consume(context.Background(), store.Repos().CostLayers, bucketAt(testLocA), dec("80"), "mov-1", "line-1")
	require.NoError(t, err)
	require.Len(t, cons, 2)

	assert.Equal(t, vieja.ID, cons[0].CostLayerID, "la capa más antigua se consume primero")
	assert.True(t, cons[0].Quantity.Equal(dec("50")))
	assert.True(t, cons[0].UnitCost.Equal(dec("1.00")))

	assert.Equal(t, nueva.ID, cons[1].CostLayerID)
	assert.True(t, cons[1].Quantity.Equal(dec("30")))
	assert.True(t, cons[1].UnitCost.Equal(dec("2.00")))

	// Estado de las capas después del consumo
	quedaVieja, err := store.Repos().CostLayers.GetForUpdate(context.Background(), testTenant, vieja.ID)
	require.NoError(t, err)
	assert.True(t, quedaVieja.RemainingQuantity.IsZero(), "la capa vieja debe quedar en cero")

	quedaNueva, err := store.Repos().CostLayers.GetForUpdate(context.Background(), testTenant, nueva.ID)
	require.NoError(t, err)
	assert.True(t, quedaNueva.RemainingQuantity.Equal(dec("20")))
}

func TestConsume_MismaFecha_DesempataPorSecuencia(t *testing.T) {
	store := apptest.NewStore()
	eng := inventory.NewCostEngine(nil)
	date := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	primera := seedLayer(t, store, eng, testLocA, "10", "1.00", date)
	_ = seedLayer(t, store, eng, testLocA, "10", "2.00", date)

	cons, err := eng.Consume(context.Background(), store.Repos().CostLayers, bucketAt(testLocA), dec("5"), "mov-1", "line-1")
	require.NoError(t, err)
	require.Len(t, cons, 1)
	assert.Equal(t, primera.ID, cons[0].CostLayerID, "misma fecha: gana la secuencia menor")
}

func TestConsume_CapasInsuficientes_SinEfectos(t *testing.T) {
	store := apptest.NewStore()
	eng := inventory.NewCostEngine(nil)
	seedLayer(t, store, eng, testLocA, "10", "1.00", time.Now())

	_, err := eng.Consume(context.Background(), store.Repos().CostLayers, bucketAt(testLocA), dec("11"), "mov-1", "line-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientCostLayers)
	assert.Empty(t, store.Consumptions, "un consumo rechazado no deja rebanadas parciales")
}

// ──────────────────────────────────────────────────────────────────────────────
// Relocate — reubicación de costo por rebanadas
// ──────────────────────────────────────────────────────────────────────────────

func TestRelocate_UnaCapaDestinoPorRebanada(t *testing.T) {
	store := apptest.NewStore()
	eng := inventory.NewCostEngine(nil)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	seedLayer(t, store, eng, testLocA, "50", "1.00", base)
	seedLayer(t, store, eng, testLocA, "50", "2.00", base.Add(24*time.Hour))

	reqs := []inventory.RelocationRequest{{
		Pair: dominv.TransferPair{
			ItemID:                testItem,
			SourceLocationID:      testLocA,
			DestinationLocationID: testLocB,
			UOM:                   "EA",
			OutLineID:             "out-1",
		},
		Quantity: dec("80"),
		InLineID: "in-1",
	}}
	links, err := eng.Relocate(context.Background(), store.Repos().CostLayers, testTenant, "mov-tr", reqs, base.Add(48*time.Hour))
	require.NoError(t, err)
	require.Len(t, links, 2, "dos rebanadas de costo distinto: dos capas destino, nunca costo mezclado")

	assert.True(t, links[0].Quantity.Equal(dec("50")))
	assert.True(t, links[0].UnitCost.Equal(dec("1.00")))
	assert.True(t, links[1].Quantity.Equal(dec("30")))
	assert.True(t, links[1].UnitCost.Equal(dec("2.00")))

	// Las capas destino conservan el costo unitario de su rebanada
	for _, link := range links {
		dst, err := store.Repos().CostLayers.GetForUpdate(context.Background(), testTenant, link.DestinationLayerID)
		require.NoError(t, err)
		assert.Equal(t, testLocB, dst.LocationID)
		assert.True(t, dst.UnitCost.Equal(link.UnitCost))
		assert.True(t, dst.RemainingQuantity.Equal(link.Quantity))
	}
}

func TestRelocate_OrigenInsuficiente_Falla(t *testing.T) {
	store := apptest.NewStore()
	eng := inventory.NewCostEngine(nil)
	seedLayer(t, store, eng, testLocA, "10", "1.00", time.Now())

	reqs := []inventory.RelocationRequest{{
		Pair: dominv.TransferPair{
			ItemID: testItem, SourceLocationID: testLocA, DestinationLocationID: testLocB,
			UOM: "EA", OutLineID: "out-1",
		},
		Quantity: dec("30"),
		InLineID: "in-1",
	}}
	_, err := eng.Relocate(context.Background(), store.Repos().CostLayers, testTenant, "mov-tr", reqs, time.Now())
	assert.ErrorIs(t, err, domain.ErrInsufficientCostLayers)
}

// ──────────────────────────────────────────────────────────────────────────────
// ReverseTransfer — reversión rebanada por rebanada
// ──────────────────────────────────────────────────────────────────────────────

// Escenario de ida y vuelta: recibir 100 @ 2.00 en A, trasladar 30 a B,
// revertir. La capa restaurada en A conserva el costo y la fecha de la capa
// original (recupera su posición FIFO); la capa de B queda en cero.
func TestReverseTransfer_RestauraCapaOrigen(t *testing.T) {
	store := apptest.NewStore()
	eng := inventory.NewCostEngine(nil)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	original := seedLayer(t, store, eng, testLocA, "100", "2.00", base)

	reqs := []inventory.RelocationRequest{{
		Pair: dominv.TransferPair{
			ItemID: testItem, SourceLocationID: testLocA, DestinationLocationID: testLocB,
			UOM: "EA", OutLineID: "out-1",
		},
		Quantity: dec("30"),
		InLineID: "in-1",
	}}
	links, err := eng.Relocate(context.Background(), store.Repos().CostLayers, testTenant, "mov-tr", reqs, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, links, 1)

	revLinks, err := eng.ReverseTransfer(context.Background(), store.Repos().CostLayers, testTenant,
		"mov-tr", "mov-rev", map[string]string{"out-1": "rev-out-1"})
	require.NoError(t, err)
	require.Len(t, revLinks, 1)

	// La capa destino de B quedó drenada
	dst, err := store.Repos().CostLayers.GetForUpdate(context.Background(), testTenant, links[0].DestinationLayerID)
	require.NoError(t, err)
	assert.True(t, dst.RemainingQuantity.IsZero())

	// La capa restaurada vive en A con el costo original y la fecha de la capa
	// origen, no la de la reversión
	restored, err := store.Repos().CostLayers.GetForUpdate(context.Background(), testTenant, revLinks[0].DestinationLayerID)
	require.NoError(t, err)
	assert.Equal(t, testLocA, restored.LocationID)
	assert.True(t, restored.UnitCost.Equal(dec("2.00")))
	assert.True(t, restored.RemainingQuantity.Equal(dec("30")))
	assert.True(t, restored.LayerDate.Equal(original.LayerDate),
		"la capa restaurada recupera la posición FIFO de la capa origen")

	// A vuelve a tener 100 en total entre la capa original y la restaurada
	open, err := store.Repos().CostLayers.ListOpenForUpdate(context.Background(), bucketAt(testLocA))
	require.NoError(t, err)
	total := decimal.Zero
	for _, l := range open {
		total = total.Add(l.RemainingQuantity)
	}
	assert.True(t, total.Equal(dec("100")))
}

func TestReverseTransfer_DestinoConsumido_Bloquea(t *testing.T) {
	store := apptest.NewStore()
	eng := inventory.NewCostEngine(nil)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	seedLayer(t, store, eng, testLocA, "100", "2.00", base)
	reqs := []inventory.RelocationRequest{{
		Pair: dominv.TransferPair{
			ItemID: testItem, SourceLocationID: testLocA, DestinationLocationID: testLocB,
			UOM: "EA", OutLineID: "out-1",
		},
		Quantity: dec("30"),
		InLineID: "in-1",
	}}
	_, err := eng.Relocate(context.Background(), store.Repos().CostLayers, testTenant, "mov-tr", reqs, base.Add(time.Hour))
	require.NoError(t, err)

	// Alguien consumió 5 de la capa de B después del traslado
	_, err = eng.Consume(context.Background(), store.Repos().CostLayers, bucketAt(testLocB), dec("5"), "mov-otro", "line-x")
	require.NoError(t, err)

	_, err = eng.ReverseTransfer(context.Background(), store.Repos().CostLayers, testTenant,
		"mov-tr", "mov-rev", map[string]string{"out-1": "rev-out-1"})
	assert.ErrorIs(t, err, domain.ErrReversalNotPossibleConsumed,
		"cualquier consumo ajeno contra la capa destino bloquea la reversión")
}

func TestReverseTransfer_SinMapeoDeLinea_Falla(t *testing.T) {
	store := apptest.NewStore()
	eng := inventory.NewCostEngine(nil)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	seedLayer(t, store, eng, testLocA, "100", "2.00", base)
	reqs := []inventory.RelocationRequest{{
		Pair: dominv.TransferPair{
			ItemID: testItem, SourceLocationID: testLocA, DestinationLocationID: testLocB,
			UOM: "EA", OutLineID: "out-1",
		},
		Quantity: dec("30"),
		InLineID: "in-1",
	}}
	_, err := eng.Relocate(context.Background(), store.Repos().CostLayers, testTenant, "mov-tr", reqs, base)
	require.NoError(t, err)

	_, err = eng.ReverseTransfer(context.Background(), store.Repos().CostLayers, testTenant,
		"mov-tr", "mov-rev", map[string]string{})
	assert.ErrorIs(t, err, domain.ErrMissingLineMapping)
}

func TestReverseTransfer_MovimientoSinLinks_NotFound(t *testing.T) {
	store := apptest.NewStore()
	eng := inventory.NewCostEngine(nil)

	_, err := eng.ReverseTransfer(context.Background(), store.Repos().CostLayers, testTenant,
		"mov-inexistente", "mov-rev", map[string]string{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
