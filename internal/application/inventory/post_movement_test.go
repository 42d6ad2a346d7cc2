package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/inventory-core/internal/application/apptest"
	"github.com/tu-usuario/inventory-core/internal/application/inventory"
	"github.com/tu-usuario/inventory-core/internal/application/policy"
	"github.com/tu-usuario/inventory-core/internal/application/posting"
	"github.com/tu-usuario/inventory-core/internal/domain"
	"github.com/tu-usuario/inventory-core/internal/domain/entity"
)

const (
	testWarehouse = "00000000-0000-0000-0000-0000000000cc"
	testActor     = "00000000-0000-0000-0000-0000000000dd"
)

// buildPostUC arma el caso de uso de posteo sobre un Store en memoria.
func buildPostUC(store *apptest.Store, overridesEnabled bool) *inventory.PostMovementUseCase {
	runner := &apptest.TxRunner{Store: store}
	exec := posting.NewExecutor(runner, store.Repos().Idempotency, posting.DefaultRetryPolicy(), nil, nil)
	engine := inventory.NewCostEngine(nil)
	gate := policy.NewNegativeStockGate(overridesEnabled)
	return inventory.NewPostMovementUseCase(exec, engine, gate, apptest.NoopCache{}, nil, nil)
}

func receiveInput(key, qty, cost string) inventory.PostMovementInput {
	unitCost := dec(cost)
	return inventory.PostMovementInput{
		TenantID:       testTenant,
		ActorID:        testActor,
		IdempotencyKey: key,
		Type:           entity.MovementTypeRECEIVE,
		OccurredAt:     time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Lines: []inventory.LineInput{{
			ItemID:        testItem,
			LocationID:    testLocA,
			UOM:           "EA",
			QuantityDelta: dec(qty),
			UnitCost:      &unitCost,
		}},
	}
}

func TestPostMovement_ReceiveCreaCapaYOnHand(t *testing.T) {
	store := apptest.NewStore()
	store.SeedCatalog(testTenant, testItem, testWarehouse, testLocA)
	uc := buildPostUC(store, false)

	result, err := uc.Post(context.Background(), receiveInput("key-1", "100", "2.00"))
	require.NoError(t, err)
	require.NotEmpty(t, result.MovementID)

	mov, err := store.Repos().Movements.GetByID(context.Background(), testTenant, result.MovementID)
	require.NoError(t, err)
	assert.Equal(t, entity.MovementStatusPOSTED, mov.Status)

	onHand, err := store.Repos().Movements.OnHand(context.Background(), bucketAt(testLocA))
	require.NoError(t, err)
	assert.True(t, onHand.Equal(dec("100")), "on-hand = Σ deltas de movimientos POSTED")

	open, err := store.Repos().CostLayers.ListOpenForUpdate(context.Background(), bucketAt(testLocA))
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.True(t, open[0].UnitCost.Equal(dec("2.00")))
}

func TestPostMovement_ReplayDevuelveElMismoResultado(t *testing.T) {
	store := apptest.NewStore()
	store.SeedCatalog(testTenant, testItem, testWarehouse, testLocA)
	uc := buildPostUC(store, false)

	first, err := uc.Post(context.Background(), receiveInput("key-replay", "100", "2.00"))
	require.NoError(t, err)

	second, err := uc.Post(context.Background(), receiveInput("key-replay", "100", "2.00"))
	require.NoError(t, err)
	assert.Equal(t, first.MovementID, second.MovementID, "el replay devuelve el resultado original")

	assert.Len(t, store.Movements, 1, "el efecto se aplicó exactamente una vez")

	onHand, err := store.Repos().Movements.OnHand(context.Background(), bucketAt(testLocA))
	require.NoError(t, err)
	assert.True(t, onHand.Equal(dec("100")), "el replay no duplica el efecto")
}

func TestPostMovement_MismaClaveOtroPayload_Conflicto(t *testing.T) {
	store := apptest.NewStore()
	store.SeedCatalog(testTenant, testItem, testWarehouse, testLocA)
	uc := buildPostUC(store, false)

	_, err := uc.Post(context.Background(), receiveInput("key-x", "100", "2.00"))
	require.NoError(t, err)

	_, err = uc.Post(context.Background(), receiveInput("key-x", "200", "2.00"))
	assert.ErrorIs(t, err, domain.ErrIdempotencyConflict)
}

func TestPostMovement_TransferRechazado(t *testing.T) {
	store := apptest.NewStore()
	uc := buildPostUC(store, false)

	input := receiveInput("key-t", "10", "1.00")
	input.Type = entity.MovementTypeTRANSFER
	_, err := uc.Post(context.Background(), input)
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "los traslados entran por su propio caso de uso")
}

func TestPostMovement_SignosPorTipo(t *testing.T) {
	store := apptest.NewStore()
	uc := buildPostUC(store, false)

	// RECEIVE con delta negativo
	input := receiveInput("key-s1", "10", "1.00")
	input.Lines[0].QuantityDelta = dec("-10")
	_, err := uc.Post(context.Background(), input)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	// ISSUE con delta positivo
	input = receiveInput("key-s2", "10", "1.00")
	input.Type = entity.MovementTypeISSUE
	_, err = uc.Post(context.Background(), input)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	// Delta cero
	input = receiveInput("key-s3", "0", "1.00")
	_, err = uc.Post(context.Background(), input)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

// ──────────────────────────────────────────────────────────────────────────────
// Puerta de stock negativo en el camino de salida
// ──────────────────────────────────────────────────────────────────────────────

// issueInput salida de qty contra la ubicación A.
func issueInput(key, qty string, ov policy.Override) inventory.PostMovementInput {
	return inventory.PostMovementInput{
		TenantID:       testTenant,
		ActorID:        testActor,
		IdempotencyKey: key,
		Type:           entity.MovementTypeISSUE,
		Lines: []inventory.LineInput{{
			ItemID:        testItem,
			LocationID:    testLocA,
			UOM:           "EA",
			QuantityDelta: dec(qty).Neg(),
		}},
		Override: ov,
	}
}

func TestPostMovement_IssueSobreReservado_SinOverride_Falla(t *testing.T) {
	store := apptest.NewStore()
	store.SeedCatalog(testTenant, testItem, testWarehouse, testLocA)
	uc := buildPostUC(store, true)

	_, err := uc.Post(context.Background(), receiveInput("key-rcv", "100", "2.00"))
	require.NoError(t, err)

	// Una reserva activa retiene 80: disponible = 100 − 80 = 20
	require.NoError(t, store.Repos().Reservations.Insert(context.Background(), &entity.Reservation{
		ID: "res-1", TenantID: testTenant, ItemID: testItem, LocationID: testLocA, UOM: "EA",
		WarehouseID: testWarehouse, Status: entity.ReservationStatusOPEN,
		QuantityReserved: dec("80"),
	}))

	_, err = uc.Post(context.Background(), issueInput("key-iss", "50", policy.Override{}))
	assert.ErrorIs(t, err, domain.ErrInsufficientAvailable)
}

func TestPostMovement_IssueSobreReservado_ConOverride_Pasa(t *testing.T) {
	store := apptest.NewStore()
	store.SeedCatalog(testTenant, testItem, testWarehouse, testLocA)
	uc := buildPostUC(store, true)

	_, err := uc.Post(context.Background(), receiveInput("key-rcv", "100", "2.00"))
	require.NoError(t, err)
	require.NoError(t, store.Repos().Reservations.Insert(context.Background(), &entity.Reservation{
		ID: "res-1", TenantID: testTenant, ItemID: testItem, LocationID: testLocA, UOM: "EA",
		WarehouseID: testWarehouse, Status: entity.ReservationStatusOPEN,
		QuantityReserved: dec("80"),
	}))

	ov := policy.Override{Requested: true, Allowed: true, Reason: "despacho urgente autorizado", Actor: testActor}
	result, err := uc.Post(context.Background(), issueInput("key-iss", "50", ov))
	require.NoError(t, err, "el override permite disponibilidad negativa mientras el on-hand alcance")
	require.NotEmpty(t, result.MovementID)

	onHand, err := store.Repos().Movements.OnHand(context.Background(), bucketAt(testLocA))
	require.NoError(t, err)
	assert.True(t, onHand.Equal(dec("50")))
}

func TestPostMovement_VariasLineasMismoBucket_PuertaSobreElNeto(t *testing.T) {
	store := apptest.NewStore()
	store.SeedCatalog(testTenant, testItem, testWarehouse, testLocA)
	uc := buildPostUC(store, false)

	_, err := uc.Post(context.Background(), receiveInput("key-rcv", "100", "2.00"))
	require.NoError(t, err)

	// Disponible = 100 − 80 = 20: cada línea de −15 cabría sola, pero el neto
	// del movimiento (−30) deja el bucket en negativo.
	require.NoError(t, store.Repos().Reservations.Insert(context.Background(), &entity.Reservation{
		ID: "res-1", TenantID: testTenant, ItemID: testItem, LocationID: testLocA, UOM: "EA",
		WarehouseID: testWarehouse, Status: entity.ReservationStatusALLOCATED,
		QuantityReserved: dec("80"),
	}))

	input := inventory.PostMovementInput{
		TenantID:       testTenant,
		ActorID:        testActor,
		IdempotencyKey: "key-net",
		Type:           entity.MovementTypeISSUE,
		Lines: []inventory.LineInput{
			{ItemID: testItem, LocationID: testLocA, UOM: "EA", QuantityDelta: dec("-15")},
			{ItemID: testItem, LocationID: testLocA, UOM: "EA", QuantityDelta: dec("-15")},
		},
	}
	_, err = uc.Post(context.Background(), input)
	assert.ErrorIs(t, err, domain.ErrInsufficientAvailable)

	onHand, err := store.Repos().Movements.OnHand(context.Background(), bucketAt(testLocA))
	require.NoError(t, err)
	assert.True(t, onHand.Equal(dec("100")), "el movimiento rechazado no deja efectos")
}

func TestPostMovement_AjusteQueNetea_Pasa(t *testing.T) {
	store := apptest.NewStore()
	store.SeedCatalog(testTenant, testItem, testWarehouse, testLocA)
	uc := buildPostUC(store, false)

	_, err := uc.Post(context.Background(), receiveInput("key-rcv", "100", "2.00"))
	require.NoError(t, err)
	require.NoError(t, store.Repos().Reservations.Insert(context.Background(), &entity.Reservation{
		ID: "res-1", TenantID: testTenant, ItemID: testItem, LocationID: testLocA, UOM: "EA",
		WarehouseID: testWarehouse, Status: entity.ReservationStatusOPEN,
		QuantityReserved: dec("90"),
	}))

	// Ajuste con −25 y +20 sobre el mismo bucket: el neto (−5) cabe en la
	// disponibilidad de 10 aunque la línea de −25 sola no cabría.
	cost := dec("2.00")
	input := inventory.PostMovementInput{
		TenantID:       testTenant,
		ActorID:        testActor,
		IdempotencyKey: "key-adj",
		Type:           entity.MovementTypeADJUSTMENT,
		Lines: []inventory.LineInput{
			{ItemID: testItem, LocationID: testLocA, UOM: "EA", QuantityDelta: dec("-25")},
			{ItemID: testItem, LocationID: testLocA, UOM: "EA", QuantityDelta: dec("20"), UnitCost: &cost},
		},
	}
	_, err = uc.Post(context.Background(), input)
	require.NoError(t, err)

	onHand, err := store.Repos().Movements.OnHand(context.Background(), bucketAt(testLocA))
	require.NoError(t, err)
	assert.True(t, onHand.Equal(dec("95")))
}

func TestPostMovement_OverrideSinMotivo_Falla(t *testing.T) {
	store := apptest.NewStore()
	store.SeedCatalog(testTenant, testItem, testWarehouse, testLocA)
	uc := buildPostUC(store, true)

	_, err := uc.Post(context.Background(), receiveInput("key-rcv", "10", "2.00"))
	require.NoError(t, err)

	ov := policy.Override{Requested: true, Allowed: true}
	_, err = uc.Post(context.Background(), issueInput("key-iss", "50", ov))
	assert.ErrorIs(t, err, domain.ErrNegativeOverrideRequiresReason)
}

func TestPostMovement_OverrideDeshabilitado_Falla(t *testing.T) {
	store := apptest.NewStore()
	store.SeedCatalog(testTenant, testItem, testWarehouse, testLocA)
	uc := buildPostUC(store, false) // tenant sin overrides

	_, err := uc.Post(context.Background(), receiveInput("key-rcv", "10", "2.00"))
	require.NoError(t, err)

	ov := policy.Override{Requested: true, Allowed: true, Reason: "intento", Actor: testActor}
	_, err = uc.Post(context.Background(), issueInput("key-iss", "50", ov))
	assert.ErrorIs(t, err, domain.ErrNegativeOverrideNotAllowed)
}
