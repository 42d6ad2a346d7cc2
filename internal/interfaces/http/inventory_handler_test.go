package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/inventory-core/internal/application/apptest"
	"github.com/tu-usuario/inventory-core/internal/application/dto"
	"github.com/tu-usuario/inventory-core/internal/domain/entity"
	apphttp "github.com/tu-usuario/inventory-core/internal/interfaces/http"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test — historial de movimientos
// ──────────────────────────────────────────────────────────────────────────────

const (
	histItem = "item-hist"
	histLocA = "loc-hist-a"
	histLocB = "loc-hist-b"
)

// buildHistoryApp monta solo la ruta de listado, con el repo de movimientos
// del Store en memoria.
func buildHistoryApp(store *apptest.Store) *fiber.App {
	handler := apphttp.NewInventoryHandler(nil, nil, nil, nil, store.Repos().Movements)
	app := fiber.New()
	app.Get("/api/inventory/movements", apphttp.AuthMiddleware(testJWTSecret), handler.ListMovements)
	return app
}

// seedPostedMovement inserta un movimiento POSTED con una sola línea en el
// bucket indicado.
func seedPostedMovement(t *testing.T, store *apptest.Store, movID, lineID, locationID string, occurredAt time.Time, delta string) {
	t.Helper()
	ctx := context.Background()
	repos := store.Repos()
	require.NoError(t, repos.Movements.Insert(ctx, &entity.Movement{
		ID:         movID,
		TenantID:   testTenantID,
		Type:       entity.MovementTypeADJUSTMENT,
		Status:     entity.MovementStatusPOSTED,
		OccurredAt: occurredAt,
		CreatedBy:  testUserID,
	}))
	require.NoError(t, repos.Movements.InsertLines(ctx, []*entity.MovementLine{{
		ID:            lineID,
		MovementID:    movID,
		ItemID:        histItem,
		LocationID:    locationID,
		UOM:           "EA",
		QuantityDelta: decimal.RequireFromString(delta),
		ReasonCode:    "AJUSTE",
	}}))
}

func doListRequest(t *testing.T, app *fiber.App, query string) (*http.Response, dto.MovementListResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/inventory/movements?"+query, nil)
	req.Header.Set("Authorization", tokenForRole(t, "supervisor"))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var body dto.MovementListResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	resp.Body.Close()
	return resp, body
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests ListMovements — historial paginado por bucket
// ──────────────────────────────────────────────────────────────────────────────

func TestListMovements_SoloPosted_DelBucket_MasRecientePrimero(t *testing.T) {
	store := apptest.NewStore()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	seedPostedMovement(t, store, "mov-viejo", "linea-1", histLocA, base, "10")
	seedPostedMovement(t, store, "mov-nuevo", "linea-2", histLocA, base.Add(2*time.Hour), "-3")
	// Misma ubicación pero otro estado: un DRAFT jamás aparece en el historial.
	ctx := context.Background()
	require.NoError(t, store.Repos().Movements.Insert(ctx, &entity.Movement{
		ID: "mov-draft", TenantID: testTenantID, Type: entity.MovementTypeADJUSTMENT,
		Status: entity.MovementStatusDRAFT, OccurredAt: base.Add(3 * time.Hour), CreatedBy: testUserID,
	}))
	require.NoError(t, store.Repos().Movements.InsertLines(ctx, []*entity.MovementLine{{
		ID: "linea-draft", MovementID: "mov-draft", ItemID: histItem, LocationID: histLocA,
		UOM: "EA", QuantityDelta: decimal.RequireFromString("99"),
	}}))
	// Otro bucket (ubicación B): no debe filtrarse en el resultado.
	seedPostedMovement(t, store, "mov-otro-bucket", "linea-b", histLocB, base.Add(time.Hour), "5")

	app := buildHistoryApp(store)
	resp, body := doListRequest(t, app, "item_id="+histItem+"&location_id="+histLocA+"&uom=EA")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body.Lines, 2, "solo las líneas POSTED del bucket consultado")
	assert.Equal(t, "linea-2", body.Lines[0].ID, "el movimiento más reciente va primero")
	assert.Equal(t, "linea-1", body.Lines[1].ID)
	assert.Equal(t, "-3", body.Lines[0].QuantityDelta)
	assert.Equal(t, 20, body.Page.Limit, "limit por defecto cuando el caller no pagina")
	assert.Equal(t, 0, body.Page.Offset)
}

func TestListMovements_RangoDeFechas_SemiAbierto(t *testing.T) {
	store := apptest.NewStore()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	seedPostedMovement(t, store, "mov-dentro", "linea-dentro", histLocA, base, "10")
	seedPostedMovement(t, store, "mov-borde", "linea-borde", histLocA, base.Add(time.Hour), "4")

	app := buildHistoryApp(store)
	// to == occurred_at del segundo movimiento: el borde superior queda fuera.
	query := "item_id=" + histItem + "&location_id=" + histLocA + "&uom=EA" +
		"&from=" + base.Format(time.RFC3339) +
		"&to=" + base.Add(time.Hour).Format(time.RFC3339)
	resp, body := doListRequest(t, app, query)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body.Lines, 1)
	assert.Equal(t, "linea-dentro", body.Lines[0].ID)
}

func TestListMovements_Paginacion(t *testing.T) {
	store := apptest.NewStore()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	seedPostedMovement(t, store, "mov-1", "linea-1", histLocA, base, "1")
	seedPostedMovement(t, store, "mov-2", "linea-2", histLocA, base.Add(time.Hour), "2")
	seedPostedMovement(t, store, "mov-3", "linea-3", histLocA, base.Add(2*time.Hour), "3")

	app := buildHistoryApp(store)
	resp, body := doListRequest(t, app,
		"item_id="+histItem+"&location_id="+histLocA+"&uom=EA&limit=1&offset=1")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body.Lines, 1)
	assert.Equal(t, "linea-2", body.Lines[0].ID, "offset 1 en orden descendente salta el más reciente")
	assert.Equal(t, 1, body.Page.Limit)
	assert.Equal(t, 1, body.Page.Offset)
}

func TestListMovements_SinBucket_Retorna400(t *testing.T) {
	app := buildHistoryApp(apptest.NewStore())

	req := httptest.NewRequest(http.MethodGet, "/api/inventory/movements?item_id=solo-item", nil)
	req.Header.Set("Authorization", tokenForRole(t, "supervisor"))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	payload, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(payload), "INVALID_INPUT")
}
