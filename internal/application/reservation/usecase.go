package reservation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	appinv "github.com/tu-usuario/inventory-core/internal/application/inventory"
	"github.com/tu-usuario/inventory-core/internal/application/ports"
	"github.com/tu-usuario/inventory-core/internal/application/posting"
	"github.com/tu-usuario/inventory-core/internal/domain"
	"github.com/tu-usuario/inventory-core/internal/domain/entity"
	"github.com/tu-usuario/inventory-core/internal/domain/quantity"
	"github.com/tu-usuario/inventory-core/pkg/logger"
)

// Nombres de operación para el registro de idempotencia.
const (
	OpCreate   = "reservation.create"
	OpAllocate = "reservation.allocate"
	OpCancel   = "reservation.cancel"
	OpFulfill  = "reservation.fulfill"
)

// defaultLockTTL vigencia del lock consultivo por reserva si la configuración
// no define otra; cubre con holgura la transacción más lenta esperable.
const defaultLockTTL = 30 * time.Second

// UseCase transiciones de la máquina de estados de reservas
// (OPEN → ALLOCATED → FULFILLED, OPEN|ALLOCATED → CANCELED), cada una
// envuelta por el protocolo idempotente y un lock consultivo por reserva que
// detecta operaciones concurrentes en vuelo.
type UseCase struct {
	exec    *posting.Executor
	engine  *appinv.CostEngine
	locker  ports.OperationLocker
	cache   ports.AvailabilityCache
	lockTTL time.Duration
	log     *logger.Logger
	now     func() time.Time
}

// NewUseCase construye el caso de uso. lockTTL cero usa el valor por defecto;
// clock nil usa time.Now.
func NewUseCase(exec *posting.Executor, engine *appinv.CostEngine, locker ports.OperationLocker, cache ports.AvailabilityCache, lockTTL time.Duration, log *logger.Logger, clock func() time.Time) *UseCase {
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	if clock == nil {
		clock = time.Now
	}
	return &UseCase{exec: exec, engine: engine, locker: locker, cache: cache, lockTTL: lockTTL, log: log, now: clock}
}

func lockKey(tenantID, reservationID string) string {
	return "lock:reservation:" + tenantID + ":" + reservationID
}

// CreateInput entrada para crear una reserva.
type CreateInput struct {
	TenantID       string          `json:"-"`
	ActorID        string          `json:"-"`
	IdempotencyKey string          `json:"-"`
	ItemID         string          `json:"item_id"`
	LocationID     string          `json:"location_id"`
	UOM            string          `json:"uom"`
	WarehouseID    string          `json:"warehouse_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	Reference      string          `json:"reference,omitempty"`
}

// CreateResult resultado almacenado de la creación.
type CreateResult struct {
	ReservationID string `json:"reservation_id"`
}

// Create valida que la ubicación sea vendible y de la bodega pedida, verifica
// disponible = on-hand − ya reservado ≥ solicitado, y crea la reserva OPEN.
func (uc *UseCase) Create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	if input.TenantID == "" || input.ActorID == "" || input.ItemID == "" ||
		input.LocationID == "" || input.UOM == "" || input.WarehouseID == "" {
		return nil, domain.ErrInvalidInput
	}
	if !quantity.IsPositive(input.Quantity) {
		return nil, domain.ErrInvalidQuantity
	}
	b := entity.Bucket{TenantID: input.TenantID, ItemID: input.ItemID, LocationID: input.LocationID, UOM: input.UOM}

	raw, err := uc.exec.Execute(ctx, input.TenantID, OpCreate, input.IdempotencyKey, input,
		func(ctx context.Context, r ports.Repos) (any, error) {
			if _, err := r.Catalog.GetItem(ctx, input.TenantID, input.ItemID); err != nil {
				return nil, err
			}
			if _, err := r.Catalog.GetWarehouse(ctx, input.TenantID, input.WarehouseID); err != nil {
				return nil, err
			}
			loc, err := r.Catalog.GetLocation(ctx, input.TenantID, input.LocationID)
			if err != nil {
				return nil, err
			}
			if !loc.Sellable {
				return nil, domain.ErrInvalidInput.WithDetails(map[string]any{"location_id": loc.ID, "reason": "ubicación no vendible"})
			}
			if loc.WarehouseID != input.WarehouseID {
				return nil, domain.ErrWarehouseMismatch.WithDetails(map[string]any{"location_id": loc.ID})
			}
			available, err := appinv.AvailableInTx(ctx, r, b)
			if err != nil {
				return nil, err
			}
			if !quantity.GTE(available, input.Quantity) {
				return nil, domain.ErrInsufficientAvailable.WithDetails(map[string]any{
					"available": available.String(),
					"requested": input.Quantity.String(),
				})
			}
			now := uc.now()
			res := &entity.Reservation{
				ID:               uuid.New().String(),
				TenantID:         input.TenantID,
				ItemID:           input.ItemID,
				LocationID:       input.LocationID,
				UOM:              input.UOM,
				WarehouseID:      input.WarehouseID,
				Status:           entity.ReservationStatusOPEN,
				QuantityReserved: quantity.Round(input.Quantity),
				RequestedBy:      input.ActorID,
				Reference:        input.Reference,
				CreatedAt:        now,
				UpdatedAt:        now,
			}
			if err := r.Reservations.Insert(ctx, res); err != nil {
				return nil, err
			}
			return &CreateResult{ReservationID: res.ID}, nil
		})
	if err != nil {
		return nil, err
	}
	uc.cache.Invalidate(ctx, b)
	var result CreateResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
