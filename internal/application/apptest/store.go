// Package apptest provee un Store en memoria que implementa todos los puertos
// de persistencia del core, para testear casos de uso sin base de datos. El
// comportamiento observable replica el de los adaptadores PostgreSQL: orden
// FIFO de capas, agregación de on-hand sobre POSTED, y arbitraje de claims de
// idempotencia.
package apptest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/inventory-core/internal/application/ports"
	"github.com/tu-usuario/inventory-core/internal/domain"
	"github.com/tu-usuario/inventory-core/internal/domain/entity"
	dominv "github.com/tu-usuario/inventory-core/internal/domain/inventory"
)

// Store estado compartido de los fakes. No es transaccional: los tests que
// verifican rollback lo hacen a través de los errores, no del estado.
type Store struct {
	mu sync.Mutex

	Movements    map[string]*entity.Movement
	Lines        map[string][]*entity.MovementLine // por movementID
	Layers       map[string]*entity.CostLayer
	Consumptions []*entity.CostLayerConsumption
	Links        []*entity.CostLayerTransferLink
	Reservations map[string]*entity.Reservation
	Items        map[string]*entity.Item
	Warehouses   map[string]*entity.Warehouse
	Locations    map[string]*entity.Location
	Idempotency  map[string]*entity.IdempotencyRecord // tenant|op|key
}

// NewStore construye un Store vacío.
func NewStore() *Store {
	return &Store{
		Movements:    make(map[string]*entity.Movement),
		Lines:        make(map[string][]*entity.MovementLine),
		Layers:       make(map[string]*entity.CostLayer),
		Reservations: make(map[string]*entity.Reservation),
		Items:        make(map[string]*entity.Item),
		Warehouses:   make(map[string]*entity.Warehouse),
		Locations:    make(map[string]*entity.Location),
		Idempotency:  make(map[string]*entity.IdempotencyRecord),
	}
}

// Repos devuelve el juego completo de repositorios sobre este Store.
func (s *Store) Repos() ports.Repos {
	return ports.Repos{
		Movements:    &movementRepo{s: s},
		CostLayers:   &costLayerRepo{s: s},
		Reservations: &reservationRepo{s: s},
		Catalog:      &catalogRepo{s: s},
		Idempotency:  &idempotencyRepo{s: s},
	}
}

// SeedCatalog registra un item, bodega y ubicación vendible para los tests.
func (s *Store) SeedCatalog(tenantID, itemID, warehouseID, locationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Items[itemID] = &entity.Item{ID: itemID, TenantID: tenantID, SKU: "SKU-" + itemID, Name: "item", DefaultUOM: "EA"}
	s.Warehouses[warehouseID] = &entity.Warehouse{ID: warehouseID, TenantID: tenantID, Name: "bodega"}
	s.Locations[locationID] = &entity.Location{ID: locationID, TenantID: tenantID, WarehouseID: warehouseID, Name: "ubicación", Sellable: true}
}

// SeedWarehouse registra una bodega adicional.
func (s *Store) SeedWarehouse(tenantID, warehouseID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Warehouses[warehouseID] = &entity.Warehouse{ID: warehouseID, TenantID: tenantID, Name: "bodega"}
}

// SeedLocation registra una ubicación adicional.
func (s *Store) SeedLocation(tenantID, warehouseID, locationID string, sellable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Locations[locationID] = &entity.Location{ID: locationID, TenantID: tenantID, WarehouseID: warehouseID, Name: "ubicación", Sellable: sellable}
}

// ─── MovementRepository ───────────────────────────────────────────────────────

type movementRepo struct{ s *Store }

func (r *movementRepo) Insert(_ context.Context, mov *entity.Movement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *mov
	r.s.Movements[mov.ID] = &cp
	return nil
}

func (r *movementRepo) InsertLines(_ context.Context, lines []*entity.MovementLine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range lines {
		cp := *l
		r.s.Lines[l.MovementID] = append(r.s.Lines[l.MovementID], &cp)
	}
	return nil
}

func (r *movementRepo) GetByID(_ context.Context, tenantID, id string) (*entity.Movement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	mov, ok := r.s.Movements[id]
	if !ok || mov.TenantID != tenantID {
		return nil, domain.ErrNotFound.WithDetails(map[string]any{"movement_id": id})
	}
	cp := *mov
	return &cp, nil
}

func (r *movementRepo) GetLines(_ context.Context, tenantID, movementID string) ([]*entity.MovementLine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	mov, ok := r.s.Movements[movementID]
	if !ok || mov.TenantID != tenantID {
		return nil, domain.ErrNotFound.WithDetails(map[string]any{"movement_id": movementID})
	}
	var out []*entity.MovementLine
	for _, l := range r.s.Lines[movementID] {
		cp := *l
		out = append(out, &cp)
	}
	return out, nil
}

func (r *movementRepo) OnHand(_ context.Context, b entity.Bucket) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sum := decimal.Zero
	for movID, lines := range r.s.Lines {
		mov, ok := r.s.Movements[movID]
		if !ok || mov.TenantID != b.TenantID || mov.Status != entity.MovementStatusPOSTED {
			continue
		}
		for _, l := range lines {
			if l.ItemID == b.ItemID && l.LocationID == b.LocationID && l.UOM == b.UOM {
				sum = sum.Add(l.QuantityDelta)
			}
		}
	}
	return sum, nil
}

func (r *movementRepo) ListByBucket(_ context.Context, b entity.Bucket, from, to *time.Time, limit, offset int) ([]*entity.MovementLine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.MovementLine
	occurredAt := make(map[string]time.Time)
	for movID, lines := range r.s.Lines {
		mov, ok := r.s.Movements[movID]
		if !ok || mov.TenantID != b.TenantID || mov.Status != entity.MovementStatusPOSTED {
			continue
		}
		if from != nil && mov.OccurredAt.Before(*from) {
			continue
		}
		// [from, to): mismo semiabierto que el adaptador SQL.
		if to != nil && !mov.OccurredAt.Before(*to) {
			continue
		}
		occurredAt[movID] = mov.OccurredAt
		for _, l := range lines {
			if l.ItemID == b.ItemID && l.LocationID == b.LocationID && l.UOM == b.UOM {
				cp := *l
				out = append(out, &cp)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := occurredAt[out[i].MovementID], occurredAt[out[j].MovementID]
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].ID < out[j].ID
	})
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// ─── CostLayerRepository ──────────────────────────────────────────────────────

type costLayerRepo struct{ s *Store }

func (r *costLayerRepo) ListOpenForUpdate(_ context.Context, b entity.Bucket) ([]*entity.CostLayer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.CostLayer
	for _, l := range r.s.Layers {
		if l.TenantID == b.TenantID && l.ItemID == b.ItemID && l.LocationID == b.LocationID &&
			l.UOM == b.UOM && l.RemainingQuantity.IsPositive() && l.VoidedAt == nil {
			cp := *l
			out = append(out, &cp)
		}
	}
	dominv.SortLayers(out)
	return out, nil
}

func (r *costLayerRepo) GetForUpdate(_ context.Context, tenantID, layerID string) (*entity.CostLayer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.Layers[layerID]
	if !ok || l.TenantID != tenantID {
		return nil, domain.ErrNotFound.WithDetails(map[string]any{"layer_id": layerID})
	}
	cp := *l
	return &cp, nil
}

func (r *costLayerRepo) Insert(_ context.Context, layer *entity.CostLayer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *layer
	r.s.Layers[layer.ID] = &cp
	return nil
}

func (r *costLayerRepo) UpdateRemaining(_ context.Context, tenantID, layerID string, remaining decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.Layers[layerID]
	if !ok || l.TenantID != tenantID {
		return domain.ErrNotFound.WithDetails(map[string]any{"layer_id": layerID})
	}
	if remaining.IsNegative() {
		return domain.ErrInvalidQuantity.WithDetails(map[string]any{"layer_id": layerID})
	}
	l.RemainingQuantity = remaining
	return nil
}

func (r *costLayerRepo) NextSequence(_ context.Context, b entity.Bucket) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var maxSeq int64
	for _, l := range r.s.Layers {
		if l.TenantID == b.TenantID && l.ItemID == b.ItemID && l.LocationID == b.LocationID &&
			l.UOM == b.UOM && l.LayerSequence > maxSeq {
			maxSeq = l.LayerSequence
		}
	}
	return maxSeq + 1, nil
}

func (r *costLayerRepo) InsertConsumption(_ context.Context, c *entity.CostLayerConsumption) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *c
	r.s.Consumptions = append(r.s.Consumptions, &cp)
	return nil
}

func (r *costLayerRepo) CountConsumptionsExcluding(_ context.Context, tenantID, layerID, movementID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, c := range r.s.Consumptions {
		if c.TenantID == tenantID && c.CostLayerID == layerID && c.MovementID != movementID {
			n++
		}
	}
	return n, nil
}

func (r *costLayerRepo) InsertTransferLink(_ context.Context, link *entity.CostLayerTransferLink) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *link
	r.s.Links = append(r.s.Links, &cp)
	return nil
}

func (r *costLayerRepo) LinksByMovementForUpdate(_ context.Context, tenantID, movementID string) ([]*entity.CostLayerTransferLink, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.CostLayerTransferLink
	for _, l := range r.s.Links {
		if l.TenantID == tenantID && l.MovementID == movementID {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ─── ReservationRepository ────────────────────────────────────────────────────

type reservationRepo struct{ s *Store }

func (r *reservationRepo) Insert(_ context.Context, res *entity.Reservation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *res
	r.s.Reservations[res.ID] = &cp
	return nil
}

func (r *reservationRepo) GetByID(_ context.Context, tenantID, id string) (*entity.Reservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	res, ok := r.s.Reservations[id]
	if !ok || res.TenantID != tenantID {
		return nil, domain.ErrNotFound.WithDetails(map[string]any{"reservation_id": id})
	}
	cp := *res
	return &cp, nil
}

func (r *reservationRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*entity.Reservation, error) {
	return r.GetByID(ctx, tenantID, id)
}

func (r *reservationRepo) Update(_ context.Context, res *entity.Reservation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.Reservations[res.ID]; !ok {
		return domain.ErrNotFound.WithDetails(map[string]any{"reservation_id": res.ID})
	}
	cp := *res
	r.s.Reservations[res.ID] = &cp
	return nil
}

func (r *reservationRepo) SumActiveReserved(_ context.Context, b entity.Bucket) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sum := decimal.Zero
	for _, res := range r.s.Reservations {
		if res.TenantID != b.TenantID || res.ItemID != b.ItemID || res.LocationID != b.LocationID || res.UOM != b.UOM {
			continue
		}
		if res.Status != entity.ReservationStatusOPEN && res.Status != entity.ReservationStatusALLOCATED {
			continue
		}
		sum = sum.Add(res.QuantityReserved.Sub(res.QuantityFulfilled))
	}
	return sum, nil
}

// ─── CatalogRepository ────────────────────────────────────────────────────────

type catalogRepo struct{ s *Store }

func (r *catalogRepo) GetItem(_ context.Context, tenantID, itemID string) (*entity.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.Items[itemID]
	if !ok || it.TenantID != tenantID {
		return nil, domain.ErrNotFound.WithDetails(map[string]any{"item_id": itemID})
	}
	cp := *it
	return &cp, nil
}

func (r *catalogRepo) GetWarehouse(_ context.Context, tenantID, warehouseID string) (*entity.Warehouse, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.Warehouses[warehouseID]
	if !ok || w.TenantID != tenantID {
		return nil, domain.ErrNotFound.WithDetails(map[string]any{"warehouse_id": warehouseID})
	}
	cp := *w
	return &cp, nil
}

func (r *catalogRepo) GetLocation(_ context.Context, tenantID, locationID string) (*entity.Location, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	loc, ok := r.s.Locations[locationID]
	if !ok || loc.TenantID != tenantID {
		return nil, domain.ErrNotFound.WithDetails(map[string]any{"location_id": locationID})
	}
	cp := *loc
	return &cp, nil
}

// ─── IdempotencyRepository ────────────────────────────────────────────────────

type idempotencyRepo struct{ s *Store }

func idemKey(tenantID, operation, key string) string {
	return tenantID + "|" + operation + "|" + key
}

func (r *idempotencyRepo) Claim(_ context.Context, rec *entity.IdempotencyRecord) (*entity.IdempotencyRecord, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := idemKey(rec.TenantID, rec.Operation, rec.Key)
	if existing, ok := r.s.Idempotency[k]; ok {
		cp := *existing
		return &cp, false, nil
	}
	cp := *rec
	r.s.Idempotency[k] = &cp
	return nil, true, nil
}

func (r *idempotencyRepo) Complete(_ context.Context, tenantID, operation, key string, result []byte) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.Idempotency[idemKey(tenantID, operation, key)]
	if !ok || rec.Status != entity.IdempotencyStatusPENDING {
		return domain.ErrNotFound.WithDetails(map[string]any{"operation": operation})
	}
	now := time.Now()
	rec.Status = entity.IdempotencyStatusCOMPLETED
	rec.Result = result
	rec.CompletedAt = &now
	return nil
}

func (r *idempotencyRepo) Release(_ context.Context, tenantID, operation, key string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := idemKey(tenantID, operation, key)
	if rec, ok := r.s.Idempotency[k]; ok && rec.Status == entity.IdempotencyStatusPENDING {
		delete(r.s.Idempotency, k)
	}
	return nil
}

// ─── TxRunner ─────────────────────────────────────────────────────────────────

// TxRunner fake sin transacción real. FailTimes simula conflictos de
// serialización: las primeras N invocaciones devuelven RETRYABLE_CONFLICT sin
// ejecutar el callback.
type TxRunner struct {
	Store     *Store
	FailTimes int

	mu    sync.Mutex
	Calls int
}

var _ ports.TxRunner = (*TxRunner)(nil)

func (t *TxRunner) Run(ctx context.Context, fn func(ctx context.Context, r ports.Repos) error) error {
	t.mu.Lock()
	t.Calls++
	fail := t.Calls <= t.FailTimes
	t.mu.Unlock()
	if fail {
		return domain.RetryableConflict(errors.New("simulated serialization failure"))
	}
	return fn(ctx, t.Store.Repos())
}

// ─── Cache y locker nulos ─────────────────────────────────────────────────────

// NoopCache AvailabilityCache que nunca acierta.
type NoopCache struct{}

var _ ports.AvailabilityCache = NoopCache{}

func (NoopCache) Get(context.Context, entity.Bucket) (decimal.Decimal, bool) {
	return decimal.Zero, false
}
func (NoopCache) Set(context.Context, entity.Bucket, decimal.Decimal, time.Duration) {}
func (NoopCache) Invalidate(context.Context, entity.Bucket)                          {}

// NoopLocker OperationLocker que siempre concede el lock.
type NoopLocker struct{}

var _ ports.OperationLocker = NoopLocker{}

func (NoopLocker) TryLock(context.Context, string, time.Duration) (func(), bool, error) {
	return func() {}, true, nil
}
