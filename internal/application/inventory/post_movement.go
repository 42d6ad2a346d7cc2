package inventory

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/inventory-core/internal/application/policy"
	"github.com/tu-usuario/inventory-core/internal/application/ports"
	"github.com/tu-usuario/inventory-core/internal/application/posting"
	"github.com/tu-usuario/inventory-core/internal/domain"
	"github.com/tu-usuario/inventory-core/internal/domain/entity"
	"github.com/tu-usuario/inventory-core/internal/domain/quantity"
	"github.com/tu-usuario/inventory-core/pkg/logger"
)

// OpPostMovement nombre de operación para el registro de idempotencia.
const OpPostMovement = "inventory.post_movement"

// PostMovementUseCase postea movimientos RECEIVE/ISSUE/ADJUSTMENT/COUNT de
// forma atómica: líneas del ledger y mutaciones de capas de costo comprometen
// en la misma transacción serializable, envuelta por el protocolo idempotente.
// Los traslados tienen su propio caso de uso (TransferUseCase).
type PostMovementUseCase struct {
	exec   *posting.Executor
	engine *CostEngine
	gate   *policy.NegativeStockGate
	cache  ports.AvailabilityCache
	log    *logger.Logger
	now    func() time.Time
}

// NewPostMovementUseCase construye el caso de uso. clock nil usa time.Now.
func NewPostMovementUseCase(exec *posting.Executor, engine *CostEngine, gate *policy.NegativeStockGate, cache ports.AvailabilityCache, log *logger.Logger, clock func() time.Time) *PostMovementUseCase {
	if clock == nil {
		clock = time.Now
	}
	return &PostMovementUseCase{exec: exec, engine: engine, gate: gate, cache: cache, log: log, now: clock}
}

// LineInput línea de entrada para postear un movimiento.
type LineInput struct {
	ItemID        string           `json:"item_id"`
	LocationID    string           `json:"location_id"`
	UOM           string           `json:"uom"`
	QuantityDelta decimal.Decimal  `json:"quantity_delta"`
	UnitCost      *decimal.Decimal `json:"unit_cost,omitempty"`
	ReasonCode    string           `json:"reason_code,omitempty"`
	Notes         string           `json:"notes,omitempty"`
}

// PostMovementInput entrada del posteo.
type PostMovementInput struct {
	TenantID       string          `json:"-"`
	ActorID        string          `json:"-"`
	IdempotencyKey string          `json:"-"`
	Type           string          `json:"type"`
	Reference      string          `json:"reference,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
	Lines          []LineInput     `json:"lines"`
	Override       policy.Override `json:"override,omitempty"`
}

// PostMovementResult resultado almacenado y devuelto en cada replay.
type PostMovementResult struct {
	MovementID string `json:"movement_id"`
}

// Post valida convenciones de signo, ejecuta el efecto idempotente y, tras el
// commit, invalida el caché de disponibilidad de cada bucket tocado.
func (uc *PostMovementUseCase) Post(ctx context.Context, input PostMovementInput) (*PostMovementResult, error) {
	if err := uc.validate(input); err != nil {
		return nil, err
	}
	raw, err := uc.exec.Execute(ctx, input.TenantID, OpPostMovement, input.IdempotencyKey, input,
		func(ctx context.Context, r ports.Repos) (any, error) {
			return uc.post(ctx, r, input)
		})
	if err != nil {
		return nil, err
	}
	for _, l := range input.Lines {
		uc.cache.Invalidate(ctx, entity.Bucket{TenantID: input.TenantID, ItemID: l.ItemID, LocationID: l.LocationID, UOM: l.UOM})
	}
	var result PostMovementResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// validate rechaza entrada inválida antes de tomar cualquier lock: sin efectos,
// siempre seguro reintentar tras corregir.
func (uc *PostMovementUseCase) validate(input PostMovementInput) error {
	if input.TenantID == "" || input.ActorID == "" || len(input.Lines) == 0 {
		return domain.ErrInvalidInput
	}
	switch input.Type {
	case entity.MovementTypeRECEIVE, entity.MovementTypeISSUE, entity.MovementTypeADJUSTMENT, entity.MovementTypeCOUNT:
	case entity.MovementTypeTRANSFER:
		// Los traslados entran por TransferUseCase, que exige pares explícitos.
		return domain.ErrInvalidInput.WithDetails(map[string]any{"type": input.Type})
	default:
		return domain.ErrInvalidInput.WithDetails(map[string]any{"type": input.Type})
	}
	for _, l := range input.Lines {
		if l.ItemID == "" || l.LocationID == "" || l.UOM == "" {
			return domain.ErrInvalidInput
		}
		if quantity.IsZero(l.QuantityDelta) {
			return domain.ErrInvalidQuantity.WithDetails(map[string]any{"item_id": l.ItemID})
		}
		// Convención de signos por tipo: recepciones positivas, salidas negativas.
		switch input.Type {
		case entity.MovementTypeRECEIVE:
			if !quantity.IsPositive(l.QuantityDelta) {
				return domain.ErrInvalidQuantity.WithDetails(map[string]any{"item_id": l.ItemID, "reason": "RECEIVE exige delta positivo"})
			}
		case entity.MovementTypeISSUE:
			if !quantity.IsNegative(l.QuantityDelta) {
				return domain.ErrInvalidQuantity.WithDetails(map[string]any{"item_id": l.ItemID, "reason": "ISSUE exige delta negativo"})
			}
		}
		// Toda línea que crea capas necesita costo unitario no negativo.
		if quantity.IsPositive(l.QuantityDelta) && (l.UnitCost == nil || l.UnitCost.IsNegative()) {
			return domain.ErrInvalidInput.WithDetails(map[string]any{"item_id": l.ItemID, "reason": "costo unitario requerido"})
		}
	}
	return nil
}

// post efecto transaccional: valida catálogo, aplica capas de costo y escribe
// cabecera + líneas con status POSTED.
func (uc *PostMovementUseCase) post(ctx context.Context, r ports.Repos, input PostMovementInput) (*PostMovementResult, error) {
	now := uc.now()
	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = now
	}

	mov := &entity.Movement{
		ID:         uuid.New().String(),
		TenantID:   input.TenantID,
		Type:       input.Type,
		Status:     entity.MovementStatusPOSTED,
		Reference:  input.Reference,
		OccurredAt: occurredAt,
		PostedAt:   &now,
		CreatedAt:  now,
		CreatedBy:  input.ActorID,
	}

	lines := make([]*entity.MovementLine, 0, len(input.Lines))
	for _, in := range input.Lines {
		if _, err := r.Catalog.GetItem(ctx, input.TenantID, in.ItemID); err != nil {
			return nil, err
		}
		if _, err := r.Catalog.GetLocation(ctx, input.TenantID, in.LocationID); err != nil {
			return nil, err
		}
		lines = append(lines, &entity.MovementLine{
			ID:            uuid.New().String(),
			MovementID:    mov.ID,
			ItemID:        in.ItemID,
			LocationID:    in.LocationID,
			UOM:           in.UOM,
			QuantityDelta: quantity.Round(in.QuantityDelta),
			UnitCost:      in.UnitCost,
			ReasonCode:    in.ReasonCode,
			Notes:         in.Notes,
		})
	}

	// Orden determinista de proceso (y por tanto de bloqueo de capas) para que
	// dos posteos concurrentes sobre buckets solapados no se crucen en espejo.
	sort.Slice(lines, func(i, j int) bool {
		a, b := lines[i], lines[j]
		if a.ItemID != b.ItemID {
			return a.ItemID < b.ItemID
		}
		if a.LocationID != b.LocationID {
			return a.LocationID < b.LocationID
		}
		if a.UOM != b.UOM {
			return a.UOM < b.UOM
		}
		return a.ID < b.ID
	})

	// La puerta evalúa la proyección del movimiento COMPLETO: dos líneas de
	// salida sobre el mismo bucket no pueden pasar individualmente si su neto
	// deja la disponibilidad en negativo.
	if err := checkNegativeStockGate(ctx, r, uc.gate, input.TenantID, lines, input.Override); err != nil {
		return nil, err
	}

	for _, line := range lines {
		b := entity.LineBucket(input.TenantID, line)
		if quantity.IsPositive(line.QuantityDelta) {
			if _, err := uc.engine.CreateLayer(ctx, r.CostLayers, b, line.QuantityDelta, *line.UnitCost, occurredAt, mov.ID); err != nil {
				return nil, err
			}
			continue
		}
		if _, err := uc.engine.Consume(ctx, r.CostLayers, b, line.QuantityDelta.Neg(), mov.ID, line.ID); err != nil {
			return nil, err
		}
	}

	if err := r.Movements.Insert(ctx, mov); err != nil {
		return nil, err
	}
	if err := r.Movements.InsertLines(ctx, lines); err != nil {
		return nil, err
	}
	if uc.log != nil {
		uc.log.Info().
			Str("tenant_id", input.TenantID).
			Str("movement_id", mov.ID).
			Str("type", mov.Type).
			Int("lines", len(lines)).
			Msg("movimiento posteado")
	}
	return &PostMovementResult{MovementID: mov.ID}, nil
}

// checkNegativeStockGate agrega los deltas de todas las líneas por bucket y
// evalúa la puerta una sola vez por bucket cuyo neto es negativo, contra la
// disponibilidad proyectada DESPUÉS del movimiento completo. Los buckets se
// visitan en orden determinista.
func checkNegativeStockGate(ctx context.Context, r ports.Repos, gate *policy.NegativeStockGate, tenantID string, lines []*entity.MovementLine, ov policy.Override) error {
	net := make(map[entity.Bucket]decimal.Decimal, len(lines))
	buckets := make([]entity.Bucket, 0, len(lines))
	for _, line := range lines {
		b := entity.LineBucket(tenantID, line)
		if _, ok := net[b]; !ok {
			buckets = append(buckets, b)
		}
		net[b] = quantity.Add(net[b], line.QuantityDelta)
	}
	sort.Slice(buckets, func(i, j int) bool {
		a, b := buckets[i], buckets[j]
		if a.ItemID != b.ItemID {
			return a.ItemID < b.ItemID
		}
		if a.LocationID != b.LocationID {
			return a.LocationID < b.LocationID
		}
		return a.UOM < b.UOM
	})
	for _, b := range buckets {
		delta := net[b]
		if !quantity.IsNegative(delta) {
			continue
		}
		available, err := AvailableInTx(ctx, r, b)
		if err != nil {
			return err
		}
		if err := gate.Check(available, delta, ov); err != nil {
			return err
		}
	}
	return nil
}
