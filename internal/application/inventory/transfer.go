package inventory

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/inventory-core/internal/application/policy"
	"github.com/tu-usuario/inventory-core/internal/application/ports"
	"github.com/tu-usuario/inventory-core/internal/application/posting"
	"github.com/tu-usuario/inventory-core/internal/domain"
	"github.com/tu-usuario/inventory-core/internal/domain/entity"
	dominv "github.com/tu-usuario/inventory-core/internal/domain/inventory"
	"github.com/tu-usuario/inventory-core/internal/domain/quantity"
	"github.com/tu-usuario/inventory-core/pkg/logger"
)

// Nombres de operación para el registro de idempotencia.
const (
	OpTransfer        = "inventory.transfer"
	OpReverseTransfer = "inventory.reverse_transfer"
)

// TransferUseCase postea traslados multi-par entre ubicaciones: por cada par
// genera la línea de salida y la de entrada (netean a cero por construcción)
// y reubica las capas de costo rebanada por rebanada.
type TransferUseCase struct {
	exec   *posting.Executor
	engine *CostEngine
	gate   *policy.NegativeStockGate
	cache  ports.AvailabilityCache
	log    *logger.Logger
	now    func() time.Time
}

// NewTransferUseCase construye el caso de uso. clock nil usa time.Now.
func NewTransferUseCase(exec *posting.Executor, engine *CostEngine, gate *policy.NegativeStockGate, cache ports.AvailabilityCache, log *logger.Logger, clock func() time.Time) *TransferUseCase {
	if clock == nil {
		clock = time.Now
	}
	return &TransferUseCase{exec: exec, engine: engine, gate: gate, cache: cache, log: log, now: clock}
}

// TransferPairInput un par (item, origen, destino) con su cantidad.
type TransferPairInput struct {
	ItemID                string          `json:"item_id"`
	SourceLocationID      string          `json:"source_location_id"`
	DestinationLocationID string          `json:"destination_location_id"`
	UOM                   string          `json:"uom"`
	Quantity              decimal.Decimal `json:"quantity"`
}

// TransferInput entrada del traslado.
type TransferInput struct {
	TenantID       string              `json:"-"`
	ActorID        string              `json:"-"`
	IdempotencyKey string              `json:"-"`
	Reference      string              `json:"reference,omitempty"`
	OccurredAt     time.Time           `json:"occurred_at"`
	Pairs          []TransferPairInput `json:"pairs"`
	Override       policy.Override     `json:"override,omitempty"`
}

// TransferResult resultado almacenado del traslado.
type TransferResult struct {
	MovementID string `json:"movement_id"`
}

// Transfer valida, ejecuta el efecto idempotente y tras el commit invalida el
// caché de los buckets origen y destino.
func (uc *TransferUseCase) Transfer(ctx context.Context, input TransferInput) (*TransferResult, error) {
	if err := uc.validate(input); err != nil {
		return nil, err
	}
	raw, err := uc.exec.Execute(ctx, input.TenantID, OpTransfer, input.IdempotencyKey, input,
		func(ctx context.Context, r ports.Repos) (any, error) {
			return uc.transfer(ctx, r, input)
		})
	if err != nil {
		return nil, err
	}
	for _, p := range input.Pairs {
		uc.cache.Invalidate(ctx, entity.Bucket{TenantID: input.TenantID, ItemID: p.ItemID, LocationID: p.SourceLocationID, UOM: p.UOM})
		uc.cache.Invalidate(ctx, entity.Bucket{TenantID: input.TenantID, ItemID: p.ItemID, LocationID: p.DestinationLocationID, UOM: p.UOM})
	}
	var result TransferResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (uc *TransferUseCase) validate(input TransferInput) error {
	if input.TenantID == "" || input.ActorID == "" || len(input.Pairs) == 0 {
		return domain.ErrInvalidInput
	}
	for _, p := range input.Pairs {
		if p.ItemID == "" || p.SourceLocationID == "" || p.DestinationLocationID == "" || p.UOM == "" {
			return domain.ErrInvalidInput
		}
		if p.SourceLocationID == p.DestinationLocationID {
			return domain.ErrInvalidInput.WithDetails(map[string]any{"reason": "origen y destino iguales"})
		}
		if !quantity.IsPositive(p.Quantity) {
			return domain.ErrInvalidQuantity.WithDetails(map[string]any{"item_id": p.ItemID})
		}
	}
	return nil
}

func (uc *TransferUseCase) transfer(ctx context.Context, r ports.Repos, input TransferInput) (*TransferResult, error) {
	now := uc.now()
	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = now
	}

	mov := &entity.Movement{
		ID:         uuid.New().String(),
		TenantID:   input.TenantID,
		Type:       entity.MovementTypeTRANSFER,
		Status:     entity.MovementStatusPOSTED,
		Reference:  input.Reference,
		OccurredAt: occurredAt,
		PostedAt:   &now,
		CreatedAt:  now,
		CreatedBy:  input.ActorID,
	}

	// Dos líneas por par: salida negativa en origen, entrada positiva en
	// destino. El par netea a cero por construcción.
	var lines []*entity.MovementLine
	reqs := make([]RelocationRequest, 0, len(input.Pairs))
	for _, p := range input.Pairs {
		if _, err := r.Catalog.GetItem(ctx, input.TenantID, p.ItemID); err != nil {
			return nil, err
		}
		if _, err := r.Catalog.GetLocation(ctx, input.TenantID, p.SourceLocationID); err != nil {
			return nil, err
		}
		if _, err := r.Catalog.GetLocation(ctx, input.TenantID, p.DestinationLocationID); err != nil {
			return nil, err
		}
		qty := quantity.Round(p.Quantity)
		out := &entity.MovementLine{
			ID:            uuid.New().String(),
			MovementID:    mov.ID,
			ItemID:        p.ItemID,
			LocationID:    p.SourceLocationID,
			UOM:           p.UOM,
			QuantityDelta: qty.Neg(),
		}
		in := &entity.MovementLine{
			ID:            uuid.New().String(),
			MovementID:    mov.ID,
			ItemID:        p.ItemID,
			LocationID:    p.DestinationLocationID,
			UOM:           p.UOM,
			QuantityDelta: qty,
		}
		lines = append(lines, out, in)
		reqs = append(reqs, RelocationRequest{
			Pair: dominv.TransferPair{
				ItemID:                p.ItemID,
				SourceLocationID:      p.SourceLocationID,
				DestinationLocationID: p.DestinationLocationID,
				UOM:                   p.UOM,
				OutLineID:             out.ID,
			},
			Quantity: qty,
			InLineID: in.ID,
		})
	}

	// Puerta de stock negativo sobre el neto por bucket de TODAS las líneas:
	// dos pares que salen del mismo origen se evalúan por su suma, y un par
	// que repone un bucket del que otro par saca cuenta a favor.
	if err := checkNegativeStockGate(ctx, r, uc.gate, input.TenantID, lines, input.Override); err != nil {
		return nil, err
	}

	if _, err := uc.engine.Relocate(ctx, r.CostLayers, input.TenantID, mov.ID, reqs, occurredAt); err != nil {
		return nil, err
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
			Int("pairs", len(input.Pairs)).
			Msg("traslado posteado")
	}
	return &TransferResult{MovementID: mov.ID}, nil
}
