package inventory

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/tu-usuario/inventory-core/internal/application/ports"
	"github.com/tu-usuario/inventory-core/internal/application/posting"
	"github.com/tu-usuario/inventory-core/internal/domain"
	"github.com/tu-usuario/inventory-core/internal/domain/entity"
	"github.com/tu-usuario/inventory-core/internal/domain/quantity"
	"github.com/tu-usuario/inventory-core/pkg/logger"
)

// ReverseTransferUseCase deshace un traslado posteando el movimiento opuesto.
// El original nunca se edita: ambos movimientos quedan POSTED y netean a cero;
// la referencia del movimiento de reversión apunta al original.
type ReverseTransferUseCase struct {
	exec   *posting.Executor
	engine *CostEngine
	cache  ports.AvailabilityCache
	log    *logger.Logger
	now    func() time.Time
}

// NewReverseTransferUseCase construye el caso de uso. clock nil usa time.Now.
func NewReverseTransferUseCase(exec *posting.Executor, engine *CostEngine, cache ports.AvailabilityCache, log *logger.Logger, clock func() time.Time) *ReverseTransferUseCase {
	if clock == nil {
		clock = time.Now
	}
	return &ReverseTransferUseCase{exec: exec, engine: engine, cache: cache, log: log, now: clock}
}

// ReverseTransferInput entrada de la reversión.
type ReverseTransferInput struct {
	TenantID       string `json:"-"`
	ActorID        string `json:"-"`
	IdempotencyKey string `json:"-"`
	MovementID     string `json:"movement_id"`
	Reason         string `json:"reason,omitempty"`
}

// ReverseTransferResult resultado almacenado de la reversión.
type ReverseTransferResult struct {
	ReversalMovementID string `json:"reversal_movement_id"`
}

// Reverse ejecuta la reversión idempotente e invalida el caché de los buckets
// de todas las líneas del traslado original.
func (uc *ReverseTransferUseCase) Reverse(ctx context.Context, input ReverseTransferInput) (*ReverseTransferResult, error) {
	if input.TenantID == "" || input.ActorID == "" || input.MovementID == "" {
		return nil, domain.ErrInvalidInput
	}
	var buckets []entity.Bucket
	raw, err := uc.exec.Execute(ctx, input.TenantID, OpReverseTransfer, input.IdempotencyKey, input,
		func(ctx context.Context, r ports.Repos) (any, error) {
			result, bs, err := uc.reverse(ctx, r, input)
			buckets = bs
			return result, err
		})
	if err != nil {
		return nil, err
	}
	for _, b := range buckets {
		uc.cache.Invalidate(ctx, b)
	}
	var result ReverseTransferResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (uc *ReverseTransferUseCase) reverse(ctx context.Context, r ports.Repos, input ReverseTransferInput) (*ReverseTransferResult, []entity.Bucket, error) {
	original, err := r.Movements.GetByID(ctx, input.TenantID, input.MovementID)
	if err != nil {
		return nil, nil, err
	}
	if original.Type != entity.MovementTypeTRANSFER || original.Status != entity.MovementStatusPOSTED {
		return nil, nil, domain.ErrInvalidState.WithDetails(map[string]any{"movement_id": original.ID, "status": original.Status})
	}
	origLines, err := r.Movements.GetLines(ctx, input.TenantID, original.ID)
	if err != nil {
		return nil, nil, err
	}

	now := uc.now()
	reversal := &entity.Movement{
		ID:         uuid.New().String(),
		TenantID:   input.TenantID,
		Type:       entity.MovementTypeTRANSFER,
		Status:     entity.MovementStatusPOSTED,
		Reference:  original.ID,
		OccurredAt: now,
		PostedAt:   &now,
		CreatedAt:  now,
		CreatedBy:  input.ActorID,
	}

	// Línea de reversión = línea original con delta opuesto. El mapeo de línea
	// de salida original → línea de reversión que recibe el stock de vuelta es
	// lo que el motor usa para etiquetar consumos y links de la reversión.
	lineMap := make(map[string]string, len(origLines)/2)
	revLines := make([]*entity.MovementLine, 0, len(origLines))
	buckets := make([]entity.Bucket, 0, len(origLines))
	for _, ol := range origLines {
		rl := &entity.MovementLine{
			ID:            uuid.New().String(),
			MovementID:    reversal.ID,
			ItemID:        ol.ItemID,
			LocationID:    ol.LocationID,
			UOM:           ol.UOM,
			QuantityDelta: ol.QuantityDelta.Neg(),
			ReasonCode:    input.Reason,
		}
		revLines = append(revLines, rl)
		buckets = append(buckets, entity.LineBucket(input.TenantID, ol))
		if quantity.IsNegative(ol.QuantityDelta) {
			lineMap[ol.ID] = rl.ID
		}
	}

	if _, err := uc.engine.ReverseTransfer(ctx, r.CostLayers, input.TenantID, original.ID, reversal.ID, lineMap); err != nil {
		return nil, nil, err
	}
	if err := r.Movements.Insert(ctx, reversal); err != nil {
		return nil, nil, err
	}
	if err := r.Movements.InsertLines(ctx, revLines); err != nil {
		return nil, nil, err
	}
	if uc.log != nil {
		uc.log.Info().
			Str("tenant_id", input.TenantID).
			Str("movement_id", original.ID).
			Str("reversal_id", reversal.ID).
			Msg("traslado revertido")
	}
	return &ReverseTransferResult{ReversalMovementID: reversal.ID}, buckets, nil
}
