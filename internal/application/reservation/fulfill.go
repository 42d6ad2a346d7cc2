package reservation

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/inventory-core/internal/application/ports"
	"github.com/tu-usuario/inventory-core/internal/domain"
	"github.com/tu-usuario/inventory-core/internal/domain/entity"
	"github.com/tu-usuario/inventory-core/internal/domain/quantity"
)

// FulfillInput entrada para cumplir (despachar) una reserva.
type FulfillInput struct {
	TenantID       string          `json:"-"`
	ActorID        string          `json:"-"`
	IdempotencyKey string          `json:"-"`
	ReservationID  string          `json:"reservation_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	Reference      string          `json:"reference,omitempty"` // documento de despacho
}

// FulfillResult resultado almacenado del cumplimiento.
type FulfillResult struct {
	ReservationID     string `json:"reservation_id"`
	Status            string `json:"status"`
	MovementID        string `json:"movement_id"`
	QuantityFulfilled string `json:"quantity_fulfilled"`
}

// Fulfill despacha cantidad contra una reserva ALLOCATED: incrementa lo
// cumplido y postea el movimiento ISSUE en la misma transacción, anclando el
// consumo de la reserva a la verdad del ledger. El cumplimiento parcial deja
// la reserva ALLOCATED; el incremento que completa lo reservado (con
// tolerancia epsilon) la pasa a FULFILLED.
func (uc *UseCase) Fulfill(ctx context.Context, input FulfillInput) (*FulfillResult, error) {
	if input.TenantID == "" || input.ActorID == "" || input.ReservationID == "" {
		return nil, domain.ErrInvalidInput
	}
	if !quantity.IsPositive(input.Quantity) {
		return nil, domain.ErrInvalidQuantity
	}
	release, ok, err := uc.locker.TryLock(ctx, lockKey(input.TenantID, input.ReservationID), uc.lockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrFulfillInProgress.WithDetails(map[string]any{"reservation_id": input.ReservationID})
	}
	defer release()

	var bucket entity.Bucket
	raw, err := uc.exec.Execute(ctx, input.TenantID, OpFulfill, input.IdempotencyKey, input,
		func(ctx context.Context, r ports.Repos) (any, error) {
			res, err := r.Reservations.GetForUpdate(ctx, input.TenantID, input.ReservationID)
			if err != nil {
				return nil, err
			}
			if res.Status != entity.ReservationStatusALLOCATED {
				return nil, domain.ErrInvalidTransition.WithDetails(map[string]any{"from": res.Status, "to": entity.ReservationStatusFULFILLED})
			}
			qty := quantity.Round(input.Quantity)
			if !quantity.GTE(res.RemainingToFulfill(), qty) {
				return nil, domain.ErrInvalidQuantity.WithDetails(map[string]any{
					"requested": qty.String(),
					"remaining": res.RemainingToFulfill().String(),
				})
			}

			// Primero libera lo reservado, luego baja el on-hand: la
			// disponibilidad del bucket queda neta igual dentro de la tx.
			res.QuantityFulfilled = quantity.Add(res.QuantityFulfilled, qty)
			if quantity.IsZero(res.RemainingToFulfill()) {
				res.Status = entity.ReservationStatusFULFILLED
			}
			res.UpdatedAt = uc.now()
			if err := r.Reservations.Update(ctx, res); err != nil {
				return nil, err
			}

			now := uc.now()
			mov := &entity.Movement{
				ID:         uuid.New().String(),
				TenantID:   input.TenantID,
				Type:       entity.MovementTypeISSUE,
				Status:     entity.MovementStatusPOSTED,
				Reference:  res.ID, // el movimiento que cumple apunta a la reserva
				OccurredAt: now,
				PostedAt:   &now,
				CreatedAt:  now,
				CreatedBy:  input.ActorID,
			}
			line := &entity.MovementLine{
				ID:            uuid.New().String(),
				MovementID:    mov.ID,
				ItemID:        res.ItemID,
				LocationID:    res.LocationID,
				UOM:           res.UOM,
				QuantityDelta: qty.Neg(),
				ReasonCode:    "FULFILLMENT",
				Notes:         input.Reference,
			}
			if _, err := uc.engine.Consume(ctx, r.CostLayers, res.Bucket(), qty, mov.ID, line.ID); err != nil {
				return nil, err
			}
			if err := r.Movements.Insert(ctx, mov); err != nil {
				return nil, err
			}
			if err := r.Movements.InsertLines(ctx, []*entity.MovementLine{line}); err != nil {
				return nil, err
			}
			bucket = res.Bucket()
			if uc.log != nil {
				uc.log.Info().
					Str("tenant_id", input.TenantID).
					Str("reservation_id", res.ID).
					Str("movement_id", mov.ID).
					Str("status", res.Status).
					Msg("reserva cumplida")
			}
			return &FulfillResult{
				ReservationID:     res.ID,
				Status:            res.Status,
				MovementID:        mov.ID,
				QuantityFulfilled: res.QuantityFulfilled.String(),
			}, nil
		})
	if err != nil {
		return nil, err
	}
	if bucket != (entity.Bucket{}) {
		uc.cache.Invalidate(ctx, bucket)
	}
	var result FulfillResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
