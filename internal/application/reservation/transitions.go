package reservation

import (
	"context"
	"encoding/json"

	"github.com/tu-usuario/inventory-core/internal/application/ports"
	"github.com/tu-usuario/inventory-core/internal/domain"
	"github.com/tu-usuario/inventory-core/internal/domain/entity"
	"github.com/tu-usuario/inventory-core/internal/domain/quantity"
)

// AllocateInput entrada para asignar una reserva.
type AllocateInput struct {
	TenantID       string `json:"-"`
	ActorID        string `json:"-"`
	IdempotencyKey string `json:"-"`
	ReservationID  string `json:"reservation_id"`
	WarehouseID    string `json:"warehouse_id"`
}

// TransitionResult resultado almacenado de una transición.
type TransitionResult struct {
	ReservationID string `json:"reservation_id"`
	Status        string `json:"status"`
}

// Allocate transición OPEN → ALLOCATED. La bodega del caller debe coincidir
// con la de la reserva; un allocate concurrente sobre la misma reserva en
// vuelo responde ALLOCATE_IN_PROGRESS sin esperar.
func (uc *UseCase) Allocate(ctx context.Context, input AllocateInput) (*TransitionResult, error) {
	if input.TenantID == "" || input.ActorID == "" || input.ReservationID == "" || input.WarehouseID == "" {
		return nil, domain.ErrInvalidInput
	}
	release, ok, err := uc.locker.TryLock(ctx, lockKey(input.TenantID, input.ReservationID), uc.lockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrAllocateInProgress.WithDetails(map[string]any{"reservation_id": input.ReservationID})
	}
	defer release()

	raw, err := uc.exec.Execute(ctx, input.TenantID, OpAllocate, input.IdempotencyKey, input,
		func(ctx context.Context, r ports.Repos) (any, error) {
			res, err := r.Reservations.GetForUpdate(ctx, input.TenantID, input.ReservationID)
			if err != nil {
				return nil, err
			}
			if res.WarehouseID != input.WarehouseID {
				return nil, domain.ErrWarehouseMismatch.WithDetails(map[string]any{
					"reservation_id": res.ID,
					"warehouse_id":   input.WarehouseID,
				})
			}
			if !entity.CanTransition(res.Status, entity.ReservationStatusALLOCATED) {
				return nil, domain.ErrInvalidTransition.WithDetails(map[string]any{"from": res.Status, "to": entity.ReservationStatusALLOCATED})
			}
			res.Status = entity.ReservationStatusALLOCATED
			res.UpdatedAt = uc.now()
			if err := r.Reservations.Update(ctx, res); err != nil {
				return nil, err
			}
			return &TransitionResult{ReservationID: res.ID, Status: res.Status}, nil
		})
	if err != nil {
		return nil, err
	}
	var result TransitionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CancelInput entrada para cancelar una reserva.
type CancelInput struct {
	TenantID       string `json:"-"`
	ActorID        string `json:"-"`
	IdempotencyKey string `json:"-"`
	ReservationID  string `json:"reservation_id"`
	Reason         string `json:"reason,omitempty"`
}

// Cancel transición OPEN|ALLOCATED → CANCELED. Una reserva con cualquier
// cumplimiento registrado no se puede cancelar
// (ALLOCATED_CANCEL_FORBIDDEN). CANCELED es terminal y se retiene para
// auditoría.
func (uc *UseCase) Cancel(ctx context.Context, input CancelInput) (*TransitionResult, error) {
	if input.TenantID == "" || input.ActorID == "" || input.ReservationID == "" {
		return nil, domain.ErrInvalidInput
	}
	release, ok, err := uc.locker.TryLock(ctx, lockKey(input.TenantID, input.ReservationID), uc.lockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrCancelInProgress.WithDetails(map[string]any{"reservation_id": input.ReservationID})
	}
	defer release()

	var bucket entity.Bucket
	raw, err := uc.exec.Execute(ctx, input.TenantID, OpCancel, input.IdempotencyKey, input,
		func(ctx context.Context, r ports.Repos) (any, error) {
			res, err := r.Reservations.GetForUpdate(ctx, input.TenantID, input.ReservationID)
			if err != nil {
				return nil, err
			}
			if !entity.CanTransition(res.Status, entity.ReservationStatusCANCELED) {
				return nil, domain.ErrInvalidTransition.WithDetails(map[string]any{"from": res.Status, "to": entity.ReservationStatusCANCELED})
			}
			if quantity.IsPositive(res.QuantityFulfilled) {
				return nil, domain.ErrAllocatedCancelForbidden.WithDetails(map[string]any{
					"reservation_id": res.ID,
					"fulfilled":      res.QuantityFulfilled.String(),
				})
			}
			res.Status = entity.ReservationStatusCANCELED
			res.CancelReason = input.Reason
			res.UpdatedAt = uc.now()
			if err := r.Reservations.Update(ctx, res); err != nil {
				return nil, err
			}
			bucket = res.Bucket()
			return &TransitionResult{ReservationID: res.ID, Status: res.Status}, nil
		})
	if err != nil {
		return nil, err
	}
	// Cancelar libera disponibilidad reservada. En un replay el efecto no
	// corrió y no hay bucket que invalidar.
	if bucket != (entity.Bucket{}) {
		uc.cache.Invalidate(ctx, bucket)
	}
	var result TransitionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
