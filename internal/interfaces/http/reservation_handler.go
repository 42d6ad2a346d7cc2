package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/inventory-core/internal/application/dto"
	"github.com/tu-usuario/inventory-core/internal/application/reservation"
	"github.com/tu-usuario/inventory-core/internal/domain/repository"
)

// ReservationHandler maneja las peticiones HTTP del ciclo de vida de reservas
// (protegido).
type ReservationHandler struct {
	uc   *reservation.UseCase
	repo repository.ReservationRepository // lecturas directas (GET)
}

// NewReservationHandler construye el handler. repo va atado al pool.
func NewReservationHandler(uc *reservation.UseCase, repo repository.ReservationRepository) *ReservationHandler {
	return &ReservationHandler{uc: uc, repo: repo}
}

// Create crea una reserva OPEN contra la disponibilidad del bucket.
func (h *ReservationHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateReservationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	result, err := h.uc.Create(c.Context(), reservation.CreateInput{
		TenantID:       GetTenantID(c),
		ActorID:        GetUserID(c),
		IdempotencyKey: GetIdempotencyKey(c),
		ItemID:         req.ItemID,
		LocationID:     req.LocationID,
		UOM:            req.UOM,
		WarehouseID:    req.WarehouseID,
		Quantity:       req.Quantity,
		Reference:      req.Reference,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// GetByID devuelve una reserva.
func (h *ReservationHandler) GetByID(c *fiber.Ctx) error {
	res, err := h.repo.GetByID(c.Context(), GetTenantID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ReservationResponse{
		ID:                res.ID,
		ItemID:            res.ItemID,
		LocationID:        res.LocationID,
		UOM:               res.UOM,
		WarehouseID:       res.WarehouseID,
		Status:            res.Status,
		QuantityReserved:  res.QuantityReserved.String(),
		QuantityFulfilled: res.QuantityFulfilled.String(),
		Reference:         res.Reference,
		CancelReason:      res.CancelReason,
	})
}

// Allocate transición OPEN → ALLOCATED.
func (h *ReservationHandler) Allocate(c *fiber.Ctx) error {
	var req dto.AllocateReservationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	result, err := h.uc.Allocate(c.Context(), reservation.AllocateInput{
		TenantID:       GetTenantID(c),
		ActorID:        GetUserID(c),
		IdempotencyKey: GetIdempotencyKey(c),
		ReservationID:  c.Params("id"),
		WarehouseID:    req.WarehouseID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// Cancel transición OPEN|ALLOCATED → CANCELED.
func (h *ReservationHandler) Cancel(c *fiber.Ctx) error {
	var req dto.CancelReservationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	result, err := h.uc.Cancel(c.Context(), reservation.CancelInput{
		TenantID:       GetTenantID(c),
		ActorID:        GetUserID(c),
		IdempotencyKey: GetIdempotencyKey(c),
		ReservationID:  c.Params("id"),
		Reason:         req.Reason,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// Fulfill despacha cantidad contra una reserva ALLOCATED; postea el ISSUE en
// la misma transacción.
func (h *ReservationHandler) Fulfill(c *fiber.Ctx) error {
	var req dto.FulfillReservationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	result, err := h.uc.Fulfill(c.Context(), reservation.FulfillInput{
		TenantID:       GetTenantID(c),
		ActorID:        GetUserID(c),
		IdempotencyKey: GetIdempotencyKey(c),
		ReservationID:  c.Params("id"),
		Quantity:       req.Quantity,
		Reference:      req.Reference,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}
