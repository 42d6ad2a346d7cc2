package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/inventory-core/internal/application/dto"
	"github.com/tu-usuario/inventory-core/internal/application/inventory"
	"github.com/tu-usuario/inventory-core/internal/application/policy"
	"github.com/tu-usuario/inventory-core/internal/domain/entity"
	"github.com/tu-usuario/inventory-core/internal/domain/repository"
)

// InventoryHandler maneja las peticiones HTTP de movimientos, traslados y
// disponibilidad (protegido).
type InventoryHandler struct {
	postUC     *inventory.PostMovementUseCase
	transferUC *inventory.TransferUseCase
	reverseUC  *inventory.ReverseTransferUseCase
	availSvc   *inventory.AvailabilityService
	movements  repository.MovementRepository // atado al pool, solo lecturas
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(postUC *inventory.PostMovementUseCase, transferUC *inventory.TransferUseCase, reverseUC *inventory.ReverseTransferUseCase, availSvc *inventory.AvailabilityService, movements repository.MovementRepository) *InventoryHandler {
	return &InventoryHandler{postUC: postUC, transferUC: transferUC, reverseUC: reverseUC, availSvc: availSvc, movements: movements}
}

// parseOccurredAt interpreta occurred_at RFC 3339; vacío devuelve cero (= ahora).
func parseOccurredAt(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

func overrideFrom(c *fiber.Ctx, req dto.OverrideRequest) policy.Override {
	return policy.Override{
		Requested: req.Requested,
		Allowed:   CanAuthorizeNegativeStock(GetRole(c)),
		Reason:    req.Reason,
		Actor:     GetUserID(c),
	}
}

// PostMovement postea un movimiento RECEIVE/ISSUE/ADJUSTMENT/COUNT.
// Requiere Bearer Token y X-Idempotency-Key.
func (h *InventoryHandler) PostMovement(c *fiber.Ctx) error {
	var req dto.PostMovementRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	occurredAt, err := parseOccurredAt(req.OccurredAt)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "occurred_at debe ser RFC 3339"})
	}
	lines := make([]inventory.LineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, inventory.LineInput{
			ItemID:        l.ItemID,
			LocationID:    l.LocationID,
			UOM:           l.UOM,
			QuantityDelta: l.QuantityDelta,
			UnitCost:      l.UnitCost,
			ReasonCode:    l.ReasonCode,
			Notes:         l.Notes,
		})
	}
	result, err := h.postUC.Post(c.Context(), inventory.PostMovementInput{
		TenantID:       GetTenantID(c),
		ActorID:        GetUserID(c),
		IdempotencyKey: GetIdempotencyKey(c),
		Type:           req.Type,
		Reference:      req.Reference,
		OccurredAt:     occurredAt,
		Lines:          lines,
		Override:       overrideFrom(c, req.Override),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// Transfer postea un traslado multi-par entre ubicaciones.
func (h *InventoryHandler) Transfer(c *fiber.Ctx) error {
	var req dto.TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	occurredAt, err := parseOccurredAt(req.OccurredAt)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "occurred_at debe ser RFC 3339"})
	}
	pairs := make([]inventory.TransferPairInput, 0, len(req.Pairs))
	for _, p := range req.Pairs {
		pairs = append(pairs, inventory.TransferPairInput{
			ItemID:                p.ItemID,
			SourceLocationID:      p.SourceLocationID,
			DestinationLocationID: p.DestinationLocationID,
			UOM:                   p.UOM,
			Quantity:              p.Quantity,
		})
	}
	result, err := h.transferUC.Transfer(c.Context(), inventory.TransferInput{
		TenantID:       GetTenantID(c),
		ActorID:        GetUserID(c),
		IdempotencyKey: GetIdempotencyKey(c),
		Reference:      req.Reference,
		OccurredAt:     occurredAt,
		Pairs:          pairs,
		Override:       overrideFrom(c, req.Override),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// ReverseTransfer revierte un traslado posteado posteando el movimiento opuesto.
func (h *InventoryHandler) ReverseTransfer(c *fiber.Ctx) error {
	var req dto.ReverseTransferRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	result, err := h.reverseUC.Reverse(c.Context(), inventory.ReverseTransferInput{
		TenantID:       GetTenantID(c),
		ActorID:        GetUserID(c),
		IdempotencyKey: GetIdempotencyKey(c),
		MovementID:     c.Params("id"),
		Reason:         req.Reason,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// ListMovements historial posteado de un bucket, paginado y con rango de
// fechas opcional (?item_id=&location_id=&uom=&from=&to=&limit=&offset=).
func (h *InventoryHandler) ListMovements(c *fiber.Ctx) error {
	itemID := c.Query("item_id")
	locationID := c.Query("location_id")
	uom := c.Query("uom")
	if itemID == "" || locationID == "" || uom == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_INPUT", Message: "item_id, location_id y uom son requeridos"})
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_INPUT", Message: "paginación inválida"})
	}
	page.DefaultPage()

	var from, to *time.Time
	if s := c.Query("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_INPUT", Message: "from debe ser RFC 3339"})
		}
		from = &t
	}
	if s := c.Query("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_INPUT", Message: "to debe ser RFC 3339"})
		}
		to = &t
	}

	b := entity.Bucket{TenantID: GetTenantID(c), ItemID: itemID, LocationID: locationID, UOM: uom}
	lines, err := h.movements.ListByBucket(c.Context(), b, from, to, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.MovementLineResponse, 0, len(lines))
	for _, l := range lines {
		var unitCost *string
		if l.UnitCost != nil {
			s := l.UnitCost.String()
			unitCost = &s
		}
		out = append(out, dto.MovementLineResponse{
			ID:            l.ID,
			MovementID:    l.MovementID,
			ItemID:        l.ItemID,
			LocationID:    l.LocationID,
			UOM:           l.UOM,
			QuantityDelta: l.QuantityDelta.String(),
			UnitCost:      unitCost,
			ReasonCode:    l.ReasonCode,
			Notes:         l.Notes,
		})
	}
	return c.JSON(dto.MovementListResponse{
		Lines: out,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	})
}

// GetAvailability snapshot de disponibilidad de un bucket
// (?item_id=&location_id=&uom=).
func (h *InventoryHandler) GetAvailability(c *fiber.Ctx) error {
	itemID := c.Query("item_id")
	locationID := c.Query("location_id")
	uom := c.Query("uom")
	if itemID == "" || locationID == "" || uom == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_INPUT", Message: "item_id, location_id y uom son requeridos"})
	}
	b := entity.Bucket{TenantID: GetTenantID(c), ItemID: itemID, LocationID: locationID, UOM: uom}
	snap, err := h.availSvc.Get(c.Context(), b)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.AvailabilityResponse{
		ItemID:     itemID,
		LocationID: locationID,
		UOM:        uom,
		OnHand:     snap.OnHand.String(),
		Reserved:   snap.Reserved.String(),
		Available:  snap.Available.String(),
	})
}
