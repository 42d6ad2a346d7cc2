package dto

import "github.com/shopspring/decimal"

// CreateReservationRequest request para crear una reserva OPEN.
type CreateReservationRequest struct {
	ItemID      string          `json:"item_id"`
	LocationID  string          `json:"location_id"`
	UOM         string          `json:"uom"`
	WarehouseID string          `json:"warehouse_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Reference   string          `json:"reference,omitempty"`
}

// AllocateReservationRequest request para asignar (OPEN → ALLOCATED).
type AllocateReservationRequest struct {
	WarehouseID string `json:"warehouse_id"`
}

// CancelReservationRequest request para cancelar (OPEN|ALLOCATED → CANCELED).
type CancelReservationRequest struct {
	Reason string `json:"reason,omitempty"`
}

// FulfillReservationRequest request para despachar cantidad de una reserva ALLOCATED.
type FulfillReservationRequest struct {
	Quantity  decimal.Decimal `json:"quantity"`
	Reference string          `json:"reference,omitempty"`
}

// ReservationResponse representación de una reserva en respuestas.
type ReservationResponse struct {
	ID                string `json:"id"`
	ItemID            string `json:"item_id"`
	LocationID        string `json:"location_id"`
	UOM               string `json:"uom"`
	WarehouseID       string `json:"warehouse_id"`
	Status            string `json:"status"`
	QuantityReserved  string `json:"quantity_reserved"`
	QuantityFulfilled string `json:"quantity_fulfilled"`
	Reference         string `json:"reference,omitempty"`
	CancelReason      string `json:"cancel_reason,omitempty"`
}
