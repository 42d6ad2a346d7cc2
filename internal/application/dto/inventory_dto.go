package dto

import "github.com/shopspring/decimal"

// MovementLineRequest línea del request de posteo de movimiento.
type MovementLineRequest struct {
	ItemID        string           `json:"item_id"`
	LocationID    string           `json:"location_id"`
	UOM           string           `json:"uom"`
	QuantityDelta decimal.Decimal  `json:"quantity_delta"`
	UnitCost      *decimal.Decimal `json:"unit_cost,omitempty"`
	ReasonCode    string           `json:"reason_code,omitempty"`
	Notes         string           `json:"notes,omitempty"`
}

// OverrideRequest autorización de stock negativo adjunta al request.
type OverrideRequest struct {
	Requested bool   `json:"requested"`
	Reason    string `json:"reason,omitempty"`
}

// PostMovementRequest request para postear RECEIVE/ISSUE/ADJUSTMENT/COUNT.
type PostMovementRequest struct {
	Type       string                `json:"type"`
	Reference  string                `json:"reference,omitempty"`
	OccurredAt string                `json:"occurred_at,omitempty"` // RFC 3339; vacío = ahora
	Lines      []MovementLineRequest `json:"lines"`
	Override   OverrideRequest       `json:"override,omitempty"`
}

// TransferPairRequest par (item, origen, destino) del traslado.
type TransferPairRequest struct {
	ItemID                string          `json:"item_id"`
	SourceLocationID      string          `json:"source_location_id"`
	DestinationLocationID string          `json:"destination_location_id"`
	UOM                   string          `json:"uom"`
	Quantity              decimal.Decimal `json:"quantity"`
}

// TransferRequest request para postear un traslado multi-par.
type TransferRequest struct {
	Reference  string                `json:"reference,omitempty"`
	OccurredAt string                `json:"occurred_at,omitempty"`
	Pairs      []TransferPairRequest `json:"pairs"`
	Override   OverrideRequest       `json:"override,omitempty"`
}

// ReverseTransferRequest request para revertir un traslado posteado.
type ReverseTransferRequest struct {
	Reason string `json:"reason,omitempty"`
}

// MovementLineResponse línea del ledger en listados.
type MovementLineResponse struct {
	ID            string  `json:"id"`
	MovementID    string  `json:"movement_id"`
	ItemID        string  `json:"item_id"`
	LocationID    string  `json:"location_id"`
	UOM           string  `json:"uom"`
	QuantityDelta string  `json:"quantity_delta"`
	UnitCost      *string `json:"unit_cost,omitempty"`
	ReasonCode    string  `json:"reason_code,omitempty"`
	Notes         string  `json:"notes,omitempty"`
}

// MovementListResponse página del historial de un bucket.
type MovementListResponse struct {
	Lines []MovementLineResponse `json:"lines"`
	Page  PageResponse           `json:"page"`
}

// AvailabilityResponse snapshot de disponibilidad de un bucket.
type AvailabilityResponse struct {
	ItemID     string `json:"item_id"`
	LocationID string `json:"location_id"`
	UOM        string `json:"uom"`
	OnHand     string `json:"on_hand"`
	Reserved   string `json:"reserved"`
	Available  string `json:"available"`
}
