package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// CostLayer rebanada de cantidad en mano con un costo unitario específico.
// Se crea cuando entra stock a una ubicación (recepción, traslado entrante,
// ajuste positivo) y se consume en orden FIFO; RemainingQuantity nunca baja
// de cero.
type CostLayer struct {
	ID                string
	TenantID          string
	ItemID            string
	LocationID        string
	UOM               string
	RemainingQuantity decimal.Decimal
	UnitCost          decimal.Decimal
	LayerDate         time.Time
	LayerSequence     int64 // desempate dentro de la misma fecha
	SourceMovementID  string
	VoidedAt          *time.Time
	CreatedAt         time.Time
}

// ExtendedCost costo extendido de lo que queda en la capa.
func (c *CostLayer) ExtendedCost() decimal.Decimal {
	return c.RemainingQuantity.Mul(c.UnitCost)
}

// Bucket devuelve el bucket de la capa.
func (c *CostLayer) Bucket() Bucket {
	return Bucket{TenantID: c.TenantID, ItemID: c.ItemID, LocationID: c.LocationID, UOM: c.UOM}
}

// CostLayerConsumption registro inmutable de una cantidad tomada de una capa
// por un documento consumidor (traslado saliente, despacho, scrap).
type CostLayerConsumption struct {
	ID             string
	TenantID       string
	CostLayerID    string
	MovementID     string
	MovementLineID string
	Quantity       decimal.Decimal
	UnitCost       decimal.Decimal
	CreatedAt      time.Time
}

// CostLayerTransferLink registra que un traslado movió Quantity al costo
// UnitCost desde una capa origen hacia una capa destino recién creada.
// Se usa para caminar y revertir cadenas de traslados rebanada por rebanada.
type CostLayerTransferLink struct {
	ID                 string
	TenantID           string
	MovementID         string // traslado (o reversión) que generó el link
	OutLineID          string
	SourceLayerID      string
	DestinationLayerID string
	Quantity           decimal.Decimal
	UnitCost           decimal.Decimal
	CreatedAt          time.Time
}

// ExtendedCost costo extendido de la rebanada trasladada.
func (l *CostLayerTransferLink) ExtendedCost() decimal.Decimal {
	return l.Quantity.Mul(l.UnitCost)
}
