package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de inventario.
const (
	MovementTypeRECEIVE    = "RECEIVE"    // entrada (compra, devolución de cliente)
	MovementTypeISSUE      = "ISSUE"      // salida (despacho, scrap)
	MovementTypeTRANSFER   = "TRANSFER"   // traslado entre ubicaciones
	MovementTypeADJUSTMENT = "ADJUSTMENT" // ajuste con signo libre
	MovementTypeCOUNT      = "COUNT"      // conteo físico (ajuste contra conteo)
)

// Estados del movimiento. Una vez POSTED el movimiento es inmutable: la única
// transición permitida es a CANCELED, y solo mediante un movimiento de reversión
// con deltas opuestos, nunca editando líneas en sitio.
const (
	MovementStatusDRAFT    = "DRAFT"
	MovementStatusPOSTED   = "POSTED"
	MovementStatusCANCELED = "CANCELED"
)

// Movement cabecera de un conjunto atómico de cambios de cantidad con signo.
type Movement struct {
	ID         string
	TenantID   string
	Type       string
	Status     string
	Reference  string // documento externo: orden, reserva, traslado original en reversiones
	OccurredAt time.Time
	PostedAt   *time.Time
	CreatedAt  time.Time
	CreatedBy  string
}

// MovementLine línea de un movimiento: delta de cantidad con signo sobre un
// bucket (item, ubicación, unidad de medida). Las líneas nunca se editan ni
// borran; las correcciones son movimientos nuevos con deltas opuestos.
type MovementLine struct {
	ID            string
	MovementID    string
	ItemID        string
	LocationID    string
	UOM           string
	QuantityDelta decimal.Decimal  // positivo entra, negativo sale
	UnitCost      *decimal.Decimal // obligatorio cuando la línea crea capas (RECEIVE, ajuste positivo)
	ReasonCode    string
	Notes         string
}

// Bucket tupla (tenant, item, ubicación, uom) a la que se ancla todo el
// tracking de cantidad y costo.
type Bucket struct {
	TenantID   string
	ItemID     string
	LocationID string
	UOM        string
}

// LineBucket devuelve el bucket de una línea bajo el tenant dado.
func LineBucket(tenantID string, l *MovementLine) Bucket {
	return Bucket{TenantID: tenantID, ItemID: l.ItemID, LocationID: l.LocationID, UOM: l.UOM}
}
