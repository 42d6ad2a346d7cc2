package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de la reserva. OPEN → ALLOCATED → FULFILLED; OPEN|ALLOCATED →
// CANCELED. FULFILLED y CANCELED son terminales; las reservas nunca se borran
// (CANCELED se retiene para auditoría).
const (
	ReservationStatusOPEN      = "OPEN"
	ReservationStatusALLOCATED = "ALLOCATED"
	ReservationStatusFULFILLED = "FULFILLED"
	ReservationStatusCANCELED  = "CANCELED"
)

// Reservation apartado de disponibilidad del lado de la demanda, independiente
// del ledger hasta que el cumplimiento postea un movimiento.
type Reservation struct {
	ID                string
	TenantID          string
	ItemID            string
	LocationID        string
	UOM               string
	WarehouseID       string
	Status            string
	QuantityReserved  decimal.Decimal
	QuantityFulfilled decimal.Decimal // siempre ≤ QuantityReserved
	RequestedBy       string
	Reference         string // orden de venta u otro documento de demanda
	CancelReason      string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Bucket devuelve el bucket de la reserva.
func (r *Reservation) Bucket() Bucket {
	return Bucket{TenantID: r.TenantID, ItemID: r.ItemID, LocationID: r.LocationID, UOM: r.UOM}
}

// RemainingToFulfill cantidad reservada aún sin cumplir.
func (r *Reservation) RemainingToFulfill() decimal.Decimal {
	return r.QuantityReserved.Sub(r.QuantityFulfilled)
}

// IsTerminal indica si el estado no admite más transiciones.
func (r *Reservation) IsTerminal() bool {
	return r.Status == ReservationStatusFULFILLED || r.Status == ReservationStatusCANCELED
}

// CanTransition tabla de transiciones legales de la máquina de estados.
func CanTransition(from, to string) bool {
	switch from {
	case ReservationStatusOPEN:
		return to == ReservationStatusALLOCATED || to == ReservationStatusCANCELED
	case ReservationStatusALLOCATED:
		return to == ReservationStatusFULFILLED || to == ReservationStatusCANCELED
	default:
		return false
	}
}
