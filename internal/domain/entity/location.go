package entity

import "time"

// Warehouse bodega física; agrupa ubicaciones y delimita las reservas.
type Warehouse struct {
	ID        string
	TenantID  string
	Name      string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Location ubicación de almacenamiento dentro de una bodega (estante, zona,
// muelle). Sellable indica si su stock cuenta como disponibilidad vendible;
// las reservas solo pueden apuntar a ubicaciones vendibles.
type Location struct {
	ID          string
	TenantID    string
	WarehouseID string
	Name        string
	Sellable    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Item artículo rastreado en inventario.
type Item struct {
	ID         string
	TenantID   string
	SKU        string
	Name       string
	DefaultUOM string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
