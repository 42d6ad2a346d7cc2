package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/inventory-core/internal/domain"
	"github.com/tu-usuario/inventory-core/internal/domain/entity"
	"github.com/tu-usuario/inventory-core/internal/domain/repository"
)

var _ repository.CatalogRepository = (*CatalogRepo)(nil)

// CatalogRepo lecturas de catálogo (ítems, bodegas, ubicaciones).
type CatalogRepo struct {
	q Querier
}

func NewCatalogRepository(q Querier) *CatalogRepo {
	return &CatalogRepo{q: q}
}

func (r *CatalogRepo) GetItem(ctx context.Context, tenantID, id string) (*entity.Item, error) {
	query := `
		SELECT id, tenant_id, sku, name, default_uom, created_at, updated_at
		FROM items
		WHERE tenant_id = $1 AND id = $2`
	var it entity.Item
	err := r.q.QueryRow(ctx, query, tenantID, id).
		Scan(&it.ID, &it.TenantID, &it.SKU, &it.Name, &it.DefaultUOM, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound.WithDetails(map[string]any{"item_id": id})
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &it, nil
}

func (r *CatalogRepo) GetWarehouse(ctx context.Context, tenantID, id string) (*entity.Warehouse, error) {
	query := `
		SELECT id, tenant_id, name, COALESCE(address, ''), created_at, updated_at
		FROM warehouses
		WHERE tenant_id = $1 AND id = $2`
	var w entity.Warehouse
	err := r.q.QueryRow(ctx, query, tenantID, id).
		Scan(&w.ID, &w.TenantID, &w.Name, &w.Address, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound.WithDetails(map[string]any{"warehouse_id": id})
		}
		return nil, fmt.Errorf("get warehouse: %w", err)
	}
	return &w, nil
}

func (r *CatalogRepo) GetLocation(ctx context.Context, tenantID, id string) (*entity.Location, error) {
	query := `
		SELECT id, tenant_id, warehouse_id, name, sellable, created_at, updated_at
		FROM locations
		WHERE tenant_id = $1 AND id = $2`
	var loc entity.Location
	err := r.q.QueryRow(ctx, query, tenantID, id).
		Scan(&loc.ID, &loc.TenantID, &loc.WarehouseID, &loc.Name, &loc.Sellable, &loc.CreatedAt, &loc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound.WithDetails(map[string]any{"location_id": id})
		}
		return nil, fmt.Errorf("get location: %w", err)
	}
	return &loc, nil
}
