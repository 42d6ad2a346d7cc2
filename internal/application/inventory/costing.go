package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/inventory-core/internal/domain"
	"github.com/tu-usuario/inventory-core/internal/domain/entity"
	"github.com/tu-usuario/inventory-core/internal/domain/inventory"
	"github.com/tu-usuario/inventory-core/internal/domain/repository"
	"github.com/tu-usuario/inventory-core/internal/domain/quantity"
)

// CostEngine mantiene el flujo de costos FIFO por bucket. Todos sus métodos
// operan sobre repositorios atados a la transacción del caller: el consumo y
// la reubicación de costo son atómicos con el cambio de cantidad que los causa.
type CostEngine struct {
	now func() time.Time
}

// NewCostEngine construye el motor. clock nil usa time.Now.
func NewCostEngine(clock func() time.Time) *CostEngine {
	if clock == nil {
		clock = time.Now
	}
	return &CostEngine{now: clock}
}

// CreateLayer crea una capa nueva cuando entra stock a una ubicación
// (recepción, ajuste positivo, conteo a favor).
func (e *CostEngine) CreateLayer(
	ctx context.Context,
	layers repository.CostLayerRepository,
	b entity.Bucket,
	qty, unitCost decimal.Decimal,
	layerDate time.Time,
	sourceMovementID string,
) (*entity.CostLayer, error) {
	if !quantity.IsPositive(qty) || unitCost.IsNegative() {
		return nil, domain.ErrInvalidQuantity
	}
	seq, err := layers.NextSequence(ctx, b)
	if err != nil {
		return nil, err
	}
	layer := &entity.CostLayer{
		ID:                uuid.New().String(),
		TenantID:          b.TenantID,
		ItemID:            b.ItemID,
		LocationID:        b.LocationID,
		UOM:               b.UOM,
		RemainingQuantity: quantity.Round(qty),
		UnitCost:          quantity.Round(unitCost),
		LayerDate:         layerDate,
		LayerSequence:     seq,
		SourceMovementID:  sourceMovementID,
		CreatedAt:         e.now(),
	}
	if err := layers.Insert(ctx, layer); err != nil {
		return nil, err
	}
	return layer, nil
}

// Consume camina las capas abiertas del bucket en orden FIFO y toma qty,
// registrando un CostLayerConsumption por rebanada y decrementando
// remaining_quantity. Bloquea las capas con FOR UPDATE antes de verificar que
// la suma alcanza; si no alcanza, INSUFFICIENT_COST_LAYERS sin efecto alguno.
func (e *CostEngine) Consume(
	ctx context.Context,
	layers repository.CostLayerRepository,
	b entity.Bucket,
	qty decimal.Decimal,
	movementID, lineID string,
) ([]*entity.CostLayerConsumption, error) {
	if !quantity.IsPositive(qty) {
		return nil, domain.ErrInvalidQuantity
	}
	open, err := layers.ListOpenForUpdate(ctx, b)
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, l := range open {
		total = quantity.Add(total, l.RemainingQuantity)
	}
	if !quantity.GTE(total, qty) {
		return nil, domain.ErrInsufficientCostLayers.WithDetails(map[string]any{
			"item_id":     b.ItemID,
			"location_id": b.LocationID,
			"uom":         b.UOM,
			"requested":   qty.String(),
			"available":   total.String(),
		})
	}

	var out []*entity.CostLayerConsumption
	remaining := quantity.Round(qty)
	for _, l := range open {
		if quantity.IsZero(remaining) {
			break
		}
		take := quantity.Min(l.RemainingQuantity, remaining)
		if !quantity.IsPositive(take) {
			continue
		}
		cons := &entity.CostLayerConsumption{
			ID:             uuid.New().String(),
			TenantID:       b.TenantID,
			CostLayerID:    l.ID,
			MovementID:     movementID,
			MovementLineID: lineID,
			Quantity:       take,
			UnitCost:       l.UnitCost,
			CreatedAt:      e.now(),
		}
		if err := layers.InsertConsumption(ctx, cons); err != nil {
			return nil, err
		}
		newRemaining := quantity.Sub(l.RemainingQuantity, take)
		if err := layers.UpdateRemaining(ctx, b.TenantID, l.ID, newRemaining); err != nil {
			return nil, err
		}
		l.RemainingQuantity = newRemaining
		remaining = quantity.Sub(remaining, take)
		out = append(out, cons)
	}
	return out, nil
}

// RelocationRequest un par de un traslado con su cantidad y las líneas de
// salida/entrada del movimiento que lo postea.
type RelocationRequest struct {
	Pair     inventory.TransferPair
	Quantity decimal.Decimal
	InLineID string
}

// Relocate mueve costo entre ubicaciones para un traslado. Ordena los pares
// con SortTransferPairs ANTES de adquirir cualquier lock, consume de las capas
// origen en orden FIFO y crea una capa destino nueva al mismo costo unitario
// por cada rebanada consumida (nunca una sola capa con costo mezclado), con su
// CostLayerTransferLink para poder revertir después.
func (e *CostEngine) Relocate(
	ctx context.Context,
	layers repository.CostLayerRepository,
	tenantID, movementID string,
	reqs []RelocationRequest,
	layerDate time.Time,
) ([]*entity.CostLayerTransferLink, error) {
	ordered := append([]RelocationRequest(nil), reqs...)
	pairs := make([]inventory.TransferPair, len(ordered))
	for i := range ordered {
		pairs[i] = ordered[i].Pair
	}
	inventory.SortTransferPairs(pairs)
	byOutLine := make(map[string]RelocationRequest, len(ordered))
	for _, r := range ordered {
		byOutLine[r.Pair.OutLineID] = r
	}

	var links []*entity.CostLayerTransferLink
	for _, p := range pairs {
		req := byOutLine[p.OutLineID]
		src := entity.Bucket{TenantID: tenantID, ItemID: p.ItemID, LocationID: p.SourceLocationID, UOM: p.UOM}
		dst := entity.Bucket{TenantID: tenantID, ItemID: p.ItemID, LocationID: p.DestinationLocationID, UOM: p.UOM}

		consumed, err := e.Consume(ctx, layers, src, req.Quantity, movementID, p.OutLineID)
		if err != nil {
			return nil, err
		}
		for _, cons := range consumed {
			dstLayer, err := e.CreateLayer(ctx, layers, dst, cons.Quantity, cons.UnitCost, layerDate, movementID)
			if err != nil {
				return nil, err
			}
			link := &entity.CostLayerTransferLink{
				ID:                 uuid.New().String(),
				TenantID:           tenantID,
				MovementID:         movementID,
				OutLineID:          p.OutLineID,
				SourceLayerID:      cons.CostLayerID,
				DestinationLayerID: dstLayer.ID,
				Quantity:           cons.Quantity,
				UnitCost:           cons.UnitCost,
				CreatedAt:          e.now(),
			}
			if err := layers.InsertTransferLink(ctx, link); err != nil {
				return nil, err
			}
			links = append(links, link)
		}
	}
	return links, nil
}

// ReverseTransfer deshace un traslado rebanada por rebanada. Bloquea los links
// del traslado original y sus capas destino; si alguna capa destino registra
// cualquier consumo posterior, o le queda menos de lo que el link movió, la
// reversión es imposible (REVERSAL_NOT_POSSIBLE_CONSUMED: integridad, no
// reintentable). En éxito consume la capa destino de vuelta y recrea una capa
// en la ubicación origen al costo original, enlazada con un link fresco
// etiquetado al movimiento de reversión.
//
// lineMap mapea id de línea de salida original → id de línea del movimiento de
// reversión que recibe el stock de vuelta.
func (e *CostEngine) ReverseTransfer(
	ctx context.Context,
	layers repository.CostLayerRepository,
	tenantID, originalMovementID, reversalMovementID string,
	lineMap map[string]string,
) ([]*entity.CostLayerTransferLink, error) {
	links, err := layers.LinksByMovementForUpdate(ctx, tenantID, originalMovementID)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, domain.ErrNotFound.WithDetails(map[string]any{"movement_id": originalMovementID})
	}

	var created []*entity.CostLayerTransferLink
	for _, link := range links {
		revLineID, ok := lineMap[link.OutLineID]
		if !ok {
			return nil, domain.ErrMissingLineMapping.WithDetails(map[string]any{"out_line_id": link.OutLineID})
		}

		dest, err := layers.GetForUpdate(ctx, tenantID, link.DestinationLayerID)
		if err != nil {
			return nil, err
		}
		// Regla estricta: cualquier consumo ajeno contra la capa destino
		// bloquea la reversión, aunque quede cantidad suficiente.
		n, err := layers.CountConsumptionsExcluding(ctx, tenantID, dest.ID, reversalMovementID)
		if err != nil {
			return nil, err
		}
		if n > 0 || !quantity.GTE(dest.RemainingQuantity, link.Quantity) {
			return nil, domain.ErrReversalNotPossibleConsumed.WithDetails(map[string]any{
				"layer_id":  dest.ID,
				"remaining": dest.RemainingQuantity.String(),
				"required":  link.Quantity.String(),
			})
		}

		cons := &entity.CostLayerConsumption{
			ID:             uuid.New().String(),
			TenantID:       tenantID,
			CostLayerID:    dest.ID,
			MovementID:     reversalMovementID,
			MovementLineID: revLineID,
			Quantity:       link.Quantity,
			UnitCost:       link.UnitCost,
			CreatedAt:      e.now(),
		}
		if err := layers.InsertConsumption(ctx, cons); err != nil {
			return nil, err
		}
		if err := layers.UpdateRemaining(ctx, tenantID, dest.ID, quantity.Sub(dest.RemainingQuantity, link.Quantity)); err != nil {
			return nil, err
		}

		src, err := layers.GetForUpdate(ctx, tenantID, link.SourceLayerID)
		if err != nil {
			return nil, err
		}
		// La capa restaurada conserva la fecha de la capa origen para volver a
		// su posición FIFO previa al traslado.
		restored, err := e.CreateLayer(ctx, layers, src.Bucket(), link.Quantity, link.UnitCost, src.LayerDate, reversalMovementID)
		if err != nil {
			return nil, err
		}
		revLink := &entity.CostLayerTransferLink{
			ID:                 uuid.New().String(),
			TenantID:           tenantID,
			MovementID:         reversalMovementID,
			OutLineID:          revLineID,
			SourceLayerID:      dest.ID,
			DestinationLayerID: restored.ID,
			Quantity:           link.Quantity,
			UnitCost:           link.UnitCost,
			CreatedAt:          e.now(),
		}
		if err := layers.InsertTransferLink(ctx, revLink); err != nil {
			return nil, err
		}
		created = append(created, revLink)
	}
	return created, nil
}
