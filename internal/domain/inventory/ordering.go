package inventory

import (
	"sort"

	"github.com/tu-usuario/inventory-core/internal/domain/entity"
)

// LayerLess comparador FIFO de capas de costo: (layer_date, layer_sequence, id).
// Es el mismo orden del ORDER BY en el repositorio; mantenerlo como función de
// dominio explícita permite testearlo y lo usan los fakes en memoria.
func LayerLess(a, b *entity.CostLayer) bool {
	if !a.LayerDate.Equal(b.LayerDate) {
		return a.LayerDate.Before(b.LayerDate)
	}
	if a.LayerSequence != b.LayerSequence {
		return a.LayerSequence < b.LayerSequence
	}
	return a.ID < b.ID
}

// SortLayers ordena capas en orden de consumo FIFO.
func SortLayers(layers []*entity.CostLayer) {
	sort.SliceStable(layers, func(i, j int) bool { return LayerLess(layers[i], layers[j]) })
}

// TransferPair un par (item, origen, destino) dentro de un traslado multi-línea.
// OutLineID identifica la línea de salida que origina el par.
type TransferPair struct {
	ItemID                string
	SourceLocationID      string
	DestinationLocationID string
	UOM                   string
	OutLineID             string
}

// PairLess orden determinista de bloqueo para traslados multi-par:
// (itemID, sourceLocationID, destinationLocationID, outLineID). Dos traslados
// concurrentes que tocan pares solapados adquieren los locks en el mismo orden
// relativo, así el orden de bloqueo no queda como subproducto del orden del
// request.
func PairLess(a, b TransferPair) bool {
	if a.ItemID != b.ItemID {
		return a.ItemID < b.ItemID
	}
	if a.SourceLocationID != b.SourceLocationID {
		return a.SourceLocationID < b.SourceLocationID
	}
	if a.DestinationLocationID != b.DestinationLocationID {
		return a.DestinationLocationID < b.DestinationLocationID
	}
	return a.OutLineID < b.OutLineID
}

// SortTransferPairs ordena los pares antes de adquirir cualquier lock.
func SortTransferPairs(pairs []TransferPair) {
	sort.SliceStable(pairs, func(i, j int) bool { return PairLess(pairs[i], pairs[j]) })
}
