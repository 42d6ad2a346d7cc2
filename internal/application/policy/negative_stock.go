package policy

import (
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/inventory-core/internal/domain"
	"github.com/tu-usuario/inventory-core/internal/domain/quantity"
)

// Override autorización explícita para dejar la disponibilidad en negativo.
// Allowed viene del rol del actor resuelto por la capa externa; el core solo
// verifica la política.
type Override struct {
	Requested bool
	Allowed   bool
	Reason    string
	Actor     string
}

// NegativeStockGate bloquea posteos que dejarían la disponibilidad del bucket
// en negativo, salvo override autorizado y con motivo.
type NegativeStockGate struct {
	// OverridesEnabled apagado niega todo override aunque el actor tenga el rol.
	OverridesEnabled bool
}

// NewNegativeStockGate construye la puerta con la política del deployment.
func NewNegativeStockGate(overridesEnabled bool) *NegativeStockGate {
	return &NegativeStockGate{OverridesEnabled: overridesEnabled}
}

// Check evalúa la disponibilidad resultante tras aplicar delta (negativo en
// salidas). Devuelve nil si el posteo puede continuar.
func (g *NegativeStockGate) Check(available, delta decimal.Decimal, ov Override) error {
	after := quantity.Add(available, delta)
	if !quantity.IsNegative(after) {
		return nil
	}
	// Sin override solicitado el posteo es un faltante normal, no un tema de
	// política.
	if !ov.Requested {
		return domain.ErrInsufficientAvailable.WithDetails(map[string]any{
			"available": available.String(),
			"delta":     delta.String(),
		})
	}
	if !ov.Allowed || !g.OverridesEnabled {
		return domain.ErrNegativeOverrideNotAllowed.WithDetails(map[string]any{
			"available": available.String(),
			"delta":     delta.String(),
		})
	}
	if ov.Reason == "" {
		return domain.ErrNegativeOverrideRequiresReason
	}
	return nil
}
