package policy_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/tu-usuario/inventory-core/internal/application/policy"
	"github.com/tu-usuario/inventory-core/internal/domain"
)

func TestGate_DisponibilidadSuficiente(t *testing.T) {
	g := policy.NewNegativeStockGate(true)
	err := g.Check(decimal.NewFromInt(10), decimal.NewFromInt(-10), policy.Override{})
	assert.NoError(t, err)
}

func TestGate_FaltanteSinOverride(t *testing.T) {
	g := policy.NewNegativeStockGate(true)
	err := g.Check(decimal.NewFromInt(5), decimal.NewFromInt(-8), policy.Override{})
	assert.ErrorIs(t, err, domain.ErrInsufficientAvailable)
}

func TestGate_OverrideSinPermiso(t *testing.T) {
	g := policy.NewNegativeStockGate(true)
	err := g.Check(decimal.NewFromInt(5), decimal.NewFromInt(-8),
		policy.Override{Requested: true, Allowed: false, Reason: "conteo pendiente"})
	assert.ErrorIs(t, err, domain.ErrNegativeOverrideNotAllowed)
}

func TestGate_OverridesDeshabilitados(t *testing.T) {
	g := policy.NewNegativeStockGate(false)
	err := g.Check(decimal.NewFromInt(5), decimal.NewFromInt(-8),
		policy.Override{Requested: true, Allowed: true, Reason: "conteo pendiente"})
	assert.ErrorIs(t, err, domain.ErrNegativeOverrideNotAllowed)
}

func TestGate_OverrideSinMotivo(t *testing.T) {
	g := policy.NewNegativeStockGate(true)
	err := g.Check(decimal.NewFromInt(5), decimal.NewFromInt(-8),
		policy.Override{Requested: true, Allowed: true})
	assert.ErrorIs(t, err, domain.ErrNegativeOverrideRequiresReason)
}

func TestGate_OverrideAutorizado(t *testing.T) {
	g := policy.NewNegativeStockGate(true)
	err := g.Check(decimal.NewFromInt(5), decimal.NewFromInt(-8),
		policy.Override{Requested: true, Allowed: true, Reason: "despacho urgente aprobado por gerencia", Actor: "user-1"})
	assert.NoError(t, err)
}
