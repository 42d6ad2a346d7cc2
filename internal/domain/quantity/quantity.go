package quantity

import "github.com/shopspring/decimal"

// Precisión fija para cantidades y costos. Toda la aritmética del ledger y del
// motor de costos redondea a Places inmediatamente después de cada paso, no
// solo al final, para que la deriva no se acumule entre muchos consumos chicos.
const Places = 6

// Epsilon absorbe residuos de redondeo al comparar cantidades.
var Epsilon = decimal.New(1, -Places) // 1e-6

// Round redondea a la precisión fija (half-up, igual que NUMERIC en Postgres).
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Add suma y redondea en el mismo paso.
func Add(a, b decimal.Decimal) decimal.Decimal {
	return Round(a.Add(b))
}

// Sub resta y redondea en el mismo paso.
func Sub(a, b decimal.Decimal) decimal.Decimal {
	return Round(a.Sub(b))
}

// Mul multiplica y redondea en el mismo paso (cantidad × costo unitario).
func Mul(a, b decimal.Decimal) decimal.Decimal {
	return Round(a.Mul(b))
}

// IsZero indica si |d| < Epsilon.
func IsZero(d decimal.Decimal) bool {
	return d.Abs().LessThan(Epsilon)
}

// IsPositive indica si d ≥ Epsilon.
func IsPositive(d decimal.Decimal) bool {
	return d.GreaterThanOrEqual(Epsilon)
}

// IsNegative indica si d ≤ -Epsilon.
func IsNegative(d decimal.Decimal) bool {
	return d.LessThanOrEqual(Epsilon.Neg())
}

// Min devuelve el menor de a y b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// GTE compara a ≥ b tolerando Epsilon: true si a - b ≥ -Epsilon.
func GTE(a, b decimal.Decimal) bool {
	return a.Sub(b).GreaterThan(Epsilon.Neg())
}
