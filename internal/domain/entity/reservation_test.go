package entity

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name string
		from string
		to   string
		want bool
	}{
		{"open a allocated", ReservationStatusOPEN, ReservationStatusALLOCATED, true},
		{"open a canceled", ReservationStatusOPEN, ReservationStatusCANCELED, true},
		{"open a fulfilled directo", ReservationStatusOPEN, ReservationStatusFULFILLED, false},
		{"allocated a fulfilled", ReservationStatusALLOCATED, ReservationStatusFULFILLED, true},
		{"allocated a canceled", ReservationStatusALLOCATED, ReservationStatusCANCELED, true},
		{"allocated a open", ReservationStatusALLOCATED, ReservationStatusOPEN, false},
		{"fulfilled es terminal", ReservationStatusFULFILLED, ReservationStatusCANCELED, false},
		{"canceled es terminal", ReservationStatusCANCELED, ReservationStatusALLOCATED, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanTransition(tc.from, tc.to))
		})
	}
}

func TestReservation_RemainingToFulfill(t *testing.T) {
	r := &Reservation{
		QuantityReserved:  decimal.NewFromInt(60),
		QuantityFulfilled: decimal.NewFromInt(20),
	}
	assert.True(t, r.RemainingToFulfill().Equal(decimal.NewFromInt(40)))
}

func TestReservation_IsTerminal(t *testing.T) {
	assert.False(t, (&Reservation{Status: ReservationStatusOPEN}).IsTerminal())
	assert.False(t, (&Reservation{Status: ReservationStatusALLOCATED}).IsTerminal())
	assert.True(t, (&Reservation{Status: ReservationStatusFULFILLED}).IsTerminal())
	assert.True(t, (&Reservation{Status: ReservationStatusCANCELED}).IsTerminal())
}
