package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeTotals_BelowFreeShippingThreshold(t *testing.T) {
	// 2 x 100 + 1 x 250 = 450 subtotal
	lines := []OrderLine{
		{ProductID: 42, UnitPrice: 100, Quantity: 2},
		{ProductID: 7, UnitPrice: 250, Quantity: 1},
	}

	totals := ComputeTotals(lines)

	assert.Equal(t, 450.0, totals.Subtotal)
	assert.Equal(t, 81.0, totals.Tax)      // round(450 * 0.18)
	assert.Equal(t, 50.0, totals.Shipping) // 450 <= 500
	assert.Equal(t, 581.0, totals.Total)
}

func TestComputeTotals_FreeShippingAboveThreshold(t *testing.T) {
	lines := []OrderLine{
		{ProductID: 1, UnitPrice: 300, Quantity: 2},
	}

	totals := ComputeTotals(lines)

	assert.Equal(t, 600.0, totals.Subtotal)
	assert.Equal(t, 108.0, totals.Tax)
	assert.Equal(t, 0.0, totals.Shipping)
	assert.Equal(t, 708.0, totals.Total)
}

func TestComputeTotals_InvariantHolds(t *testing.T) {
	cases := [][]OrderLine{
		{{UnitPrice: 99.5, Quantity: 3}},
		{{UnitPrice: 1, Quantity: 1}},
		{{UnitPrice: 500, Quantity: 1}}, // exactly at threshold, shipping still applies
		{{UnitPrice: 125.25, Quantity: 4}, {UnitPrice: 10, Quantity: 7}},
	}

	for _, lines := range cases {
		totals := ComputeTotals(lines)
		assert.Equal(t, totals.Subtotal+totals.Tax+totals.Shipping, totals.Total)
	}
}

func TestComputeTotals_ShippingAtExactThreshold(t *testing.T) {
	lines := []OrderLine{{UnitPrice: 500, Quantity: 1}}
	totals := ComputeTotals(lines)
	// Waiver requires subtotal strictly above the threshold.
	assert.Equal(t, 50.0, totals.Shipping)
}

func TestAmountPaise(t *testing.T) {
	assert.Equal(t, int64(58100), AmountPaise(581))
	assert.Equal(t, int64(9950), AmountPaise(99.5))
	assert.Equal(t, int64(1), AmountPaise(0.01))
}

func TestCanTransitionTo_ForwardMoves(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusConfirmed))
	assert.True(t, StatusConfirmed.CanTransitionTo(StatusProcessing))
	assert.True(t, StatusProcessing.CanTransitionTo(StatusShipped))
	assert.True(t, StatusShipped.CanTransitionTo(StatusDelivered))
}

func TestCanTransitionTo_Cancellation(t *testing.T) {
	// Allowed from any pre-shipped state.
	assert.True(t, StatusPending.CanTransitionTo(StatusCancelled))
	assert.True(t, StatusConfirmed.CanTransitionTo(StatusCancelled))
	assert.True(t, StatusProcessing.CanTransitionTo(StatusCancelled))

	assert.False(t, StatusShipped.CanTransitionTo(StatusCancelled))
	assert.False(t, StatusDelivered.CanTransitionTo(StatusCancelled))
	assert.False(t, StatusCancelled.CanTransitionTo(StatusCancelled))
}

func TestCanTransitionTo_RejectsEverythingElse(t *testing.T) {
	all := []OrderStatus{
		StatusPending, StatusConfirmed, StatusProcessing,
		StatusShipped, StatusDelivered, StatusCancelled,
	}

	allowed := map[[2]OrderStatus]bool{
		{StatusPending, StatusConfirmed}:    true,
		{StatusPending, StatusCancelled}:    true,
		{StatusConfirmed, StatusProcessing}: true,
		{StatusConfirmed, StatusCancelled}:  true,
		{StatusProcessing, StatusShipped}:   true,
		{StatusProcessing, StatusCancelled}: true,
		{StatusShipped, StatusDelivered}:    true,
	}

	for _, from := range all {
		for _, to := range all {
			got := from.CanTransitionTo(to)
			assert.Equal(t, allowed[[2]OrderStatus{from, to}], got,
				"transition %s -> %s", from, to)
		}
	}
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusDelivered.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())

	assert.True(t, StatusProcessing.IsValid())
	assert.False(t, OrderStatus("refunded").IsValid())
}

func TestEstimateDelivery_SkipsWeekends(t *testing.T) {
	// Monday 2026-08-03 + 7 days = Monday 2026-08-10 (no skip needed).
	monday := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	got := EstimateDelivery(monday, 7)
	assert.Equal(t, time.Monday, got.Weekday())

	// Monday + 5 clamps to 7; landing on a weekend rolls forward.
	sat := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) // Saturday
	got = EstimateDelivery(sat, 7)                      // -> Saturday 8th -> Monday 10th
	assert.NotEqual(t, time.Saturday, got.Weekday())
	assert.NotEqual(t, time.Sunday, got.Weekday())
}
