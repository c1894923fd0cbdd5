// Package pricing turns the length of a finished game into a price.
//
// Three tariff policies are supported and the active one is chosen at
// deployment time:
//
//	flat   – per-minute base rate until a price threshold is crossed, then a
//	         reduced rate counted from a fixed minute offset. No floor.
//	tiered – base rate for the first cutoff minutes, reduced rate afterwards,
//	         then clamped: below the floor the floor is charged, inside the
//	         plateau band the plateau price is charged.
//	hourly – the table's hourly rate with a minimum billed duration.
//
// Every function in this package is pure: the tariff is passed in explicitly
// and nothing is read from global state.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Policy names a pricing strategy.
type Policy string

const (
	PolicyFlat   Policy = "flat"
	PolicyTiered Policy = "tiered"
	PolicyHourly Policy = "hourly"
)

// ErrInvalidTariff is returned by Validate and ParsePolicy.
var ErrInvalidTariff = errors.New("invalid tariff")

var sixty = decimal.NewFromInt(60)

// Tariff holds the rate parameters for every policy. Only the fields used by
// the selected Policy matter; the rest are ignored.
type Tariff struct {
	Policy Policy

	// Per-minute rates shared by flat and tiered.
	BaseRate    decimal.Decimal
	ReducedRate decimal.Decimal

	// flat
	ThresholdPrice decimal.Decimal
	OffsetMinutes  float64

	// tiered
	CutoffMinutes     float64
	FloorPrice        decimal.Decimal
	PlateauPrice      decimal.Decimal
	PlateauUpperBound decimal.Decimal // zero means "same as PlateauPrice"

	// hourly
	MinimumMinutes float64
}

// ParsePolicy maps a configuration string onto a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyFlat, PolicyTiered, PolicyHourly:
		return p, nil
	}
	return "", fmt.Errorf("%w: unknown policy %q", ErrInvalidTariff, s)
}

// Validate reports whether the tariff can be used for pricing.
func (t Tariff) Validate() error {
	if _, err := ParsePolicy(string(t.Policy)); err != nil {
		return err
	}
	negative := map[string]bool{
		"base_rate":           t.BaseRate.IsNegative(),
		"reduced_rate":        t.ReducedRate.IsNegative(),
		"threshold_price":     t.ThresholdPrice.IsNegative(),
		"floor_price":         t.FloorPrice.IsNegative(),
		"plateau_price":       t.PlateauPrice.IsNegative(),
		"plateau_upper_bound": t.PlateauUpperBound.IsNegative(),
		"offset_minutes":      t.OffsetMinutes < 0,
		"cutoff_minutes":      t.CutoffMinutes < 0,
		"minimum_minutes":     t.MinimumMinutes < 0,
	}
	for _, name := range []string{
		"base_rate", "reduced_rate", "threshold_price", "floor_price", "plateau_price",
		"plateau_upper_bound", "offset_minutes", "cutoff_minutes", "minimum_minutes",
	} {
		if negative[name] {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidTariff, name)
		}
	}
	if t.Policy == PolicyTiered && t.plateauUpper().LessThan(t.FloorPrice) {
		return fmt.Errorf("%w: plateau upper bound is below the floor price", ErrInvalidTariff)
	}
	return nil
}

// Equal reports whether both tariffs hold the same policy and parameters.
func (t Tariff) Equal(o Tariff) bool {
	return t.Policy == o.Policy &&
		t.BaseRate.Equal(o.BaseRate) &&
		t.ReducedRate.Equal(o.ReducedRate) &&
		t.ThresholdPrice.Equal(o.ThresholdPrice) &&
		t.OffsetMinutes == o.OffsetMinutes &&
		t.CutoffMinutes == o.CutoffMinutes &&
		t.FloorPrice.Equal(o.FloorPrice) &&
		t.PlateauPrice.Equal(o.PlateauPrice) &&
		t.PlateauUpperBound.Equal(o.PlateauUpperBound) &&
		t.MinimumMinutes == o.MinimumMinutes
}

// Calculate returns the price of a game lasting the given number of minutes.
// minutes is fractional; negative, NaN and infinite values count as zero.
// hourlyRate is only consulted by the hourly policy. The result is never
// negative.
func Calculate(t Tariff, minutes float64, hourlyRate decimal.Decimal) decimal.Decimal {
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) || minutes < 0 {
		minutes = 0
	}
	m := decimal.NewFromFloat(minutes)

	var price decimal.Decimal
	switch t.Policy {
	case PolicyTiered:
		price = t.tiered(m)
	case PolicyHourly:
		price = t.hourly(m, hourlyRate)
	default:
		price = t.flat(m)
	}
	if price.IsNegative() {
		return decimal.Zero
	}
	return price
}

func (t Tariff) flat(m decimal.Decimal) decimal.Decimal {
	raw := m.Mul(t.BaseRate)
	if raw.LessThanOrEqual(t.ThresholdPrice) {
		return raw.RoundBank(0)
	}
	offset := decimal.NewFromFloat(t.OffsetMinutes)
	return t.ThresholdPrice.Add(m.Sub(offset).Mul(t.ReducedRate)).RoundBank(0)
}

func (t Tariff) tiered(m decimal.Decimal) decimal.Decimal {
	cutoff := decimal.NewFromFloat(t.CutoffMinutes)
	first := decimal.Min(m, cutoff)
	rest := decimal.Max(m.Sub(cutoff), decimal.Zero)
	raw := first.Mul(t.BaseRate).Add(rest.Mul(t.ReducedRate))

	if raw.LessThan(t.FloorPrice) {
		return t.FloorPrice
	}
	if raw.LessThanOrEqual(t.plateauUpper()) {
		return t.PlateauPrice
	}
	return raw.RoundBank(0)
}

func (t Tariff) hourly(m, hourlyRate decimal.Decimal) decimal.Decimal {
	billed := decimal.Max(m, decimal.NewFromFloat(t.MinimumMinutes))
	return hourlyRate.Mul(billed).Div(sixty).RoundBank(2)
}

func (t Tariff) plateauUpper() decimal.Decimal {
	if t.PlateauUpperBound.IsZero() {
		return t.PlateauPrice
	}
	return t.PlateauUpperBound
}
