package models

import "github.com/shopspring/decimal"

// Slab is an incentive tier. EndValue zero means no upper bound.
type Slab struct {
	ID          int64           `json:"id"`
	StartValue  decimal.Decimal `json:"start_value"`
	EndValue    decimal.Decimal `json:"end_value"`
	Amount      decimal.Decimal `json:"amount"`
	FlatPercent decimal.Decimal `json:"flat_percent"`
}

// Unbounded reports whether the slab has no upper limit.
func (s Slab) Unbounded() bool { return s.EndValue.IsZero() }

// Contains reports whether earned falls inside the slab range, both ends inclusive.
func (s Slab) Contains(earned decimal.Decimal) bool {
	if earned.LessThan(s.StartValue) {
		return false
	}
	return s.Unbounded() || earned.LessThanOrEqual(s.EndValue)
}
