// Package incentive selects the incentive slab for a staff member's earnings
// and computes the payout it grants.
package incentive

import (
	"errors"
	"sort"

	"crmdesk/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrNoSlab       = errors.New("no slab covers the earned amount")
	ErrNegativeEarn = errors.New("earned amount cannot be negative")
	ErrInvalidSlab  = errors.New("slab end value is below its start value")
	hundred         = decimal.NewFromInt(100)
)

// Validate rejects slabs whose bounded range is inverted.
func Validate(slabs []models.Slab) error {
	for _, s := range slabs {
		if !s.Unbounded() && s.EndValue.LessThan(s.StartValue) {
			return ErrInvalidSlab
		}
	}
	return nil
}

// Select returns the slab whose range contains earned. When ranges overlap
// the slab with the highest start value wins.
func Select(slabs []models.Slab, earned decimal.Decimal) (models.Slab, error) {
	if earned.IsNegative() {
		return models.Slab{}, ErrNegativeEarn
	}
	ordered := make([]models.Slab, len(slabs))
	copy(ordered, slabs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].StartValue.GreaterThan(ordered[j].StartValue)
	})
	for _, s := range ordered {
		if s.Contains(earned) {
			return s, nil
		}
	}
	return models.Slab{}, ErrNoSlab
}

// Payout is flat_percent of earned when the slab has a percentage, otherwise
// the slab's fixed amount. Rounded to two places.
func Payout(s models.Slab, earned decimal.Decimal) decimal.Decimal {
	if s.FlatPercent.IsPositive() {
		return earned.Mul(s.FlatPercent).Div(hundred).Round(2)
	}
	return s.Amount.Round(2)
}

// Result is the slab classification for one staff member.
type Result struct {
	StaffID    int64           `json:"staff_id"`
	TotalEarn  decimal.Decimal `json:"total_earn"`
	Slab       *models.Slab    `json:"slab"`
	Payout     decimal.Decimal `json:"payout"`
	NextSlab   *models.Slab    `json:"next_slab,omitempty"`
	ToNextSlab decimal.Decimal `json:"to_next_slab"`
}

// Evaluate classifies earned against slabs and reports the distance to the
// next tier. A staff member below every slab gets a nil Slab and zero payout.
func Evaluate(staffID int64, slabs []models.Slab, earned decimal.Decimal) (Result, error) {
	res := Result{StaffID: staffID, TotalEarn: earned}
	if err := Validate(slabs); err != nil {
		return res, err
	}
	slab, err := Select(slabs, earned)
	switch {
	case err == nil:
		res.Slab = &slab
		res.Payout = Payout(slab, earned)
	case errors.Is(err, ErrNoSlab):
	default:
		return res, err
	}
	var next *models.Slab
	for i := range slabs {
		s := slabs[i]
		if !s.StartValue.GreaterThan(earned) {
			continue
		}
		if next == nil || s.StartValue.LessThan(next.StartValue) {
			next = &s
		}
	}
	if next != nil {
		res.NextSlab = next
		res.ToNextSlab = next.StartValue.Sub(earned)
	}
	return res, nil
}
