package incentive

import (
	"errors"
	"testing"

	"crmdesk/internal/models"

	"github.com/shopspring/decimal"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

var tiers = []models.Slab{
	{ID: 1, StartValue: d("0"), EndValue: d("9999"), Amount: d("0")},
	{ID: 2, StartValue: d("10000"), EndValue: d("24999"), Amount: d("1500")},
	{ID: 3, StartValue: d("25000"), EndValue: d("0"), FlatPercent: d("7.5")},
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name   string
		earned string
		wantID int64
	}{
		{name: "zero", earned: "0", wantID: 1},
		{name: "upper bound inclusive", earned: "9999", wantID: 1},
		{name: "lower bound inclusive", earned: "10000", wantID: 2},
		{name: "fractional inside gap-free tier", earned: "24999.00", wantID: 2},
		{name: "unbounded top tier", earned: "1000000", wantID: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(tiers, d(tt.earned))
			if err != nil {
				t.Fatalf("Select() error = %v", err)
			}
			if got.ID != tt.wantID {
				t.Errorf("Select(%s) = slab %d, want %d", tt.earned, got.ID, tt.wantID)
			}
		})
	}
}

func TestSelectGapAndNegative(t *testing.T) {
	gappy := []models.Slab{{ID: 1, StartValue: d("100"), EndValue: d("200")}}
	if _, err := Select(gappy, d("50")); !errors.Is(err, ErrNoSlab) {
		t.Errorf("below all slabs error = %v", err)
	}
	if _, err := Select(tiers, d("-1")); !errors.Is(err, ErrNegativeEarn) {
		t.Errorf("negative error = %v", err)
	}
}

func TestSelectOverlapPrefersHigherStart(t *testing.T) {
	overlap := []models.Slab{
		{ID: 1, StartValue: d("0"), EndValue: d("0")},
		{ID: 2, StartValue: d("500"), EndValue: d("1000")},
	}
	got, err := Select(overlap, d("700"))
	if err != nil || got.ID != 2 {
		t.Errorf("Select() = %d, %v; want slab 2", got.ID, err)
	}
}

func TestPayout(t *testing.T) {
	if got := Payout(tiers[1], d("12000")); !got.Equal(d("1500")) {
		t.Errorf("fixed payout = %s", got)
	}
	if got := Payout(tiers[2], d("30000")); !got.Equal(d("2250")) {
		t.Errorf("percent payout = %s", got)
	}
}

func TestEvaluate(t *testing.T) {
	res, err := Evaluate(4, tiers, d("12000"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Slab == nil || res.Slab.ID != 2 {
		t.Fatalf("slab = %+v", res.Slab)
	}
	if res.NextSlab == nil || res.NextSlab.ID != 3 || !res.ToNextSlab.Equal(d("13000")) {
		t.Errorf("next = %+v, to next = %s", res.NextSlab, res.ToNextSlab)
	}

	bad := []models.Slab{{StartValue: d("10"), EndValue: d("5")}}
	if _, err := Evaluate(4, bad, d("7")); !errors.Is(err, ErrInvalidSlab) {
		t.Errorf("inverted slab error = %v", err)
	}
}
