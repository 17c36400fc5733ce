package pricing_test

import (
	"errors"
	"testing"
	"time"

	"staybook/internal/domain/pricing"
	"staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

func stay(t *testing.T, nights int) daterange.DateRange {
	t.Helper()
	in := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	dr, err := daterange.New(in, in.AddDate(0, 0, nights))
	if err != nil {
		t.Fatalf("daterange.New: %v", err)
	}
	return dr
}

func TestCompute(t *testing.T) {
	policy := property.PricingPolicy{
		PricePerNight: money.Must(5000, "USD"),
		CleaningFee:   money.Must(1000, "USD"),
		ServiceFee:    money.Must(500, "USD"),
	}

	snap, err := pricing.Compute(policy, stay(t, 3))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if snap.TotalNights != 3 {
		t.Fatalf("TotalNights = %d, want 3", snap.TotalNights)
	}
	if snap.Subtotal.Amount != 15000 {
		t.Fatalf("Subtotal = %d, want 15000", snap.Subtotal.Amount)
	}
	if snap.Total.Amount != 16500 {
		t.Fatalf("Total = %d, want 16500", snap.Total.Amount)
	}

	// deterministic: same inputs, same snapshot
	again, err := pricing.Compute(policy, stay(t, 3))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if again != snap {
		t.Fatalf("snapshot not deterministic: %+v vs %+v", again, snap)
	}
}

func TestCompute_FeesDefaultToZero(t *testing.T) {
	policy := property.PricingPolicy{PricePerNight: money.Must(2000, "EUR")}
	snap, err := pricing.Compute(policy, stay(t, 2))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if snap.Total.Amount != 4000 {
		t.Fatalf("Total = %d, want 4000", snap.Total.Amount)
	}
	if snap.CleaningFee.Currency != "EUR" || snap.ServiceFee.Currency != "EUR" {
		t.Fatalf("fee currencies not normalized: %+v", snap)
	}
}

func TestCompute_Errors(t *testing.T) {
	if _, err := pricing.Compute(property.PricingPolicy{}, stay(t, 1)); !errors.Is(err, pricing.ErrCurrencyUnset) {
		t.Fatalf("err = %v, want ErrCurrencyUnset", err)
	}
	policy := property.PricingPolicy{PricePerNight: money.Must(2000, "USD")}
	if _, err := pricing.Compute(policy, daterange.DateRange{}); !errors.Is(err, daterange.ErrInvalidRange) {
		t.Fatalf("err = %v, want ErrInvalidRange", err)
	}
}
