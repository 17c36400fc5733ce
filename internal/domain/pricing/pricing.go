package pricing

import (
	"errors"

	"staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

var ErrCurrencyUnset = errors.New("pricing: currency must be defined")

// Snapshot is the price breakdown frozen onto a booking at creation time.
// It is never recomputed afterwards.
type Snapshot struct {
	PricePerNight money.Money
	TotalNights   int
	Subtotal      money.Money
	CleaningFee   money.Money
	ServiceFee    money.Money
	Total         money.Money
}

// Compute derives the full snapshot from a property's pricing policy and a
// date range. Deterministic, no side effects. Fees absent on the policy count
// as zero. Fails with daterange.ErrInvalidRange when the range yields no
// billable night.
func Compute(policy property.PricingPolicy, dr daterange.DateRange) (Snapshot, error) {
	if policy.PricePerNight.Currency == "" {
		return Snapshot{}, ErrCurrencyUnset
	}
	if err := dr.Validate(); err != nil {
		return Snapshot{}, err
	}
	nights := dr.Nights()
	if nights < 1 {
		return Snapshot{}, daterange.ErrInvalidRange
	}

	currency := policy.PricePerNight.Currency
	subtotal := policy.PricePerNight.Multiply(int64(nights))
	cleaning := normalizeFee(policy.CleaningFee, currency)
	service := normalizeFee(policy.ServiceFee, currency)

	total, err := subtotal.Add(cleaning)
	if err != nil {
		return Snapshot{}, err
	}
	total, err = total.Add(service)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		PricePerNight: policy.PricePerNight,
		TotalNights:   nights,
		Subtotal:      subtotal,
		CleaningFee:   cleaning,
		ServiceFee:    service,
		Total:         total,
	}, nil
}

func normalizeFee(fee money.Money, currency string) money.Money {
	if fee.Currency == "" {
		return money.Money{Amount: fee.Amount, Currency: currency}
	}
	return fee
}
