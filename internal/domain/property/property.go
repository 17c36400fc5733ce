package property

import (
	"context"
	"errors"
	"time"

	"staybook/internal/domain/shared/money"
)

var ErrNotFound = errors.New("property: not found")

type PropertyID string
type HostID string

// PricingPolicy is the per-property price configuration bookings snapshot
// from at creation time. Missing fees are treated as zero.
type PricingPolicy struct {
	PricePerNight money.Money
	CleaningFee   money.Money
	ServiceFee    money.Money
}

// AvailabilityPolicy carries the booking constraints a host configures.
type AvailabilityPolicy struct {
	InstantBookable bool
	MinimumStay     int
	MaximumStay     int
}

// RatingsAggregate is the property-level review summary derived from all
// reviews attached to the property's completed bookings.
type RatingsAggregate struct {
	Average      float64
	TotalReviews int
	UpdatedAt    time.Time
}

// Property is the slice of the external property entity this engine reads,
// plus the ratings aggregate it owns.
type Property struct {
	ID           PropertyID
	Host         HostID
	Title        string
	Pricing      PricingPolicy
	Availability AvailabilityPolicy
	Ratings      RatingsAggregate
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Repository interface {
	ByID(ctx context.Context, id PropertyID) (*Property, error)
	Save(ctx context.Context, property *Property) error
	UpdateRatings(ctx context.Context, id PropertyID, aggregate RatingsAggregate) error
}
