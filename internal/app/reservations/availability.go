package reservations

import (
	"context"

	"staybook/internal/domain/booking"
	"staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
)

// AvailabilityChecker answers whether a proposed range conflicts with any
// non-terminal booking on the property. Pure read; the lifecycle manager
// re-runs it under the per-property lock immediately before committing a new
// booking because check and insert are separate repository calls.
type AvailabilityChecker struct {
	Bookings booking.Repository
}

// IsAvailable reports whether [checkIn, checkOut) is free of pending and
// confirmed bookings. Overlap uses half-open semantics: the checkout day
// itself does not occupy the calendar.
func (c AvailabilityChecker) IsAvailable(ctx context.Context, propertyID property.PropertyID, dr daterange.DateRange) (bool, error) {
	if err := dr.Validate(); err != nil {
		return false, err
	}
	existing, err := c.Bookings.ListByProperty(ctx, propertyID, booking.BlockingStatuses)
	if err != nil {
		return false, wrapRepoErr(err)
	}
	for _, b := range existing {
		if b.Range.Overlaps(dr) {
			return false, nil
		}
	}
	return true, nil
}
