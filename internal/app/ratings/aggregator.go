package ratings

import (
	"context"
	"log/slog"
	"time"

	"staybook/internal/domain/booking"
	"staybook/internal/domain/property"
)

// PropertyLocker serializes writers of per-property shared state. The
// returned function releases the lock.
type PropertyLocker interface {
	Lock(ctx context.Context, id property.PropertyID) (func(), error)
}

// Aggregator recomputes a property's ratings aggregate from the reviews on
// its bookings. A full rescan per submission trades throughput for
// correctness; review volume is low relative to bookings.
type Aggregator struct {
	Bookings   booking.Repository
	Properties property.Repository
	Locker     PropertyLocker
	Logger     *slog.Logger
	Now        func() time.Time
}

// Recompute scans all reviewed bookings of the property and persists the
// mean rating and review count. Concurrent recomputations for the same
// property serialize through the locker so a slow scan cannot overwrite a
// newer aggregate.
func (a *Aggregator) Recompute(ctx context.Context, id property.PropertyID) (property.RatingsAggregate, error) {
	unlock, err := a.Locker.Lock(ctx, id)
	if err != nil {
		return property.RatingsAggregate{}, err
	}
	defer unlock()

	all, err := a.Bookings.ListByProperty(ctx, id, nil)
	if err != nil {
		return property.RatingsAggregate{}, err
	}

	var sum, count int
	for _, b := range all {
		if b.Review == nil {
			continue
		}
		sum += b.Review.Rating
		count++
	}

	aggregate := property.RatingsAggregate{
		TotalReviews: count,
		UpdatedAt:    a.now(),
	}
	if count > 0 {
		aggregate.Average = float64(sum) / float64(count)
	}

	if err := a.Properties.UpdateRatings(ctx, id, aggregate); err != nil {
		return property.RatingsAggregate{}, err
	}
	if a.Logger != nil {
		a.Logger.Info("property rating recomputed", "property_id", id, "average", aggregate.Average, "reviews", aggregate.TotalReviews)
	}
	return aggregate, nil
}

func (a *Aggregator) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now().UTC()
}
