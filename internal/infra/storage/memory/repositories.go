package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"staybook/internal/domain/booking"
	"staybook/internal/domain/property"
)

// BookingRepository is the in-memory implementation used by tests and dev
// wiring. It enforces the same unique booking-code constraint the Mongo
// index does.
type BookingRepository struct {
	mu     sync.RWMutex
	items  map[booking.BookingID]*booking.Booking
	byCode map[string]booking.BookingID
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{
		items:  make(map[booking.BookingID]*booking.Booking),
		byCode: make(map[string]booking.BookingID),
	}
}

func (r *BookingRepository) ByID(ctx context.Context, id booking.BookingID) (*booking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.items[id]
	if !ok {
		return nil, booking.ErrNotFound
	}
	return cloneBooking(b), nil
}

func (r *BookingRepository) ByCode(ctx context.Context, code string) (*booking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byCode[code]
	if !ok {
		return nil, booking.ErrNotFound
	}
	return cloneBooking(r.items[id]), nil
}

func (r *BookingRepository) ListByProperty(ctx context.Context, propertyID property.PropertyID, statuses []booking.Status) ([]*booking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*booking.Booking, 0)
	for _, b := range r.items {
		if b.PropertyID != propertyID {
			continue
		}
		if len(statuses) > 0 && !statusIncluded(b.Status, statuses) {
			continue
		}
		matches = append(matches, cloneBooking(b))
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Range.CheckIn.Before(matches[j].Range.CheckIn)
	})
	return matches, nil
}

func (r *BookingRepository) ListByGuest(ctx context.Context, guestID string) ([]*booking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id := strings.TrimSpace(guestID)
	matches := make([]*booking.Booking, 0)
	for _, b := range r.items {
		if b.GuestID == id {
			matches = append(matches, cloneBooking(b))
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches, nil
}

func (r *BookingRepository) Insert(ctx context.Context, b *booking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byCode[b.Code]; taken {
		return booking.ErrDuplicateCode
	}
	b.Version++
	r.items[b.ID] = cloneBooking(b)
	r.byCode[b.Code] = b.ID
	return nil
}

func (r *BookingRepository) Update(ctx context.Context, b *booking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[b.ID]; !ok {
		return booking.ErrNotFound
	}
	b.Version++
	r.items[b.ID] = cloneBooking(b)
	return nil
}

func statusIncluded(status booking.Status, allowed []booking.Status) bool {
	for _, candidate := range allowed {
		if status == candidate {
			return true
		}
	}
	return false
}

func cloneBooking(b *booking.Booking) *booking.Booking {
	clone := *b
	if b.Cancellation != nil {
		c := *b.Cancellation
		clone.Cancellation = &c
	}
	if b.Review != nil {
		rv := *b.Review
		clone.Review = &rv
	}
	clone.ClearEvents()
	return &clone
}

// PropertyRepository keeps properties in memory.
type PropertyRepository struct {
	mu    sync.RWMutex
	items map[property.PropertyID]*property.Property
}

func NewPropertyRepository() *PropertyRepository {
	return &PropertyRepository{items: make(map[property.PropertyID]*property.Property)}
}

func (r *PropertyRepository) ByID(ctx context.Context, id property.PropertyID) (*property.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[id]
	if !ok {
		return nil, property.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *PropertyRepository) Save(ctx context.Context, p *property.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.Version++
	clone := *p
	r.items[p.ID] = &clone
	return nil
}

func (r *PropertyRepository) UpdateRatings(ctx context.Context, id property.PropertyID, aggregate property.RatingsAggregate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return property.ErrNotFound
	}
	p.Ratings = aggregate
	p.Version++
	return nil
}
