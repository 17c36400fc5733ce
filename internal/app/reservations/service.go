package reservations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"staybook/internal/app/outbox"
	"staybook/internal/app/ratings"
	"staybook/internal/domain/booking"
	"staybook/internal/domain/pricing"
	"staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

var (
	// ErrNotAvailable signals an overlapping booking at commit time. It is a
	// user-actionable conflict, not retried internally.
	ErrNotAvailable = errors.New("reservations: dates are not available for this property")
	// ErrForbidden signals the actor may not perform the requested mutation.
	ErrForbidden = errors.New("reservations: actor is not allowed to perform this operation")
	// ErrTimeout wraps repository calls that ran out of time. The whole
	// operation is safe to retry from the caller: no operation performs more
	// than one committing write.
	ErrTimeout = errors.New("reservations: repository call timed out")
)

// Role is supplied by the external auth collaborator; this service only
// checks ownership against it.
type Role string

const (
	RoleGuest Role = "guest"
	RoleHost  Role = "host"
	RoleAdmin Role = "admin"
)

// PropertyLocker is the per-property advisory lock that serializes booking
// creation for one property while leaving different properties fully
// concurrent. The returned function releases the lock.
type PropertyLocker interface {
	Lock(ctx context.Context, id property.PropertyID) (func(), error)
}

// Service is the reservation lifecycle manager: the single entry point into
// the engine. It orchestrates availability, pricing, code generation, the
// status state machine, the refund policy and rating aggregation over the
// repository handles it holds.
type Service struct {
	Bookings     booking.Repository
	Properties   property.Repository
	Availability AvailabilityChecker
	Codes        booking.CodeGenerator
	Locker       PropertyLocker
	Outbox       outbox.Outbox
	Encoder      outbox.EventEncoder
	Ratings      *ratings.Aggregator
	Policy       booking.RefundPolicy
	Logger       *slog.Logger
	Now          func() time.Time
	NewID        func() string
}

// CreateInput carries everything needed to request a stay.
type CreateInput struct {
	PropertyID      property.PropertyID
	GuestID         string
	CheckIn         time.Time
	CheckOut        time.Time
	Occupancy       booking.Occupancy
	SpecialRequests string
	PaymentMethod   string
}

// Create books a stay: loads the property, validates the range, and under
// the property's advisory lock re-checks availability, computes the pricing
// snapshot, generates a unique code and inserts the pending booking. The
// host id and instant-book flag are copied from the property at this moment.
func (s *Service) Create(ctx context.Context, in CreateInput) (*booking.Booking, error) {
	dr, err := daterange.New(in.CheckIn, in.CheckOut)
	if err != nil {
		return nil, err
	}
	if err := in.Occupancy.Validate(); err != nil {
		return nil, err
	}

	prop, err := s.Properties.ByID(ctx, in.PropertyID)
	if err != nil {
		return nil, wrapRepoErr(err)
	}

	unlock, err := s.Locker.Lock(ctx, prop.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Mandatory re-check under the lock: the earlier caller-side check (if
	// any) raced against concurrent inserts.
	free, err := s.Availability.IsAvailable(ctx, prop.ID, dr)
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, ErrNotAvailable
	}

	snapshot, err := pricing.Compute(prop.Pricing, dr)
	if err != nil {
		return nil, err
	}

	code, err := s.Codes.Generate(ctx)
	if err != nil {
		return nil, wrapRepoErr(err)
	}

	now := s.now()
	b, err := booking.New(booking.CreateParams{
		ID:              booking.BookingID(s.newID()),
		Code:            code,
		PropertyID:      prop.ID,
		GuestID:         in.GuestID,
		HostID:          prop.Host,
		Range:           dr,
		Occupancy:       in.Occupancy,
		Pricing:         snapshot,
		PaymentMethod:   strings.TrimSpace(in.PaymentMethod),
		SpecialRequests: in.SpecialRequests,
		IsInstantBook:   prop.Availability.InstantBookable,
		CreatedAt:       now,
	})
	if err != nil {
		return nil, err
	}

	if err := s.insertWithCodeRetry(ctx, b); err != nil {
		return nil, err
	}
	if err := s.drainEvents(ctx, b); err != nil {
		return nil, err
	}

	if s.Logger != nil {
		s.Logger.Info("booking created", "booking_id", b.ID, "code", b.Code, "property_id", b.PropertyID, "guest_id", b.GuestID, "total", b.Pricing.Total)
	}
	return b, nil
}

// insertWithCodeRetry inserts the booking; the storage unique constraint on
// the code is the final authority, so a duplicate-key violation triggers
// exactly one regenerate-and-retry cycle before surfacing exhaustion.
func (s *Service) insertWithCodeRetry(ctx context.Context, b *booking.Booking) error {
	err := s.Bookings.Insert(ctx, b)
	if err == nil {
		return nil
	}
	if !errors.Is(err, booking.ErrDuplicateCode) {
		return wrapRepoErr(err)
	}

	code, genErr := s.Codes.Generate(ctx)
	if genErr != nil {
		return wrapRepoErr(genErr)
	}
	b.Code = code
	if err := s.Bookings.Insert(ctx, b); err != nil {
		if errors.Is(err, booking.ErrDuplicateCode) {
			return booking.ErrCodeGenerationExhausted
		}
		return wrapRepoErr(err)
	}
	return nil
}

// UpdateStatus applies a host- or admin-driven transition (confirm, reject,
// complete). Re-applying the current status is a no-op. Cancellation goes
// through Cancel, never through here.
func (s *Service) UpdateStatus(ctx context.Context, id booking.BookingID, actorID string, role Role, next booking.Status, hostNotes string) (*booking.Booking, error) {
	b, err := s.Bookings.ByID(ctx, id)
	if err != nil {
		return nil, wrapRepoErr(err)
	}
	if role != RoleAdmin && actorID != string(b.HostID) {
		return nil, ErrForbidden
	}
	if b.Status == next {
		return b, nil
	}

	now := s.now()
	switch next {
	case booking.StatusConfirmed:
		err = b.Confirm(now)
	case booking.StatusRejected:
		err = b.Reject(now)
	case booking.StatusCompleted:
		err = b.Complete(now)
	default:
		err = booking.ErrInvalidTransition
	}
	if err != nil {
		return nil, err
	}
	if hostNotes != "" {
		if err := b.SetHostNotes(hostNotes, now); err != nil {
			return nil, err
		}
	}

	if err := s.saveAndDrain(ctx, b); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("booking status updated", "booking_id", b.ID, "status", b.Status, "actor_id", actorID)
	}
	return b, nil
}

// CancelResult pairs the cancelled booking with the refund owed.
type CancelResult struct {
	Booking *booking.Booking
	Refund  money.Money
}

// Cancel applies the refund policy and moves the booking to CANCELLED.
// Guests, hosts and admins may cancel. Cancelling an already-cancelled
// booking is a no-op returning the recorded refund.
func (s *Service) Cancel(ctx context.Context, id booking.BookingID, actorID string, role Role, reason string) (CancelResult, error) {
	b, err := s.Bookings.ByID(ctx, id)
	if err != nil {
		return CancelResult{}, wrapRepoErr(err)
	}
	if role != RoleAdmin && actorID != b.GuestID && actorID != string(b.HostID) {
		return CancelResult{}, ErrForbidden
	}
	if b.Status == booking.StatusCancelled {
		result := CancelResult{Booking: b}
		if b.Cancellation != nil {
			result.Refund = b.Cancellation.RefundAmount
		}
		return result, nil
	}

	refund, err := b.Cancel(s.Policy, reason, s.now())
	if err != nil {
		return CancelResult{}, err
	}
	if err := s.saveAndDrain(ctx, b); err != nil {
		return CancelResult{}, err
	}

	if s.Logger != nil {
		s.Logger.Info("booking cancelled", "booking_id", b.ID, "refund", refund, "actor_id", actorID)
	}
	return CancelResult{Booking: b, Refund: refund}, nil
}

// Complete is the entry point for the external scheduled process that closes
// stays after checkout has passed. Idempotent for already-completed bookings.
func (s *Service) Complete(ctx context.Context, id booking.BookingID) (*booking.Booking, error) {
	b, err := s.Bookings.ByID(ctx, id)
	if err != nil {
		return nil, wrapRepoErr(err)
	}
	if b.Status == booking.StatusCompleted {
		return b, nil
	}
	if err := b.Complete(s.now()); err != nil {
		return nil, err
	}
	if err := s.saveAndDrain(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// AddReview attaches the guest's one-time review to a completed booking and
// triggers the property rating recomputation.
func (s *Service) AddReview(ctx context.Context, id booking.BookingID, guestID string, rating int, comment string) (*booking.Booking, error) {
	b, err := s.Bookings.ByID(ctx, id)
	if err != nil {
		return nil, wrapRepoErr(err)
	}
	if guestID != b.GuestID {
		return nil, ErrForbidden
	}
	if err := b.AttachReview(rating, comment, s.now()); err != nil {
		return nil, err
	}
	if err := s.saveAndDrain(ctx, b); err != nil {
		return nil, err
	}

	if s.Ratings != nil {
		if _, err := s.Ratings.Recompute(ctx, b.PropertyID); err != nil {
			return nil, fmt.Errorf("reservations: recomputing property rating: %w", err)
		}
	}
	if s.Logger != nil {
		s.Logger.Info("review attached", "booking_id", b.ID, "property_id", b.PropertyID, "rating", rating)
	}
	return b, nil
}

// RecordPayment stores a payment outcome reported by the external payment
// collaborator. Idempotent: re-reporting the current status and reference is
// a no-op.
func (s *Service) RecordPayment(ctx context.Context, id booking.BookingID, status booking.PaymentStatus, reference string) (*booking.Booking, error) {
	b, err := s.Bookings.ByID(ctx, id)
	if err != nil {
		return nil, wrapRepoErr(err)
	}
	if b.PaymentStatus == status && b.PaymentReference == reference {
		return b, nil
	}
	if err := b.RecordPayment(status, reference, s.now()); err != nil {
		return nil, err
	}
	if err := s.saveAndDrain(ctx, b); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("payment recorded", "booking_id", b.ID, "payment_status", b.PaymentStatus)
	}
	return b, nil
}

// ListGuestBookings returns the guest's bookings, newest first.
func (s *Service) ListGuestBookings(ctx context.Context, guestID string) ([]*booking.Booking, error) {
	items, err := s.Bookings.ListByGuest(ctx, guestID)
	if err != nil {
		return nil, wrapRepoErr(err)
	}
	return items, nil
}

func (s *Service) saveAndDrain(ctx context.Context, b *booking.Booking) error {
	if err := s.Bookings.Update(ctx, b); err != nil {
		return wrapRepoErr(err)
	}
	return s.drainEvents(ctx, b)
}

func (s *Service) drainEvents(ctx context.Context, b *booking.Booking) error {
	evs := b.PendingEvents()
	b.ClearEvents()
	return outbox.RecordDomainEvents(ctx, s.Outbox, s.Encoder, evs)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func wrapRepoErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
