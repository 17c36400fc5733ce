package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"staybook/internal/domain/pricing"
	"staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/events"
	"staybook/internal/domain/shared/money"
)

var (
	ErrNotFound          = errors.New("booking: not found")
	ErrInvalidTransition = errors.New("booking: invalid state transition")
	ErrInvalidState      = errors.New("booking: operation not allowed in current state")
	ErrNotCancellable    = errors.New("booking: cancellation not allowed by refund policy")
	ErrAlreadyReviewed   = errors.New("booking: review already submitted")
	ErrInvalidRating     = errors.New("booking: rating must be between 1 and 5")
	ErrInvalidOccupancy  = errors.New("booking: occupancy requires at least one adult and no negative counts")
	ErrGuestRequired     = errors.New("booking: guest id required")
	ErrNoteTooLong       = errors.New("booking: note exceeds maximum length")
	ErrDuplicateCode     = errors.New("booking: booking code already taken")
)

// MaxNoteLength bounds the free-text fields carried on a booking.
const MaxNoteLength = 2048

type BookingID string

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
	StatusRejected  Status = "REJECTED"
)

// BlockingStatuses are the non-terminal statuses that occupy dates on a
// property's calendar.
var BlockingStatuses = []Status{StatusPending, StatusConfirmed}

// Terminal reports whether no further status transition is possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusCancelled, StatusCompleted, StatusRejected:
		return true
	}
	return false
}

func ParseStatus(raw string) (Status, bool) {
	switch Status(strings.ToUpper(strings.TrimSpace(raw))) {
	case StatusPending:
		return StatusPending, true
	case StatusConfirmed:
		return StatusConfirmed, true
	case StatusCancelled:
		return StatusCancelled, true
	case StatusCompleted:
		return StatusCompleted, true
	case StatusRejected:
		return StatusRejected, true
	}
	return "", false
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentRefunded PaymentStatus = "REFUNDED"
	PaymentFailed   PaymentStatus = "FAILED"
)

// Occupancy counts the guests a booking covers.
type Occupancy struct {
	Adults   int
	Children int
	Infants  int
}

func (o Occupancy) Validate() error {
	if o.Adults < 1 || o.Children < 0 || o.Infants < 0 {
		return ErrInvalidOccupancy
	}
	return nil
}

// Cancellation is recorded exactly once, when the booking reaches CANCELLED.
type Cancellation struct {
	Reason       string
	Date         time.Time
	RefundAmount money.Money
}

// Review is attachable at most once, after the stay completes.
type Review struct {
	Rating    int
	Comment   string
	CreatedAt time.Time
}

// Booking is a reservation of one property by one guest for a contiguous
// date range. The pricing snapshot is computed at creation and never
// recomputed afterwards: it is a financial record.
type Booking struct {
	ID               BookingID
	Code             string
	PropertyID       property.PropertyID
	GuestID          string
	HostID           property.HostID
	Range            daterange.DateRange
	Occupancy        Occupancy
	Pricing          pricing.Snapshot
	Status           Status
	PaymentStatus    PaymentStatus
	PaymentMethod    string
	PaymentReference string
	SpecialRequests  string
	HostNotes        string
	GuestNotes       string
	Cancellation     *Cancellation
	Review           *Review
	IsInstantBook    bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Version          int64
	events.EventRecorder
}

// Repository is the persistence contract the engine requires. Insert must
// enforce a unique constraint on Code and surface violations as
// ErrDuplicateCode; lookups return ErrNotFound for missing records.
type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	ByCode(ctx context.Context, code string) (*Booking, error)
	ListByProperty(ctx context.Context, propertyID property.PropertyID, statuses []Status) ([]*Booking, error)
	ListByGuest(ctx context.Context, guestID string) ([]*Booking, error)
	Insert(ctx context.Context, b *Booking) error
	Update(ctx context.Context, b *Booking) error
}

type CreateParams struct {
	ID              BookingID
	Code            string
	PropertyID      property.PropertyID
	GuestID         string
	HostID          property.HostID
	Range           daterange.DateRange
	Occupancy       Occupancy
	Pricing         pricing.Snapshot
	PaymentMethod   string
	SpecialRequests string
	IsInstantBook   bool
	CreatedAt       time.Time
}

// New builds a pending booking and records its creation event.
func New(params CreateParams) (*Booking, error) {
	if strings.TrimSpace(params.GuestID) == "" {
		return nil, ErrGuestRequired
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	if err := params.Occupancy.Validate(); err != nil {
		return nil, err
	}
	if len(params.SpecialRequests) > MaxNoteLength {
		return nil, ErrNoteTooLong
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:              params.ID,
		Code:            params.Code,
		PropertyID:      params.PropertyID,
		GuestID:         params.GuestID,
		HostID:          params.HostID,
		Range:           params.Range,
		Occupancy:       params.Occupancy,
		Pricing:         params.Pricing,
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		PaymentMethod:   params.PaymentMethod,
		SpecialRequests: strings.TrimSpace(params.SpecialRequests),
		IsInstantBook:   params.IsInstantBook,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	b.Record(Created{
		BookingID:  b.ID,
		Code:       b.Code,
		PropertyID: b.PropertyID,
		GuestID:    b.GuestID,
		HostID:     b.HostID,
		Range:      b.Range,
		Total:      b.Pricing.Total,
		At:         now,
	})
	return b, nil
}

// Confirm moves a pending booking to CONFIRMED.
func (b *Booking) Confirm(now time.Time) error {
	if b.Status != StatusPending {
		return ErrInvalidTransition
	}
	b.setStatus(StatusConfirmed, now)
	return nil
}

// Reject moves a pending booking to REJECTED.
func (b *Booking) Reject(now time.Time) error {
	if b.Status != StatusPending {
		return ErrInvalidTransition
	}
	b.setStatus(StatusRejected, now)
	return nil
}

// Complete moves a confirmed booking to COMPLETED. Invoked by the external
// scheduler once checkout has passed.
func (b *Booking) Complete(now time.Time) error {
	if b.Status != StatusConfirmed {
		return ErrInvalidTransition
	}
	b.setStatus(StatusCompleted, now)
	return nil
}

// Cancel applies the refund policy and, when permitted, moves the booking to
// CANCELLED, records the cancellation and flips the payment status to
// REFUNDED for non-zero refunds. Returns the refund amount.
func (b *Booking) Cancel(policy RefundPolicy, reason string, now time.Time) (money.Money, error) {
	quote := policy.EvaluateCancellation(now, b.Range.CheckIn, b.Status, b.Pricing.Total)
	if !quote.CanCancel {
		return money.Money{}, ErrNotCancellable
	}
	now = now.UTC()
	b.Status = StatusCancelled
	b.UpdatedAt = now
	b.Cancellation = &Cancellation{
		Reason:       strings.TrimSpace(reason),
		Date:         now,
		RefundAmount: quote.RefundAmount,
	}
	if !quote.RefundAmount.IsZero() {
		b.PaymentStatus = PaymentRefunded
	}
	b.Record(Cancelled{
		BookingID:  b.ID,
		PropertyID: b.PropertyID,
		Reason:     b.Cancellation.Reason,
		Refund:     quote.RefundAmount,
		At:         now,
	})
	return quote.RefundAmount, nil
}

// AttachReview sets the one-time review on a completed booking.
func (b *Booking) AttachReview(rating int, comment string, now time.Time) error {
	if b.Status != StatusCompleted {
		return ErrInvalidState
	}
	if b.Review != nil {
		return ErrAlreadyReviewed
	}
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}
	if len(comment) > MaxNoteLength {
		return ErrNoteTooLong
	}
	now = now.UTC()
	b.Review = &Review{Rating: rating, Comment: strings.TrimSpace(comment), CreatedAt: now}
	b.UpdatedAt = now
	b.Record(Reviewed{BookingID: b.ID, PropertyID: b.PropertyID, Rating: rating, At: now})
	return nil
}

// RecordPayment stores the outcome reported by the external payment
// collaborator. The engine never talks to a gateway; it only keeps the
// status label and an opaque reference. Refunded bookings are immutable.
func (b *Booking) RecordPayment(status PaymentStatus, reference string, now time.Time) error {
	if b.PaymentStatus == PaymentRefunded {
		return ErrInvalidState
	}
	switch status {
	case PaymentPending, PaymentPaid, PaymentFailed:
	default:
		return ErrInvalidState
	}
	b.PaymentStatus = status
	b.PaymentReference = strings.TrimSpace(reference)
	b.UpdatedAt = now.UTC()
	return nil
}

// SetHostNotes replaces the host-facing notes.
func (b *Booking) SetHostNotes(notes string, now time.Time) error {
	if len(notes) > MaxNoteLength {
		return ErrNoteTooLong
	}
	b.HostNotes = strings.TrimSpace(notes)
	b.UpdatedAt = now.UTC()
	return nil
}

func (b *Booking) setStatus(next Status, now time.Time) {
	prev := b.Status
	b.Status = next
	b.UpdatedAt = now.UTC()
	b.Record(StatusChanged{
		BookingID:  b.ID,
		PropertyID: b.PropertyID,
		From:       prev,
		To:         next,
		At:         b.UpdatedAt,
	})
}
