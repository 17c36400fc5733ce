package booking

import (
	"errors"
	"testing"
	"time"

	"staybook/internal/domain/pricing"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

var testNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func testBooking(t *testing.T) *Booking {
	t.Helper()
	dr, err := daterange.New(testNow.AddDate(0, 0, 14), testNow.AddDate(0, 0, 17))
	if err != nil {
		t.Fatalf("daterange.New: %v", err)
	}
	b, err := New(CreateParams{
		ID:         "bk-1",
		Code:       "AB12CD34",
		PropertyID: "prop-1",
		GuestID:    "guest-1",
		HostID:     "host-1",
		Range:      dr,
		Occupancy:  Occupancy{Adults: 2},
		Pricing: pricing.Snapshot{
			Total: money.Must(16500, "USD"),
		},
		CreatedAt: testNow,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b.ClearEvents()
	return b
}

func TestNew_Validation(t *testing.T) {
	dr, _ := daterange.New(testNow.AddDate(0, 0, 1), testNow.AddDate(0, 0, 2))

	if _, err := New(CreateParams{GuestID: " ", Range: dr, Occupancy: Occupancy{Adults: 1}}); !errors.Is(err, ErrGuestRequired) {
		t.Fatalf("err = %v, want ErrGuestRequired", err)
	}
	if _, err := New(CreateParams{GuestID: "g", Occupancy: Occupancy{Adults: 1}}); !errors.Is(err, daterange.ErrInvalidRange) {
		t.Fatalf("err = %v, want ErrInvalidRange", err)
	}
	if _, err := New(CreateParams{GuestID: "g", Range: dr, Occupancy: Occupancy{Adults: 0}}); !errors.Is(err, ErrInvalidOccupancy) {
		t.Fatalf("err = %v, want ErrInvalidOccupancy", err)
	}
}

func TestNew_RecordsCreatedEvent(t *testing.T) {
	dr, _ := daterange.New(testNow.AddDate(0, 0, 1), testNow.AddDate(0, 0, 2))
	b, err := New(CreateParams{ID: "bk-1", GuestID: "g", Range: dr, Occupancy: Occupancy{Adults: 1}, CreatedAt: testNow})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if b.Status != StatusPending || b.PaymentStatus != PaymentPending {
		t.Fatalf("new booking status = %s/%s, want PENDING/PENDING", b.Status, b.PaymentStatus)
	}
	evs := b.PendingEvents()
	if len(evs) != 1 || evs[0].EventName() != "booking.created" {
		t.Fatalf("events = %v, want one booking.created", evs)
	}
}

// Every (state, operation) pair outside the allowed transitions must fail.
func TestStatusTransitions_Closure(t *testing.T) {
	ops := map[string]func(*Booking) error{
		"confirm":  func(b *Booking) error { return b.Confirm(testNow) },
		"reject":   func(b *Booking) error { return b.Reject(testNow) },
		"complete": func(b *Booking) error { return b.Complete(testNow) },
	}
	allowed := map[Status]map[string]bool{
		StatusPending:   {"confirm": true, "reject": true},
		StatusConfirmed: {"complete": true},
		StatusCancelled: {},
		StatusCompleted: {},
		StatusRejected:  {},
	}

	for status, ok := range allowed {
		for name, op := range ops {
			b := testBooking(t)
			b.Status = status
			err := op(b)
			if ok[name] {
				if err != nil {
					t.Errorf("%s from %s: unexpected error %v", name, status, err)
				}
				continue
			}
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("%s from %s: err = %v, want ErrInvalidTransition", name, status, err)
			}
			if b.Status != status {
				t.Errorf("%s from %s mutated status to %s", name, status, b.Status)
			}
		}
	}
}

func TestCancel_RecordsCancellationOnce(t *testing.T) {
	b := testBooking(t)
	if err := b.Confirm(testNow); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	b.PaymentStatus = PaymentPaid

	refund, err := b.Cancel(RefundPolicy{}, "change of plans", testNow)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if refund.Amount != 16500 {
		t.Fatalf("refund = %d, want full 16500 (14 days out)", refund.Amount)
	}
	if b.Status != StatusCancelled || b.PaymentStatus != PaymentRefunded {
		t.Fatalf("status = %s/%s, want CANCELLED/REFUNDED", b.Status, b.PaymentStatus)
	}
	if b.Cancellation == nil || b.Cancellation.Reason != "change of plans" {
		t.Fatalf("cancellation record = %+v", b.Cancellation)
	}

	if _, err := b.Cancel(RefundPolicy{}, "again", testNow); !errors.Is(err, ErrNotCancellable) {
		t.Fatalf("second Cancel err = %v, want ErrNotCancellable", err)
	}
}

func TestCancel_RefusedNearCheckIn(t *testing.T) {
	b := testBooking(t)
	if err := b.Confirm(testNow); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	late := b.Range.CheckIn.Add(-12 * time.Hour)
	if _, err := b.Cancel(RefundPolicy{}, "", late); !errors.Is(err, ErrNotCancellable) {
		t.Fatalf("err = %v, want ErrNotCancellable", err)
	}
	if b.Status != StatusConfirmed || b.Cancellation != nil {
		t.Fatalf("refused cancel mutated booking: %s %+v", b.Status, b.Cancellation)
	}
}

func TestAttachReview(t *testing.T) {
	b := testBooking(t)

	if err := b.AttachReview(5, "great", testNow); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("review on pending err = %v, want ErrInvalidState", err)
	}

	b.Status = StatusCompleted
	if err := b.AttachReview(0, "", testNow); !errors.Is(err, ErrInvalidRating) {
		t.Fatalf("err = %v, want ErrInvalidRating", err)
	}
	if err := b.AttachReview(6, "", testNow); !errors.Is(err, ErrInvalidRating) {
		t.Fatalf("err = %v, want ErrInvalidRating", err)
	}
	if err := b.AttachReview(4, "  lovely stay  ", testNow); err != nil {
		t.Fatalf("AttachReview: %v", err)
	}
	if b.Review == nil || b.Review.Rating != 4 || b.Review.Comment != "lovely stay" {
		t.Fatalf("review = %+v", b.Review)
	}
	if err := b.AttachReview(5, "again", testNow); !errors.Is(err, ErrAlreadyReviewed) {
		t.Fatalf("second review err = %v, want ErrAlreadyReviewed", err)
	}
}

func TestRecordPayment(t *testing.T) {
	b := testBooking(t)

	if err := b.RecordPayment(PaymentPaid, "txn-42", testNow); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if b.PaymentStatus != PaymentPaid || b.PaymentReference != "txn-42" {
		t.Fatalf("payment = %s/%s", b.PaymentStatus, b.PaymentReference)
	}
	if err := b.RecordPayment(PaymentStatus("SETTLED"), "txn-43", testNow); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("unknown status err = %v, want ErrInvalidState", err)
	}

	b.PaymentStatus = PaymentRefunded
	if err := b.RecordPayment(PaymentPaid, "txn-44", testNow); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("refunded booking err = %v, want ErrInvalidState", err)
	}
}

func TestParseStatus(t *testing.T) {
	if s, ok := ParseStatus(" confirmed "); !ok || s != StatusConfirmed {
		t.Fatalf("ParseStatus = %q, %v", s, ok)
	}
	if _, ok := ParseStatus("archived"); ok {
		t.Fatal("ParseStatus accepted unknown status")
	}
}
