package reservations_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"staybook/internal/app/ratings"
	"staybook/internal/app/reservations"
	"staybook/internal/domain/booking"
	"staybook/internal/domain/property"
	"staybook/internal/domain/shared/money"
	"staybook/internal/infra/locks"
	"staybook/internal/infra/storage/memory"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc        *reservations.Service
	bookings   *memory.BookingRepository
	properties *memory.PropertyRepository
	outbox     *memory.Outbox
	prop       *property.Property
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	bookings := memory.NewBookingRepository()
	properties := memory.NewPropertyRepository()
	box := memory.NewOutbox()
	locker := locks.NewLocal()

	prop := &property.Property{
		ID:    "prop-1",
		Host:  "host-1",
		Title: "Cabin by the lake",
		Pricing: property.PricingPolicy{
			PricePerNight: money.Must(5000, "USD"),
			CleaningFee:   money.Must(1000, "USD"),
			ServiceFee:    money.Must(500, "USD"),
		},
		Availability: property.AvailabilityPolicy{InstantBookable: true},
	}
	if err := properties.Save(context.Background(), prop); err != nil {
		t.Fatalf("seeding property: %v", err)
	}

	var seq int
	svc := &reservations.Service{
		Bookings:     bookings,
		Properties:   properties,
		Availability: reservations.AvailabilityChecker{Bookings: bookings},
		Codes:        booking.CodeGenerator{Index: bookings},
		Locker:       locker,
		Outbox:       box,
		Ratings: &ratings.Aggregator{
			Bookings:   bookings,
			Properties: properties,
			Locker:     locker,
			Now:        func() time.Time { return fixedNow },
		},
		Now: func() time.Time { return fixedNow },
		NewID: func() string {
			seq++
			return fmt.Sprintf("bk-%d", seq)
		},
	}
	return &fixture{svc: svc, bookings: bookings, properties: properties, outbox: box, prop: prop}
}

func (f *fixture) createInput(daysOut, nights int) reservations.CreateInput {
	checkIn := fixedNow.AddDate(0, 0, daysOut)
	return reservations.CreateInput{
		PropertyID: f.prop.ID,
		GuestID:    "guest-1",
		CheckIn:    checkIn,
		CheckOut:   checkIn.AddDate(0, 0, nights),
		Occupancy:  booking.Occupancy{Adults: 2},
	}
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, f.createInput(14, 3))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.Status != booking.StatusPending {
		t.Fatalf("status = %s, want PENDING", b.Status)
	}
	if b.HostID != f.prop.Host || !b.IsInstantBook {
		t.Fatalf("property fields not copied: host=%s instant=%v", b.HostID, b.IsInstantBook)
	}
	if len(b.Code) != 8 {
		t.Fatalf("code = %q, want 8 characters", b.Code)
	}
	if b.Pricing.Total.Amount != 16500 {
		t.Fatalf("total = %d, want 16500", b.Pricing.Total.Amount)
	}

	stored, err := f.bookings.ByCode(ctx, b.Code)
	if err != nil || stored.ID != b.ID {
		t.Fatalf("lookup by code: %v", err)
	}

	recs := f.outbox.Records()
	if len(recs) != 1 || recs[0].Name != "booking.created" {
		t.Fatalf("outbox = %+v, want one booking.created", recs)
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := f.createInput(14, 3)
	in.CheckOut = in.CheckIn
	if _, err := f.svc.Create(ctx, in); err == nil {
		t.Fatal("expected error for empty range")
	}

	in = f.createInput(14, 3)
	in.Occupancy = booking.Occupancy{}
	if _, err := f.svc.Create(ctx, in); !errors.Is(err, booking.ErrInvalidOccupancy) {
		t.Fatalf("err = %v, want ErrInvalidOccupancy", err)
	}

	in = f.createInput(14, 3)
	in.PropertyID = "missing"
	if _, err := f.svc.Create(ctx, in); !errors.Is(err, property.ErrNotFound) {
		t.Fatalf("err = %v, want property.ErrNotFound", err)
	}
}

func TestCreate_OverlapRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, f.createInput(10, 5)); err != nil {
		t.Fatalf("first Create: %v", err)
	}

	// overlapping range is rejected
	if _, err := f.svc.Create(ctx, f.createInput(12, 5)); !errors.Is(err, reservations.ErrNotAvailable) {
		t.Fatalf("err = %v, want ErrNotAvailable", err)
	}

	// back to back: check-in on the prior checkout day is fine
	if _, err := f.svc.Create(ctx, f.createInput(15, 2)); err != nil {
		t.Fatalf("back-to-back Create: %v", err)
	}
}

func TestCreate_CancelledBookingFreesDates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, f.createInput(10, 3))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, first.ID, "host-1", reservations.RoleHost, booking.StatusConfirmed, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := f.svc.Cancel(ctx, first.ID, "host-1", reservations.RoleHost, "maintenance"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := f.svc.Create(ctx, f.createInput(10, 3)); err != nil {
		t.Fatalf("rebooking cancelled dates: %v", err)
	}
}

func TestCreate_ConcurrentOverlap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const attempts = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		created  int
		rejected int
	)
	var idMu sync.Mutex
	var idSeq int
	f.svc.NewID = func() string {
		idMu.Lock()
		defer idMu.Unlock()
		idSeq++
		return fmt.Sprintf("bk-%d", idSeq)
	}

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Create(ctx, f.createInput(20, 4))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, reservations.ErrNotAvailable):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if created != 1 || rejected != attempts-1 {
		t.Fatalf("created=%d rejected=%d, want exactly one success", created, rejected)
	}
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, f.createInput(14, 3))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := f.svc.UpdateStatus(ctx, b.ID, "someone-else", reservations.RoleHost, booking.StatusConfirmed, ""); !errors.Is(err, reservations.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}

	confirmed, err := f.svc.UpdateStatus(ctx, b.ID, "host-1", reservations.RoleHost, booking.StatusConfirmed, "towels in the closet")
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if confirmed.Status != booking.StatusConfirmed || confirmed.HostNotes != "towels in the closet" {
		t.Fatalf("confirmed = %s %q", confirmed.Status, confirmed.HostNotes)
	}

	// re-applying the current status is a no-op
	again, err := f.svc.UpdateStatus(ctx, b.ID, "host-1", reservations.RoleHost, booking.StatusConfirmed, "")
	if err != nil {
		t.Fatalf("idempotent UpdateStatus: %v", err)
	}
	if again.Version != confirmed.Version {
		t.Fatalf("no-op bumped version %d -> %d", confirmed.Version, again.Version)
	}

	if _, err := f.svc.UpdateStatus(ctx, b.ID, "host-1", reservations.RoleHost, booking.StatusRejected, ""); !errors.Is(err, booking.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, b.ID, "host-1", reservations.RoleHost, booking.StatusCancelled, ""); !errors.Is(err, booking.ErrInvalidTransition) {
		t.Fatalf("cancel via UpdateStatus err = %v, want ErrInvalidTransition", err)
	}

	done, err := f.svc.UpdateStatus(ctx, b.ID, "admin-1", reservations.RoleAdmin, booking.StatusCompleted, "")
	if err != nil {
		t.Fatalf("admin complete: %v", err)
	}
	if done.Status != booking.StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", done.Status)
	}
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, f.createInput(14, 3))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, b.ID, "host-1", reservations.RoleHost, booking.StatusConfirmed, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if _, err := f.svc.Cancel(ctx, b.ID, "stranger", reservations.RoleGuest, ""); !errors.Is(err, reservations.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}

	res, err := f.svc.Cancel(ctx, b.ID, "guest-1", reservations.RoleGuest, "plans changed")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if res.Refund.Amount != 16500 {
		t.Fatalf("refund = %d, want full 16500 at 14 days out", res.Refund.Amount)
	}
	if res.Booking.PaymentStatus != booking.PaymentRefunded {
		t.Fatalf("payment status = %s, want REFUNDED", res.Booking.PaymentStatus)
	}

	// cancelling again is a no-op returning the recorded refund
	again, err := f.svc.Cancel(ctx, b.ID, "guest-1", reservations.RoleGuest, "")
	if err != nil {
		t.Fatalf("repeat Cancel: %v", err)
	}
	if again.Refund.Amount != 16500 {
		t.Fatalf("repeat refund = %d, want 16500", again.Refund.Amount)
	}
}

func TestCancel_HalfRefundAndRefusal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	near, err := f.svc.Create(ctx, f.createInput(5, 2))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, near.ID, "host-1", reservations.RoleHost, booking.StatusConfirmed, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	res, err := f.svc.Cancel(ctx, near.ID, "guest-1", reservations.RoleGuest, "")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if res.Refund.Amount != 6000 {
		t.Fatalf("refund = %d, want half of 12000", res.Refund.Amount)
	}

	lastMinute, err := f.svc.Create(ctx, f.createInput(1, 2))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, lastMinute.ID, "host-1", reservations.RoleHost, booking.StatusConfirmed, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := f.svc.Cancel(ctx, lastMinute.ID, "guest-1", reservations.RoleGuest, ""); !errors.Is(err, booking.ErrNotCancellable) {
		t.Fatalf("err = %v, want ErrNotCancellable", err)
	}
}

func TestCancel_PendingRequiresPolicy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, f.createInput(14, 3))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.svc.Cancel(ctx, b.ID, "guest-1", reservations.RoleGuest, ""); !errors.Is(err, booking.ErrNotCancellable) {
		t.Fatalf("err = %v, want ErrNotCancellable with CancelPending off", err)
	}

	f.svc.Policy = booking.RefundPolicy{CancelPending: true}
	res, err := f.svc.Cancel(ctx, b.ID, "guest-1", reservations.RoleGuest, "")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if res.Refund.Amount != 16500 {
		t.Fatalf("refund = %d, want full refund for pending", res.Refund.Amount)
	}
}

func TestComplete_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, f.createInput(14, 3))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.svc.Complete(ctx, b.ID); !errors.Is(err, booking.ErrInvalidTransition) {
		t.Fatalf("complete pending err = %v, want ErrInvalidTransition", err)
	}

	if _, err := f.svc.UpdateStatus(ctx, b.ID, "host-1", reservations.RoleHost, booking.StatusConfirmed, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	done, err := f.svc.Complete(ctx, b.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Status != booking.StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", done.Status)
	}
	if _, err := f.svc.Complete(ctx, b.ID); err != nil {
		t.Fatalf("repeat Complete: %v", err)
	}
}

func TestAddReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, f.createInput(14, 3))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.svc.AddReview(ctx, b.ID, "guest-1", 5, "great"); !errors.Is(err, booking.ErrInvalidState) {
		t.Fatalf("review before completion err = %v, want ErrInvalidState", err)
	}

	if _, err := f.svc.UpdateStatus(ctx, b.ID, "host-1", reservations.RoleHost, booking.StatusConfirmed, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := f.svc.Complete(ctx, b.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if _, err := f.svc.AddReview(ctx, b.ID, "other-guest", 5, ""); !errors.Is(err, reservations.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}

	reviewed, err := f.svc.AddReview(ctx, b.ID, "guest-1", 5, "spotless")
	if err != nil {
		t.Fatalf("AddReview: %v", err)
	}
	if reviewed.Review == nil || reviewed.Review.Rating != 5 {
		t.Fatalf("review = %+v", reviewed.Review)
	}

	prop, err := f.properties.ByID(ctx, f.prop.ID)
	if err != nil {
		t.Fatalf("property lookup: %v", err)
	}
	if prop.Ratings.TotalReviews != 1 || prop.Ratings.Average != 5.0 {
		t.Fatalf("aggregate = %+v, want 1 review averaging 5.0", prop.Ratings)
	}

	if _, err := f.svc.AddReview(ctx, b.ID, "guest-1", 3, "second thoughts"); !errors.Is(err, booking.ErrAlreadyReviewed) {
		t.Fatalf("err = %v, want ErrAlreadyReviewed", err)
	}
	prop, _ = f.properties.ByID(ctx, f.prop.ID)
	if prop.Ratings.TotalReviews != 1 {
		t.Fatalf("duplicate review changed aggregate: %+v", prop.Ratings)
	}
}

func TestRecordPayment_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, f.createInput(14, 3))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	paid, err := f.svc.RecordPayment(ctx, b.ID, booking.PaymentPaid, "txn-7")
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if paid.PaymentStatus != booking.PaymentPaid || paid.PaymentReference != "txn-7" {
		t.Fatalf("payment = %s/%s", paid.PaymentStatus, paid.PaymentReference)
	}

	again, err := f.svc.RecordPayment(ctx, b.ID, booking.PaymentPaid, "txn-7")
	if err != nil {
		t.Fatalf("repeat RecordPayment: %v", err)
	}
	if again.Version != paid.Version {
		t.Fatalf("no-op bumped version %d -> %d", paid.Version, again.Version)
	}

	if _, err := f.svc.RecordPayment(ctx, "missing", booking.PaymentPaid, "x"); !errors.Is(err, booking.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListGuestBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, f.createInput(10, 2)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.svc.Create(ctx, f.createInput(20, 2)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	mine, err := f.svc.ListGuestBookings(ctx, "guest-1")
	if err != nil {
		t.Fatalf("ListGuestBookings: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("len = %d, want 2", len(mine))
	}
	none, err := f.svc.ListGuestBookings(ctx, "guest-2")
	if err != nil || len(none) != 0 {
		t.Fatalf("foreign guest list = %v, %v", none, err)
	}
}
