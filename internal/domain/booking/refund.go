package booking

import (
	"time"

	"staybook/internal/domain/shared/money"
)

// Refund tiers by time to check-in, applied to confirmed bookings.
const (
	fullRefundDays = 7
	noRefundDays   = 1

	fullRefundPercent = 100
	halfRefundPercent = 50
)

// RefundPolicy evaluates whether a booking may be cancelled and how much of
// the recorded total is returned. CancelPending additionally allows guests to
// cancel bookings the host has not yet confirmed, at a full refund, since no
// service has been rendered.
type RefundPolicy struct {
	CancelPending bool
}

// CancellationQuote is the outcome of evaluating a cancellation request.
type CancellationQuote struct {
	CanCancel        bool
	DaysUntilCheckIn int
	RefundPercent    int
	RefundAmount     money.Money
}

// EvaluateCancellation is a pure function of (now, checkIn, status, total).
// Confirmed bookings: more than 7 days out refunds in full, between 2 and 7
// days refunds half, and within one day of check-in cancellation is refused
// outright rather than granted at zero refund.
func (p RefundPolicy) EvaluateCancellation(now, checkIn time.Time, status Status, total money.Money) CancellationQuote {
	days := daysUntil(now, checkIn)
	quote := CancellationQuote{DaysUntilCheckIn: days}

	switch status {
	case StatusPending:
		if !p.CancelPending {
			return quote
		}
		quote.CanCancel = true
		quote.RefundPercent = fullRefundPercent
	case StatusConfirmed:
		if days <= noRefundDays {
			return quote
		}
		quote.CanCancel = true
		if days > fullRefundDays {
			quote.RefundPercent = fullRefundPercent
		} else {
			quote.RefundPercent = halfRefundPercent
		}
	default:
		return quote
	}

	quote.RefundAmount = total.Percent(quote.RefundPercent)
	return quote
}

// daysUntil counts whole days between now and checkIn, rounding up.
func daysUntil(now, checkIn time.Time) int {
	hours := checkIn.UTC().Sub(now.UTC()).Hours()
	days := int(hours / 24)
	if float64(days)*24 < hours {
		days++
	}
	return days
}
