package daterange

import (
	"errors"
	"time"
)

var ErrInvalidRange = errors.New("daterange: checkout must be after checkin")

// DateRange represents a half-open stay interval [checkIn, checkOut).
// The checkout day itself is not occupied.
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

func New(checkIn, checkOut time.Time) (DateRange, error) {
	dr := DateRange{CheckIn: checkIn.UTC(), CheckOut: checkOut.UTC()}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

func (dr DateRange) Validate() error {
	if dr.CheckIn.IsZero() || dr.CheckOut.IsZero() {
		return ErrInvalidRange
	}
	if !dr.CheckOut.After(dr.CheckIn) {
		return ErrInvalidRange
	}
	return nil
}

// Nights counts the billable nights, rounding partial days up so a valid
// range is never billed as zero nights.
func (dr DateRange) Nights() int {
	hours := dr.CheckOut.Sub(dr.CheckIn).Hours()
	nights := int(hours / 24)
	if float64(nights)*24 < hours {
		nights++
	}
	return nights
}

// Overlaps reports whether two half-open intervals conflict:
// [a,b) and [c,d) overlap iff a < d && c < b.
func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(dr.CheckOut)
}

// ContainsDate reports whether t falls inside the interval.
func (dr DateRange) ContainsDate(t time.Time) bool {
	t = t.UTC()
	return !t.Before(dr.CheckIn) && t.Before(dr.CheckOut)
}

// DaysUntil counts whole days from now until the start of the range,
// rounding up. A check-in later today or in the past yields zero or less.
func (dr DateRange) DaysUntil(now time.Time) int {
	hours := dr.CheckIn.Sub(now.UTC()).Hours()
	days := int(hours / 24)
	if float64(days)*24 < hours {
		days++
	}
	return days
}
