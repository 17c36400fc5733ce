package booking

import (
	"time"

	"staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

type Created struct {
	BookingID  BookingID
	Code       string
	PropertyID property.PropertyID
	GuestID    string
	HostID     property.HostID
	Range      daterange.DateRange
	Total      money.Money
	At         time.Time
}

func (e Created) EventName() string     { return "booking.created" }
func (e Created) AggregateID() string   { return string(e.BookingID) }
func (e Created) OccurredAt() time.Time { return e.At }

type StatusChanged struct {
	BookingID  BookingID
	PropertyID property.PropertyID
	From       Status
	To         Status
	At         time.Time
}

func (e StatusChanged) EventName() string     { return "booking.status_changed" }
func (e StatusChanged) AggregateID() string   { return string(e.BookingID) }
func (e StatusChanged) OccurredAt() time.Time { return e.At }

type Cancelled struct {
	BookingID  BookingID
	PropertyID property.PropertyID
	Reason     string
	Refund     money.Money
	At         time.Time
}

func (e Cancelled) EventName() string     { return "booking.cancelled" }
func (e Cancelled) AggregateID() string   { return string(e.BookingID) }
func (e Cancelled) OccurredAt() time.Time { return e.At }

type Reviewed struct {
	BookingID  BookingID
	PropertyID property.PropertyID
	Rating     int
	At         time.Time
}

func (e Reviewed) EventName() string     { return "booking.reviewed" }
func (e Reviewed) AggregateID() string   { return string(e.BookingID) }
func (e Reviewed) OccurredAt() time.Time { return e.At }
