package ginserver

import (
	"time"

	"staybook/internal/domain/booking"
	"staybook/internal/domain/shared/money"
)

type bookingResponse struct {
	ID              string                `json:"id"`
	Code            string                `json:"code"`
	PropertyID      string                `json:"property_id"`
	GuestID         string                `json:"guest_id"`
	HostID          string                `json:"host_id"`
	CheckIn         time.Time             `json:"check_in"`
	CheckOut        time.Time             `json:"check_out"`
	Occupancy       occupancyResponse     `json:"occupancy"`
	Pricing         pricingResponse       `json:"pricing"`
	Status          string                `json:"status"`
	PaymentStatus   string                `json:"payment_status"`
	PaymentMethod   string                `json:"payment_method,omitempty"`
	SpecialRequests string                `json:"special_requests,omitempty"`
	HostNotes       string                `json:"host_notes,omitempty"`
	Cancellation    *cancellationResponse `json:"cancellation,omitempty"`
	Review          *reviewResponse       `json:"review,omitempty"`
	IsInstantBook   bool                  `json:"is_instant_book"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

type occupancyResponse struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Infants  int `json:"infants"`
}

type pricingResponse struct {
	PricePerNight money.Money `json:"price_per_night"`
	TotalNights   int         `json:"total_nights"`
	Subtotal      money.Money `json:"subtotal"`
	CleaningFee   money.Money `json:"cleaning_fee"`
	ServiceFee    money.Money `json:"service_fee"`
	Total         money.Money `json:"total"`
}

type cancellationResponse struct {
	Reason       string      `json:"reason"`
	Date         time.Time   `json:"date"`
	RefundAmount money.Money `json:"refund_amount"`
}

type reviewResponse struct {
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func mapBooking(b *booking.Booking) bookingResponse {
	resp := bookingResponse{
		ID:              string(b.ID),
		Code:            b.Code,
		PropertyID:      string(b.PropertyID),
		GuestID:         b.GuestID,
		HostID:          string(b.HostID),
		CheckIn:         b.Range.CheckIn,
		CheckOut:        b.Range.CheckOut,
		Occupancy:       occupancyResponse{Adults: b.Occupancy.Adults, Children: b.Occupancy.Children, Infants: b.Occupancy.Infants},
		Pricing: pricingResponse{
			PricePerNight: b.Pricing.PricePerNight,
			TotalNights:   b.Pricing.TotalNights,
			Subtotal:      b.Pricing.Subtotal,
			CleaningFee:   b.Pricing.CleaningFee,
			ServiceFee:    b.Pricing.ServiceFee,
			Total:         b.Pricing.Total,
		},
		Status:          string(b.Status),
		PaymentStatus:   string(b.PaymentStatus),
		PaymentMethod:   b.PaymentMethod,
		SpecialRequests: b.SpecialRequests,
		HostNotes:       b.HostNotes,
		IsInstantBook:   b.IsInstantBook,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
	if b.Cancellation != nil {
		resp.Cancellation = &cancellationResponse{
			Reason:       b.Cancellation.Reason,
			Date:         b.Cancellation.Date,
			RefundAmount: b.Cancellation.RefundAmount,
		}
	}
	if b.Review != nil {
		resp.Review = &reviewResponse{
			Rating:    b.Review.Rating,
			Comment:   b.Review.Comment,
			CreatedAt: b.Review.CreatedAt,
		}
	}
	return resp
}
