package ginserver

import (
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/reservations"
	"staybook/internal/domain/booking"
	"staybook/internal/domain/property"
)

type BookingHandler struct {
	Service *reservations.Service
}

type createBookingRequest struct {
	PropertyID      string    `json:"property_id" binding:"required"`
	CheckIn         time.Time `json:"check_in" binding:"required"`
	CheckOut        time.Time `json:"check_out" binding:"required"`
	Adults          int       `json:"adults" binding:"required,min=1"`
	Children        int       `json:"children" binding:"min=0"`
	Infants         int       `json:"infants" binding:"min=0"`
	SpecialRequests string    `json:"special_requests"`
	PaymentMethod   string    `json:"payment_method"`
}

func (h BookingHandler) Create(c *gin.Context) {
	user, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b, err := h.Service.Create(c.Request.Context(), reservations.CreateInput{
		PropertyID:      property.PropertyID(req.PropertyID),
		GuestID:         user.ID,
		CheckIn:         req.CheckIn,
		CheckOut:        req.CheckOut,
		Occupancy:       booking.Occupancy{Adults: req.Adults, Children: req.Children, Infants: req.Infants},
		SpecialRequests: req.SpecialRequests,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mapBooking(b))
}

func (h BookingHandler) Get(c *gin.Context) {
	user, ok := requireIdentity(c)
	if !ok {
		return
	}
	b, err := h.Service.Bookings.ByID(c.Request.Context(), booking.BookingID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	if user.Role != reservations.RoleAdmin && user.ID != b.GuestID && user.ID != string(b.HostID) {
		respondError(c, reservations.ErrForbidden)
		return
	}
	c.JSON(http.StatusOK, mapBooking(b))
}

type updateStatusRequest struct {
	Status    string `json:"status" binding:"required"`
	HostNotes string `json:"host_notes"`
}

func (h BookingHandler) UpdateStatus(c *gin.Context) {
	user, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, ok := booking.ParseStatus(req.Status)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}
	b, err := h.Service.UpdateStatus(c.Request.Context(), booking.BookingID(c.Param("id")), user.ID, user.Role, status, req.HostNotes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapBooking(b))
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h BookingHandler) Cancel(c *gin.Context) {
	user, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.Service.Cancel(c.Request.Context(), booking.BookingID(c.Param("id")), user.ID, user.Role, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"booking":       mapBooking(result.Booking),
		"refund_amount": result.Refund,
	})
}

// Complete serves the scheduled process that closes stays after checkout.
// Admin only.
func (h BookingHandler) Complete(c *gin.Context) {
	user, ok := requireIdentity(c)
	if !ok {
		return
	}
	if user.Role != reservations.RoleAdmin {
		respondError(c, reservations.ErrForbidden)
		return
	}
	b, err := h.Service.Complete(c.Request.Context(), booking.BookingID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapBooking(b))
}

type reviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

func (h BookingHandler) Review(c *gin.Context) {
	user, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b, err := h.Service.AddReview(c.Request.Context(), booking.BookingID(c.Param("id")), user.ID, req.Rating, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapBooking(b))
}

func (h BookingHandler) ListMine(c *gin.Context) {
	user, ok := requireIdentity(c)
	if !ok {
		return
	}
	items, err := h.Service.ListGuestBookings(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]bookingResponse, len(items))
	for i, b := range items {
		out[i] = mapBooking(b)
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

var _ BookingHTTP = BookingHandler{}
