package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/pricing"
	"staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection("bookings")}
}

// EnsureIndexes creates the unique booking-code index that is the final
// authority on code uniqueness, plus the property/status index the
// availability checker reads through.
func (r *BookingRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "guest_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
	})
	return err
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) ByCode(ctx context.Context, code string) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"code": code}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) ListByProperty(ctx context.Context, propertyID property.PropertyID, statuses []domainbooking.Status) ([]*domainbooking.Booking, error) {
	filter := bson.M{"property_id": string(propertyID)}
	if len(statuses) > 0 {
		in := make([]string, len(statuses))
		for i, s := range statuses {
			in[i] = string(s)
		}
		filter["status"] = bson.M{"$in": in}
	}
	return r.list(ctx, filter, options.Find().SetSort(bson.D{{Key: "range.check_in", Value: 1}}))
}

func (r *BookingRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	filter := bson.M{"guest_id": guestID}
	return r.list(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (r *BookingRepository) list(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domainbooking.Booking, error) {
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var out []*domainbooking.Booking
	for cursor.Next(ctx) {
		var doc bookingDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cursor.Err()
}

func (r *BookingRepository) Insert(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	doc.Version = b.Version + 1
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainbooking.ErrDuplicateCode
		}
		return err
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) Update(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

type bookingDocument struct {
	ID               string                `bson:"_id"`
	Code             string                `bson:"code"`
	PropertyID       string                `bson:"property_id"`
	GuestID          string                `bson:"guest_id"`
	HostID           string                `bson:"host_id"`
	Range            rangeDocument         `bson:"range"`
	Occupancy        occupancyDocument     `bson:"occupancy"`
	Pricing          pricingDocument       `bson:"pricing"`
	Status           string                `bson:"status"`
	PaymentStatus    string                `bson:"payment_status"`
	PaymentMethod    string                `bson:"payment_method"`
	PaymentReference string                `bson:"payment_reference"`
	SpecialRequests  string                `bson:"special_requests"`
	HostNotes        string                `bson:"host_notes"`
	GuestNotes       string                `bson:"guest_notes"`
	Cancellation     *cancellationDocument `bson:"cancellation,omitempty"`
	Review           *reviewDocument       `bson:"review,omitempty"`
	IsInstantBook    bool                  `bson:"is_instant_book"`
	CreatedAt        int64                 `bson:"created_at"`
	UpdatedAt        int64                 `bson:"updated_at"`
	Version          int64                 `bson:"version"`
}

type rangeDocument struct {
	CheckIn  int64 `bson:"check_in"`
	CheckOut int64 `bson:"check_out"`
}

type occupancyDocument struct {
	Adults   int `bson:"adults"`
	Children int `bson:"children"`
	Infants  int `bson:"infants"`
}

type pricingDocument struct {
	PricePerNight money.Money `bson:"price_per_night"`
	TotalNights   int         `bson:"total_nights"`
	Subtotal      money.Money `bson:"subtotal"`
	CleaningFee   money.Money `bson:"cleaning_fee"`
	ServiceFee    money.Money `bson:"service_fee"`
	Total         money.Money `bson:"total"`
}

type cancellationDocument struct {
	Reason       string      `bson:"reason"`
	Date         int64       `bson:"date"`
	RefundAmount money.Money `bson:"refund_amount"`
}

type reviewDocument struct {
	Rating    int    `bson:"rating"`
	Comment   string `bson:"comment"`
	CreatedAt int64  `bson:"created_at"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	doc := bookingDocument{
		ID:               string(b.ID),
		Code:             b.Code,
		PropertyID:       string(b.PropertyID),
		GuestID:          b.GuestID,
		HostID:           string(b.HostID),
		Range:            rangeDocument{CheckIn: b.Range.CheckIn.UnixMilli(), CheckOut: b.Range.CheckOut.UnixMilli()},
		Occupancy:        occupancyDocument{Adults: b.Occupancy.Adults, Children: b.Occupancy.Children, Infants: b.Occupancy.Infants},
		Pricing: pricingDocument{
			PricePerNight: b.Pricing.PricePerNight,
			TotalNights:   b.Pricing.TotalNights,
			Subtotal:      b.Pricing.Subtotal,
			CleaningFee:   b.Pricing.CleaningFee,
			ServiceFee:    b.Pricing.ServiceFee,
			Total:         b.Pricing.Total,
		},
		Status:           string(b.Status),
		PaymentStatus:    string(b.PaymentStatus),
		PaymentMethod:    b.PaymentMethod,
		PaymentReference: b.PaymentReference,
		SpecialRequests:  b.SpecialRequests,
		HostNotes:        b.HostNotes,
		GuestNotes:       b.GuestNotes,
		IsInstantBook:    b.IsInstantBook,
		CreatedAt:        b.CreatedAt.UnixMilli(),
		UpdatedAt:        b.UpdatedAt.UnixMilli(),
		Version:          b.Version,
	}
	if b.Cancellation != nil {
		doc.Cancellation = &cancellationDocument{
			Reason:       b.Cancellation.Reason,
			Date:         b.Cancellation.Date.UnixMilli(),
			RefundAmount: b.Cancellation.RefundAmount,
		}
	}
	if b.Review != nil {
		doc.Review = &reviewDocument{
			Rating:    b.Review.Rating,
			Comment:   b.Review.Comment,
			CreatedAt: b.Review.CreatedAt.UnixMilli(),
		}
	}
	return doc
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	b := &domainbooking.Booking{
		ID:         domainbooking.BookingID(d.ID),
		Code:       d.Code,
		PropertyID: property.PropertyID(d.PropertyID),
		GuestID:    d.GuestID,
		HostID:     property.HostID(d.HostID),
		Range: daterange.DateRange{
			CheckIn:  timestampToTime(d.Range.CheckIn),
			CheckOut: timestampToTime(d.Range.CheckOut),
		},
		Occupancy: domainbooking.Occupancy{Adults: d.Occupancy.Adults, Children: d.Occupancy.Children, Infants: d.Occupancy.Infants},
		Pricing: pricing.Snapshot{
			PricePerNight: d.Pricing.PricePerNight,
			TotalNights:   d.Pricing.TotalNights,
			Subtotal:      d.Pricing.Subtotal,
			CleaningFee:   d.Pricing.CleaningFee,
			ServiceFee:    d.Pricing.ServiceFee,
			Total:         d.Pricing.Total,
		},
		Status:           domainbooking.Status(d.Status),
		PaymentStatus:    domainbooking.PaymentStatus(d.PaymentStatus),
		PaymentMethod:    d.PaymentMethod,
		PaymentReference: d.PaymentReference,
		SpecialRequests:  d.SpecialRequests,
		HostNotes:        d.HostNotes,
		GuestNotes:       d.GuestNotes,
		IsInstantBook:    d.IsInstantBook,
		CreatedAt:        timestampToTime(d.CreatedAt),
		UpdatedAt:        timestampToTime(d.UpdatedAt),
		Version:          d.Version,
	}
	if d.Cancellation != nil {
		b.Cancellation = &domainbooking.Cancellation{
			Reason:       d.Cancellation.Reason,
			Date:         timestampToTime(d.Cancellation.Date),
			RefundAmount: d.Cancellation.RefundAmount,
		}
	}
	if d.Review != nil {
		b.Review = &domainbooking.Review{
			Rating:    d.Review.Rating,
			Comment:   d.Review.Comment,
			CreatedAt: timestampToTime(d.Review.CreatedAt),
		}
	}
	return b
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
