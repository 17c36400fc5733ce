package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"staybook/internal/domain/property"
	"staybook/internal/domain/shared/money"
)

type PropertyRepository struct {
	col *mongo.Collection
}

func NewPropertyRepository(db *mongo.Database) *PropertyRepository {
	return &PropertyRepository{col: db.Collection("properties")}
}

func (r *PropertyRepository) ByID(ctx context.Context, id property.PropertyID) (*property.Property, error) {
	var doc propertyDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, property.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *PropertyRepository) Save(ctx context.Context, p *property.Property) error {
	doc := newPropertyDocument(p)
	filter := bson.M{"_id": doc.ID, "version": p.Version}
	doc.Version = p.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, optionsUpsert())
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	p.Version = doc.Version
	return nil
}

// UpdateRatings persists only the ratings aggregate; the rest of the
// property record belongs to the external content system.
func (r *PropertyRepository) UpdateRatings(ctx context.Context, id property.PropertyID, aggregate property.RatingsAggregate) error {
	update := bson.M{"$set": bson.M{
		"ratings.average":       aggregate.Average,
		"ratings.total_reviews": aggregate.TotalReviews,
		"ratings.updated_at":    aggregate.UpdatedAt.UnixMilli(),
	}, "$inc": bson.M{"version": 1}}
	res, err := r.col.UpdateByID(ctx, string(id), update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return property.ErrNotFound
	}
	return nil
}

type propertyDocument struct {
	ID           string           `bson:"_id"`
	HostID       string           `bson:"host_id"`
	Title        string           `bson:"title"`
	Pricing      pricingPolicyDoc `bson:"pricing"`
	Availability availabilityDoc  `bson:"availability"`
	Ratings      ratingsDoc       `bson:"ratings"`
	CreatedAt    int64            `bson:"created_at"`
	UpdatedAt    int64            `bson:"updated_at"`
	Version      int64            `bson:"version"`
}

type pricingPolicyDoc struct {
	PricePerNight money.Money `bson:"price_per_night"`
	CleaningFee   money.Money `bson:"cleaning_fee"`
	ServiceFee    money.Money `bson:"service_fee"`
}

type availabilityDoc struct {
	InstantBookable bool `bson:"instant_bookable"`
	MinimumStay     int  `bson:"minimum_stay"`
	MaximumStay     int  `bson:"maximum_stay"`
}

type ratingsDoc struct {
	Average      float64 `bson:"average"`
	TotalReviews int     `bson:"total_reviews"`
	UpdatedAt    int64   `bson:"updated_at"`
}

func newPropertyDocument(p *property.Property) propertyDocument {
	return propertyDocument{
		ID:     string(p.ID),
		HostID: string(p.Host),
		Title:  p.Title,
		Pricing: pricingPolicyDoc{
			PricePerNight: p.Pricing.PricePerNight,
			CleaningFee:   p.Pricing.CleaningFee,
			ServiceFee:    p.Pricing.ServiceFee,
		},
		Availability: availabilityDoc{
			InstantBookable: p.Availability.InstantBookable,
			MinimumStay:     p.Availability.MinimumStay,
			MaximumStay:     p.Availability.MaximumStay,
		},
		Ratings: ratingsDoc{
			Average:      p.Ratings.Average,
			TotalReviews: p.Ratings.TotalReviews,
			UpdatedAt:    p.Ratings.UpdatedAt.UnixMilli(),
		},
		CreatedAt: p.CreatedAt.UnixMilli(),
		UpdatedAt: p.UpdatedAt.UnixMilli(),
		Version:   p.Version,
	}
}

func (d propertyDocument) toAggregate() *property.Property {
	return &property.Property{
		ID:    property.PropertyID(d.ID),
		Host:  property.HostID(d.HostID),
		Title: d.Title,
		Pricing: property.PricingPolicy{
			PricePerNight: d.Pricing.PricePerNight,
			CleaningFee:   d.Pricing.CleaningFee,
			ServiceFee:    d.Pricing.ServiceFee,
		},
		Availability: property.AvailabilityPolicy{
			InstantBookable: d.Availability.InstantBookable,
			MinimumStay:     d.Availability.MinimumStay,
			MaximumStay:     d.Availability.MaximumStay,
		},
		Ratings: property.RatingsAggregate{
			Average:      d.Ratings.Average,
			TotalReviews: d.Ratings.TotalReviews,
			UpdatedAt:    timestampToTime(d.Ratings.UpdatedAt),
		},
		CreatedAt: timestampToTime(d.CreatedAt),
		UpdatedAt: timestampToTime(d.UpdatedAt),
		Version:   d.Version,
	}
}
