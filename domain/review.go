package domain

import (
	"context"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/E-Bousk/natours/web/auth"
)

// ReviewAuthor is the subset of the author inlined into review reads
type ReviewAuthor struct {
	Name  string `json:"name" bson:"name"`
	Photo string `json:"photo,omitempty" bson:"photo,omitempty"`
}

// Review represents the Review model. Every review belongs to exactly one
// tour and one user.
type Review struct {
	ID        primitive.ObjectID `json:"id" bson:"_id"`
	Review    string             `json:"review" bson:"review"`
	Rating    float64            `json:"rating" bson:"rating"`
	Tour      primitive.ObjectID `json:"tour" bson:"tour"`
	User      primitive.ObjectID `json:"user" bson:"user"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`

	// Author is populated from the user collection on reads, never stored
	Author *ReviewAuthor `json:"author,omitempty" bson:"author,omitempty"`
}

// CreateReview represents data to create new Review. The tour may come from
// a nested route, the user always comes from the session token.
type CreateReview struct {
	Review string  `json:"review" validate:"required"`
	Rating float64 `json:"rating" validate:"required,min=1,max=5"`
	Tour   string  `json:"tour" validate:"required,len=24"`
}

// UpdateReview represents data to partially update Review
type UpdateReview struct {
	Review *string  `json:"review" validate:"omitempty"`
	Rating *float64 `json:"rating" validate:"omitempty,min=1,max=5"`
}

// RatingStats holds the recomputed rating aggregate of one tour
type RatingStats struct {
	NumRating int     `bson:"num_rating"`
	AvgRating float64 `bson:"avg_rating"`
}

// ReviewUsecase represents the Review's usecases
type ReviewUsecase interface {
	Fetch(ctx context.Context, params url.Values, tourID string) ([]*Review, error)
	GetByID(ctx context.Context, id string) (*Review, error)
	Create(ctx context.Context, review CreateReview, claims *auth.Claims) (*Review, error)
	Update(ctx context.Context, id string, review UpdateReview, claims *auth.Claims) (*Review, error)
	Delete(ctx context.Context, id string, claims *auth.Claims) error
}

// ReviewRepository represents the Review's repository contract
type ReviewRepository interface {
	Fetch(ctx context.Context, params url.Values, base bson.D) ([]*Review, error)
	Count(ctx context.Context, params url.Values, base bson.D) (int64, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*Review, error)
	Create(ctx context.Context, review *Review) error
	Update(ctx context.Context, review *Review) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	RatingStats(ctx context.Context, tourID primitive.ObjectID) (*RatingStats, error)
}
