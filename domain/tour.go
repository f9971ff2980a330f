package domain

import (
	"context"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Tour difficulties
const (
	DifficultyEasy      = "easy"
	DifficultyMedium    = "medium"
	DifficultyDifficult = "difficult"
)

// Location represents a GeoJSON point with a human readable description
type Location struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
	Address     string    `json:"address,omitempty" bson:"address,omitempty"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Day         int       `json:"day,omitempty" bson:"day,omitempty"`
}

// Tour represents the Tour model
type Tour struct {
	ID              primitive.ObjectID   `json:"id" bson:"_id"`
	Name            string               `json:"name" bson:"name"`
	Slug            string               `json:"slug" bson:"slug"`
	Duration        int                  `json:"duration" bson:"duration"`
	MaxGroupSize    int                  `json:"max_group_size" bson:"max_group_size"`
	Difficulty      string               `json:"difficulty" bson:"difficulty"`
	RatingsAverage  float64              `json:"ratings_average" bson:"ratings_average"`
	RatingsQuantity int                  `json:"ratings_quantity" bson:"ratings_quantity"`
	Price           float64              `json:"price" bson:"price"`
	PriceDiscount   float64              `json:"price_discount,omitempty" bson:"price_discount,omitempty"`
	Summary         string               `json:"summary" bson:"summary"`
	Description     string               `json:"description,omitempty" bson:"description,omitempty"`
	ImageCover      string               `json:"image_cover" bson:"image_cover"`
	Images          []string             `json:"images,omitempty" bson:"images,omitempty"`
	StartDates      []time.Time          `json:"start_dates,omitempty" bson:"start_dates,omitempty"`
	SecretTour      bool                 `json:"secret_tour" bson:"secret_tour"`
	StartLocation   *Location            `json:"start_location,omitempty" bson:"start_location,omitempty"`
	Locations       []Location           `json:"locations,omitempty" bson:"locations,omitempty"`
	Guides          []primitive.ObjectID `json:"guides,omitempty" bson:"guides,omitempty"`
	CreatedAt       time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at" bson:"updated_at"`

	// DurationWeeks is derived from Duration when the document is read,
	// it is never stored
	DurationWeeks float64 `json:"duration_weeks,omitempty" bson:"-"`
	// Reviews is populated on single tour reads only
	Reviews []*Review `json:"reviews,omitempty" bson:"reviews,omitempty"`
}

// DefaultRatingsAverage is the rating a tour gets before anyone reviewed it
const DefaultRatingsAverage = 4.5

// CreateTour represents data to create new Tour
type CreateTour struct {
	Name          string      `json:"name" validate:"required,min=10,max=40"`
	Duration      int         `json:"duration" validate:"required,gt=0"`
	MaxGroupSize  int         `json:"max_group_size" validate:"required,gt=0"`
	Difficulty    string      `json:"difficulty" validate:"required,oneof=easy medium difficult"`
	Price         float64     `json:"price" validate:"required,gt=0"`
	PriceDiscount float64     `json:"price_discount" validate:"omitempty,gt=0,ltfield=Price"`
	Summary       string      `json:"summary" validate:"required"`
	Description   string      `json:"description"`
	ImageCover    string      `json:"image_cover" validate:"required"`
	Images        []string    `json:"images"`
	StartDates    []time.Time `json:"start_dates"`
	SecretTour    bool        `json:"secret_tour"`
	StartLocation *Location   `json:"start_location"`
	Locations     []Location  `json:"locations"`
	Guides        []string    `json:"guides" validate:"omitempty,dive,len=24"`
}

// UpdateTour represents data to partially update Tour
type UpdateTour struct {
	Name          *string     `json:"name" validate:"omitempty,min=10,max=40"`
	Duration      *int        `json:"duration" validate:"omitempty,gt=0"`
	MaxGroupSize  *int        `json:"max_group_size" validate:"omitempty,gt=0"`
	Difficulty    *string     `json:"difficulty" validate:"omitempty,oneof=easy medium difficult"`
	Price         *float64    `json:"price" validate:"omitempty,gt=0"`
	PriceDiscount *float64    `json:"price_discount" validate:"omitempty,gt=0"`
	Summary       *string     `json:"summary" validate:"omitempty"`
	Description   *string     `json:"description"`
	ImageCover    *string     `json:"image_cover"`
	Images        []string    `json:"images"`
	StartDates    []time.Time `json:"start_dates"`
	SecretTour    *bool       `json:"secret_tour"`
	StartLocation *Location   `json:"start_location"`
	Locations     []Location  `json:"locations"`
	Guides        []string    `json:"guides" validate:"omitempty,dive,len=24"`
}

// TourStats represents rating and price aggregates grouped by difficulty
type TourStats struct {
	Difficulty string  `json:"difficulty" bson:"_id"`
	NumTours   int     `json:"num_tours" bson:"num_tours"`
	NumRatings int     `json:"num_ratings" bson:"num_ratings"`
	AvgRating  float64 `json:"avg_rating" bson:"avg_rating"`
	AvgPrice   float64 `json:"avg_price" bson:"avg_price"`
	MinPrice   float64 `json:"min_price" bson:"min_price"`
	MaxPrice   float64 `json:"max_price" bson:"max_price"`
}

// MonthlyPlanEntry represents tour starts grouped by month of a year
type MonthlyPlanEntry struct {
	Month         int      `json:"month" bson:"_id"`
	NumTourStarts int      `json:"num_tour_starts" bson:"num_tour_starts"`
	Tours         []string `json:"tours" bson:"tours"`
}

// TourUsecase represents the Tour's usecases
type TourUsecase interface {
	Fetch(ctx context.Context, params url.Values) ([]*Tour, error)
	GetByID(ctx context.Context, id string) (*Tour, error)
	Create(ctx context.Context, tour CreateTour) (*Tour, error)
	Update(ctx context.Context, id string, tour UpdateTour) (*Tour, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) ([]TourStats, error)
	MonthlyPlan(ctx context.Context, year int) ([]MonthlyPlanEntry, error)
	FetchWithin(ctx context.Context, distance float64, lat, lng float64, unit string) ([]*Tour, error)
}

// TourRepository represents the Tour's repository contract
type TourRepository interface {
	Fetch(ctx context.Context, params url.Values, base bson.D) ([]*Tour, error)
	Count(ctx context.Context, params url.Values, base bson.D) (int64, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*Tour, error)
	Create(ctx context.Context, tour *Tour) error
	Update(ctx context.Context, tour *Tour) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	Stats(ctx context.Context) ([]TourStats, error)
	MonthlyPlan(ctx context.Context, year int) ([]MonthlyPlanEntry, error)
	FetchWithin(ctx context.Context, lat, lng, radius float64) ([]*Tour, error)
	UpdateRatings(ctx context.Context, id primitive.ObjectID, quantity int, average float64) error
}
