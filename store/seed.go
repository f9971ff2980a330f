package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/E-Bousk/natours/domain"
	"github.com/E-Bousk/natours/web/auth"
)

// Seed inserts data in database for development purposes
func Seed(ctx context.Context, db *mongo.Database) error {
	timeNow := time.Now().Truncate(time.Millisecond).UTC()

	adminID := primitive.NewObjectID()
	guideID := primitive.NewObjectID()
	userID := primitive.NewObjectID()
	forestID := primitive.NewObjectID()
	seaID := primitive.NewObjectID()

	collections := make(map[string][]interface{}, 3)

	collections[UserCollection] = []interface{}{
		domain.User{
			ID:             adminID,
			Name:           "Admin",
			Email:          "admin@natours.io",
			Role:           auth.RoleAdmin,
			HashedPassword: "$2a$10$2iPnt444yuUBu8tSCm0iXOaGO2YYyTLVzGKr9LudAj7s.9m9iv7PS", // password
			Active:         true,
			CreatedAt:      timeNow,
			UpdatedAt:      timeNow,
		},
		domain.User{
			ID:             guideID,
			Name:           "Gina Guide",
			Email:          "guide@natours.io",
			Role:           auth.RoleGuide,
			HashedPassword: "$2a$10$2iPnt444yuUBu8tSCm0iXOaGO2YYyTLVzGKr9LudAj7s.9m9iv7PS",
			Active:         true,
			CreatedAt:      timeNow,
			UpdatedAt:      timeNow,
		},
		domain.User{
			ID:             userID,
			Name:           "Ulla User",
			Email:          "user@natours.io",
			Role:           auth.RoleUser,
			HashedPassword: "$2a$10$2iPnt444yuUBu8tSCm0iXOaGO2YYyTLVzGKr9LudAj7s.9m9iv7PS",
			Active:         true,
			CreatedAt:      timeNow,
			UpdatedAt:      timeNow,
		},
	}

	collections[TourCollection] = []interface{}{
		domain.Tour{
			ID:              forestID,
			Name:            "The Forest Hiker",
			Slug:            "the-forest-hiker",
			Duration:        5,
			MaxGroupSize:    25,
			Difficulty:      domain.DifficultyEasy,
			// matches the single 5-star review seeded below
			RatingsAverage:  5,
			RatingsQuantity: 1,
			Price:           397,
			Summary:         "Breathtaking hike through the Canadian Banff National Park",
			ImageCover:      "tour-1-cover.jpg",
			StartDates:      []time.Time{timeNow.AddDate(0, 2, 0), timeNow.AddDate(0, 5, 0)},
			StartLocation: &domain.Location{
				Type:        "Point",
				Coordinates: []float64{-115.570154, 51.178456},
				Address:     "224 Banff Ave, Banff, AB, Canada",
				Description: "Banff, CAN",
			},
			Guides:    []primitive.ObjectID{guideID},
			CreatedAt: timeNow,
			UpdatedAt: timeNow,
		},
		domain.Tour{
			ID:              seaID,
			Name:            "The Sea Explorer",
			Slug:            "the-sea-explorer",
			Duration:        7,
			MaxGroupSize:    15,
			Difficulty:      domain.DifficultyMedium,
			RatingsAverage:  domain.DefaultRatingsAverage,
			RatingsQuantity: 0,
			Price:           497,
			Summary:         "Exploring the jaw-dropping US east coast by foot and by boat",
			ImageCover:      "tour-2-cover.jpg",
			StartDates:      []time.Time{timeNow.AddDate(0, 1, 0)},
			StartLocation: &domain.Location{
				Type:        "Point",
				Coordinates: []float64{-80.185942, 25.774772},
				Address:     "301 Biscayne Blvd, Miami, FL, USA",
				Description: "Miami, USA",
			},
			Guides:    []primitive.ObjectID{guideID},
			CreatedAt: timeNow,
			UpdatedAt: timeNow,
		},
	}

	collections[ReviewCollection] = []interface{}{
		domain.Review{
			ID:        primitive.NewObjectID(),
			Review:    "Cracking tour, would book again!",
			Rating:    5,
			Tour:      forestID,
			User:      userID,
			CreatedAt: timeNow,
			UpdatedAt: timeNow,
		},
	}

	for k, v := range collections {
		res, err := db.Collection(k).InsertMany(ctx, v)
		if err != nil || len(res.InsertedIDs) == 0 {
			return err
		}
	}

	return nil
}
