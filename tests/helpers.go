package tests

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/E-Bousk/natours/domain"
	"github.com/E-Bousk/natours/store"
	"github.com/E-Bousk/natours/web/auth"
)

// StringPointer returns pointer of a string
func StringPointer(s string) *string {
	return &s
}

// IntPointer returns pointer of an int
func IntPointer(i int) *int {
	return &i
}

// FloatPointer returns pointer of a float64
func FloatPointer(f float64) *float64 {
	return &f
}

// BoolPointer returns pointer of a bool
func BoolPointer(b bool) *bool {
	return &b
}

// DatePointer returns pointer of a time.Time
func DatePointer(t time.Time) *time.Time {
	return &t
}

// NewUser creates instance of User model
func NewUser() *domain.User {
	id, _ := primitive.ObjectIDFromHex("507f191e810c19729de860ea")
	return &domain.User{
		ID:             id,
		Name:           "John Doe",
		Email:          "test@example.com",
		Role:           auth.RoleUser,
		HashedPassword: "$2a$10$2iPnt444yuUBu8tSCm0iXOaGO2YYyTLVzGKr9LudAj7s.9m9iv7PS", // password
		Active:         true,
		CreatedAt:      time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		UpdatedAt:      time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

// NewAdmin creates instance of User model with the admin role
func NewAdmin() *domain.User {
	u := NewUser()
	id, _ := primitive.ObjectIDFromHex("507f191e810c19729de860eb")
	u.ID = id
	u.Email = "admin@example.com"
	u.Role = auth.RoleAdmin
	return u
}

// NewSignupUser creates instance of SignupUser model
func NewSignupUser() domain.SignupUser {
	return domain.SignupUser{
		Name:            "John Doe",
		Email:           "test@example.com",
		Password:        "newpassword",
		PasswordConfirm: "newpassword",
	}
}

// NewTour creates instance of Tour model
func NewTour() *domain.Tour {
	id, _ := primitive.ObjectIDFromHex("5c88fa8cf4afda39709c2955")
	return &domain.Tour{
		ID:              id,
		Name:            "The Forest Hiker",
		Slug:            "the-forest-hiker",
		Duration:        5,
		MaxGroupSize:    25,
		Difficulty:      domain.DifficultyEasy,
		RatingsAverage:  4.7,
		RatingsQuantity: 37,
		Price:           397,
		Summary:         "Breathtaking hike through the Canadian Banff National Park",
		ImageCover:      "tour-1-cover.jpg",
		StartDates:      []time.Time{time.Date(2026, 4, 25, 9, 0, 0, 0, time.UTC)},
		StartLocation: &domain.Location{
			Type:        "Point",
			Coordinates: []float64{-116.214531, 51.417611},
			Address:     "224 Banff Ave, Banff, AB, Canada",
			Description: "Banff, CAN",
		},
		CreatedAt:     time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		UpdatedAt:     time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		DurationWeeks: float64(5) / 7,
	}
}

// NewCreateTour creates instance of CreateTour model
func NewCreateTour() domain.CreateTour {
	return domain.CreateTour{
		Name:         "The Forest Hiker",
		Duration:     5,
		MaxGroupSize: 25,
		Difficulty:   domain.DifficultyEasy,
		Price:        397,
		Summary:      "Breathtaking hike through the Canadian Banff National Park",
		ImageCover:   "tour-1-cover.jpg",
		StartDates:   []time.Time{time.Date(2026, 4, 25, 9, 0, 0, 0, time.UTC)},
		StartLocation: &domain.Location{
			Type:        "Point",
			Coordinates: []float64{-116.214531, 51.417611},
			Address:     "224 Banff Ave, Banff, AB, Canada",
			Description: "Banff, CAN",
		},
	}
}

// NewReview creates instance of Review model
func NewReview() *domain.Review {
	id, _ := primitive.ObjectIDFromHex("5c8a34ed14eb5c17645c9108")
	return &domain.Review{
		ID:        id,
		Review:    "Amazing tour, would go again",
		Rating:    5,
		Tour:      NewTour().ID,
		User:      NewUser().ID,
		CreatedAt: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

// NewUserBsonD creates bson.D document of User model
func NewUserBsonD() bson.D {
	doc, _ := store.StructToDoc(NewUser())
	return *doc
}

// NewTourBsonD creates bson.D document of Tour model
func NewTourBsonD() bson.D {
	doc, _ := store.StructToDoc(NewTour())
	return *doc
}

// NewReviewBsonD creates bson.D document of Review model
func NewReviewBsonD() bson.D {
	doc, _ := store.StructToDoc(NewReview())
	return *doc
}

// NewCreateReview creates instance of CreateReview model
func NewCreateReview() domain.CreateReview {
	return domain.CreateReview{
		Review: "Amazing tour, would go again",
		Rating: 5,
		Tour:   NewTour().ID.Hex(),
	}
}
