package usecase

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/E-Bousk/natours/domain"
	"github.com/E-Bousk/natours/store"
	"github.com/E-Bousk/natours/web/auth"
)

type reviewUsecase struct {
	reviewRepo     domain.ReviewRepository
	tourRepo       domain.TourRepository
	contextTimeout time.Duration
	logger         *zap.Logger
	tracer         trace.Tracer
}

// NewReviewUsecase will create new an reviewUsecase object representation of domain.ReviewUsecase interface
func NewReviewUsecase(r domain.ReviewRepository, t domain.TourRepository, timeout time.Duration, logger *zap.Logger, tracer trace.Tracer) domain.ReviewUsecase {
	return &reviewUsecase{
		reviewRepo:     r,
		tourRepo:       t,
		contextTimeout: timeout,
		logger:         logger,
		tracer:         tracer,
	}
}

func (uc *reviewUsecase) Fetch(c context.Context, params url.Values, tourID string) ([]*domain.Review, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(ctx, "usecase Fetch")
	defer span.End()

	base := bson.D{}
	if tourID != "" {
		id, err := primitive.ObjectIDFromHex(tourID)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("wrong tour id format: %w: %s", domain.ErrBadParamInput, err.Error())
		}
		base = append(base, primitive.E{Key: "tour", Value: id})
	}

	if store.PageRequested(params) {
		total, err := uc.reviewRepo.Count(ctx, params, base)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if skip := store.SkipOf(params); skip > 0 && skip >= total {
			return nil, fmt.Errorf("this page does not exist: %w", domain.ErrBadParamInput)
		}
	}

	return uc.reviewRepo.Fetch(ctx, params, base)
}

func (uc *reviewUsecase) GetByID(c context.Context, id string) (*domain.Review, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase GetByID",
		trace.WithAttributes(
			attribute.String("reviewid", id)),
	)
	defer span.End()

	reviewID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("wrong review id format: %w: %s", domain.ErrBadParamInput, err.Error())
	}

	return uc.reviewRepo.GetByID(ctx, reviewID)
}

func (uc *reviewUsecase) Create(c context.Context, review domain.CreateReview, claims *auth.Claims) (*domain.Review, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(ctx, "usecase Create")
	defer span.End()

	tourID, err := primitive.ObjectIDFromHex(review.Tour)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("wrong tour id format: %w: %s", domain.ErrBadParamInput, err.Error())
	}

	userID, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("wrong user id format: %w: %s", domain.ErrBadParamInput, err.Error())
	}

	// the tour must exist and be visible before accepting a review for it
	if _, err = uc.tourRepo.GetByID(ctx, tourID); err != nil {
		span.RecordError(err)
		return nil, err
	}

	now := time.Now().Truncate(time.Millisecond).UTC()
	r := &domain.Review{
		ID:        primitive.NewObjectID(),
		Review:    review.Review,
		Rating:    review.Rating,
		Tour:      tourID,
		User:      userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = uc.reviewRepo.Create(ctx, r)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("reviewid", r.ID.Hex()))

	if err = uc.recalcRatings(ctx, tourID); err != nil {
		uc.logger.Error("can't recompute tour ratings", zap.String("tourid", tourID.Hex()), zap.Error(err))
	}

	return r, nil
}

func (uc *reviewUsecase) Update(c context.Context, id string, review domain.UpdateReview, claims *auth.Claims) (*domain.Review, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase Update",
		trace.WithAttributes(
			attribute.String("reviewid", id)),
	)
	defer span.End()

	reviewID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("wrong review id format: %w: %s", domain.ErrBadParamInput, err.Error())
	}

	r, err := uc.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err = ownerOrAdmin(r, claims); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if review.Review != nil {
		r.Review = *review.Review
	}
	if review.Rating != nil {
		r.Rating = *review.Rating
	}
	r.UpdatedAt = time.Now().Truncate(time.Millisecond).UTC()

	err = uc.reviewRepo.Update(ctx, r)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err = uc.recalcRatings(ctx, r.Tour); err != nil {
		uc.logger.Error("can't recompute tour ratings", zap.String("tourid", r.Tour.Hex()), zap.Error(err))
	}

	return r, nil
}

func (uc *reviewUsecase) Delete(c context.Context, id string, claims *auth.Claims) error {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase Delete",
		trace.WithAttributes(
			attribute.String("reviewid", id)),
	)
	defer span.End()

	reviewID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("wrong review id format: %w: %s", domain.ErrBadParamInput, err.Error())
	}

	r, err := uc.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if err = ownerOrAdmin(r, claims); err != nil {
		span.RecordError(err)
		return err
	}

	err = uc.reviewRepo.Delete(ctx, reviewID)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if err = uc.recalcRatings(ctx, r.Tour); err != nil {
		uc.logger.Error("can't recompute tour ratings", zap.String("tourid", r.Tour.Hex()), zap.Error(err))
	}

	return nil
}

// recalcRatings writes the current review aggregate back onto the tour.
// Without any review left the tour returns to the defaults.
func (uc *reviewUsecase) recalcRatings(ctx context.Context, tourID primitive.ObjectID) error {
	stats, err := uc.reviewRepo.RatingStats(ctx, tourID)
	if err != nil {
		return err
	}

	if stats == nil {
		return uc.tourRepo.UpdateRatings(ctx, tourID, 0, domain.DefaultRatingsAverage)
	}

	return uc.tourRepo.UpdateRatings(ctx, tourID, stats.NumRating, stats.AvgRating)
}

// ownerOrAdmin rejects writes on a review the caller does not own, unless
// the caller is an admin
func ownerOrAdmin(r *domain.Review, claims *auth.Claims) error {
	if claims.HasRole(auth.RoleAdmin) {
		return nil
	}
	if r.User.Hex() != claims.Subject {
		return fmt.Errorf("you can only change your own reviews: %w", domain.ErrForbidden)
	}
	return nil
}
