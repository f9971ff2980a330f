package usecase

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gosimple/slug"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/E-Bousk/natours/domain"
	"github.com/E-Bousk/natours/store"
)

// Sphere radii used to convert a distance into radians for $centerSphere
const (
	earthRadiusMiles = 3963.2
	earthRadiusKm    = 6378.1
)

type tourUsecase struct {
	tourRepo       domain.TourRepository
	contextTimeout time.Duration
	tracer         trace.Tracer
}

// NewTourUsecase will create new an tourUsecase object representation of domain.TourUsecase interface
func NewTourUsecase(t domain.TourRepository, timeout time.Duration, tracer trace.Tracer) domain.TourUsecase {
	return &tourUsecase{
		tourRepo:       t,
		contextTimeout: timeout,
		tracer:         tracer,
	}
}

func (uc *tourUsecase) Fetch(c context.Context, params url.Values) ([]*domain.Tour, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase Fetch",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	if store.PageRequested(params) {
		total, err := uc.tourRepo.Count(ctx, params, nil)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if skip := store.SkipOf(params); skip > 0 && skip >= total {
			err = fmt.Errorf("this page does not exist: %w", domain.ErrBadParamInput)
			span.RecordError(err)
			return nil, err
		}
	}

	return uc.tourRepo.Fetch(ctx, params, nil)
}

func (uc *tourUsecase) GetByID(c context.Context, id string) (*domain.Tour, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase GetByID",
		trace.WithAttributes(
			attribute.String("tourid", id)),
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("tour ID is not valid ObjectID: %w: %s", domain.ErrBadParamInput, err.Error())
	}

	return uc.tourRepo.GetByID(ctx, objID)
}

func (uc *tourUsecase) Create(c context.Context, m domain.CreateTour) (*domain.Tour, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase Create",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	guides, err := parseGuides(m.Guides)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	now := time.Now().Truncate(time.Millisecond).UTC()
	t := &domain.Tour{
		ID:              primitive.NewObjectID(),
		Name:            m.Name,
		Slug:            slug.Make(m.Name),
		Duration:        m.Duration,
		MaxGroupSize:    m.MaxGroupSize,
		Difficulty:      m.Difficulty,
		RatingsAverage:  domain.DefaultRatingsAverage,
		RatingsQuantity: 0,
		Price:           m.Price,
		PriceDiscount:   m.PriceDiscount,
		Summary:         m.Summary,
		Description:     m.Description,
		ImageCover:      m.ImageCover,
		Images:          m.Images,
		StartDates:      m.StartDates,
		SecretTour:      m.SecretTour,
		StartLocation:   m.StartLocation,
		Locations:       m.Locations,
		Guides:          guides,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	span.SetAttributes(attribute.String("tourid", t.ID.Hex()))

	if err = uc.tourRepo.Create(ctx, t); err != nil {
		span.RecordError(err)
		return nil, err
	}

	t.DurationWeeks = float64(t.Duration) / 7
	return t, nil
}

func (uc *tourUsecase) Update(c context.Context, id string, m domain.UpdateTour) (*domain.Tour, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase Update",
		trace.WithAttributes(
			attribute.String("tourid", id)),
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("tour ID is not valid ObjectID: %w: %s", domain.ErrBadParamInput, err.Error())
	}

	t, err := uc.tourRepo.GetByID(ctx, objID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("can't get %s tour: %w", id, err)
	}
	t.Reviews = nil

	if m.Name != nil {
		t.Name = *m.Name
		t.Slug = slug.Make(*m.Name)
	}
	if m.Duration != nil {
		t.Duration = *m.Duration
	}
	if m.MaxGroupSize != nil {
		t.MaxGroupSize = *m.MaxGroupSize
	}
	if m.Difficulty != nil {
		t.Difficulty = *m.Difficulty
	}
	if m.Price != nil {
		t.Price = *m.Price
	}
	if m.PriceDiscount != nil {
		t.PriceDiscount = *m.PriceDiscount
	}
	if m.Summary != nil {
		t.Summary = *m.Summary
	}
	if m.Description != nil {
		t.Description = *m.Description
	}
	if m.ImageCover != nil {
		t.ImageCover = *m.ImageCover
	}
	if m.Images != nil {
		t.Images = m.Images
	}
	if m.StartDates != nil {
		t.StartDates = m.StartDates
	}
	if m.SecretTour != nil {
		t.SecretTour = *m.SecretTour
	}
	if m.StartLocation != nil {
		t.StartLocation = m.StartLocation
	}
	if m.Locations != nil {
		t.Locations = m.Locations
	}
	if m.Guides != nil {
		guides, err := parseGuides(m.Guides)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		t.Guides = guides
	}

	if t.PriceDiscount != 0 && t.PriceDiscount >= t.Price {
		err = fmt.Errorf("price discount (%.2f) must be below the price (%.2f): %w", t.PriceDiscount, t.Price, domain.ErrBadParamInput)
		span.RecordError(err)
		return nil, err
	}

	t.UpdatedAt = time.Now().Truncate(time.Millisecond).UTC()

	if err = uc.tourRepo.Update(ctx, t); err != nil {
		span.RecordError(err)
		return nil, err
	}

	t.DurationWeeks = float64(t.Duration) / 7
	return t, nil
}

func (uc *tourUsecase) Delete(c context.Context, id string) error {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase Delete",
		trace.WithAttributes(
			attribute.String("tourid", id)),
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("tour ID is not valid ObjectID: %w: %s", domain.ErrBadParamInput, err.Error())
	}

	return uc.tourRepo.Delete(ctx, objID)
}

func (uc *tourUsecase) Stats(c context.Context) ([]domain.TourStats, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase Stats",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	return uc.tourRepo.Stats(ctx)
}

func (uc *tourUsecase) MonthlyPlan(c context.Context, year int) ([]domain.MonthlyPlanEntry, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase MonthlyPlan",
		trace.WithAttributes(
			attribute.Int("year", year)),
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	if year < 1900 || year > 2200 {
		err := fmt.Errorf("year %d is out of range: %w", year, domain.ErrBadParamInput)
		span.RecordError(err)
		return nil, err
	}

	return uc.tourRepo.MonthlyPlan(ctx, year)
}

func (uc *tourUsecase) FetchWithin(c context.Context, distance float64, lat, lng float64, unit string) ([]*domain.Tour, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase FetchWithin",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	if distance <= 0 {
		err := fmt.Errorf("distance must be positive: %w", domain.ErrBadParamInput)
		span.RecordError(err)
		return nil, err
	}

	var radius float64
	switch unit {
	case "mi":
		radius = distance / earthRadiusMiles
	case "km":
		radius = distance / earthRadiusKm
	default:
		err := fmt.Errorf("unit must be mi or km, got %q: %w", unit, domain.ErrBadParamInput)
		span.RecordError(err)
		return nil, err
	}

	return uc.tourRepo.FetchWithin(ctx, lat, lng, radius)
}

func parseGuides(ids []string) ([]primitive.ObjectID, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	guides := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		objID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, fmt.Errorf("guide ID %q is not valid ObjectID: %w: %s", id, domain.ErrBadParamInput, err.Error())
		}
		guides = append(guides, objID)
	}
	return guides, nil
}
