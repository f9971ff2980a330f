package usecase_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/E-Bousk/natours/domain"
	"github.com/E-Bousk/natours/tests"
	"github.com/E-Bousk/natours/tour/mock"
	"github.com/E-Bousk/natours/tour/usecase"
)

var tracer = sdktrace.NewTracerProvider().Tracer("")

func TestTourUsecase_Fetch(t *testing.T) {
	controller := gomock.NewController(t)
	defer controller.Finish()

	tTour := tests.NewTour()
	repository := mock.NewMockTourRepository(controller)
	uc := usecase.NewTourUsecase(repository, 10*time.Second, tracer)

	t.Run("fetch without page skips the count", func(t *testing.T) {
		params := url.Values{"difficulty": {"easy"}}
		repository.EXPECT().Fetch(gomock.Any(), params, gomock.Nil()).Return([]*domain.Tour{tTour}, nil)

		result, err := uc.Fetch(context.Background(), params)

		assert.NoError(t, err)
		assert.Len(t, result, 1)
	})

	t.Run("requested page within range", func(t *testing.T) {
		params := url.Values{"page": {"2"}, "limit": {"1"}}
		repository.EXPECT().Count(gomock.Any(), params, gomock.Nil()).Return(int64(3), nil)
		repository.EXPECT().Fetch(gomock.Any(), params, gomock.Nil()).Return([]*domain.Tour{tTour}, nil)

		result, err := uc.Fetch(context.Background(), params)

		assert.NoError(t, err)
		assert.Len(t, result, 1)
	})

	t.Run("requested page beyond the collection", func(t *testing.T) {
		params := url.Values{"page": {"5"}, "limit": {"10"}}
		repository.EXPECT().Count(gomock.Any(), params, gomock.Nil()).Return(int64(12), nil)

		result, err := uc.Fetch(context.Background(), params)

		assert.ErrorIs(t, err, domain.ErrBadParamInput)
		assert.Nil(t, result)
	})
}

func TestTourUsecase_GetByID(t *testing.T) {
	controller := gomock.NewController(t)
	defer controller.Finish()

	tTour := tests.NewTour()
	repository := mock.NewMockTourRepository(controller)
	uc := usecase.NewTourUsecase(repository, 10*time.Second, tracer)

	t.Run("bad id format", func(t *testing.T) {
		result, err := uc.GetByID(context.Background(), "not-an-object-id")
		assert.ErrorIs(t, err, domain.ErrBadParamInput)
		assert.Nil(t, result)
	})

	t.Run("not found", func(t *testing.T) {
		repository.EXPECT().GetByID(gomock.Any(), tTour.ID).Return(nil, domain.ErrNotFound)
		result, err := uc.GetByID(context.Background(), tTour.ID.Hex())
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Nil(t, result)
	})

	t.Run("success", func(t *testing.T) {
		repository.EXPECT().GetByID(gomock.Any(), tTour.ID).Return(tTour, nil)
		result, err := uc.GetByID(context.Background(), tTour.ID.Hex())
		assert.NoError(t, err)
		assert.EqualValues(t, tTour, result)
	})
}

func TestTourUsecase_Create(t *testing.T) {
	controller := gomock.NewController(t)
	defer controller.Finish()

	tCreate := tests.NewCreateTour()
	repository := mock.NewMockTourRepository(controller)
	uc := usecase.NewTourUsecase(repository, 10*time.Second, tracer)

	t.Run("success sets slug and rating defaults", func(t *testing.T) {
		repository.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

		result, err := uc.Create(context.Background(), tCreate)

		require.NoError(t, err)
		assert.Equal(t, "the-forest-hiker", result.Slug)
		assert.Equal(t, domain.DefaultRatingsAverage, result.RatingsAverage)
		assert.Zero(t, result.RatingsQuantity)
		assert.InDelta(t, float64(tCreate.Duration)/7, result.DurationWeeks, 1e-9)
	})

	t.Run("bad guide id", func(t *testing.T) {
		bad := tCreate
		bad.Guides = []string{"not-an-object-id-aaaaaaa"}

		result, err := uc.Create(context.Background(), bad)

		assert.ErrorIs(t, err, domain.ErrBadParamInput)
		assert.Nil(t, result)
	})

	t.Run("duplicate name", func(t *testing.T) {
		repository.EXPECT().Create(gomock.Any(), gomock.Any()).Return(domain.ErrConflict)

		result, err := uc.Create(context.Background(), tCreate)

		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.Nil(t, result)
	})
}

func TestTourUsecase_Update(t *testing.T) {
	controller := gomock.NewController(t)
	defer controller.Finish()

	repository := mock.NewMockTourRepository(controller)
	uc := usecase.NewTourUsecase(repository, 10*time.Second, tracer)

	t.Run("renaming refreshes the slug", func(t *testing.T) {
		tTour := tests.NewTour()
		repository.EXPECT().GetByID(gomock.Any(), tTour.ID).Return(tTour, nil)
		repository.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)

		result, err := uc.Update(context.Background(), tTour.ID.Hex(), domain.UpdateTour{
			Name: tests.StringPointer("The Mountain Biker"),
		})

		require.NoError(t, err)
		assert.Equal(t, "The Mountain Biker", result.Name)
		assert.Equal(t, "the-mountain-biker", result.Slug)
	})

	t.Run("discount above price is rejected", func(t *testing.T) {
		tTour := tests.NewTour()
		repository.EXPECT().GetByID(gomock.Any(), tTour.ID).Return(tTour, nil)

		result, err := uc.Update(context.Background(), tTour.ID.Hex(), domain.UpdateTour{
			PriceDiscount: tests.FloatPointer(tTour.Price + 1),
		})

		assert.ErrorIs(t, err, domain.ErrBadParamInput)
		assert.Nil(t, result)
	})

	t.Run("not found", func(t *testing.T) {
		tTour := tests.NewTour()
		repository.EXPECT().GetByID(gomock.Any(), tTour.ID).Return(nil, domain.ErrNotFound)

		result, err := uc.Update(context.Background(), tTour.ID.Hex(), domain.UpdateTour{})

		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Nil(t, result)
	})
}

func TestTourUsecase_FetchWithin(t *testing.T) {
	controller := gomock.NewController(t)
	defer controller.Finish()

	tTour := tests.NewTour()
	repository := mock.NewMockTourRepository(controller)
	uc := usecase.NewTourUsecase(repository, 10*time.Second, tracer)

	t.Run("miles convert to radians", func(t *testing.T) {
		repository.EXPECT().
			FetchWithin(gomock.Any(), 51.4, -116.2, 200/3963.2).
			Return([]*domain.Tour{tTour}, nil)

		result, err := uc.FetchWithin(context.Background(), 200, 51.4, -116.2, "mi")

		assert.NoError(t, err)
		assert.Len(t, result, 1)
	})

	t.Run("kilometers convert to radians", func(t *testing.T) {
		var radius float64
		repository.EXPECT().
			FetchWithin(gomock.Any(), 51.4, -116.2, gomock.Any()).
			DoAndReturn(func(_ context.Context, _, _, r float64) ([]*domain.Tour, error) {
				radius = r
				return []*domain.Tour{tTour}, nil
			})

		result, err := uc.FetchWithin(context.Background(), 200, 51.4, -116.2, "km")

		assert.NoError(t, err)
		assert.Len(t, result, 1)
		assert.InDelta(t, 200/6378.1, radius, 1e-12)
	})

	t.Run("unknown unit", func(t *testing.T) {
		result, err := uc.FetchWithin(context.Background(), 200, 51.4, -116.2, "furlong")
		assert.ErrorIs(t, err, domain.ErrBadParamInput)
		assert.Nil(t, result)
	})

	t.Run("non positive distance", func(t *testing.T) {
		result, err := uc.FetchWithin(context.Background(), 0, 51.4, -116.2, "mi")
		assert.ErrorIs(t, err, domain.ErrBadParamInput)
		assert.Nil(t, result)
	})
}

func TestTourUsecase_MonthlyPlan(t *testing.T) {
	controller := gomock.NewController(t)
	defer controller.Finish()

	repository := mock.NewMockTourRepository(controller)
	uc := usecase.NewTourUsecase(repository, 10*time.Second, tracer)

	t.Run("success", func(t *testing.T) {
		plan := []domain.MonthlyPlanEntry{{Month: 4, NumTourStarts: 2, Tours: []string{"The Forest Hiker"}}}
		repository.EXPECT().MonthlyPlan(gomock.Any(), 2026).Return(plan, nil)

		result, err := uc.MonthlyPlan(context.Background(), 2026)

		assert.NoError(t, err)
		assert.Equal(t, plan, result)
	})

	t.Run("year out of range", func(t *testing.T) {
		result, err := uc.MonthlyPlan(context.Background(), 123)
		assert.ErrorIs(t, err, domain.ErrBadParamInput)
		assert.Nil(t, result)
	})
}
