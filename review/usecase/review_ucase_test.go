package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/E-Bousk/natours/domain"
	reviewMock "github.com/E-Bousk/natours/review/mock"
	"github.com/E-Bousk/natours/review/usecase"
	"github.com/E-Bousk/natours/tests"
	tourMock "github.com/E-Bousk/natours/tour/mock"
	"github.com/E-Bousk/natours/web/auth"
)

var tracer = sdktrace.NewTracerProvider().Tracer("")

func newUsecase(r *reviewMock.MockReviewRepository, t *tourMock.MockTourRepository) domain.ReviewUsecase {
	return usecase.NewReviewUsecase(r, t, 10*time.Second, zap.NewNop(), tracer)
}

func userClaims(subject string) *auth.Claims {
	return auth.NewClaims(subject, auth.RoleUser, time.Now(), time.Hour)
}

func TestReviewUsecase_Create(t *testing.T) {
	controller := gomock.NewController(t)
	defer controller.Finish()

	tReview := tests.NewReview()
	tTour := tests.NewTour()
	reviewRepo := reviewMock.NewMockReviewRepository(controller)
	tourRepo := tourMock.NewMockTourRepository(controller)
	uc := newUsecase(reviewRepo, tourRepo)

	claims := userClaims(tReview.User.Hex())

	t.Run("success recomputes the tour rating", func(t *testing.T) {
		tourRepo.EXPECT().GetByID(gomock.Any(), tTour.ID).Return(tTour, nil)
		reviewRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		reviewRepo.EXPECT().RatingStats(gomock.Any(), tTour.ID).
			Return(&domain.RatingStats{NumRating: 3, AvgRating: 4}, nil)
		tourRepo.EXPECT().UpdateRatings(gomock.Any(), tTour.ID, 3, float64(4)).Return(nil)

		result, err := uc.Create(context.Background(), tests.NewCreateReview(), claims)

		require.NoError(t, err)
		assert.Equal(t, tReview.User, result.User)
		assert.Equal(t, tTour.ID, result.Tour)
	})

	t.Run("tour does not exist", func(t *testing.T) {
		tourRepo.EXPECT().GetByID(gomock.Any(), tTour.ID).Return(nil, domain.ErrNotFound)

		result, err := uc.Create(context.Background(), tests.NewCreateReview(), claims)

		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Nil(t, result)
	})

	t.Run("second review of the same tour", func(t *testing.T) {
		tourRepo.EXPECT().GetByID(gomock.Any(), tTour.ID).Return(tTour, nil)
		reviewRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(domain.ErrConflict)

		result, err := uc.Create(context.Background(), tests.NewCreateReview(), claims)

		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.Nil(t, result)
	})
}

func TestReviewUsecase_Update(t *testing.T) {
	controller := gomock.NewController(t)
	defer controller.Finish()

	reviewRepo := reviewMock.NewMockReviewRepository(controller)
	tourRepo := tourMock.NewMockTourRepository(controller)
	uc := newUsecase(reviewRepo, tourRepo)

	t.Run("owner can update, rating gets recomputed", func(t *testing.T) {
		tReview := tests.NewReview()
		reviewRepo.EXPECT().GetByID(gomock.Any(), tReview.ID).Return(tReview, nil)
		reviewRepo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
		reviewRepo.EXPECT().RatingStats(gomock.Any(), tReview.Tour).
			Return(&domain.RatingStats{NumRating: 1, AvgRating: 3}, nil)
		tourRepo.EXPECT().UpdateRatings(gomock.Any(), tReview.Tour, 1, float64(3)).Return(nil)

		result, err := uc.Update(context.Background(), tReview.ID.Hex(), domain.UpdateReview{
			Rating: tests.FloatPointer(3),
		}, userClaims(tReview.User.Hex()))

		require.NoError(t, err)
		assert.Equal(t, float64(3), result.Rating)
	})

	t.Run("stranger is rejected", func(t *testing.T) {
		tReview := tests.NewReview()
		reviewRepo.EXPECT().GetByID(gomock.Any(), tReview.ID).Return(tReview, nil)

		result, err := uc.Update(context.Background(), tReview.ID.Hex(), domain.UpdateReview{
			Rating: tests.FloatPointer(1),
		}, userClaims("507f191e810c19729de860ff"))

		assert.ErrorIs(t, err, domain.ErrForbidden)
		assert.Nil(t, result)
	})

	t.Run("admin may touch any review", func(t *testing.T) {
		tReview := tests.NewReview()
		admin := auth.NewClaims("507f191e810c19729de860eb", auth.RoleAdmin, time.Now(), time.Hour)
		reviewRepo.EXPECT().GetByID(gomock.Any(), tReview.ID).Return(tReview, nil)
		reviewRepo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
		reviewRepo.EXPECT().RatingStats(gomock.Any(), tReview.Tour).
			Return(&domain.RatingStats{NumRating: 1, AvgRating: 2}, nil)
		tourRepo.EXPECT().UpdateRatings(gomock.Any(), tReview.Tour, 1, float64(2)).Return(nil)

		result, err := uc.Update(context.Background(), tReview.ID.Hex(), domain.UpdateReview{
			Rating: tests.FloatPointer(2),
		}, admin)

		require.NoError(t, err)
		assert.Equal(t, float64(2), result.Rating)
	})
}

func TestReviewUsecase_Delete(t *testing.T) {
	controller := gomock.NewController(t)
	defer controller.Finish()

	reviewRepo := reviewMock.NewMockReviewRepository(controller)
	tourRepo := tourMock.NewMockTourRepository(controller)
	uc := newUsecase(reviewRepo, tourRepo)

	t.Run("last review returns the tour to the defaults", func(t *testing.T) {
		tReview := tests.NewReview()
		reviewRepo.EXPECT().GetByID(gomock.Any(), tReview.ID).Return(tReview, nil)
		reviewRepo.EXPECT().Delete(gomock.Any(), tReview.ID).Return(nil)
		reviewRepo.EXPECT().RatingStats(gomock.Any(), tReview.Tour).Return(nil, nil)
		tourRepo.EXPECT().UpdateRatings(gomock.Any(), tReview.Tour, 0, domain.DefaultRatingsAverage).Return(nil)

		err := uc.Delete(context.Background(), tReview.ID.Hex(), userClaims(tReview.User.Hex()))

		assert.NoError(t, err)
	})

	t.Run("stranger is rejected", func(t *testing.T) {
		tReview := tests.NewReview()
		reviewRepo.EXPECT().GetByID(gomock.Any(), tReview.ID).Return(tReview, nil)

		err := uc.Delete(context.Background(), tReview.ID.Hex(), userClaims("507f191e810c19729de860ff"))

		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestReviewUsecase_Fetch(t *testing.T) {
	controller := gomock.NewController(t)
	defer controller.Finish()

	reviewRepo := reviewMock.NewMockReviewRepository(controller)
	tourRepo := tourMock.NewMockTourRepository(controller)
	uc := newUsecase(reviewRepo, tourRepo)

	t.Run("nested route scopes by tour", func(t *testing.T) {
		tReview := tests.NewReview()
		reviewRepo.EXPECT().Fetch(gomock.Any(), gomock.Any(), gomock.Any()).
			Return([]*domain.Review{tReview}, nil)

		result, err := uc.Fetch(context.Background(), nil, tReview.Tour.Hex())

		assert.NoError(t, err)
		assert.Len(t, result, 1)
	})

	t.Run("bad tour id", func(t *testing.T) {
		result, err := uc.Fetch(context.Background(), nil, "not-an-id")

		assert.ErrorIs(t, err, domain.ErrBadParamInput)
		assert.Nil(t, result)
	})
}
