package repository_test

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/E-Bousk/natours/domain"
	"github.com/E-Bousk/natours/review/repository"
	"github.com/E-Bousk/natours/tests"
)

var tracer = sdktrace.NewTracerProvider().Tracer("")
var noopCtx = context.Background()

const tableName = "natours.review"

func TestMongoReviewRepository_Fetch(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()
	tReview := tests.NewReview()
	tReviewBsonD := tests.NewReviewBsonD()

	mt.Run("success", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(1, tableName, mtest.FirstBatch, tReviewBsonD),
			mtest.CreateCursorResponse(0, tableName, mtest.NextBatch),
		)
		r := repository.NewMongoReviewRepository(mt.Client, mt.DB.Name(), zap.NewNop(), tracer)

		result, err := r.Fetch(noopCtx, url.Values{}, nil)

		require.NoError(mt, err)
		require.Len(mt, result, 1)
		assert.EqualValues(t, tReview, result[0])
	})

	mt.Run("server error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   1,
			Code:    123,
			Message: "server error",
		}))
		r := repository.NewMongoReviewRepository(mt.Client, mt.DB.Name(), zap.NewNop(), tracer)

		result, err := r.Fetch(noopCtx, url.Values{}, nil)

		assert.Nil(mt, result)
		assert.ErrorIs(mt, err, domain.ErrInternalServerError)
	})
}

func TestMongoReviewRepository_GetByID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()
	tReview := tests.NewReview()
	tReviewBsonD := tests.NewReviewBsonD()

	mt.Run("not exists", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(1, tableName, mtest.FirstBatch),
			mtest.CreateCursorResponse(0, tableName, mtest.NextBatch),
		)
		r := repository.NewMongoReviewRepository(mt.Client, mt.DB.Name(), zap.NewNop(), tracer)

		result, err := r.GetByID(noopCtx, tReview.ID)

		assert.Nil(mt, result)
		assert.ErrorIs(mt, err, domain.ErrNotFound)
	})

	mt.Run("success", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(1, tableName, mtest.FirstBatch, tReviewBsonD),
			mtest.CreateCursorResponse(0, tableName, mtest.NextBatch),
		)
		r := repository.NewMongoReviewRepository(mt.Client, mt.DB.Name(), zap.NewNop(), tracer)

		result, err := r.GetByID(noopCtx, tReview.ID)

		assert.NoError(mt, err)
		assert.EqualValues(t, tReview, result)
	})
}

func TestMongoReviewRepository_Create(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()
	tReview := tests.NewReview()

	mt.Run("success", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		r := repository.NewMongoReviewRepository(mt.Client, mt.DB.Name(), zap.NewNop(), tracer)

		err := r.Create(noopCtx, tReview)

		require.NoError(mt, err)
	})

	mt.Run("second review on same tour", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   1,
			Code:    11000,
			Message: "duplicate key error",
		}))
		r := repository.NewMongoReviewRepository(mt.Client, mt.DB.Name(), zap.NewNop(), tracer)

		err := r.Create(noopCtx, tReview)

		assert.ErrorIs(mt, err, domain.ErrConflict)
	})
}

func TestMongoReviewRepository_Update(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()
	tReview := tests.NewReview()

	mt.Run("success", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "n", Value: 1},
			{Key: "nModified", Value: 1},
		})
		r := repository.NewMongoReviewRepository(mt.Client, mt.DB.Name(), zap.NewNop(), tracer)

		err := r.Update(noopCtx, tReview)

		assert.NoError(mt, err)
	})

	mt.Run("not found", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "n", Value: 0},
			{Key: "nModified", Value: 0},
		})
		r := repository.NewMongoReviewRepository(mt.Client, mt.DB.Name(), zap.NewNop(), tracer)

		err := r.Update(noopCtx, tReview)

		assert.ErrorIs(mt, err, domain.ErrNoAffected)
	})
}

func TestMongoReviewRepository_Delete(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()
	tReview := tests.NewReview()

	mt.Run("success", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "acknowledged", Value: true},
			{Key: "n", Value: 1},
		})
		r := repository.NewMongoReviewRepository(mt.Client, mt.DB.Name(), zap.NewNop(), tracer)

		err := r.Delete(noopCtx, tReview.ID)

		assert.NoError(mt, err)
	})

	mt.Run("not found", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "acknowledged", Value: true},
			{Key: "n", Value: 0},
		})
		r := repository.NewMongoReviewRepository(mt.Client, mt.DB.Name(), zap.NewNop(), tracer)

		err := r.Delete(noopCtx, tReview.ID)

		assert.ErrorIs(mt, err, domain.ErrNoAffected)
	})
}

func TestMongoReviewRepository_RatingStats(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()
	tReview := tests.NewReview()

	mt.Run("success", func(mt *mtest.T) {
		statsDoc := bson.D{
			{Key: "_id", Value: tReview.Tour},
			{Key: "num_rating", Value: 3},
			{Key: "avg_rating", Value: 4.0},
		}
		mt.AddMockResponses(
			mtest.CreateCursorResponse(1, tableName, mtest.FirstBatch, statsDoc),
			mtest.CreateCursorResponse(0, tableName, mtest.NextBatch),
		)
		r := repository.NewMongoReviewRepository(mt.Client, mt.DB.Name(), zap.NewNop(), tracer)

		stats, err := r.RatingStats(noopCtx, tReview.Tour)

		require.NoError(mt, err)
		require.NotNil(mt, stats)
		assert.Equal(mt, 3, stats.NumRating)
		assert.Equal(mt, 4.0, stats.AvgRating)
	})

	mt.Run("no reviews left", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(1, tableName, mtest.FirstBatch),
			mtest.CreateCursorResponse(0, tableName, mtest.NextBatch),
		)
		r := repository.NewMongoReviewRepository(mt.Client, mt.DB.Name(), zap.NewNop(), tracer)

		stats, err := r.RatingStats(noopCtx, tReview.Tour)

		assert.NoError(mt, err)
		assert.Nil(mt, stats)
	})
}
