package repository

import (
	"context"
	"fmt"
	"net/url"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/E-Bousk/natours/domain"
	"github.com/E-Bousk/natours/store"
)

type mongoReviewRepository struct {
	Conn   *mongo.Database
	logger *zap.Logger
	tracer trace.Tracer
}

// NewMongoReviewRepository will create an object that represent the domain.ReviewRepository interface
func NewMongoReviewRepository(c *mongo.Client, db string, logger *zap.Logger, tracer trace.Tracer) domain.ReviewRepository {
	return &mongoReviewRepository{
		Conn:   c.Database(db),
		logger: logger,
		tracer: tracer,
	}
}

// authorStages joins the name and photo of the review's user into the
// author field
func authorStages() []bson.D {
	return []bson.D{
		{primitive.E{Key: "$lookup", Value: bson.D{
			primitive.E{Key: "from", Value: store.UserCollection},
			primitive.E{Key: "localField", Value: "user"},
			primitive.E{Key: "foreignField", Value: "_id"},
			primitive.E{Key: "as", Value: "author"},
		}}},
		{primitive.E{Key: "$unwind", Value: bson.D{
			primitive.E{Key: "path", Value: "$author"},
			primitive.E{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
		{primitive.E{Key: "$addFields", Value: bson.D{
			primitive.E{Key: "author", Value: bson.D{
				primitive.E{Key: "name", Value: "$author.name"},
				primitive.E{Key: "photo", Value: "$author.photo"},
			}},
		}}},
	}
}

func (m *mongoReviewRepository) fetch(ctx context.Context, command interface{}) ([]*domain.Review, error) {
	ctx, span := m.tracer.Start(ctx, "repository fetch")
	defer span.End()

	cur, err := m.Conn.RunCommandCursor(ctx, command)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("can't execute command: %w", err)
	}

	defer func(ctx context.Context) {
		err = cur.Close(ctx)
		if err != nil {
			m.logger.Error("can't close cursor: ", zap.Error(err))
		}
	}(ctx)

	result := make([]*domain.Review, 0)

	for cur.Next(ctx) {
		elem := new(domain.Review)
		if err = cur.Decode(elem); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("can't unmarshal document into Review: %w", err)
		}

		result = append(result, elem)
	}

	if err = cur.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("review cursor error: %w", err)
	}

	return result, nil
}

func (m *mongoReviewRepository) Fetch(ctx context.Context, params url.Values, base bson.D) ([]*domain.Review, error) {
	ctx, span := m.tracer.Start(
		ctx,
		"repository Fetch",
	)
	defer span.End()

	pipeline := store.NewFeatures(params).
		Filter(base).
		Sort().
		LimitFields().
		Paginate().
		Pipeline()
	pipeline = append(pipeline, authorStages()...)

	list, err := m.fetch(ctx, store.AggregateCommand(store.ReviewCollection, pipeline))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("review fetch error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	return list, nil
}

func (m *mongoReviewRepository) Count(ctx context.Context, params url.Values, base bson.D) (int64, error) {
	ctx, span := m.tracer.Start(
		ctx,
		"repository Count",
	)
	defer span.End()

	command := store.NewFeatures(params).
		Filter(base).
		CountCommand(store.ReviewCollection)

	res := m.Conn.RunCommand(ctx, command)
	if res.Err() != nil {
		span.RecordError(res.Err())
		return 0, fmt.Errorf("review count error: %w: %s", domain.ErrInternalServerError, res.Err().Error())
	}

	count := struct {
		N int64 `bson:"n"`
	}{}
	if err := res.Decode(&count); err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("can't unmarshal count result: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	return count.N, nil
}

func (m *mongoReviewRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Review, error) {
	ctx, span := m.tracer.Start(
		ctx,
		"repository GetByID",
		trace.WithAttributes(
			attribute.String("reviewid", id.Hex())),
	)
	defer span.End()

	pipeline := []bson.D{
		{primitive.E{Key: "$match", Value: bson.D{primitive.E{Key: "_id", Value: id}}}},
	}
	pipeline = append(pipeline, authorStages()...)

	list, err := m.fetch(ctx, store.AggregateCommand(store.ReviewCollection, pipeline))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("review get error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	if len(list) == 0 {
		span.RecordError(domain.ErrNotFound)
		return nil, fmt.Errorf("review was not found: %w", domain.ErrNotFound)
	}

	return list[0], nil
}

func (m *mongoReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	ctx, span := m.tracer.Start(
		ctx,
		"repository Create",
		trace.WithAttributes(
			attribute.String("reviewid", review.ID.Hex())),
	)
	defer span.End()

	_, err := m.Conn.Collection(store.ReviewCollection).InsertOne(ctx, review)
	if mongo.IsDuplicateKeyError(err) {
		span.RecordError(err)
		return fmt.Errorf("you already reviewed this tour: %w", domain.ErrConflict)
	}
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("review store error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	return nil
}

func (m *mongoReviewRepository) Update(ctx context.Context, review *domain.Review) error {
	ctx, span := m.tracer.Start(
		ctx,
		"repository Update",
		trace.WithAttributes(
			attribute.String("reviewid", review.ID.Hex())),
	)
	defer span.End()

	filter := bson.D{
		primitive.E{Key: "_id", Value: review.ID},
	}

	// the joined author never goes back to disk
	review.Author = nil

	doc, err := store.StructToDoc(review)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("can't convert Review to bson.D: %w, %s", domain.ErrInternalServerError, err.Error())
	}
	update := bson.D{primitive.E{Key: "$set", Value: doc}}

	updRes, err := m.Conn.Collection(store.ReviewCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("review update error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	if updRes.MatchedCount == 0 {
		err = fmt.Errorf("review was not updated: %w", domain.ErrNoAffected)
		span.RecordError(err)
		return err
	}

	return nil
}

func (m *mongoReviewRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, span := m.tracer.Start(
		ctx,
		"repository Delete",
		trace.WithAttributes(
			attribute.String("reviewid", id.Hex())),
	)
	defer span.End()

	filter := bson.D{
		primitive.E{Key: "_id", Value: id},
	}

	delRes, err := m.Conn.Collection(store.ReviewCollection).DeleteOne(ctx, filter)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("review delete error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	if delRes.DeletedCount == 0 {
		err = fmt.Errorf("review was not deleted: %w", domain.ErrNoAffected)
		span.RecordError(err)
		return err
	}

	return nil
}

// RatingStats aggregates the rating count and average of one tour. A tour
// without reviews yields a nil result, not an error.
func (m *mongoReviewRepository) RatingStats(ctx context.Context, tourID primitive.ObjectID) (*domain.RatingStats, error) {
	ctx, span := m.tracer.Start(
		ctx,
		"repository RatingStats",
		trace.WithAttributes(
			attribute.String("tourid", tourID.Hex())),
	)
	defer span.End()

	pipeline := []bson.D{
		{primitive.E{Key: "$match", Value: bson.D{primitive.E{Key: "tour", Value: tourID}}}},
		{primitive.E{Key: "$group", Value: bson.D{
			primitive.E{Key: "_id", Value: "$tour"},
			primitive.E{Key: "num_rating", Value: bson.D{primitive.E{Key: "$sum", Value: 1}}},
			primitive.E{Key: "avg_rating", Value: bson.D{primitive.E{Key: "$avg", Value: "$rating"}}},
		}}},
	}

	cur, err := m.Conn.RunCommandCursor(ctx, store.AggregateCommand(store.ReviewCollection, pipeline))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("rating stats error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	stats := make([]*domain.RatingStats, 0, 1)
	if err = cur.All(ctx, &stats); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("can't unmarshal rating stats: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	if len(stats) == 0 {
		return nil, nil
	}

	return stats[0], nil
}
