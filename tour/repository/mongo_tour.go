package repository

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/E-Bousk/natours/domain"
	"github.com/E-Bousk/natours/store"
)

// excludeSecret is the standing predicate composed into every tour read and
// aggregation: secret tours never show up
var excludeSecret = primitive.E{Key: "secret_tour", Value: bson.D{primitive.E{Key: "$ne", Value: true}}}

type mongoTourRepository struct {
	Conn   *mongo.Database
	logger *zap.Logger
	tracer trace.Tracer
}

// NewMongoTourRepository will create an object that represent the domain.TourRepository interface
func NewMongoTourRepository(c *mongo.Client, db string, logger *zap.Logger, tracer trace.Tracer) domain.TourRepository {
	return &mongoTourRepository{
		Conn:   c.Database(db),
		logger: logger,
		tracer: tracer,
	}
}

func (m *mongoTourRepository) fetch(ctx context.Context, command interface{}) ([]*domain.Tour, error) {
	ctx, span := m.tracer.Start(
		ctx,
		"repository fetch",
		trace.WithSpanKind(trace.SpanKindServer),
	)
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

	result := make([]*domain.Tour, 0)

	for cur.Next(ctx) {
		elem := new(domain.Tour)
		if err = cur.Decode(elem); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("can't unmarshal document into Tour: %w", err)
		}

		if elem.Duration > 0 {
			elem.DurationWeeks = float64(elem.Duration) / 7
		}

		result = append(result, elem)
	}

	if err = cur.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("tour cursor error: %w", err)
	}

	return result, nil
}

func (m *mongoTourRepository) Fetch(ctx context.Context, params url.Values, base bson.D) ([]*domain.Tour, error) {
	ctx, span := m.tracer.Start(
		ctx,
		"repository Fetch",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	command := store.NewFeatures(params).
		Filter(append(bson.D{excludeSecret}, base...)).
		Sort().
		LimitFields().
		Paginate().
		FindCommand(store.TourCollection)

	list, err := m.fetch(ctx, command)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("tour fetch error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	return list, nil
}

func (m *mongoTourRepository) Count(ctx context.Context, params url.Values, base bson.D) (int64, error) {
	ctx, span := m.tracer.Start(
		ctx,
		"repository Count",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	command := store.NewFeatures(params).
		Filter(append(bson.D{excludeSecret}, base...)).
		CountCommand(store.TourCollection)

	var res struct {
		N int64 `bson:"n"`
	}
	if err := m.Conn.RunCommand(ctx, command).Decode(&res); err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("tour count error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	return res.N, nil
}

func (m *mongoTourRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Tour, error) {
	ctx, span := m.tracer.Start(
		ctx,
		"repository GetByID",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("tourid", id.Hex())),
	)
	defer span.End()

	pipeline := bson.A{
		bson.D{primitive.E{Key: "$match", Value: bson.D{
			primitive.E{Key: "_id", Value: id},
			excludeSecret,
		}}},
		bson.D{primitive.E{Key: "$lookup", Value: bson.D{
			primitive.E{Key: "from", Value: store.ReviewCollection},
			primitive.E{Key: "localField", Value: "_id"},
			primitive.E{Key: "foreignField", Value: "tour"},
			primitive.E{Key: "as", Value: "reviews"},
		}}},
	}
	command := bson.D{
		primitive.E{Key: "aggregate", Value: store.TourCollection},
		primitive.E{Key: "pipeline", Value: pipeline},
		primitive.E{Key: "cursor", Value: bson.D{}},
	}

	list, err := m.fetch(ctx, command)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("tour get error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	if len(list) == 0 {
		span.RecordError(domain.ErrNotFound)
		return nil, fmt.Errorf("tour was not found: %w", domain.ErrNotFound)
	}

	return list[0], nil
}

func (m *mongoTourRepository) Create(ctx context.Context, tour *domain.Tour) error {
	ctx, span := m.tracer.Start(
		ctx,
		"repository Create",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("tourid", tour.ID.Hex())),
	)
	defer span.End()

	_, err := m.Conn.Collection(store.TourCollection).InsertOne(ctx, tour)
	if mongo.IsDuplicateKeyError(err) {
		span.RecordError(err)
		return fmt.Errorf("tour with name %q already exists: %w", tour.Name, domain.ErrConflict)
	}
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("tour store error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	return nil
}

func (m *mongoTourRepository) Update(ctx context.Context, tour *domain.Tour) error {
	ctx, span := m.tracer.Start(
		ctx,
		"repository Update",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("tourid", tour.ID.Hex())),
	)
	defer span.End()

	filter := bson.D{
		primitive.E{Key: "_id", Value: tour.ID},
	}

	doc, err := store.StructToDoc(tour)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("can't convert Tour to bson.D: %w, %s", domain.ErrInternalServerError, err.Error())
	}
	update := bson.D{primitive.E{Key: "$set", Value: doc}}

	updRes, err := m.Conn.Collection(store.TourCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("tour update error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	if updRes.MatchedCount == 0 {
		err = fmt.Errorf("tour was not updated: %w", domain.ErrNoAffected)
		span.RecordError(err)
		return err
	}

	return nil
}

func (m *mongoTourRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, span := m.tracer.Start(
		ctx,
		"repository Delete",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("tourid", id.Hex())),
	)
	defer span.End()

	filter := bson.D{
		primitive.E{Key: "_id", Value: id},
	}

	delRes, err := m.Conn.Collection(store.TourCollection).DeleteOne(ctx, filter)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("tour delete error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	if delRes.DeletedCount == 0 {
		err = fmt.Errorf("tour was not deleted: %w", domain.ErrNoAffected)
		span.RecordError(err)
		return err
	}

	return nil
}

func (m *mongoTourRepository) Stats(ctx context.Context) ([]domain.TourStats, error) {
	ctx, span := m.tracer.Start(
		ctx,
		"repository Stats",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	pipeline := bson.A{
		bson.D{primitive.E{Key: "$match", Value: bson.D{
			excludeSecret,
			primitive.E{Key: "ratings_average", Value: bson.D{primitive.E{Key: "$gte", Value: 4.5}}},
		}}},
		bson.D{primitive.E{Key: "$group", Value: bson.D{
			primitive.E{Key: "_id", Value: "$difficulty"},
			primitive.E{Key: "num_tours", Value: bson.D{primitive.E{Key: "$sum", Value: 1}}},
			primitive.E{Key: "num_ratings", Value: bson.D{primitive.E{Key: "$sum", Value: "$ratings_quantity"}}},
			primitive.E{Key: "avg_rating", Value: bson.D{primitive.E{Key: "$avg", Value: "$ratings_average"}}},
			primitive.E{Key: "avg_price", Value: bson.D{primitive.E{Key: "$avg", Value: "$price"}}},
			primitive.E{Key: "min_price", Value: bson.D{primitive.E{Key: "$min", Value: "$price"}}},
			primitive.E{Key: "max_price", Value: bson.D{primitive.E{Key: "$max", Value: "$price"}}},
		}}},
		bson.D{primitive.E{Key: "$sort", Value: bson.D{primitive.E{Key: "avg_price", Value: 1}}}},
	}
	command := bson.D{
		primitive.E{Key: "aggregate", Value: store.TourCollection},
		primitive.E{Key: "pipeline", Value: pipeline},
		primitive.E{Key: "cursor", Value: bson.D{}},
	}

	cur, err := m.Conn.RunCommandCursor(ctx, command)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("tour stats error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	result := make([]domain.TourStats, 0)
	if err = cur.All(ctx, &result); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("can't unmarshal tour stats: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	return result, nil
}

func (m *mongoTourRepository) MonthlyPlan(ctx context.Context, year int) ([]domain.MonthlyPlanEntry, error) {
	ctx, span := m.tracer.Start(
		ctx,
		"repository MonthlyPlan",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.Int("year", year)),
	)
	defer span.End()

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC)

	pipeline := bson.A{
		bson.D{primitive.E{Key: "$match", Value: bson.D{excludeSecret}}},
		bson.D{primitive.E{Key: "$unwind", Value: "$start_dates"}},
		bson.D{primitive.E{Key: "$match", Value: bson.D{
			primitive.E{Key: "start_dates", Value: bson.D{
				primitive.E{Key: "$gte", Value: from},
				primitive.E{Key: "$lte", Value: to},
			}},
		}}},
		bson.D{primitive.E{Key: "$group", Value: bson.D{
			primitive.E{Key: "_id", Value: bson.D{primitive.E{Key: "$month", Value: "$start_dates"}}},
			primitive.E{Key: "num_tour_starts", Value: bson.D{primitive.E{Key: "$sum", Value: 1}}},
			primitive.E{Key: "tours", Value: bson.D{primitive.E{Key: "$push", Value: "$name"}}},
		}}},
		bson.D{primitive.E{Key: "$sort", Value: bson.D{primitive.E{Key: "num_tour_starts", Value: -1}}}},
		bson.D{primitive.E{Key: "$limit", Value: 12}},
	}
	command := bson.D{
		primitive.E{Key: "aggregate", Value: store.TourCollection},
		primitive.E{Key: "pipeline", Value: pipeline},
		primitive.E{Key: "cursor", Value: bson.D{}},
	}

	cur, err := m.Conn.RunCommandCursor(ctx, command)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("monthly plan error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	result := make([]domain.MonthlyPlanEntry, 0)
	if err = cur.All(ctx, &result); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("can't unmarshal monthly plan: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	return result, nil
}

func (m *mongoTourRepository) FetchWithin(ctx context.Context, lat, lng, radius float64) ([]*domain.Tour, error) {
	ctx, span := m.tracer.Start(
		ctx,
		"repository FetchWithin",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	command := bson.D{
		primitive.E{Key: "find", Value: store.TourCollection},
		primitive.E{Key: "filter", Value: bson.D{
			excludeSecret,
			primitive.E{Key: "start_location", Value: bson.D{
				primitive.E{Key: "$geoWithin", Value: bson.D{
					primitive.E{Key: "$centerSphere", Value: bson.A{bson.A{lng, lat}, radius}},
				}},
			}},
		}},
	}

	list, err := m.fetch(ctx, command)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("tours within error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	return list, nil
}

func (m *mongoTourRepository) UpdateRatings(ctx context.Context, id primitive.ObjectID, quantity int, average float64) error {
	ctx, span := m.tracer.Start(
		ctx,
		"repository UpdateRatings",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("tourid", id.Hex())),
	)
	defer span.End()

	filter := bson.D{
		primitive.E{Key: "_id", Value: id},
	}
	update := bson.D{primitive.E{Key: "$set", Value: bson.D{
		primitive.E{Key: "ratings_quantity", Value: quantity},
		primitive.E{Key: "ratings_average", Value: average},
	}}}

	updRes, err := m.Conn.Collection(store.TourCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("tour ratings update error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	if updRes.MatchedCount == 0 {
		err = fmt.Errorf("tour ratings were not updated: %w", domain.ErrNoAffected)
		span.RecordError(err)
		return err
	}

	return nil
}
