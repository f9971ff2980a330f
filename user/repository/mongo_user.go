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

// excludeInactive is the standing predicate composed into every user read:
// deactivated accounts stay stored but never show up
var excludeInactive = primitive.E{Key: "active", Value: bson.D{primitive.E{Key: "$ne", Value: false}}}

type mongoUserRepository struct {
	Conn   *mongo.Database
	logger *zap.Logger
	tracer trace.Tracer
}

// NewMongoUserRepository will create an object that represent the domain.UserRepository interface
func NewMongoUserRepository(c *mongo.Client, db string, logger *zap.Logger, tracer trace.Tracer) domain.UserRepository {
	return &mongoUserRepository{
		Conn:   c.Database(db),
		logger: logger,
		tracer: tracer,
	}
}

func (m *mongoUserRepository) fetch(ctx context.Context, command interface{}) ([]*domain.User, error) {
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

	result := make([]*domain.User, 0)

	for cur.Next(ctx) {
		elem := new(domain.User)
		if err = cur.Decode(elem); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("can't unmarshal document into User: %w", err)
		}

		result = append(result, elem)
	}

	if err = cur.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("user cursor error: %w", err)
	}

	return result, nil
}

func (m *mongoUserRepository) Fetch(ctx context.Context, params url.Values) ([]*domain.User, error) {
	ctx, span := m.tracer.Start(
		ctx,
		"repository Fetch",
	)
	defer span.End()

	command := store.NewFeatures(params).
		Filter(bson.D{excludeInactive}).
		Sort().
		LimitFields().
		Paginate().
		FindCommand(store.UserCollection)

	list, err := m.fetch(ctx, command)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("user fetch error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	return list, nil
}

func (m *mongoUserRepository) Count(ctx context.Context, params url.Values) (int64, error) {
	ctx, span := m.tracer.Start(
		ctx,
		"repository Count",
	)
	defer span.End()

	command := store.NewFeatures(params).
		Filter(bson.D{excludeInactive}).
		CountCommand(store.UserCollection)

	var res struct {
		N int64 `bson:"n"`
	}
	if err := m.Conn.RunCommand(ctx, command).Decode(&res); err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("user count error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	return res.N, nil
}

func (m *mongoUserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	ctx, span := m.tracer.Start(
		ctx,
		"repository GetByID",
		trace.WithAttributes(
			attribute.String("userid", id.Hex())),
	)
	defer span.End()

	command := bson.D{
		primitive.E{Key: "find", Value: store.UserCollection},
		primitive.E{Key: "limit", Value: 1},
		primitive.E{Key: "filter", Value: bson.D{
			primitive.E{Key: "_id", Value: id},
			excludeInactive,
		}},
	}

	list, err := m.fetch(ctx, command)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("user get error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	if len(list) == 0 {
		span.RecordError(domain.ErrNotFound)
		return nil, fmt.Errorf("user was not found: %w", domain.ErrNotFound)
	}

	return list[0], nil
}

func (m *mongoUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := m.tracer.Start(
		ctx,
		"repository GetByEmail",
	)
	defer span.End()

	command := bson.D{
		primitive.E{Key: "find", Value: store.UserCollection},
		primitive.E{Key: "limit", Value: 1},
		primitive.E{Key: "filter", Value: bson.D{
			primitive.E{Key: "email", Value: email},
			excludeInactive,
		}},
	}

	list, err := m.fetch(ctx, command)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("user get error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	if len(list) == 0 {
		span.RecordError(domain.ErrNotFound)
		return nil, fmt.Errorf("user with email %s was not found: %w", email, domain.ErrNotFound)
	}

	span.SetAttributes(attribute.String("userid", list[0].ID.Hex()))

	return list[0], nil
}

func (m *mongoUserRepository) GetByResetToken(ctx context.Context, hashedToken string, now time.Time) (*domain.User, error) {
	ctx, span := m.tracer.Start(
		ctx,
		"repository GetByResetToken",
	)
	defer span.End()

	command := bson.D{
		primitive.E{Key: "find", Value: store.UserCollection},
		primitive.E{Key: "limit", Value: 1},
		primitive.E{Key: "filter", Value: bson.D{
			primitive.E{Key: "password_reset_token", Value: hashedToken},
			primitive.E{Key: "password_reset_expires", Value: bson.D{primitive.E{Key: "$gt", Value: now}}},
			excludeInactive,
		}},
	}

	list, err := m.fetch(ctx, command)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("user get error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	if len(list) == 0 {
		span.RecordError(domain.ErrNotFound)
		return nil, fmt.Errorf("no user holds this reset token: %w", domain.ErrNotFound)
	}

	span.SetAttributes(attribute.String("userid", list[0].ID.Hex()))

	return list[0], nil
}

func (m *mongoUserRepository) Create(ctx context.Context, user *domain.User) error {
	ctx, span := m.tracer.Start(
		ctx,
		"repository Create",
		trace.WithAttributes(
			attribute.String("userid", user.ID.Hex())),
	)
	defer span.End()

	_, err := m.Conn.Collection(store.UserCollection).InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		span.RecordError(err)
		return fmt.Errorf("user with email %s already exists: %w", user.Email, domain.ErrConflict)
	}
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("user store error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	return nil
}

// Update writes the whole document back. It is the only operation that can
// still reach a deactivated user, records are never filtered here.
func (m *mongoUserRepository) Update(ctx context.Context, user *domain.User) error {
	ctx, span := m.tracer.Start(
		ctx,
		"repository Update",
		trace.WithAttributes(
			attribute.String("userid", user.ID.Hex())),
	)
	defer span.End()

	filter := bson.D{
		primitive.E{Key: "_id", Value: user.ID},
	}

	doc, err := store.StructToDoc(user)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("can't convert User to bson.D: %w, %s", domain.ErrInternalServerError, err.Error())
	}
	update := bson.D{primitive.E{Key: "$set", Value: doc}}

	// a cleared reset token must be removed from the document, $set alone
	// would keep the old value around
	unset := bson.D{}
	if user.PasswordResetToken == "" {
		unset = append(unset, primitive.E{Key: "password_reset_token", Value: ""})
	}
	if user.PasswordResetExpires == nil {
		unset = append(unset, primitive.E{Key: "password_reset_expires", Value: ""})
	}
	if len(unset) > 0 {
		update = append(update, primitive.E{Key: "$unset", Value: unset})
	}

	updRes, err := m.Conn.Collection(store.UserCollection).UpdateOne(ctx, filter, update)
	if mongo.IsDuplicateKeyError(err) {
		span.RecordError(err)
		return fmt.Errorf("user with email %s already exists: %w", user.Email, domain.ErrConflict)
	}
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("user update error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	if updRes.MatchedCount == 0 {
		err = fmt.Errorf("user was not updated: %w", domain.ErrNoAffected)
		span.RecordError(err)
		return err
	}

	return nil
}

func (m *mongoUserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, span := m.tracer.Start(
		ctx,
		"repository Delete",
		trace.WithAttributes(
			attribute.String("userid", id.Hex())),
	)
	defer span.End()

	filter := bson.D{
		primitive.E{Key: "_id", Value: id},
	}

	delRes, err := m.Conn.Collection(store.UserCollection).DeleteOne(ctx, filter)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("user delete error: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	if delRes.DeletedCount == 0 {
		err = fmt.Errorf("user was not deleted: %w", domain.ErrNoAffected)
		span.RecordError(err)
		return err
	}

	return nil
}
