package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/E-Bousk/natours/domain"
	"github.com/E-Bousk/natours/store"
	"github.com/E-Bousk/natours/web/auth"
)

const (
	bcryptCost       = 12
	resetTokenExpiry = 10 * time.Minute
)

type userUsecase struct {
	userRepo       domain.UserRepository
	mailer         domain.Mailer
	tokenExpiry    time.Duration
	contextTimeout time.Duration
	logger         *zap.Logger
	tracer         trace.Tracer
}

// NewUserUsecase will create new an userUsecase object representation of domain.UserUsecase interface
func NewUserUsecase(u domain.UserRepository, mailer domain.Mailer, tokenExpiry, timeout time.Duration, logger *zap.Logger, tracer trace.Tracer) domain.UserUsecase {
	return &userUsecase{
		userRepo:       u,
		mailer:         mailer,
		tokenExpiry:    tokenExpiry,
		contextTimeout: timeout,
		logger:         logger,
		tracer:         tracer,
	}
}

func (uc *userUsecase) Fetch(c context.Context, params url.Values) ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(ctx, "usecase Fetch")
	defer span.End()

	if store.PageRequested(params) {
		total, err := uc.userRepo.Count(ctx, params)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if skip := store.SkipOf(params); skip > 0 && skip >= total {
			return nil, fmt.Errorf("this page does not exist: %w", domain.ErrBadParamInput)
		}
	}

	return uc.userRepo.Fetch(ctx, params)
}

func (uc *userUsecase) GetByID(c context.Context, id string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase GetByID",
		trace.WithAttributes(
			attribute.String("userid", id)),
	)
	defer span.End()

	userID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("wrong user id format: %w: %s", domain.ErrBadParamInput, err.Error())
	}

	return uc.userRepo.GetByID(ctx, userID)
}

func (uc *userUsecase) Signup(c context.Context, now time.Time, user domain.SignupUser) (*domain.User, *auth.Claims, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(ctx, "usecase Signup")
	defer span.End()

	hash, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcryptCost)
	if err != nil {
		span.RecordError(err)
		return nil, nil, fmt.Errorf("can't hash password: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	u := &domain.User{
		ID:             primitive.NewObjectID(),
		Name:           user.Name,
		Email:          strings.ToLower(user.Email),
		Role:           auth.RoleUser,
		HashedPassword: string(hash),
		Active:         true,
		CreatedAt:      now.Truncate(time.Millisecond).UTC(),
		UpdatedAt:      now.Truncate(time.Millisecond).UTC(),
	}

	err = uc.userRepo.Create(ctx, u)
	if err != nil {
		span.RecordError(err)
		return nil, nil, err
	}

	span.SetAttributes(attribute.String("userid", u.ID.Hex()))

	return u, auth.NewClaims(u.ID.Hex(), u.Role, now, uc.tokenExpiry), nil
}

func (uc *userUsecase) Login(c context.Context, now time.Time, email, password string) (*auth.Claims, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(ctx, "usecase Login")
	defer span.End()

	u, err := uc.userRepo.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		// an unknown email reads the same as a wrong password
		span.RecordError(err)
		return nil, fmt.Errorf("incorrect email or password: %w", domain.ErrAuthenticationFailure)
	}

	err = bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(password))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("incorrect email or password: %w", domain.ErrAuthenticationFailure)
	}

	span.SetAttributes(attribute.String("userid", u.ID.Hex()))

	return auth.NewClaims(u.ID.Hex(), u.Role, now, uc.tokenExpiry), nil
}

func (uc *userUsecase) UpdateMe(c context.Context, userID string, update domain.UpdateMe) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase UpdateMe",
		trace.WithAttributes(
			attribute.String("userid", userID)),
	)
	defer span.End()

	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("wrong user id format: %w: %s", domain.ErrBadParamInput, err.Error())
	}

	u, err := uc.userRepo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.Email != nil {
		u.Email = strings.ToLower(*update.Email)
	}
	if update.Photo != nil {
		u.Photo = *update.Photo
	}
	u.UpdatedAt = time.Now().Truncate(time.Millisecond).UTC()

	err = uc.userRepo.Update(ctx, u)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return u, nil
}

func (uc *userUsecase) UpdatePassword(c context.Context, now time.Time, userID string, update domain.UpdatePassword) (*auth.Claims, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase UpdatePassword",
		trace.WithAttributes(
			attribute.String("userid", userID)),
	)
	defer span.End()

	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("wrong user id format: %w: %s", domain.ErrBadParamInput, err.Error())
	}

	u, err := uc.userRepo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	err = bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(update.CurrentPassword))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("your current password is wrong: %w", domain.ErrAuthenticationFailure)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(update.Password), bcryptCost)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("can't hash password: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	changedAt := now.Truncate(time.Millisecond).UTC()
	u.HashedPassword = string(hash)
	u.PasswordChangedAt = &changedAt
	u.UpdatedAt = changedAt

	err = uc.userRepo.Update(ctx, u)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return auth.NewClaims(u.ID.Hex(), u.Role, now, uc.tokenExpiry), nil
}

func (uc *userUsecase) DeleteMe(c context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase DeleteMe",
		trace.WithAttributes(
			attribute.String("userid", userID)),
	)
	defer span.End()

	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("wrong user id format: %w: %s", domain.ErrBadParamInput, err.Error())
	}

	u, err := uc.userRepo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return err
	}

	u.Active = false
	u.UpdatedAt = time.Now().Truncate(time.Millisecond).UTC()

	return uc.userRepo.Update(ctx, u)
}

func (uc *userUsecase) ForgotPassword(c context.Context, email, resetURL string) error {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(ctx, "usecase ForgotPassword")
	defer span.End()

	u, err := uc.userRepo.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("there is no user with that email address: %w", domain.ErrNotFound)
	}

	rawToken, hashedToken, err := newResetToken()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("can't create reset token: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	expires := time.Now().Add(resetTokenExpiry).Truncate(time.Millisecond).UTC()
	u.PasswordResetToken = hashedToken
	u.PasswordResetExpires = &expires

	err = uc.userRepo.Update(ctx, u)
	if err != nil {
		span.RecordError(err)
		return err
	}

	body := fmt.Sprintf("Forgot your password? Submit a PATCH request with your new password "+
		"and password confirmation to: %s%s.\nIf you didn't forget your password, please ignore this email.",
		resetURL, rawToken)

	err = uc.mailer.Send(u.Email, "Your password reset token (valid for 10 min)", body)
	if err != nil {
		// roll back the stored token so the failed mail can't be replayed
		u.PasswordResetToken = ""
		u.PasswordResetExpires = nil
		if updErr := uc.userRepo.Update(ctx, u); updErr != nil {
			uc.logger.Error("can't clear reset token after mail failure", zap.Error(updErr))
		}
		span.RecordError(err)
		return fmt.Errorf("there was an error sending the email, try again later: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	return nil
}

func (uc *userUsecase) ResetPassword(c context.Context, now time.Time, token string, reset domain.ResetPassword) (*auth.Claims, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(ctx, "usecase ResetPassword")
	defer span.End()

	sum := sha256.Sum256([]byte(token))
	hashedToken := hex.EncodeToString(sum[:])

	u, err := uc.userRepo.GetByResetToken(ctx, hashedToken, now)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("token is invalid or has expired: %w", domain.ErrBadParamInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reset.Password), bcryptCost)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("can't hash password: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	changedAt := now.Truncate(time.Millisecond).UTC()
	u.HashedPassword = string(hash)
	u.PasswordChangedAt = &changedAt
	u.PasswordResetToken = ""
	u.PasswordResetExpires = nil
	u.UpdatedAt = changedAt

	err = uc.userRepo.Update(ctx, u)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.String("userid", u.ID.Hex()))

	return auth.NewClaims(u.ID.Hex(), u.Role, now, uc.tokenExpiry), nil
}

func (uc *userUsecase) Update(c context.Context, id string, update domain.UpdateUser) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase Update",
		trace.WithAttributes(
			attribute.String("userid", id)),
	)
	defer span.End()

	userID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("wrong user id format: %w: %s", domain.ErrBadParamInput, err.Error())
	}

	u, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.Email != nil {
		u.Email = strings.ToLower(*update.Email)
	}
	if update.Photo != nil {
		u.Photo = *update.Photo
	}
	if update.Role != nil {
		u.Role = *update.Role
	}
	if update.Active != nil {
		u.Active = *update.Active
	}
	u.UpdatedAt = time.Now().Truncate(time.Millisecond).UTC()

	err = uc.userRepo.Update(ctx, u)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return u, nil
}

func (uc *userUsecase) Delete(c context.Context, id string) error {
	ctx, cancel := context.WithTimeout(c, uc.contextTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(
		ctx,
		"usecase Delete",
		trace.WithAttributes(
			attribute.String("userid", id)),
	)
	defer span.End()

	userID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("wrong user id format: %w: %s", domain.ErrBadParamInput, err.Error())
	}

	return uc.userRepo.Delete(ctx, userID)
}

// newResetToken returns a random token to email to the user and the sha256
// hex digest that gets persisted. Only the digest ever touches the database.
func newResetToken() (raw, hashed string, err error) {
	buf := make([]byte, 32)
	if _, err = rand.Read(buf); err != nil {
		return "", "", err
	}

	raw = hex.EncodeToString(buf)
	sum := sha256.Sum256([]byte(raw))

	return raw, hex.EncodeToString(sum[:]), nil
}
