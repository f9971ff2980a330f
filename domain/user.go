package domain

import (
	"context"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/E-Bousk/natours/web/auth"
)

// User represents the User model
type User struct {
	ID                   primitive.ObjectID `json:"id" bson:"_id"`
	Name                 string             `json:"name" bson:"name"`
	Email                string             `json:"email" bson:"email"`
	Photo                string             `json:"photo,omitempty" bson:"photo,omitempty"`
	Role                 string             `json:"role" bson:"role"`
	HashedPassword       string             `json:"-" bson:"hashed_password"`
	PasswordChangedAt    *time.Time         `json:"-" bson:"password_changed_at,omitempty"`
	PasswordResetToken   string             `json:"-" bson:"password_reset_token,omitempty"`
	PasswordResetExpires *time.Time         `json:"-" bson:"password_reset_expires,omitempty"`
	Active               bool               `json:"-" bson:"active"`
	CreatedAt            time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at" bson:"updated_at"`
}

// ChangedPasswordAfter reports whether the user changed the password after
// a token with the given issue time was signed. Tokens issued before the
// change are no longer valid.
func (u *User) ChangedPasswordAfter(issuedAt int64) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return issuedAt < u.PasswordChangedAt.Unix()
}

// SignupUser represents data to sign up a new User. The role is never taken
// from the caller, every new user starts as a regular user.
type SignupUser struct {
	Name            string `json:"name" validate:"required,max=50"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8,max=30"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

// LoginUser represents credentials to log in
type LoginUser struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateMe represents the fields a user may change on the own profile.
// Password mutations go through UpdatePassword only.
type UpdateMe struct {
	Name  *string `json:"name" validate:"omitempty,max=50"`
	Email *string `json:"email" validate:"omitempty,email"`
	Photo *string `json:"photo"`
}

// UpdateUser represents an administrative partial update of a User
type UpdateUser struct {
	Name   *string `json:"name" validate:"omitempty,max=50"`
	Email  *string `json:"email" validate:"omitempty,email"`
	Photo  *string `json:"photo"`
	Role   *string `json:"role" validate:"omitempty,oneof=user guide lead-guide admin"`
	Active *bool   `json:"active"`
}

// UpdatePassword represents data to change the password of a logged in user
type UpdatePassword struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	Password        string `json:"password" validate:"required,min=8,max=30"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

// ForgotPassword represents data to request a password reset token
type ForgotPassword struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPassword represents data to reset a password with an emailed token
type ResetPassword struct {
	Password        string `json:"password" validate:"required,min=8,max=30"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

// UserUsecase represents the User's usecases
type UserUsecase interface {
	Fetch(ctx context.Context, params url.Values) ([]*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Signup(ctx context.Context, now time.Time, user SignupUser) (*User, *auth.Claims, error)
	Login(ctx context.Context, now time.Time, email, password string) (*auth.Claims, error)
	UpdateMe(ctx context.Context, userID string, update UpdateMe) (*User, error)
	UpdatePassword(ctx context.Context, now time.Time, userID string, update UpdatePassword) (*auth.Claims, error)
	DeleteMe(ctx context.Context, userID string) error
	ForgotPassword(ctx context.Context, email, resetURL string) error
	ResetPassword(ctx context.Context, now time.Time, token string, reset ResetPassword) (*auth.Claims, error)
	Update(ctx context.Context, id string, update UpdateUser) (*User, error)
	Delete(ctx context.Context, id string) error
}

// UserRepository represents the User's repository contract. Reads exclude
// deactivated users, only Update can still reach them.
type UserRepository interface {
	Fetch(ctx context.Context, params url.Values) ([]*User, error)
	Count(ctx context.Context, params url.Values) (int64, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByResetToken(ctx context.Context, hashedToken string, now time.Time) (*User, error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// Mailer sends a plain text message to a single recipient
type Mailer interface {
	Send(to, subject, body string) error
}
