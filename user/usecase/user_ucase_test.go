package usecase_test

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/E-Bousk/natours/domain"
	"github.com/E-Bousk/natours/tests"
	"github.com/E-Bousk/natours/user/mock"
	"github.com/E-Bousk/natours/user/usecase"
	"github.com/E-Bousk/natours/web/auth"
)

var tracer = sdktrace.NewTracerProvider().Tracer("")

func newUsecase(repository *mock.MockUserRepository, mailer *mock.MockMailer) domain.UserUsecase {
	return usecase.NewUserUsecase(repository, mailer, time.Hour, 10*time.Second, zap.NewNop(), tracer)
}

func TestUserUsecase_Fetch(t *testing.T) {
	controller := gomock.NewController(t)
	defer controller.Finish()

	tUser := tests.NewUser()
	repository := mock.NewMockUserRepository(controller)
	mailer := mock.NewMockMailer(controller)
	uc := newUsecase(repository, mailer)

	t.Run("fetch without page skips the count", func(t *testing.T) {
		params := url.Values{"role": {auth.RoleGuide}}
		repository.EXPECT().Fetch(gomock.Any(), params).Return([]*domain.User{tUser}, nil)

		result, err := uc.Fetch(context.Background(), params)

		assert.NoError(t, err)
		assert.Len(t, result, 1)
	})

	t.Run("requested page within range", func(t *testing.T) {
		params := url.Values{"page": {"2"}, "limit": {"1"}}
		repository.EXPECT().Count(gomock.Any(), params).Return(int64(3), nil)
		repository.EXPECT().Fetch(gomock.Any(), params).Return([]*domain.User{tUser}, nil)

		result, err := uc.Fetch(context.Background(), params)

		assert.NoError(t, err)
		assert.Len(t, result, 1)
	})

	t.Run("requested page beyond the collection", func(t *testing.T) {
		params := url.Values{"page": {"99"}, "limit": {"10"}}
		repository.EXPECT().Count(gomock.Any(), params).Return(int64(12), nil)

		result, err := uc.Fetch(context.Background(), params)

		assert.ErrorIs(t, err, domain.ErrBadParamInput)
		assert.Nil(t, result)
	})
}

func TestUserUsecase_Signup(t *testing.T) {
	controller := gomock.NewController(t)
	defer controller.Finish()

	repository := mock.NewMockUserRepository(controller)
	mailer := mock.NewMockMailer(controller)
	uc := newUsecase(repository, mailer)

	t.Run("every new user starts as a regular user", func(t *testing.T) {
		signup := tests.NewSignupUser()
		repository.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

		u, claims, err := uc.Signup(context.Background(), time.Now(), signup)

		require.NoError(t, err)
		assert.Equal(t, auth.RoleUser, u.Role)
		assert.Equal(t, auth.RoleUser, claims.Role)
		assert.Equal(t, u.ID.Hex(), claims.Subject)
		assert.True(t, u.Active)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(signup.Password)))
	})

	t.Run("mixed case email is stored lowercased", func(t *testing.T) {
		signup := tests.NewSignupUser()
		signup.Email = "MiXeD@Example.COM"
		repository.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, u *domain.User) error {
				assert.Equal(t, "mixed@example.com", u.Email)
				return nil
			})

		u, _, err := uc.Signup(context.Background(), time.Now(), signup)

		require.NoError(t, err)
		assert.Equal(t, "mixed@example.com", u.Email)
	})

	t.Run("duplicate email", func(t *testing.T) {
		repository.EXPECT().Create(gomock.Any(), gomock.Any()).Return(domain.ErrConflict)

		u, claims, err := uc.Signup(context.Background(), time.Now(), tests.NewSignupUser())

		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.Nil(t, u)
		assert.Nil(t, claims)
	})
}

func TestUserUsecase_Login(t *testing.T) {
	controller := gomock.NewController(t)
	defer controller.Finish()

	tUser := tests.NewUser()
	repository := mock.NewMockUserRepository(controller)
	mailer := mock.NewMockMailer(controller)
	uc := newUsecase(repository, mailer)

	t.Run("success", func(t *testing.T) {
		repository.EXPECT().GetByEmail(gomock.Any(), tUser.Email).Return(tUser, nil)

		claims, err := uc.Login(context.Background(), time.Now(), tUser.Email, "password")

		require.NoError(t, err)
		assert.Equal(t, tUser.ID.Hex(), claims.Subject)
		assert.Equal(t, tUser.Role, claims.Role)
	})

	t.Run("mixed case email still logs in", func(t *testing.T) {
		repository.EXPECT().GetByEmail(gomock.Any(), tUser.Email).Return(tUser, nil)

		claims, err := uc.Login(context.Background(), time.Now(), strings.ToUpper(tUser.Email), "password")

		require.NoError(t, err)
		assert.Equal(t, tUser.ID.Hex(), claims.Subject)
	})

	t.Run("unknown email reads like a wrong password", func(t *testing.T) {
		repository.EXPECT().GetByEmail(gomock.Any(), "nobody@example.com").Return(nil, domain.ErrNotFound)

		claims, err := uc.Login(context.Background(), time.Now(), "nobody@example.com", "password")

		assert.ErrorIs(t, err, domain.ErrAuthenticationFailure)
		assert.Nil(t, claims)
	})

	t.Run("wrong password", func(t *testing.T) {
		repository.EXPECT().GetByEmail(gomock.Any(), tUser.Email).Return(tUser, nil)

		claims, err := uc.Login(context.Background(), time.Now(), tUser.Email, "wrongpassword")

		assert.ErrorIs(t, err, domain.ErrAuthenticationFailure)
		assert.Nil(t, claims)
	})
}

func TestUserUsecase_UpdatePassword(t *testing.T) {
	controller := gomock.NewController(t)
	defer controller.Finish()

	repository := mock.NewMockUserRepository(controller)
	mailer := mock.NewMockMailer(controller)
	uc := newUsecase(repository, mailer)

	update := domain.UpdatePassword{
		CurrentPassword: "password",
		Password:        "newpassword",
		PasswordConfirm: "newpassword",
	}

	t.Run("success stamps the password change", func(t *testing.T) {
		tUser := tests.NewUser()
		repository.EXPECT().GetByID(gomock.Any(), tUser.ID).Return(tUser, nil)
		repository.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, u *domain.User) error {
				assert.NotNil(t, u.PasswordChangedAt)
				assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte("newpassword")))
				return nil
			})

		claims, err := uc.UpdatePassword(context.Background(), time.Now(), tUser.ID.Hex(), update)

		require.NoError(t, err)
		assert.Equal(t, tUser.ID.Hex(), claims.Subject)
	})

	t.Run("wrong current password", func(t *testing.T) {
		tUser := tests.NewUser()
		repository.EXPECT().GetByID(gomock.Any(), tUser.ID).Return(tUser, nil)

		wrong := update
		wrong.CurrentPassword = "nottherightone"
		claims, err := uc.UpdatePassword(context.Background(), time.Now(), tUser.ID.Hex(), wrong)

		assert.ErrorIs(t, err, domain.ErrAuthenticationFailure)
		assert.Nil(t, claims)
	})
}

func TestUserUsecase_DeleteMe(t *testing.T) {
	controller := gomock.NewController(t)
	defer controller.Finish()

	repository := mock.NewMockUserRepository(controller)
	mailer := mock.NewMockMailer(controller)
	uc := newUsecase(repository, mailer)

	t.Run("deactivates instead of deleting", func(t *testing.T) {
		tUser := tests.NewUser()
		repository.EXPECT().GetByID(gomock.Any(), tUser.ID).Return(tUser, nil)
		repository.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, u *domain.User) error {
				assert.False(t, u.Active)
				return nil
			})

		err := uc.DeleteMe(context.Background(), tUser.ID.Hex())

		assert.NoError(t, err)
	})
}

func TestUserUsecase_ForgotPassword(t *testing.T) {
	controller := gomock.NewController(t)
	defer controller.Finish()

	repository := mock.NewMockUserRepository(controller)
	mailer := mock.NewMockMailer(controller)
	uc := newUsecase(repository, mailer)

	t.Run("stores hashed token and mails the raw one", func(t *testing.T) {
		tUser := tests.NewUser()
		var storedToken string
		repository.EXPECT().GetByEmail(gomock.Any(), tUser.Email).Return(tUser, nil)
		repository.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, u *domain.User) error {
				storedToken = u.PasswordResetToken
				assert.NotEmpty(t, u.PasswordResetToken)
				assert.NotNil(t, u.PasswordResetExpires)
				return nil
			})
		mailer.EXPECT().Send(tUser.Email, gomock.Any(), gomock.Any()).DoAndReturn(
			func(_, _, body string) error {
				// only the digest is stored, the raw token goes to the mail
				assert.NotContains(t, body, storedToken)
				return nil
			})

		err := uc.ForgotPassword(context.Background(), tUser.Email, "https://example.com/api/v1/users/resetPassword/")

		assert.NoError(t, err)
	})

	t.Run("mail failure clears the stored token", func(t *testing.T) {
		tUser := tests.NewUser()
		repository.EXPECT().GetByEmail(gomock.Any(), tUser.Email).Return(tUser, nil)
		gomock.InOrder(
			repository.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil),
			repository.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, u *domain.User) error {
					assert.Empty(t, u.PasswordResetToken)
					assert.Nil(t, u.PasswordResetExpires)
					return nil
				}),
		)
		mailer.EXPECT().Send(tUser.Email, gomock.Any(), gomock.Any()).Return(assert.AnError)

		err := uc.ForgotPassword(context.Background(), tUser.Email, "https://example.com/api/v1/users/resetPassword/")

		assert.ErrorIs(t, err, domain.ErrInternalServerError)
	})

	t.Run("unknown email", func(t *testing.T) {
		repository.EXPECT().GetByEmail(gomock.Any(), "nobody@example.com").Return(nil, domain.ErrNotFound)

		err := uc.ForgotPassword(context.Background(), "nobody@example.com", "https://example.com/")

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestUserUsecase_ResetPassword(t *testing.T) {
	controller := gomock.NewController(t)
	defer controller.Finish()

	repository := mock.NewMockUserRepository(controller)
	mailer := mock.NewMockMailer(controller)
	uc := newUsecase(repository, mailer)

	reset := domain.ResetPassword{Password: "newpassword", PasswordConfirm: "newpassword"}

	t.Run("invalid or expired token", func(t *testing.T) {
		repository.EXPECT().GetByResetToken(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, domain.ErrNotFound)

		claims, err := uc.ResetPassword(context.Background(), time.Now(), "sometoken", reset)

		assert.ErrorIs(t, err, domain.ErrBadParamInput)
		assert.Nil(t, claims)
	})

	t.Run("success clears the token and stamps the change", func(t *testing.T) {
		tUser := tests.NewUser()
		expires := time.Now().Add(5 * time.Minute)
		tUser.PasswordResetToken = "storeddigest"
		tUser.PasswordResetExpires = &expires

		repository.EXPECT().GetByResetToken(gomock.Any(), gomock.Any(), gomock.Any()).Return(tUser, nil)
		repository.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, u *domain.User) error {
				assert.Empty(t, u.PasswordResetToken)
				assert.Nil(t, u.PasswordResetExpires)
				assert.NotNil(t, u.PasswordChangedAt)
				assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte("newpassword")))
				return nil
			})

		claims, err := uc.ResetPassword(context.Background(), time.Now(), "sometoken", reset)

		require.NoError(t, err)
		assert.Equal(t, tUser.ID.Hex(), claims.Subject)
	})
}

func TestUserUsecase_UpdateMe(t *testing.T) {
	controller := gomock.NewController(t)
	defer controller.Finish()

	repository := mock.NewMockUserRepository(controller)
	mailer := mock.NewMockMailer(controller)
	uc := newUsecase(repository, mailer)

	t.Run("only profile fields change", func(t *testing.T) {
		tUser := tests.NewUser()
		repository.EXPECT().GetByID(gomock.Any(), tUser.ID).Return(tUser, nil)
		repository.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)

		result, err := uc.UpdateMe(context.Background(), tUser.ID.Hex(), domain.UpdateMe{
			Name: tests.StringPointer("Jane Doe"),
		})

		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", result.Name)
		assert.Equal(t, auth.RoleUser, result.Role)
	})
}

func TestUser_ChangedPasswordAfter(t *testing.T) {
	tUser := tests.NewUser()
	now := time.Now()

	assert.False(t, tUser.ChangedPasswordAfter(now.Unix()))

	changed := now.Add(time.Hour)
	tUser.PasswordChangedAt = &changed
	assert.True(t, tUser.ChangedPasswordAfter(now.Unix()))
	assert.False(t, tUser.ChangedPasswordAfter(changed.Add(time.Minute).Unix()))
}
