package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/E-Bousk/natours/domain"
	_MyMiddleware "github.com/E-Bousk/natours/middleware"
	"github.com/E-Bousk/natours/web"
	"github.com/E-Bousk/natours/web/auth"
)

// UserHandler represent the http handler for user
type UserHandler struct {
	userUsecase   domain.UserUsecase
	authenticator *auth.Authenticator
	validator     *web.AppValidator
	logger        *zap.Logger
	tracer        trace.Tracer
}

// NewUserHandler will initialize the users/ resources endpoint
func NewUserHandler(uu domain.UserUsecase, authenticator *auth.Authenticator, v *web.AppValidator, logger *zap.Logger, tracer trace.Tracer) *UserHandler {
	return &UserHandler{
		userUsecase:   uu,
		authenticator: authenticator,
		validator:     v,
		logger:        logger,
		tracer:        tracer,
	}
}

// RegisterRoutes registers routes for a path with matching handler
func (uh *UserHandler) RegisterRoutes(e *echo.Echo, middl *_MyMiddleware.GoMiddleware) {
	jwtMw := echojwt.WithConfig(uh.authenticator.JWTConfig)

	e.POST("/v1/users/signup", uh.Signup)
	e.POST("/v1/users/login", uh.Login)
	e.POST("/v1/users/forgotPassword", uh.ForgotPassword)
	e.PATCH("/v1/users/resetPassword/:token", uh.ResetPassword)

	e.GET("/v1/users/me", uh.GetMe, jwtMw, middl.Protect())
	e.PATCH("/v1/users/updateMe", uh.UpdateMe, jwtMw, middl.Protect())
	e.PATCH("/v1/users/updateMyPassword", uh.UpdatePassword, jwtMw, middl.Protect())
	e.DELETE("/v1/users/deleteMe", uh.DeleteMe, jwtMw, middl.Protect())

	e.GET("/v1/users", uh.Fetch, jwtMw, middl.Protect(), middl.HasRole(auth.RoleAdmin))
	e.GET("/v1/users/:id", uh.GetByID, jwtMw, middl.Protect(), middl.HasRole(auth.RoleAdmin))
	e.PATCH("/v1/users/:id", uh.Update, jwtMw, middl.Protect(), middl.HasRole(auth.RoleAdmin))
	e.DELETE("/v1/users/:id", uh.Delete, jwtMw, middl.Protect(), middl.HasRole(auth.RoleAdmin))
}

// Signup will register a new user and log it in
func (uh *UserHandler) Signup(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := uh.tracer.Start(
		ctx,
		"http Signup",
	)
	defer span.End()

	newUser := new(domain.SignupUser)
	if err := c.Bind(newUser); err != nil {
		span.RecordError(err)
		return c.JSON(http.StatusBadRequest, domain.ResponseError{Status: domain.StatusFail, Message: err.Error()})
	}

	if err := c.Validate(newUser); err != nil {
		span.RecordError(err)
		fields := err.(validator.ValidationErrors).Translate(uh.validator.Translator)
		return c.JSON(http.StatusBadRequest, domain.ValidationResponse(fields))
	}

	u, claims, err := uh.userUsecase.Signup(ctx, time.Now(), *newUser)
	if err != nil {
		span.RecordError(err)
		return c.JSON(domain.ErrorResponse(err, uh.logger))
	}

	token, err := uh.authenticator.GenerateToken(claims)
	if err != nil {
		span.RecordError(err)
		return c.JSON(domain.ErrorResponse(err, uh.logger))
	}
	span.SetAttributes(
		attribute.String("userid", u.ID.Hex()),
	)

	return c.JSON(http.StatusCreated, domain.Response{
		Status: domain.StatusSuccess,
		Token:  token,
		Data:   echo.Map{"user": u},
	})
}

// Login exchanges credentials for a signed token
func (uh *UserHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := uh.tracer.Start(
		ctx,
		"http Login",
	)
	defer span.End()

	creds := new(domain.LoginUser)
	if err := c.Bind(creds); err != nil {
		span.RecordError(err)
		return c.JSON(http.StatusBadRequest, domain.ResponseError{Status: domain.StatusFail, Message: err.Error()})
	}

	if err := c.Validate(creds); err != nil {
		span.RecordError(err)
		fields := err.(validator.ValidationErrors).Translate(uh.validator.Translator)
		return c.JSON(http.StatusBadRequest, domain.ValidationResponse(fields))
	}

	claims, err := uh.userUsecase.Login(ctx, time.Now(), creds.Email, creds.Password)
	if err != nil {
		span.RecordError(err)
		return c.JSON(domain.ErrorResponse(err, uh.logger))
	}

	token, err := uh.authenticator.GenerateToken(claims)
	if err != nil {
		span.RecordError(err)
		return c.JSON(domain.ErrorResponse(err, uh.logger))
	}

	return c.JSON(http.StatusOK, domain.Response{
		Status: domain.StatusSuccess,
		Token:  token,
	})
}

// ForgotPassword emails a reset token to the given address
func (uh *UserHandler) ForgotPassword(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := uh.tracer.Start(
		ctx,
		"http ForgotPassword",
	)
	defer span.End()

	forgot := new(domain.ForgotPassword)
	if err := c.Bind(forgot); err != nil {
		span.RecordError(err)
		return c.JSON(http.StatusBadRequest, domain.ResponseError{Status: domain.StatusFail, Message: err.Error()})
	}

	if err := c.Validate(forgot); err != nil {
		span.RecordError(err)
		fields := err.(validator.ValidationErrors).Translate(uh.validator.Translator)
		return c.JSON(http.StatusBadRequest, domain.ValidationResponse(fields))
	}

	resetURL := fmt.Sprintf("%s://%s/api/v1/users/resetPassword/", c.Scheme(), c.Request().Host)

	if err := uh.userUsecase.ForgotPassword(ctx, forgot.Email, resetURL); err != nil {
		span.RecordError(err)
		return c.JSON(domain.ErrorResponse(err, uh.logger))
	}

	return c.JSON(http.StatusOK, domain.Response{
		Status:  domain.StatusSuccess,
		Message: "token sent to email",
	})
}

// ResetPassword sets a new password using an emailed token and logs the
// user in
func (uh *UserHandler) ResetPassword(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := uh.tracer.Start(
		ctx,
		"http ResetPassword",
	)
	defer span.End()

	reset := new(domain.ResetPassword)
	if err := c.Bind(reset); err != nil {
		span.RecordError(err)
		return c.JSON(http.StatusBadRequest, domain.ResponseError{Status: domain.StatusFail, Message: err.Error()})
	}

	if err := c.Validate(reset); err != nil {
		span.RecordError(err)
		fields := err.(validator.ValidationErrors).Translate(uh.validator.Translator)
		return c.JSON(http.StatusBadRequest, domain.ValidationResponse(fields))
	}

	claims, err := uh.userUsecase.ResetPassword(ctx, time.Now(), c.Param("token"), *reset)
	if err != nil {
		span.RecordError(err)
		return c.JSON(domain.ErrorResponse(err, uh.logger))
	}

	token, err := uh.authenticator.GenerateToken(claims)
	if err != nil {
		span.RecordError(err)
		return c.JSON(domain.ErrorResponse(err, uh.logger))
	}

	return c.JSON(http.StatusOK, domain.Response{
		Status: domain.StatusSuccess,
		Token:  token,
	})
}

// GetMe returns the profile of the logged in user
func (uh *UserHandler) GetMe(c echo.Context) error {
	u, err := _MyMiddleware.CurrentUser(c)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, domain.OK(echo.Map{"user": u}))
}

// UpdateMe updates name, email or photo of the logged in user
func (uh *UserHandler) UpdateMe(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := uh.tracer.Start(
		ctx,
		"http UpdateMe",
	)
	defer span.End()

	cur, err := _MyMiddleware.CurrentUser(c)
	if err != nil {
		return err
	}

	update := new(domain.UpdateMe)
	if err := c.Bind(update); err != nil {
		span.RecordError(err)
		return c.JSON(http.StatusBadRequest, domain.ResponseError{Status: domain.StatusFail, Message: err.Error()})
	}

	if err := c.Validate(update); err != nil {
		span.RecordError(err)
		fields := err.(validator.ValidationErrors).Translate(uh.validator.Translator)
		return c.JSON(http.StatusBadRequest, domain.ValidationResponse(fields))
	}

	u, err := uh.userUsecase.UpdateMe(ctx, cur.ID.Hex(), *update)
	if err != nil {
		span.RecordError(err)
		return c.JSON(domain.ErrorResponse(err, uh.logger))
	}

	return c.JSON(http.StatusOK, domain.OK(echo.Map{"user": u}))
}

// UpdatePassword changes the password of the logged in user and issues a
// fresh token
func (uh *UserHandler) UpdatePassword(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := uh.tracer.Start(
		ctx,
		"http UpdatePassword",
	)
	defer span.End()

	cur, err := _MyMiddleware.CurrentUser(c)
	if err != nil {
		return err
	}

	update := new(domain.UpdatePassword)
	if err := c.Bind(update); err != nil {
		span.RecordError(err)
		return c.JSON(http.StatusBadRequest, domain.ResponseError{Status: domain.StatusFail, Message: err.Error()})
	}

	if err := c.Validate(update); err != nil {
		span.RecordError(err)
		fields := err.(validator.ValidationErrors).Translate(uh.validator.Translator)
		return c.JSON(http.StatusBadRequest, domain.ValidationResponse(fields))
	}

	claims, err := uh.userUsecase.UpdatePassword(ctx, time.Now(), cur.ID.Hex(), *update)
	if err != nil {
		span.RecordError(err)
		return c.JSON(domain.ErrorResponse(err, uh.logger))
	}

	token, err := uh.authenticator.GenerateToken(claims)
	if err != nil {
		span.RecordError(err)
		return c.JSON(domain.ErrorResponse(err, uh.logger))
	}

	return c.JSON(http.StatusOK, domain.Response{
		Status: domain.StatusSuccess,
		Token:  token,
	})
}

// DeleteMe deactivates the logged in user
func (uh *UserHandler) DeleteMe(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := uh.tracer.Start(
		ctx,
		"http DeleteMe",
	)
	defer span.End()

	cur, err := _MyMiddleware.CurrentUser(c)
	if err != nil {
		return err
	}

	if err := uh.userUsecase.DeleteMe(ctx, cur.ID.Hex()); err != nil {
		span.RecordError(err)
		return c.JSON(domain.ErrorResponse(err, uh.logger))
	}

	return c.NoContent(http.StatusNoContent)
}

// Fetch will get users matching the given query parameters
func (uh *UserHandler) Fetch(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := uh.tracer.Start(
		ctx,
		"http Fetch",
	)
	defer span.End()

	users, err := uh.userUsecase.Fetch(ctx, c.QueryParams())
	if err != nil {
		span.RecordError(err)
		return c.JSON(domain.ErrorResponse(err, uh.logger))
	}

	return c.JSON(http.StatusOK, domain.OKList(len(users), echo.Map{"users": users}))
}

// GetByID will get user by given id
func (uh *UserHandler) GetByID(c echo.Context) error {
	id := c.Param("id")

	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := uh.tracer.Start(
		ctx,
		"http GetByID",
	)
	defer span.End()

	u, err := uh.userUsecase.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return c.JSON(domain.ErrorResponse(err, uh.logger))
	}
	span.SetAttributes(
		attribute.String("userid", u.ID.Hex()),
	)

	return c.JSON(http.StatusOK, domain.OK(echo.Map{"user": u}))
}

// Update will update the User by given id and request body
func (uh *UserHandler) Update(c echo.Context) error {
	id := c.Param("id")

	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := uh.tracer.Start(
		ctx,
		"http Update",
	)
	defer span.End()

	update := new(domain.UpdateUser)
	if err := c.Bind(update); err != nil {
		span.RecordError(err)
		return c.JSON(http.StatusBadRequest, domain.ResponseError{Status: domain.StatusFail, Message: err.Error()})
	}

	if err := c.Validate(update); err != nil {
		span.RecordError(err)
		fields := err.(validator.ValidationErrors).Translate(uh.validator.Translator)
		return c.JSON(http.StatusBadRequest, domain.ValidationResponse(fields))
	}

	u, err := uh.userUsecase.Update(ctx, id, *update)
	if err != nil {
		span.RecordError(err)
		return c.JSON(domain.ErrorResponse(err, uh.logger))
	}

	return c.JSON(http.StatusOK, domain.OK(echo.Map{"user": u}))
}

// Delete will remove the User by given id
func (uh *UserHandler) Delete(c echo.Context) error {
	id := c.Param("id")

	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := uh.tracer.Start(
		ctx,
		"http Delete",
	)
	defer span.End()

	if err := uh.userUsecase.Delete(ctx, id); err != nil {
		span.RecordError(err)
		return c.JSON(domain.ErrorResponse(err, uh.logger))
	}

	return c.NoContent(http.StatusNoContent)
}
