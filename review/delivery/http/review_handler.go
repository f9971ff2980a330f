package http

import (
	"context"
	"net/http"

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

// ReviewHandler represent the http handler for review
type ReviewHandler struct {
	reviewUsecase domain.ReviewUsecase
	authenticator *auth.Authenticator
	validator     *web.AppValidator
	logger        *zap.Logger
	tracer        trace.Tracer
}

// NewReviewHandler will initialize the reviews/ resources endpoint
func NewReviewHandler(ru domain.ReviewUsecase, authenticator *auth.Authenticator, v *web.AppValidator, logger *zap.Logger, tracer trace.Tracer) *ReviewHandler {
	return &ReviewHandler{
		reviewUsecase: ru,
		authenticator: authenticator,
		validator:     v,
		logger:        logger,
		tracer:        tracer,
	}
}

// RegisterRoutes registers routes for a path with matching handler. Reviews
// are reachable both standalone and nested under their tour.
func (rh *ReviewHandler) RegisterRoutes(e *echo.Echo, middl *_MyMiddleware.GoMiddleware) {
	jwtMw := echojwt.WithConfig(rh.authenticator.JWTConfig)

	e.GET("/v1/tours/:tourId/reviews", rh.Fetch)
	e.POST("/v1/tours/:tourId/reviews", rh.Create, jwtMw, middl.Protect(), middl.HasRole(auth.RoleUser))

	e.GET("/v1/reviews", rh.Fetch)
	e.GET("/v1/reviews/:id", rh.GetByID)
	e.POST("/v1/reviews", rh.Create, jwtMw, middl.Protect(), middl.HasRole(auth.RoleUser))
	e.PATCH("/v1/reviews/:id", rh.Update, jwtMw, middl.Protect(), middl.HasRole(auth.RoleUser, auth.RoleAdmin))
	e.DELETE("/v1/reviews/:id", rh.Delete, jwtMw, middl.Protect(), middl.HasRole(auth.RoleUser, auth.RoleAdmin))
}

// Fetch will get reviews matching the given query parameters, scoped to a
// tour when the route carries one
func (rh *ReviewHandler) Fetch(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := rh.tracer.Start(
		ctx,
		"http Fetch",
	)
	defer span.End()

	reviews, err := rh.reviewUsecase.Fetch(ctx, c.QueryParams(), c.Param("tourId"))
	if err != nil {
		span.RecordError(err)
		return c.JSON(domain.ErrorResponse(err, rh.logger))
	}

	return c.JSON(http.StatusOK, domain.OKList(len(reviews), echo.Map{"reviews": reviews}))
}

// GetByID will get review by given id
func (rh *ReviewHandler) GetByID(c echo.Context) error {
	id := c.Param("id")

	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := rh.tracer.Start(
		ctx,
		"http GetByID",
	)
	defer span.End()

	r, err := rh.reviewUsecase.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return c.JSON(domain.ErrorResponse(err, rh.logger))
	}
	span.SetAttributes(
		attribute.String("reviewid", r.ID.Hex()),
	)

	return c.JSON(http.StatusOK, domain.OK(echo.Map{"review": r}))
}

// Create will store the Review by given request body. On the nested route
// the tour comes from the path.
func (rh *ReviewHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := rh.tracer.Start(
		ctx,
		"http Create",
	)
	defer span.End()

	claims, err := _MyMiddleware.GetClaims(c)
	if err != nil {
		return err
	}

	newReview := new(domain.CreateReview)
	if err := c.Bind(newReview); err != nil {
		span.RecordError(err)
		return c.JSON(http.StatusBadRequest, domain.ResponseError{Status: domain.StatusFail, Message: err.Error()})
	}

	if tourID := c.Param("tourId"); tourID != "" {
		newReview.Tour = tourID
	}

	if err := c.Validate(newReview); err != nil {
		span.RecordError(err)
		fields := err.(validator.ValidationErrors).Translate(rh.validator.Translator)
		return c.JSON(http.StatusBadRequest, domain.ValidationResponse(fields))
	}

	r, err := rh.reviewUsecase.Create(ctx, *newReview, claims)
	if err != nil {
		span.RecordError(err)
		return c.JSON(domain.ErrorResponse(err, rh.logger))
	}
	span.SetAttributes(
		attribute.String("reviewid", r.ID.Hex()),
	)

	return c.JSON(http.StatusCreated, domain.OK(echo.Map{"review": r}))
}

// Update will update the Review by given id and request body
func (rh *ReviewHandler) Update(c echo.Context) error {
	id := c.Param("id")

	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := rh.tracer.Start(
		ctx,
		"http Update",
	)
	defer span.End()

	claims, err := _MyMiddleware.GetClaims(c)
	if err != nil {
		return err
	}

	u := new(domain.UpdateReview)
	if err := c.Bind(u); err != nil {
		span.RecordError(err)
		return c.JSON(http.StatusBadRequest, domain.ResponseError{Status: domain.StatusFail, Message: err.Error()})
	}

	if err := c.Validate(u); err != nil {
		span.RecordError(err)
		fields := err.(validator.ValidationErrors).Translate(rh.validator.Translator)
		return c.JSON(http.StatusBadRequest, domain.ValidationResponse(fields))
	}

	r, err := rh.reviewUsecase.Update(ctx, id, *u, claims)
	if err != nil {
		span.RecordError(err)
		return c.JSON(domain.ErrorResponse(err, rh.logger))
	}

	return c.JSON(http.StatusOK, domain.OK(echo.Map{"review": r}))
}

// Delete will delete Review by given id
func (rh *ReviewHandler) Delete(c echo.Context) error {
	id := c.Param("id")

	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := rh.tracer.Start(
		ctx,
		"http Delete",
	)
	defer span.End()

	claims, err := _MyMiddleware.GetClaims(c)
	if err != nil {
		return err
	}

	if err := rh.reviewUsecase.Delete(ctx, id, claims); err != nil {
		span.RecordError(err)
		return c.JSON(domain.ErrorResponse(err, rh.logger))
	}

	return c.NoContent(http.StatusNoContent)
}
