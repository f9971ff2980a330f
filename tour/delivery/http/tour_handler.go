package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

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

// TourHandler represent the http handler for tour
type TourHandler struct {
	tourUsecase   domain.TourUsecase
	authenticator *auth.Authenticator
	validator     *web.AppValidator
	logger        *zap.Logger
	tracer        trace.Tracer
}

// NewTourHandler will initialize the tours/ resources endpoint
func NewTourHandler(tu domain.TourUsecase, authenticator *auth.Authenticator, v *web.AppValidator, logger *zap.Logger, tracer trace.Tracer) *TourHandler {
	return &TourHandler{
		tourUsecase:   tu,
		authenticator: authenticator,
		validator:     v,
		logger:        logger,
		tracer:        tracer,
	}
}

// RegisterRoutes registers routes for a path with matching handler
func (th *TourHandler) RegisterRoutes(e *echo.Echo, middl *_MyMiddleware.GoMiddleware) {
	jwtMw := echojwt.WithConfig(th.authenticator.JWTConfig)

	e.GET("/v1/tours/top-5", th.TopTours)
	e.GET("/v1/tours/tour-stats", th.Stats)
	e.GET("/v1/tours/monthly-plan/:year", th.MonthlyPlan, jwtMw, middl.Protect(), middl.HasRole(auth.RoleAdmin, auth.RoleLeadGuide, auth.RoleGuide))
	e.GET("/v1/tours/tours-within/:distance/center/:latlng/unit/:unit", th.FetchWithin)
	e.GET("/v1/tours", th.Fetch)
	e.POST("/v1/tours", th.Create, jwtMw, middl.Protect(), middl.HasRole(auth.RoleAdmin, auth.RoleLeadGuide))
	e.GET("/v1/tours/:id", th.GetByID)
	e.PATCH("/v1/tours/:id", th.Update, jwtMw, middl.Protect(), middl.HasRole(auth.RoleAdmin, auth.RoleLeadGuide))
	e.DELETE("/v1/tours/:id", th.Delete, jwtMw, middl.Protect(), middl.HasRole(auth.RoleAdmin, auth.RoleLeadGuide))
}

// Fetch will get tours matching the given query parameters
func (th *TourHandler) Fetch(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := th.tracer.Start(
		ctx,
		"http Fetch",
	)
	defer span.End()

	tours, err := th.tourUsecase.Fetch(ctx, c.QueryParams())
	if err != nil {
		span.RecordError(err)
		return c.JSON(domain.ErrorResponse(err, th.logger))
	}

	return c.JSON(http.StatusOK, domain.OKList(len(tours), echo.Map{"tours": tours}))
}

// TopTours is an alias for the five best rated, cheapest first tours
func (th *TourHandler) TopTours(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := th.tracer.Start(
		ctx,
		"http TopTours",
	)
	defer span.End()

	params := url.Values{}
	params.Set("limit", "5")
	params.Set("sort", "-ratings_average,price")
	params.Set("fields", "name,price,ratings_average,summary,difficulty,duration")

	tours, err := th.tourUsecase.Fetch(ctx, params)
	if err != nil {
		span.RecordError(err)
		return c.JSON(domain.ErrorResponse(err, th.logger))
	}

	return c.JSON(http.StatusOK, domain.OKList(len(tours), echo.Map{"tours": tours}))
}

// GetByID will get tour by given id, reviews included
func (th *TourHandler) GetByID(c echo.Context) error {
	id := c.Param("id")

	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := th.tracer.Start(
		ctx,
		"http GetByID",
	)
	defer span.End()

	t, err := th.tourUsecase.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return c.JSON(domain.ErrorResponse(err, th.logger))
	}
	span.SetAttributes(
		attribute.String("tourid", t.ID.Hex()),
	)

	return c.JSON(http.StatusOK, domain.OK(echo.Map{"tour": t}))
}

// Create will store the Tour by given request body
func (th *TourHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := th.tracer.Start(
		ctx,
		"http Create",
	)
	defer span.End()

	newTour := new(domain.CreateTour)
	if err := c.Bind(newTour); err != nil {
		span.RecordError(err)
		return c.JSON(http.StatusBadRequest, domain.ResponseError{Status: domain.StatusFail, Message: err.Error()})
	}

	if err := c.Validate(newTour); err != nil {
		span.RecordError(err)
		fields := err.(validator.ValidationErrors).Translate(th.validator.Translator)
		return c.JSON(http.StatusBadRequest, domain.ValidationResponse(fields))
	}

	t, err := th.tourUsecase.Create(ctx, *newTour)
	if err != nil {
		span.RecordError(err)
		return c.JSON(domain.ErrorResponse(err, th.logger))
	}
	span.SetAttributes(
		attribute.String("tourid", t.ID.Hex()),
	)

	return c.JSON(http.StatusCreated, domain.OK(echo.Map{"tour": t}))
}

// Update will update the Tour by given id and request body
func (th *TourHandler) Update(c echo.Context) error {
	id := c.Param("id")

	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := th.tracer.Start(
		ctx,
		"http Update",
	)
	defer span.End()

	u := new(domain.UpdateTour)
	if err := c.Bind(u); err != nil {
		span.RecordError(err)
		return c.JSON(http.StatusBadRequest, domain.ResponseError{Status: domain.StatusFail, Message: err.Error()})
	}

	if err := c.Validate(u); err != nil {
		span.RecordError(err)
		fields := err.(validator.ValidationErrors).Translate(th.validator.Translator)
		return c.JSON(http.StatusBadRequest, domain.ValidationResponse(fields))
	}

	t, err := th.tourUsecase.Update(ctx, id, *u)
	if err != nil {
		span.RecordError(err)
		return c.JSON(domain.ErrorResponse(err, th.logger))
	}

	return c.JSON(http.StatusOK, domain.OK(echo.Map{"tour": t}))
}

// Delete will delete Tour by given id
func (th *TourHandler) Delete(c echo.Context) error {
	id := c.Param("id")

	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := th.tracer.Start(
		ctx,
		"http Delete",
	)
	defer span.End()

	if err := th.tourUsecase.Delete(ctx, id); err != nil {
		span.RecordError(err)
		return c.JSON(domain.ErrorResponse(err, th.logger))
	}

	return c.NoContent(http.StatusNoContent)
}

// Stats will get rating and price aggregates grouped by difficulty
func (th *TourHandler) Stats(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := th.tracer.Start(
		ctx,
		"http Stats",
	)
	defer span.End()

	stats, err := th.tourUsecase.Stats(ctx)
	if err != nil {
		span.RecordError(err)
		return c.JSON(domain.ErrorResponse(err, th.logger))
	}

	return c.JSON(http.StatusOK, domain.OK(echo.Map{"stats": stats}))
}

// MonthlyPlan will get tour starts grouped by month of the given year
func (th *TourHandler) MonthlyPlan(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := th.tracer.Start(
		ctx,
		"http MonthlyPlan",
	)
	defer span.End()

	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		span.RecordError(err)
		return c.JSON(http.StatusBadRequest, domain.ResponseError{Status: domain.StatusFail, Message: "year must be a number"})
	}

	plan, err := th.tourUsecase.MonthlyPlan(ctx, year)
	if err != nil {
		span.RecordError(err)
		return c.JSON(domain.ErrorResponse(err, th.logger))
	}

	return c.JSON(http.StatusOK, domain.OKList(len(plan), echo.Map{"plan": plan}))
}

// FetchWithin will get tours whose start location lies within the given
// distance around a center point
func (th *TourHandler) FetchWithin(c echo.Context) error {
	ctx := c.Request().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := th.tracer.Start(
		ctx,
		"http FetchWithin",
	)
	defer span.End()

	distance, err := strconv.ParseFloat(c.Param("distance"), 64)
	if err != nil {
		span.RecordError(err)
		return c.JSON(http.StatusBadRequest, domain.ResponseError{Status: domain.StatusFail, Message: "distance must be a number"})
	}

	lat, lng, err := parseLatLng(c.Param("latlng"))
	if err != nil {
		span.RecordError(err)
		return c.JSON(http.StatusBadRequest, domain.ResponseError{Status: domain.StatusFail, Message: err.Error()})
	}

	tours, err := th.tourUsecase.FetchWithin(ctx, distance, lat, lng, c.Param("unit"))
	if err != nil {
		span.RecordError(err)
		return c.JSON(domain.ErrorResponse(err, th.logger))
	}

	return c.JSON(http.StatusOK, domain.OKList(len(tours), echo.Map{"tours": tours}))
}

func parseLatLng(raw string) (lat, lng float64, err error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return 0, 0, errors.New("please provide latitude and longitude in the format lat,lng")
	}

	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, err
	}
	lng, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, err
	}
	return lat, lng, nil
}
