package middleware

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/E-Bousk/natours/domain"
	"github.com/E-Bousk/natours/web/auth"
)

// CurrentUserKey is where Protect stores the resolved user in the echo context
const CurrentUserKey = "currentUser"

// GoMiddleware represent the data-struct for middleware
type GoMiddleware struct {
	logger   *zap.Logger
	userRepo domain.UserRepository
}

// InitMiddleware initialize the middleware
func InitMiddleware(logger *zap.Logger, userRepo domain.UserRepository) *GoMiddleware {
	return &GoMiddleware{
		logger:   logger,
		userRepo: userRepo,
	}
}

// CORS will handle the CORS middleware
func (m *GoMiddleware) CORS(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set("Access-Control-Allow-Origin", "*")
		return next(c)
	}
}

// Logger is a middleware that logs requests
func (m *GoMiddleware) Logger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		err := next(c)
		if err != nil {
			c.Error(err)
		}

		req := c.Request()
		res := c.Response()

		id := req.Header.Get(echo.HeaderXRequestID)
		if id == "" {
			id = res.Header().Get(echo.HeaderXRequestID)
		}

		fields := []zapcore.Field{
			zap.Int("status", res.Status),
			zap.String("latency", time.Since(start).String()),
			zap.String("id", id),
			zap.String("method", req.Method),
			zap.String("uri", req.RequestURI),
			zap.String("host", req.Host),
			zap.String("remote_ip", c.RealIP()),
		}

		n := res.Status
		switch {
		case n >= 500:
			m.logger.Error("Server error", fields...)
		case n >= 400:
			m.logger.Warn("Client error", fields...)
		case n >= 300:
			m.logger.Info("Redirection", fields...)
		default:
			m.logger.Info("Success", fields...)
		}

		return nil
	}
}

// Protect resolves the user behind a verified token and attaches it to the
// context. It must run after the jwt middleware. The request is rejected
// when the user no longer exists (or was deactivated) or when the token was
// issued before the user's most recent password change.
func (m *GoMiddleware) Protect() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := GetClaims(c)
			if err != nil {
				return err
			}

			id, err := primitive.ObjectIDFromHex(claims.Subject)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "token subject is not a valid user id")
			}

			u, err := m.userRepo.GetByID(c.Request().Context(), id)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "the user belonging to this token does no longer exist")
			}

			if u.ChangedPasswordAfter(claims.IssuedAt) {
				return echo.NewHTTPError(http.StatusUnauthorized, "user recently changed password, please log in again")
			}

			c.Set(CurrentUserKey, u)
			return next(c)
		}
	}
}

// HasRole validates that an authenticated user has at least one role from a
// specified list. This method constructs the actual function that is used.
func (m *GoMiddleware) HasRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := GetClaims(c)
			if err != nil {
				return err
			}

			if !claims.HasRole(roles...) {
				return echo.NewHTTPError(http.StatusForbidden, "you are not authorized for that action")
			}

			return next(c)
		}
	}
}

// GetClaims extracts the verified auth claims the jwt middleware stored in
// the context
func GetClaims(c echo.Context) (*auth.Claims, error) {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "JWT token missing or invalid")
	}
	claims, ok := token.Claims.(*auth.Claims)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "can't convert jwt.Claims to auth.Claims")
	}
	return claims, nil
}

// CurrentUser returns the user Protect attached to the context
func CurrentUser(c echo.Context) (*domain.User, error) {
	u, ok := c.Get(CurrentUserKey).(*domain.User)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "you are not logged in, please log in to get access")
	}
	return u, nil
}
