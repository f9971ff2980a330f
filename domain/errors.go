package domain

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var (
	// ErrInternalServerError will throw if any the Internal Server Error happen
	ErrInternalServerError = errors.New("internal server error")
	// ErrNotFound will throw if the requested item is not exists
	ErrNotFound = errors.New("your requested item is not found")
	// ErrNoAffected will throw if no documents were affected
	ErrNoAffected = errors.New("no documents were affected")
	// ErrConflict will throw if the current action already exists
	ErrConflict = errors.New("your item already exist")
	// ErrBadParamInput will throw if the given request-body or params is not valid
	ErrBadParamInput = errors.New("given param is not valid")
	// ErrAuthenticationFailure will throw if authentication goes wrong
	ErrAuthenticationFailure = errors.New("authentication failed")
	// ErrForbidden will throw if user tries to do something that he is not
	// authorized to do
	ErrForbidden = errors.New("attempted action is not allowed")
)

// Response statuses: 2xx responses are "success", 4xx are "fail",
// 5xx are "error"
const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)

// Response represents the json envelope every endpoint answers with
type Response struct {
	Status  string      `json:"status"`
	Results *int        `json:"results,omitempty"`
	Token   string      `json:"token,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// OK wraps data into a success envelope
func OK(data interface{}) Response {
	return Response{Status: StatusSuccess, Data: data}
}

// OKList wraps a result list into a success envelope with a results count
func OKList(results int, data interface{}) Response {
	return Response{Status: StatusSuccess, Results: &results, Data: data}
}

// ResponseError represent the response error struct
type ResponseError struct {
	Status  string                                 `json:"status"`
	Message string                                 `json:"message"`
	Fields  validator.ValidationErrorsTranslations `json:"fields,omitempty"`
}

// GetStatusCode gets http code from error
func GetStatusCode(err error, logger *zap.Logger) int {
	if errors.Is(err, ErrAuthenticationFailure) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrNoAffected) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrBadParamInput) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrConflict) {
		return http.StatusBadRequest
	}

	logger.Error("Server error: ", zap.Error(err))
	return http.StatusInternalServerError
}

// ErrorResponse builds a status code plus an error envelope from an error.
// Unclassified errors are logged and reported with a generic message only.
func ErrorResponse(err error, logger *zap.Logger) (int, ResponseError) {
	code := GetStatusCode(err, logger)
	if code >= http.StatusInternalServerError {
		return code, ResponseError{Status: StatusError, Message: "something went very wrong"}
	}
	return code, ResponseError{Status: StatusFail, Message: err.Error()}
}

// ValidationResponse builds an error envelope from translated validation errors
func ValidationResponse(fields validator.ValidationErrorsTranslations) ResponseError {
	return ResponseError{Status: StatusFail, Message: "validation error", Fields: fields}
}
