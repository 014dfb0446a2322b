package models

import (
	"fmt"
	"net/http"
)

// ErrorKind - машиночитаемый вид ошибки.
type ErrorKind string

const (
	KindBadRequest   ErrorKind = "BadRequest"
	KindUnauthorized ErrorKind = "Unauthorized"
	KindForbidden    ErrorKind = "Forbidden"
	KindNotFound     ErrorKind = "NotFound"
	KindConflict     ErrorKind = "Conflict"
	KindInternal     ErrorKind = "Internal"
)

// ErrorResponse описывает ошибку с кодом, видом и сообщением.
type ErrorResponse struct {
	StatusCode int       `json:"-"`
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"reason"`
}

// NewErrorResponse создает новую ошибку с кодом и сообщением.
func NewErrorResponse(statusCode int, message string) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: statusCode,
		Kind:       kindFor(statusCode),
		Message:    message}
}

// Реализация метода Error() для удовлетворения интерфейса error.
func (e *ErrorResponse) Error() string {
	return e.Message
}

func BadRequest(format string, args ...any) *ErrorResponse {
	return NewErrorResponse(http.StatusBadRequest, fmt.Sprintf(format, args...))
}

func Forbidden(format string, args ...any) *ErrorResponse {
	return NewErrorResponse(http.StatusForbidden, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) *ErrorResponse {
	return NewErrorResponse(http.StatusNotFound, fmt.Sprintf(format, args...))
}

func Conflict(format string, args ...any) *ErrorResponse {
	return NewErrorResponse(http.StatusConflict, fmt.Sprintf(format, args...))
}

func kindFor(statusCode int) ErrorKind {
	switch statusCode {
	case http.StatusBadRequest:
		return KindBadRequest
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	default:
		return KindInternal
	}
}
