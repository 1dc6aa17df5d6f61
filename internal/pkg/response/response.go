package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xyz-asif/callboard/internal/pkg/validator"
	apperrors "github.com/xyz-asif/callboard/pkg/errors"
)

// APIResponse is the envelope every JSON endpoint answers with
type APIResponse struct {
	Success    bool        `json:"success" example:"true"`
	StatusCode int         `json:"statusCode" example:"200"`
	Message    string      `json:"message,omitempty" example:"ok"`
	Code       string      `json:"code,omitempty" example:"CALL_NOT_FOUND"`
	Data       interface{} `json:"data,omitempty"`
}

// Success sends a 200 OK response with data
func Success(c *gin.Context, data interface{}, message ...string) {
	write(c, http.StatusOK, data, message...)
}

// Created sends a 201 Created response
func Created(c *gin.Context, data interface{}, message ...string) {
	write(c, http.StatusCreated, data, message...)
}

// NoContent sends a bare 204
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func write(c *gin.Context, status int, data interface{}, message ...string) {
	msg := ""
	if len(message) > 0 {
		msg = message[0]
	}
	c.JSON(status, APIResponse{
		Success:    true,
		StatusCode: status,
		Message:    msg,
		Data:       data,
	})
}

// Error sends an error response with custom status code and message
func Error(c *gin.Context, statusCode int, message string, errorCode ...string) {
	code := ""
	if len(errorCode) > 0 {
		code = errorCode[0]
	}

	c.JSON(statusCode, APIResponse{
		Success:    false,
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	})
}

// FromError reports err using its application status, or 500 when it has none.
// The underlying error is attached to the gin context so the request logger sees it.
func FromError(c *gin.Context, err error) {
	_ = c.Error(err)
	if appErr, ok := apperrors.As(err); ok {
		Error(c, appErr.Status, appErr.Message, appErr.Code)
		return
	}
	InternalServerError(c, "Internal server error", "INTERNAL_ERROR")
}

// BadRequest sends a 400 Bad Request error
func BadRequest(c *gin.Context, message string, errorCode ...string) {
	Error(c, http.StatusBadRequest, message, errorCode...)
}

// Unauthorized sends a 401 Unauthorized error
func Unauthorized(c *gin.Context, message string, errorCode ...string) {
	Error(c, http.StatusUnauthorized, message, errorCode...)
}

// Forbidden sends a 403 Forbidden error
func Forbidden(c *gin.Context, message string, errorCode ...string) {
	Error(c, http.StatusForbidden, message, errorCode...)
}

// NotFound sends a 404 Not Found error
func NotFound(c *gin.Context, message string, errorCode ...string) {
	Error(c, http.StatusNotFound, message, errorCode...)
}

// Conflict sends a 409 Conflict error
func Conflict(c *gin.Context, message string, errorCode ...string) {
	Error(c, http.StatusConflict, message, errorCode...)
}

// UnsupportedMediaType sends a 415 error
func UnsupportedMediaType(c *gin.Context, message string, errorCode ...string) {
	Error(c, http.StatusUnsupportedMediaType, message, errorCode...)
}

// TooManyRequests sends a 429 error
func TooManyRequests(c *gin.Context, message string, errorCode ...string) {
	Error(c, http.StatusTooManyRequests, message, errorCode...)
}

// InternalServerError sends a 500 Internal Server Error
func InternalServerError(c *gin.Context, message string, errorCode ...string) {
	Error(c, http.StatusInternalServerError, message, errorCode...)
}

// ServiceUnavailable sends a 503 Service Unavailable error
func ServiceUnavailable(c *gin.Context, message string, errorCode ...string) {
	Error(c, http.StatusServiceUnavailable, message, errorCode...)
}

// BindError reports a request that failed binding or validation.
func BindError(c *gin.Context, err error) {
	BadRequest(c, validator.Message(err), "VALIDATION_FAILED")
}
