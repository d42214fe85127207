package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes shared across handlers.
const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeInvalidGroupKey = "INVALID_GROUP_KEY"
	CodeInvalidMerge    = "INVALID_MERGE"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeOptionInUse     = "OPTION_IN_USE"
	CodeSlugConflict    = "SLUG_CONFLICT"
	CodeInternal        = "INTERNAL_ERROR"
)

// ContextRequestID is the gin context key holding the request id set by the
// request-id middleware.
const ContextRequestID = "request_id"

// ErrorInfo is the error portion of the response envelope.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorBody is the standard error envelope.
type ErrorBody struct {
	Error     ErrorInfo `json:"error"`
	RequestID string    `json:"request_id,omitempty"`
}

// RequestID returns the request id attached to the context, if any.
func RequestID(c *gin.Context) string {
	return c.GetString(ContextRequestID)
}

// OK sends a 200 JSON response, echoing the request id in the body.
func OK(c *gin.Context, payload gin.H) {
	send(c, http.StatusOK, payload)
}

// Created sends a 201 JSON response.
func Created(c *gin.Context, payload gin.H) {
	send(c, http.StatusCreated, payload)
}

func send(c *gin.Context, status int, payload gin.H) {
	if payload == nil {
		payload = gin.H{}
	}
	if rid := RequestID(c); rid != "" {
		payload["request_id"] = rid
	}
	c.JSON(status, payload)
}

// Error sends an error envelope with the given status and code.
func Error(c *gin.Context, status int, code, message string, details any) {
	c.JSON(status, ErrorBody{
		Error:     ErrorInfo{Code: code, Message: message, Details: details},
		RequestID: RequestID(c),
	})
}

// BadRequest sends 400 with the given code (VALIDATION_ERROR et al).
func BadRequest(c *gin.Context, code, message string) {
	Error(c, http.StatusBadRequest, code, message, nil)
}

// Unauthorized sends 401 with a generic message.
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, CodeUnauthorized, message, nil)
}

// Forbidden sends 403.
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, CodeForbidden, message, nil)
}

// NotFound sends 404.
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, CodeNotFound, message, nil)
}

// Conflict sends 409 with remediation details.
func Conflict(c *gin.Context, code, message string, details any) {
	Error(c, http.StatusConflict, code, message, details)
}

// TooManyRequests sends 429.
func TooManyRequests(c *gin.Context, message string) {
	Error(c, http.StatusTooManyRequests, "RATE_LIMITED", message, nil)
}

// Internal sends 500 without leaking internal error text.
func Internal(c *gin.Context) {
	Error(c, http.StatusInternalServerError, CodeInternal, "internal error", nil)
}
