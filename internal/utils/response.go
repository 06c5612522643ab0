package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the structured error clients branch on.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Envelope is the standard API response shape: {ok, data?, error?}.
type Envelope struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error *ErrorBody  `json:"error,omitempty"`
}

// Success sends a standard success response.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{OK: true, Data: data})
}

// Created sends a standard resource created response.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{OK: true, Data: data})
}

// Fail sends a standard error response.
func Fail(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, Envelope{OK: false, Error: &ErrorBody{Code: code, Message: message}})
}

// FailWithData sends an error response that still carries a data payload,
// e.g. a conflict pointing at the existing booking.
func FailWithData(c *gin.Context, statusCode int, code, message string, data interface{}) {
	c.JSON(statusCode, Envelope{OK: false, Data: data, Error: &ErrorBody{Code: code, Message: message}})
}

// BadRequest sends a 400 Bad Request error response.
func BadRequest(c *gin.Context, message string) {
	Fail(c, http.StatusBadRequest, "INVALID_INPUT", message)
}

// UnprocessableEntity sends a 422 validation error response.
func UnprocessableEntity(c *gin.Context, message string) {
	Fail(c, http.StatusUnprocessableEntity, "INVALID_INPUT", message)
}

// Unauthorized sends a 401 Unauthorized error response.
func Unauthorized(c *gin.Context, message string) {
	Fail(c, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

// Forbidden sends a 403 Forbidden error response.
func Forbidden(c *gin.Context, message string) {
	Fail(c, http.StatusForbidden, "FORBIDDEN", message)
}

// NotFound sends a 404 Not Found error response.
func NotFound(c *gin.Context, message string) {
	Fail(c, http.StatusNotFound, "NOT_FOUND", message)
}

// Conflict sends a 409 Conflict error response.
func Conflict(c *gin.Context, code, message string) {
	Fail(c, http.StatusConflict, code, message)
}

// InternalServerError sends a 500 response without leaking internals.
func InternalServerError(c *gin.Context, message string) {
	Fail(c, http.StatusInternalServerError, "SERVER_ERROR", message)
}
