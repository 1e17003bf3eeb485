// This file implements a fluent builder for JSON responses and the mapping
// from domain errors to status codes.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	data, err := json.Marshal(b.body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"encoding response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(data)
	_, _ = w.Write([]byte("\n"))
}

// ErrorBody is the envelope of every error response.
type ErrorBody struct {
	Error    string `json:"error"`
	Field    string `json:"field,omitempty"`
	Category string `json:"category,omitempty"`
	Count    int    `json:"count,omitempty"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(ErrorBody{Error: message})
}

// NotFoundResponse creates a 404 Not Found error response.
func NotFoundResponse(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// TooManyRequestsResponse creates a 429 response.
func TooManyRequestsResponse() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded")
}

// ErrorFor maps err to a response:
//
//	*BadRequestError    400
//	*core.ValidationError 422 with the field
//	*core.ConflictError 409 with the usage count
//	core.ErrNotFound    404
//	anything else       500 without details
func ErrorFor(err error) *JSONResponseBuilder {
	var br *BadRequestError
	if errors.As(err, &br) {
		return ErrorResponse(http.StatusBadRequest, br.Error())
	}
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		return NewJSONResponse().
			Status(http.StatusUnprocessableEntity).
			Body(ErrorBody{Error: ve.Error(), Field: ve.Field})
	}
	if ce, ok := core.AsConflict(err); ok {
		return NewJSONResponse().
			Status(http.StatusConflict).
			Body(ErrorBody{Error: ce.Error(), Category: ce.Category, Count: ce.Count})
	}
	if errors.Is(err, core.ErrNotFound) {
		return NotFoundResponse(err.Error())
	}
	return ErrorResponse(http.StatusInternalServerError, "internal error")
}

// writeError logs the failure and writes the mapped response. Client errors
// are logged at debug level only.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	resp := ErrorFor(err)
	logger := log.FromContext(ctx)
	fields := log.NewFields().WithErrorType(errorType(resp.statusCode))
	if resp.statusCode >= http.StatusInternalServerError {
		log.NewStructuredLogger(logger).LogError(ctx, "Request failed", err, "", "", fields)
	} else {
		logger.DebugContext(ctx, "Request rejected", fields.WithError(err).ToSlice()...)
	}
	resp.Write(w)
}

func errorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnprocessableEntity:
		return "validation"
	case http.StatusConflict:
		return "conflict"
	case http.StatusNotFound:
		return "not_found"
	default:
		return "internal"
	}
}
