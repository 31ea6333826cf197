// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for JSON responses and maps
// domain errors onto status codes.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"kharcha/internal/core"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	data       any
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

// Data sets the value encoded as the body.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.data = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.data == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.data)
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, code, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Data(ErrorBody{Error: code, Message: message})
}

// FromError maps err onto a status code and a client-safe message.
func FromError(err error) *JSONResponseBuilder {
	var ve *core.ValidationError
	switch {
	case errors.Is(err, errBadRequest):
		return ErrorResponse(http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, core.ErrEmptyInput):
		return ErrorResponse(http.StatusBadRequest, "empty_input", "Tell me what you bought.")
	case errors.Is(err, core.ErrMalformedResponse):
		return ErrorResponse(http.StatusBadGateway, "malformed_response", "Could not make sense of that. Try rephrasing.")
	case errors.As(err, &ve):
		return ErrorResponse(http.StatusUnprocessableEntity, "invalid_entry", ve.Error())
	case errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrInvalidItemName),
		errors.Is(err, core.ErrInvalidDate), errors.Is(err, core.ErrInvalidClassification):
		return ErrorResponse(http.StatusUnprocessableEntity, "invalid_entry", err.Error())
	case errors.Is(err, core.ErrGuardBusy):
		return ErrorResponse(http.StatusConflict, "confirmation_pending", "Confirm or cancel the pending expense first.")
	case errors.Is(err, core.ErrGuardIdle):
		return ErrorResponse(http.StatusConflict, "nothing_to_confirm", "There is nothing waiting for confirmation.")
	case errors.Is(err, core.ErrNotFound):
		return ErrorResponse(http.StatusNotFound, "not_found", "No such expense.")
	case errors.Is(err, core.ErrReviewUnavailable):
		return ErrorResponse(http.StatusBadGateway, "review_unavailable", "The reviewer is out for chai. Try again later.")
	case errors.Is(err, core.ErrInferenceFailed):
		return ErrorResponse(http.StatusBadGateway, "inference_failed", "The model did not answer. Try again.")
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorResponse(http.StatusGatewayTimeout, "timeout", "The request took too long.")
	default:
		return ErrorResponse(http.StatusInternalServerError, "internal", http.StatusText(http.StatusInternalServerError))
	}
}
