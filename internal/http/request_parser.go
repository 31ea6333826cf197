// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxBodyBytes bounds every request body.
const MaxBodyBytes = 16 << 10

var errBadRequest = errors.New("bad request")

// TextRequest is the body of a submission.
type TextRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

// RequestBodyParser reads a body once and decodes it as JSON, form data or
// plain text depending on Content-Type.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	isJSON      bool
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			p.contentType = mt
		}
	}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	return p
}

// Parse decodes the body. Plain text bodies are kept as-is.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}
	if len(p.body) == 0 {
		return nil
	}

	switch p.contentType {
	case "application/json":
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			break
		}
		// A literal null decodes to a nil map; treat it as an empty object.
		if p.jsonData == nil {
			p.jsonData = map[string]any{}
		}
		p.isJSON = true
	case "application/x-www-form-urlencoded":
		p.formData, p.err = url.ParseQuery(string(p.body))
	}
	return p.err
}

// Get returns a string value from the parsed data. A plain text body is
// returned for any key.
func (p *RequestBodyParser) Get(key string) string {
	switch {
	case p.isJSON:
		if s, ok := p.jsonData[key].(string); ok {
			return sanitizeInput(s)
		}
		return ""
	case p.formData != nil:
		return sanitizeInput(p.formData.Get(key))
	default:
		return sanitizeInput(string(p.body))
	}
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.isJSON
}

// parseTextRequest extracts and validates the submission text.
func parseTextRequest(w http.ResponseWriter, r *http.Request, v *validator.Validate) (TextRequest, error) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		return TextRequest{}, fmt.Errorf("%w: unreadable body: %v", errBadRequest, err)
	}
	req := TextRequest{Text: p.Get("text")}
	if err := v.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Tag() == "max" {
			return TextRequest{}, fmt.Errorf("%w: text is too long", errBadRequest)
		}
		// Blank text is reported the same way the service reports it.
		return req, nil
	}
	return req, nil
}

// sanitizeInput drops control characters except tab and newlines, then trims.
func sanitizeInput(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
