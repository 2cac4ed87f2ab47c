package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Error codes used in the error envelope.
const (
	ErrorCodeInvalidRequest    = "invalid_request"
	ErrorCodeValidation        = "validation_error"
	ErrorCodeInvalidGrant      = "invalid_grant"
	ErrorCodeInvalidToken      = "invalid_token"
	ErrorCodeAccessDenied      = "access_denied"
	ErrorCodeNotFound          = "not_found"
	ErrorCodeRateLimitExceeded = "rate_limit_exceeded"
	ErrorCodeServerError       = "server_error"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// APIError is the JSON error envelope returned by every endpoint.
type APIError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	Code        string            `json:"error"`
	Description string            `json:"error_description"`
	Details     map[string]string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Write writes e as the response.
func (e *APIError) Write(w http.ResponseWriter) {
	WriteJSON(w, e.StatusCode, e)
}

// NewAPIError builds an APIError.
func NewAPIError(status int, code, description string) *APIError {
	return &APIError{StatusCode: status, Code: code, Description: description}
}

// WriteError writes an error envelope with the given status and code.
func WriteError(w http.ResponseWriter, status int, code, description string) {
	NewAPIError(status, code, description).Write(w)
}

// WriteJSON writes a JSON response with the given status code.
// It automatically sets the Content-Type header and Cache-Control headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
// This is commonly required for sensitive responses like tokens.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// validate reports fields by their JSON names.
var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// DecodeJSON decodes the request body into dst and runs struct validation
// on it. The returned APIError is ready to be written.
func DecodeJSON(r *http.Request, dst any) *APIError {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return NewAPIError(http.StatusBadRequest, ErrorCodeInvalidRequest, "malformed JSON body")
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return NewAPIError(http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		}

		details := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			details[fe.Field()] = describe(fe)
		}
		return &APIError{
			StatusCode:  http.StatusBadRequest,
			Code:        ErrorCodeValidation,
			Description: "request validation failed",
			Details:     details,
		}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters long"
	case "max":
		return "must be at most " + fe.Param() + " characters long"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}
