package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/agentauth/pkg/httpx"
)

// Error codes returned by the service.
const (
	ErrorCodeInvalidRequest    = httpx.ErrorCodeInvalidRequest
	ErrorCodeValidation        = httpx.ErrorCodeValidation
	ErrorCodeInvalidGrant      = httpx.ErrorCodeInvalidGrant
	ErrorCodeInvalidToken      = httpx.ErrorCodeInvalidToken
	ErrorCodeAccessDenied      = httpx.ErrorCodeAccessDenied
	ErrorCodeNotFound          = httpx.ErrorCodeNotFound
	ErrorCodeRateLimitExceeded = httpx.ErrorCodeRateLimitExceeded
	ErrorCodeServerError       = httpx.ErrorCodeServerError
)

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
	Details     map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches another *APIError by code, so callers can write
// errors.Is(err, &authsdk.APIError{Code: authsdk.ErrorCodeInvalidGrant}).
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

// parseErrorResponse turns a non-2xx response body into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
			Details:     errResp.Details,
		}
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
