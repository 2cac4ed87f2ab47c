package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/agentauth/internal/auth/service"
	"github.com/aussiebroadwan/agentauth/pkg/httpx"
	"github.com/aussiebroadwan/agentauth/pkg/slogx"
)

// writeServiceError maps a service error onto the error envelope. Anything
// unrecognised is logged and reported as a bare 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		(&httpx.APIError{
			StatusCode:  http.StatusBadRequest,
			Code:        httpx.ErrorCodeValidation,
			Description: verr.Message,
			Details:     map[string]string{verr.Field: verr.Message},
		}).Write(w)
	case errors.Is(err, service.ErrInvalidToken):
		httpx.WriteError(w, http.StatusUnauthorized, httpx.ErrorCodeInvalidToken, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		httpx.WriteError(w, http.StatusUnauthorized, httpx.ErrorCodeInvalidGrant, err.Error())
	case errors.Is(err, service.ErrBadRequest):
		httpx.WriteError(w, http.StatusBadRequest, httpx.ErrorCodeInvalidRequest, err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		httpx.WriteError(w, http.StatusNotFound, httpx.ErrorCodeNotFound, err.Error())
	default:
		slogx.FromContext(r.Context()).Error("request failed", slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, httpx.ErrorCodeServerError, "internal server error")
	}
}
