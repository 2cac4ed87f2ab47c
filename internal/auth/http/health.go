package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/agentauth/pkg/authsdk"
	"github.com/aussiebroadwan/agentauth/pkg/httpx"
)

type health struct {
	startTime time.Time
	version   string
}

func (h health) response(status string, checks *authsdk.HealthChecks) authsdk.HealthResponse {
	return authsdk.HealthResponse{
		Status:  status,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
		Version: h.version,
		Checks:  checks,
	}
}

// LivezHandler godoc
//
//	@Summary		Health Check Endpoint
//	@Description	Liveness probe. Always 200 while the process is serving.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	h := health{startTime: startTime, version: version}
	return func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, h.response("ok", nil))
	}
}

// pinger is the part of store.Store the readiness probe needs.
type pinger interface {
	Ping(ctx context.Context) error
}

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe covering the user store and the token signer.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(startTime time.Time, version string, db pinger, signerReady func() bool) http.HandlerFunc {
	h := health{startTime: startTime, version: version}
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &authsdk.HealthChecks{Database: "ok", Signer: "ok"}
		ready := true

		if err := db.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			ready = false
		}
		if !signerReady() {
			checks.Signer = "error: token round-trip failed"
			ready = false
		}

		if !ready {
			httpx.WriteJSON(w, http.StatusServiceUnavailable, h.response("degraded", checks))
			return
		}
		httpx.WriteJSON(w, http.StatusOK, h.response("ok", checks))
	}
}
