package httpx_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aussiebroadwan/agentauth/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}), mark("outer"), nil, mark("inner"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc", "abc", true},
		{"Bearer   abc  ", "abc", true},
		{"Bearer ", "", false},
		{"Basic dXNlcjpwYXNz", "", false},
		{"abc", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		token, ok := httpx.BearerToken(req)
		require.Equal(t, tt.ok, ok, "header %q", tt.header)
		require.Equal(t, tt.token, token, "header %q", tt.header)
	}
}

func stubVerifier(valid string, p httpx.Principal) httpx.BearerVerifier {
	return httpx.BearerVerifierFunc(func(_ context.Context, token string) (httpx.Principal, bool) {
		if token != valid {
			return httpx.Principal{}, false
		}
		return p, true
	})
}

func TestAuthnMiddleware(t *testing.T) {
	alice := httpx.Principal{ID: "u1", Email: "alice@example.com", Role: "user"}

	var seen httpx.Principal
	var seenToken string
	h := httpx.AuthnMiddleware(stubVerifier("good", alice))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = httpx.PrincipalFromContext(r.Context())
		seenToken = httpx.TokenFromContext(r.Context())
		require.Equal(t, "u1", httpx.UserIDFromContext(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer good")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, alice, seen)
		require.Equal(t, "good", seenToken)
	})

	for name, header := range map[string]string{"missing": "", "invalid": "Bearer bad"} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, http.StatusUnauthorized, rec.Code)
			require.Contains(t, rec.Header().Get("WWW-Authenticate"), `error="invalid_token"`)

			var body httpx.APIError
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			require.Equal(t, httpx.ErrorCodeInvalidToken, body.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	admin := httpx.Principal{ID: "a1", Role: "admin"}
	user := httpx.Principal{ID: "u1", Role: "user"}

	h := httpx.Chain(okHandler,
		httpx.AuthnMiddleware(httpx.BearerVerifierFunc(func(_ context.Context, token string) (httpx.Principal, bool) {
			switch token {
			case "admin":
				return admin, true
			case "user":
				return user, true
			}
			return httpx.Principal{}, false
		})),
		httpx.RequireRole("admin"),
	)

	for token, want := range map[string]int{"admin": http.StatusOK, "user": http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, want, rec.Code, "token %s", token)
	}
}

type registerBody struct {
	Fullname string `json:"fullname" validate:"required,max=100"`
	Email    string `json:"email" validate:"required"`
}

func TestDecodeJSON(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"fullname":"Ada","email":"a@b.com","extra":1}`))
		var body registerBody
		require.Nil(t, httpx.DecodeJSON(req, &body))
		require.Equal(t, "Ada", body.Fullname)
	})

	t.Run("malformed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"fullname":`))
		var body registerBody
		apiErr := httpx.DecodeJSON(req, &body)
		require.NotNil(t, apiErr)
		require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		require.Equal(t, httpx.ErrorCodeInvalidRequest, apiErr.Code)
	})

	t.Run("validation uses json names", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"fullname":"Ada"}`))
		var body registerBody
		apiErr := httpx.DecodeJSON(req, &body)
		require.NotNil(t, apiErr)
		require.Equal(t, httpx.ErrorCodeValidation, apiErr.Code)
		require.Equal(t, map[string]string{"email": "is required"}, apiErr.Details)
	})
}

func TestAPIError_Write(t *testing.T) {
	rec := httptest.NewRecorder()
	httpx.NewAPIError(http.StatusConflict, "conflict", "already there").Write(rec)

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"error":"conflict","error_description":"already there"}`, rec.Body.String())
}
