package middle

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"healthwatch/config"
	"healthwatch/internals/security"
	"healthwatch/pkg/utils"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenService(t *testing.T) *security.TokenService {
	t.Helper()
	ts, err := security.NewTokenService(&config.AuthConfig{Secret: "mw-secret", ExpiryMin: 5})
	require.NoError(t, err)
	return ts
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	h := NewAuthMiddleware(newTokenService(t)).Handle(http.HandlerFunc(okHandler))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var body utils.Envelope[any]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.NotNil(t, body.Error)
	assert.Equal(t, "missing Authorization header", body.Error.Message)
}

func TestAuthMiddlewareRejectsMalformedHeader(t *testing.T) {
	h := NewAuthMiddleware(newTokenService(t)).Handle(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthAndScope(t *testing.T) {
	ts := newTokenService(t)
	auth := NewAuthMiddleware(ts)
	h := auth.Handle(RequireScope(security.ScopeRunChecks)(http.HandlerFunc(okHandler)))

	readOnly, err := ts.GenerateAccessToken("dashboard", security.ScopeRead)
	require.NoError(t, err)
	runner, err := ts.GenerateAccessToken("ci", security.ScopeRead, security.ScopeRunChecks)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"invalid token", "garbage", http.StatusUnauthorized},
		{"missing scope", readOnly, http.StatusForbidden},
		{"scope granted", runner, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/checks/run", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRequireScopeWithoutAuthIsUnauthorised(t *testing.T) {
	rec := httptest.NewRecorder()
	RequireScope(security.ScopeRunChecks)(http.HandlerFunc(okHandler)).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoggerRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf)

	h := Logger(&l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "/healthz", entry["path"])
	assert.EqualValues(t, http.StatusServiceUnavailable, entry["status"])
}
