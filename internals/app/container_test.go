package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"healthwatch/config"
	"healthwatch/internals/modules/status"
	"healthwatch/internals/security"
	"healthwatch/pkg/logger"
	"healthwatch/pkg/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(targetURL string) *config.Config {
	notCritical := false
	return &config.Config{
		Env:         config.EnvDevelopment,
		ServiceName: "healthwatch-test",
		Monitoring: config.MonitoringConfig{
			CheckInterval:    time.Second,
			FailureThreshold: 2,
			DefaultTimeout:   time.Second,
			MaxConcurrency:   4,
			UserAgent:        "healthwatch/test",
		},
		Targets: []config.TargetConfig{
			{Name: "api", URL: targetURL, Method: http.MethodGet, ExpectedStatus: http.StatusOK, Timeout: time.Second},
			{Name: "docs", URL: targetURL + "/docs", Method: http.MethodGet, ExpectedStatus: http.StatusOK, Critical: &notCritical},
		},
		Storage: config.StorageConfig{Driver: config.StorageMemory},
		Notification: config.NotificationConfig{
			Workers:     1,
			QueueSize:   10,
			SendTimeout: time.Second,
		},
		Auth: config.AuthConfig{ExpiryMin: 5},
	}
}

func TestTargetsConversion(t *testing.T) {
	targets := Targets(testConfig("http://example.com"))

	require.Len(t, targets, 2)
	assert.Equal(t, "api", targets[0].Name)
	assert.True(t, targets[0].Critical, "unset critical flag defaults to critical")
	assert.False(t, targets[1].Critical)
	assert.Equal(t, time.Second, targets[0].Timeout)
}

func TestContainerEndToEnd(t *testing.T) {
	var up atomic.Bool
	up.Store(true)
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !up.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	ctx := context.Background()
	c, err := NewContainer(ctx, testConfig(target.URL), logger.Nop())
	require.NoError(t, err)
	c.AlertSvc.Start()
	defer func() {
		c.AlertSvc.Stop()
		require.NoError(t, c.Shutdown(ctx))
	}()

	router := RegisterRoutes(c)

	up.Store(false)
	c.Engine.RunCycle(ctx)
	c.Engine.RunCycle(ctx)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body utils.Envelope[status.StatusResponse]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 2, body.Data.Down)
	assert.NotEmpty(t, body.RequestID)

	up.Store(true)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checks/run", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	stats := c.Tracker.Statistics()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Resolved)
}

func TestContainerAuthProtectsAPI(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Auth.Secret = "container-secret"

	c, err := NewContainer(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	router := RegisterRoutes(c)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "liveness stays public")

	token, err := c.TokenSvc.GenerateAccessToken("dashboard", security.ScopeRead)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/checks/run", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestContainerRedisStorageAndStatus(t *testing.T) {
	mr := miniredis.RunT(t)
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer target.Close()

	cfg := testConfig(target.URL)
	cfg.Targets = cfg.Targets[:1]
	cfg.Monitoring.FailureThreshold = 1
	cfg.Storage.Driver = config.StorageRedis
	cfg.Redis = config.RedisConfig{URL: "redis://" + mr.Addr(), PublishStatus: true}

	ctx := context.Background()
	c, err := NewContainer(ctx, cfg, logger.Nop())
	require.NoError(t, err)
	c.AlertSvc.Start()

	c.Engine.RunCycle(ctx)
	c.AlertSvc.Stop()

	assert.Equal(t, "DOWN", mr.HGet("monitor:status:api", "status"))
	assert.Equal(t, "503", mr.HGet("monitor:status:api", "status_code"))

	active := c.Tracker.ActiveIncidents()
	require.Len(t, active, 1)
	assert.Equal(t, "ACTIVE", mr.HGet("monitor:incident:"+active[0].ID, "status"))

	// a second process sees the persisted incident
	require.NoError(t, c.Shutdown(ctx))
	c2, err := NewContainer(ctx, cfg, logger.Nop())
	require.NoError(t, err)
	defer c2.Shutdown(ctx)

	n, err := c2.Tracker.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, c2.Engine.Reconcile(ctx))
}

func TestContainerFileStorage(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Storage = config.StorageConfig{Driver: config.StorageFile, IncidentsDir: filepath.Join(t.TempDir(), "incidents")}

	c, err := NewContainer(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	defer c.Shutdown(context.Background())

	n, err := c.Tracker.Load(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestContainerRedisUnavailable(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Redis = config.RedisConfig{URL: "redis://127.0.0.1:1", DialTimeout: 100 * time.Millisecond}

	_, err := NewContainer(context.Background(), cfg, logger.Nop())
	assert.Error(t, err)
}
