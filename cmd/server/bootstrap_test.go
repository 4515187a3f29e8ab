package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/otslabs/tsgallery/internal/app"
	"github.com/otslabs/tsgallery/internal/store/tablestore"
)

func testConfig(t *testing.T) *app.Config {
	t.Helper()

	dir := t.TempDir()
	return &app.Config{
		Server: app.ServerConfig{Port: 7870, LogLevel: "info"},
		Store: app.StoreConfig{
			Driver: "sqlite",
			Path:   filepath.Join(dir, "records.sqlite"),
		},
		Images: app.ImagesConfig{
			Backend: "local",
			Dir:     filepath.Join(dir, "images"),
			Thumbnails: app.ThumbnailConfig{
				Dir:    filepath.Join(dir, "thumbnails"),
				Width:  64,
				Height: 64,
			},
		},
		Gallery: app.GalleryConfig{
			SessionMaxIdle: 30 * time.Minute,
			PageSize:       20,
			MaxPageSize:    100,
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
	}
}

type envelope struct {
	Success bool `json:"success"`
	Error   *struct {
		Kind    string `json:"kind"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta *struct {
		Total int64 `json:"total"`
	} `json:"meta"`
}

func doRequest(t *testing.T, stack *runtimeStack, method, path, body string) (int, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	stack.Router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env
}

func TestBootstrapRuntimeServesRecords(t *testing.T) {
	cfg := testConfig(t)

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, stack.Shutdown()) })

	require.NotNil(t, stack.Store)
	require.NotNil(t, stack.Blobs)
	require.NotNil(t, stack.Records)
	require.NotNil(t, stack.Galleries)
	require.NotNil(t, stack.Health)
	require.NotNil(t, stack.Router)

	code, env := doRequest(t, stack, http.MethodPost, "/api/records", `{"prompt":"ruined castle at dawn"}`)
	require.Equal(t, http.StatusCreated, code)
	require.True(t, env.Success)

	code, env = doRequest(t, stack, http.MethodGet, "/api/records", "")
	require.Equal(t, http.StatusOK, code)
	require.True(t, env.Success)
	require.NotNil(t, env.Meta)
	require.EqualValues(t, 1, env.Meta.Total)

	code, _ = doRequest(t, stack, http.MethodGet, "/health/ready", "")
	require.Equal(t, http.StatusOK, code)
}

func TestBootstrapRuntimeSurvivesMissingCredentials(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Driver = "tablestore"

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err, "missing credentials must not abort startup")
	t.Cleanup(func() { require.NoError(t, stack.Shutdown()) })

	code, env := doRequest(t, stack, http.MethodGet, "/api/records", "")
	require.Equal(t, http.StatusInternalServerError, code)
	require.False(t, env.Success)
	require.NotNil(t, env.Error)
	require.Equal(t, "configuration", env.Error.Kind)
	require.Contains(t, env.Error.Message, tablestore.EnvEndpoint)

	code, _ = doRequest(t, stack, http.MethodGet, "/health/ready", "")
	require.Equal(t, http.StatusServiceUnavailable, code)
}

func TestConvertStoreConfig(t *testing.T) {
	cfg := &app.Config{}
	cfg.Store.Path = " ./data/records.sqlite "

	sqlite := convertStoreConfig(cfg, "sqlite")
	require.Equal(t, "sqlite", sqlite.Driver)
	require.Equal(t, "./data/records.sqlite", sqlite.Path)

	cfg.Store.Postgres = app.DBAuthConfig{
		Host:     " db.internal ",
		Port:     5432,
		Database: "gallery",
		Username: "gallery",
		Password: "secret",
	}
	pg := convertStoreConfig(cfg, "postgresql")
	require.Equal(t, "postgres", pg.Driver)
	require.Equal(t, "db.internal", pg.Host)
	require.Equal(t, 5432, pg.Port)
	require.Equal(t, "gallery", pg.Name)

	cfg.Store.MySQL = app.DBAuthConfig{
		Host:     "mysql.internal",
		Port:     3306,
		Database: "gallery",
		Username: "gallery",
		Password: "secret",
	}
	my := convertStoreConfig(cfg, "mysql")
	require.Equal(t, "mysql", my.Driver)
	require.Equal(t, "mysql.internal", my.Host)
	require.Equal(t, 3306, my.Port)
}

func TestLoadApplicationConfigRejectsMissingPath(t *testing.T) {
	_, err := loadApplicationConfig(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist")
}
