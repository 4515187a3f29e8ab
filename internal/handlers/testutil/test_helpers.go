// Package testutil wires a complete API instance against throwaway
// storage for handler tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/otslabs/tsgallery/internal/api"
	"github.com/otslabs/tsgallery/internal/app"
	"github.com/otslabs/tsgallery/internal/gallery"
	"github.com/otslabs/tsgallery/internal/images"
	"github.com/otslabs/tsgallery/internal/models"
	"github.com/otslabs/tsgallery/internal/monitoring"
	"github.com/otslabs/tsgallery/internal/monitoring/checks"
	"github.com/otslabs/tsgallery/internal/services"
	"github.com/otslabs/tsgallery/internal/store/gormstore"
	"github.com/otslabs/tsgallery/internal/store/storetest"
	"github.com/otslabs/tsgallery/pkg/response"
)

// Env encapsulates a fully-wired API instance backed by an in-memory
// record store and a throwaway image directory.
type Env struct {
	T         *testing.T
	Router    *gin.Engine
	Store     *gormstore.Store
	Blobs     *images.LocalStore
	Records   *services.RecordService
	Galleries *services.GalleryService
}

// NewEnv provisions a fresh handler test environment with the schema
// migrated and every route registered.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	st := storetest.MustOpenTestStore(t)

	blobs, err := images.NewLocalStore(filepath.Join(t.TempDir(), "imgs"))
	require.NoError(t, err)
	thumbs, err := images.NewThumbnailer(filepath.Join(t.TempDir(), "thumbs"), 64, 64, blobs)
	require.NoError(t, err)

	records, err := services.NewRecordService(st, blobs, thumbs)
	require.NoError(t, err)
	galleries, err := services.NewGalleryService(records, gallery.NewRegistry(time.Hour))
	require.NoError(t, err)

	health := monitoring.NewHealthManager()
	health.RegisterReadiness(checks.RecordStore(st, 0))
	health.RegisterReadiness(checks.ImageStore(blobs, 0))

	cfg := &app.Config{
		Gallery: app.GalleryConfig{
			SessionMaxIdle: time.Hour,
			PageSize:       20,
			MaxPageSize:    100,
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
	}

	router, err := api.NewRouter(records, galleries, cfg, health)
	require.NoError(t, err)

	return &Env{
		T:         t,
		Router:    router,
		Store:     st,
		Blobs:     blobs,
		Records:   records,
		Galleries: galleries,
	}
}

// SeedRecord inserts a record directly into the store, bypassing the
// write endpoint. The record carries no image so searches keep it.
func (e *Env) SeedRecord(id, prompt string, start time.Time) *models.GenerationRecord {
	e.T.Helper()

	rec := storetest.Record(id, prompt, start)
	rec.ImagePath = ""
	require.NoError(e.T, e.Store.Put(context.Background(), rec))
	return rec
}

// WriteRecordWithImage runs the full write flow with inline PNG bytes
// so the record has a real stored image behind it.
func (e *Env) WriteRecordWithImage(id, prompt string, start time.Time) *models.GenerationRecord {
	e.T.Helper()

	rec, err := e.Records.Write(context.Background(), services.WriteRecordInput{
		ID:               id,
		Prompt:           prompt,
		JobStartTime:     start,
		IsTxt2Img:        true,
		ImageBytes:       PNGBytes(e.T, 16, 16),
		ImageContentType: "image/png",
	})
	require.NoError(e.T, err)
	return rec
}

// PNGBytes renders a small opaque PNG for upload fixtures.
func PNGBytes(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying
// JSON encoding automatically.
func (e *Env) Request(method, path string, body any) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
