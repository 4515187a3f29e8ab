// Package storetest opens throwaway record stores for tests, the way
// the rest of the suite expects them: in-memory sqlite, schema
// migrated, closed on cleanup.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/otslabs/tsgallery/internal/models"
	"github.com/otslabs/tsgallery/internal/params"
	"github.com/otslabs/tsgallery/internal/store/gormstore"
)

// MustOpenTestStore returns a migrated in-memory store. The handle is
// closed via t.Cleanup.
func MustOpenTestStore(t *testing.T) *gormstore.Store {
	t.Helper()

	s, err := gormstore.OpenStore(gormstore.Config{Driver: "sqlite"})
	require.NoError(t, err)
	require.NoError(t, s.EnsureSchema(context.Background()))

	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

// Record builds a minimal valid generation record for tests.
func Record(id, prompt string, start time.Time) *models.GenerationRecord {
	return &models.GenerationRecord{
		ID:           id,
		Prompt:       prompt,
		PromptSplits: params.SplitPrompt(prompt),
		Model:        "meinamix_v11",
		Sampler:      "Euler a",
		Size:         "512x512",
		Width:        512,
		Height:       512,
		Steps:        20,
		CFGScale:     7,
		IsTxt2Img:    true,
		JobStartTime: start,
		ImagePath:    "/tmp/outputs/" + id + ".png",
	}
}
