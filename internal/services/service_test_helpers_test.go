package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	appErrors "github.com/otslabs/tsgallery/pkg/errors"

	"github.com/otslabs/tsgallery/internal/images"
	"github.com/otslabs/tsgallery/internal/models"
	"github.com/otslabs/tsgallery/internal/store"
	"github.com/otslabs/tsgallery/internal/store/gormstore"
	"github.com/otslabs/tsgallery/internal/store/storetest"
)

type recordServiceFixture struct {
	svc    *RecordService
	store  *gormstore.Store
	blobs  *images.LocalStore
	thumbs *images.Thumbnailer
}

func newRecordServiceFixture(t *testing.T) *recordServiceFixture {
	t.Helper()

	st := storetest.MustOpenTestStore(t)

	blobs, err := images.NewLocalStore(filepath.Join(t.TempDir(), "imgs"))
	require.NoError(t, err)
	thumbs, err := images.NewThumbnailer(filepath.Join(t.TempDir(), "thumbs"), 64, 64, blobs)
	require.NoError(t, err)

	svc, err := NewRecordService(st, blobs, thumbs)
	require.NoError(t, err)

	return &recordServiceFixture{svc: svc, store: st, blobs: blobs, thumbs: thumbs}
}

// flakyStore injects storage failures around a real store.
type flakyStore struct {
	store.Store
	failPut    bool
	failSearch bool
}

func (f *flakyStore) Put(ctx context.Context, rec *models.GenerationRecord) error {
	if f.failPut {
		return appErrors.NewStorage("put_row", errors.New("injected outage"))
	}
	return f.Store.Put(ctx, rec)
}

func (f *flakyStore) Search(ctx context.Context, filter store.Filter, page store.Page) (*store.Result, error) {
	if f.failSearch {
		return nil, appErrors.NewStorage("search", errors.New("injected outage"))
	}
	return f.Store.Search(ctx, filter, page)
}
