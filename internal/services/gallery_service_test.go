package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErrors "github.com/otslabs/tsgallery/pkg/errors"

	"github.com/otslabs/tsgallery/internal/gallery"
	"github.com/otslabs/tsgallery/internal/store"
)

func newGalleryFixture(t *testing.T) (*GalleryService, *recordServiceFixture) {
	t.Helper()

	f := newRecordServiceFixture(t)
	svc, err := NewGalleryService(f.svc, gallery.NewRegistry(0))
	require.NoError(t, err)
	return svc, f
}

func seedPrompts(t *testing.T, f *recordServiceFixture, prompts ...string) {
	t.Helper()

	base := time.Now().Add(-time.Duration(len(prompts)) * time.Hour).Truncate(time.Second)
	for i, prompt := range prompts {
		_, err := f.svc.Write(context.Background(), WriteRecordInput{
			Prompt:       prompt,
			JobStartTime: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}
}

func TestGalleryService_SessionLifecycle(t *testing.T) {
	gal, _ := newGalleryFixture(t)

	session := gal.Open()
	require.NotEmpty(t, session.ID)
	require.Equal(t, gallery.StateList, session.State)
	require.Empty(t, session.Records)

	snap, err := gal.Snapshot(session.ID)
	require.NoError(t, err)
	require.Equal(t, session.ID, snap.ID)
	require.Equal(t, gallery.StateList, snap.State)

	gal.EndSession(session.ID)
	_, err = gal.Snapshot(session.ID)
	require.Error(t, err)
	require.True(t, appErrors.IsKind(err, appErrors.KindNotFound))
}

func TestGalleryService_SearchSelectClose(t *testing.T) {
	gal, f := newGalleryFixture(t)
	seedPrompts(t, f, "red castle", "blue dragon", "green knight")
	ctx := context.Background()

	session := gal.Open()

	listed, err := gal.Search(ctx, session.ID, store.Filter{}, store.Page{})
	require.NoError(t, err)
	require.Equal(t, gallery.StateList, listed.State)
	require.Len(t, listed.Records, 3)
	require.Equal(t, "green knight", listed.Records[0].Prompt)
	require.Equal(t, "red castle", listed.Records[2].Prompt)

	detail, err := gal.Select(session.ID, 1)
	require.NoError(t, err)
	require.Equal(t, gallery.StateDetail, detail.State)
	require.NotNil(t, detail.Selected)
	require.Equal(t, listed.Records[1].ID, detail.Selected.ID)
	require.Equal(t, "blue dragon", detail.Selected.Prompt)

	closed, err := gal.CloseDetail(session.ID)
	require.NoError(t, err)
	require.Equal(t, gallery.StateList, closed.State)
	require.Nil(t, closed.Selected)
	require.Len(t, closed.Records, 3)
	for i := range listed.Records {
		require.Equal(t, listed.Records[i].ID, closed.Records[i].ID)
	}
	require.Equal(t, listed.Total, closed.Total)
}

func TestGalleryService_SelectOutOfRange(t *testing.T) {
	gal, f := newGalleryFixture(t)
	seedPrompts(t, f, "only one")
	ctx := context.Background()

	session := gal.Open()
	_, err := gal.Search(ctx, session.ID, store.Filter{}, store.Page{})
	require.NoError(t, err)

	_, err = gal.Select(session.ID, 99)
	require.Error(t, err)
	require.True(t, appErrors.IsKind(err, appErrors.KindValidation))

	snap, err := gal.Snapshot(session.ID)
	require.NoError(t, err)
	require.Equal(t, gallery.StateList, snap.State)
	require.Len(t, snap.Records, 1)
}

func TestGalleryService_UnknownSession(t *testing.T) {
	gal, _ := newGalleryFixture(t)
	ctx := context.Background()

	_, err := gal.Snapshot("nope")
	require.True(t, appErrors.IsKind(err, appErrors.KindNotFound))
	_, err = gal.Search(ctx, "nope", store.Filter{}, store.Page{})
	require.True(t, appErrors.IsKind(err, appErrors.KindNotFound))
	_, err = gal.Select("nope", 0)
	require.True(t, appErrors.IsKind(err, appErrors.KindNotFound))
	_, err = gal.CloseDetail("nope")
	require.True(t, appErrors.IsKind(err, appErrors.KindNotFound))

	gal.EndSession("nope")
}

func TestGalleryService_FailedSearchKeepsResults(t *testing.T) {
	f := newRecordServiceFixture(t)
	flaky := &flakyStore{Store: f.store}
	records, err := NewRecordService(flaky, f.blobs, f.thumbs)
	require.NoError(t, err)
	gal, err := NewGalleryService(records, gallery.NewRegistry(0))
	require.NoError(t, err)

	seedPrompts(t, f, "stays put")
	ctx := context.Background()

	session := gal.Open()
	_, err = gal.Search(ctx, session.ID, store.Filter{}, store.Page{})
	require.NoError(t, err)

	flaky.failSearch = true
	_, err = gal.Search(ctx, session.ID, store.Filter{Prompt: "anything"}, store.Page{})
	require.Error(t, err)
	require.True(t, appErrors.IsKind(err, appErrors.KindStorage))

	snap, err := gal.Snapshot(session.ID)
	require.NoError(t, err)
	require.Len(t, snap.Records, 1)
	require.Equal(t, "stays put", snap.Records[0].Prompt)
}
