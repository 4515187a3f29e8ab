package gormstore_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/otslabs/tsgallery/internal/models"
	"github.com/otslabs/tsgallery/internal/store"
	"github.com/otslabs/tsgallery/internal/store/gormstore"
	"github.com/otslabs/tsgallery/internal/store/storetest"
	appErrors "github.com/otslabs/tsgallery/pkg/errors"
)

func seedHours(t *testing.T, s *gormstore.Store, n int) []*models.GenerationRecord {
	t.Helper()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)
	records := make([]*models.GenerationRecord, 0, n)
	for i := 0; i < n; i++ {
		rec := storetest.Record(
			fmt.Sprintf("rec-%02d", i),
			"castle on a hill",
			base.Add(time.Duration(i)*time.Hour),
		)
		require.NoError(t, s.Put(context.Background(), rec))
		records = append(records, rec)
	}
	return records
}

func TestPutGetRoundTrip(t *testing.T) {
	s := storetest.MustOpenTestStore(t)
	ctx := context.Background()

	rec := storetest.Record("rec-1", "masterpiece, castle on a hill", time.Date(2024, 3, 15, 10, 30, 0, 0, time.Local))
	rec.NegativePrompt = "blurry, lowres"
	rec.NegativePromptSplits = []string{"blurry", "lowres"}
	rec.Parameters = "masterpiece, castle on a hill\nNegative prompt: blurry, lowres\nSteps: 20, Sampler: Euler a, Seed: 42"
	rec.Seed = 42
	rec.UsedTimeInSeconds = 13
	rec.ModelHash = "879db523c3"
	rec.Extra = map[string]any{"Denoising strength": "0.4"}

	require.NoError(t, s.Put(ctx, rec))

	got, err := s.Get(ctx, "rec-1")
	require.NoError(t, err)
	require.Equal(t, rec.Prompt, got.Prompt)
	require.Equal(t, rec.NegativePrompt, got.NegativePrompt)
	require.Equal(t, rec.PromptSplits, got.PromptSplits)
	require.Equal(t, rec.NegativePromptSplits, got.NegativePromptSplits)
	require.Equal(t, rec.Parameters, got.Parameters)
	require.Equal(t, rec.Model, got.Model)
	require.Equal(t, rec.Seed, got.Seed)
	require.Equal(t, rec.CFGScale, got.CFGScale)
	require.Equal(t, rec.UsedTimeInSeconds, got.UsedTimeInSeconds)
	require.True(t, got.IsTxt2Img)
	require.True(t, rec.JobStartTime.Equal(got.JobStartTime))
	require.Equal(t, rec.ImagePath, got.ImagePath)
	require.Equal(t, rec.ModelHash, got.ModelHash)
	require.Equal(t, "0.4", got.Extra["Denoising strength"])

	// The same row comes back through search untouched.
	res, err := s.Search(ctx, store.Filter{}, store.Page{Size: 10})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	require.Equal(t, got, res.Records[0])
}

func TestPutOverwritesExistingRow(t *testing.T) {
	s := storetest.MustOpenTestStore(t)
	ctx := context.Background()

	rec := storetest.Record("rec-1", "first prompt", time.Now())
	require.NoError(t, s.Put(ctx, rec))

	rec.Prompt = "second prompt"
	require.NoError(t, s.Put(ctx, rec))

	got, err := s.Get(ctx, "rec-1")
	require.NoError(t, err)
	require.Equal(t, "second prompt", got.Prompt)

	res, err := s.Search(ctx, store.Filter{}, store.Page{Size: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Total)
}

func TestPutRequiresID(t *testing.T) {
	s := storetest.MustOpenTestStore(t)

	err := s.Put(context.Background(), &models.GenerationRecord{Prompt: "p"})
	require.Error(t, err)
	require.True(t, appErrors.IsKind(err, appErrors.KindValidation))
}

func TestGetMissingRecord(t *testing.T) {
	s := storetest.MustOpenTestStore(t)

	_, err := s.Get(context.Background(), "nope")
	require.Error(t, err)
	require.True(t, appErrors.IsKind(err, appErrors.KindNotFound))
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := storetest.MustOpenTestStore(t)
	ctx := context.Background()

	rec := storetest.Record("rec-1", "castle", time.Now())
	require.NoError(t, s.Put(ctx, rec))
	require.NoError(t, s.Delete(ctx, "rec-1"))
	require.NoError(t, s.Delete(ctx, "rec-1"))

	_, err := s.Get(ctx, "rec-1")
	require.True(t, appErrors.IsKind(err, appErrors.KindNotFound))
}

func TestSearchOrdersMostRecentFirst(t *testing.T) {
	s := storetest.MustOpenTestStore(t)
	seedHours(t, s, 5)

	res, err := s.Search(context.Background(), store.Filter{}, store.Page{Size: 10})
	require.NoError(t, err)
	require.Equal(t, int64(5), res.Total)
	require.Len(t, res.Records, 5)

	for i := 1; i < len(res.Records); i++ {
		prev := res.Records[i-1].JobStartTime
		cur := res.Records[i].JobStartTime
		require.False(t, prev.Before(cur), "records out of order at %d", i)
	}
}

func TestSearchEmptyStoreIsNotAnError(t *testing.T) {
	s := storetest.MustOpenTestStore(t)

	res, err := s.Search(context.Background(), store.Filter{}, store.Page{Size: 10})
	require.NoError(t, err)
	require.Zero(t, res.Total)
	require.Empty(t, res.Records)
	require.Empty(t, res.NextToken)
}

func TestSearchPaginationToken(t *testing.T) {
	s := storetest.MustOpenTestStore(t)
	seedHours(t, s, 7)
	ctx := context.Background()

	first, err := s.Search(ctx, store.Filter{}, store.Page{Size: 3})
	require.NoError(t, err)
	require.Len(t, first.Records, 3)
	require.Equal(t, int64(7), first.Total)
	require.NotEmpty(t, first.NextToken)

	second, err := s.Search(ctx, store.Filter{}, store.Page{Size: 3, Token: first.NextToken})
	require.NoError(t, err)
	require.Len(t, second.Records, 3)
	require.NotEmpty(t, second.NextToken)

	third, err := s.Search(ctx, store.Filter{}, store.Page{Size: 3, Token: second.NextToken})
	require.NoError(t, err)
	require.Len(t, third.Records, 1)
	require.Empty(t, third.NextToken)

	seen := map[string]bool{}
	for _, page := range [][]*models.GenerationRecord{first.Records, second.Records, third.Records} {
		for _, rec := range page {
			require.False(t, seen[rec.ID], "record %s returned twice", rec.ID)
			seen[rec.ID] = true
		}
	}
	require.Len(t, seen, 7)
}

func TestSearchRejectsGarbageToken(t *testing.T) {
	s := storetest.MustOpenTestStore(t)

	_, err := s.Search(context.Background(), store.Filter{}, store.Page{Size: 3, Token: "@@@"})
	require.Error(t, err)
	require.True(t, appErrors.IsKind(err, appErrors.KindValidation))
}

func TestSearchDateRangeInclusive(t *testing.T) {
	s := storetest.MustOpenTestStore(t)
	ctx := context.Background()

	early := time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local)
	mid := time.Date(2024, 3, 15, 12, 0, 0, 0, time.Local)
	late := time.Date(2024, 3, 31, 23, 0, 0, 0, time.Local)
	require.NoError(t, s.Put(ctx, storetest.Record("rec-early", "castle", early)))
	require.NoError(t, s.Put(ctx, storetest.Record("rec-mid", "castle", mid)))
	require.NoError(t, s.Put(ctx, storetest.Record("rec-late", "castle", late)))

	res, err := s.Search(ctx, store.Filter{Since: &early, Until: &mid}, store.Page{Size: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), res.Total)
	require.Equal(t, "rec-mid", res.Records[0].ID)
	require.Equal(t, "rec-early", res.Records[1].ID)

	res, err = s.Search(ctx, store.Filter{Since: &late}, store.Page{Size: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Total)
	require.Equal(t, "rec-late", res.Records[0].ID)
}

func TestSearchPromptTokensMustAllMatch(t *testing.T) {
	s := storetest.MustOpenTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, storetest.Record("rec-1", "a castle on a hill", time.Now())))
	require.NoError(t, s.Put(ctx, storetest.Record("rec-2", "a Castle by the sea", time.Now().Add(time.Minute))))
	require.NoError(t, s.Put(ctx, storetest.Record("rec-3", "portrait of a knight", time.Now().Add(2*time.Minute))))

	res, err := s.Search(ctx, store.Filter{Prompt: "castle"}, store.Page{Size: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), res.Total)

	res, err = s.Search(ctx, store.Filter{Prompt: "castle hill"}, store.Page{Size: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Total)
	require.Equal(t, "rec-1", res.Records[0].ID)

	res, err = s.Search(ctx, store.Filter{Prompt: "dragon"}, store.Page{Size: 10})
	require.NoError(t, err)
	require.Zero(t, res.Total)
	require.Empty(t, res.Records)
}

func TestSearchTermAndRangeFilters(t *testing.T) {
	s := storetest.MustOpenTestStore(t)
	ctx := context.Background()

	a := storetest.Record("rec-a", "castle", time.Now())
	a.Model = "meinamix_v11"
	a.Steps = 20
	b := storetest.Record("rec-b", "castle", time.Now().Add(time.Minute))
	b.Model = "dreamshaper_8"
	b.Steps = 40
	c := storetest.Record("rec-c", "castle", time.Now().Add(2*time.Minute))
	c.Model = "dreamshaper_8"
	c.Steps = 60
	c.IsTxt2Img = false
	c.IsImg2Img = true
	for _, rec := range []*models.GenerationRecord{a, b, c} {
		require.NoError(t, s.Put(ctx, rec))
	}

	res, err := s.Search(ctx, store.Filter{Models: []string{"dreamshaper_8"}}, store.Page{Size: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), res.Total)

	min := int64(30)
	max := int64(50)
	res, err = s.Search(ctx, store.Filter{Steps: &store.IntRange{Min: &min, Max: &max}}, store.Page{Size: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Total)
	require.Equal(t, "rec-b", res.Records[0].ID)

	img2img := true
	res, err = s.Search(ctx, store.Filter{Img2Img: &img2img}, store.Page{Size: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Total)
	require.Equal(t, "rec-c", res.Records[0].ID)
}

func TestTotals(t *testing.T) {
	s := storetest.MustOpenTestStore(t)
	ctx := context.Background()

	old := storetest.Record("rec-old", "castle", time.Now().Add(-48*time.Hour))
	old.UsedTimeInSeconds = 30
	recent := storetest.Record("rec-new", "castle", time.Now().Add(-time.Hour))
	recent.UsedTimeInSeconds = 12
	img := storetest.Record("rec-img", "castle", time.Now().Add(-30*time.Minute))
	img.IsTxt2Img = false
	img.IsImg2Img = true
	img.UsedTimeInSeconds = 8

	for _, rec := range []*models.GenerationRecord{old, recent, img} {
		require.NoError(t, s.Put(ctx, rec))
	}

	totals, err := s.Totals(ctx)
	require.NoError(t, err)

	require.Equal(t, int64(3), totals.AllTime.TotalCount)
	require.Equal(t, 50.0, totals.AllTime.TotalUsedTime)
	require.Equal(t, int64(2), totals.AllTime.Txt2ImgCount)
	require.Equal(t, int64(1), totals.AllTime.Img2ImgCount)

	require.Equal(t, int64(2), totals.Last24h.TotalCount)
	require.Equal(t, 20.0, totals.Last24h.TotalUsedTime)
	require.Equal(t, int64(1), totals.Last24h.Img2ImgCount)
}

func TestGroupByModelAndSplits(t *testing.T) {
	s := storetest.MustOpenTestStore(t)
	ctx := context.Background()

	a := storetest.Record("rec-a", "castle hill", time.Now())
	a.Model = "meinamix_v11"
	b := storetest.Record("rec-b", "castle sea", time.Now().Add(time.Minute))
	b.Model = "meinamix_v11"
	c := storetest.Record("rec-c", "knight", time.Now().Add(2*time.Minute))
	c.Model = "dreamshaper_8"
	for _, rec := range []*models.GenerationRecord{a, b, c} {
		require.NoError(t, s.Put(ctx, rec))
	}

	buckets, err := s.GroupBy(ctx, store.GroupModel, 10)
	require.NoError(t, err)
	require.Equal(t, []store.Bucket{
		{Value: "meinamix_v11", Count: 2},
		{Value: "dreamshaper_8", Count: 1},
	}, buckets)

	splits, err := s.GroupBy(ctx, store.GroupPromptSplits, 10)
	require.NoError(t, err)
	require.Equal(t, store.Bucket{Value: "castle", Count: 2}, splits[0])

	_, err = s.GroupBy(ctx, store.GroupField("bogus"), 10)
	require.Error(t, err)
	require.True(t, appErrors.IsKind(err, appErrors.KindValidation))
}

func TestPing(t *testing.T) {
	s := storetest.MustOpenTestStore(t)
	require.NoError(t, s.Ping(context.Background()))
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	s := storetest.MustOpenTestStore(t)
	ctx := context.Background()

	// MustOpenTestStore already migrated once; repeat runs must not fail
	// or disturb existing rows.
	rec := storetest.Record("rec-1", "castle", time.Now())
	require.NoError(t, s.Put(ctx, rec))

	require.NoError(t, s.EnsureSchema(ctx))
	require.NoError(t, s.EnsureSchema(ctx))

	got, err := s.Get(ctx, "rec-1")
	require.NoError(t, err)
	require.Equal(t, rec.Prompt, got.Prompt)
}
