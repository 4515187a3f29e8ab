package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/otslabs/tsgallery/pkg/errors"
	"github.com/otslabs/tsgallery/pkg/logger"
	"github.com/otslabs/tsgallery/pkg/metrics"

	"github.com/otslabs/tsgallery/internal/images"
	"github.com/otslabs/tsgallery/internal/models"
	"github.com/otslabs/tsgallery/internal/params"
	"github.com/otslabs/tsgallery/internal/store"
)

// WriteRecordInput captures one generation event from the host pipeline.
type WriteRecordInput struct {
	ID              string
	Prompt          string
	NegativePrompt  string
	Parameters      string
	Comments        string
	JobStartTime    time.Time
	UsedTimeSeconds int64
	Interrupted     bool
	Skipped         bool
	IsTxt2Img       bool
	IsImg2Img       bool

	// ImagePath points at an image the host already wrote. ImageBytes is
	// the inline alternative: the bytes are staged through the blob store
	// before the row is written.
	ImagePath        string
	ImageBytes       []byte
	ImageContentType string
}

// Catalogs lists the distinct values seen across all records, for the
// search tab's dropdowns.
type Catalogs struct {
	Models   []string `json:"models"`
	Sizes    []string `json:"sizes"`
	Samplers []string `json:"samplers"`
	Versions []string `json:"versions"`
}

// ImageSource tells the handler how to deliver an image: redirect to URL
// when set, otherwise stream Reader.
type ImageSource struct {
	URL         string
	Reader      io.ReadCloser
	ContentType string
}

// RecordService owns the write/search/delete flow around the record store
// and the image blobs next to it.
type RecordService struct {
	store   store.Store
	blobs   images.BlobStore
	thumbs  *images.Thumbnailer
	timeNow func() time.Time
	log     *zap.Logger
}

// NewRecordService constructs a record service once its storage
// collaborators are supplied.
func NewRecordService(st store.Store, blobs images.BlobStore, thumbs *images.Thumbnailer) (*RecordService, error) {
	if st == nil {
		return nil, errors.New("record service: store is required")
	}
	if blobs == nil {
		return nil, errors.New("record service: blob store is required")
	}
	if thumbs == nil {
		return nil, errors.New("record service: thumbnailer is required")
	}
	return &RecordService{
		store:   st,
		blobs:   blobs,
		thumbs:  thumbs,
		timeNow: time.Now,
		log:     logger.WithModule("records"),
	}, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// Write persists one generation event as a single best-effort row. The
// parameters text is parsed into typed fields first; inline image bytes are
// staged before the row goes out so a storage failure leaves no record
// behind.
func (s *RecordService) Write(ctx context.Context, input WriteRecordInput) (*models.GenerationRecord, error) {
	ctx = ensureContext(ctx)
	now := s.timeNow()

	rec := s.buildRecord(input, now)

	staged := ""
	if len(input.ImageBytes) > 0 {
		contentType := strings.TrimSpace(input.ImageContentType)
		if contentType == "" {
			contentType = "image/png"
		}
		key := images.StorageKey(now, rec.ID, images.ExtByContentType(contentType))
		path, err := s.blobs.Save(ctx, key, contentType, bytes.NewReader(input.ImageBytes))
		if err != nil {
			metrics.RecordWrites.WithLabelValues("failure").Inc()
			return nil, appErrors.NewStorage("save_image", err)
		}
		staged = path
		rec.ImagePath = path
	}

	if err := s.store.Put(ctx, rec); err != nil {
		if staged != "" {
			// drop the orphaned blob so nothing of the failed write survives
			_ = s.blobs.Remove(ctx, staged)
		}
		metrics.RecordWrites.WithLabelValues("failure").Inc()
		return nil, err
	}

	metrics.RecordWrites.WithLabelValues("success").Inc()
	s.log.Debug("record written",
		zap.String("record_id", rec.ID),
		zap.String("model", rec.Model),
		zap.Bool("txt2img", rec.IsTxt2Img))
	return rec, nil
}

func (s *RecordService) buildRecord(input WriteRecordInput, now time.Time) *models.GenerationRecord {
	rec := &models.GenerationRecord{
		ID:             strings.TrimSpace(input.ID),
		Prompt:         input.Prompt,
		NegativePrompt: input.NegativePrompt,
		Parameters:     input.Parameters,
		Comments:       input.Comments,
		Interrupted:    input.Interrupted,
		Skipped:        input.Skipped,
		IsTxt2Img:      input.IsTxt2Img,
		IsImg2Img:      input.IsImg2Img,
		ImagePath:      strings.TrimSpace(input.ImagePath),
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	rec.JobStartTime = input.JobStartTime
	if rec.JobStartTime.IsZero() {
		rec.JobStartTime = now
	}
	rec.JobStartTime = rec.JobStartTime.Truncate(time.Second)

	rec.UsedTimeInSeconds = input.UsedTimeSeconds
	if rec.UsedTimeInSeconds == 0 && !input.JobStartTime.IsZero() {
		elapsed := math.Round(now.Sub(input.JobStartTime).Seconds())
		if elapsed > 0 {
			rec.UsedTimeInSeconds = int64(elapsed)
		}
	}

	params.Apply(rec)
	return rec
}

// Search returns one page of matches, most recent first. Rows whose image
// has gone missing are pruned from the store and dropped from the page, so
// the gallery never renders dead thumbnails.
func (s *RecordService) Search(ctx context.Context, filter store.Filter, page store.Page) (*store.Result, error) {
	ctx = ensureContext(ctx)

	result, err := s.store.Search(ctx, filter, page)
	if err != nil {
		metrics.RecordSearches.WithLabelValues("failure").Inc()
		return nil, err
	}

	kept := result.Records[:0]
	for _, rec := range result.Records {
		if rec.ImagePath == "" || s.blobs.Exists(ctx, rec.ImagePath) {
			kept = append(kept, rec)
			continue
		}
		s.pruneRecord(ctx, rec)
		if result.Total > 0 {
			result.Total--
		}
	}
	result.Records = kept

	metrics.RecordSearches.WithLabelValues("success").Inc()
	return result, nil
}

func (s *RecordService) pruneRecord(ctx context.Context, rec *models.GenerationRecord) {
	if err := s.store.Delete(ctx, rec.ID); err != nil {
		s.log.Warn("prune failed",
			zap.String("record_id", rec.ID),
			zap.String("image_path", rec.ImagePath),
			zap.Error(err))
		return
	}
	s.thumbs.Invalidate(rec.ID)
	metrics.PrunedRecords.Inc()
	s.log.Info("pruned record with missing image",
		zap.String("record_id", rec.ID),
		zap.String("image_path", rec.ImagePath))
}

// Get fetches one record by id.
func (s *RecordService) Get(ctx context.Context, id string) (*models.GenerationRecord, error) {
	ctx = ensureContext(ctx)

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, appErrors.NewBadRequest("record id is required")
	}
	return s.store.Get(ctx, id)
}

// Delete removes the record, its stored image, and any cached thumbnail.
func (s *RecordService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	rec, err := s.Get(ctx, id)
	if err != nil {
		metrics.RecordDeletes.WithLabelValues("failure").Inc()
		return err
	}

	if err := s.store.Delete(ctx, rec.ID); err != nil {
		metrics.RecordDeletes.WithLabelValues("failure").Inc()
		return err
	}

	if rec.ImagePath != "" {
		if err := s.blobs.Remove(ctx, rec.ImagePath); err != nil {
			s.log.Warn("image removal failed",
				zap.String("record_id", rec.ID),
				zap.String("image_path", rec.ImagePath),
				zap.Error(err))
		}
	}
	s.thumbs.Invalidate(rec.ID)

	metrics.RecordDeletes.WithLabelValues("success").Inc()
	s.log.Info("record deleted", zap.String("record_id", rec.ID))
	return nil
}

// Totals aggregates counts and generation time, all-time and last 24h.
func (s *RecordService) Totals(ctx context.Context) (*store.Totals, error) {
	return s.store.Totals(ensureContext(ctx))
}

// GroupBy returns the value distribution of a search-index field.
func (s *RecordService) GroupBy(ctx context.Context, field string, size int) ([]store.Bucket, error) {
	ctx = ensureContext(ctx)

	group := store.GroupField(strings.ToLower(strings.TrimSpace(field)))
	if _, ok := group.Column(); !ok {
		return nil, appErrors.NewBadRequest("unknown group field " + field)
	}
	return s.store.GroupBy(ctx, group, size)
}

// Catalogs collects the distinct models, sizes, samplers, and versions.
func (s *RecordService) Catalogs(ctx context.Context) (*Catalogs, error) {
	ctx = ensureContext(ctx)

	catalogs := &Catalogs{}
	for _, part := range []struct {
		field  store.GroupField
		target *[]string
	}{
		{store.GroupModel, &catalogs.Models},
		{store.GroupSize, &catalogs.Sizes},
		{store.GroupSampler, &catalogs.Samplers},
		{store.GroupVersion, &catalogs.Versions},
	} {
		buckets, err := s.store.GroupBy(ctx, part.field, store.DefaultGroupSize)
		if err != nil {
			return nil, err
		}
		values := make([]string, 0, len(buckets))
		for _, bucket := range buckets {
			values = append(values, bucket.Value)
		}
		*part.target = values
	}
	return catalogs, nil
}

// Image resolves the stored image for a record, either as a redirect URL
// (presigned object storage) or a local stream.
func (s *RecordService) Image(ctx context.Context, id string) (*ImageSource, error) {
	ctx = ensureContext(ctx)

	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.ImagePath == "" {
		return nil, appErrors.NewNotFound(id)
	}

	if url, ok := s.blobs.URL(ctx, rec.ImagePath); ok {
		return &ImageSource{URL: url}, nil
	}

	reader, err := s.blobs.Open(ctx, rec.ImagePath)
	if err != nil {
		return nil, appErrors.NewStorage("open_image", err)
	}
	return &ImageSource{Reader: reader, ContentType: images.ContentTypeByPath(rec.ImagePath)}, nil
}

// Thumbnail renders (or reuses) the cached thumbnail for a record and
// returns its file path.
func (s *RecordService) Thumbnail(ctx context.Context, id string) (string, error) {
	ctx = ensureContext(ctx)

	rec, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if rec.ImagePath == "" {
		return "", appErrors.NewNotFound(id)
	}
	return s.thumbs.Thumbnail(ctx, rec.ID, rec.ImagePath)
}

// Ping verifies the record store is reachable.
func (s *RecordService) Ping(ctx context.Context) error {
	return s.store.Ping(ensureContext(ctx))
}
