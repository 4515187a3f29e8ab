package gormstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/otslabs/tsgallery/internal/models"
	"github.com/otslabs/tsgallery/internal/params"
	"github.com/otslabs/tsgallery/internal/store"
	appErrors "github.com/otslabs/tsgallery/pkg/errors"
)

const defaultPageSize = 20

// Search returns one page ordered by job start time descending. The
// continuation token carries the window offset.
func (s *Store) Search(ctx context.Context, filter store.Filter, page store.Page) (*store.Result, error) {
	size := page.Size
	if size <= 0 {
		size = defaultPageSize
	}

	offset, err := store.DecodeOffsetToken(page.Token)
	if err != nil {
		return nil, err
	}

	query := applyFilter(s.db.WithContext(ctx).Model(&recordRow{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, appErrors.NewStorage("search", err)
	}

	var rows []recordRow
	err = query.
		Order("job_start_time DESC").
		Order("id DESC").
		Offset(int(offset)).
		Limit(size).
		Find(&rows).Error
	if err != nil {
		return nil, appErrors.NewStorage("search", err)
	}

	records := make([]*models.GenerationRecord, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].toRecord())
	}

	next := ""
	if nextOffset := offset + int64(len(rows)); len(rows) > 0 && nextOffset < total {
		next = store.EncodeOffsetToken(nextOffset)
	}

	return &store.Result{Records: records, Total: total, NextToken: next}, nil
}

func applyFilter(q *gorm.DB, f store.Filter) *gorm.DB {
	if p := strings.TrimSpace(f.Prompt); p != "" {
		q = tokenMatch(q, "prompt", p)
	}
	if p := strings.TrimSpace(f.NegativePrompt); p != "" {
		q = tokenMatch(q, "negative_prompt", p)
	}

	if f.Since != nil {
		q = q.Where("job_start_time >= ?", *f.Since)
	}
	if f.Until != nil {
		q = q.Where("job_start_time <= ?", *f.Until)
	}

	if len(f.Models) > 0 {
		q = q.Where("model IN ?", f.Models)
	}
	if len(f.Sizes) > 0 {
		q = q.Where("size IN ?", f.Sizes)
	}
	if len(f.Samplers) > 0 {
		q = q.Where("sampler IN ?", f.Samplers)
	}
	if len(f.Versions) > 0 {
		q = q.Where("version IN ?", f.Versions)
	}

	if f.Txt2Img != nil {
		q = q.Where("is_txt2img = ?", *f.Txt2Img)
	}
	if f.Img2Img != nil {
		q = q.Where("is_img2img = ?", *f.Img2Img)
	}
	if f.Interrupted != nil {
		q = q.Where("interrupted = ?", *f.Interrupted)
	}
	if f.Skipped != nil {
		q = q.Where("skipped = ?", *f.Skipped)
	}

	q = intRange(q, "width", f.Width)
	q = intRange(q, "height", f.Height)
	q = intRange(q, "steps", f.Steps)
	q = intRange(q, "used_time_in_seconds", f.UsedTime)

	if !f.CFGScale.Empty() {
		if f.CFGScale.Min != nil {
			q = q.Where("cfg_scale >= ?", *f.CFGScale.Min)
		}
		if f.CFGScale.Max != nil {
			q = q.Where("cfg_scale <= ?", *f.CFGScale.Max)
		}
	}
	return q
}

// tokenMatch approximates the search index's per-token text match:
// every token must appear, case folded.
func tokenMatch(q *gorm.DB, column, text string) *gorm.DB {
	for _, token := range params.SplitPrompt(text) {
		q = q.Where("LOWER("+column+") LIKE ?", "%"+strings.ToLower(token)+"%")
	}
	return q
}

func intRange(q *gorm.DB, column string, r *store.IntRange) *gorm.DB {
	if r.Empty() {
		return q
	}
	if r.Min != nil {
		q = q.Where(column+" >= ?", *r.Min)
	}
	if r.Max != nil {
		q = q.Where(column+" <= ?", *r.Max)
	}
	return q
}

// Totals aggregates counts and used time for all records and the
// trailing 24 hours.
func (s *Store) Totals(ctx context.Context) (*store.Totals, error) {
	since := time.Now().Add(-24 * time.Hour)

	var totals store.Totals
	if err := s.fillPeriod(ctx, &totals.AllTime, nil); err != nil {
		return nil, err
	}
	if err := s.fillPeriod(ctx, &totals.Last24h, &since); err != nil {
		return nil, err
	}
	return &totals, nil
}

func (s *Store) fillPeriod(ctx context.Context, dst *store.PeriodTotals, since *time.Time) error {
	base := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&recordRow{})
		if since != nil {
			q = q.Where("job_start_time >= ?", *since)
		}
		return q
	}

	var err error
	dst.TotalCount, dst.TotalUsedTime, err = countAndUsedTime(base())
	if err != nil {
		return err
	}
	dst.Txt2ImgCount, dst.Txt2ImgUsedTime, err = countAndUsedTime(base().Where("is_txt2img = ?", true))
	if err != nil {
		return err
	}
	dst.Img2ImgCount, dst.Img2ImgUsedTime, err = countAndUsedTime(base().Where("is_img2img = ?", true))
	return err
}

func countAndUsedTime(q *gorm.DB) (int64, float64, error) {
	var row struct {
		Count int64
		Used  float64
	}
	err := q.Select("COUNT(*) AS count, COALESCE(SUM(used_time_in_seconds), 0) AS used").
		Scan(&row).Error
	if err != nil {
		return 0, 0, appErrors.NewStorage("stats", err)
	}
	return row.Count, row.Used, nil
}

// GroupBy returns the value distribution of a grouped column, largest
// first. Split fields are tallied in memory because their tokens live
// in JSON arrays.
func (s *Store) GroupBy(ctx context.Context, field store.GroupField, size int) ([]store.Bucket, error) {
	if size <= 0 || size > store.DefaultGroupSize {
		size = store.DefaultGroupSize
	}

	switch field {
	case store.GroupModel, store.GroupSize, store.GroupSampler, store.GroupVersion:
		return s.groupByColumn(ctx, string(field), size)
	case store.GroupPromptSplits:
		return s.groupBySplits(ctx, "prompt_splits", size)
	case store.GroupNegativePromptSplits:
		return s.groupBySplits(ctx, "negative_prompt_splits", size)
	default:
		return nil, appErrors.NewBadRequest(fmt.Sprintf("unknown group field %q", field))
	}
}

func (s *Store) groupByColumn(ctx context.Context, column string, size int) ([]store.Bucket, error) {
	var buckets []store.Bucket
	err := s.db.WithContext(ctx).
		Model(&recordRow{}).
		Select(column + " AS value, COUNT(*) AS count").
		Where(column + " <> ''").
		Group(column).
		Order("count DESC, value ASC").
		Limit(size).
		Scan(&buckets).Error
	if err != nil {
		return nil, appErrors.NewStorage("group_by", err)
	}
	if buckets == nil {
		buckets = []store.Bucket{}
	}
	return buckets, nil
}

func (s *Store) groupBySplits(ctx context.Context, column string, size int) ([]store.Bucket, error) {
	var raws []string
	err := s.db.WithContext(ctx).
		Model(&recordRow{}).
		Where(column + " IS NOT NULL").
		Pluck(column, &raws).Error
	if err != nil {
		return nil, appErrors.NewStorage("group_by", err)
	}

	counts := make(map[string]int64)
	for _, raw := range raws {
		for _, token := range models.DecodeSplits(raw) {
			counts[token]++
		}
	}

	buckets := make([]store.Bucket, 0, len(counts))
	for value, count := range counts {
		buckets = append(buckets, store.Bucket{Value: value, Count: count})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Value < buckets[j].Value
	})

	if len(buckets) > size {
		buckets = buckets[:size]
	}
	return buckets, nil
}
