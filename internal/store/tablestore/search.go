package tablestore

import (
	"context"
	"fmt"
	"strings"
	"time"

	ots "github.com/aliyun/aliyun-tablestore-go-sdk/tablestore"
	"github.com/aliyun/aliyun-tablestore-go-sdk/tablestore/search"

	"github.com/otslabs/tsgallery/internal/models"
	"github.com/otslabs/tsgallery/internal/store"
	appErrors "github.com/otslabs/tsgallery/pkg/errors"
)

const (
	defaultPageSize = 20
	usedTimeAggName = "used_time_sum"
	groupByName     = "value_distribution"
)

// Search runs one index query and returns a page ordered by
// JobStartTime descending. A continuation token resumes the previous
// query; the token embeds the sort, so no explicit sort is sent with
// it.
func (s *Store) Search(ctx context.Context, filter store.Filter, page store.Page) (*store.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, appErrors.NewStorage("search", err)
	}

	size := page.Size
	if size <= 0 {
		size = defaultPageSize
	}

	token, err := store.DecodeToken(page.Token)
	if err != nil {
		return nil, err
	}

	query := search.NewSearchQuery().
		SetQuery(buildQuery(filter)).
		SetLimit(int32(size)).
		SetGetTotalCount(true)
	if len(token) > 0 {
		query.SetToken(token)
	} else {
		query.SetSort(&search.Sort{Sorters: []search.Sorter{
			&search.FieldSort{FieldName: models.ColJobStartTime, Order: search.SortOrder_DESC.Enum()},
		}})
	}

	req := new(ots.SearchRequest)
	req.SetTableName(s.cfg.TableName)
	req.SetIndexName(s.cfg.IndexName)
	req.SetSearchQuery(query)
	req.SetColumnsToGet(&ots.ColumnsToGet{ReturnAll: true})

	resp, err := s.client.Search(req)
	if err != nil {
		return nil, appErrors.NewStorage("search", err)
	}

	records := make([]*models.GenerationRecord, 0, len(resp.Rows))
	for _, row := range resp.Rows {
		if rec := rowToRecord(row); rec != nil {
			records = append(records, rec)
		}
	}

	return &store.Result{
		Records:   records,
		Total:     resp.TotalCount,
		NextToken: store.EncodeToken(resp.NextToken),
	}, nil
}

// buildQuery translates a filter into index queries. All bounds are
// inclusive. An unconstrained filter matches everything.
func buildQuery(f store.Filter) search.Query {
	bq := &search.BoolQuery{}

	if p := strings.TrimSpace(f.Prompt); p != "" {
		bq.MustQueries = append(bq.MustQueries, &search.MatchQuery{FieldName: models.ColPrompt, Text: p})
	}
	if p := strings.TrimSpace(f.NegativePrompt); p != "" {
		bq.MustQueries = append(bq.MustQueries, &search.MatchQuery{FieldName: models.ColNegativePrompt, Text: p})
	}

	if f.Since != nil || f.Until != nil {
		rq := &search.RangeQuery{FieldName: models.ColJobStartTime}
		if f.Since != nil {
			rq.GTE(f.Since.Format(models.TimeLayout))
		}
		if f.Until != nil {
			rq.LTE(f.Until.Format(models.TimeLayout))
		}
		bq.MustQueries = append(bq.MustQueries, rq)
	}

	terms := func(field string, values []string) {
		if len(values) == 0 {
			return
		}
		list := make([]interface{}, 0, len(values))
		for _, v := range values {
			list = append(list, v)
		}
		bq.MustQueries = append(bq.MustQueries, &search.TermsQuery{FieldName: field, Terms: list})
	}
	terms(models.ColModel, f.Models)
	terms(models.ColSize, f.Sizes)
	terms(models.ColSampler, f.Samplers)
	terms(models.ColVersion, f.Versions)

	term := func(field string, v *bool) {
		if v == nil {
			return
		}
		bq.MustQueries = append(bq.MustQueries, &search.TermQuery{FieldName: field, Term: *v})
	}
	term(models.ColIsTxt2Img, f.Txt2Img)
	term(models.ColIsImg2Img, f.Img2Img)
	term(models.ColInterrupted, f.Interrupted)
	term(models.ColSkipped, f.Skipped)

	intRange := func(field string, r *store.IntRange) {
		if r.Empty() {
			return
		}
		rq := &search.RangeQuery{FieldName: field}
		if r.Min != nil {
			rq.GTE(*r.Min)
		}
		if r.Max != nil {
			rq.LTE(*r.Max)
		}
		bq.MustQueries = append(bq.MustQueries, rq)
	}
	intRange(models.ColWidth, f.Width)
	intRange(models.ColHeight, f.Height)
	intRange(models.ColSteps, f.Steps)
	intRange(models.ColUsedTimeInSeconds, f.UsedTime)

	if !f.CFGScale.Empty() {
		rq := &search.RangeQuery{FieldName: models.ColCFGScale}
		if f.CFGScale.Min != nil {
			rq.GTE(*f.CFGScale.Min)
		}
		if f.CFGScale.Max != nil {
			rq.LTE(*f.CFGScale.Max)
		}
		bq.MustQueries = append(bq.MustQueries, rq)
	}

	if len(bq.MustQueries) == 0 {
		return &search.MatchAllQuery{}
	}
	return bq
}

func rowToRecord(row *ots.Row) *models.GenerationRecord {
	if row == nil || row.PrimaryKey == nil || len(row.PrimaryKey.PrimaryKeys) == 0 {
		return nil
	}
	id, _ := row.PrimaryKey.PrimaryKeys[0].Value.(string)
	if id == "" {
		return nil
	}

	cols := make(map[string]interface{}, len(row.Columns))
	for _, col := range row.Columns {
		if col == nil {
			continue
		}
		cols[col.ColumnName] = col.Value
	}
	return models.RecordFromColumns(id, cols)
}

// Totals runs one count-plus-sum query per bucket: everything,
// txt2img and img2img, each for all time and the trailing 24 hours.
func (s *Store) Totals(ctx context.Context) (*store.Totals, error) {
	since := time.Now().Add(-24 * time.Hour)

	matchAll := func() search.Query { return &search.MatchAllQuery{} }
	txt2img := func() search.Query {
		return &search.TermQuery{FieldName: models.ColIsTxt2Img, Term: true}
	}
	img2img := func() search.Query {
		return &search.TermQuery{FieldName: models.ColIsImg2Img, Term: true}
	}
	last24h := func(q search.Query) search.Query {
		rq := &search.RangeQuery{FieldName: models.ColJobStartTime}
		rq.GTE(since.Format(models.TimeLayout))
		return &search.BoolQuery{MustQueries: []search.Query{q, rq}}
	}

	var totals store.Totals
	buckets := []struct {
		query search.Query
		count *int64
		used  *float64
	}{
		{matchAll(), &totals.AllTime.TotalCount, &totals.AllTime.TotalUsedTime},
		{txt2img(), &totals.AllTime.Txt2ImgCount, &totals.AllTime.Txt2ImgUsedTime},
		{img2img(), &totals.AllTime.Img2ImgCount, &totals.AllTime.Img2ImgUsedTime},
		{last24h(matchAll()), &totals.Last24h.TotalCount, &totals.Last24h.TotalUsedTime},
		{last24h(txt2img()), &totals.Last24h.Txt2ImgCount, &totals.Last24h.Txt2ImgUsedTime},
		{last24h(img2img()), &totals.Last24h.Img2ImgCount, &totals.Last24h.Img2ImgUsedTime},
	}

	for _, b := range buckets {
		count, used, err := s.countWithUsedTime(ctx, b.query)
		if err != nil {
			return nil, err
		}
		*b.count = count
		*b.used = used
	}
	return &totals, nil
}

func (s *Store) countWithUsedTime(ctx context.Context, q search.Query) (int64, float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, appErrors.NewStorage("stats", err)
	}

	query := search.NewSearchQuery().
		SetQuery(q).
		SetLimit(0).
		SetGetTotalCount(true).
		Aggregation(search.NewSumAggregation(usedTimeAggName, models.ColUsedTimeInSeconds))

	req := new(ots.SearchRequest)
	req.SetTableName(s.cfg.TableName)
	req.SetIndexName(s.cfg.IndexName)
	req.SetSearchQuery(query)

	resp, err := s.client.Search(req)
	if err != nil {
		return 0, 0, appErrors.NewStorage("stats", err)
	}

	var used float64
	if agg, aggErr := resp.AggregationResults.Sum(usedTimeAggName); aggErr == nil {
		used = agg.Value
	}
	return resp.TotalCount, used, nil
}

// GroupBy returns the value distribution of a grouped column.
func (s *Store) GroupBy(ctx context.Context, field store.GroupField, size int) ([]store.Bucket, error) {
	col, ok := field.Column()
	if !ok {
		return nil, appErrors.NewBadRequest(fmt.Sprintf("unknown group field %q", field))
	}
	if size <= 0 || size > store.DefaultGroupSize {
		size = store.DefaultGroupSize
	}
	if err := ctx.Err(); err != nil {
		return nil, appErrors.NewStorage("group_by", err)
	}

	query := search.NewSearchQuery().
		SetQuery(&search.MatchAllQuery{}).
		SetLimit(0).
		GroupBy(search.NewGroupByField(groupByName, col).Size(int32(size)))

	req := new(ots.SearchRequest)
	req.SetTableName(s.cfg.TableName)
	req.SetIndexName(s.cfg.IndexName)
	req.SetSearchQuery(query)

	resp, err := s.client.Search(req)
	if err != nil {
		return nil, appErrors.NewStorage("group_by", err)
	}

	result, err := resp.GroupByResults.GroupByField(groupByName)
	if err != nil {
		return []store.Bucket{}, nil
	}

	buckets := make([]store.Bucket, 0, len(result.Items))
	for _, item := range result.Items {
		buckets = append(buckets, store.Bucket{Value: item.Key, Count: item.RowCount})
	}
	return buckets, nil
}
