package store

import (
	"context"
	"time"

	"github.com/otslabs/tsgallery/internal/models"
	"github.com/otslabs/tsgallery/pkg/metrics"
)

// WithMetrics wraps a Store so every operation reports its latency to
// the store histogram, labelled by operation.
func WithMetrics(next Store) Store {
	return meteredStore{next: next}
}

type meteredStore struct {
	next Store
}

func (s meteredStore) EnsureSchema(ctx context.Context) error {
	defer observeStore("ensure_schema", time.Now())
	return s.next.EnsureSchema(ctx)
}

func (s meteredStore) Put(ctx context.Context, rec *models.GenerationRecord) error {
	defer observeStore("put", time.Now())
	return s.next.Put(ctx, rec)
}

func (s meteredStore) Get(ctx context.Context, id string) (*models.GenerationRecord, error) {
	defer observeStore("get", time.Now())
	return s.next.Get(ctx, id)
}

func (s meteredStore) Delete(ctx context.Context, id string) error {
	defer observeStore("delete", time.Now())
	return s.next.Delete(ctx, id)
}

func (s meteredStore) Search(ctx context.Context, filter Filter, page Page) (*Result, error) {
	defer observeStore("search", time.Now())
	return s.next.Search(ctx, filter, page)
}

func (s meteredStore) Totals(ctx context.Context) (*Totals, error) {
	defer observeStore("totals", time.Now())
	return s.next.Totals(ctx)
}

func (s meteredStore) GroupBy(ctx context.Context, field GroupField, size int) ([]Bucket, error) {
	defer observeStore("group_by", time.Now())
	return s.next.GroupBy(ctx, field, size)
}

func (s meteredStore) Ping(ctx context.Context) error {
	defer observeStore("ping", time.Now())
	return s.next.Ping(ctx)
}

func (s meteredStore) Close() error {
	return s.next.Close()
}

func observeStore(op string, start time.Time) {
	metrics.StoreLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
