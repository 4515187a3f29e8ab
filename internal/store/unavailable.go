package store

import (
	"context"

	"github.com/otslabs/tsgallery/internal/models"
)

// Unavailable returns a Store whose every operation fails with cause.
// It stands in when the configured backend cannot be constructed, so
// the plugin keeps serving and the tab shows the configuration problem
// inline instead of the host losing the whole process.
func Unavailable(cause error) Store {
	return unavailableStore{cause: cause}
}

type unavailableStore struct {
	cause error
}

func (s unavailableStore) EnsureSchema(context.Context) error { return s.cause }

func (s unavailableStore) Put(context.Context, *models.GenerationRecord) error { return s.cause }

func (s unavailableStore) Get(context.Context, string) (*models.GenerationRecord, error) {
	return nil, s.cause
}

func (s unavailableStore) Delete(context.Context, string) error { return s.cause }

func (s unavailableStore) Search(context.Context, Filter, Page) (*Result, error) {
	return nil, s.cause
}

func (s unavailableStore) Totals(context.Context) (*Totals, error) { return nil, s.cause }

func (s unavailableStore) GroupBy(context.Context, GroupField, int) ([]Bucket, error) {
	return nil, s.cause
}

func (s unavailableStore) Ping(context.Context) error { return s.cause }

func (s unavailableStore) Close() error { return nil }
