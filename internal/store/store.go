// Package store defines the persistence contract for generation
// records. Implementations live in subpackages: tablestore speaks the
// hosted search index, gormstore covers relational backends.
package store

import (
	"context"
	"time"

	"github.com/otslabs/tsgallery/internal/models"
)

// DefaultGroupSize caps distinct values returned by GroupBy.
const DefaultGroupSize = 2000

// IntRange bounds an integer column. Both ends are inclusive; nil
// means unbounded.
type IntRange struct {
	Min *int64 `json:"min,omitempty"`
	Max *int64 `json:"max,omitempty"`
}

// Empty reports whether the range constrains anything.
func (r *IntRange) Empty() bool {
	return r == nil || (r.Min == nil && r.Max == nil)
}

// FloatRange bounds a float column. Both ends are inclusive; nil
// means unbounded.
type FloatRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Empty reports whether the range constrains anything.
func (r *FloatRange) Empty() bool {
	return r == nil || (r.Min == nil && r.Max == nil)
}

// Filter narrows a search. The zero value matches everything.
type Filter struct {
	Prompt         string     `json:"prompt,omitempty"`
	NegativePrompt string     `json:"negative_prompt,omitempty"`
	Since          *time.Time `json:"since,omitempty"`
	Until          *time.Time `json:"until,omitempty"`

	Models   []string `json:"models,omitempty"`
	Sizes    []string `json:"sizes,omitempty"`
	Samplers []string `json:"samplers,omitempty"`
	Versions []string `json:"versions,omitempty"`

	Txt2Img     *bool `json:"txt2img,omitempty"`
	Img2Img     *bool `json:"img2img,omitempty"`
	Interrupted *bool `json:"interrupted,omitempty"`
	Skipped     *bool `json:"skipped,omitempty"`

	Width    *IntRange   `json:"width,omitempty"`
	Height   *IntRange   `json:"height,omitempty"`
	Steps    *IntRange   `json:"steps,omitempty"`
	CFGScale *FloatRange `json:"cfg_scale,omitempty"`
	UsedTime *IntRange   `json:"used_time,omitempty"`
}

// Page selects one result window. Token, when set, resumes a prior
// search; it is opaque to callers.
type Page struct {
	Size  int    `json:"size"`
	Token string `json:"token,omitempty"`
}

// Result is one page of matches ordered most recent first. NextToken
// is empty when no further page exists; an empty Records slice with
// Total > 0 means the window ran past the data.
type Result struct {
	Records   []*models.GenerationRecord `json:"records"`
	Total     int64                      `json:"total"`
	NextToken string                     `json:"next_token,omitempty"`
}

// PeriodTotals aggregates one time window.
type PeriodTotals struct {
	TotalCount      int64   `json:"total_count"`
	TotalUsedTime   float64 `json:"total_used_time"`
	Txt2ImgCount    int64   `json:"txt2img_count"`
	Txt2ImgUsedTime float64 `json:"txt2img_used_time"`
	Img2ImgCount    int64   `json:"img2img_count"`
	Img2ImgUsedTime float64 `json:"img2img_used_time"`
}

// Totals reports generation activity for all time and the trailing
// 24 hours.
type Totals struct {
	AllTime PeriodTotals `json:"all_time"`
	Last24h PeriodTotals `json:"last_24h"`
}

// Bucket is one distinct value with its occurrence count.
type Bucket struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// GroupField names a column that supports value distributions.
type GroupField string

const (
	GroupModel                GroupField = "model"
	GroupSize                 GroupField = "size"
	GroupSampler              GroupField = "sampler"
	GroupVersion              GroupField = "version"
	GroupPromptSplits         GroupField = "prompt_splits"
	GroupNegativePromptSplits GroupField = "negative_prompt_splits"
)

// Column resolves the storage column behind a group field.
func (f GroupField) Column() (string, bool) {
	switch f {
	case GroupModel:
		return models.ColModel, true
	case GroupSize:
		return models.ColSize, true
	case GroupSampler:
		return models.ColSampler, true
	case GroupVersion:
		return models.ColVersion, true
	case GroupPromptSplits:
		return models.ColPromptSplits, true
	case GroupNegativePromptSplits:
		return models.ColNegativePromptSplits, true
	default:
		return "", false
	}
}

// Store persists and queries generation records. Implementations
// classify their failures: configuration problems surface as
// configuration errors naming the missing setting, transport and
// backend problems as storage errors. A failed Put leaves no partial
// record behind.
type Store interface {
	// EnsureSchema creates the backing table and search index when absent.
	EnsureSchema(ctx context.Context) error

	// Put writes one record in a single attempt.
	Put(ctx context.Context, rec *models.GenerationRecord) error

	// Get fetches one record by id.
	Get(ctx context.Context, id string) (*models.GenerationRecord, error)

	// Delete removes one record by id. Deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error

	// Search returns one page of matches ordered by JobStartTime descending.
	Search(ctx context.Context, filter Filter, page Page) (*Result, error)

	// Totals aggregates counts and generation time across all records.
	Totals(ctx context.Context) (*Totals, error)

	// GroupBy returns the value distribution of a column, largest first.
	GroupBy(ctx context.Context, field GroupField, size int) ([]Bucket, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}
