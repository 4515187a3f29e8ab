package gallery

import (
	"fmt"

	appErrors "github.com/otslabs/tsgallery/pkg/errors"

	"github.com/otslabs/tsgallery/internal/models"
	"github.com/otslabs/tsgallery/internal/store"
)

// State identifies which pane the gallery tab is showing.
type State string

const (
	StateList   State = "list"
	StateDetail State = "detail"
)

// View is the gallery tab's state machine: a list of search results with a
// detail pane over one of them. Transitions only move state already held by
// the view; storage is never touched here.
type View struct {
	state     State
	records   []*models.GenerationRecord
	total     int64
	nextToken string
	filter    store.Filter
	selected  int
}

// NewView starts in the list state with an empty result set.
func NewView() *View {
	return &View{state: StateList, selected: -1}
}

// SetResults replaces the result set and returns the view to the list. Any
// open detail pane is dismissed because its record may no longer be on the
// page.
func (v *View) SetResults(result store.Result, filter store.Filter) {
	v.records = result.Records
	v.total = result.Total
	v.nextToken = result.NextToken
	v.filter = filter
	v.state = StateList
	v.selected = -1
}

// Select opens the detail pane over the index-th record of the current page
// and returns that record. Selecting while the detail pane is already open
// re-targets it.
func (v *View) Select(index int) (*models.GenerationRecord, error) {
	if index < 0 || index >= len(v.records) {
		return nil, appErrors.NewBadRequest(fmt.Sprintf("selection index %d is out of range", index))
	}
	v.selected = index
	v.state = StateDetail
	return v.records[index], nil
}

// Close dismisses the detail pane (Escape key or the close control) and
// returns to the list. The result set is kept as it was; closing an
// already-closed view does nothing.
func (v *View) Close() {
	v.state = StateList
	v.selected = -1
}

// State reports the current pane.
func (v *View) State() State { return v.state }

// Records returns the current page of results.
func (v *View) Records() []*models.GenerationRecord { return v.records }

// Total returns the match count reported by the last search.
func (v *View) Total() int64 { return v.total }

// NextToken returns the continuation token of the last search, empty when
// the result set is exhausted.
func (v *View) NextToken() string { return v.nextToken }

// Filter returns the filter that produced the current result set.
func (v *View) Filter() store.Filter { return v.filter }

// Selected returns the record shown in the detail pane.
func (v *View) Selected() (*models.GenerationRecord, bool) {
	if v.state != StateDetail || v.selected < 0 || v.selected >= len(v.records) {
		return nil, false
	}
	return v.records[v.selected], true
}

// Snapshot is the JSON shape the web tab renders after every interaction.
type Snapshot struct {
	State     State                      `json:"state"`
	Records   []*models.GenerationRecord `json:"records"`
	Total     int64                      `json:"total"`
	NextToken string                     `json:"next_token,omitempty"`
	Selected  *models.GenerationRecord   `json:"selected,omitempty"`
}

// Snapshot captures the view for serialization.
func (v *View) Snapshot() Snapshot {
	snap := Snapshot{
		State:     v.state,
		Records:   v.records,
		Total:     v.total,
		NextToken: v.nextToken,
	}
	if record, ok := v.Selected(); ok {
		snap.Selected = record
	}
	return snap
}
