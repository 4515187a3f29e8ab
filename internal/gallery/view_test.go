package gallery

import (
	"testing"

	"github.com/stretchr/testify/require"

	appErrors "github.com/otslabs/tsgallery/pkg/errors"

	"github.com/otslabs/tsgallery/internal/models"
	"github.com/otslabs/tsgallery/internal/store"
)

func threeRecords() store.Result {
	return store.Result{
		Records: []*models.GenerationRecord{
			{ID: "rec-a", Prompt: "castle on a hill"},
			{ID: "rec-b", Prompt: "dragon over the sea"},
			{ID: "rec-c", Prompt: "portrait of a knight"},
		},
		Total:     3,
		NextToken: "tok-1",
	}
}

func TestViewStartsEmpty(t *testing.T) {
	v := NewView()

	require.Equal(t, StateList, v.State())
	require.Empty(t, v.Records())
	_, ok := v.Selected()
	require.False(t, ok)
}

func TestSelectShowsExactRecord(t *testing.T) {
	v := NewView()
	v.SetResults(threeRecords(), store.Filter{Prompt: "castle"})

	record, err := v.Select(1)
	require.NoError(t, err)
	require.Equal(t, "rec-b", record.ID)
	require.Equal(t, "dragon over the sea", record.Prompt)
	require.Equal(t, StateDetail, v.State())

	selected, ok := v.Selected()
	require.True(t, ok)
	require.Equal(t, record, selected)
}

func TestCloseKeepsResultSet(t *testing.T) {
	v := NewView()
	result := threeRecords()
	filter := store.Filter{Prompt: "castle"}
	v.SetResults(result, filter)

	_, err := v.Select(2)
	require.NoError(t, err)

	v.Close()

	require.Equal(t, StateList, v.State())
	require.Equal(t, result.Records, v.Records())
	require.Equal(t, result.Total, v.Total())
	require.Equal(t, result.NextToken, v.NextToken())
	require.Equal(t, filter, v.Filter())
	_, ok := v.Selected()
	require.False(t, ok)
}

func TestCloseOnListIsNoOp(t *testing.T) {
	v := NewView()
	v.SetResults(threeRecords(), store.Filter{})

	v.Close()

	require.Equal(t, StateList, v.State())
	require.Len(t, v.Records(), 3)
}

func TestSelectOutOfRange(t *testing.T) {
	v := NewView()
	v.SetResults(threeRecords(), store.Filter{})

	for _, index := range []int{-1, 3, 42} {
		_, err := v.Select(index)
		require.Error(t, err)
		require.True(t, appErrors.IsKind(err, appErrors.KindValidation))
		require.Equal(t, StateList, v.State())
	}
}

func TestSelectOnEmptyView(t *testing.T) {
	v := NewView()

	_, err := v.Select(0)
	require.Error(t, err)
	require.True(t, appErrors.IsKind(err, appErrors.KindValidation))
}

func TestReselectWhileDetailOpen(t *testing.T) {
	v := NewView()
	v.SetResults(threeRecords(), store.Filter{})

	_, err := v.Select(0)
	require.NoError(t, err)
	record, err := v.Select(2)
	require.NoError(t, err)

	require.Equal(t, "rec-c", record.ID)
	require.Equal(t, StateDetail, v.State())
}

func TestSetResultsDismissesDetail(t *testing.T) {
	v := NewView()
	v.SetResults(threeRecords(), store.Filter{})
	_, err := v.Select(1)
	require.NoError(t, err)

	fresh := store.Result{
		Records: []*models.GenerationRecord{{ID: "rec-z", Prompt: "village at dusk"}},
		Total:   1,
	}
	v.SetResults(fresh, store.Filter{Prompt: "village"})

	require.Equal(t, StateList, v.State())
	require.Equal(t, fresh.Records, v.Records())
	_, ok := v.Selected()
	require.False(t, ok)
}

func TestSnapshot(t *testing.T) {
	v := NewView()
	v.SetResults(threeRecords(), store.Filter{})

	snap := v.Snapshot()
	require.Equal(t, StateList, snap.State)
	require.Len(t, snap.Records, 3)
	require.EqualValues(t, 3, snap.Total)
	require.Equal(t, "tok-1", snap.NextToken)
	require.Nil(t, snap.Selected)

	_, err := v.Select(0)
	require.NoError(t, err)

	snap = v.Snapshot()
	require.Equal(t, StateDetail, snap.State)
	require.NotNil(t, snap.Selected)
	require.Equal(t, "rec-a", snap.Selected.ID)
	require.Len(t, snap.Records, 3)
}
