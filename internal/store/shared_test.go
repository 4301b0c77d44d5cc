package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yshioka/equipmatch/internal/domain/models"
)

func TestSharedStateRevisions(t *testing.T) {
	s := NewSharedState(nil)

	rev, err := s.Put(KeyFilters, models.DefaultFilterState())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rev)

	rev, err = s.Put(KeyFilters, models.FilterState{Category: "ME機器"})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), rev)

	var got models.FilterState
	loadedRev, ok := s.Load(KeyFilters, &got)
	require.True(t, ok)
	assert.Equal(t, uint64(2), loadedRev)
	assert.Equal(t, "ME機器", got.Category)

	assert.Equal(t, uint64(0), s.Revision("missing"))
}

func TestSharedStatePutIfNewer(t *testing.T) {
	s := NewSharedState(nil)
	require.Equal(t, uint64(1), s.PutRaw(KeyFilters, []byte(`{"category":"ME機器"}`)))
	require.Equal(t, uint64(2), s.PutRaw(KeyFilters, []byte(`{"category":"什器"}`)))

	// A delayed replica carrying revision 1 must lose.
	assert.False(t, s.PutIfNewer(KeyFilters, []byte(`{"category":"ME機器"}`), 1))
	assert.False(t, s.PutIfNewer(KeyFilters, []byte(`{"category":"ME機器"}`), 2))

	var got models.FilterState
	_, ok := s.Load(KeyFilters, &got)
	require.True(t, ok)
	assert.Equal(t, "什器", got.Category)

	assert.True(t, s.PutIfNewer(KeyFilters, []byte(`{"category":"ME機器"}`), 5))
	assert.Equal(t, uint64(5), s.Revision(KeyFilters))
}

func TestSharedStateCorruptSnapshotKeepsDefaults(t *testing.T) {
	s := NewSharedState(nil)
	s.PutRaw(KeyFilters, []byte(`{"category": "ME機`))

	got := models.DefaultFilterState()
	_, ok := s.Load(KeyFilters, &got)
	assert.False(t, ok, "corrupt snapshot reads as missing")
	assert.Equal(t, models.DefaultFilterState(), got, "caller defaults survive")

	_, ok = s.Load("never-written", &got)
	assert.False(t, ok)
}
