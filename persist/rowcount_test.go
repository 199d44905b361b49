package persist_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/mapping"
	"github.com/syssam/relmap/persist"
	"github.com/syssam/relmap/schema"
)

func TestRowCounter(t *testing.T) {
	u := newUsers()
	c := persist.NewRowCounter()

	added, err := c.AddColumns(map[*schema.Column]any{u.id: int64(1), u.version: int64(2)})
	require.NoError(t, err)
	assert.True(t, added)
	added, err = c.AddColumns(map[*schema.Column]any{u.version: int64(2), u.id: int64(1)})
	require.NoError(t, err)
	assert.False(t, added, "same row, whatever the map order")
	added, err = c.AddColumns(map[*schema.Column]any{u.id: int64(1), u.version: int64(3)})
	require.NoError(t, err)
	assert.True(t, added)

	// A set and a where entry of the same column are distinct.
	added, err = c.AddUpwhere(map[mapping.UpwhereColumn]any{mapping.Set(u.name): "a", mapping.Where(u.id): int64(1)})
	require.NoError(t, err)
	assert.True(t, added)
	added, err = c.AddUpwhere(map[mapping.UpwhereColumn]any{mapping.Where(u.name): "a", mapping.Where(u.id): int64(1)})
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, 4, c.Size())
}

func TestRowCountManager(t *testing.T) {
	u := newUsers()
	c := persist.NewRowCounter()
	for i := range 3 {
		_, err := c.AddColumns(map[*schema.Column]any{u.id: i})
		require.NoError(t, err)
	}

	require.NoError(t, persist.ThrowingRowCountManager{}.CheckRowCount(c, 3))
	require.NoError(t, persist.ThrowingRowCountManager{}.CheckRowCount(c, 4))
	err := persist.ThrowingRowCountManager{}.CheckRowCount(c, 2)
	var stale *relmap.StaleObjectError
	require.ErrorAs(t, err, &stale)
	assert.EqualValues(t, 3, stale.Expected)
	assert.EqualValues(t, 2, stale.Actual)
	require.NoError(t, persist.NoopRowCountManager{}.CheckRowCount(c, 0))
}
