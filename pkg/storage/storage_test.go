package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftfs/driftfs/pkg/metadata"
)

func node(id string, capacity, used int64, priority int) *metadata.Storage {
	return &metadata.Storage{ID: id, Capacity: capacity, UsedSpace: used, Priority: priority}
}

func TestSelectPrefersLowerPriorityValue(t *testing.T) {
	selected, err := Select([]*metadata.Storage{
		node("slow", 1000, 0, 2),
		node("fast", 1000, 0, 1),
	}, 100)
	require.NoError(t, err)
	assert.Equal(t, "fast", selected.ID)
}

func TestSelectBreaksTiesWithLeastFreeSpace(t *testing.T) {
	// Equal priority: the fuller node wins so empty nodes keep large
	// contiguous reserves.
	selected, err := Select([]*metadata.Storage{
		node("empty", 1000, 0, 1),
		node("fuller", 1000, 800, 1),
	}, 100)
	require.NoError(t, err)
	assert.Equal(t, "fuller", selected.ID)
}

func TestSelectSkipsNodesWithoutSpace(t *testing.T) {
	selected, err := Select([]*metadata.Storage{
		node("full", 1000, 950, 1),
		node("roomy", 1000, 0, 2),
	}, 100)
	require.NoError(t, err)
	assert.Equal(t, "roomy", selected.ID)
}

func TestSelectExactFit(t *testing.T) {
	selected, err := Select([]*metadata.Storage{node("tight", 1000, 900, 1)}, 100)
	require.NoError(t, err)
	assert.Equal(t, "tight", selected.ID)
}

func TestSelectSkipsDisabledNodes(t *testing.T) {
	// Priority zero and below means the node never takes new uploads.
	_, err := Select([]*metadata.Storage{
		node("disabled", 1000, 0, 0),
		node("negative", 1000, 0, -1),
	}, 100)
	assert.ErrorIs(t, err, ErrNoAvailableStorage)
}

func TestSelectNoCandidates(t *testing.T) {
	_, err := Select(nil, 100)
	assert.ErrorIs(t, err, ErrNoAvailableStorage)

	_, err = Select([]*metadata.Storage{node("full", 100, 100, 1)}, 1)
	assert.ErrorIs(t, err, ErrNoAvailableStorage)
}

func TestPoolResolvesBackends(t *testing.T) {
	pool := NewPool()
	pool.Add("node-1", nil)

	_, err := pool.Get("node-1")
	require.NoError(t, err)

	_, err = pool.Get("missing")
	assert.Error(t, err)

	assert.Equal(t, []string{"node-1"}, pool.IDs())
}
