package checkpoint

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/salesetl/pipeline/internal/model"
)

func TestOpenMissingFileIsZero(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "does-not-exist.json"))
	require.NoError(t, err)
	require.NotNil(t, s)
	require.True(t, s.Get().Zero())
}

func TestDisabledStoreIsNoOp(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)

	require.NoError(t, s.Save(model.Checkpoint{File: "a.csv", ChunkIndex: 3}))
	require.True(t, s.Get().Zero())
}

// S5: a checkpoint survives a save and a fresh Open of the same path.
func TestSaveThenReopenRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bronze.json")

	s, err := Open(path)
	require.NoError(t, err)

	cp := model.Checkpoint{File: "orders_2.csv", ChunkIndex: 7}
	require.NoError(t, s.Save(cp))
	require.Equal(t, cp, s.Get())

	reopened, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, cp, reopened.Get())
}

func TestClearResetsToZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "silver.json")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(model.Checkpoint{File: "x.csv", ChunkIndex: 2}))
	require.False(t, s.Get().Zero())

	require.NoError(t, s.Clear())
	require.True(t, s.Get().Zero())

	reopened, err := Open(path)
	require.NoError(t, err)
	require.True(t, reopened.Get().Zero())
}

func TestSaveCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "checkpoint.json")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(model.Checkpoint{File: "a.csv", ChunkIndex: 1}))

	reopened, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, model.Checkpoint{File: "a.csv", ChunkIndex: 1}, reopened.Get())
}
