package dedup

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenCreatesSchema(t *testing.T) {
	idx, err := Open(filepath.Join(t.TempDir(), "dedup.db"))
	require.NoError(t, err)
	require.NotNil(t, idx)
	defer idx.Close()

	dup, err := idx.IsDuplicate("ORD-1")
	require.NoError(t, err)
	require.False(t, dup)
}

func TestMarkSeenThenIsDuplicate(t *testing.T) {
	idx, err := Open(filepath.Join(t.TempDir(), "dedup.db"))
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.MarkSeen("ORD-1"))

	dup, err := idx.IsDuplicate("ORD-1")
	require.NoError(t, err)
	require.True(t, dup)

	t.Run("idempotent", func(t *testing.T) {
		require.NoError(t, idx.MarkSeen("ORD-1"))
		dup, err := idx.IsDuplicate("ORD-1")
		require.NoError(t, err)
		require.True(t, dup)
	})
}

// S3: a duplicate order_id is absorbed rather than double-counted.
func TestTestAndMarkDetectsDuplicate(t *testing.T) {
	idx, err := Open(filepath.Join(t.TempDir(), "dedup.db"))
	require.NoError(t, err)
	defer idx.Close()

	wasDup, err := idx.TestAndMark("ORD-42")
	require.NoError(t, err)
	require.False(t, wasDup)

	wasDup, err = idx.TestAndMark("ORD-42")
	require.NoError(t, err)
	require.True(t, wasDup)
}

func TestTestAndMarkDistinctIDs(t *testing.T) {
	idx, err := Open(filepath.Join(t.TempDir(), "dedup.db"))
	require.NoError(t, err)
	defer idx.Close()

	for _, id := range []string{"A", "B", "C"} {
		wasDup, err := idx.TestAndMark(id)
		require.NoError(t, err)
		require.False(t, wasDup)
	}
}
