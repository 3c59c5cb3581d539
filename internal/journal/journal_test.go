package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, j.Close()) })
	return j
}

func TestJournal_RecordView_RoundTrip(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	require.NoError(t, j.RecordView(ctx, "cell-a", "v1", at))

	views, err := j.Views(ctx, "v1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "cell-a", views[0].ContainerID)
	assert.Equal(t, "v1", views[0].VideoID)
	assert.True(t, at.Equal(views[0].RegisteredAt))
}

func TestJournal_RecordView_IdempotentPerPairing(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	at := time.Now()

	require.NoError(t, j.RecordView(ctx, "cell-a", "v1", at))
	require.NoError(t, j.RecordView(ctx, "cell-a", "v1", at.Add(time.Hour)))

	n, err := j.ViewCount(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "duplicate pairing must not double-count")
}

func TestJournal_RecordView_DistinctContainersCount(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.RecordView(ctx, "cell-a", "v1", time.Now()))
	require.NoError(t, j.RecordView(ctx, "cell-b", "v1", time.Now()))

	n, err := j.ViewCount(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestJournal_RecordLoop_EveryOccurrenceCounts(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, j.RecordLoop(ctx, "cell-a", "v1", time.Now()))
	}

	n, err := j.LoopCount(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestJournal_Open_CreatesFileAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	j, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j.RecordView(ctx, "cell-a", "v1", time.Now()))
	require.NoError(t, j.Close())

	// Reopen re-applies pragmas and schema without clobbering data.
	j2, err := Open(path)
	require.NoError(t, err)
	defer j2.Close()

	n, err := j2.ViewCount(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestJournal_Close_Idempotent(t *testing.T) {
	j, err := Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, j.Close())
	assert.NoError(t, j.Close())
}
