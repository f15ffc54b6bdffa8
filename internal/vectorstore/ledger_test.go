package vectorstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLedger(t *testing.T) {
	ctx := t.Context()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemoryLedger()

	require.NoError(t, l.Record(ctx, []LedgerEntry{
		{UserID: 1, ChunkID: "a", IndexedAt: base},
		{UserID: 1, ChunkID: "b", IndexedAt: base.Add(time.Hour)},
		{UserID: 1, ChunkID: "c", IndexedAt: base.Add(2 * time.Hour)},
		{UserID: 2, ChunkID: "d", IndexedAt: base},
	}))
	assert.Equal(t, 4, l.Len())

	expired, err := l.Expired(ctx, base.Add(30*time.Minute))
	require.NoError(t, err)
	require.Len(t, expired, 2)

	overflow, err := l.Overflow(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, overflow, 2)
	assert.Equal(t, "a", overflow[0].ChunkID)
	assert.Equal(t, "b", overflow[1].ChunkID)

	users, err := l.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, users)

	none, err := l.Overflow(ctx, 2, 5)
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, l.Remove(ctx, []string{"a"}))
	require.NoError(t, l.RemoveUser(ctx, 2))
	assert.Equal(t, 2, l.Len())
}
