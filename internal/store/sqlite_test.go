package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aim-group/evidence-cli/internal/model"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "evidence.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteStore_DocumentLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	_, err := s.GetDocument(ctx, KeyMergedPairs)
	assert.True(t, IsNotFound(err))

	require.NoError(t, s.PutDocument(ctx, KeyMergedPairs, []byte(`{"a":1}`)))
	require.NoError(t, s.PutDocument(ctx, KeyMergedPairs, []byte(`{"a":2}`)))

	body, err := s.GetDocument(ctx, KeyMergedPairs)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2}`, string(body))

	require.NoError(t, s.DeleteDocument(ctx, KeyMergedPairs))
	_, err = s.GetDocument(ctx, KeyMergedPairs)
	assert.True(t, IsNotFound(err))
}

func TestSQLiteStore_PairStatuses(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	records, err := s.ListPairStatuses(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	saved := []model.PairStatusRecord{
		{PairID: "b", Status: model.StatusAccepted, UpdatedAt: "2026-01-01T00:00:00Z"},
		{PairID: "a", Status: model.StatusPending, UpdatedAt: "2026-01-01T00:00:00Z"},
	}
	require.NoError(t, s.SavePairStatuses(ctx, saved))

	// Insertion order is preserved, not sorted.
	records, err = s.ListPairStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, records)

	// A second save replaces the whole list.
	require.NoError(t, s.SavePairStatuses(ctx, saved[:1]))
	records, err = s.ListPairStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved[:1], records)
}
