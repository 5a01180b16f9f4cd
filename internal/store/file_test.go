package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aim-group/evidence-cli/internal/model"
)

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFile(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestFileStore_DocumentLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)

	_, err := s.GetDocument(ctx, KeyScoreSummary)
	assert.True(t, IsNotFound(err))

	require.NoError(t, s.PutDocument(ctx, KeyScoreSummary, []byte(`{"a":1}`)))
	body, err := s.GetDocument(ctx, KeyScoreSummary)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(body))

	// Overwrite replaces the previous body.
	require.NoError(t, s.PutDocument(ctx, KeyScoreSummary, []byte(`{"a":2}`)))
	body, err = s.GetDocument(ctx, KeyScoreSummary)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2}`, string(body))

	require.NoError(t, s.DeleteDocument(ctx, KeyScoreSummary))
	_, err = s.GetDocument(ctx, KeyScoreSummary)
	assert.True(t, IsNotFound(err))

	// Deleting an absent document is not an error.
	require.NoError(t, s.DeleteDocument(ctx, KeyScoreSummary))
}

func TestFileStore_PairStatuses(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)

	records, err := s.ListPairStatuses(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	saved := []model.PairStatusRecord{
		{PairID: "a", Status: model.StatusAccepted, UpdatedAt: "2026-01-01T00:00:00Z"},
		{PairID: "b", Status: model.StatusPending, UpdatedAt: "2026-01-01T00:00:00Z"},
	}
	require.NoError(t, s.SavePairStatuses(ctx, saved))

	records, err = s.ListPairStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, records)
}

func TestReadWriteDoc(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)

	type payload struct {
		Name  string  `json:"name"`
		Score float64 `json:"score"`
	}
	require.NoError(t, WriteDoc(ctx, s, KeyHumanFactors, payload{Name: "x", Score: 0.5}))

	var got payload
	require.NoError(t, ReadDoc(ctx, s, KeyHumanFactors, &got))
	assert.Equal(t, payload{Name: "x", Score: 0.5}, got)
}
