package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aim-group/evidence-cli/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func TestPostgres_Migrate(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS documents`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetDocument(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT body FROM documents WHERE key = \$1`).
		WithArgs(KeyScoreSummary).
		WillReturnRows(pgxmock.NewRows([]string{"body"}).AddRow(`{"a":1}`))

	body, err := s.GetDocument(context.Background(), KeyScoreSummary)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(body))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetDocument_NotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT body FROM documents WHERE key = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetDocument(context.Background(), "missing")
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_PutDocument(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`INSERT INTO documents`).
		WithArgs(KeyScoreSummary, `{"a":1}`, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.PutDocument(context.Background(), KeyScoreSummary, []byte(`{"a":1}`)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeleteDocument(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`DELETE FROM documents WHERE key = \$1`).
		WithArgs(KeyMergedPairs).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, s.DeleteDocument(context.Background(), KeyMergedPairs))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListPairStatuses(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT pair_id, status, updated_at FROM pair_statuses ORDER BY position`).
		WillReturnRows(pgxmock.NewRows([]string{"pair_id", "status", "updated_at"}).
			AddRow("a", model.StatusAccepted, "2026-01-01T00:00:00Z").
			AddRow("b", model.StatusPending, "2026-01-01T00:00:00Z"))

	records, err := s.ListPairStatuses(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].PairID)
	assert.Equal(t, model.StatusAccepted, records[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SavePairStatuses(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM pair_statuses`).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(`INSERT INTO pair_statuses`).
		WithArgs("a", model.StatusAccepted, "2026-01-01T00:00:00Z").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO pair_statuses`).
		WithArgs("b", model.StatusDeclined, "2026-01-01T00:00:00Z").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	err := s.SavePairStatuses(context.Background(), []model.PairStatusRecord{
		{PairID: "a", Status: model.StatusAccepted, UpdatedAt: "2026-01-01T00:00:00Z"},
		{PairID: "b", Status: model.StatusDeclined, UpdatedAt: "2026-01-01T00:00:00Z"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
