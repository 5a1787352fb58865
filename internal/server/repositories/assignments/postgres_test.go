package assignments

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestFacultyBatches(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT batch_id FROM faculty_batches WHERE faculty_id = \$1`).
		WithArgs("f1").
		WillReturnRows(sqlmock.NewRows([]string{"batch_id"}).AddRow("b1").AddRow("b2"))

	got, err := repo.FacultyBatches(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b1", "b2"}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestActiveBatchStudents(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT DISTINCT student_id FROM batch_students\s+WHERE active AND batch_id IN \(\$1, \$2\)`).
		WithArgs("b1", "b2").
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow("s1"))

	got, err := repo.ActiveBatchStudents(context.Background(), []string{"b1", "b2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestActiveBatchStudents_NoBatches(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	got, err := repo.ActiveBatchStudents(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFacultyStudents_Error(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM faculty_students`).WillReturnError(errors.New("boom"))

	_, err := repo.FacultyStudents(context.Background(), "f1")
	require.Error(t, err)
}

func TestWrites(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO batches \(id, name\)`).WithArgs("b1", "2025 intake").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO batch_students`).WithArgs("b1", "s1", false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO faculty_batches`).WithArgs("f1", "b1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO faculty_students`).WithArgs("f1", "s2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpsertBatch(ctx, "b1", "2025 intake"))
	require.NoError(t, repo.AddBatchStudent(ctx, "b1", "s1", false))
	require.NoError(t, repo.AssignFacultyBatch(ctx, "f1", "b1"))
	require.NoError(t, repo.AssignFacultyStudent(ctx, "f1", "s2"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWrites_Error(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO batches`).WillReturnError(errors.New("boom"))

	err := repo.UpsertBatch(context.Background(), "b1", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error")
}
