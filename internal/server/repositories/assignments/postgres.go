// Package assignments provides the PostgreSQL-backed source of reviewer
// assignments: which batches a faculty member reviews, which students are
// active in a batch, and which students are assigned to a faculty member
// directly.
package assignments

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/medlogbook/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FacultyBatches(ctx context.Context, facultyID string) ([]string, error) {
	query := `SELECT batch_id FROM faculty_batches WHERE faculty_id = $1 ORDER BY batch_id`
	return r.ids(ctx, query, facultyID)
}

// ActiveBatchStudents returns the distinct active students of batchIDs.
func (r *PostgresRepository) ActiveBatchStudents(ctx context.Context, batchIDs []string) ([]string, error) {
	if len(batchIDs) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT DISTINCT student_id FROM batch_students
		WHERE active AND batch_id IN (%s) ORDER BY student_id`, dbx.Placeholders(1, len(batchIDs)))
	return r.ids(ctx, query, dbx.Args(batchIDs)...)
}

func (r *PostgresRepository) FacultyStudents(ctx context.Context, facultyID string) ([]string, error) {
	query := `SELECT student_id FROM faculty_students WHERE faculty_id = $1 ORDER BY student_id`
	return r.ids(ctx, query, facultyID)
}

func (r *PostgresRepository) UpsertBatch(ctx context.Context, id, name string) error {
	query := `INSERT INTO batches (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`
	return r.exec(ctx, query, id, name)
}

func (r *PostgresRepository) AddBatchStudent(ctx context.Context, batchID, studentID string, active bool) error {
	query := `INSERT INTO batch_students (batch_id, student_id, active) VALUES ($1, $2, $3)
		ON CONFLICT (batch_id, student_id) DO UPDATE SET active = EXCLUDED.active`
	return r.exec(ctx, query, batchID, studentID, active)
}

func (r *PostgresRepository) AssignFacultyBatch(ctx context.Context, facultyID, batchID string) error {
	query := `INSERT INTO faculty_batches (faculty_id, batch_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	return r.exec(ctx, query, facultyID, batchID)
}

func (r *PostgresRepository) AssignFacultyStudent(ctx context.Context, facultyID, studentID string) error {
	query := `INSERT INTO faculty_students (faculty_id, student_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	return r.exec(ctx, query, facultyID, studentID)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ids(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return scanIDs(rows)
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	defer rows.Close()

	var result []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result = append(result, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
