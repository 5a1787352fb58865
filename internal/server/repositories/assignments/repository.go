package assignments

import "context"

// Repository reads and maintains the faculty/batch/student assignment tables
// that reviewer scope is derived from.
type Repository interface {
	FacultyBatches(ctx context.Context, facultyID string) ([]string, error)
	ActiveBatchStudents(ctx context.Context, batchIDs []string) ([]string, error)
	FacultyStudents(ctx context.Context, facultyID string) ([]string, error)

	UpsertBatch(ctx context.Context, id, name string) error
	AddBatchStudent(ctx context.Context, batchID, studentID string, active bool) error
	AssignFacultyBatch(ctx context.Context, facultyID, batchID string) error
	AssignFacultyStudent(ctx context.Context, facultyID, studentID string) error
}
