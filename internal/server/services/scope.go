package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/dmitrijs2005/medlogbook/internal/dbx"
	"github.com/dmitrijs2005/medlogbook/internal/server/models"
	"github.com/dmitrijs2005/medlogbook/internal/server/repositories/repomanager"
)

// Scope is the set of students whose entries a reviewer may see or act on.
type Scope struct {
	All      bool
	students map[string]struct{}
}

// AllStudents is the unrestricted scope.
func AllStudents() Scope {
	return Scope{All: true}
}

// NewScope builds a restricted scope over the given student ids.
func NewScope(studentIDs ...string) Scope {
	s := Scope{students: make(map[string]struct{}, len(studentIDs))}
	for _, id := range studentIDs {
		s.students[id] = struct{}{}
	}
	return s
}

func (s Scope) Contains(studentID string) bool {
	if s.All {
		return true
	}
	_, ok := s.students[studentID]
	return ok
}

func (s Scope) Empty() bool {
	return !s.All && len(s.students) == 0
}

// Students returns the sorted student ids of a restricted scope.
func (s Scope) Students() []string {
	out := make([]string, 0, len(s.students))
	for id := range s.students {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Apply narrows f to the owners inside the scope.
func (s Scope) Apply(f models.EntryFilter) models.EntryFilter {
	if s.All {
		f.AllOwners = true
		f.OwnerIDs = nil
		return f
	}
	f.AllOwners = false
	f.OwnerIDs = s.Students()
	return f
}

// ScopeResolver derives reviewer scope from role and assignments.
//
//   - HOD: every student.
//   - FACULTY: active students of every assigned batch, plus students
//     assigned to the faculty member directly. No assignments yields an
//     empty scope, not an error.
//   - STUDENT and anything else: empty; students act through ownership.
type ScopeResolver struct {
	repomanager repomanager.RepositoryManager
}

func NewScopeResolver(m repomanager.RepositoryManager) *ScopeResolver {
	return &ScopeResolver{repomanager: m}
}

// Resolve computes actor's scope reading through db, which may be a
// transaction.
func (r *ScopeResolver) Resolve(ctx context.Context, db dbx.DBTX, actor *models.Actor) (Scope, error) {
	if actor == nil {
		return NewScope(), nil
	}

	switch actor.Role {
	case models.RoleHOD:
		return AllStudents(), nil
	case models.RoleFaculty:
	default:
		return NewScope(), nil
	}

	repo := r.repomanager.Assignments(db)

	batches, err := repo.FacultyBatches(ctx, actor.ID)
	if err != nil {
		return Scope{}, fmt.Errorf("faculty batches: %w", err)
	}
	fromBatches, err := repo.ActiveBatchStudents(ctx, batches)
	if err != nil {
		return Scope{}, fmt.Errorf("batch students: %w", err)
	}
	direct, err := repo.FacultyStudents(ctx, actor.ID)
	if err != nil {
		return Scope{}, fmt.Errorf("faculty students: %w", err)
	}

	return NewScope(append(fromBatches, direct...)...), nil
}
