package models

import "time"

// Role gates which operations an actor may attempt.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleFaculty Role = "FACULTY"
	RoleHOD     Role = "HOD"
)

func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleFaculty || r == RoleHOD
}

// IsReviewer reports whether the role can review entries at all.
func (r Role) IsReviewer() bool {
	return r == RoleFaculty || r == RoleHOD
}

// Actor is the authenticated caller as resolved by the identity boundary.
type Actor struct {
	ID        string
	Name      string
	Role      Role
	Banned    bool
	CreatedAt time.Time
}
