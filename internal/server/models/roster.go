package models

// Roster is an identity and assignment snapshot imported by the admin tool.
type Roster struct {
	Actors  []RosterActor `yaml:"actors"`
	Batches []RosterBatch `yaml:"batches"`
	// FacultyStudents maps a faculty id to directly assigned student ids.
	FacultyStudents map[string][]string `yaml:"faculty_students"`
}

type RosterActor struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Role   Role   `yaml:"role"`
	Banned bool   `yaml:"banned"`
}

type RosterBatch struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Faculty  []string `yaml:"faculty"`
	Students []string `yaml:"students"`
	// Inactive lists members kept on the batch but outside review scope.
	Inactive []string `yaml:"inactive"`
}
