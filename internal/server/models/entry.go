// Package models defines the logbook records persisted by the server and
// the envelopes returned to callers.
package models

import (
	"encoding/json"
	"slices"
	"time"
)

// Status is an entry's position in the review lifecycle.
type Status string

const (
	StatusDraft         Status = "DRAFT"
	StatusSubmitted     Status = "SUBMITTED"
	StatusNeedsRevision Status = "NEEDS_REVISION"
	StatusSigned        Status = "SIGNED"
)

// Statuses lists every lifecycle state.
var Statuses = []Status{StatusDraft, StatusSubmitted, StatusNeedsRevision, StatusSigned}

// edges is the complete set of persisted transitions. SIGNED has no way out.
var edges = map[Status][]Status{
	StatusDraft:         {StatusDraft, StatusSubmitted, StatusSigned},
	StatusNeedsRevision: {StatusDraft, StatusSubmitted, StatusSigned},
	StatusSubmitted:     {StatusSigned, StatusNeedsRevision},
}

// Valid reports whether s is one of the four lifecycle states.
func (s Status) Valid() bool {
	return slices.Contains(Statuses, s)
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
func CanTransition(from, to Status) bool {
	return slices.Contains(edges[from], to)
}

// Entry is one unit of trainee-submitted evidence in any category.
type Entry struct {
	ID             string
	OwnerID        string
	Category       Category
	SequenceNo     int64
	Status         Status
	ReviewerRemark *string
	Payload        json.RawMessage
	AttachmentKey  *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EntryFilter selects entries for listing and bulk operations. Empty slices
// mean "no restriction" except OwnerIDs, where AllOwners must be set to lift
// the restriction; an empty owner set with AllOwners unset matches nothing.
type EntryFilter struct {
	IDs             []string
	Category        Category
	Statuses        []Status
	ExcludeStatuses []Status
	OwnerIDs        []string
	AllOwners       bool
}
