package models

import "github.com/dmitrijs2005/medlogbook/internal/common"

// Result is the envelope returned by every mutating workflow operation.
type Result struct {
	Success     bool             `json:"success"`
	Entry       *Entry           `json:"entry,omitempty"`
	SignedCount *int             `json:"signedCount,omitempty"`
	ErrorKind   common.ErrorKind `json:"errorKind,omitempty"`
	Message     string           `json:"message,omitempty"`
}

// NewResult builds an envelope from an operation outcome. signedCount is
// only carried when non-negative.
func NewResult(entry *Entry, signedCount int, err error) Result {
	if err != nil {
		return Result{Success: false, ErrorKind: common.KindOf(err), Message: err.Error()}
	}
	r := Result{Success: true, Entry: entry}
	if signedCount >= 0 {
		n := signedCount
		r.SignedCount = &n
	}
	return r
}
