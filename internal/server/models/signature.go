package models

import "time"

// DigitalSignature is the append-only record of one approval. SignerID is a
// reviewer id or the auto-review sentinel.
type DigitalSignature struct {
	ID            string
	SignerID      string
	EntityType    Category
	EntityID      string
	Remark        *string
	PayloadDigest string
	CreatedAt     time.Time
}

// AutoReviewSetting is the per-category bypass flag. A missing row means
// the category is not auto-reviewed.
type AutoReviewSetting struct {
	Category  Category
	Enabled   bool
	UpdatedBy string
	UpdatedAt time.Time
}
