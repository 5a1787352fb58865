package grpc

import (
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/medlogbook/internal/server/models"
)

type Entry struct {
	ID             string          `json:"id"`
	OwnerID        string          `json:"ownerId"`
	Category       string          `json:"category"`
	SequenceNo     int64           `json:"sequenceNo"`
	Status         string          `json:"status"`
	ReviewerRemark *string         `json:"reviewerRemark,omitempty"`
	Payload        json.RawMessage `json:"payload"`
	AttachmentKey  *string         `json:"attachmentKey,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

type Signature struct {
	ID            string    `json:"id"`
	SignerID      string    `json:"signerId"`
	EntityType    string    `json:"entityType"`
	EntityID      string    `json:"entityId"`
	Remark        *string   `json:"remark,omitempty"`
	PayloadDigest string    `json:"payloadDigest"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Result mirrors models.Result on the wire.
type Result struct {
	Success     bool   `json:"success"`
	Entry       *Entry `json:"entry,omitempty"`
	SignedCount *int   `json:"signedCount,omitempty"`
	ErrorKind   string `json:"errorKind,omitempty"`
	Message     string `json:"message,omitempty"`
}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

type CreateEntryRequest struct {
	Category string          `json:"category"`
	Payload  json.RawMessage `json:"payload"`
}

type EditEntryRequest struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// EntryIDRequest addresses a single entry.
type EntryIDRequest struct {
	ID string `json:"id"`
}

type SignEntryRequest struct {
	ID     string  `json:"id"`
	Remark *string `json:"remark,omitempty"`
}

type RejectEntryRequest struct {
	ID     string `json:"id"`
	Remark string `json:"remark"`
}

type BulkSignRequest struct {
	IDs []string `json:"ids"`
}

type ListEntriesRequest struct {
	Category string `json:"category,omitempty"`
}

type ListEntriesResponse struct {
	Entries []*Entry `json:"entries"`
}

type GetEntryResponse struct {
	Entry *Entry `json:"entry"`
}

type AutoReviewSettingsRequest struct{}

type AutoReviewSettingsResponse struct {
	Settings map[string]bool `json:"settings"`
}

type SetAutoReviewRequest struct {
	Category string `json:"category"`
	Enabled  bool   `json:"enabled"`
}

type SignaturesBySignerRequest struct {
	SignerID string `json:"signerId,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

type SignaturesResponse struct {
	Signatures []*Signature `json:"signatures"`
}

type PresignUploadRequest struct {
	ID       string `json:"id"`
	FileName string `json:"fileName"`
}

type PresignResponse struct {
	Key string `json:"key,omitempty"`
	URL string `json:"url"`
}

func entryToMsg(e *models.Entry) *Entry {
	if e == nil {
		return nil
	}
	return &Entry{
		ID:             e.ID,
		OwnerID:        e.OwnerID,
		Category:       string(e.Category),
		SequenceNo:     e.SequenceNo,
		Status:         string(e.Status),
		ReviewerRemark: e.ReviewerRemark,
		Payload:        e.Payload,
		AttachmentKey:  e.AttachmentKey,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func entriesToMsg(es []*models.Entry) []*Entry {
	out := make([]*Entry, 0, len(es))
	for _, e := range es {
		out = append(out, entryToMsg(e))
	}
	return out
}

func signaturesToMsg(ss []*models.DigitalSignature) []*Signature {
	out := make([]*Signature, 0, len(ss))
	for _, s := range ss {
		out = append(out, &Signature{
			ID:            s.ID,
			SignerID:      s.SignerID,
			EntityType:    string(s.EntityType),
			EntityID:      s.EntityID,
			Remark:        s.Remark,
			PayloadDigest: s.PayloadDigest,
			CreatedAt:     s.CreatedAt,
		})
	}
	return out
}

func resultToMsg(r models.Result) *Result {
	return &Result{
		Success:     r.Success,
		Entry:       entryToMsg(r.Entry),
		SignedCount: r.SignedCount,
		ErrorKind:   string(r.ErrorKind),
		Message:     r.Message,
	}
}
