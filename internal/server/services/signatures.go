package services

import (
	"context"
	"database/sql"
	"encoding/hex"

	"github.com/dmitrijs2005/medlogbook/internal/common"
	"github.com/dmitrijs2005/medlogbook/internal/server/models"
	"github.com/dmitrijs2005/medlogbook/internal/server/repositories/repomanager"
	"golang.org/x/crypto/blake2b"
)

// DefaultSignerHistoryLimit caps SignaturesBySigner when no limit is given.
const DefaultSignerHistoryLimit = 100

// PayloadDigest is the hex BLAKE2b-256 of the entry's category, id and
// payload at signing time.
func PayloadDigest(entry *models.Entry) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(entry.Category))
	h.Write([]byte{0})
	h.Write([]byte(entry.ID))
	h.Write([]byte{0})
	h.Write(entry.Payload)
	return hex.EncodeToString(h.Sum(nil))
}

// SignatureService exposes the audit trail to reporting callers. It never
// writes; signatures are appended only by WorkflowService.
type SignatureService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	workflow    *WorkflowService
}

func NewSignatureService(db *sql.DB, m repomanager.RepositoryManager, workflow *WorkflowService) *SignatureService {
	return &SignatureService{db: db, repomanager: m, workflow: workflow}
}

// History returns the signatures of an entry visible to actor.
func (s *SignatureService) History(ctx context.Context, actor *models.Actor, entryID string) ([]*models.DigitalSignature, error) {
	entry, err := s.workflow.loadVisible(ctx, s.db, actor, entryID)
	if err != nil {
		return nil, err
	}
	return s.repomanager.Signatures(s.db).ListByEntity(ctx, entry.ID)
}

// BySigner returns the latest signatures made by signerID. Reviewers may
// read their own; the HOD may read anyone's, including the auto-review
// signer.
func (s *SignatureService) BySigner(ctx context.Context, actor *models.Actor, signerID string, limit int) ([]*models.DigitalSignature, error) {
	if actor == nil || !actor.Role.IsReviewer() {
		return nil, common.ErrForbidden
	}
	if signerID == "" {
		signerID = actor.ID
	}
	if signerID != actor.ID && actor.Role != models.RoleHOD {
		return nil, common.ErrForbidden
	}
	if limit <= 0 || limit > DefaultSignerHistoryLimit {
		limit = DefaultSignerHistoryLimit
	}
	return s.repomanager.Signatures(s.db).ListBySigner(ctx, signerID, limit)
}

// Verify reports whether entry's current payload still matches the digest
// recorded on sig.
func Verify(entry *models.Entry, sig *models.DigitalSignature) bool {
	return sig.EntityID == entry.ID && sig.PayloadDigest == PayloadDigest(entry)
}
