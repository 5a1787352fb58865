package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/medlogbook/internal/common"
	"github.com/dmitrijs2005/medlogbook/internal/dbx"
	"github.com/dmitrijs2005/medlogbook/internal/logging"
	"github.com/dmitrijs2005/medlogbook/internal/server/config"
	"github.com/dmitrijs2005/medlogbook/internal/server/models"
	"github.com/dmitrijs2005/medlogbook/internal/server/notify"
	"github.com/dmitrijs2005/medlogbook/internal/server/repositories/actors"
	"github.com/dmitrijs2005/medlogbook/internal/server/repositories/assignments"
	"github.com/dmitrijs2005/medlogbook/internal/server/repositories/autoreview"
	"github.com/dmitrijs2005/medlogbook/internal/server/repositories/entries"
	"github.com/dmitrijs2005/medlogbook/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/medlogbook/internal/server/repositories/signatures"
	"github.com/google/uuid"
)

// -------- in-memory store --------

type memStore struct {
	mu sync.Mutex

	entries  map[string]*models.Entry
	sigs     []*models.DigitalSignature
	settings map[models.Category]*models.AutoReviewSetting

	facultyBatches  map[string][]string
	batchStudents   map[string]map[string]bool
	facultyStudents map[string][]string
	batches         map[string]string
	actors          map[string]*models.Actor
	sequences       map[string]int64

	appendErr   error
	settingsErr error
	actorErr    error
}

func newMemStore() *memStore {
	return &memStore{
		entries:         map[string]*models.Entry{},
		settings:        map[models.Category]*models.AutoReviewSetting{},
		facultyBatches:  map[string][]string{},
		batchStudents:   map[string]map[string]bool{},
		facultyStudents: map[string][]string{},
		batches:         map[string]string{},
		actors:          map[string]*models.Actor{},
		sequences:       map[string]int64{},
	}
}

func clone(e *models.Entry) *models.Entry {
	c := *e
	c.Payload = append(json.RawMessage(nil), e.Payload...)
	if e.ReviewerRemark != nil {
		r := *e.ReviewerRemark
		c.ReviewerRemark = &r
	}
	if e.AttachmentKey != nil {
		k := *e.AttachmentKey
		c.AttachmentKey = &k
	}
	return &c
}

func (m *memStore) put(e *models.Entry) *models.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ID] = clone(e)
	return e
}

func (m *memStore) get(id string) *models.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[id]; ok {
		return clone(e)
	}
	return nil
}

func (m *memStore) signaturesFor(id string) []*models.DigitalSignature {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.DigitalSignature
	for _, s := range m.sigs {
		if s.EntityID == id {
			out = append(out, s)
		}
	}
	return out
}

func (m *memStore) signatureCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sigs)
}

func (m *memStore) assignBatch(faculty, batch string, students map[string]bool) {
	m.facultyBatches[faculty] = append(m.facultyBatches[faculty], batch)
	m.batchStudents[batch] = students
}

// -------- entries --------

type fakeEntries struct {
	entries.Repository
	st *memStore
}

func (f *fakeEntries) LockSequence(ctx context.Context, ownerID string, category models.Category) error {
	return nil
}

func (f *fakeEntries) NextSequence(ctx context.Context, ownerID string, category models.Category) (int64, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	key := ownerID + "/" + string(category)
	last, ok := f.st.sequences[key]
	if !ok {
		for _, e := range f.st.entries {
			if e.OwnerID == ownerID && e.Category == category && e.SequenceNo > last {
				last = e.SequenceNo
			}
		}
	}
	f.st.sequences[key] = last + 1
	return last + 1, nil
}

func (f *fakeEntries) Create(ctx context.Context, e *models.Entry) (*models.Entry, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	for _, x := range f.st.entries {
		if x.OwnerID == e.OwnerID && x.Category == e.Category && x.SequenceNo == e.SequenceNo {
			return nil, common.ErrStaleState
		}
	}
	f.st.entries[e.ID] = clone(e)
	return clone(e), nil
}

func (f *fakeEntries) GetByID(ctx context.Context, id string) (*models.Entry, error) {
	if e := f.st.get(id); e != nil {
		return e, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeEntries) FindMany(ctx context.Context, flt models.EntryFilter) ([]*models.Entry, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	if !flt.AllOwners && len(flt.OwnerIDs) == 0 {
		return nil, nil
	}
	var out []*models.Entry
	for _, e := range f.st.entries {
		switch {
		case !flt.AllOwners && !slices.Contains(flt.OwnerIDs, e.OwnerID):
		case len(flt.IDs) > 0 && !slices.Contains(flt.IDs, e.ID):
		case flt.Category != "" && flt.Category != e.Category:
		case len(flt.Statuses) > 0 && !slices.Contains(flt.Statuses, e.Status):
		case slices.Contains(flt.ExcludeStatuses, e.Status):
		default:
			out = append(out, clone(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OwnerID != out[j].OwnerID {
			return out[i].OwnerID < out[j].OwnerID
		}
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].SequenceNo < out[j].SequenceNo
	})
	return out, nil
}

func (f *fakeEntries) Transition(ctx context.Context, t entries.Transition) (*models.Entry, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	e, ok := f.st.entries[t.ID]
	if !ok || !slices.Contains(t.From, e.Status) || (t.OwnerID != "" && e.OwnerID != t.OwnerID) {
		return nil, common.ErrStaleState
	}
	e.Status = t.To
	e.UpdatedAt = t.At
	if t.SetRemark {
		e.ReviewerRemark = t.Remark
	}
	return clone(e), nil
}

func (f *fakeEntries) TransitionMany(ctx context.Context, t entries.BulkTransition) ([]*models.Entry, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	var out []*models.Entry
	for _, id := range t.IDs {
		e, ok := f.st.entries[id]
		if !ok || e.Status != t.From || (!t.AllOwners && !slices.Contains(t.OwnerIDs, e.OwnerID)) {
			continue
		}
		e.Status = t.To
		e.UpdatedAt = t.At
		e.ReviewerRemark = nil
		out = append(out, clone(e))
	}
	return out, nil
}

func (f *fakeEntries) UpdatePayload(ctx context.Context, u entries.PayloadUpdate) (*models.Entry, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	e, ok := f.st.entries[u.ID]
	if !ok || e.OwnerID != u.OwnerID || !slices.Contains(u.From, e.Status) {
		return nil, common.ErrStaleState
	}
	e.Payload = append(json.RawMessage(nil), u.Payload...)
	e.Status = models.StatusDraft
	e.ReviewerRemark = nil
	e.UpdatedAt = u.At
	return clone(e), nil
}

func (f *fakeEntries) SetAttachment(ctx context.Context, id, ownerID string, from []models.Status, key string, at time.Time) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	e, ok := f.st.entries[id]
	if !ok || e.OwnerID != ownerID || !slices.Contains(from, e.Status) {
		return common.ErrStaleState
	}
	e.AttachmentKey = &key
	e.UpdatedAt = at
	return nil
}

func (f *fakeEntries) Delete(ctx context.Context, id, ownerID string, from []models.Status) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	e, ok := f.st.entries[id]
	if !ok || e.OwnerID != ownerID || !slices.Contains(from, e.Status) {
		return common.ErrStaleState
	}
	delete(f.st.entries, id)
	return nil
}

// -------- signatures --------

type fakeSignatures struct {
	signatures.Repository
	st *memStore
}

func (f *fakeSignatures) Append(ctx context.Context, sig *models.DigitalSignature) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	if f.st.appendErr != nil {
		return f.st.appendErr
	}
	for _, s := range f.st.sigs {
		if s.EntityID == sig.EntityID {
			return common.ErrAlreadySigned
		}
	}
	c := *sig
	f.st.sigs = append(f.st.sigs, &c)
	return nil
}

func (f *fakeSignatures) ListByEntity(ctx context.Context, entityID string) ([]*models.DigitalSignature, error) {
	return f.st.signaturesFor(entityID), nil
}

func (f *fakeSignatures) CountByEntity(ctx context.Context, entityID string) (int, error) {
	return len(f.st.signaturesFor(entityID)), nil
}

func (f *fakeSignatures) ListBySigner(ctx context.Context, signerID string, limit int) ([]*models.DigitalSignature, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	var out []*models.DigitalSignature
	for i := len(f.st.sigs) - 1; i >= 0 && len(out) < limit; i-- {
		if f.st.sigs[i].SignerID == signerID {
			out = append(out, f.st.sigs[i])
		}
	}
	return out, nil
}

// -------- auto review --------

type fakeAutoReview struct {
	autoreview.Repository
	st *memStore
}

func (f *fakeAutoReview) GetAll(ctx context.Context) ([]*models.AutoReviewSetting, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	if f.st.settingsErr != nil {
		return nil, f.st.settingsErr
	}
	var out []*models.AutoReviewSetting
	for _, s := range f.st.settings {
		c := *s
		out = append(out, &c)
	}
	return out, nil
}

func (f *fakeAutoReview) Get(ctx context.Context, category models.Category) (*models.AutoReviewSetting, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	if f.st.settingsErr != nil {
		return nil, f.st.settingsErr
	}
	s, ok := f.st.settings[category]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *s
	return &c, nil
}

func (f *fakeAutoReview) Upsert(ctx context.Context, s *models.AutoReviewSetting) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	if f.st.settingsErr != nil {
		return f.st.settingsErr
	}
	c := *s
	f.st.settings[s.Category] = &c
	return nil
}

// -------- assignments --------

type fakeAssignments struct {
	assignments.Repository
	st *memStore
}

func (f *fakeAssignments) FacultyBatches(ctx context.Context, facultyID string) ([]string, error) {
	return f.st.facultyBatches[facultyID], nil
}

func (f *fakeAssignments) ActiveBatchStudents(ctx context.Context, batchIDs []string) ([]string, error) {
	var out []string
	for _, b := range batchIDs {
		for s, active := range f.st.batchStudents[b] {
			if active {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (f *fakeAssignments) FacultyStudents(ctx context.Context, facultyID string) ([]string, error) {
	return f.st.facultyStudents[facultyID], nil
}

func (f *fakeAssignments) UpsertBatch(ctx context.Context, id, name string) error {
	f.st.batches[id] = name
	return nil
}

func (f *fakeAssignments) AddBatchStudent(ctx context.Context, batchID, studentID string, active bool) error {
	if f.st.batchStudents[batchID] == nil {
		f.st.batchStudents[batchID] = map[string]bool{}
	}
	f.st.batchStudents[batchID][studentID] = active
	return nil
}

func (f *fakeAssignments) AssignFacultyBatch(ctx context.Context, facultyID, batchID string) error {
	if !slices.Contains(f.st.facultyBatches[facultyID], batchID) {
		f.st.facultyBatches[facultyID] = append(f.st.facultyBatches[facultyID], batchID)
	}
	return nil
}

func (f *fakeAssignments) AssignFacultyStudent(ctx context.Context, facultyID, studentID string) error {
	if !slices.Contains(f.st.facultyStudents[facultyID], studentID) {
		f.st.facultyStudents[facultyID] = append(f.st.facultyStudents[facultyID], studentID)
	}
	return nil
}

// -------- actors --------

type fakeActors struct {
	actors.Repository
	st *memStore
}

func (f *fakeActors) GetByID(ctx context.Context, id string) (*models.Actor, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	a, ok := f.st.actors[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *a
	return &c, nil
}

func (f *fakeActors) Upsert(ctx context.Context, a *models.Actor) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	if f.st.actorErr != nil {
		return f.st.actorErr
	}
	c := *a
	f.st.actors[a.ID] = &c
	return nil
}

// -------- manager --------

type fakeRepoManager struct {
	repomanager.RepositoryManager
	st *memStore
}

func (m *fakeRepoManager) Entries(db dbx.DBTX) entries.Repository { return &fakeEntries{st: m.st} }
func (m *fakeRepoManager) Signatures(db dbx.DBTX) signatures.Repository {
	return &fakeSignatures{st: m.st}
}
func (m *fakeRepoManager) AutoReview(db dbx.DBTX) autoreview.Repository {
	return &fakeAutoReview{st: m.st}
}
func (m *fakeRepoManager) Assignments(db dbx.DBTX) assignments.Repository {
	return &fakeAssignments{st: m.st}
}
func (m *fakeRepoManager) Actors(db dbx.DBTX) actors.Repository { return &fakeActors{st: m.st} }

// -------- helpers --------

var (
	student  = &models.Actor{ID: "s1", Role: models.RoleStudent}
	student2 = &models.Actor{ID: "s2", Role: models.RoleStudent}
	faculty  = &models.Actor{ID: "f1", Role: models.RoleFaculty}
	idleFac  = &models.Actor{ID: "f2", Role: models.RoleFaculty}
	directFc = &models.Actor{ID: "f3", Role: models.RoleFaculty}
	hod      = &models.Actor{ID: "h1", Role: models.RoleHOD}
)

var fixedNow = time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// seededStore has f1 reviewing batch b1 (s1 active, s4 inactive), f3
// reviewing s2 directly and f2 with no assignments.
func seededStore() *memStore {
	st := newMemStore()
	st.assignBatch("f1", "b1", map[string]bool{"s1": true, "s4": false})
	st.facultyStudents["f3"] = []string{"s2"}
	return st
}

func newWorkflow(t *testing.T, db *sql.DB, st *memStore, cfg *config.Config) (*WorkflowService, *notify.Recorder) {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{}
	}
	rm := &fakeRepoManager{st: st}
	rec := &notify.Recorder{}
	policy := NewAutoReviewService(db, rm, rec, logging.Nop{})
	svc := NewWorkflowService(db, rm, policy, JSONObjectValidator{MaxBytes: 1 << 10}, rec, logging.Nop{}, cfg)
	svc.now = func() time.Time { return fixedNow }
	return svc, rec
}

func seedEntry(st *memStore, owner string, category models.Category, seq int64, status models.Status) *models.Entry {
	return st.put(&models.Entry{
		ID:         uuid.NewString(),
		OwnerID:    owner,
		Category:   category,
		SequenceNo: seq,
		Status:     status,
		Payload:    json.RawMessage(`{"procedure":"lumbar puncture"}`),
		CreatedAt:  fixedNow.Add(-time.Hour),
		UpdatedAt:  fixedNow.Add(-time.Hour),
	})
}

func strPtr(s string) *string { return &s }
