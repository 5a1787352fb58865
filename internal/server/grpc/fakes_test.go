package grpc

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/medlogbook/internal/common"
	"github.com/dmitrijs2005/medlogbook/internal/logging"
	"github.com/dmitrijs2005/medlogbook/internal/server/models"
)

type fakeWorkflow struct {
	lastActor    *models.Actor
	lastID       string
	lastIDs      []string
	lastRemark   *string
	lastCategory models.Category
	lastPayload  json.RawMessage

	result models.Result
	err    error

	entry   *models.Entry
	entries []*models.Entry
	readErr error
}

func (f *fakeWorkflow) record(a *models.Actor, id string) (models.Result, error) {
	f.lastActor, f.lastID = a, id
	return f.result, f.err
}

func (f *fakeWorkflow) Create(ctx context.Context, a *models.Actor, c models.Category, p json.RawMessage) (models.Result, error) {
	f.lastCategory, f.lastPayload = c, p
	return f.record(a, "")
}
func (f *fakeWorkflow) Edit(ctx context.Context, a *models.Actor, id string, p json.RawMessage) (models.Result, error) {
	f.lastPayload = p
	return f.record(a, id)
}
func (f *fakeWorkflow) Delete(ctx context.Context, a *models.Actor, id string) (models.Result, error) {
	return f.record(a, id)
}
func (f *fakeWorkflow) Submit(ctx context.Context, a *models.Actor, id string) (models.Result, error) {
	return f.record(a, id)
}
func (f *fakeWorkflow) Sign(ctx context.Context, a *models.Actor, id string, remark *string) (models.Result, error) {
	f.lastRemark = remark
	return f.record(a, id)
}
func (f *fakeWorkflow) Reject(ctx context.Context, a *models.Actor, id string, remark string) (models.Result, error) {
	f.lastRemark = &remark
	return f.record(a, id)
}
func (f *fakeWorkflow) BulkSign(ctx context.Context, a *models.Actor, ids []string) (models.Result, error) {
	f.lastIDs = ids
	return f.record(a, "")
}
func (f *fakeWorkflow) Get(ctx context.Context, a *models.Actor, id string) (*models.Entry, error) {
	f.lastActor, f.lastID = a, id
	return f.entry, f.readErr
}
func (f *fakeWorkflow) ListOwn(ctx context.Context, a *models.Actor, c models.Category) ([]*models.Entry, error) {
	f.lastActor, f.lastCategory = a, c
	return f.entries, f.readErr
}
func (f *fakeWorkflow) ListForReview(ctx context.Context, a *models.Actor, c models.Category) ([]*models.Entry, error) {
	f.lastActor, f.lastCategory = a, c
	return f.entries, f.readErr
}
func (f *fakeWorkflow) BulkSignCandidates(ctx context.Context, a *models.Actor, c models.Category) ([]*models.Entry, error) {
	f.lastActor, f.lastCategory = a, c
	return f.entries, f.readErr
}

type fakeAutoReview struct {
	settings map[models.Category]bool
	getErr   error
	setErr   error
	set      map[models.Category]bool
}

func (f *fakeAutoReview) GetAll(ctx context.Context, a *models.Actor) (map[models.Category]bool, error) {
	return f.settings, f.getErr
}
func (f *fakeAutoReview) Set(ctx context.Context, a *models.Actor, c models.Category, on bool) (models.Result, error) {
	if f.setErr != nil {
		if common.IsDomain(f.setErr) {
			return models.NewResult(nil, -1, f.setErr), nil
		}
		return models.NewResult(nil, -1, f.setErr), f.setErr
	}
	if f.set == nil {
		f.set = map[models.Category]bool{}
	}
	f.set[c] = on
	return models.NewResult(nil, -1, nil), nil
}

type fakeSignatures struct {
	sigs  []*models.DigitalSignature
	err   error
	limit int
}

func (f *fakeSignatures) History(ctx context.Context, a *models.Actor, id string) ([]*models.DigitalSignature, error) {
	return f.sigs, f.err
}
func (f *fakeSignatures) BySigner(ctx context.Context, a *models.Actor, signer string, limit int) ([]*models.DigitalSignature, error) {
	f.limit = limit
	return f.sigs, f.err
}

type fakeAttachments struct {
	key, url string
	err      error
}

func (f *fakeAttachments) PresignUpload(ctx context.Context, a *models.Actor, id, name string) (string, string, error) {
	return f.key, f.url, f.err
}
func (f *fakeAttachments) PresignDownload(ctx context.Context, a *models.Actor, id string) (string, error) {
	return f.url, f.err
}

type fakeActors struct {
	actors map[string]*models.Actor
	err    error
}

func (f *fakeActors) Get(ctx context.Context, id string) (*models.Actor, error) {
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.actors[id]
	if !ok {
		return nil, common.ErrorUnauthorized
	}
	if a.Banned {
		return nil, common.ErrForbidden
	}
	return a, nil
}

var (
	student = &models.Actor{ID: "s1", Role: models.RoleStudent}
	hod     = &models.Actor{ID: "h1", Role: models.RoleHOD}
)

type testServer struct {
	*GRPCServer
	wf  *fakeWorkflow
	ar  *fakeAutoReview
	sig *fakeSignatures
	att *fakeAttachments
	act *fakeActors
}

func newTestServer(secret string) *testServer {
	ts := &testServer{
		wf:  &fakeWorkflow{},
		ar:  &fakeAutoReview{},
		sig: &fakeSignatures{},
		att: &fakeAttachments{},
		act: &fakeActors{actors: map[string]*models.Actor{
			"s1":     student,
			"h1":     hod,
			"banned": {ID: "banned", Role: models.RoleFaculty, Banned: true},
		}},
	}
	ts.GRPCServer = NewGRPCServer("127.0.0.1:0", logging.Nop{}, Services{
		Workflow:    ts.wf,
		AutoReview:  ts.ar,
		Signatures:  ts.sig,
		Attachments: ts.att,
		Actors:      ts.act,
	}, secret)
	return ts
}
