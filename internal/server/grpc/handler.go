package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/medlogbook/internal/common"
	"github.com/dmitrijs2005/medlogbook/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) Ping(ctx context.Context, req *PingRequest) (*PingResponse, error) {

	return &PingResponse{Status: "OK"}, nil

}

func (s *GRPCServer) CreateEntry(ctx context.Context, req *CreateEntryRequest) (*Result, error) {
	return s.mutate(ctx, "create", func(a *models.Actor) (models.Result, error) {
		return s.workflow.Create(ctx, a, models.Category(req.Category), req.Payload)
	})
}

func (s *GRPCServer) EditEntry(ctx context.Context, req *EditEntryRequest) (*Result, error) {
	return s.mutate(ctx, "edit", func(a *models.Actor) (models.Result, error) {
		return s.workflow.Edit(ctx, a, req.ID, req.Payload)
	})
}

func (s *GRPCServer) DeleteEntry(ctx context.Context, req *EntryIDRequest) (*Result, error) {
	return s.mutate(ctx, "delete", func(a *models.Actor) (models.Result, error) {
		return s.workflow.Delete(ctx, a, req.ID)
	})
}

func (s *GRPCServer) SubmitEntry(ctx context.Context, req *EntryIDRequest) (*Result, error) {
	return s.mutate(ctx, "submit", func(a *models.Actor) (models.Result, error) {
		return s.workflow.Submit(ctx, a, req.ID)
	})
}

func (s *GRPCServer) SignEntry(ctx context.Context, req *SignEntryRequest) (*Result, error) {
	return s.mutate(ctx, "sign", func(a *models.Actor) (models.Result, error) {
		return s.workflow.Sign(ctx, a, req.ID, req.Remark)
	})
}

func (s *GRPCServer) RejectEntry(ctx context.Context, req *RejectEntryRequest) (*Result, error) {
	return s.mutate(ctx, "reject", func(a *models.Actor) (models.Result, error) {
		return s.workflow.Reject(ctx, a, req.ID, req.Remark)
	})
}

func (s *GRPCServer) BulkSign(ctx context.Context, req *BulkSignRequest) (*Result, error) {
	return s.mutate(ctx, "bulk_sign", func(a *models.Actor) (models.Result, error) {
		return s.workflow.BulkSign(ctx, a, req.IDs)
	})
}

func (s *GRPCServer) SetAutoReview(ctx context.Context, req *SetAutoReviewRequest) (*Result, error) {
	return s.mutate(ctx, "set_auto_review", func(a *models.Actor) (models.Result, error) {
		return s.autoReview.Set(ctx, a, models.Category(req.Category), req.Enabled)
	})
}

func (s *GRPCServer) GetEntry(ctx context.Context, req *EntryIDRequest) (*GetEntryResponse, error) {
	a, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	e, err := s.workflow.Get(ctx, a, req.ID)
	if err != nil {
		return nil, s.statusErr(ctx, "get_entry", err)
	}
	return &GetEntryResponse{Entry: entryToMsg(e)}, nil
}

func (s *GRPCServer) ListOwnEntries(ctx context.Context, req *ListEntriesRequest) (*ListEntriesResponse, error) {
	return s.list(ctx, "list_own", req, s.workflow.ListOwn)
}

func (s *GRPCServer) ListForReview(ctx context.Context, req *ListEntriesRequest) (*ListEntriesResponse, error) {
	return s.list(ctx, "list_for_review", req, s.workflow.ListForReview)
}

func (s *GRPCServer) BulkSignCandidates(ctx context.Context, req *ListEntriesRequest) (*ListEntriesResponse, error) {
	return s.list(ctx, "bulk_sign_candidates", req, s.workflow.BulkSignCandidates)
}

func (s *GRPCServer) GetAutoReview(ctx context.Context, req *AutoReviewSettingsRequest) (*AutoReviewSettingsResponse, error) {
	a, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := s.autoReview.GetAll(ctx, a)
	if err != nil {
		return nil, s.statusErr(ctx, "get_auto_review", err)
	}
	out := make(map[string]bool, len(settings))
	for c, on := range settings {
		out[string(c)] = on
	}
	return &AutoReviewSettingsResponse{Settings: out}, nil
}

func (s *GRPCServer) SignatureHistory(ctx context.Context, req *EntryIDRequest) (*SignaturesResponse, error) {
	a, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	sigs, err := s.signatures.History(ctx, a, req.ID)
	if err != nil {
		return nil, s.statusErr(ctx, "signature_history", err)
	}
	return &SignaturesResponse{Signatures: signaturesToMsg(sigs)}, nil
}

func (s *GRPCServer) SignaturesBySigner(ctx context.Context, req *SignaturesBySignerRequest) (*SignaturesResponse, error) {
	a, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	sigs, err := s.signatures.BySigner(ctx, a, req.SignerID, req.Limit)
	if err != nil {
		return nil, s.statusErr(ctx, "signatures_by_signer", err)
	}
	return &SignaturesResponse{Signatures: signaturesToMsg(sigs)}, nil
}

func (s *GRPCServer) PresignUpload(ctx context.Context, req *PresignUploadRequest) (*PresignResponse, error) {
	a, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	key, url, err := s.attachments.PresignUpload(ctx, a, req.ID, req.FileName)
	if err != nil {
		return nil, s.statusErr(ctx, "presign_upload", err)
	}
	return &PresignResponse{Key: key, URL: url}, nil
}

func (s *GRPCServer) PresignDownload(ctx context.Context, req *EntryIDRequest) (*PresignResponse, error) {
	a, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	url, err := s.attachments.PresignDownload(ctx, a, req.ID)
	if err != nil {
		return nil, s.statusErr(ctx, "presign_download", err)
	}
	return &PresignResponse{URL: url}, nil
}

func (s *GRPCServer) actor(ctx context.Context) (*models.Actor, error) {
	a, ok := ActorFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}
	return a, nil
}

// mutate runs a workflow mutation. Workflow refusals travel inside the
// envelope; anything else becomes codes.Internal.
func (s *GRPCServer) mutate(ctx context.Context, op string, fn func(*models.Actor) (models.Result, error)) (*Result, error) {
	a, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	res, err := fn(a)
	if err != nil {
		s.logger.Error(ctx, "request failed", "op", op, "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}
	return resultToMsg(res), nil
}

func (s *GRPCServer) list(ctx context.Context, op string, req *ListEntriesRequest,
	fn func(context.Context, *models.Actor, models.Category) ([]*models.Entry, error)) (*ListEntriesResponse, error) {

	a, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	es, err := fn(ctx, a, models.Category(req.Category))
	if err != nil {
		return nil, s.statusErr(ctx, op, err)
	}
	return &ListEntriesResponse{Entries: entriesToMsg(es)}, nil
}

// statusErr maps read-side failures to gRPC status codes.
func (s *GRPCServer) statusErr(ctx context.Context, op string, err error) error {
	switch common.KindOf(err) {
	case common.KindNotFoundOrUnauthorized:
		return status.Error(codes.NotFound, err.Error())
	case common.KindForbidden:
		return status.Error(codes.PermissionDenied, err.Error())
	case common.KindValidation:
		return status.Error(codes.InvalidArgument, err.Error())
	case common.KindInvalidStateTransition, common.KindEmptyBulkSelection:
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	if errors.Is(err, context.Canceled) {
		return status.Error(codes.Canceled, "canceled")
	}
	s.logger.Error(ctx, "request failed", "op", op, "error", err)
	return status.Error(codes.Internal, "internal error")
}
