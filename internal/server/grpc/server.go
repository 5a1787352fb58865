// Package grpc exposes the logbook workflow over gRPC. Messages travel as
// JSON (see CodecName); the service descriptor is declared by hand.
package grpc

import (
	"context"
	"encoding/json"
	"net"

	"github.com/dmitrijs2005/medlogbook/internal/logging"
	"github.com/dmitrijs2005/medlogbook/internal/server/models"
	"google.golang.org/grpc"
)

type workflowSvc interface {
	Create(ctx context.Context, actor *models.Actor, category models.Category, payload json.RawMessage) (models.Result, error)
	Edit(ctx context.Context, actor *models.Actor, id string, payload json.RawMessage) (models.Result, error)
	Delete(ctx context.Context, actor *models.Actor, id string) (models.Result, error)
	Submit(ctx context.Context, actor *models.Actor, id string) (models.Result, error)
	Sign(ctx context.Context, actor *models.Actor, id string, remark *string) (models.Result, error)
	Reject(ctx context.Context, actor *models.Actor, id string, remark string) (models.Result, error)
	BulkSign(ctx context.Context, actor *models.Actor, ids []string) (models.Result, error)
	Get(ctx context.Context, actor *models.Actor, id string) (*models.Entry, error)
	ListOwn(ctx context.Context, actor *models.Actor, category models.Category) ([]*models.Entry, error)
	ListForReview(ctx context.Context, actor *models.Actor, category models.Category) ([]*models.Entry, error)
	BulkSignCandidates(ctx context.Context, actor *models.Actor, category models.Category) ([]*models.Entry, error)
}

type autoReviewSvc interface {
	GetAll(ctx context.Context, actor *models.Actor) (map[models.Category]bool, error)
	Set(ctx context.Context, actor *models.Actor, category models.Category, enabled bool) (models.Result, error)
}

type signatureSvc interface {
	History(ctx context.Context, actor *models.Actor, entryID string) ([]*models.DigitalSignature, error)
	BySigner(ctx context.Context, actor *models.Actor, signerID string, limit int) ([]*models.DigitalSignature, error)
}

type attachmentSvc interface {
	PresignUpload(ctx context.Context, actor *models.Actor, entryID, fileName string) (string, string, error)
	PresignDownload(ctx context.Context, actor *models.Actor, entryID string) (string, error)
}

type actorSvc interface {
	Get(ctx context.Context, id string) (*models.Actor, error)
}

// Services bundles the collaborators a GRPCServer dispatches to.
type Services struct {
	Workflow    workflowSvc
	AutoReview  autoReviewSvc
	Signatures  signatureSvc
	Attachments attachmentSvc
	Actors      actorSvc
}

type GRPCServer struct {
	address     string
	workflow    workflowSvc
	autoReview  autoReviewSvc
	signatures  signatureSvc
	attachments attachmentSvc
	actors      actorSvc
	logger      logging.Logger
	jwtSecret   []byte
}

func NewGRPCServer(a string, l logging.Logger, svcs Services, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:     a,
		logger:      l.With("module", "grpc_server"),
		workflow:    svcs.Workflow,
		autoReview:  svcs.AutoReview,
		signatures:  svcs.Signatures,
		attachments: svcs.Attachments,
		actors:      svcs.Actors,
		jwtSecret:   []byte(secretKey),
	}
}

// Register attaches the logbook service and its interceptor chain to a new
// grpc.Server.
func (s *GRPCServer) Register(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(s.recoveryInterceptor, s.accessTokenInterceptor))
	srv := grpc.NewServer(opts...)
	srv.RegisterService(&serviceDesc, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.Register()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
