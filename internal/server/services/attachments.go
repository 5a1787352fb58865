package services

import (
	"context"
	"database/sql"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/dmitrijs2005/medlogbook/internal/common"
	"github.com/dmitrijs2005/medlogbook/internal/logging"
	sc "github.com/dmitrijs2005/medlogbook/internal/server/config"
	"github.com/dmitrijs2005/medlogbook/internal/server/models"
	"github.com/dmitrijs2005/medlogbook/internal/server/notify"
	"github.com/dmitrijs2005/medlogbook/internal/server/repositories/repomanager"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// AttachmentService hands out presigned URLs for an entry's evidence file
// (scan, certificate, photo) kept in S3-compatible storage.
type AttachmentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	workflow    *WorkflowService
	notifier    notify.Notifier
	log         logging.Logger
	config      *sc.Config
}

func NewAttachmentService(db *sql.DB, m repomanager.RepositoryManager, workflow *WorkflowService,
	n notify.Notifier, log logging.Logger, cfg *sc.Config) *AttachmentService {
	return &AttachmentService{
		db:          db,
		repomanager: m,
		workflow:    workflow,
		notifier:    n,
		log:         log.With("module", "attachments"),
		config:      cfg,
	}
}

// StorageKey builds the object key for a new upload of fileName.
func StorageKey(entry *models.Entry, fileName string) string {
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "attachment"
	}
	return fmt.Sprintf("entries/%s/%s/%s/%s", entry.OwnerID, entry.ID, uuid.NewString(), base)
}

func (s *AttachmentService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// PresignUpload lets the owner attach a file to an entry that is still
// editable. The new key replaces any previous attachment.
func (s *AttachmentService) PresignUpload(ctx context.Context, actor *models.Actor, entryID, fileName string) (string, string, error) {
	entry, err := s.workflow.loadOwned(ctx, s.repomanager.Entries(s.db), actor, entryID)
	if err != nil {
		return "", "", err
	}
	if entry.Status != models.StatusDraft && entry.Status != models.StatusNeedsRevision {
		return "", "", common.ErrInvalidStateTransition
	}

	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return "", "", err
	}

	bucket := s.config.S3Bucket
	key := StorageKey(entry, fileName)

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.expiry()))
	if err != nil {
		return "", "", err
	}

	err = s.repomanager.Entries(s.db).SetAttachment(ctx, entry.ID, actor.ID, editableStatuses, key, time.Now().UTC())
	if err != nil {
		return "", "", transitionErr(err)
	}

	s.log.Info(ctx, "attachment upload presigned", "entry_id", entry.ID, "key", key)
	s.notifier.Notify(ctx, notify.EntryViews...)
	return key, req.URL, nil
}

// PresignDownload returns a GET URL for the attachment of an entry visible
// to actor.
func (s *AttachmentService) PresignDownload(ctx context.Context, actor *models.Actor, entryID string) (string, error) {
	entry, err := s.workflow.loadVisible(ctx, s.db, actor, entryID)
	if err != nil {
		return "", err
	}
	if entry.AttachmentKey == nil {
		return "", common.ErrNotFoundOrUnauthorized
	}

	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket
	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    entry.AttachmentKey,
	}, s3.WithPresignExpires(s.expiry()))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

func (s *AttachmentService) expiry() time.Duration {
	if s.config.PresignExpiry > 0 {
		return s.config.PresignExpiry
	}
	return 15 * time.Minute
}
