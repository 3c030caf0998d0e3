package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/questcraft/rewards-cms/pkg/db/models"
	pkgerrors "github.com/questcraft/rewards-cms/pkg/errors"
	"github.com/questcraft/rewards-cms/pkg/logger"
	"github.com/questcraft/rewards-cms/pkg/metrics"
	"github.com/questcraft/rewards-cms/pkg/storage/drive"
)

// DefaultFileName is the Drive name a published manifest is stored under.
const DefaultFileName = "manifest.json"

type collectionsRepository interface {
	ListActiveWithRewards(ctx context.Context) ([]models.Collection, error)
	RewardCounts(ctx context.Context) (map[uuid.UUID]int64, error)
}

type rewardsRepository interface {
	ListActive(ctx context.Context) ([]models.Reward, error)
}

type tagsRepository interface {
	ListAll(ctx context.Context) ([]models.Tag, error)
}

type publisher interface {
	Replace(ctx context.Context, creds drive.Credentials, in drive.UploadInput) (*drive.UploadResult, error)
}

// Service generates manifests from the catalog and publishes them to Drive.
type Service interface {
	Build(ctx context.Context) (*Document, error)
	BuildLegacy(ctx context.Context) (*LegacyDocument, error)
	Render(ctx context.Context) ([]byte, error)
	Publish(ctx context.Context, creds drive.Credentials) (*drive.UploadResult, error)
}

// Options tunes a Service. Zero values fall back to defaults.
type Options struct {
	FileName string
	Now      func() time.Time
	Metrics  *metrics.ManifestMetrics
	Logger   *logger.Logger
}

type service struct {
	collections collectionsRepository
	rewards     rewardsRepository
	tags        tagsRepository
	publisher   publisher
	fileName    string
	now         func() time.Time
	metrics     *metrics.ManifestMetrics
	logg        *logger.Logger
}

// NewService builds a manifest service. publisher may be nil when Drive
// publishing is not wired.
func NewService(collections collectionsRepository, rewards rewardsRepository, tags tagsRepository, pub publisher, opts Options) (Service, error) {
	if collections == nil {
		return nil, fmt.Errorf("collections repository required")
	}
	if rewards == nil {
		return nil, fmt.Errorf("rewards repository required")
	}
	if tags == nil {
		return nil, fmt.Errorf("tags repository required")
	}
	svc := &service{
		collections: collections,
		rewards:     rewards,
		tags:        tags,
		publisher:   pub,
		fileName:    opts.FileName,
		now:         opts.Now,
		metrics:     opts.Metrics,
		logg:        opts.Logger,
	}
	if svc.fileName == "" {
		svc.fileName = DefaultFileName
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	if svc.logg == nil {
		svc.logg = logger.Nop()
	}
	return svc, nil
}

func (s *service) Build(ctx context.Context) (*Document, error) {
	collections, err := s.collections.ListActiveWithRewards(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to generate manifest")
	}
	tags, err := s.tags.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to generate manifest")
	}

	doc := buildDocument(s.now(), collections, tags)
	s.metrics.Generated(doc.Version, len(doc.Rewards))
	return &doc, nil
}

func (s *service) BuildLegacy(ctx context.Context) (*LegacyDocument, error) {
	rewards, err := s.rewards.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to generate manifest")
	}
	collections, err := s.collections.ListActiveWithRewards(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to generate manifest")
	}
	counts, err := s.collections.RewardCounts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to generate manifest")
	}

	doc := buildLegacyDocument(s.now(), rewards, collections, counts)
	s.metrics.Generated(doc.Version, doc.TotalRewards)
	return &doc, nil
}

// Render serializes the current manifest with two-space indentation.
func (s *service) Render(ctx context.Context) ([]byte, error) {
	doc, err := s.Build(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode manifest")
	}
	return payload, nil
}

// Publish stores the rendered manifest in Drive, overwriting the previous
// copy of the same name.
func (s *service) Publish(ctx context.Context, creds drive.Credentials) (*drive.UploadResult, error) {
	if s.publisher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "Google Drive publishing is not configured")
	}
	payload, err := s.Render(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.publisher.Replace(ctx, creds, drive.UploadInput{
		Reader:   bytes.NewReader(payload),
		Filename: s.fileName,
		MimeType: "application/json",
	})
	if err != nil {
		return nil, drive.AppError(err, "Failed to upload manifest to Google Drive")
	}
	s.logg.Info(s.logg.WithField(ctx, "file_id", res.FileID), "manifest.published")
	return res, nil
}
