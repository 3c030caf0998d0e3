package uploads

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/questcraft/rewards-cms/internal/rewards"
	"github.com/questcraft/rewards-cms/pkg/enums"
	pkgerrors "github.com/questcraft/rewards-cms/pkg/errors"
	"github.com/questcraft/rewards-cms/pkg/logger"
	"github.com/questcraft/rewards-cms/pkg/storage/drive"
	"go.uber.org/multierr"
)

const (
	DefaultMaxBytes   int64 = 50 << 20
	DefaultFolderName       = "QuestCraft Rewards"
)

var allowedMIMETypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"image/gif":       {},
	"image/webp":      {},
	"video/mp4":       {},
	"video/quicktime": {},
}

// IsAllowedMIME reports whether uploads of mimeType are accepted.
func IsAllowedMIME(mimeType string) bool {
	_, ok := allowedMIMETypes[strings.ToLower(strings.TrimSpace(mimeType))]
	return ok
}

type gateway interface {
	Upload(ctx context.Context, creds drive.Credentials, in drive.UploadInput) (*drive.UploadResult, error)
	Delete(ctx context.Context, creds drive.Credentials, fileID string) error
	FindOrCreateFolder(ctx context.Context, creds drive.Credentials, name, parentID string) (string, error)
	DefaultFolderID() string
}

type rewardCreator interface {
	Create(ctx context.Context, input rewards.CreateInput) (*rewards.Reward, error)
}

// File is one uploaded blob as received from the client.
type File struct {
	Reader   io.Reader
	Filename string
	MimeType string
	Size     int64
}

// Result describes a stored blob. ThumbnailURL is only set for videos.
type Result struct {
	FileID       string  `json:"fileId"`
	Filename     string  `json:"filename"`
	ViewURL      string  `json:"viewUrl"`
	MimeType     string  `json:"mimeType"`
	ThumbnailURL *string `json:"thumbnailUrl"`
}

// RewardResult is the outcome of the combined upload and create flow.
type RewardResult struct {
	Upload *Result         `json:"upload"`
	Reward *rewards.Reward `json:"reward"`
}

type Service interface {
	Upload(ctx context.Context, creds drive.Credentials, file File, folderName string) (*Result, error)
	UploadReward(ctx context.Context, creds drive.Credentials, file File, folderName string, fields rewards.CreateInput) (*RewardResult, error)
}

// Options tunes the upload limits. Zero values fall back to defaults.
type Options struct {
	MaxBytes          int64
	DefaultFolderName string
	ThumbnailSize     int
	Logger            *logger.Logger
}

type service struct {
	gateway       gateway
	rewards       rewardCreator
	maxBytes      int64
	folderName    string
	thumbnailSize int
	logg          *logger.Logger
}

// NewService builds the upload flow. rewardsSvc may be nil when only raw
// uploads are served.
func NewService(gw gateway, rewardsSvc rewardCreator, opts Options) (Service, error) {
	if gw == nil {
		return nil, fmt.Errorf("drive gateway required")
	}
	svc := &service{
		gateway:       gw,
		rewards:       rewardsSvc,
		maxBytes:      opts.MaxBytes,
		folderName:    opts.DefaultFolderName,
		thumbnailSize: opts.ThumbnailSize,
		logg:          opts.Logger,
	}
	if svc.maxBytes <= 0 {
		svc.maxBytes = DefaultMaxBytes
	}
	if svc.folderName == "" {
		svc.folderName = DefaultFolderName
	}
	if svc.logg == nil {
		svc.logg = logger.Nop()
	}
	return svc, nil
}

// Validate checks the blob before anything is sent to Drive.
func (s *service) Validate(file File) error {
	if file.Reader == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "No file provided")
	}
	if strings.TrimSpace(file.Filename) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "filename is required")
	}
	if !IsAllowedMIME(file.MimeType) {
		return pkgerrors.New(pkgerrors.CodeValidation, "Invalid file type. Allowed: JPEG, PNG, GIF, WebP, MP4, MOV").
			WithDetails(map[string]any{"mimeType": file.MimeType})
	}
	if file.Size > s.maxBytes {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("File too large. Maximum size: %dMB", s.maxBytes>>20)).
			WithDetails(map[string]any{"size": file.Size, "maxBytes": s.maxBytes})
	}
	return nil
}

func (s *service) Upload(ctx context.Context, creds drive.Credentials, file File, folderName string) (*Result, error) {
	if err := s.Validate(file); err != nil {
		return nil, err
	}
	return s.store(ctx, creds, file, folderName)
}

// UploadReward stores the blob and then creates the reward pointing at it.
// When the row cannot be written the blob is deleted again.
func (s *service) UploadReward(ctx context.Context, creds drive.Credentials, file File, folderName string, fields rewards.CreateInput) (*RewardResult, error) {
	if s.rewards == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reward creation is not configured")
	}
	if err := s.Validate(file); err != nil {
		return nil, err
	}
	if strings.TrimSpace(fields.MediaType) == "" {
		mediaType, _ := enums.MediaTypeFromMIME(file.MimeType)
		fields.MediaType = mediaType.String()
	}
	if err := precheckReward(fields); err != nil {
		return nil, err
	}

	uploaded, err := s.store(ctx, creds, file, folderName)
	if err != nil {
		return nil, err
	}

	fields.GoogleDriveFileID = uploaded.FileID
	created, err := s.rewards.Create(ctx, fields)
	if err == nil {
		return &RewardResult{Upload: uploaded, Reward: created}, nil
	}

	cleanupCtx := context.WithoutCancel(ctx)
	if delErr := s.gateway.Delete(cleanupCtx, creds, uploaded.FileID); delErr != nil {
		combined := multierr.Append(err, delErr)
		logCtx := s.logg.WithField(cleanupCtx, "file_id", uploaded.FileID)
		s.logg.Error(logCtx, "upload.compensation_failed", combined)
		return nil, combined
	}
	s.logg.Warn(s.logg.WithField(cleanupCtx, "file_id", uploaded.FileID), "upload.compensated")
	return nil, err
}

func (s *service) store(ctx context.Context, creds drive.Credentials, file File, folderName string) (*Result, error) {
	folderID, err := s.resolveFolder(ctx, creds, folderName)
	if err != nil {
		return nil, err
	}

	uploaded, err := s.gateway.Upload(ctx, creds, drive.UploadInput{
		Reader:   file.Reader,
		Filename: file.Filename,
		MimeType: file.MimeType,
		FolderID: folderID,
	})
	if err != nil {
		return nil, drive.AppError(err, "Failed to upload file to Google Drive")
	}

	out := &Result{
		FileID:   uploaded.FileID,
		Filename: uploaded.Filename,
		ViewURL:  uploaded.ViewURL,
		MimeType: file.MimeType,
	}
	if out.Filename == "" {
		out.Filename = file.Filename
	}
	if mediaType, _ := enums.MediaTypeFromMIME(file.MimeType); mediaType == enums.MediaTypeVideo {
		thumb := drive.ThumbnailURL(uploaded.FileID, s.thumbnailSize)
		out.ThumbnailURL = &thumb
	}
	return out, nil
}

// resolveFolder prefers the configured folder id, then a named folder that
// is created on first use.
func (s *service) resolveFolder(ctx context.Context, creds drive.Credentials, folderName string) (string, error) {
	if id := s.gateway.DefaultFolderID(); id != "" {
		return id, nil
	}
	name := strings.TrimSpace(folderName)
	if name == "" {
		name = s.folderName
	}
	id, err := s.gateway.FindOrCreateFolder(ctx, creds, name, "")
	if err != nil {
		return "", drive.AppError(err, "Failed to resolve Google Drive folder")
	}
	return id, nil
}

func precheckReward(fields rewards.CreateInput) error {
	if strings.TrimSpace(fields.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if _, err := enums.ParseRarity(strings.TrimSpace(fields.Rarity)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "rarity must be one of common, rare, epic, legendary, mythic")
	}
	if _, err := enums.ParseMediaType(strings.TrimSpace(fields.MediaType)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "mediaType must be image or video")
	}
	if fields.CollectionID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "collectionId is required")
	}
	return nil
}
