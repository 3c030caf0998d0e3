package rewards

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/questcraft/rewards-cms/pkg/db/models"
	"github.com/questcraft/rewards-cms/pkg/enums"
	pkgerrors "github.com/questcraft/rewards-cms/pkg/errors"
	"github.com/questcraft/rewards-cms/pkg/pagination"
	"github.com/questcraft/rewards-cms/pkg/storage/drive"
	"gorm.io/gorm"
)

type rewardsRepository interface {
	Create(ctx context.Context, reward *models.Reward, tagIDs []uuid.UUID) (*models.Reward, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Reward, error)
	List(ctx context.Context, opts listQuery) ([]models.Reward, error)
	Update(ctx context.Context, reward *models.Reward, tagIDs *[]uuid.UUID) error
	ReplaceTags(ctx context.Context, rewardID uuid.UUID, tagIDs []uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type collectionsRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Collection, error)
}

type tagsRepository interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Tag, error)
}

// Service exposes reward CRUD and tag assignment.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*Reward, error)
	Get(ctx context.Context, id uuid.UUID) (*Reward, error)
	List(ctx context.Context, params ListParams) (*pagination.Page[Reward], error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*Reward, error)
	SetTags(ctx context.Context, id uuid.UUID, tagIDs []uuid.UUID) (*Reward, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CreateInput holds the fields accepted when creating a reward.
type CreateInput struct {
	Name                   string
	Description            *string
	Rarity                 string
	MediaType              string
	GoogleDriveFileID      string
	GoogleDriveThumbnailID *string
	CollectionID           uuid.UUID
	TagIDs                 []uuid.UUID
	IsActive               *bool
	SortOrder              *int
}

// UpdateInput is a partial update. A non-nil TagIDs replaces the whole tag
// set, including with an empty set.
type UpdateInput struct {
	Name                   *string
	Description            *string
	Rarity                 *string
	MediaType              *string
	GoogleDriveFileID      *string
	GoogleDriveThumbnailID *string
	CollectionID           *uuid.UUID
	TagIDs                 *[]uuid.UUID
	IsActive               *bool
	SortOrder              *int
}

// ListParams filters a reward listing.
type ListParams struct {
	CollectionID *uuid.UUID
	ActiveOnly   bool
	Limit        int
	Cursor       string
}

type service struct {
	repo        rewardsRepository
	collections collectionsRepository
	tags        tagsRepository
}

// NewService builds a reward service backed by the provided repositories.
func NewService(repo rewardsRepository, collections collectionsRepository, tags tagsRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("rewards repository required")
	}
	if collections == nil {
		return nil, fmt.Errorf("collections repository required")
	}
	if tags == nil {
		return nil, fmt.Errorf("tags repository required")
	}
	return &service{repo: repo, collections: collections, tags: tags}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*Reward, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	rarity, err := enums.ParseRarity(strings.TrimSpace(input.Rarity))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "rarity must be one of common, rare, epic, legendary, mythic")
	}
	mediaType, err := enums.ParseMediaType(strings.TrimSpace(input.MediaType))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "mediaType must be image or video")
	}
	fileID, err := validateFileID(input.GoogleDriveFileID, "googleDriveFileId")
	if err != nil {
		return nil, err
	}
	thumbnailID, err := validateOptionalFileID(input.GoogleDriveThumbnailID)
	if err != nil {
		return nil, err
	}
	if input.CollectionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "collectionId is required")
	}
	if err := s.ensureCollection(ctx, input.CollectionID); err != nil {
		return nil, err
	}
	if err := s.ensureTags(ctx, input.TagIDs); err != nil {
		return nil, err
	}

	row := &models.Reward{
		Name:                   name,
		Description:            normalizeOptional(input.Description),
		Rarity:                 rarity,
		MediaType:              mediaType,
		GoogleDriveFileID:      fileID,
		GoogleDriveThumbnailID: thumbnailID,
		CollectionID:           input.CollectionID,
		IsActive:               true,
	}
	if input.IsActive != nil {
		row.IsActive = *input.IsActive
	}
	if input.SortOrder != nil {
		row.SortOrder = *input.SortOrder
	}

	created, err := s.repo.Create(ctx, row, input.TagIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to create reward")
	}
	return s.Get(ctx, created.ID)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Reward, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	out := ToReward(*row)
	return &out, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*pagination.Page[Reward], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.List(ctx, listQuery{
		collectionID: params.CollectionID,
		activeOnly:   params.ActiveOnly,
		limit:        pagination.LimitWithBuffer(params.Limit),
		cursor:       cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to list rewards")
	}

	page := pagination.Trim(rows, params.Limit, func(row models.Reward) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	items := make([]Reward, 0, len(page.Items))
	for _, row := range page.Items {
		items = append(items, ToReward(row))
	}
	return &pagination.Page[Reward]{Items: items, NextCursor: page.NextCursor}, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*Reward, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		row.Name = name
	}
	if input.Description != nil {
		row.Description = normalizeOptional(input.Description)
	}
	if input.Rarity != nil {
		rarity, err := enums.ParseRarity(strings.TrimSpace(*input.Rarity))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "rarity must be one of common, rare, epic, legendary, mythic")
		}
		row.Rarity = rarity
	}
	if input.MediaType != nil {
		mediaType, err := enums.ParseMediaType(strings.TrimSpace(*input.MediaType))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "mediaType must be image or video")
		}
		row.MediaType = mediaType
	}
	if input.GoogleDriveFileID != nil {
		fileID, err := validateFileID(*input.GoogleDriveFileID, "googleDriveFileId")
		if err != nil {
			return nil, err
		}
		row.GoogleDriveFileID = fileID
	}
	if input.GoogleDriveThumbnailID != nil {
		thumbnailID, err := validateOptionalFileID(input.GoogleDriveThumbnailID)
		if err != nil {
			return nil, err
		}
		row.GoogleDriveThumbnailID = thumbnailID
	}
	if input.CollectionID != nil && *input.CollectionID != row.CollectionID {
		if err := s.ensureCollection(ctx, *input.CollectionID); err != nil {
			return nil, err
		}
		row.CollectionID = *input.CollectionID
	}
	if input.IsActive != nil {
		row.IsActive = *input.IsActive
	}
	if input.SortOrder != nil {
		row.SortOrder = *input.SortOrder
	}
	if input.TagIDs != nil {
		if err := s.ensureTags(ctx, *input.TagIDs); err != nil {
			return nil, err
		}
	}

	row.Collection = nil
	row.Tags = nil
	if err := s.repo.Update(ctx, row, input.TagIDs); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to update reward")
	}
	return s.Get(ctx, id)
}

// SetTags replaces the reward's tag set with exactly tagIDs.
func (s *service) SetTags(ctx context.Context, id uuid.UUID, tagIDs []uuid.UUID) (*Reward, error) {
	if err := s.ensureTags(ctx, tagIDs); err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceTags(ctx, id, tagIDs); err != nil {
		return nil, mapLookupError(err)
	}
	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapLookupError(err)
	}
	return nil
}

func (s *service) ensureCollection(ctx context.Context, id uuid.UUID) error {
	if _, err := s.collections.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "collection not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load collection")
	}
	return nil
}

func (s *service) ensureTags(ctx context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		if id == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "tag ids must be valid")
		}
	}
	unique := uniqueIDs(ids)
	if len(unique) == 0 {
		return nil
	}
	found, err := s.tags.FindByIDs(ctx, unique)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load tags")
	}
	if len(found) != len(unique) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "tag not found")
	}
	return nil
}

func validateFileID(value, field string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, field+" is required")
	}
	if !drive.IsValidID(value) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, field+" is not a valid Drive file id")
	}
	return value, nil
}

func validateOptionalFileID(value *string) (*string, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	id, err := validateFileID(*value, "googleDriveThumbnailId")
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "reward not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load reward")
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
