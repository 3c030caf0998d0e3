package collections

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	pkgdb "github.com/questcraft/rewards-cms/pkg/db"
	"github.com/questcraft/rewards-cms/pkg/db/models"
	"github.com/questcraft/rewards-cms/pkg/enums"
	pkgerrors "github.com/questcraft/rewards-cms/pkg/errors"
	"gorm.io/gorm"
)

// DefaultIconEmoji is used when a collection is created without an emoji.
const DefaultIconEmoji = "📦"

type collectionsRepository interface {
	Create(ctx context.Context, collection *models.Collection) (*models.Collection, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Collection, error)
	FindByIDWithRewards(ctx context.Context, id uuid.UUID) (*models.Collection, error)
	List(ctx context.Context, opts ListQuery) ([]models.Collection, error)
	Update(ctx context.Context, collection *models.Collection) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountRewards(ctx context.Context, id uuid.UUID) (int64, error)
	RewardCounts(ctx context.Context) (map[uuid.UUID]int64, error)
}

// Service exposes collection CRUD semantics.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*Collection, error)
	Get(ctx context.Context, id uuid.UUID) (*Collection, error)
	List(ctx context.Context, params ListParams) ([]Collection, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*Collection, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CreateInput holds the fields accepted when creating a collection.
type CreateInput struct {
	Name        string
	Description *string
	IconEmoji   *string
	IconName    *string
	SortOrder   *int
	IsActive    *bool
}

// UpdateInput holds a partial update; nil fields are left untouched.
type UpdateInput struct {
	Name        *string
	Description *string
	IconEmoji   *string
	IconName    *string
	SortOrder   *int
	IsActive    *bool
}

// ListParams selects and orders collections.
type ListParams struct {
	ActiveOnly bool
	OrderBy    string
}

type service struct {
	repo collectionsRepository
}

// NewService builds a collection service backed by the provided repository.
func NewService(repo collectionsRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("collections repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*Collection, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	iconName, err := normalizeIconName(input.IconName)
	if err != nil {
		return nil, err
	}

	row := &models.Collection{
		Name:        name,
		Description: normalizeOptional(input.Description),
		IconEmoji:   DefaultIconEmoji,
		IconName:    iconName,
		IsActive:    true,
	}
	if input.IconEmoji != nil && strings.TrimSpace(*input.IconEmoji) != "" {
		row.IconEmoji = strings.TrimSpace(*input.IconEmoji)
	}
	if input.SortOrder != nil {
		row.SortOrder = *input.SortOrder
	}
	if input.IsActive != nil {
		row.IsActive = *input.IsActive
	}

	created, err := s.repo.Create(ctx, row)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to create collection")
	}
	out := toCollection(*created)
	return &out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Collection, error) {
	row, err := s.repo.FindByIDWithRewards(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	out := toDetail(*row)
	return &out, nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]Collection, error) {
	orderBy := params.OrderBy
	switch orderBy {
	case "":
		orderBy = OrderBySortOrder
	case OrderByName, OrderBySortOrder:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orderBy must be name or sortOrder")
	}

	rows, err := s.repo.List(ctx, ListQuery{ActiveOnly: params.ActiveOnly, OrderBy: orderBy})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to list collections")
	}
	counts, err := s.repo.RewardCounts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to count collection rewards")
	}

	out := make([]Collection, 0, len(rows))
	for _, row := range rows {
		item := toCollection(row)
		count := counts[row.ID]
		item.RewardCount = &count
		out = append(out, item)
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*Collection, error) {
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
	if input.IconEmoji != nil {
		emoji := strings.TrimSpace(*input.IconEmoji)
		if emoji == "" {
			emoji = DefaultIconEmoji
		}
		row.IconEmoji = emoji
	}
	if input.IconName != nil {
		iconName, err := normalizeIconName(input.IconName)
		if err != nil {
			return nil, err
		}
		row.IconName = iconName
	}
	if input.SortOrder != nil {
		row.SortOrder = *input.SortOrder
	}
	if input.IsActive != nil {
		row.IsActive = *input.IsActive
	}

	if err := s.repo.Update(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to update collection")
	}
	out := toCollection(*row)
	return &out, nil
}

// Delete refuses to remove a collection that still owns rewards.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return mapLookupError(err)
	}
	count, err := s.repo.CountRewards(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to count collection rewards")
	}
	if count > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "collection still has rewards").
			WithDetails(map[string]any{"rewardCount": count})
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if pkgdb.IsForeignKeyViolation(err) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "collection still has rewards")
		}
		return mapLookupError(err)
	}
	return nil
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "collection not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load collection")
}

func normalizeIconName(value *string) (*string, error) {
	if value == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil, nil
	}
	icon, err := enums.ParseIconName(trimmed)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "iconName is not a known icon")
	}
	name := icon.String()
	return &name, nil
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
