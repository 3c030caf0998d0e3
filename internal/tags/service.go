package tags

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/questcraft/rewards-cms/pkg/db/models"
	pkgerrors "github.com/questcraft/rewards-cms/pkg/errors"
	"gorm.io/gorm"
)

var colorPattern = regexp.MustCompile(`^#(?:[0-9A-Fa-f]{3}|[0-9A-Fa-f]{6})$`)

type tagsRepository interface {
	Create(ctx context.Context, tag *models.Tag) (*models.Tag, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Tag, error)
	List(ctx context.Context) ([]TagWithCount, error)
	Update(ctx context.Context, tag *models.Tag) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Tag is the API view of a tag.
type Tag struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	RewardCount *int64    `json:"rewardCount,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Service exposes tag management.
type Service interface {
	List(ctx context.Context) ([]Tag, error)
	Create(ctx context.Context, name string, color *string) (*Tag, error)
	Update(ctx context.Context, id uuid.UUID, name, color *string) (*Tag, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo tagsRepository
}

// NewService builds a tag service backed by the provided repository.
func NewService(repo tagsRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("tags repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context) ([]Tag, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to list tags")
	}
	out := make([]Tag, 0, len(rows))
	for _, row := range rows {
		count := row.RewardCount
		out = append(out, Tag{
			ID:          row.ID,
			Name:        row.Name,
			Color:       row.Color,
			RewardCount: &count,
			CreatedAt:   row.CreatedAt,
			UpdatedAt:   row.UpdatedAt,
		})
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, name string, color *string) (*Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	resolved := models.DefaultTagColor
	if color != nil && strings.TrimSpace(*color) != "" {
		c, err := normalizeColor(*color)
		if err != nil {
			return nil, err
		}
		resolved = c
	}

	created, err := s.repo.Create(ctx, &models.Tag{Name: name, Color: resolved})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to create tag")
	}
	return toTag(created), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, name, color *string) (*Tag, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		row.Name = trimmed
	}
	if color != nil {
		c, err := normalizeColor(*color)
		if err != nil {
			return nil, err
		}
		row.Color = c
	}
	if err := s.repo.Update(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to update tag")
	}
	return toTag(row), nil
}

// Delete removes the tag together with its reward links.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapLookupError(err)
	}
	return nil
}

func normalizeColor(value string) (string, error) {
	value = strings.TrimSpace(value)
	if !colorPattern.MatchString(value) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "color must be a hex value like #3B82F6")
	}
	return strings.ToUpper(value), nil
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "tag not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load tag")
}

func toTag(row *models.Tag) *Tag {
	return &Tag{
		ID:        row.ID,
		Name:      row.Name,
		Color:     row.Color,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
