package tags

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/questcraft/rewards-cms/pkg/db/models"
	"gorm.io/gorm"
)

// TagWithCount is a tag row plus the number of rewards carrying it.
type TagWithCount struct {
	ID          uuid.UUID
	Name        string
	Color       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RewardCount int64
}

// Repository exposes tag persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a tag repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new tag row.
func (r *Repository) Create(ctx context.Context, tag *models.Tag) (*models.Tag, error) {
	if err := r.db.WithContext(ctx).Create(tag).Error; err != nil {
		return nil, err
	}
	return tag, nil
}

// FindByID loads one tag.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Tag, error) {
	var tag models.Tag
	if err := r.db.WithContext(ctx).First(&tag, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// FindByIDs loads the tags whose ids are listed. Unknown ids are skipped.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Tag, error) {
	if len(ids) == 0 {
		return []models.Tag{}, nil
	}
	var rows []models.Tag
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("name ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// List returns every tag ordered by name, with reward counts.
func (r *Repository) List(ctx context.Context) ([]TagWithCount, error) {
	var rows []TagWithCount
	err := r.db.WithContext(ctx).
		Model(&models.Tag{}).
		Select("tags.id, tags.name, tags.color, tags.created_at, tags.updated_at, COUNT(reward_tags.reward_id) AS reward_count").
		Joins("LEFT JOIN reward_tags ON reward_tags.tag_id = tags.id").
		Group("tags.id, tags.name, tags.color, tags.created_at, tags.updated_at").
		Order("tags.name ASC").Order("tags.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListAll returns every tag ordered by name without counts.
func (r *Repository) ListAll(ctx context.Context) ([]models.Tag, error) {
	var rows []models.Tag
	if err := r.db.WithContext(ctx).Order("name ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Update persists the tag's columns.
func (r *Repository) Update(ctx context.Context, tag *models.Tag) error {
	return r.db.WithContext(ctx).Save(tag).Error
}

// Delete removes the tag and every reward link to it in one transaction.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tag_id = ?", id).Delete(&models.RewardTag{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Tag{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// Count returns the number of tags.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Tag{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
