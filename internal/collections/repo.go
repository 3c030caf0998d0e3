package collections

import (
	"context"

	"github.com/google/uuid"
	"github.com/questcraft/rewards-cms/pkg/db/models"
	"gorm.io/gorm"
)

const (
	OrderByName      = "name"
	OrderBySortOrder = "sortOrder"
)

// ListQuery filters and orders a collection listing.
type ListQuery struct {
	ActiveOnly bool
	OrderBy    string
}

// Repository exposes collection persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a collection repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new collection row.
func (r *Repository) Create(ctx context.Context, collection *models.Collection) (*models.Collection, error) {
	if err := r.db.WithContext(ctx).Create(collection).Error; err != nil {
		return nil, err
	}
	return collection, nil
}

// FindByID loads a collection without its rewards.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Collection, error) {
	var collection models.Collection
	if err := r.db.WithContext(ctx).First(&collection, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &collection, nil
}

// FindByIDWithRewards loads a collection with every reward it owns, newest first.
func (r *Repository) FindByIDWithRewards(ctx context.Context, id uuid.UUID) (*models.Collection, error) {
	var collection models.Collection
	err := r.db.WithContext(ctx).
		Preload("Rewards", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC").Order("id DESC")
		}).
		Preload("Rewards.Tags.Tag").
		First(&collection, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &collection, nil
}

// List returns collections ordered by name or by display order. Display
// order ties break on insertion order.
func (r *Repository) List(ctx context.Context, opts ListQuery) ([]models.Collection, error) {
	query := r.db.WithContext(ctx).Model(&models.Collection{})
	if opts.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if opts.OrderBy == OrderByName {
		query = query.Order("name ASC")
	} else {
		query = query.Order("sort_order ASC")
	}
	query = query.Order("created_at ASC").Order("id ASC")

	var rows []models.Collection
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListActiveWithRewards returns active collections in display order, each
// with its active rewards (newest first) and their tags.
func (r *Repository) ListActiveWithRewards(ctx context.Context) ([]models.Collection, error) {
	var rows []models.Collection
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Preload("Rewards", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("created_at DESC").Order("id DESC")
		}).
		Preload("Rewards.Tags.Tag").
		Order("sort_order ASC").Order("created_at ASC").Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Update persists every column of the collection.
func (r *Repository) Update(ctx context.Context, collection *models.Collection) error {
	return r.db.WithContext(ctx).Omit("Rewards").Save(collection).Error
}

// Delete removes the collection row. The rewards foreign key restricts
// deletion while rewards still reference it.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Collection{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Count returns the number of collections.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Collection{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountRewards returns how many rewards reference the collection.
func (r *Repository) CountRewards(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Reward{}).Where("collection_id = ?", id).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

type rewardCountRow struct {
	CollectionID uuid.UUID
	Total        int64
}

// RewardCounts returns the number of rewards per collection id. Collections
// without rewards are absent from the map.
func (r *Repository) RewardCounts(ctx context.Context) (map[uuid.UUID]int64, error) {
	var rows []rewardCountRow
	err := r.db.WithContext(ctx).
		Model(&models.Reward{}).
		Select("collection_id, COUNT(*) AS total").
		Group("collection_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		counts[row.CollectionID] = row.Total
	}
	return counts, nil
}
