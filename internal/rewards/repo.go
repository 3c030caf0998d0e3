package rewards

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/questcraft/rewards-cms/pkg/db/models"
	"github.com/questcraft/rewards-cms/pkg/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type listQuery struct {
	collectionID *uuid.UUID
	activeOnly   bool
	limit        int
	cursor       *pagination.Cursor
}

// Repository exposes reward persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a reward repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Collection").Preload("Tags.Tag")
}

// Create inserts the reward and its tag links in one transaction.
func (r *Repository) Create(ctx context.Context, reward *models.Reward, tagIDs []uuid.UUID) (*models.Reward, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(reward).Error; err != nil {
			return err
		}
		return insertTags(tx, reward.ID, tagIDs)
	})
	if err != nil {
		return nil, err
	}
	return reward, nil
}

// FindByID loads a reward with its collection and tags.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Reward, error) {
	var reward models.Reward
	if err := withRelations(r.db.WithContext(ctx)).First(&reward, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &reward, nil
}

// List returns rewards newest first using cursor pagination.
func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.Reward, error) {
	query := withRelations(r.db.WithContext(ctx).Model(&models.Reward{}))
	if opts.collectionID != nil {
		query = query.Where("collection_id = ?", *opts.collectionID)
	}
	if opts.activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}

	query = query.Order("created_at DESC").Order("id DESC")
	if opts.limit > 0 {
		query = query.Limit(opts.limit)
	}

	var rows []models.Reward
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListRecent returns the newest rewards regardless of status.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]models.Reward, error) {
	return r.List(ctx, listQuery{limit: limit})
}

// ListActive returns every active reward, newest first.
func (r *Repository) ListActive(ctx context.Context) ([]models.Reward, error) {
	return r.List(ctx, listQuery{activeOnly: true})
}

// Update persists the reward columns and, when tagIDs is non-nil, replaces
// its tag set in the same transaction.
func (r *Repository) Update(ctx context.Context, reward *models.Reward, tagIDs *[]uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(reward).Error; err != nil {
			return err
		}
		if tagIDs == nil {
			return nil
		}
		return replaceTags(tx, reward.ID, *tagIDs)
	})
}

// ReplaceTags swaps the reward's tag set for exactly tagIDs.
func (r *Repository) ReplaceTags(ctx context.Context, rewardID uuid.UUID, tagIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceTags(tx, rewardID, tagIDs)
	})
}

// Delete removes the reward row and its tag links. The Drive blob is kept.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("reward_id = ?", id).Delete(&models.RewardTag{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Reward{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// Count returns the number of rewards.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Reward{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountActive returns the number of active rewards.
func (r *Repository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Reward{}).Where("is_active = ?", true).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func replaceTags(tx *gorm.DB, rewardID uuid.UUID, tagIDs []uuid.UUID) error {
	res := tx.Model(&models.Reward{}).Where("id = ?", rewardID).Update("updated_at", time.Now().UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	if err := tx.Where("reward_id = ?", rewardID).Delete(&models.RewardTag{}).Error; err != nil {
		return err
	}
	return insertTags(tx, rewardID, tagIDs)
}

func insertTags(tx *gorm.DB, rewardID uuid.UUID, tagIDs []uuid.UUID) error {
	ids := uniqueIDs(tagIDs)
	if len(ids) == 0 {
		return nil
	}
	links := make([]models.RewardTag, 0, len(ids))
	for _, id := range ids {
		links = append(links, models.RewardTag{RewardID: rewardID, TagID: id})
	}
	return tx.Omit(clause.Associations).Create(&links).Error
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
