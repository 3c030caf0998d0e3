package collections

import (
	"context"

	"github.com/questcraft/rewards-cms/pkg/db/models"
)

const (
	DefaultCollectionName  = "Default Collection"
	DefaultCollectionEmoji = "🎁"
)

// EnsureDefault creates the starter collection unless one with the same
// name exists. The bool reports whether a row was inserted.
func (r *Repository) EnsureDefault(ctx context.Context) (*models.Collection, bool, error) {
	description := "Starter collection for new rewards"
	row := models.Collection{
		Name:        DefaultCollectionName,
		Description: &description,
		IconEmoji:   DefaultCollectionEmoji,
		IsActive:    true,
		SortOrder:   0,
	}
	res := r.db.WithContext(ctx).
		Where("name = ?", DefaultCollectionName).
		Attrs(row).
		FirstOrCreate(&row)
	if res.Error != nil {
		return nil, false, res.Error
	}
	return &row, res.RowsAffected > 0, nil
}
