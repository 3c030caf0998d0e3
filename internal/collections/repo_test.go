package collections

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/questcraft/rewards-cms/pkg/db/dbtest"
	"github.com/questcraft/rewards-cms/pkg/db/models"
	"github.com/questcraft/rewards-cms/pkg/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedCollection(t *testing.T, db *gorm.DB, name string, sortOrder int, active bool, createdAt time.Time) models.Collection {
	t.Helper()

	row := models.Collection{
		Name:      name,
		IconEmoji: DefaultIconEmoji,
		IsActive:  active,
		SortOrder: sortOrder,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	require.NoError(t, db.Create(&row).Error)
	return row
}

func seedReward(t *testing.T, db *gorm.DB, collectionID uuid.UUID, name string, active bool, createdAt time.Time) models.Reward {
	t.Helper()

	row := models.Reward{
		Name:              name,
		Rarity:            enums.RarityRare,
		MediaType:         enums.MediaTypeImage,
		GoogleDriveFileID: "file_" + name,
		CollectionID:      collectionID,
		IsActive:          active,
		CreatedAt:         createdAt,
		UpdatedAt:         createdAt,
	}
	require.NoError(t, db.Create(&row).Error)
	return row
}

func TestRepositoryListSortOrderIsStable(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	second := seedCollection(t, db, "Second", 1, true, base)
	firstTieA := seedCollection(t, db, "Zebra", 0, true, base.Add(time.Minute))
	firstTieB := seedCollection(t, db, "Alpha", 0, true, base.Add(2*time.Minute))
	seedCollection(t, db, "Hidden", 0, false, base.Add(3*time.Minute))

	rows, err := repo.List(ctx, ListQuery{ActiveOnly: true, OrderBy: OrderBySortOrder})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []uuid.UUID{firstTieA.ID, firstTieB.ID, second.ID}, []uuid.UUID{rows[0].ID, rows[1].ID, rows[2].ID})

	byName, err := repo.List(ctx, ListQuery{OrderBy: OrderByName})
	require.NoError(t, err)
	require.Len(t, byName, 4)
	assert.Equal(t, "Alpha", byName[0].Name)
	assert.Equal(t, "Zebra", byName[3].Name)
}

func TestRepositoryListActiveWithRewards(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	cats := seedCollection(t, db, "Cats", 0, true, base)
	seedCollection(t, db, "Drafts", 1, false, base)
	older := seedReward(t, db, cats.ID, "older", true, base)
	newer := seedReward(t, db, cats.ID, "newer", true, base.Add(time.Hour))
	seedReward(t, db, cats.ID, "inactive", false, base.Add(2*time.Hour))

	rows, err := repo.ListActiveWithRewards(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Len(t, rows[0].Rewards, 2)
	assert.Equal(t, newer.ID, rows[0].Rewards[0].ID)
	assert.Equal(t, older.ID, rows[0].Rewards[1].ID)
}

func TestRepositoryCountsAndDelete(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	full := seedCollection(t, db, "Full", 0, true, base)
	empty := seedCollection(t, db, "Empty", 0, true, base)
	seedReward(t, db, full.ID, "one", true, base)
	seedReward(t, db, full.ID, "two", true, base)

	total, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	count, err := repo.CountRewards(ctx, full.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	counts, err := repo.RewardCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[full.ID])
	assert.Zero(t, counts[empty.ID])

	require.NoError(t, repo.Delete(ctx, empty.ID))
	assert.ErrorIs(t, repo.Delete(ctx, empty.ID), gorm.ErrRecordNotFound)
	assert.Error(t, repo.Delete(ctx, full.ID), "rewards reference the collection")

	_, err = repo.FindByID(ctx, empty.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryFindByIDWithRewardsLoadsTags(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	cats := seedCollection(t, db, "Cats", 0, true, base)
	reward := seedReward(t, db, cats.ID, "cat1", true, base)
	tag := models.Tag{Name: "cute", Color: models.DefaultTagColor}
	require.NoError(t, db.Create(&tag).Error)
	require.NoError(t, db.Create(&models.RewardTag{RewardID: reward.ID, TagID: tag.ID}).Error)

	got, err := repo.FindByIDWithRewards(ctx, cats.ID)
	require.NoError(t, err)
	require.Len(t, got.Rewards, 1)
	assert.Equal(t, []string{"cute"}, got.Rewards[0].TagNames())
}
