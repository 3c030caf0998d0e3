package tags

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/questcraft/rewards-cms/pkg/db/dbtest"
	"github.com/questcraft/rewards-cms/pkg/db/models"
	"github.com/questcraft/rewards-cms/pkg/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedTaggedReward(t *testing.T, db *gorm.DB, tagIDs ...uuid.UUID) models.Reward {
	t.Helper()

	collection := models.Collection{Name: "Cats", IconEmoji: "🐱", IsActive: true}
	require.NoError(t, db.Create(&collection).Error)
	reward := models.Reward{
		Name:              "cat1",
		Rarity:            enums.RarityCommon,
		MediaType:         enums.MediaTypeImage,
		GoogleDriveFileID: "abc123",
		CollectionID:      collection.ID,
		IsActive:          true,
	}
	require.NoError(t, db.Create(&reward).Error)
	for _, id := range tagIDs {
		require.NoError(t, db.Create(&models.RewardTag{RewardID: reward.ID, TagID: id}).Error)
	}
	return reward
}

func TestRepositoryListCountsRewards(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	cute, err := repo.Create(ctx, &models.Tag{Name: "cute", Color: models.DefaultTagColor})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &models.Tag{Name: "angry", Color: "#FF0000"})
	require.NoError(t, err)
	seedTaggedReward(t, db, cute.ID)

	rows, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "angry", rows[0].Name)
	assert.Equal(t, int64(0), rows[0].RewardCount)
	assert.Equal(t, "cute", rows[1].Name)
	assert.Equal(t, int64(1), rows[1].RewardCount)

	found, err := repo.FindByIDs(ctx, []uuid.UUID{cute.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, found, 1)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRepositoryDeleteRemovesLinks(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	tag, err := repo.Create(ctx, &models.Tag{Name: "cute", Color: models.DefaultTagColor})
	require.NoError(t, err)
	reward := seedTaggedReward(t, db, tag.ID)

	require.NoError(t, repo.Delete(ctx, tag.ID))

	var links int64
	require.NoError(t, db.Model(&models.RewardTag{}).Where("reward_id = ?", reward.ID).Count(&links).Error)
	assert.Zero(t, links)

	var rewards int64
	require.NoError(t, db.Model(&models.Reward{}).Count(&rewards).Error)
	assert.Equal(t, int64(1), rewards)

	assert.ErrorIs(t, repo.Delete(ctx, tag.ID), gorm.ErrRecordNotFound)
}
