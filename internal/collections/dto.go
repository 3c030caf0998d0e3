package collections

import (
	"time"

	"github.com/google/uuid"
	"github.com/questcraft/rewards-cms/pkg/db/models"
	"github.com/questcraft/rewards-cms/pkg/storage/drive"
)

// Collection is the API view of a collection row.
type Collection struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	IconEmoji   string          `json:"iconEmoji"`
	IconName    *string         `json:"iconName"`
	IsActive    bool            `json:"isActive"`
	SortOrder   int             `json:"sortOrder"`
	RewardCount *int64          `json:"rewardCount,omitempty"`
	Rewards     []RewardSummary `json:"rewards,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// RewardSummary is the trimmed reward shape nested in a collection detail.
type RewardSummary struct {
	ID                     uuid.UUID `json:"id"`
	Name                   string    `json:"name"`
	Rarity                 string    `json:"rarity"`
	MediaType              string    `json:"mediaType"`
	GoogleDriveFileID      string    `json:"googleDriveFileId"`
	GoogleDriveThumbnailID *string   `json:"googleDriveThumbnailId"`
	ThumbnailURL           string    `json:"thumbnailUrl"`
	IsActive               bool      `json:"isActive"`
	Tags                   []string  `json:"tags"`
	CreatedAt              time.Time `json:"createdAt"`
}

func toCollection(row models.Collection) Collection {
	return Collection{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		IconEmoji:   row.IconEmoji,
		IconName:    row.IconName,
		IsActive:    row.IsActive,
		SortOrder:   row.SortOrder,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

func toDetail(row models.Collection) Collection {
	out := toCollection(row)
	count := int64(len(row.Rewards))
	out.RewardCount = &count
	out.Rewards = make([]RewardSummary, 0, len(row.Rewards))
	for i := range row.Rewards {
		reward := &row.Rewards[i]
		thumb := reward.GoogleDriveFileID
		if reward.GoogleDriveThumbnailID != nil && *reward.GoogleDriveThumbnailID != "" {
			thumb = *reward.GoogleDriveThumbnailID
		}
		out.Rewards = append(out.Rewards, RewardSummary{
			ID:                     reward.ID,
			Name:                   reward.Name,
			Rarity:                 reward.Rarity.String(),
			MediaType:              reward.MediaType.String(),
			GoogleDriveFileID:      reward.GoogleDriveFileID,
			GoogleDriveThumbnailID: reward.GoogleDriveThumbnailID,
			ThumbnailURL:           drive.ThumbnailURL(thumb, 0),
			IsActive:               reward.IsActive,
			Tags:                   reward.TagNames(),
			CreatedAt:              reward.CreatedAt,
		})
	}
	return out
}
