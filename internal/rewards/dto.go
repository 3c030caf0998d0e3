package rewards

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/questcraft/rewards-cms/pkg/db/models"
	"github.com/questcraft/rewards-cms/pkg/storage/drive"
)

// Reward is the API view of a reward with its collection and tags.
type Reward struct {
	ID                     uuid.UUID      `json:"id"`
	Name                   string         `json:"name"`
	Description            *string        `json:"description"`
	Rarity                 string         `json:"rarity"`
	MediaType              string         `json:"mediaType"`
	GoogleDriveFileID      string         `json:"googleDriveFileId"`
	GoogleDriveThumbnailID *string        `json:"googleDriveThumbnailId"`
	ThumbnailURL           string         `json:"thumbnailUrl"`
	CollectionID           uuid.UUID      `json:"collectionId"`
	Collection             *CollectionRef `json:"collection,omitempty"`
	Tags                   []TagRef       `json:"tags"`
	IsActive               bool           `json:"isActive"`
	SortOrder              int            `json:"sortOrder"`
	CreatedAt              time.Time      `json:"createdAt"`
	UpdatedAt              time.Time      `json:"updatedAt"`
}

type CollectionRef struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IconEmoji string    `json:"iconEmoji"`
	IconName  *string   `json:"iconName"`
}

type TagRef struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Color string    `json:"color"`
}

// ToReward converts a reward row with loaded relations into its API view.
// Tags are sorted by name.
func ToReward(row models.Reward) Reward {
	thumb := row.GoogleDriveFileID
	if row.GoogleDriveThumbnailID != nil && *row.GoogleDriveThumbnailID != "" {
		thumb = *row.GoogleDriveThumbnailID
	}
	out := Reward{
		ID:                     row.ID,
		Name:                   row.Name,
		Description:            row.Description,
		Rarity:                 row.Rarity.String(),
		MediaType:              row.MediaType.String(),
		GoogleDriveFileID:      row.GoogleDriveFileID,
		GoogleDriveThumbnailID: row.GoogleDriveThumbnailID,
		ThumbnailURL:           drive.ThumbnailURL(thumb, 0),
		CollectionID:           row.CollectionID,
		Tags:                   make([]TagRef, 0, len(row.Tags)),
		IsActive:               row.IsActive,
		SortOrder:              row.SortOrder,
		CreatedAt:              row.CreatedAt,
		UpdatedAt:              row.UpdatedAt,
	}
	if row.Collection != nil {
		out.Collection = &CollectionRef{
			ID:        row.Collection.ID,
			Name:      row.Collection.Name,
			IconEmoji: row.Collection.IconEmoji,
			IconName:  row.Collection.IconName,
		}
	}
	for _, link := range row.Tags {
		if link.Tag == nil {
			continue
		}
		out.Tags = append(out.Tags, TagRef{ID: link.Tag.ID, Name: link.Tag.Name, Color: link.Tag.Color})
	}
	sort.SliceStable(out.Tags, func(i, j int) bool {
		if out.Tags[i].Name == out.Tags[j].Name {
			return out.Tags[i].ID.String() < out.Tags[j].ID.String()
		}
		return out.Tags[i].Name < out.Tags[j].Name
	})
	return out
}
