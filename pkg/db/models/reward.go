package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/questcraft/rewards-cms/pkg/enums"
)

// Reward is one media asset stored in Google Drive and catalogued here.
type Reward struct {
	ID                     uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name                   string          `gorm:"column:name;not null"`
	Description            *string         `gorm:"column:description"`
	Rarity                 enums.Rarity    `gorm:"column:rarity;type:reward_rarity;not null"`
	MediaType              enums.MediaType `gorm:"column:media_type;type:reward_media_type;not null"`
	GoogleDriveFileID      string          `gorm:"column:google_drive_file_id;not null"`
	GoogleDriveThumbnailID *string         `gorm:"column:google_drive_thumbnail_id"`
	CollectionID           uuid.UUID       `gorm:"column:collection_id;type:uuid;not null;index"`
	IsActive               bool            `gorm:"column:is_active;not null"`
	SortOrder              int             `gorm:"column:sort_order;not null"`
	CreatedAt              time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time       `gorm:"column:updated_at;autoUpdateTime"`

	Collection *Collection `gorm:"foreignKey:CollectionID"`
	Tags       []RewardTag `gorm:"foreignKey:RewardID;constraint:OnDelete:CASCADE"`
}

func (Reward) TableName() string { return "rewards" }

func (r *Reward) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// TagNames returns the names of the loaded tags.
func (r *Reward) TagNames() []string {
	names := make([]string, 0, len(r.Tags))
	for _, rt := range r.Tags {
		if rt.Tag != nil {
			names = append(names, rt.Tag.Name)
		}
	}
	return names
}
