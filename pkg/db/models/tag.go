package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultTagColor is applied when a tag is created without a color.
const DefaultTagColor = "#3B82F6"

type Tag struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Color     string    `gorm:"column:color;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Tag) TableName() string { return "tags" }

func (t *Tag) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// RewardTag links a reward to a tag. The pair is the primary key.
type RewardTag struct {
	RewardID  uuid.UUID `gorm:"column:reward_id;type:uuid;primaryKey"`
	TagID     uuid.UUID `gorm:"column:tag_id;type:uuid;primaryKey;index"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`

	Tag *Tag `gorm:"foreignKey:TagID;constraint:OnDelete:CASCADE"`
}

func (RewardTag) TableName() string { return "reward_tags" }
