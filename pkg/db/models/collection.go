package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Collection groups rewards for display. Active collections are published
// in the manifest in ascending SortOrder.
type Collection struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Description *string   `gorm:"column:description"`
	IconEmoji   string    `gorm:"column:icon_emoji;not null"`
	IconName    *string   `gorm:"column:icon_name"`
	IsActive    bool      `gorm:"column:is_active;not null"`
	SortOrder   int       `gorm:"column:sort_order;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Rewards []Reward `gorm:"foreignKey:CollectionID;constraint:OnDelete:RESTRICT"`
}

func (Collection) TableName() string { return "collections" }

func (c *Collection) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
