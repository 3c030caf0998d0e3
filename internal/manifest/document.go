package manifest

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/questcraft/rewards-cms/pkg/db/models"
)

const (
	VersionCurrent = "2.0"
	VersionLegacy  = "1.0"
)

// Document is the current manifest contract consumed by the mobile client.
type Document struct {
	Version     string       `json:"version"`
	LastUpdated string       `json:"lastUpdated"`
	Collections []Collection `json:"collections"`
	Rewards     []Reward     `json:"rewards"`
	Tags        []Tag        `json:"tags"`
}

type Collection struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Description *string     `json:"description"`
	IconEmoji   string      `json:"iconEmoji"`
	IconName    *string     `json:"iconName"`
	Rewards     []uuid.UUID `json:"rewards"`
}

type Reward struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description"`
	Rarity       string    `json:"rarity"`
	MediaType    string    `json:"mediaType"`
	FileID       string    `json:"fileID"`
	ThumbnailID  *string   `json:"thumbnailID"`
	CollectionID uuid.UUID `json:"collectionId"`
	Tags         []string  `json:"tags"`
}

type Tag struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Color string    `json:"color"`
}

// LegacyDocument is the deprecated 1.0 contract: a flat reward list with
// the owning collection inlined.
type LegacyDocument struct {
	Version      string             `json:"version"`
	LastUpdated  string             `json:"lastUpdated"`
	TotalRewards int                `json:"totalRewards"`
	Rewards      []LegacyReward     `json:"rewards"`
	Collections  []LegacyCollection `json:"collections"`
}

type LegacyReward struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Rarity      string              `json:"rarity"`
	Type        string              `json:"type"`
	FileID      string              `json:"fileID"`
	ThumbnailID string              `json:"thumbnailID,omitempty"`
	Collection  LegacyCollectionRef `json:"collection"`
	Tags        []string            `json:"tags"`
	CreatedAt   string              `json:"createdAt"`
}

type LegacyCollectionRef struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Emoji    string    `json:"emoji"`
	IconName *string   `json:"iconName"`
}

type LegacyCollection struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Emoji       string    `json:"emoji"`
	IconName    *string   `json:"iconName"`
	RewardCount int64     `json:"rewardCount"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// buildDocument flattens collections (already in display order, rewards
// newest first) and tags into the current contract.
func buildDocument(now time.Time, collections []models.Collection, tags []models.Tag) Document {
	doc := Document{
		Version:     VersionCurrent,
		LastUpdated: formatTime(now),
		Collections: make([]Collection, 0, len(collections)),
		Rewards:     []Reward{},
		Tags:        make([]Tag, 0, len(tags)),
	}

	for _, col := range collections {
		entry := Collection{
			ID:          col.ID,
			Name:        col.Name,
			Description: col.Description,
			IconEmoji:   col.IconEmoji,
			IconName:    col.IconName,
			Rewards:     make([]uuid.UUID, 0, len(col.Rewards)),
		}
		for i := range col.Rewards {
			reward := &col.Rewards[i]
			entry.Rewards = append(entry.Rewards, reward.ID)
			doc.Rewards = append(doc.Rewards, Reward{
				ID:           reward.ID,
				Name:         reward.Name,
				Description:  reward.Description,
				Rarity:       reward.Rarity.String(),
				MediaType:    reward.MediaType.String(),
				FileID:       reward.GoogleDriveFileID,
				ThumbnailID:  reward.GoogleDriveThumbnailID,
				CollectionID: reward.CollectionID,
				Tags:         sortedTagNames(reward),
			})
		}
		doc.Collections = append(doc.Collections, entry)
	}

	for _, tag := range tags {
		doc.Tags = append(doc.Tags, Tag{ID: tag.ID, Name: tag.Name, Color: tag.Color})
	}
	return doc
}

func buildLegacyDocument(now time.Time, rewards []models.Reward, collections []models.Collection, counts map[uuid.UUID]int64) LegacyDocument {
	doc := LegacyDocument{
		Version:      VersionLegacy,
		LastUpdated:  formatTime(now),
		TotalRewards: len(rewards),
		Rewards:      make([]LegacyReward, 0, len(rewards)),
		Collections:  make([]LegacyCollection, 0, len(collections)),
	}

	for i := range rewards {
		reward := &rewards[i]
		entry := LegacyReward{
			ID:          reward.ID,
			Name:        reward.Name,
			Description: deref(reward.Description),
			Rarity:      reward.Rarity.String(),
			Type:        reward.MediaType.String(),
			FileID:      reward.GoogleDriveFileID,
			ThumbnailID: deref(reward.GoogleDriveThumbnailID),
			Tags:        sortedTagNames(reward),
			CreatedAt:   formatTime(reward.CreatedAt),
		}
		if reward.Collection != nil {
			entry.Collection = LegacyCollectionRef{
				ID:       reward.Collection.ID,
				Name:     reward.Collection.Name,
				Emoji:    reward.Collection.IconEmoji,
				IconName: reward.Collection.IconName,
			}
		} else {
			entry.Collection = LegacyCollectionRef{ID: reward.CollectionID}
		}
		doc.Rewards = append(doc.Rewards, entry)
	}

	for _, col := range collections {
		doc.Collections = append(doc.Collections, LegacyCollection{
			ID:          col.ID,
			Name:        col.Name,
			Description: deref(col.Description),
			Emoji:       col.IconEmoji,
			IconName:    col.IconName,
			RewardCount: counts[col.ID],
		})
	}
	return doc
}

func sortedTagNames(reward *models.Reward) []string {
	names := reward.TagNames()
	sort.Strings(names)
	return names
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
