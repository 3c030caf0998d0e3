package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/questcraft/rewards-cms/api/responses"
	"github.com/questcraft/rewards-cms/api/validators"
	"github.com/questcraft/rewards-cms/internal/rewards"
	pkgerrors "github.com/questcraft/rewards-cms/pkg/errors"
	"github.com/questcraft/rewards-cms/pkg/logger"
	"github.com/questcraft/rewards-cms/pkg/pagination"
)

// createRewardRequest accepts primaryFileId and thumbnailFileId as aliases
// of the googleDrive* fields, as older dashboard builds send them.
type createRewardRequest struct {
	Name                   string      `json:"name" validate:"required,max=200"`
	Description            *string     `json:"description,omitempty"`
	Rarity                 string      `json:"rarity" validate:"required"`
	MediaType              string      `json:"mediaType" validate:"required"`
	GoogleDriveFileID      string      `json:"googleDriveFileId" validate:"omitempty,driveid"`
	PrimaryFileID          string      `json:"primaryFileId" validate:"omitempty,driveid"`
	GoogleDriveThumbnailID *string     `json:"googleDriveThumbnailId,omitempty" validate:"omitempty,driveid"`
	ThumbnailFileID        *string     `json:"thumbnailFileId,omitempty" validate:"omitempty,driveid"`
	CollectionID           uuid.UUID   `json:"collectionId" validate:"required"`
	TagIDs                 []uuid.UUID `json:"tagIds,omitempty"`
	IsActive               *bool       `json:"isActive,omitempty"`
	SortOrder              *int        `json:"sortOrder,omitempty"`
}

func (p createRewardRequest) toInput() (rewards.CreateInput, error) {
	fileID := p.GoogleDriveFileID
	if fileID == "" {
		fileID = p.PrimaryFileID
	}
	if fileID == "" {
		return rewards.CreateInput{}, pkgerrors.New(pkgerrors.CodeValidation, "googleDriveFileId is required")
	}
	thumbnail := p.GoogleDriveThumbnailID
	if thumbnail == nil {
		thumbnail = p.ThumbnailFileID
	}
	return rewards.CreateInput{
		Name:                   p.Name,
		Description:            p.Description,
		Rarity:                 p.Rarity,
		MediaType:              p.MediaType,
		GoogleDriveFileID:      fileID,
		GoogleDriveThumbnailID: thumbnail,
		CollectionID:           p.CollectionID,
		TagIDs:                 p.TagIDs,
		IsActive:               p.IsActive,
		SortOrder:              p.SortOrder,
	}, nil
}

type updateRewardRequest struct {
	Name                   *string      `json:"name,omitempty" validate:"omitempty,max=200"`
	Description            *string      `json:"description,omitempty"`
	Rarity                 *string      `json:"rarity,omitempty"`
	MediaType              *string      `json:"mediaType,omitempty"`
	GoogleDriveFileID      *string      `json:"googleDriveFileId,omitempty" validate:"omitempty,driveid"`
	GoogleDriveThumbnailID *string      `json:"googleDriveThumbnailId,omitempty" validate:"omitempty,driveid"`
	CollectionID           *uuid.UUID   `json:"collectionId,omitempty"`
	TagIDs                 *[]uuid.UUID `json:"tagIds,omitempty"`
	IsActive               *bool        `json:"isActive,omitempty"`
	SortOrder              *int         `json:"sortOrder,omitempty"`
}

type setTagsRequest struct {
	TagIDs []uuid.UUID `json:"tagIds"`
}

// ListRewards handles GET /rewards?collectionId&active&limit&cursor.
func ListRewards(svc rewards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		collectionID, err := validators.ParseOptionalUUIDQuery(r, "collectionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		activeOnly, err := validators.ParseQueryBool(r, "active", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), rewards.ListParams{
			CollectionID: collectionID,
			ActiveOnly:   activeOnly,
			Limit:        limit,
			Cursor:       r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func CreateReward(svc rewards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createRewardRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		created, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func GetReward(svc rewards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// UpdateReward applies a partial update. A tagIds field, even an empty
// list, replaces the whole tag set.
func UpdateReward(svc rewards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateRewardRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := svc.Update(r.Context(), id, rewards.UpdateInput{
			Name:                   payload.Name,
			Description:            payload.Description,
			Rarity:                 payload.Rarity,
			MediaType:              payload.MediaType,
			GoogleDriveFileID:      payload.GoogleDriveFileID,
			GoogleDriveThumbnailID: payload.GoogleDriveThumbnailID,
			CollectionID:           payload.CollectionID,
			TagIDs:                 payload.TagIDs,
			IsActive:               payload.IsActive,
			SortOrder:              payload.SortOrder,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

// SetRewardTags handles PUT /rewards/{id}/tags.
func SetRewardTags(svc rewards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload setTagsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.TagIDs == nil {
			payload.TagIDs = []uuid.UUID{}
		}
		updated, err := svc.SetTags(r.Context(), id, payload.TagIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func DeleteReward(svc rewards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
