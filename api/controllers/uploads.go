package controllers

import (
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/questcraft/rewards-cms/api/responses"
	"github.com/questcraft/rewards-cms/api/validators"
	"github.com/questcraft/rewards-cms/internal/rewards"
	"github.com/questcraft/rewards-cms/internal/uploads"
	pkgerrors "github.com/questcraft/rewards-cms/pkg/errors"
	"github.com/questcraft/rewards-cms/pkg/logger"
)

const (
	multipartMemory = 8 << 20
	// multipartSlack covers form fields and boundaries on top of the file.
	multipartSlack = 1 << 20
)

// parseUpload reads the "file" part. Bodies far over maxBytes are cut off
// with 413; the exact size check happens in the upload service.
func parseUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (uploads.File, func(), error) {
	noop := func() {}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartSlack)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return uploads.File{}, noop, pkgerrors.Wrap(pkgerrors.CodeTooLarge, err, "file too large").
				WithDetails(map[string]any{"maxBytes": maxBytes})
		}
		return uploads.File{}, noop, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}
	cleanup := func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		cleanup()
		if errors.Is(err, http.ErrMissingFile) {
			return uploads.File{}, noop, pkgerrors.New(pkgerrors.CodeValidation, "No file provided")
		}
		return uploads.File{}, noop, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid file part")
	}
	return uploads.File{
		Reader:   file,
		Filename: filepath.Base(header.Filename),
		MimeType: partMIMEType(header),
		Size:     header.Size,
	}, func() { _ = file.Close(); cleanup() }, nil
}

func partMIMEType(header *multipart.FileHeader) string {
	if ct := strings.TrimSpace(header.Header.Get("Content-Type")); ct != "" && ct != "application/octet-stream" {
		if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
			return mediaType
		}
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(header.Filename))); byExt != "" {
		if mediaType, _, err := mime.ParseMediaType(byExt); err == nil {
			return mediaType
		}
	}
	return "application/octet-stream"
}

func formValue(r *http.Request, key string) string {
	return validators.SanitizeString(r.FormValue(key), 2000)
}

func optionalFormValue(r *http.Request, key string) *string {
	value := formValue(r, key)
	if value == "" {
		return nil
	}
	return &value
}

// UploadFile handles POST /upload: one multipart "file" plus an optional
// folderName.
func UploadFile(svc uploads.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, closeFile, err := parseUpload(w, r, maxBytes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer closeFile()

		result, err := svc.Upload(r.Context(), driveCredentials(r), file, formValue(r, "folderName"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// UploadReward handles POST /rewards/upload: the blob goes to Drive first
// and the reward row is written second.
func UploadReward(svc uploads.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, closeFile, err := parseUpload(w, r, maxBytes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer closeFile()

		fields, err := rewardFieldsFromForm(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.UploadReward(r.Context(), driveCredentials(r), file, formValue(r, "folderName"), fields)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func rewardFieldsFromForm(r *http.Request) (rewards.CreateInput, error) {
	collectionID, err := uuid.Parse(formValue(r, "collectionId"))
	if err != nil {
		return rewards.CreateInput{}, pkgerrors.New(pkgerrors.CodeValidation, "collectionId must be a uuid")
	}

	var tagIDs []uuid.UUID
	for _, raw := range r.MultipartForm.Value["tagIds"] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := uuid.Parse(part)
			if err != nil {
				return rewards.CreateInput{}, pkgerrors.New(pkgerrors.CodeValidation, "tagIds must be uuids")
			}
			tagIDs = append(tagIDs, id)
		}
	}

	return rewards.CreateInput{
		Name:                   formValue(r, "name"),
		Description:            optionalFormValue(r, "description"),
		Rarity:                 formValue(r, "rarity"),
		MediaType:              formValue(r, "mediaType"),
		GoogleDriveThumbnailID: optionalFormValue(r, "googleDriveThumbnailId"),
		CollectionID:           collectionID,
		TagIDs:                 tagIDs,
	}, nil
}
