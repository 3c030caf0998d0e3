package controllers

import (
	"context"
	"net/http"

	"github.com/questcraft/rewards-cms/api/responses"
	"github.com/questcraft/rewards-cms/api/validators"
	"github.com/questcraft/rewards-cms/pkg/logger"
	"github.com/questcraft/rewards-cms/pkg/storage/drive"
)

// DriveBrowser is the slice of the Drive gateway the dashboard's file
// picker needs.
type DriveBrowser interface {
	ListFiles(ctx context.Context, creds drive.Credentials, in drive.ListFilesInput) (*drive.FileList, error)
	ListFolders(ctx context.Context, creds drive.Credentials, parentID, pageToken string) (*drive.FolderList, error)
	Delete(ctx context.Context, creds drive.Credentials, fileID string) error
}

// ListDriveFiles handles GET /google-drive/files?folderId&pageToken. Only
// images and videos are listed.
func ListDriveFiles(gw DriveBrowser, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		folderID, err := validators.DriveIDQuery(r, "folderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := gw.ListFiles(r.Context(), driveCredentials(r), drive.ListFilesInput{
			FolderID:  folderID,
			MediaOnly: true,
			PageToken: r.URL.Query().Get("pageToken"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, drive.AppError(err, "Failed to list Google Drive files"))
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func ListDriveFolders(gw DriveBrowser, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parentID, err := validators.DriveIDQuery(r, "parentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := gw.ListFolders(r.Context(), driveCredentials(r), parentID, r.URL.Query().Get("pageToken"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, drive.AppError(err, "Failed to list Google Drive folders"))
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func DeleteDriveFile(gw DriveBrowser, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fileID, err := validators.DriveIDParam(r, "fileId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := gw.Delete(r.Context(), driveCredentials(r), fileID); err != nil {
			responses.WriteError(r.Context(), logg, w, drive.AppError(err, "Failed to delete file from Google Drive"))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
