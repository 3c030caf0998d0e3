package controllers

import (
	"fmt"
	"net/http"

	"github.com/questcraft/rewards-cms/api/responses"
	"github.com/questcraft/rewards-cms/internal/manifest"
	"github.com/questcraft/rewards-cms/pkg/logger"
)

// Manifest serves the current manifest document without an envelope.
func Manifest(svc manifest.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := svc.Build(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set("Cache-Control", "no-cache")
		responses.WriteJSON(w, http.StatusOK, doc)
	}
}

// LegacyManifest serves the 1.0 document for clients that predate 2.0.
func LegacyManifest(svc manifest.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := svc.BuildLegacy(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Deprecation", "true")
		w.Header().Set("Link", `</manifest>; rel="successor-version"`)
		responses.WriteJSON(w, http.StatusOK, doc)
	}
}

// DownloadManifest returns the manifest as an attachment.
func DownloadManifest(svc manifest.Service, fileName string, logg *logger.Logger) http.HandlerFunc {
	if fileName == "" {
		fileName = manifest.DefaultFileName
	}
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := svc.Render(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload)
	}
}

// PublishManifest uploads the manifest to the configured Drive folder.
func PublishManifest(svc manifest.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.Publish(r.Context(), driveCredentials(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"fileId": res.FileID, "viewUrl": res.ViewURL})
	}
}
