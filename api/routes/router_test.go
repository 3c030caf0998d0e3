package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questcraft/rewards-cms/internal/collections"
	"github.com/questcraft/rewards-cms/internal/dashboard"
	"github.com/questcraft/rewards-cms/internal/manifest"
	"github.com/questcraft/rewards-cms/internal/rewards"
	"github.com/questcraft/rewards-cms/internal/tags"
	"github.com/questcraft/rewards-cms/internal/uploads"
	pkgAuth "github.com/questcraft/rewards-cms/pkg/auth"
	"github.com/questcraft/rewards-cms/pkg/auth/session"
	"github.com/questcraft/rewards-cms/pkg/config"
	"github.com/questcraft/rewards-cms/pkg/db/dbtest"
	"github.com/questcraft/rewards-cms/pkg/logger"
	"github.com/questcraft/rewards-cms/pkg/storage/drive"
)

type stubSessions struct{}

func (stubSessions) Touch(ctx context.Context, sessionID string) (*session.Session, error) {
	if sessionID != "sess-1" {
		return nil, session.ErrSessionNotFound
	}
	return &session.Session{ID: "sess-1", UserID: "user-1", Email: "owner@example.com", AccessToken: "user-token"}, nil
}

type fakeDrive struct {
	calls   int
	deleted []string
	creds   []drive.Credentials
}

func (f *fakeDrive) Upload(ctx context.Context, creds drive.Credentials, in drive.UploadInput) (*drive.UploadResult, error) {
	f.calls++
	f.creds = append(f.creds, creds)
	_, _ = io.Copy(io.Discard, in.Reader)
	return &drive.UploadResult{FileID: "uploaded1", Filename: in.Filename, ViewURL: "https://drive.google.com/file/d/uploaded1/view"}, nil
}

func (f *fakeDrive) Delete(ctx context.Context, creds drive.Credentials, fileID string) error {
	f.calls++
	f.deleted = append(f.deleted, fileID)
	return nil
}

func (f *fakeDrive) FindOrCreateFolder(ctx context.Context, creds drive.Credentials, name, parentID string) (string, error) {
	f.calls++
	return "folder1", nil
}

func (f *fakeDrive) DefaultFolderID() string { return "" }

func (f *fakeDrive) ListFiles(ctx context.Context, creds drive.Credentials, in drive.ListFilesInput) (*drive.FileList, error) {
	f.calls++
	if creds.AccessToken == "" {
		return nil, drive.ErrNoCredentials
	}
	return &drive.FileList{Files: []drive.File{{ID: "f1", Name: "cat.png", MimeType: "image/png"}}}, nil
}

func (f *fakeDrive) ListFolders(ctx context.Context, creds drive.Credentials, parentID, pageToken string) (*drive.FolderList, error) {
	f.calls++
	return &drive.FolderList{Folders: []drive.File{}}, nil
}

type testServer struct {
	handler http.Handler
	drive   *fakeDrive
	token   string
}

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "questcraft-test", SessionTTLDays: 1}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := dbtest.Open(t)
	collectionsRepo := collections.NewRepository(db)
	rewardsRepo := rewards.NewRepository(db)
	tagsRepo := tags.NewRepository(db)

	collectionsSvc, err := collections.NewService(collectionsRepo)
	require.NoError(t, err)
	rewardsSvc, err := rewards.NewService(rewardsRepo, collectionsRepo, tagsRepo)
	require.NoError(t, err)
	tagsSvc, err := tags.NewService(tagsRepo)
	require.NoError(t, err)
	dashboardSvc, err := dashboard.NewService(rewardsRepo, collectionsRepo, tagsRepo)
	require.NoError(t, err)
	manifestSvc, err := manifest.NewService(collectionsRepo, rewardsRepo, tagsRepo, nil, manifest.Options{})
	require.NoError(t, err)

	gw := &fakeDrive{}
	uploadsSvc, err := uploads.NewService(gw, rewardsSvc, uploads.Options{MaxBytes: 1 << 20})
	require.NoError(t, err)

	cfg := &config.Config{
		App:      config.AppConfig{Env: "test"},
		JWT:      testJWT,
		CORS:     config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Manifest: config.ManifestConfig{RatePerSecond: 1000, Burst: 1000},
		Media:    config.MediaConfig{MaxUploadMB: 1},
	}

	handler := NewRouter(cfg, logger.Nop(), Dependencies{
		Sessions:    stubSessions{},
		Collections: collectionsSvc,
		Rewards:     rewardsSvc,
		Tags:        tagsSvc,
		Uploads:     uploadsSvc,
		Drive:       gw,
		Manifest:    manifestSvc,
		Dashboard:   dashboardSvc,
	})

	token, err := pkgAuth.MintSessionToken(testJWT, time.Now(), pkgAuth.SessionTokenPayload{SessionID: "sess-1", UserID: "user-1"})
	require.NoError(t, err)
	return &testServer{handler: handler, drive: gw, token: token}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+s.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), rec.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

func TestHealthLive(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-QuestCraft-Env"))
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/api/v1/collections", "/api/v1/rewards", "/api/v1/tags", "/api/v1/icons"} {
		rec := httptest.NewRecorder()
		srv.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestCatsScenario(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/v1/collections", map[string]any{"name": "Cats", "iconEmoji": "🐱"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var cats struct {
		ID        string `json:"id"`
		IsActive  bool   `json:"isActive"`
		SortOrder int    `json:"sortOrder"`
		IconEmoji string `json:"iconEmoji"`
	}
	decodeData(t, rec, &cats)
	assert.True(t, cats.IsActive)
	assert.Equal(t, 0, cats.SortOrder)
	assert.Equal(t, "🐱", cats.IconEmoji)

	rec = srv.do(t, http.MethodPost, "/api/v1/rewards", map[string]any{
		"name":              "Cat1",
		"rarity":            "rare",
		"mediaType":         "image",
		"googleDriveFileId": "abc123",
		"collectionId":      cats.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var cat1 struct {
		ID     string `json:"id"`
		Rarity string `json:"rarity"`
	}
	decodeData(t, rec, &cat1)

	// manifest is public
	rec = httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/manifest", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var doc struct {
		Version     string `json:"version"`
		Collections []struct {
			ID      string   `json:"id"`
			Rewards []string `json:"rewards"`
		} `json:"collections"`
		Rewards []struct {
			ID     string `json:"id"`
			Rarity string `json:"rarity"`
		} `json:"rewards"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, manifest.VersionCurrent, doc.Version)
	require.Len(t, doc.Collections, 1)
	assert.Equal(t, []string{cat1.ID}, doc.Collections[0].Rewards)
	require.Len(t, doc.Rewards, 1)
	assert.Equal(t, "rare", doc.Rewards[0].Rarity)

	// a collection that owns rewards cannot be deleted
	rec = srv.do(t, http.MethodDelete, "/api/v1/collections/"+cats.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = srv.do(t, http.MethodDelete, "/api/v1/rewards/"+cat1.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = srv.do(t, http.MethodDelete, "/api/v1/collections/"+cats.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCreateRewardValidation(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.do(t, http.MethodPost, "/api/v1/collections", map[string]any{"name": "Cats"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var cats struct {
		ID string `json:"id"`
	}
	decodeData(t, rec, &cats)

	cases := map[string]map[string]any{
		"bad rarity":   {"name": "x", "rarity": "shiny", "mediaType": "image", "googleDriveFileId": "abc", "collectionId": cats.ID},
		"bad media":    {"name": "x", "rarity": "rare", "mediaType": "gif", "googleDriveFileId": "abc", "collectionId": cats.ID},
		"bad file id":  {"name": "x", "rarity": "rare", "mediaType": "image", "googleDriveFileId": "../etc", "collectionId": cats.ID},
		"missing file": {"name": "x", "rarity": "rare", "mediaType": "image", "collectionId": cats.ID},
	}
	for name, body := range cases {
		rec := srv.do(t, http.MethodPost, "/api/v1/rewards", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}

	rec = srv.do(t, http.MethodPost, "/api/v1/rewards", map[string]any{
		"name": "alias", "rarity": "epic", "mediaType": "video", "primaryFileId": "vid_1", "thumbnailFileId": "thumb-1", "collectionId": cats.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		GoogleDriveFileID      string `json:"googleDriveFileId"`
		GoogleDriveThumbnailID string `json:"googleDriveThumbnailId"`
	}
	decodeData(t, rec, &created)
	assert.Equal(t, "vid_1", created.GoogleDriveFileID)
	assert.Equal(t, "thumb-1", created.GoogleDriveThumbnailID)
}

func TestRewardTagReplacement(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.do(t, http.MethodPost, "/api/v1/collections", map[string]any{"name": "Cats"})
	var cats struct {
		ID string `json:"id"`
	}
	decodeData(t, rec, &cats)

	tagIDs := make([]string, 0, 3)
	for _, name := range []string{"fluffy", "orange", "sleepy"} {
		rec := srv.do(t, http.MethodPost, "/api/v1/tags", map[string]any{"name": name})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var tag struct {
			ID string `json:"id"`
		}
		decodeData(t, rec, &tag)
		tagIDs = append(tagIDs, tag.ID)
	}

	rec = srv.do(t, http.MethodPost, "/api/v1/rewards", map[string]any{
		"name": "Cat1", "rarity": "rare", "mediaType": "image", "googleDriveFileId": "abc123",
		"collectionId": cats.ID, "tagIds": tagIDs[:2],
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var reward struct {
		ID string `json:"id"`
	}
	decodeData(t, rec, &reward)

	rec = srv.do(t, http.MethodPut, "/api/v1/rewards/"+reward.ID+"/tags", map[string]any{"tagIds": tagIDs[1:]})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated struct {
		Tags []struct {
			Name string `json:"name"`
		} `json:"tags"`
	}
	decodeData(t, rec, &updated)
	names := []string{}
	for _, tag := range updated.Tags {
		names = append(names, tag.Name)
	}
	assert.Equal(t, []string{"orange", "sleepy"}, names)

	rec = srv.do(t, http.MethodPatch, "/api/v1/rewards/"+reward.ID, map[string]any{"tagIds": []string{}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeData(t, rec, &updated)
	assert.Empty(t, updated.Tags)
}

func TestLegacyManifestHeaders(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/manifest/v1", nil)
	req.Header.Set("Origin", "https://game.example.com")
	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("Deprecation"))
	assert.Contains(t, rec.Header().Get("Link"), "successor-version")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var doc struct {
		Version      string `json:"version"`
		TotalRewards int    `json:"totalRewards"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, manifest.VersionLegacy, doc.Version)
	assert.Equal(t, 0, doc.TotalRewards)
}

func TestManifestDownloadIsAttachment(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.do(t, http.MethodGet, "/api/v1/manifest/download", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="manifest.json"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.Contains(rec.Body.String(), `"version": "2.0"`))
}

func TestManifestPublishWithoutDrive(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.do(t, http.MethodPost, "/api/v1/manifest/publish", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func multipartUpload(t *testing.T, token, path, filename, contentType string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(t, mw.WriteField(key, value))
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestUploadRejectsBeforeDrive(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, multipartUpload(t, srv.token, "/api/v1/upload", "notes.txt", "text/plain", []byte("hello"), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	big := bytes.Repeat([]byte{0xFF}, (1<<20)+10)
	srv.handler.ServeHTTP(rec, multipartUpload(t, srv.token, "/api/v1/upload", "cat.png", "image/png", big, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, 0, srv.drive.calls)
}

func TestUploadStoresFileAsUser(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, multipartUpload(t, srv.token, "/api/v1/upload", "cat.mp4", "video/mp4", []byte("movie"), map[string]string{"folderName": "Rewards"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var result struct {
		FileID       string  `json:"fileId"`
		ThumbnailURL *string `json:"thumbnailUrl"`
	}
	decodeData(t, rec, &result)
	assert.Equal(t, "uploaded1", result.FileID)
	require.NotNil(t, result.ThumbnailURL)
	require.NotEmpty(t, srv.drive.creds)
	assert.Equal(t, "user-token", srv.drive.creds[0].AccessToken)
}

func TestDriveRoutesValidateIDs(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodDelete, "/api/v1/google-drive/files/abc%20def", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = srv.do(t, http.MethodGet, "/api/v1/google-drive/files?folderId=../etc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, srv.drive.calls)

	rec = srv.do(t, http.MethodGet, "/api/v1/google-drive/files", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = srv.do(t, http.MethodDelete, "/api/v1/google-drive/files/1A_b-2", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"1A_b-2"}, srv.drive.deleted)
}

func TestDashboardAndIcons(t *testing.T) {
	srv := newTestServer(t)
	srv.do(t, http.MethodPost, "/api/v1/collections", map[string]any{"name": "Cats"})

	rec := srv.do(t, http.MethodGet, "/api/v1/dashboard/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		TotalCollections int64 `json:"totalCollections"`
	}
	decodeData(t, rec, &stats)
	assert.Equal(t, int64(1), stats.TotalCollections)

	rec = srv.do(t, http.MethodGet, "/api/v1/icons", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var icons []string
	decodeData(t, rec, &icons)
	assert.Contains(t, icons, "Trophy")
}
