package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/questcraft/rewards-cms/pkg/config"
	"github.com/questcraft/rewards-cms/pkg/logger"
	"github.com/questcraft/rewards-cms/pkg/metrics"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	pageSize    = 100
	pingTimeout = 5 * time.Second

	fileFields   = "id, name, mimeType, webViewLink, webContentLink"
	listFields   = "nextPageToken, files(id, name, mimeType, thumbnailLink, size, createdTime, webViewLink)"
	folderFields = "nextPageToken, files(id, name, createdTime, webViewLink)"
)

// Credentials selects who a Drive call runs as. An empty AccessToken falls
// back to the process service account.
type Credentials struct {
	AccessToken string
}

// Gateway wraps the Drive v3 SDK.
type Gateway struct {
	serviceAccount oauth2.TokenSource
	transport      http.RoundTripper
	endpoint       string
	timeout        time.Duration
	defaultFolder  string
	logg           *logger.Logger
	metrics        *metrics.DriveMetrics
}

// Pinger exposes the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New builds a gateway from configuration. Service account credentials are
// optional; without them every call needs a user access token.
func New(cfg config.DriveConfig, logg *logger.Logger, m *metrics.DriveMetrics) (*Gateway, error) {
	if logg == nil {
		logg = logger.Nop()
	}
	g := &Gateway{
		transport:     http.DefaultTransport,
		endpoint:      cfg.Endpoint,
		timeout:       cfg.Timeout,
		defaultFolder: cfg.FolderID,
		logg:          logg,
		metrics:       m,
	}
	if cfg.FolderID != "" && !IsValidID(cfg.FolderID) {
		return nil, fmt.Errorf("drive folder id %q: %w", cfg.FolderID, ErrInvalidID)
	}
	if cfg.ServiceAccountConfigured() {
		jwtCfg := &jwt.Config{
			Email:      cfg.ClientEmail,
			PrivateKey: []byte(cfg.NormalizedPrivateKey()),
			Scopes:     []string{drivev3.DriveScope},
			TokenURL:   google.JWTTokenURL,
		}
		g.serviceAccount = jwtCfg.TokenSource(context.Background())
	}
	return g, nil
}

// DefaultFolderID is the configured upload folder, if any.
func (g *Gateway) DefaultFolderID() string {
	return g.defaultFolder
}

func (g *Gateway) service(ctx context.Context, creds Credentials) (*drivev3.Service, error) {
	var source oauth2.TokenSource
	switch {
	case creds.AccessToken != "":
		source = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.AccessToken, TokenType: "Bearer"})
	case g.serviceAccount != nil:
		source = g.serviceAccount
	default:
		return nil, ErrNoCredentials
	}

	httpClient := &http.Client{
		Transport: &oauth2.Transport{Source: source, Base: g.transport},
		Timeout:   g.timeout,
	}
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if g.endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.endpoint))
	}
	return drivev3.NewService(ctx, opts...)
}

func (g *Gateway) observe(ctx context.Context, op string, start time.Time, err error) {
	g.metrics.Observe(op, time.Since(start), err)
	if err != nil && !errors.Is(err, ErrNoCredentials) && !errors.Is(err, ErrInvalidID) {
		g.logg.Error(g.logg.WithField(ctx, "drive_op", op), "drive call failed", err)
	}
}

// UploadInput describes one blob to store.
type UploadInput struct {
	Reader   io.Reader
	Filename string
	MimeType string
	// FolderID overrides the configured default folder.
	FolderID string
}

// UploadResult is what Drive reports for a stored blob.
type UploadResult struct {
	FileID     string `json:"fileId"`
	Filename   string `json:"filename"`
	MimeType   string `json:"mimeType"`
	ViewURL    string `json:"viewUrl"`
	ContentURL string `json:"contentUrl,omitempty"`
}

// Upload streams the blob to Drive and shares it read-only with anyone
// holding the link.
func (g *Gateway) Upload(ctx context.Context, creds Credentials, in UploadInput) (res *UploadResult, err error) {
	start := time.Now()
	defer func() { g.observe(ctx, "upload", start, err) }()

	if in.Reader == nil || strings.TrimSpace(in.Filename) == "" {
		return nil, opError("upload", ErrUploadFailed, errors.New("reader and filename are required"))
	}
	folderID := in.FolderID
	if folderID == "" {
		folderID = g.defaultFolder
	}
	if folderID != "" && !IsValidID(folderID) {
		return nil, ErrInvalidID
	}

	svc, err := g.service(ctx, creds)
	if err != nil {
		return nil, err
	}

	meta := &drivev3.File{Name: in.Filename, MimeType: in.MimeType}
	if folderID != "" {
		meta.Parents = []string{folderID}
	}
	file, err := svc.Files.Create(meta).
		Media(in.Reader, googleapi.ContentType(in.MimeType)).
		SupportsAllDrives(true).
		Fields(googleapi.Field(fileFields)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, opError("upload", ErrUploadFailed, err)
	}

	if err := shareWithAnyone(ctx, svc, file.Id); err != nil {
		return nil, opError("upload", ErrUploadFailed, err)
	}

	return toUploadResult(file), nil
}

// Replace overwrites the content of the file called name inside folderID,
// creating it when absent. Used for documents republished under a fixed
// name.
func (g *Gateway) Replace(ctx context.Context, creds Credentials, in UploadInput) (res *UploadResult, err error) {
	start := time.Now()
	defer func() { g.observe(ctx, "replace", start, err) }()

	folderID := in.FolderID
	if folderID == "" {
		folderID = g.defaultFolder
	}
	if folderID != "" && !IsValidID(folderID) {
		return nil, ErrInvalidID
	}

	svc, err := g.service(ctx, creds)
	if err != nil {
		return nil, err
	}

	existing, err := svc.Files.List().
		Q(fileByNameQuery(in.Filename, folderID)).
		Fields("files(id)").
		PageSize(1).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, opError("replace", ErrUploadFailed, err)
	}
	if len(existing.Files) == 0 {
		in.FolderID = folderID
		return g.Upload(ctx, creds, in)
	}

	file, err := svc.Files.Update(existing.Files[0].Id, &drivev3.File{MimeType: in.MimeType}).
		Media(in.Reader, googleapi.ContentType(in.MimeType)).
		SupportsAllDrives(true).
		Fields(googleapi.Field(fileFields)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, opError("replace", ErrUploadFailed, err)
	}
	return toUploadResult(file), nil
}

func shareWithAnyone(ctx context.Context, svc *drivev3.Service, fileID string) error {
	_, err := svc.Permissions.Create(fileID, &drivev3.Permission{Role: "reader", Type: "anyone"}).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	return err
}

func toUploadResult(file *drivev3.File) *UploadResult {
	return &UploadResult{
		FileID:     file.Id,
		Filename:   file.Name,
		MimeType:   file.MimeType,
		ViewURL:    file.WebViewLink,
		ContentURL: file.WebContentLink,
	}
}

// File is one listed Drive object.
type File struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	MimeType      string `json:"mimeType"`
	ThumbnailLink string `json:"thumbnailLink,omitempty"`
	Size          int64  `json:"size,omitempty"`
	CreatedTime   string `json:"createdTime"`
	ViewURL       string `json:"viewUrl"`
}

type FileList struct {
	Files         []File `json:"files"`
	NextPageToken string `json:"nextPageToken,omitempty"`
}

type ListFilesInput struct {
	FolderID  string
	MediaOnly bool
	PageToken string
}

// ListFiles returns non-trashed files, newest first, 100 per page.
func (g *Gateway) ListFiles(ctx context.Context, creds Credentials, in ListFilesInput) (res *FileList, err error) {
	start := time.Now()
	defer func() { g.observe(ctx, "list_files", start, err) }()

	if in.FolderID != "" && !IsValidID(in.FolderID) {
		return nil, ErrInvalidID
	}
	svc, err := g.service(ctx, creds)
	if err != nil {
		return nil, err
	}

	call := svc.Files.List().
		Q(filesQuery(in.FolderID, in.MediaOnly)).
		Fields(googleapi.Field(listFields)).
		OrderBy("createdTime desc").
		PageSize(pageSize).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx)
	if in.PageToken != "" {
		call = call.PageToken(in.PageToken)
	}
	list, err := call.Do()
	if err != nil {
		return nil, opError("list_files", ErrListFailed, err)
	}

	out := &FileList{Files: make([]File, 0, len(list.Files)), NextPageToken: list.NextPageToken}
	for _, f := range list.Files {
		out.Files = append(out.Files, toFile(f))
	}
	return out, nil
}

type FolderList struct {
	Folders       []File `json:"folders"`
	NextPageToken string `json:"nextPageToken,omitempty"`
}

// ListFolders returns non-trashed folders ordered by name.
func (g *Gateway) ListFolders(ctx context.Context, creds Credentials, parentID, pageToken string) (res *FolderList, err error) {
	start := time.Now()
	defer func() { g.observe(ctx, "list_folders", start, err) }()

	if parentID != "" && !IsValidID(parentID) {
		return nil, ErrInvalidID
	}
	svc, err := g.service(ctx, creds)
	if err != nil {
		return nil, err
	}

	call := svc.Files.List().
		Q(foldersQuery(parentID)).
		Fields(googleapi.Field(folderFields)).
		OrderBy("name").
		PageSize(pageSize).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	list, err := call.Do()
	if err != nil {
		return nil, opError("list_folders", ErrListFailed, err)
	}

	out := &FolderList{Folders: make([]File, 0, len(list.Files)), NextPageToken: list.NextPageToken}
	for _, f := range list.Files {
		folder := toFile(f)
		folder.MimeType = FolderMimeType
		out.Folders = append(out.Folders, folder)
	}
	return out, nil
}

func toFile(f *drivev3.File) File {
	return File{
		ID:            f.Id,
		Name:          f.Name,
		MimeType:      f.MimeType,
		ThumbnailLink: f.ThumbnailLink,
		Size:          f.Size,
		CreatedTime:   f.CreatedTime,
		ViewURL:       f.WebViewLink,
	}
}

// Delete removes a file. A missing file is reported like any other failure.
func (g *Gateway) Delete(ctx context.Context, creds Credentials, fileID string) (err error) {
	start := time.Now()
	defer func() { g.observe(ctx, "delete", start, err) }()

	if !IsValidID(fileID) {
		return ErrInvalidID
	}
	svc, err := g.service(ctx, creds)
	if err != nil {
		return err
	}
	if err := svc.Files.Delete(fileID).SupportsAllDrives(true).Context(ctx).Do(); err != nil {
		return opError("delete", ErrDeleteFailed, err)
	}
	return nil
}

// FindOrCreateFolder returns the id of the folder called name, creating and
// sharing it when it does not exist. parentID may be empty for the root.
func (g *Gateway) FindOrCreateFolder(ctx context.Context, creds Credentials, name, parentID string) (id string, err error) {
	start := time.Now()
	defer func() { g.observe(ctx, "find_or_create_folder", start, err) }()

	name = strings.TrimSpace(name)
	if name == "" {
		return "", opError("find_or_create_folder", ErrFolderFailed, errors.New("folder name is required"))
	}
	if parentID != "" && !IsValidID(parentID) {
		return "", ErrInvalidID
	}
	svc, err := g.service(ctx, creds)
	if err != nil {
		return "", err
	}

	found, err := svc.Files.List().
		Q(folderByNameQuery(name, parentID)).
		Fields("files(id, name)").
		PageSize(1).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", opError("find_or_create_folder", ErrFolderFailed, err)
	}
	if len(found.Files) > 0 {
		return found.Files[0].Id, nil
	}

	meta := &drivev3.File{Name: name, MimeType: FolderMimeType}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}
	folder, err := svc.Files.Create(meta).SupportsAllDrives(true).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", opError("find_or_create_folder", ErrFolderFailed, err)
	}
	if err := shareWithAnyone(ctx, svc, folder.Id); err != nil {
		return "", opError("find_or_create_folder", ErrFolderFailed, err)
	}
	return folder.Id, nil
}

// Ping checks the service account can reach Drive. Without a service
// account there is nothing to probe.
func (g *Gateway) Ping(ctx context.Context) error {
	if g == nil {
		return errors.New("drive gateway not initialized")
	}
	if g.serviceAccount == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	svc, err := g.service(ctx, Credentials{})
	if err != nil {
		return err
	}
	if _, err := svc.About.Get().Fields("user").Context(ctx).Do(); err != nil {
		return fmt.Errorf("drive about: %w", err)
	}
	return nil
}
