package uploads

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/questcraft/rewards-cms/internal/rewards"
	pkgerrors "github.com/questcraft/rewards-cms/pkg/errors"
	"github.com/questcraft/rewards-cms/pkg/storage/drive"
)

type fakeGateway struct {
	defaultFolder string
	uploadErr     error
	deleteErr     error
	folderErr     error

	uploads      int
	deletes      []string
	folderLookup []string
	lastUpload   drive.UploadInput
}

func (f *fakeGateway) Upload(ctx context.Context, creds drive.Credentials, in drive.UploadInput) (*drive.UploadResult, error) {
	f.uploads++
	f.lastUpload = in
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &drive.UploadResult{FileID: "file_1", Filename: in.Filename, ViewURL: "https://drive.google.com/file/d/file_1/view"}, nil
}

func (f *fakeGateway) Delete(ctx context.Context, creds drive.Credentials, fileID string) error {
	f.deletes = append(f.deletes, fileID)
	return f.deleteErr
}

func (f *fakeGateway) FindOrCreateFolder(ctx context.Context, creds drive.Credentials, name, parentID string) (string, error) {
	f.folderLookup = append(f.folderLookup, name)
	if f.folderErr != nil {
		return "", f.folderErr
	}
	return "folder_" + strings.ReplaceAll(name, " ", "_"), nil
}

func (f *fakeGateway) DefaultFolderID() string { return f.defaultFolder }

func (f *fakeGateway) calls() int { return f.uploads + len(f.deletes) + len(f.folderLookup) }

type fakeRewards struct {
	err   error
	input rewards.CreateInput
}

func (f *fakeRewards) Create(ctx context.Context, input rewards.CreateInput) (*rewards.Reward, error) {
	f.input = input
	if f.err != nil {
		return nil, f.err
	}
	return &rewards.Reward{ID: uuid.New(), Name: input.Name, GoogleDriveFileID: input.GoogleDriveFileID}, nil
}

func imageFile(size int64) File {
	return File{Reader: strings.NewReader("data"), Filename: "cat.png", MimeType: "image/png", Size: size}
}

func newUploads(t *testing.T, gw *fakeGateway, rw rewardCreator) Service {
	t.Helper()
	svc, err := NewService(gw, rw, Options{MaxBytes: 1 << 20})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestUploadRejectsBeforeAnyDriveCall(t *testing.T) {
	cases := map[string]File{
		"oversize": imageFile(2 << 20),
		"mime":     {Reader: strings.NewReader("x"), Filename: "doc.pdf", MimeType: "application/pdf", Size: 10},
		"no file":  {Filename: "cat.png", MimeType: "image/png"},
		"no name":  {Reader: strings.NewReader("x"), MimeType: "image/png", Size: 1},
	}
	for name, file := range cases {
		t.Run(name, func(t *testing.T) {
			gw := &fakeGateway{}
			svc := newUploads(t, gw, nil)

			_, err := svc.Upload(context.Background(), drive.Credentials{AccessToken: "t"}, file, "")
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if gw.calls() != 0 {
				t.Fatalf("expected no Drive calls, got %d", gw.calls())
			}
		})
	}
}

func TestUploadUsesConfiguredFolder(t *testing.T) {
	gw := &fakeGateway{defaultFolder: "root_folder"}
	svc := newUploads(t, gw, nil)

	res, err := svc.Upload(context.Background(), drive.Credentials{AccessToken: "t"}, imageFile(10), "Ignored")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if gw.lastUpload.FolderID != "root_folder" || len(gw.folderLookup) != 0 {
		t.Fatalf("expected configured folder, got %q lookups=%v", gw.lastUpload.FolderID, gw.folderLookup)
	}
	if res.FileID != "file_1" || res.MimeType != "image/png" || res.ThumbnailURL != nil {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestUploadResolvesNamedFolderAndVideoThumbnail(t *testing.T) {
	gw := &fakeGateway{}
	svc := newUploads(t, gw, nil)

	video := File{Reader: strings.NewReader("v"), Filename: "clip.mov", MimeType: "video/quicktime", Size: 10}
	res, err := svc.Upload(context.Background(), drive.Credentials{AccessToken: "t"}, video, "")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if len(gw.folderLookup) != 1 || gw.folderLookup[0] != DefaultFolderName {
		t.Fatalf("expected default folder lookup, got %v", gw.folderLookup)
	}
	if gw.lastUpload.FolderID != "folder_QuestCraft_Rewards" {
		t.Fatalf("unexpected folder %q", gw.lastUpload.FolderID)
	}
	if res.ThumbnailURL == nil || *res.ThumbnailURL != "https://drive.google.com/thumbnail?id=file_1&sz=w800" {
		t.Fatalf("unexpected thumbnail %v", res.ThumbnailURL)
	}
}

func TestUploadMapsDriveFailures(t *testing.T) {
	gw := &fakeGateway{defaultFolder: "f", uploadErr: drive.ErrNoCredentials}
	svc := newUploads(t, gw, nil)
	if _, err := svc.Upload(context.Background(), drive.Credentials{}, imageFile(1), ""); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	gw.uploadErr = errors.Join(drive.ErrUploadFailed, errors.New("quota exceeded"))
	_, err := svc.Upload(context.Background(), drive.Credentials{AccessToken: "t"}, imageFile(1), "")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency || typed.Message() != "Failed to upload file to Google Drive" {
		t.Fatalf("unexpected error %v", err)
	}
}

func rewardFields() rewards.CreateInput {
	return rewards.CreateInput{Name: "Cat1", Rarity: "rare", CollectionID: uuid.New()}
}

func TestUploadRewardCreatesRow(t *testing.T) {
	gw := &fakeGateway{defaultFolder: "f"}
	rw := &fakeRewards{}
	svc := newUploads(t, gw, rw)

	res, err := svc.UploadReward(context.Background(), drive.Credentials{AccessToken: "t"}, imageFile(1), "", rewardFields())
	if err != nil {
		t.Fatalf("upload reward: %v", err)
	}
	if rw.input.GoogleDriveFileID != "file_1" || rw.input.MediaType != "image" {
		t.Fatalf("unexpected create input %+v", rw.input)
	}
	if res.Reward == nil || res.Upload.FileID != "file_1" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(gw.deletes) != 0 {
		t.Fatalf("expected no compensation, got %v", gw.deletes)
	}
}

func TestUploadRewardPrechecksFields(t *testing.T) {
	gw := &fakeGateway{defaultFolder: "f"}
	svc := newUploads(t, gw, &fakeRewards{})

	fields := rewardFields()
	fields.Rarity = "ultra"
	if _, err := svc.UploadReward(context.Background(), drive.Credentials{AccessToken: "t"}, imageFile(1), "", fields); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if gw.calls() != 0 {
		t.Fatalf("expected no Drive calls, got %d", gw.calls())
	}
}

func TestUploadRewardCompensatesFailedCreate(t *testing.T) {
	gw := &fakeGateway{defaultFolder: "f"}
	rw := &fakeRewards{err: pkgerrors.New(pkgerrors.CodeNotFound, "collection not found")}
	svc := newUploads(t, gw, rw)

	_, err := svc.UploadReward(context.Background(), drive.Credentials{AccessToken: "t"}, imageFile(1), "", rewardFields())
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected create error to surface, got %v", err)
	}
	if len(gw.deletes) != 1 || gw.deletes[0] != "file_1" {
		t.Fatalf("expected blob to be deleted, got %v", gw.deletes)
	}
}

func TestUploadRewardCombinesCompensationFailure(t *testing.T) {
	deleteErr := errors.New("drive unavailable")
	gw := &fakeGateway{defaultFolder: "f", deleteErr: deleteErr}
	rw := &fakeRewards{err: pkgerrors.New(pkgerrors.CodeDependency, "failed to create reward")}
	svc := newUploads(t, gw, rw)

	_, err := svc.UploadReward(context.Background(), drive.Credentials{AccessToken: "t"}, imageFile(1), "", rewardFields())
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected typed create error in chain, got %v", err)
	}
	if !errors.Is(err, deleteErr) {
		t.Fatalf("expected delete error in chain, got %v", err)
	}
}
