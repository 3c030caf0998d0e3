package drive

import (
	"errors"
	"fmt"

	pkgerrors "github.com/questcraft/rewards-cms/pkg/errors"
)

var (
	ErrNoCredentials = errors.New("no Google Drive credentials")
	ErrInvalidID     = errors.New("invalid Google Drive identifier")
	ErrUploadFailed  = errors.New("failed to upload file to Google Drive")
	ErrListFailed    = errors.New("failed to list Google Drive files")
	ErrDeleteFailed  = errors.New("failed to delete file from Google Drive")
	ErrFolderFailed  = errors.New("failed to resolve Google Drive folder")
)

// OpError carries the SDK failure behind one of the sentinels above. Callers
// match the sentinel with errors.Is; the cause is for logs only.
type OpError struct {
	Op       string
	Sentinel error
	Cause    error
}

func (e *OpError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("drive %s: %v", e.Op, e.Sentinel)
	}
	return fmt.Sprintf("drive %s: %v: %v", e.Op, e.Sentinel, e.Cause)
}

func (e *OpError) Unwrap() []error {
	return []error{e.Sentinel, e.Cause}
}

func opError(op string, sentinel, cause error) error {
	return &OpError{Op: op, Sentinel: sentinel, Cause: cause}
}

// NoAccessMessage is shown when a session carries no usable Drive grant.
const NoAccessMessage = "No Google Drive access. Please sign out and sign in again to grant Drive permissions."

// AppError converts a gateway failure into a typed API error. The SDK cause
// stays attached for logs; the public message is fixed.
func AppError(err error, message string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNoCredentials):
		return pkgerrors.Wrap(pkgerrors.CodeForbidden, err, NoAccessMessage)
	case errors.Is(err, ErrInvalidID):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid Google Drive identifier")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
	}
}
