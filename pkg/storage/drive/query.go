package drive

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const (
	FolderMimeType       = "application/vnd.google-apps.folder"
	DefaultThumbnailSize = 800
	thumbnailBaseURL     = "https://drive.google.com/thumbnail"
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// IsValidID reports whether id is safe to splice into a Drive query.
func IsValidID(id string) bool {
	return idPattern.MatchString(id)
}

// ThumbnailURL returns the public thumbnail endpoint for a file. Sizes
// below one fall back to DefaultThumbnailSize.
func ThumbnailURL(fileID string, size int) string {
	if size <= 0 {
		size = DefaultThumbnailSize
	}
	q := url.Values{}
	q.Set("id", fileID)
	q.Set("sz", "w"+strconv.Itoa(size))
	return thumbnailBaseURL + "?" + q.Encode()
}

// escapeLiteral quotes a value for use inside '...' in the Drive query
// language.
func escapeLiteral(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `'`, `\'`)
}

func filesQuery(folderID string, mediaOnly bool) string {
	clauses := make([]string, 0, 3)
	if folderID != "" {
		clauses = append(clauses, fmt.Sprintf("'%s' in parents", folderID))
	}
	clauses = append(clauses, "trashed=false")
	if mediaOnly {
		clauses = append(clauses, "(mimeType contains 'image/' or mimeType contains 'video/')")
	}
	return strings.Join(clauses, " and ")
}

func foldersQuery(parentID string) string {
	clauses := make([]string, 0, 3)
	if parentID != "" {
		clauses = append(clauses, fmt.Sprintf("'%s' in parents", parentID))
	}
	clauses = append(clauses, "trashed=false", fmt.Sprintf("mimeType='%s'", FolderMimeType))
	return strings.Join(clauses, " and ")
}

func folderByNameQuery(name, parentID string) string {
	q := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false", escapeLiteral(name), FolderMimeType)
	if parentID != "" {
		q += fmt.Sprintf(" and '%s' in parents", parentID)
	}
	return q
}

func fileByNameQuery(name, folderID string) string {
	q := fmt.Sprintf("name='%s' and trashed=false", escapeLiteral(name))
	if folderID != "" {
		q += fmt.Sprintf(" and '%s' in parents", folderID)
	}
	return q
}
