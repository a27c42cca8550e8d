package common

import (
	"path/filepath"
	"strings"
)

// MediaFileType is the kind of media a story may carry.
type MediaFileType string

const (
	MediaFileTypeImage MediaFileType = "image"
	MediaFileTypeVideo MediaFileType = "video"
)

const DefaultMimeType = "application/octet-stream"

var mimeByExtension = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".heic": "image/heic",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
}

func (t MediaFileType) String() string {
	return string(t)
}

func (t MediaFileType) IsValid() bool {
	switch t {
	case MediaFileTypeImage, MediaFileTypeVideo:
		return true
	}
	return false
}

// DetectFileType reports false for anything that is neither image/* nor video/*.
// Parameters such as "; charset=" are ignored.
func DetectFileType(mimeType string) (MediaFileType, bool) {
	major, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(mimeType)), "/")
	t := MediaFileType(major)
	return t, t.IsValid()
}

// MimeTypeFromFilename only knows the media extensions stories accept.
func MimeTypeFromFilename(name string) string {
	if mt, ok := mimeByExtension[strings.ToLower(filepath.Ext(name))]; ok {
		return mt
	}
	return DefaultMimeType
}
