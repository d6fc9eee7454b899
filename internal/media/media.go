package media

import (
	"mime"
	"path/filepath"
	"strings"
	"time"
)

// Kind is the logical class of a stored asset.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

var imageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

var videoMimeTypes = map[string]bool{
	"video/mp4":  true,
	"video/webm": true,
}

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

var videoExts = map[string]bool{
	".mp4":  true,
	".webm": true,
}

// Asset is a stored media file plus its optional thumbnail. There is no
// backing record; assets are reconstructed from the filesystem on demand.
type Asset struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName,omitempty"`
	Size         int64     `json:"size"`
	MimeType     string    `json:"mimetype,omitempty"`
	URL          string    `json:"url"`
	ThumbnailURL *string   `json:"thumbnailUrl"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// Exts returns the file extensions (lower-case, dot included) accepted for k.
func (k Kind) Exts() map[string]bool {
	if k == KindVideo {
		return videoExts
	}
	return imageExts
}

// MimeTypes returns the MIME types accepted for k at upload time.
func (k Kind) MimeTypes() map[string]bool {
	if k == KindVideo {
		return videoMimeTypes
	}
	return imageMimeTypes
}

// KindOf classifies a filename by extension. Files without a recognized
// extension belong to neither kind and are excluded from all listings.
func KindOf(filename string) (Kind, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case imageExts[ext]:
		return KindImage, true
	case videoExts[ext]:
		return KindVideo, true
	default:
		return "", false
	}
}

// TypeByExtension infers a MIME type for listings, where only the stored
// filename is available.
func TypeByExtension(filename string) string {
	return mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
}
