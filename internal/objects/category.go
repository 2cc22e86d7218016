package objects

import "strings"

// Category groups objects for listing.
type Category string

const (
	CategoryPhotos    Category = "photos"
	CategoryVideos    Category = "videos"
	CategoryAudio     Category = "audio"
	CategoryDocuments Category = "documents"
	CategoryOther     Category = "other"
)

// Categorize maps a MIME type to its category. Unknown types land in "other".
func Categorize(mimeType string) Category {
	mt := strings.ToLower(strings.TrimSpace(mimeType))

	switch {
	case strings.HasPrefix(mt, "image/"):
		return CategoryPhotos
	case strings.HasPrefix(mt, "video/"):
		return CategoryVideos
	case strings.HasPrefix(mt, "audio/"):
		return CategoryAudio
	case strings.HasPrefix(mt, "text/"),
		mt == "application/pdf",
		strings.HasPrefix(mt, "application/msword"),
		strings.HasPrefix(mt, "application/vnd.openxmlformats-officedocument"):
		return CategoryDocuments
	default:
		return CategoryOther
	}
}
