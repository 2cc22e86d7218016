package objects

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		mime string
		want Category
	}{
		{"image/jpeg", CategoryPhotos},
		{"image/png", CategoryPhotos},
		{"video/mp4", CategoryVideos},
		{"audio/mpeg", CategoryAudio},
		{"application/pdf", CategoryDocuments},
		{"text/plain", CategoryDocuments},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", CategoryDocuments},
		{"application/octet-stream", CategoryOther},
		{"", CategoryOther},
		{" IMAGE/JPEG ", CategoryPhotos},
	}
	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.mime))
		})
	}
}
