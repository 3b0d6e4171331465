package meta

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

// AudioExtensions are the file types accepted by piece import
var AudioExtensions = []string{
	".mp3",
	".flac",
	".m4a",
	".mp4",
	".ogg",
	".dsf",
}

// Tags holds the subset of embedded metadata that maps onto a piece
type Tags struct {
	Title    string
	Composer string
	Genre    string
	Format   string
}

// IsAudioFile reports whether path has a supported audio extension
func IsAudioFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range AudioExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ReadTags reads embedded tags from an audio file
func ReadTags(path string) (*Tags, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}

	return tagsFromMetadata(m, path), nil
}

// tagsFromMetadata maps tag metadata onto piece fields. Composer falls back
// to the artist (most pop files leave composer empty) and the title falls
// back to the file name.
func tagsFromMetadata(m tag.Metadata, path string) *Tags {
	t := &Tags{
		Title:    CleanField(m.Title()),
		Composer: CleanField(m.Composer()),
		Genre:    CleanGenre(m.Genre()),
		Format:   string(m.Format()),
	}

	if t.Composer == "" {
		t.Composer = CleanField(m.Artist())
	}
	if t.Title == "" {
		base := filepath.Base(path)
		t.Title = CleanField(strings.TrimSuffix(base, filepath.Ext(base)))
	}

	return t
}
