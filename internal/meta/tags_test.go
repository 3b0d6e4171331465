package meta

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dhowden/tag"
)

// fakeMetadata implements tag.Metadata for mapping tests
type fakeMetadata struct {
	title, artist, composer, genre string
}

func (f fakeMetadata) Format() tag.Format { return tag.ID3v2_4 }
func (f fakeMetadata) FileType() tag.FileType { return tag.MP3 }
func (f fakeMetadata) Title() string { return f.title }
func (f fakeMetadata) Album() string { return "" }
func (f fakeMetadata) Artist() string { return f.artist }
func (f fakeMetadata) AlbumArtist() string { return "" }
func (f fakeMetadata) Composer() string { return f.composer }
func (f fakeMetadata) Year() int { return 0 }
func (f fakeMetadata) Genre() string { return f.genre }
func (f fakeMetadata) Track() (int, int) { return 0, 0 }
func (f fakeMetadata) Disc() (int, int) { return 0, 0 }
func (f fakeMetadata) Picture() *tag.Picture { return nil }
func (f fakeMetadata) Lyrics() string { return "" }
func (f fakeMetadata) Comment() string { return "" }
func (f fakeMetadata) Raw() map[string]interface{} { return nil }

func TestTagsFromMetadata(t *testing.T) {
	tests := []struct {
		name     string
		meta     fakeMetadata
		path     string
		expected Tags
	}{
		{
			name:     "composer tag present",
			meta:     fakeMetadata{title: "Clair de Lune", artist: "Pianist", composer: "Debussy", genre: "classical"},
			path:     "/music/track.mp3",
			expected: Tags{Title: "Clair de Lune", Composer: "Debussy", Genre: "Classical", Format: string(tag.ID3v2_4)},
		},
		{
			name:     "composer falls back to artist",
			meta:     fakeMetadata{title: "Take Five", artist: "Dave Brubeck", genre: "Jazz"},
			path:     "/music/take.mp3",
			expected: Tags{Title: "Take Five", Composer: "Dave Brubeck", Genre: "Jazz", Format: string(tag.ID3v2_4)},
		},
		{
			name:     "title falls back to file name",
			meta:     fakeMetadata{composer: "Satie"},
			path:     "/music/Gymnopedie No 1.flac",
			expected: Tags{Title: "Gymnopedie No 1", Composer: "Satie", Format: string(tag.ID3v2_4)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tagsFromMetadata(tt.meta, tt.path)
			if *got != tt.expected {
				t.Errorf("tagsFromMetadata() = %+v, expected %+v", *got, tt.expected)
			}
		})
	}
}

func TestReadTags_NotAudio(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.mp3")
	if err := os.WriteFile(path, []byte("definitely not an mp3"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := ReadTags(path); err == nil {
		t.Error("expected error reading tags from a non-audio file")
	}
}

func TestReadTags_Missing(t *testing.T) {
	if _, err := ReadTags(filepath.Join(t.TempDir(), "missing.flac")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestIsAudioFile(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"song.mp3", true},
		{"SONG.FLAC", true},
		{"notes.txt", false},
		{"noext", false},
	}

	for _, tt := range tests {
		if got := IsAudioFile(tt.path); got != tt.expected {
			t.Errorf("IsAudioFile(%q) = %v, expected %v", tt.path, got, tt.expected)
		}
	}
}
