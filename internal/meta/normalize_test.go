package meta

import "testing"

func TestFold(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Nocturne", "nocturne"},
		{"  Für   Elise ", "für elise"},
		{"FÜR ELISE", "für elise"},
		{"Cafe\u0301", "café"}, // decomposed input composes under NFC
		{"", ""},
	}

	for _, tt := range tests {
		if got := Fold(tt.input); got != tt.expected {
			t.Errorf("Fold(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestContainsFold(t *testing.T) {
	tests := []struct {
		haystack string
		needle   string
		expected bool
	}{
		{"Take Five", "five", true},
		{"Take Five", "FIVE", true},
		{"Für Elise", "fur", false},
		{"Für Elise", "FÜR", true},
		{"Anything", "", true},
		{"", "x", false},
	}

	for _, tt := range tests {
		if got := ContainsFold(tt.haystack, tt.needle); got != tt.expected {
			t.Errorf("ContainsFold(%q, %q) = %v, expected %v", tt.haystack, tt.needle, got, tt.expected)
		}
	}
}

func TestCleanField(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"  Clair  de   Lune ", "Clair de Lune"},
		{"Tab\there", "Tab here"},
		{"bell\x07", "bell"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := CleanField(tt.input); got != tt.expected {
			t.Errorf("CleanField(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestCleanGenre(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"baroque", "Baroque"},
		{"smooth jazz", "Smooth Jazz"},
		{"J-Pop", "J-Pop"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := CleanGenre(tt.input); got != tt.expected {
			t.Errorf("CleanGenre(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}
