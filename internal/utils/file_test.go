package utils

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
}

func baseNames(files []string) []string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = filepath.Base(f)
	}
	return names
}

func TestListImageFiles(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "frame_10.png", "frame_2.png", "frame_1.jpg", "notes.txt")
	if err := os.Mkdir(filepath.Join(dir, "nested.png"), 0o755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	files, err := ListImageFiles(dir)
	if err != nil {
		t.Fatalf("Failed to list files: %v", err)
	}

	expected := []string{"frame_1.jpg", "frame_2.png", "frame_10.png"}
	if got := baseNames(files); !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}

	if _, err := ListImageFiles(filepath.Join(dir, "missing")); err == nil {
		t.Error("Expected error for missing directory")
	}
}

func TestListImageFilesNaturalOrder(t *testing.T) {
	tests := []struct {
		name     string
		files    []string
		expected []string
	}{
		{
			name:     "zero padded",
			files:    []string{"frame_0010.jpg", "frame_0009.jpg", "frame_0100.jpg"},
			expected: []string{"frame_0009.jpg", "frame_0010.jpg", "frame_0100.jpg"},
		},
		{
			name:     "unpadded",
			files:    []string{"shot_20.png", "shot_3.png", "shot_100.png", "shot_1.png"},
			expected: []string{"shot_1.png", "shot_3.png", "shot_20.png", "shot_100.png"},
		},
		{
			name:     "mixed prefixes",
			files:    []string{"b_1.png", "a_10.png", "a_2.png"},
			expected: []string{"a_2.png", "a_10.png", "b_1.png"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFiles(t, dir, tt.files...)

			files, err := ListImageFiles(dir)
			if err != nil {
				t.Fatalf("Failed to list files: %v", err)
			}
			if got := baseNames(files); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestIsImageFile(t *testing.T) {
	tests := map[string]bool{
		"a/b/frame.WEBP": true,
		"frame.jpeg":     true,
		"video.mp4":      false,
		"README":         false,
	}
	for name, expected := range tests {
		if got := IsImageFile(name); got != expected {
			t.Errorf("IsImageFile(%q): expected %v, got %v", name, expected, got)
		}
	}
}

func TestGenerateOutputFilename(t *testing.T) {
	expected := filepath.Join("out", "sel_frame_0001_x.webp")
	if got := GenerateOutputFilename("in/frame_0001.png", "out", "sel_", "_x", "webp"); got != expected {
		t.Errorf("Expected %s, got %s", expected, got)
	}

	expected = filepath.Join("out", "clip.jpg")
	if got := GenerateOutputFilename("clip", "out", "", "", ""); got != expected {
		t.Errorf("Expected %s, got %s", expected, got)
	}
}

func TestSanitizeFilename(t *testing.T) {
	if got := SanitizeFilename("red dress"); got != "red_dress" {
		t.Errorf("Expected red_dress, got %s", got)
	}
	if got := SanitizeFilename("a/b:c"); got != "a_b_c" {
		t.Errorf("Expected a_b_c, got %s", got)
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.png")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	if !FileExists(file) {
		t.Error("Expected file to exist")
	}
	if FileExists(dir) {
		t.Error("Expected directory not to count as a file")
	}
	if !DirExists(dir) {
		t.Error("Expected directory to exist")
	}
	if DirExists(file) {
		t.Error("Expected file not to count as a directory")
	}
	if FileExists(filepath.Join(dir, "nope")) {
		t.Error("Expected missing file not to exist")
	}

	sub := filepath.Join(dir, "a", "b")
	if err := EnsureDir(sub); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if !DirExists(sub) {
		t.Error("Expected nested directory to exist")
	}
}
