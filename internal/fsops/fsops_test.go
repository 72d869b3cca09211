package fsops

import (
	"testing"

	"github.com/spf13/afero"
)

func TestExists(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/test.txt", []byte("test"), 0644)

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"existing file", "/test.txt", true},
		{"non-existing file", "/nonexistent.txt", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Exists(fs, tt.path)
			if got != tt.want {
				t.Errorf("Exists(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestEnsureDir(t *testing.T) {
	fs := afero.NewMemMapFs()

	path := "/game/data/textures"
	if err := EnsureDir(fs, path, 0755); err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}

	if !IsDir(fs, path) {
		t.Error("expected directory to exist and be a directory")
	}
}

func TestCopyFileCreatesParents(t *testing.T) {
	fs := afero.NewMemMapFs()
	srcContent := []byte("payload bytes")
	afero.WriteFile(fs, "/store/key/data/tex.pak", srcContent, 0644)

	if err := CopyFile(fs, "/store/key/data/tex.pak", "/game/data/tex.pak"); err != nil {
		t.Fatalf("CopyFile() error = %v", err)
	}

	got, err := afero.ReadFile(fs, "/game/data/tex.pak")
	if err != nil {
		t.Fatalf("failed to read destination: %v", err)
	}
	if string(got) != string(srcContent) {
		t.Errorf("destination content = %q, want %q", got, srcContent)
	}

	// No temp file left behind.
	if Exists(fs, "/game/data/tex.pak.modctl-tmp") {
		t.Error("temp file was not cleaned up")
	}
}

func TestCopyFileOverwritesDestination(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/src.txt", []byte("new"), 0644)
	afero.WriteFile(fs, "/dst.txt", []byte("old"), 0644)

	if err := CopyFile(fs, "/src.txt", "/dst.txt"); err != nil {
		t.Fatalf("CopyFile() error = %v", err)
	}
	got, _ := afero.ReadFile(fs, "/dst.txt")
	if string(got) != "new" {
		t.Errorf("destination content = %q, want %q", got, "new")
	}
}

func TestCopyFileMissingSource(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := CopyFile(fs, "/missing.txt", "/dst.txt"); err == nil {
		t.Error("expected error for missing source")
	}
}

func TestCopyTree(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/pkg/data/tex.pak", []byte("a"), 0644)
	afero.WriteFile(fs, "/pkg/data/sub/map.bin", []byte("b"), 0644)
	afero.WriteFile(fs, "/pkg/readme.txt", []byte("c"), 0644)

	if err := CopyTree(fs, "/pkg", "/store/key"); err != nil {
		t.Fatalf("CopyTree() error = %v", err)
	}

	for _, path := range []string{
		"/store/key/data/tex.pak",
		"/store/key/data/sub/map.bin",
		"/store/key/readme.txt",
	} {
		if !Exists(fs, path) {
			t.Errorf("expected %s to exist", path)
		}
	}
}

func TestRemoveAndPrune(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/game/data/textures/hd/stone.dds", []byte("x"), 0644)
	afero.WriteFile(fs, "/game/data/map.bin", []byte("y"), 0644)

	if err := RemoveAndPrune(fs, "/game/data/textures/hd/stone.dds", "/game"); err != nil {
		t.Fatalf("RemoveAndPrune() error = %v", err)
	}

	// Empty parents are pruned up to the root.
	if Exists(fs, "/game/data/textures") {
		t.Error("expected empty parent directories to be pruned")
	}
	// Non-empty ancestors and the root itself survive.
	if !Exists(fs, "/game/data/map.bin") {
		t.Error("sibling file must survive pruning")
	}
	if !IsDir(fs, "/game") {
		t.Error("root must never be pruned")
	}
}

func TestRemoveAndPruneMissingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	fs.MkdirAll("/game", 0755)
	if err := RemoveAndPrune(fs, "/game/gone.pak", "/game"); err != nil {
		t.Errorf("RemoveAndPrune() on missing file error = %v", err)
	}
}

func TestCheckWritable(t *testing.T) {
	fs := afero.NewMemMapFs()
	fs.MkdirAll("/game", 0755)

	if err := CheckWritable(fs, "/game"); err != nil {
		t.Errorf("CheckWritable() error = %v", err)
	}
	if err := CheckWritable(afero.NewReadOnlyFs(fs), "/game"); err == nil {
		t.Error("expected error on read-only filesystem")
	}
}
