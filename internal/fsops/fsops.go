// Package fsops holds the small file operations the activator performs
// against the game directory, expressed over afero so tests run on an
// in-memory tree.
package fsops

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Exists checks if a path exists.
func Exists(fs afero.Fs, path string) bool {
	_, err := fs.Stat(path)
	return err == nil
}

// IsDir checks if a path is a directory.
func IsDir(fs afero.Fs, path string) bool {
	info, err := fs.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// EnsureDir ensures a directory exists with the given permissions.
func EnsureDir(fs afero.Fs, path string, perm os.FileMode) error {
	if err := fs.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("ensure directory: %w", err)
	}
	return nil
}

// CopyFile copies src to dst, creating dst's parent directories. The write
// goes through a temp file renamed into place so a crash never leaves a
// half-written destination.
func CopyFile(fs afero.Fs, src, dst string) error {
	srcFile, err := fs.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer srcFile.Close()

	if err := fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("create destination dir: %w", err)
	}

	tmp := dst + ".modctl-tmp"
	dstFile, err := fs.Create(tmp)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		fs.Remove(tmp)
		return fmt.Errorf("write destination: %w", err)
	}
	if err := dstFile.Close(); err != nil {
		fs.Remove(tmp)
		return fmt.Errorf("close destination: %w", err)
	}

	if err := fs.Rename(tmp, dst); err != nil {
		fs.Remove(tmp)
		return fmt.Errorf("replace destination: %w", err)
	}
	return nil
}

// CopyTree copies the file tree rooted at src into dst.
func CopyTree(fs afero.Fs, src, dst string) error {
	return afero.Walk(fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", path, err)
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return fs.MkdirAll(target, 0755)
		}
		return CopyFile(fs, path, target)
	})
}

// RemoveAndPrune deletes path, then removes now-empty parent directories up
// to (but never including) root.
func RemoveAndPrune(fs afero.Fs, path, root string) error {
	if err := fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove file: %w", err)
	}

	dir := filepath.Dir(path)
	root = filepath.Clean(root)
	for dir != root && len(dir) > len(root) {
		entries, err := afero.ReadDir(fs, dir)
		if err != nil || len(entries) > 0 {
			break
		}
		if err := fs.Remove(dir); err != nil {
			break
		}
		dir = filepath.Dir(dir)
	}
	return nil
}

// CheckWritable checks if a directory accepts writes.
func CheckWritable(fs afero.Fs, path string) error {
	testFile := filepath.Join(path, ".write_test")
	f, err := fs.Create(testFile)
	if err != nil {
		return fmt.Errorf("path not writable: %w", err)
	}
	f.Close()
	fs.Remove(testFile)
	return nil
}
