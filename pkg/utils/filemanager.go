// =============================================================================
// NF-e to DANFE Converter - File Manager Utility
// =============================================================================
//
// This module provides the file system helpers shared by the converter and
// the renamer:
//   - File discovery (recursive for conversion, flat for renaming)
//   - Directory management
//   - Collision-free destination names
//   - Moving files, with a copy fallback across devices
//
// =============================================================================

package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDir creates dir and its parents if they don't exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverFiles scans root recursively.
//
// PARAMETERS:
//   - root: The directory to walk.
//   - extension: The file extension to match (e.g., ".xml"), compared
//     case-insensitively. Empty matches every file.
//
// RETURNS:
//   - The matching paths, sorted.
//   - An error if the directory cannot be walked.
func DiscoverFiles(root, extension string) ([]string, error) {
	var files []string

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if hasExtension(path, extension) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

// ListFiles returns the regular files directly inside dir, sorted by name.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func hasExtension(path, extension string) bool {
	return extension == "" || strings.HasSuffix(strings.ToLower(path), strings.ToLower(extension))
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// Stem returns the file name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// UniquePath returns dir/name+ext, or dir/name (n)+ext with the smallest n
// that does not exist yet. Paths listed in taken count as existing.
//
// EXAMPLE:
//   UniquePath("/out", "NF 123", ".pdf", nil) -> "/out/NF 123 (1).pdf"
//   when "/out/NF 123.pdf" already exists.
func UniquePath(dir, name, ext string, taken map[string]bool) string {
	candidate := filepath.Join(dir, name+ext)
	for n := 1; FileExists(candidate) || taken[candidate]; n++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", name, n, ext))
	}
	return candidate
}

// =============================================================================
// FILE MOVES
// =============================================================================

// MoveFile renames src to dst. When rename fails (e.g., cross-device) the file
// is copied and the source removed.
func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("failed to remove original file: %w", err)
	}
	return nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// GetFileSize returns the size of a file in bytes.
func GetFileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// WriteFile writes data to path, creating the parent directory.
func WriteFile(path string, data []byte) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
