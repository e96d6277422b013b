package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ScannedFile is a PDF found by ScanDir.
type ScannedFile struct {
	RelPath string // Relative to the scanned root, forward slashes
	AbsPath string
	Size    int64
}

// ScanDir walks root and returns every .pdf file, skipping hidden directories.
// A root that is itself a file is returned as a single entry when it is a PDF.
func ScanDir(ctx context.Context, root string) ([]ScannedFile, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to access path %s: %w", root, err)
	}
	if !info.IsDir() {
		if !isPDF(root) {
			return nil, nil
		}
		return []ScannedFile{{RelPath: filepath.Base(root), AbsPath: root, Size: info.Size()}}, nil
	}

	var files []ScannedFile
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("failed to access path %s: %w", path, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if info.IsDir() {
			if path != root && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !isPDF(path) {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("failed to compute relative path for %s: %w", path, err)
		}
		files = append(files, ScannedFile{
			RelPath: filepath.ToSlash(relPath),
			AbsPath: path,
			Size:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return files, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	return files, nil
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
