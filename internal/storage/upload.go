// Package storage handles the temp-directory side of uploads: each request's
// file gets a unique name so concurrent requests never collide.
package storage

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// SaveUpload writes an uploaded file into dir under a unique name that
// preserves the original extension. The caller owns cleanup.
func SaveUpload(dir string, file *multipart.FileHeader) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	dst := filepath.Join(dir, uuid.NewString()+ext)

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	if _, err := out.ReadFrom(src); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return dst, nil
}

// Cleanup removes a temp file, tolerating paths that never materialized.
func Cleanup(path string) {
	if path == "" {
		return
	}
	_ = os.Remove(path)
}
