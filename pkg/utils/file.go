package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// ClearFolder removes everything inside folderPath but keeps the folder itself
func ClearFolder(folderPath string) error {
	entries, err := os.ReadDir(folderPath)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		entryPath := filepath.Join(folderPath, entry.Name())

		// Remove file or directory (including its contents if it's a directory)
		if err := os.RemoveAll(entryPath); err != nil {
			return err
		}
	}

	return nil
}

// PrepareFolder makes sure folderPath exists and is empty
func PrepareFolder(folderPath string) error {
	if err := os.MkdirAll(folderPath, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", folderPath, err)
	}
	if err := ClearFolder(folderPath); err != nil {
		return fmt.Errorf("failed to clear %s: %w", folderPath, err)
	}
	return nil
}
