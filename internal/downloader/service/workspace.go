package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rizkirmdhn/universal-media-downloader/internal/media"
)

// ErrFileNotFound is returned when the engine reported success but the output file is missing
var ErrFileNotFound = errors.New("downloaded file not found")

// newWorkspace creates a uuid-named directory below root for a single request
func newWorkspace(root string) (string, error) {
	dir := filepath.Join(root, uuid.New().String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create workspace: %w", err)
	}
	return dir, nil
}

// outputTemplate names files after the media title inside dir
func outputTemplate(dir string) string {
	return filepath.Join(dir, "%(title)s.%(ext)s")
}

type candidate struct {
	path    string
	modTime time.Time
}

// locateFile finds the file the engine produced in dir. Files starting with
// the sanitized title win over any other file with the final extension, most
// recent first; the engine's predicted name is the last resort.
func locateFile(dir, title, ext, predicted string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read workspace: %w", err)
	}

	prefix := media.SanitizeFilename(title)
	var titled, matching []candidate
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ext) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		c := candidate{path: filepath.Join(dir, entry.Name()), modTime: info.ModTime()}
		if prefix != "" && strings.HasPrefix(entry.Name(), prefix) {
			titled = append(titled, c)
		}
		matching = append(matching, c)
	}

	for _, set := range [][]candidate{titled, matching} {
		if len(set) == 0 {
			continue
		}
		sort.SliceStable(set, func(i, j int) bool { return set[i].modTime.After(set[j].modTime) })
		return set[0].path, nil
	}

	if predicted != "" {
		path := strings.TrimSuffix(predicted, filepath.Ext(predicted)) + ext
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}

	return "", fmt.Errorf("%w in %s", ErrFileNotFound, dir)
}
