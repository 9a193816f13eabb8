package media

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

var invalidFilenameChars = regexp.MustCompile(`[\\/*?:"<>|]`)

// SanitizeFilename removes characters that are not allowed in file names
func SanitizeFilename(name string) string {
	return invalidFilenameChars.ReplaceAllString(name, "")
}

// ContentDisposition returns an attachment header value carrying the
// percent-encoded base name of path.
func ContentDisposition(path string) string {
	name := SanitizeFilename(filepath.Base(path))
	return "attachment; filename=" + quote(name)
}

// quote percent-encodes everything except unreserved characters
func quote(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// ThumbnailSiblings returns the side files the engine may leave next to path
func ThumbnailSiblings(path string) []string {
	stem := strings.TrimSuffix(path, filepath.Ext(path))
	return []string{stem + ".webp", stem + ".jpg", stem + ".png"}
}
