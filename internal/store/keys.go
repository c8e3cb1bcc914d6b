package store

import (
	"regexp"
	"strings"
	"time"

	"beliefpad/api/internal/document"
)

// KeyPrefix marks catalogue entries. Keys without it are never touched.
const KeyPrefix = "session-form-"

// capacityProbeKey is written and removed to check the backend accepts writes.
const capacityProbeKey = "__test_key__"

// ArchiveFilename is the download name of ExportAll.
const ArchiveFilename = "all_saved_forms.zip"

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	// Greedy name group so names containing "-" still split at the last
	// dash before the timestamp.
	keyPattern = regexp.MustCompile(`^session-form-(.+)-(\d{4}-\d{2}-\d{2}T.+)$`)
)

// SanitizeName trims title and replaces whitespace runs with "-".
func SanitizeName(title string) string {
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(title), "-")
}

// NewKey builds the catalogue key for title saved at t.
func NewKey(title string, t time.Time) string {
	return KeyPrefix + SanitizeName(title) + "-" + document.FormatTimestamp(t)
}

// ParseKey recovers the sanitized name and save time from a key.
func ParseKey(key string) (name string, savedAt time.Time, ok bool) {
	match := keyPattern.FindStringSubmatch(key)
	if match == nil {
		return "", time.Time{}, false
	}
	parsed, err := time.Parse(time.RFC3339Nano, match[2])
	if err != nil {
		return match[1], time.Time{}, false
	}
	return match[1], parsed, true
}

// ArchiveName is the file name of key inside the bulk export archive.
func ArchiveName(key string) string {
	return strings.TrimPrefix(key, KeyPrefix) + ".json"
}

// IsFormKey reports whether key belongs to the catalogue.
func IsFormKey(key string) bool {
	return strings.HasPrefix(key, KeyPrefix)
}
