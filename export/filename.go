package export

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

var dashes = regexp.MustCompile("-+")

// ArchiveFilename builds a default archive name such as
// "pipestore-users-teams-20240301-120000.zip".
func ArchiveFilename(names []string, now time.Time) string {
	parts := []string{"pipestore"}
	for _, name := range names {
		parts = append(parts, sanitizeName(name))
	}
	parts = append(parts, now.UTC().Format("20060102-150405"))
	return strings.Join(parts, "-") + ".zip"
}

// sanitizeName keeps letters, digits, dash and underscore, collapses
// runs of dashes and truncates to 40 bytes.
func sanitizeName(name string) string {
	result := strings.ReplaceAll(strings.ToLower(name), " ", "-")

	var builder strings.Builder
	for _, r := range result {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			builder.WriteRune(r)
		}
	}

	result = dashes.ReplaceAllString(builder.String(), "-")
	result = strings.Trim(result, "-")
	if len(result) > 40 {
		result = result[:40]
	}
	if result == "" {
		result = "collection"
	}
	return result
}
