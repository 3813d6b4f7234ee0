package organize

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/Nomadcxx/javorganize/internal/metadata"
)

// subtitleMarkers are the release-name endings used for Chinese subtitled rips.
var subtitleMarkers = []string{"-C", "-C2", "_C", "_C2"}

// HasChineseSubtitle reports whether a file ships Chinese subtitles: either
// the catalog tags say so, or the file stem or its folder name carries one of
// the usual markers.
func HasChineseSubtitle(genres []string, sourcePath string) bool {
	if slices.Contains(genres, metadata.ChineseSubtitleGenre) {
		return true
	}
	base := filepath.Base(sourcePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	folder := filepath.Base(filepath.Dir(sourcePath))
	return hasSubtitleMarker(stem) || hasSubtitleMarker(folder)
}

func hasSubtitleMarker(name string) bool {
	for _, m := range subtitleMarkers {
		if hasSuffixFold(name, m) {
			return true
		}
	}
	return false
}

func hasSuffixFold(s, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
