// Package naming renders folder and file names from video metadata templates.
//
// Templates use %field% placeholders; a literal "/" in a template creates a
// nested folder. Supported fields:
//
//	%num% %title% %title_original% %actor% %actor_first% %set% %director%
//	%studio% %maker% %date% %year% %month% %provider% %genre%
//
// Unknown placeholders are left untouched.
package naming

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Nomadcxx/javorganize/internal/metadata"
	"golang.org/x/text/unicode/norm"
)

// MaxSegmentBytes keeps every rendered path segment below common filesystem
// name limits, leaving room for suffixes and extensions.
const MaxSegmentBytes = 200

var (
	fieldRegex = regexp.MustCompile(`%([A-Za-z_]+)%`)
	spaceRegex = regexp.MustCompile(`\s+`)
)

// invalidPathChars are removed from metadata values; "/" and "\" included so
// a value can never introduce a folder level on its own.
const invalidPathChars = `<>:"/\|?*`

// Formatter renders templates. The zero value is ready to use.
type Formatter struct{}

// NewFormatter returns a Formatter.
func NewFormatter() *Formatter {
	return &Formatter{}
}

// Format substitutes the fields of v into pattern. Empty fields render as
// emptyValue. With sanitize set, every value and emptyValue itself are
// stripped of path separators, illegal characters and control characters
// before substitution, and each resulting path segment is trimmed and
// length-limited.
func (f *Formatter) Format(pattern string, v *metadata.Video, emptyValue string, sanitize bool) string {
	if v == nil {
		v = &metadata.Video{}
	}
	fields := fieldValues(v)
	if sanitize {
		emptyValue = SanitizeValue(emptyValue)
	}

	out := fieldRegex.ReplaceAllStringFunc(pattern, func(m string) string {
		key := strings.ToLower(m[1 : len(m)-1])
		val, ok := fields[key]
		if !ok {
			return m
		}
		if sanitize {
			val = SanitizeValue(val)
		}
		if strings.TrimSpace(val) == "" {
			return emptyValue
		}
		return val
	})

	if sanitize {
		out = cleanSegments(out)
	}
	return out
}

func fieldValues(v *metadata.Video) map[string]string {
	actorFirst := ""
	if len(v.Actors) > 0 {
		actorFirst = v.Actors[0]
	}
	return map[string]string{
		"num":            v.Num,
		"title":          v.Title,
		"title_original": v.OriginalTitle,
		"actor":          strings.Join(v.Actors, ", "),
		"actor_first":    actorFirst,
		"set":            v.Set,
		"director":       v.Director,
		"studio":         v.Studio,
		"maker":          v.Maker,
		"date":           v.Date,
		"year":           v.Year(),
		"month":          v.Month(),
		"provider":       v.Provider,
		"genre":          strings.Join(v.Genres, ", "),
	}
}

// SanitizeValue makes a metadata value safe to use inside a single path segment.
func SanitizeValue(s string) string {
	s = norm.NFC.String(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsControl(r) || strings.ContainsRune(invalidPathChars, r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(spaceRegex.ReplaceAllString(b.String(), " "))
}

// cleanSegments trims every "/"-separated segment of a rendered name, drops
// trailing dots (rejected by SMB shares) and caps its length.
func cleanSegments(s string) string {
	parts := strings.Split(s, "/")
	for i, p := range parts {
		p = strings.TrimSpace(spaceRegex.ReplaceAllString(p, " "))
		p = strings.TrimRight(p, ". ")
		parts[i] = truncateBytes(p, MaxSegmentBytes)
	}
	return strings.Join(parts, "/")
}

func truncateBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimSpace(s[:cut])
}
