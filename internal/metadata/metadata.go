// Package metadata defines the scraped video record and the catalog item that owns it.
package metadata

import (
	"slices"
	"strings"
)

// ChineseSubtitleGenre is the genre tag scrapers attach to releases that ship
// with Chinese subtitles.
const ChineseSubtitleGenre = "中文字幕"

// Video is the metadata scraped for one release. Genres and Actors are nil
// when never populated, which is what triggers a cache backfill.
type Video struct {
	Provider      string   `json:"provider"`
	Num           string   `json:"num"`
	Title         string   `json:"title"`
	OriginalTitle string   `json:"original_title,omitempty"`
	Cover         string   `json:"cover,omitempty"`
	Director      string   `json:"director,omitempty"`
	Studio        string   `json:"studio,omitempty"`
	Maker         string   `json:"maker,omitempty"`
	Set           string   `json:"set,omitempty"`
	Date          string   `json:"date,omitempty"`
	Runtime       string   `json:"runtime,omitempty"`
	Plot          string   `json:"plot,omitempty"`
	URL           string   `json:"url,omitempty"`
	Genres        []string `json:"genres"`
	Actors        []string `json:"actors"`
}

// Key identifies the video across cache and catalog.
func (v *Video) Key() string {
	return strings.ToLower(strings.TrimSpace(v.Provider)) + ":" + strings.ToUpper(strings.TrimSpace(v.Num))
}

// Incomplete reports whether genres or cast were never populated.
func (v *Video) Incomplete() bool {
	return v.Genres == nil || v.Actors == nil
}

// Backfill copies the fields v never populated from cached. It returns a new
// record and leaves v untouched.
func (v *Video) Backfill(cached *Video) *Video {
	out := *v
	if cached == nil {
		return &out
	}
	if out.Genres == nil && cached.Genres != nil {
		out.Genres = slices.Clone(cached.Genres)
	}
	if out.Actors == nil && cached.Actors != nil {
		out.Actors = slices.Clone(cached.Actors)
	}
	return &out
}

// Year returns the four-digit year of Date, or "".
func (v *Video) Year() string {
	if len(v.Date) >= 4 {
		return v.Date[:4]
	}
	return ""
}

// Month returns the two-digit month of a YYYY-MM-DD Date, or "".
func (v *Video) Month() string {
	if len(v.Date) >= 7 && v.Date[4] == '-' {
		return v.Date[5:7]
	}
	return ""
}

// Item is a catalog entry: a file path with its own tags and, once scraped,
// its video record.
type Item struct {
	ID     int64
	Path   string
	Genres []string
	Video  *Video
}

// HasGenre reports whether the item is tagged with genre.
func (i *Item) HasGenre(genre string) bool {
	return slices.Contains(i.Genres, genre)
}
