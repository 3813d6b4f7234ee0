package organize

import (
	"github.com/Nomadcxx/javorganize/internal/activity"
	"github.com/Nomadcxx/javorganize/internal/metadata"
)

// Catalog maps files to their scraped metadata and records relocations.
type Catalog interface {
	// FindItemByPath returns the item stored at exactly path, or nil.
	FindItemByPath(path string) (*metadata.Item, error)
	UpdateItemPath(item *metadata.Item, newPath string) error
}

// MetadataCache backfills records scraped without genres or cast.
type MetadataCache interface {
	// LoadCachedFields returns nil, nil on a miss.
	LoadCachedFields(v *metadata.Video) (*metadata.Video, error)
}

// Formatter renders a naming template for a video.
type Formatter interface {
	Format(pattern string, v *metadata.Video, emptyValue string, sanitize bool) string
}

// VideoClassifier decides which files are videos.
type VideoClassifier interface {
	IsVideoFile(path string) bool
	FileLength(path string) (int64, error)
}

// Journal records per-file outcomes.
type Journal interface {
	Log(entry activity.Entry) error
}
