package organize

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Nomadcxx/javorganize/internal/config"
	"github.com/Nomadcxx/javorganize/internal/logging"
)

// Candidate is a video eligible for organizing.
type Candidate struct {
	Path    string
	Created time.Time
	Size    int64
}

var videoExtensions = map[string]bool{
	".mkv": true, ".mp4": true, ".avi": true, ".mov": true,
	".wmv": true, ".flv": true, ".webm": true, ".m4v": true,
	".mpg": true, ".mpeg": true, ".m2ts": true, ".ts": true,
	".vob": true, ".divx": true, ".xvid": true, ".rmvb": true,
	".rm": true, ".iso": true, ".3gp": true, ".f4v": true,
	".asf": true, ".mts": true,
}

// ExtensionClassifier recognizes videos by file extension.
type ExtensionClassifier struct{}

func (ExtensionClassifier) IsVideoFile(path string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(path))]
}

func (ExtensionClassifier) FileLength(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// FilterWatchLocations drops every watch location equal to or inside a
// managed library folder.
func FilterWatchLocations(watch, managed []string, log *logging.Component) []string {
	var out []string
	for _, w := range watch {
		skip := false
		for _, m := range managed {
			if strings.TrimSpace(m) != "" && config.IsSubPath(m, w) {
				log.Info("watch location is inside a managed library, skipping",
					logging.F("watch", w), logging.F("library", m))
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, w)
		}
	}
	return out
}

// Discoverer lists eligible videos below the watch locations.
type Discoverer struct {
	classifier VideoClassifier
	minSize    int64
	log        *logging.Component
	createdAt  func(path string, info fs.FileInfo) time.Time
	walkDir    func(root string, fn fs.WalkDirFunc) error
}

func NewDiscoverer(classifier VideoClassifier, minSize int64, log *logging.Logger) *Discoverer {
	if classifier == nil {
		classifier = ExtensionClassifier{}
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Discoverer{
		classifier: classifier,
		minSize:    minSize,
		log:        log.Named("discover"),
		createdAt:  creationTime,
		walkDir:    filepath.WalkDir,
	}
}

// Discover returns the eligible videos of every location, oldest first. A
// location that is missing or cannot be listed contributes nothing. Only a
// cancelled context is returned as an error.
func (d *Discoverer) Discover(ctx context.Context, locations []string) ([]Candidate, error) {
	var all []Candidate
	for _, root := range locations {
		found, err := d.discoverLocation(ctx, root)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			d.log.Error("failed to list watch location", err, logging.F("path", root))
			continue
		}
		all = append(all, found...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].Created.Equal(all[j].Created) {
			return all[i].Created.Before(all[j].Created)
		}
		return all[i].Path < all[j].Path
	})
	return all, nil
}

func (d *Discoverer) discoverLocation(ctx context.Context, root string) ([]Candidate, error) {
	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		d.log.Info("watch location does not exist", logging.F("path", root))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		d.log.Warn("watch location is not a directory", logging.F("path", root))
		return nil, nil
	}

	var found []Candidate
	err = d.walkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if entry.IsDir() {
			return nil
		}
		if c, ok := d.eligible(path, entry); ok {
			found = append(found, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// eligible reports whether path is a large enough video. Symlinks to regular
// files count and are judged by their target; symlinked directories are not
// descended into.
func (d *Discoverer) eligible(path string, entry fs.DirEntry) (Candidate, bool) {
	if !d.classifier.IsVideoFile(path) {
		return Candidate{}, false
	}
	info, err := entry.Info()
	if err == nil && entry.Type()&fs.ModeSymlink != 0 {
		info, err = os.Stat(path)
	}
	if err != nil {
		d.log.Warn("cannot stat file", logging.F("path", path), logging.F("error", err.Error()))
		return Candidate{}, false
	}
	if !info.Mode().IsRegular() {
		return Candidate{}, false
	}

	size, err := d.classifier.FileLength(path)
	if err != nil {
		d.log.Error("cannot classify file", err, logging.F("path", path))
		return Candidate{}, false
	}
	if size < d.minSize {
		return Candidate{}, false
	}

	return Candidate{
		Path:    filepath.Clean(path),
		Created: d.createdAt(path, info),
		Size:    size,
	}, true
}
