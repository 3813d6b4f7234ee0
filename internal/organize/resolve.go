package organize

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Nomadcxx/javorganize/internal/config"
	"github.com/Nomadcxx/javorganize/internal/metadata"
)

// SubtitleSuffix is appended to folder and/or file names of subtitled releases.
const SubtitleSuffix = "-C"

var (
	// ErrDestinationEscapes is returned when a rendered name climbs out of the target root.
	ErrDestinationEscapes = errors.New("destination escapes target location")

	// ErrEmptyName is returned when the templates render to an empty file name.
	ErrEmptyName = errors.New("templates rendered an empty file name")
)

// Destination is the resolved location of a primary file.
type Destination struct {
	Dir  string
	Name string // file name without extension
	Ext  string
	Path string
}

// Resolve computes where sourcePath goes. genres are the catalog item's own
// tags. The result always lies inside the target root.
func Resolve(f Formatter, v *metadata.Video, genres []string, opts Options, sourcePath string) (Destination, error) {
	root := opts.targetRoot()

	dir := root
	if strings.TrimSpace(opts.FolderPattern) != "" {
		dir = filepath.Join(dir, f.Format(opts.FolderPattern, v, opts.EmptyValue, true))
	}

	var name string
	if strings.TrimSpace(opts.FilePattern) != "" {
		name = f.Format(opts.FilePattern, v, opts.EmptyValue, true)
	} else {
		// the folder template names the file too
		name = filepath.Base(dir)
		dir = filepath.Dir(dir)
	}

	// a rendered name may contain separators; normalize before suffixing
	full := cleanAbs(filepath.Join(dir, name+filepath.Ext(sourcePath)))
	dest := splitDestination(full)

	if HasChineseSubtitle(genres, sourcePath) {
		if opts.SubtitleSuffix.folder() && dest.Dir != root && config.IsSubPath(root, dest.Dir) {
			dest.Dir = appendSuffix(dest.Dir)
		}
		if opts.SubtitleSuffix.file() {
			dest.Name = appendSuffix(dest.Name)
		}
		dest.Path = filepath.Join(dest.Dir, dest.Name+dest.Ext)
	}

	if strings.TrimSpace(dest.Name) == "" {
		return Destination{}, fmt.Errorf("%w: %s", ErrEmptyName, sourcePath)
	}
	if !config.IsSubPath(root, dest.Dir) {
		return Destination{}, fmt.Errorf("%w: %s", ErrDestinationEscapes, dest.Path)
	}
	return dest, nil
}

// splitDestination breaks a cleaned absolute file path into its parts.
func splitDestination(full string) Destination {
	file := filepath.Base(full)
	ext := filepath.Ext(file)
	return Destination{
		Dir:  filepath.Dir(full),
		Name: strings.TrimSuffix(file, ext),
		Ext:  ext,
		Path: full,
	}
}

// appendSuffix adds SubtitleSuffix unless s already ends with it.
func appendSuffix(s string) string {
	if hasSuffixFold(s, SubtitleSuffix) {
		return s
	}
	return s + SubtitleSuffix
}
