package organize

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Nomadcxx/javorganize/internal/config"
)

// ErrInvalidConfiguration is fatal to a run: nothing is processed.
var ErrInvalidConfiguration = errors.New("invalid organize configuration")

// SuffixPolicy controls where the "-C" subtitle suffix goes.
type SuffixPolicy int

const (
	SuffixNone SuffixPolicy = iota
	SuffixFolderOnly
	SuffixFileOnly
	SuffixBoth
)

func (p SuffixPolicy) String() string {
	switch p {
	case SuffixFolderOnly:
		return config.SuffixFolder
	case SuffixFileOnly:
		return config.SuffixFile
	case SuffixBoth:
		return config.SuffixBoth
	default:
		return config.SuffixNone
	}
}

func (p SuffixPolicy) folder() bool { return p == SuffixFolderOnly || p == SuffixBoth }
func (p SuffixPolicy) file() bool   { return p == SuffixFileOnly || p == SuffixBoth }

// ParseSuffixPolicy accepts none, folder, file or both. Empty means none.
func ParseSuffixPolicy(s string) (SuffixPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", config.SuffixNone:
		return SuffixNone, nil
	case config.SuffixFolder:
		return SuffixFolderOnly, nil
	case config.SuffixFile:
		return SuffixFileOnly, nil
	case config.SuffixBoth:
		return SuffixBoth, nil
	}
	return SuffixNone, fmt.Errorf("unknown subtitle suffix policy %q", s)
}

// Options is the immutable configuration of one run.
type Options struct {
	WatchLocations     []string
	TargetLocation     string
	FolderPattern      string
	FilePattern        string
	EmptyValue         string
	MinFileSize        int64
	OverwriteExisting  bool
	CopyOriginal       bool
	SubtitleSuffix     SuffixPolicy
	DeleteEmptyFolders bool
	ExtendedClean      bool
	LeftoverExtensions []string

	// ManagedLibraryFolders are library roots already organized by the media
	// server; watch locations inside them are never scanned.
	ManagedLibraryFolders []string

	// DryRun resolves destinations without touching files or the catalog.
	DryRun bool
}

// Validate reports configuration that makes a run pointless.
func (o Options) Validate() error {
	if len(o.watchLocations()) == 0 {
		return fmt.Errorf("%w: no watch location configured", ErrInvalidConfiguration)
	}
	if strings.TrimSpace(o.TargetLocation) == "" {
		return fmt.Errorf("%w: target location is empty", ErrInvalidConfiguration)
	}
	if strings.TrimSpace(o.FolderPattern) == "" && strings.TrimSpace(o.FilePattern) == "" {
		return fmt.Errorf("%w: folder pattern and file pattern cannot both be empty", ErrInvalidConfiguration)
	}
	return nil
}

// NormalizedLeftoverExtensions returns the configured leftover extensions as
// lowercase ".ext" suffixes, without blanks or duplicates.
func (o Options) NormalizedLeftoverExtensions() []string {
	var out []string
	seen := make(map[string]bool)
	for _, e := range o.LeftoverExtensions {
		e = strings.TrimLeft(strings.TrimSpace(e), ".")
		if e == "" {
			continue
		}
		e = "." + strings.ToLower(e)
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}

// watchLocations returns the non-blank watch locations, cleaned, in order.
func (o Options) watchLocations() []string {
	var out []string
	for _, w := range o.WatchLocations {
		if strings.TrimSpace(w) == "" {
			continue
		}
		out = append(out, cleanAbs(w))
	}
	return out
}

func (o Options) targetRoot() string {
	return cleanAbs(o.TargetLocation)
}

func cleanAbs(p string) string {
	p = strings.TrimSpace(p)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// OptionsFromConfig converts the [organize] and [[libraries]] sections.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	o := cfg.Organize
	policy, err := ParseSuffixPolicy(o.SubtitleSuffix)
	if err != nil {
		return Options{}, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	return Options{
		WatchLocations:        o.WatchLocations,
		TargetLocation:        o.TargetLocation,
		FolderPattern:         o.FolderPattern,
		FilePattern:           o.FilePattern,
		EmptyValue:            o.EmptyValue,
		MinFileSize:           o.MinFileSizeMB * 1024 * 1024,
		OverwriteExisting:     o.OverwriteExisting,
		CopyOriginal:          o.CopyOriginal,
		SubtitleSuffix:        policy,
		DeleteEmptyFolders:    o.DeleteEmptyFolders,
		ExtendedClean:         o.ExtendedClean,
		LeftoverExtensions:    o.LeftoverExtensions,
		ManagedLibraryFolders: cfg.ManagedLibraryFolders(),
	}, nil
}
