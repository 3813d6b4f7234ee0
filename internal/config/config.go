package config

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Nomadcxx/javorganize/internal/logging"
	"github.com/Nomadcxx/javorganize/internal/paths"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// JavFetcherName is the metadata fetcher whose libraries are already managed
// and therefore never organized from.
const JavFetcherName = "JavScraper"

// Subtitle suffix policies accepted in [organize].subtitle_suffix.
const (
	SuffixNone   = "none"
	SuffixFolder = "folder"
	SuffixFile   = "file"
	SuffixBoth   = "both"
)

type Config struct {
	Organize    OrganizeConfig    `mapstructure:"organize" toml:"organize"`
	Libraries   []LibraryConfig   `mapstructure:"libraries" toml:"libraries"`
	Transfer    TransferConfig    `mapstructure:"transfer" toml:"transfer"`
	Permissions PermissionsConfig `mapstructure:"permissions" toml:"permissions"`
	Logging     logging.Config    `mapstructure:"logging" toml:"logging"`
	Database    DatabaseConfig    `mapstructure:"database" toml:"database"`
	Activity    ActivityConfig    `mapstructure:"activity" toml:"activity"`
}

// OrganizeConfig holds the options of one organize run.
type OrganizeConfig struct {
	WatchLocations     []string `mapstructure:"watch_locations" toml:"watch_locations"`
	TargetLocation     string   `mapstructure:"target_location" toml:"target_location"`
	FolderPattern      string   `mapstructure:"folder_pattern" toml:"folder_pattern"`
	FilePattern        string   `mapstructure:"file_pattern" toml:"file_pattern"`
	EmptyValue         string   `mapstructure:"empty_value" toml:"empty_value"`
	MinFileSizeMB      int64    `mapstructure:"min_file_size_mb" toml:"min_file_size_mb"`
	OverwriteExisting  bool     `mapstructure:"overwrite_existing" toml:"overwrite_existing"`
	CopyOriginal       bool     `mapstructure:"copy_original" toml:"copy_original"`
	SubtitleSuffix     string   `mapstructure:"subtitle_suffix" toml:"subtitle_suffix"`
	DeleteEmptyFolders bool     `mapstructure:"delete_empty_folders" toml:"delete_empty_folders"`
	ExtendedClean      bool     `mapstructure:"extended_clean" toml:"extended_clean"`
	LeftoverExtensions []string `mapstructure:"leftover_extensions" toml:"leftover_extensions"`
}

// LibraryConfig describes a library folder registered with the media server.
type LibraryConfig struct {
	Path             string   `mapstructure:"path" toml:"path"`
	CollectionType   string   `mapstructure:"collection_type" toml:"collection_type"`
	MetadataFetchers []string `mapstructure:"metadata_fetchers" toml:"metadata_fetchers"`
}

type TransferConfig struct {
	// Backend is one of auto, native, rsync.
	Backend         string `mapstructure:"backend" toml:"backend"`
	Timeout         string `mapstructure:"timeout" toml:"timeout"`
	RetryAttempts   int    `mapstructure:"retry_attempts" toml:"retry_attempts"`
	VerifyChecksums bool   `mapstructure:"verify_checksums" toml:"verify_checksums"`
}

type PermissionsConfig struct {
	// User can be a username (e.g., "jellyfin") or numeric UID (e.g., "1000").
	User string `mapstructure:"user" toml:"user"`
	// Group can be a group name or numeric GID.
	Group string `mapstructure:"group" toml:"group"`
	// Modes are strings in octal (e.g., "0644" or "644"). Empty means preserve source.
	FileMode string `mapstructure:"file_mode" toml:"file_mode"`
	DirMode  string `mapstructure:"dir_mode" toml:"dir_mode"`
}

type DatabaseConfig struct {
	// Path of the catalog database; empty means ~/.config/javorganize/catalog.db.
	Path string `mapstructure:"path" toml:"path"`
}

type ActivityConfig struct {
	Enabled       bool `mapstructure:"enabled" toml:"enabled"`
	RetentionDays int  `mapstructure:"retention_days" toml:"retention_days"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Organize: OrganizeConfig{
			WatchLocations:     []string{},
			FolderPattern:      "%actor%/%num%",
			FilePattern:        "%num%",
			EmptyValue:         "NULL",
			MinFileSizeMB:      50,
			SubtitleSuffix:     SuffixBoth,
			DeleteEmptyFolders: true,
			LeftoverExtensions: []string{},
		},
		Libraries: []LibraryConfig{},
		Transfer: TransferConfig{
			Backend:       "auto",
			Timeout:       "5m",
			RetryAttempts: 3,
		},
		Logging: logging.DefaultConfig(),
		Activity: ActivityConfig{
			Enabled:       true,
			RetentionDays: 30,
		},
	}
}

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// IsValidationError reports whether err carries a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validate checks the options an organize run cannot start without.
func (c *Config) Validate() error {
	var problems []string
	o := c.Organize

	hasWatch := slices.ContainsFunc(o.WatchLocations, func(s string) bool { return strings.TrimSpace(s) != "" })
	if !hasWatch {
		problems = append(problems, "organize.watch_locations must contain at least one folder")
	}
	if strings.TrimSpace(o.TargetLocation) == "" {
		problems = append(problems, "organize.target_location is required")
	}
	if strings.TrimSpace(o.FolderPattern) == "" && strings.TrimSpace(o.FilePattern) == "" {
		problems = append(problems, "organize.folder_pattern and organize.file_pattern cannot both be empty")
	}
	if o.MinFileSizeMB < 0 {
		problems = append(problems, "organize.min_file_size_mb cannot be negative")
	}
	switch strings.ToLower(strings.TrimSpace(o.SubtitleSuffix)) {
	case "", SuffixNone, SuffixFolder, SuffixFile, SuffixBoth:
	default:
		problems = append(problems, fmt.Sprintf("organize.subtitle_suffix %q must be one of none, folder, file, both", o.SubtitleSuffix))
	}
	if target := strings.TrimSpace(o.TargetLocation); target != "" {
		for _, w := range o.WatchLocations {
			if strings.TrimSpace(w) != "" && IsSubPath(w, target) {
				problems = append(problems, fmt.Sprintf("organize.target_location %q must not be inside watch location %q", target, w))
			}
		}
	}
	switch strings.ToLower(c.Transfer.Backend) {
	case "", "auto", "native", "rsync":
	default:
		problems = append(problems, fmt.Sprintf("transfer.backend %q must be one of auto, native, rsync", c.Transfer.Backend))
	}
	if _, err := c.Transfer.ParseTimeout(); err != nil {
		problems = append(problems, fmt.Sprintf("transfer.timeout: %v", err))
	}
	if _, err := c.Permissions.ParseFileMode(); err != nil {
		problems = append(problems, fmt.Sprintf("permissions.file_mode: %v", err))
	}
	if _, err := c.Permissions.ParseDirMode(); err != nil {
		problems = append(problems, fmt.Sprintf("permissions.dir_mode: %v", err))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// ManagedLibraryFolders returns the movie library folders that already use the
// JAV metadata fetcher.
func (c *Config) ManagedLibraryFolders() []string {
	var out []string
	for _, lib := range c.Libraries {
		if !strings.EqualFold(strings.TrimSpace(lib.CollectionType), "movies") || strings.TrimSpace(lib.Path) == "" {
			continue
		}
		managed := slices.ContainsFunc(lib.MetadataFetchers, func(f string) bool {
			return strings.EqualFold(strings.TrimSpace(f), JavFetcherName)
		})
		if managed {
			out = append(out, lib.Path)
		}
	}
	return out
}

// IsSubPath reports whether path equals parent or lies beneath it.
func IsSubPath(parent, path string) bool {
	parent = filepath.Clean(parent)
	path = filepath.Clean(path)
	if parent == path {
		return true
	}
	rel, err := filepath.Rel(parent, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// ParseTimeout returns the transfer stall timeout; empty means 5 minutes.
func (t TransferConfig) ParseTimeout() (time.Duration, error) {
	if strings.TrimSpace(t.Timeout) == "" {
		return 5 * time.Minute, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(t.Timeout))
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", d)
	}
	return d, nil
}

func (p *PermissionsConfig) WantsOwnership() bool {
	return strings.TrimSpace(p.User) != "" || strings.TrimSpace(p.Group) != ""
}

func (p *PermissionsConfig) WantsMode() bool {
	return strings.TrimSpace(p.FileMode) != "" || strings.TrimSpace(p.DirMode) != ""
}

func (p *PermissionsConfig) ResolveUID() (int, error) {
	if p.User == "" {
		return -1, nil
	}
	if uid, err := strconv.Atoi(p.User); err == nil {
		return uid, nil
	}
	usr, err := user.Lookup(p.User)
	if err != nil {
		return -1, err
	}
	return strconv.Atoi(usr.Uid)
}

func (p *PermissionsConfig) ResolveGID() (int, error) {
	if p.Group == "" {
		return -1, nil
	}
	if gid, err := strconv.Atoi(p.Group); err == nil {
		return gid, nil
	}
	grp, err := user.LookupGroup(p.Group)
	if err != nil {
		return -1, err
	}
	return strconv.Atoi(grp.Gid)
}

func (p *PermissionsConfig) ParseFileMode() (os.FileMode, error) {
	return parseMode(p.FileMode)
}

func (p *PermissionsConfig) ParseDirMode() (os.FileMode, error) {
	return parseMode(p.DirMode)
}

func parseMode(s string) (os.FileMode, error) {
	m := strings.TrimSpace(s)
	if m == "" {
		return 0, nil
	}
	if len(m) == 3 { // allow "644"
		m = "0" + m
	}
	v, err := strconv.ParseUint(m, 8, 32)
	if err != nil {
		return 0, err
	}
	return os.FileMode(v), nil
}

// Load reads the config file at path, or the default location when path is
// empty. A missing file yields defaults. JAVORGANIZE_* environment variables
// override file values (e.g. JAVORGANIZE_ORGANIZE_TARGET_LOCATION).
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := paths.ConfigPath()
		if err != nil {
			return nil, fmt.Errorf("unable to get config path: %w", err)
		}
		path = p
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix("JAVORGANIZE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("unable to read config file: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every scalar key so AutomaticEnv can see it.
func setDefaults(v *viper.Viper, d *Config) {
	o := d.Organize
	v.SetDefault("organize.watch_locations", o.WatchLocations)
	v.SetDefault("organize.target_location", o.TargetLocation)
	v.SetDefault("organize.folder_pattern", o.FolderPattern)
	v.SetDefault("organize.file_pattern", o.FilePattern)
	v.SetDefault("organize.empty_value", o.EmptyValue)
	v.SetDefault("organize.min_file_size_mb", o.MinFileSizeMB)
	v.SetDefault("organize.overwrite_existing", o.OverwriteExisting)
	v.SetDefault("organize.copy_original", o.CopyOriginal)
	v.SetDefault("organize.subtitle_suffix", o.SubtitleSuffix)
	v.SetDefault("organize.delete_empty_folders", o.DeleteEmptyFolders)
	v.SetDefault("organize.extended_clean", o.ExtendedClean)
	v.SetDefault("organize.leftover_extensions", o.LeftoverExtensions)
	v.SetDefault("transfer.backend", d.Transfer.Backend)
	v.SetDefault("transfer.timeout", d.Transfer.Timeout)
	v.SetDefault("transfer.retry_attempts", d.Transfer.RetryAttempts)
	v.SetDefault("transfer.verify_checksums", d.Transfer.VerifyChecksums)
	v.SetDefault("permissions.user", "")
	v.SetDefault("permissions.group", "")
	v.SetDefault("permissions.file_mode", "")
	v.SetDefault("permissions.dir_mode", "")
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("activity.enabled", d.Activity.Enabled)
	v.SetDefault("activity.retention_days", d.Activity.RetentionDays)
}

const tomlHeader = `# javorganize configuration
# Generated by: javorganize config init
#
# Template fields: %num% %title% %title_original% %actor% %actor_first% %set%
#                  %director% %studio% %maker% %date% %year% %month% %provider%
# A "/" in a pattern creates nested folders.
# subtitle_suffix: none | folder | file | both

`

// ToTOML renders the configuration as a TOML document.
func (c *Config) ToTOML() (string, error) {
	b, err := toml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("unable to encode config: %w", err)
	}
	return tomlHeader + string(b), nil
}

// Save writes the configuration to path, or the default location when empty.
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := paths.ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	content, err := c.ToTOML()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("unable to create config dir: %w", err)
	}
	return os.WriteFile(path, []byte(content), 0644)
}

// DatabasePath returns the configured catalog path or the default one.
func (c *Config) DatabasePath() (string, error) {
	if strings.TrimSpace(c.Database.Path) != "" {
		return paths.ExpandHome(c.Database.Path)
	}
	return paths.DatabasePath()
}
