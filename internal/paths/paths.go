// Package paths resolves the per-user locations javorganize reads and writes.
//
// When running with sudo the original user's directories are used (via SUDO_USER)
// so that a root-run organize pass still shares config and catalog with the user.
package paths

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// HomeEnv overrides the application directory entirely when set.
const HomeEnv = "JAVORGANIZE_HOME"

// UserHomeDir returns the home directory of the actual user.
// If running with sudo, returns the SUDO_USER's home directory, not root's.
func UserHomeDir() (string, error) {
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" && sudoUser != "root" {
		u, err := user.Lookup(sudoUser)
		if err == nil {
			return u.HomeDir, nil
		}
	}
	return os.UserHomeDir()
}

// AppDir returns the javorganize directory, ~/.config/javorganize unless
// JAVORGANIZE_HOME points elsewhere.
func AppDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(HomeEnv)); dir != "" {
		return ExpandHome(dir)
	}
	home, err := UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "javorganize"), nil
}

func inAppDir(elem ...string) (string, error) {
	dir, err := AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{dir}, elem...)...), nil
}

// ConfigPath returns the path of config.toml.
func ConfigPath() (string, error) {
	return inAppDir("config.toml")
}

// DatabasePath returns the path of the catalog database.
func DatabasePath() (string, error) {
	return inAppDir("catalog.db")
}

// LogPath returns the default log file.
func LogPath() (string, error) {
	return inAppDir("logs", "javorganize.log")
}

// ActivityDir returns the directory holding the daily activity journals.
func ActivityDir() (string, error) {
	return inAppDir("activity")
}

// ExpandHome replaces a leading ~ with the actual user's home directory.
func ExpandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}

// ActualUser returns the actual username (not root when using sudo).
func ActualUser() string {
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" && sudoUser != "root" {
		return sudoUser
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return "unknown"
}
