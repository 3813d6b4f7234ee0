package paths

import (
	"os"
	"os/user"
	"path/filepath"
	"testing"
)

func TestUserHomeDir_NoSudo(t *testing.T) {
	t.Setenv("SUDO_USER", "")

	got, err := UserHomeDir()
	if err != nil {
		t.Fatalf("UserHomeDir() error = %v", err)
	}

	expected, _ := os.UserHomeDir()
	if got != expected {
		t.Errorf("UserHomeDir() = %q, want %q", got, expected)
	}
}

func TestUserHomeDir_WithSudoUser(t *testing.T) {
	currentUser, err := user.Current()
	if err != nil {
		t.Skip("Cannot get current user")
	}
	t.Setenv("SUDO_USER", currentUser.Username)

	got, err := UserHomeDir()
	if err != nil {
		t.Fatalf("UserHomeDir() error = %v", err)
	}
	if got != currentUser.HomeDir {
		t.Errorf("UserHomeDir() = %q, want %q", got, currentUser.HomeDir)
	}
}

func TestAppDir_HomeOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(HomeEnv, dir)

	got, err := AppDir()
	if err != nil {
		t.Fatalf("AppDir() error = %v", err)
	}
	if got != dir {
		t.Errorf("AppDir() = %q, want %q", got, dir)
	}

	cfg, _ := ConfigPath()
	if cfg != filepath.Join(dir, "config.toml") {
		t.Errorf("ConfigPath() = %q", cfg)
	}
	db, _ := DatabasePath()
	if db != filepath.Join(dir, "catalog.db") {
		t.Errorf("DatabasePath() = %q", db)
	}
	logPath, _ := LogPath()
	if logPath != filepath.Join(dir, "logs", "javorganize.log") {
		t.Errorf("LogPath() = %q", logPath)
	}
}

func TestAppDir_Default(t *testing.T) {
	t.Setenv(HomeEnv, "")
	t.Setenv("SUDO_USER", "")

	got, err := AppDir()
	if err != nil {
		t.Fatalf("AppDir() error = %v", err)
	}
	home, _ := os.UserHomeDir()
	if got != filepath.Join(home, ".config", "javorganize") {
		t.Errorf("AppDir() = %q", got)
	}
}

func TestExpandHome(t *testing.T) {
	t.Setenv("SUDO_USER", "")
	home, _ := os.UserHomeDir()

	tests := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/media", filepath.Join(home, "media")},
		{"/abs/path", "/abs/path"},
		{"~other/x", "~other/x"},
	}
	for _, tt := range tests {
		got, err := ExpandHome(tt.in)
		if err != nil {
			t.Fatalf("ExpandHome(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ExpandHome(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
