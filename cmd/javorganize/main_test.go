package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nomadcxx/javorganize/internal/config"
	"github.com/Nomadcxx/javorganize/internal/database"
	"github.com/Nomadcxx/javorganize/internal/metadata"
	"github.com/Nomadcxx/javorganize/internal/paths"
)

// setupHome points the application directory at a temp dir.
func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv(paths.HomeEnv, home)
	return home
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func writeConfig(t *testing.T, home string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Organize.WatchLocations = []string{filepath.Join(home, "watch")}
	cfg.Organize.TargetLocation = filepath.Join(home, "library")
	cfg.Organize.MinFileSizeMB = 0
	cfg.Organize.LeftoverExtensions = []string{".url"}
	cfg.Transfer.Backend = "native"
	cfg.Transfer.RetryAttempts = 0
	require.NoError(t, cfg.Save(filepath.Join(home, "config.toml")))
	return cfg
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "javorganize dev\n", out)
}

func TestConfigCommands(t *testing.T) {
	home := setupHome(t)
	path := filepath.Join(home, "config.toml")

	out, err := execute(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)

	out, err = execute(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.FileExists(t, path)

	_, err = execute(t, "config", "init")
	assert.ErrorContains(t, err, "already exists")

	_, err = execute(t, "config", "init", "--force")
	require.NoError(t, err)

	out, err = execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "[organize]")
	assert.Contains(t, out, "%actor%/%num%")
	assert.Contains(t, out, "watch_locations must contain at least one folder")
}

func TestConfigPathFlag(t *testing.T) {
	setupHome(t)
	custom := filepath.Join(t.TempDir(), "custom.toml")

	out, err := execute(t, "--config", custom, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, custom+"\n", out)
}

func TestCatalogAddAndList(t *testing.T) {
	home := setupHome(t)
	writeConfig(t, home)
	file := filepath.Join(home, "watch", "abp123.mp4")

	_, err := execute(t, "catalog", "add")
	require.Error(t, err)

	_, err = execute(t, "catalog", "add", file)
	assert.ErrorContains(t, err, "--num is required")

	out, err := execute(t, "catalog", "add", file,
		"--num", "ABP-123", "--actor", "Aoi", "--actor", "Mio", "--tag", metadata.ChineseSubtitleGenre)
	require.NoError(t, err)
	assert.Contains(t, out, "1 catalog entries saved")

	out, err = execute(t, "catalog", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ABP-123")
	assert.Contains(t, out, "Aoi, Mio")
	assert.Contains(t, out, "1 of 1 entries, 0 cached records")

	db, err := database.OpenPath(filepath.Join(home, "catalog.db"))
	require.NoError(t, err)
	defer db.Close()
	item, err := db.FindItemByPath(file)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Nil(t, item.Video.Genres, "genres left unset so they can be backfilled")
	assert.Equal(t, []string{metadata.ChineseSubtitleGenre}, item.Genres)
}

func TestImportItemsResolvesRelativePaths(t *testing.T) {
	items, err := importItems([]importItem{
		{Path: "a/one.mp4", Video: &metadata.Video{Num: "A-1"}},
		{Path: "/abs/two.mp4", Genres: []string{"x"}},
	}, "/data/import")
	require.NoError(t, err)
	assert.Equal(t, "/data/import/a/one.mp4", items[0].Path)
	assert.Equal(t, "/abs/two.mp4", items[1].Path)
	assert.Equal(t, []string{"x"}, items[1].Genres)

	_, err = importItems([]importItem{{Path: " "}}, "/data")
	assert.Error(t, err)
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func TestOrganizeEndToEnd(t *testing.T) {
	home := setupHome(t)
	writeConfig(t, home)

	rel := filepath.Join(home, "watch", "abp123")
	require.NoError(t, os.MkdirAll(rel, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(rel, "abp123.mp4"), []byte("video"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(rel, "abp123.srt"), []byte("subs"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(rel, "site.url"), []byte("x"), 0644))

	itemsFile := filepath.Join(home, "items.json")
	writeJSON(t, itemsFile, []importItem{{
		Path:  filepath.Join(rel, "abp123.mp4"),
		Video: &metadata.Video{Provider: "javbus", Num: "ABP-123", Genres: []string{"Drama"}},
	}})
	cacheFile := filepath.Join(home, "cache.json")
	writeJSON(t, cacheFile, []metadata.Video{{Provider: "javbus", Num: "ABP-123", Actors: []string{"Aoi"}}})

	_, err := execute(t, "catalog", "import", itemsFile)
	require.NoError(t, err)
	out, err := execute(t, "catalog", "cache", cacheFile)
	require.NoError(t, err)
	assert.Contains(t, out, "1 records cached")

	out, err = execute(t, "organize", "--dry-run", "--no-progress")
	require.NoError(t, err)
	assert.Contains(t, out, "planned")
	assert.Contains(t, out, filepath.Join(home, "library", "Aoi", "ABP-123", "ABP-123.mp4"))
	assert.FileExists(t, filepath.Join(rel, "abp123.mp4"))

	out, err = execute(t, "organize", "--no-progress")
	require.NoError(t, err)
	assert.Contains(t, out, "Relocated: 1")

	dest := filepath.Join(home, "library", "Aoi", "ABP-123")
	assert.FileExists(t, filepath.Join(dest, "ABP-123.mp4"))
	assert.FileExists(t, filepath.Join(dest, "ABP-123.srt"))
	assert.NoDirExists(t, rel)
	assert.DirExists(t, filepath.Join(home, "watch"))

	out, err = execute(t, "history", "--files")
	require.NoError(t, err)
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "(dry)")
	assert.Contains(t, out, "move")
	assert.Contains(t, out, "rmdir")
	assert.Equal(t, 2, strings.Count(out, "completed"))
}

func TestOrganizeRejectsInvalidConfig(t *testing.T) {
	setupHome(t)
	_, err := execute(t, "organize", "--no-progress")
	require.Error(t, err)
	assert.True(t, config.IsValidationError(err))
}

func TestHistoryEmpty(t *testing.T) {
	home := setupHome(t)
	writeConfig(t, home)

	out, err := execute(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No organize runs recorded yet.")
}

func TestResolveRunID(t *testing.T) {
	runs := []database.Run{{ID: "0f3a9c1e-aaaa"}, {ID: "7b2d0000-bbbb"}}
	assert.Equal(t, "7b2d0000-bbbb", resolveRunID(runs, "7b2d"))
	assert.Equal(t, "unknown", resolveRunID(runs, "unknown"))
	assert.Equal(t, "0f3a9c1e", shortID(runs[0].ID))
}
