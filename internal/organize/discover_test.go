package organize

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nomadcxx/javorganize/internal/logging"
)

func TestDiscoverFiltersBySizeAndExtension(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "at-threshold.mp4"), 10)
	writeFile(t, filepath.Join(root, "too-small.mp4"), 9)
	writeFile(t, filepath.Join(root, "notes.txt"), 100)
	writeFile(t, filepath.Join(root, "nested", "deep", "upper.MKV"), 20)

	d := NewDiscoverer(nil, 10, nil)
	found, err := d.Discover(context.Background(), []string{root})
	require.NoError(t, err)

	var names []string
	for _, c := range found {
		names = append(names, filepath.Base(c.Path))
	}
	assert.ElementsMatch(t, []string{"at-threshold.mp4", "upper.MKV"}, names)
}

func TestDiscoverOrdersByCreationTime(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	writeFile(t, filepath.Join(root, "b.mp4"), 1)
	writeFile(t, filepath.Join(root, "a.mp4"), 1)
	writeFile(t, filepath.Join(other, "c.mp4"), 1)
	writeFile(t, filepath.Join(other, "d.mp4"), 1)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	created := map[string]time.Time{
		"a.mp4": base.Add(2 * time.Hour),
		"b.mp4": base,
		"c.mp4": base.Add(time.Hour),
		"d.mp4": base.Add(time.Hour),
	}

	d := NewDiscoverer(nil, 0, nil)
	d.createdAt = func(path string, _ fs.FileInfo) time.Time { return created[filepath.Base(path)] }

	found, err := d.Discover(context.Background(), []string{root, other})
	require.NoError(t, err)
	require.Len(t, found, 4)

	assert.Equal(t, filepath.Join(root, "b.mp4"), found[0].Path)
	assert.Equal(t, filepath.Join(other, "c.mp4"), found[1].Path)
	assert.Equal(t, filepath.Join(other, "d.mp4"), found[2].Path)
	assert.Equal(t, filepath.Join(root, "a.mp4"), found[3].Path)
}

func TestDiscoverSkipsMissingLocation(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.mp4"), 1)

	found, err := NewDiscoverer(nil, 0, nil).Discover(context.Background(),
		[]string{filepath.Join(root, "missing"), root})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, int64(1), found[0].Size)
}

func TestDiscoverCancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.mp4"), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDiscoverer(nil, 0, nil).Discover(ctx, []string{root})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDiscoverDropsLocationThatFailsToList(t *testing.T) {
	root := t.TempDir()
	broken := filepath.Join(root, "broken")
	healthy := filepath.Join(root, "healthy")
	writeFile(t, filepath.Join(broken, "a.mp4"), 1)
	writeFile(t, filepath.Join(broken, "sub", "b.mp4"), 1)
	writeFile(t, filepath.Join(healthy, "c.mp4"), 1)

	var logs bytes.Buffer
	d := NewDiscoverer(nil, 0, logging.NewWriter(&logs, "debug"))
	brokenSub := filepath.Join(broken, "sub")
	d.walkDir = func(dir string, fn fs.WalkDirFunc) error {
		return filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
			if path == brokenSub && err == nil {
				return fn(path, entry, syscall.EIO)
			}
			return fn(path, entry, err)
		})
	}

	found, err := d.Discover(context.Background(), []string{broken, healthy})
	require.NoError(t, err)
	require.Len(t, found, 1, "partial listing of the failed location is discarded")
	assert.Equal(t, filepath.Join(healthy, "c.mp4"), found[0].Path)
	assert.Contains(t, logs.String(), "failed to list watch location")
	assert.Contains(t, logs.String(), broken)
}

func TestDiscoverFollowsFileSymlinks(t *testing.T) {
	root := t.TempDir()
	watch := filepath.Join(root, "watch")
	elsewhere := filepath.Join(root, "elsewhere")
	writeFile(t, filepath.Join(elsewhere, "real.mp4"), 20)
	writeFile(t, filepath.Join(elsewhere, "dir", "inside.mp4"), 20)
	writeFile(t, filepath.Join(watch, "plain.mp4"), 20)
	require.NoError(t, os.Symlink(filepath.Join(elsewhere, "real.mp4"), filepath.Join(watch, "link.mp4")))
	require.NoError(t, os.Symlink(filepath.Join(root, "gone.mp4"), filepath.Join(watch, "dangling.mp4")))
	require.NoError(t, os.Symlink(filepath.Join(elsewhere, "dir"), filepath.Join(watch, "linked-dir")))

	found, err := NewDiscoverer(nil, 10, nil).Discover(context.Background(), []string{watch})
	require.NoError(t, err)

	var names []string
	for _, c := range found {
		names = append(names, filepath.Base(c.Path))
		assert.Equal(t, int64(20), c.Size)
	}
	assert.ElementsMatch(t, []string{"plain.mp4", "link.mp4"}, names)
}

type sizeClassifier struct {
	ExtensionClassifier
	sizes map[string]int64
}

func (c sizeClassifier) FileLength(path string) (int64, error) {
	if n, ok := c.sizes[filepath.Base(path)]; ok {
		return n, nil
	}
	return 0, fs.ErrPermission
}

func TestDiscoverUsesClassifier(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "big.mp4"), 1)
	writeFile(t, filepath.Join(root, "broken.mp4"), 1)

	c := sizeClassifier{sizes: map[string]int64{"big.mp4": 5 << 30}}
	found, err := NewDiscoverer(c, 1<<30, nil).Discover(context.Background(), []string{root})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, int64(5<<30), found[0].Size)
}

func TestFilterWatchLocations(t *testing.T) {
	log := logging.Nop().Named("test")
	watch := []string{"/data/downloads", "/media/jav/incoming", "/media/jav", "/media/java"}
	managed := []string{"/media/jav", " "}

	got := FilterWatchLocations(watch, managed, log)
	assert.Equal(t, []string{"/data/downloads", "/media/java"}, got)
	assert.Equal(t, watch, FilterWatchLocations(watch, nil, log))
}
