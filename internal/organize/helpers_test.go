package organize

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Nomadcxx/javorganize/internal/activity"
	"github.com/Nomadcxx/javorganize/internal/metadata"
	"github.com/Nomadcxx/javorganize/internal/transfer"
)

// writeFile creates path with size bytes of content.
func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", size)), 0644))
}

func writeText(t *testing.T, path, text string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
}

func readText(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func testTransferOptions() transfer.TransferOptions {
	opts := transfer.DefaultOptions()
	opts.RetryAttempts = 0
	opts.Timeout = 30 * time.Second
	return opts
}

// fakeCatalog is an in-memory Catalog keyed by path.
type fakeCatalog struct {
	mu      sync.Mutex
	items   map[string]*metadata.Item
	updates map[string]string
	findErr error
	updErr  error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{items: map[string]*metadata.Item{}, updates: map[string]string{}}
}

func (c *fakeCatalog) add(path string, genres []string, v *metadata.Video) *metadata.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	item := &metadata.Item{ID: int64(len(c.items) + 1), Path: path, Genres: genres, Video: v}
	c.items[path] = item
	return item
}

func (c *fakeCatalog) FindItemByPath(path string) (*metadata.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.findErr != nil {
		return nil, c.findErr
	}
	return c.items[path], nil
}

func (c *fakeCatalog) UpdateItemPath(item *metadata.Item, newPath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.updErr != nil {
		return c.updErr
	}
	delete(c.items, item.Path)
	c.updates[item.Path] = newPath
	item.Path = newPath
	c.items[newPath] = item
	return nil
}

type fakeCache map[string]*metadata.Video

func (c fakeCache) LoadCachedFields(v *metadata.Video) (*metadata.Video, error) {
	return c[v.Key()], nil
}

// stubFormatter returns a fixed rendering per pattern.
type stubFormatter map[string]string

func (f stubFormatter) Format(pattern string, _ *metadata.Video, _ string, _ bool) string {
	return f[pattern]
}

// memJournal collects journal entries.
type memJournal struct {
	entries []activity.Entry
}

func (j *memJournal) Log(e activity.Entry) error {
	j.entries = append(j.entries, e)
	return nil
}

func (j *memJournal) actions() []activity.Action {
	var out []activity.Action
	for _, e := range j.entries {
		out = append(out, e.Action)
	}
	return out
}

// failingTransferer fails for sources whose base name is in failOn and
// delegates everything else.
type failingTransferer struct {
	transfer.Transferer
	failOn map[string]bool
}

var errInjected = errors.New("injected transfer failure")

func (f *failingTransferer) Move(ctx context.Context, src, dst string, opts transfer.TransferOptions) (*transfer.TransferResult, error) {
	if f.failOn[filepath.Base(src)] {
		return &transfer.TransferResult{}, errInjected
	}
	return f.Transferer.Move(ctx, src, dst, opts)
}

func (f *failingTransferer) Copy(ctx context.Context, src, dst string, opts transfer.TransferOptions) (*transfer.TransferResult, error) {
	if f.failOn[filepath.Base(src)] {
		return &transfer.TransferResult{}, errInjected
	}
	return f.Transferer.Copy(ctx, src, dst, opts)
}
