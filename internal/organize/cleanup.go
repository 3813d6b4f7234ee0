package organize

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/Nomadcxx/javorganize/internal/logging"
)

// Cleaner deletes leftover files and prunes empty directories, never
// removing a protected root.
type Cleaner struct {
	protected []string
	log       *logging.Component

	// OnRemove is called after every successful deletion.
	OnRemove func(path string, isDir bool)
}

func NewCleaner(protected []string, log *logging.Logger) *Cleaner {
	if log == nil {
		log = logging.Nop()
	}
	c := &Cleaner{log: log.Named("cleanup")}
	for _, p := range protected {
		if strings.TrimSpace(p) != "" {
			c.protected = append(c.protected, cleanAbs(p))
		}
	}
	return c
}

// IsProtected reports whether dir is one of the protected roots.
func (c *Cleaner) IsProtected(dir string) bool {
	dir = cleanAbs(dir)
	for _, p := range c.protected {
		if strings.EqualFold(dir, p) {
			return true
		}
	}
	return false
}

// DeleteLeftovers removes every file below root whose name ends with one of
// exts (lowercase ".ext" suffixes). Failures are logged and skipped.
func (c *Cleaner) DeleteLeftovers(ctx context.Context, root string, exts []string) (int, error) {
	if len(exts) == 0 {
		return 0, nil
	}

	deleted := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				c.log.Warn("cannot list directory", logging.F("path", path), logging.F("error", err.Error()))
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !matchesExtension(d.Name(), exts) {
			return nil
		}

		if err := os.Remove(path); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				c.log.Error("failed to delete leftover", err, logging.F("path", path))
			}
			return nil
		}
		c.log.Debug("deleted leftover", logging.F("path", path))
		deleted++
		if c.OnRemove != nil {
			c.OnRemove(path, false)
		}
		return nil
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return deleted, ctxErr
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		c.log.Warn("leftover scan stopped", logging.F("root", root), logging.F("error", err.Error()))
	}
	return deleted, nil
}

func matchesExtension(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, e := range exts {
		if strings.HasSuffix(lower, e) {
			return true
		}
	}
	return false
}

// PruneEmpty removes empty directories below and including root, children
// before parents. Only a cancelled context is returned as an error.
func (c *Cleaner) PruneEmpty(ctx context.Context, root string) (int, error) {
	removed := 0
	err := c.prune(ctx, filepath.Clean(root), &removed)
	return removed, err
}

func (c *Cleaner) prune(ctx context.Context, dir string, removed *int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		c.logUnexpected("cannot list directory", dir, err)
		return nil
	}
	for _, e := range entries {
		// symlinked directories are entries, not subtrees
		if !e.IsDir() {
			continue
		}
		if err := c.prune(ctx, filepath.Join(dir, e.Name()), removed); err != nil {
			return err
		}
	}

	// list again: children may be gone now, and others may have appeared
	entries, err = os.ReadDir(dir)
	if err != nil {
		c.logUnexpected("cannot list directory", dir, err)
		return nil
	}
	if len(entries) > 0 || c.IsProtected(dir) {
		return nil
	}

	if err := os.Remove(dir); err != nil {
		c.logUnexpected("failed to remove empty directory", dir, err)
		return nil
	}
	c.log.Debug("removed empty directory", logging.F("path", dir))
	*removed++
	if c.OnRemove != nil {
		c.OnRemove(dir, true)
	}
	return nil
}

func (c *Cleaner) logUnexpected(msg, path string, err error) {
	if isTransientRemoveError(err) {
		return
	}
	c.log.Warn(msg, logging.F("path", path), logging.F("error", err.Error()))
}

// isTransientRemoveError matches errors caused by something else touching the
// tree between listing and removal.
func isTransientRemoveError(err error) bool {
	return errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, fs.ErrPermission) ||
		errors.Is(err, syscall.ENOTEMPTY) ||
		errors.Is(err, syscall.EEXIST) ||
		errors.Is(err, syscall.EBUSY)
}
