package transfer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ApplyFileOwnership sets the configured mode and owner on a relocated file.
// Chown needs root unless the target owner is the current user.
func ApplyFileOwnership(path string, opts TransferOptions) error {
	if opts.FileMode != 0 {
		if err := os.Chmod(path, opts.FileMode); err != nil {
			return fmt.Errorf("chmod %s: %w", path, err)
		}
	}
	return chownTarget(path, opts)
}

// EnsureDir creates dir and any missing parents. Every directory it creates
// gets DirMode (umask does not apply) and the configured owner; existing
// directories are left as they are. The created directories are returned
// outermost first.
func EnsureDir(dir string, opts TransferOptions) ([]string, error) {
	dir = filepath.Clean(dir)

	var missing []string
	for p := dir; ; p = filepath.Dir(p) {
		info, err := os.Stat(p)
		if err == nil {
			if !info.IsDir() {
				return nil, fmt.Errorf("%w: %s is not a directory", ErrDestinationNotWritable, p)
			}
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %v", ErrDestinationNotWritable, err)
		}
		missing = append(missing, p)
		if parent := filepath.Dir(p); parent == p {
			break
		}
	}

	var created []string
	for i := len(missing) - 1; i >= 0; i-- {
		p := missing[i]
		if err := os.Mkdir(p, opts.dirMode()); err != nil && !errors.Is(err, fs.ErrExist) {
			return created, fmt.Errorf("%w: %v", ErrDestinationNotWritable, err)
		}
		created = append(created, p)
		if err := os.Chmod(p, opts.dirMode()); err != nil {
			return created, fmt.Errorf("chmod %s: %w", p, err)
		}
		if err := chownTarget(p, opts); err != nil {
			return created, err
		}
	}
	return created, nil
}

func chownTarget(path string, opts TransferOptions) error {
	if opts.TargetUID < 0 && opts.TargetGID < 0 {
		return nil
	}
	uid, gid := opts.TargetUID, opts.TargetGID
	if uid < 0 {
		uid = -1
	}
	if gid < 0 {
		gid = -1
	}
	if err := os.Chown(path, uid, gid); err != nil {
		if os.Geteuid() != 0 {
			return fmt.Errorf("chown %s (not running as root, uid=%d gid=%d): %w", path, uid, gid, err)
		}
		return fmt.Errorf("chown %s: %w", path, err)
	}
	return nil
}
