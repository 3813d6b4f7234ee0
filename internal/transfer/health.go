package transfer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

type DiskHealth struct {
	Path       string
	Accessible bool
	Writable   bool
	SpaceFree  int64
	SpaceTotal int64
	Error      error
}

func (h *DiskHealth) IsHealthy() bool {
	return h.Accessible && h.Writable && h.Error == nil
}

// CheckDiskHealth stats, statfs's and access-checks a directory, giving up
// after timeout so a hung mount is reported instead of blocking the run.
func CheckDiskHealth(path string, timeout time.Duration) (*DiskHealth, error) {
	health := &DiskHealth{Path: path}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)

		info, err := os.Stat(path)
		if err != nil {
			health.Error = fmt.Errorf("stat failed: %w", err)
			return
		}
		if !info.IsDir() {
			health.Error = fmt.Errorf("%s is not a directory", path)
			return
		}
		health.Accessible = true

		var st unix.Statfs_t
		if err := unix.Statfs(path, &st); err != nil {
			health.Error = fmt.Errorf("statfs failed: %w", err)
			return
		}
		health.SpaceFree = int64(st.Bavail) * int64(st.Bsize)
		health.SpaceTotal = int64(st.Blocks) * int64(st.Bsize)

		health.Writable = unix.Access(path, unix.W_OK) == nil
		if !health.Writable {
			health.Error = fmt.Errorf("%s is not writable", path)
		}
	}()

	select {
	case <-done:
		return health, health.Error
	case <-ctx.Done():
		return &DiskHealth{Path: path, Error: fmt.Errorf("health check timed out after %s (possible I/O hang)", timeout)}, ctx.Err()
	}
}

// CheckDiskHealthForTransfer verifies the source is reachable and the
// destination directory is writable with room for requiredSpace bytes.
func CheckDiskHealthForTransfer(src, dst string, timeout time.Duration, requiredSpace int64) error {
	srcHealth, err := CheckDiskHealth(filepath.Dir(src), timeout)
	if !srcHealth.Accessible {
		return fmt.Errorf("source disk unhealthy: %v", firstErr(srcHealth.Error, err))
	}

	dstDir := filepath.Dir(dst)
	dstHealth, err := CheckDiskHealth(dstDir, timeout)
	if err != nil || !dstHealth.IsHealthy() {
		return fmt.Errorf("destination disk not healthy: %s (error: %v)", dstDir, firstErr(dstHealth.Error, err))
	}

	if requiredSpace > 0 && dstHealth.SpaceFree < requiredSpace {
		return fmt.Errorf("insufficient space: need %d bytes, have %d bytes",
			requiredSpace, dstHealth.SpaceFree)
	}

	return nil
}

func firstErr(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

func StatWithTimeout(path string, timeout time.Duration) (os.FileInfo, error) {
	type result struct {
		info os.FileInfo
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		info, err := os.Stat(path)
		ch <- result{info: info, err: err}
	}()

	select {
	case res := <-ch:
		return res.info, res.err
	case <-time.After(timeout):
		return nil, fmt.Errorf("stat timed out after %s for path: %s", timeout, path)
	}
}

func OpenWithTimeout(path string, flag int, perm os.FileMode, timeout time.Duration) (*os.File, error) {
	type result struct {
		file *os.File
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		f, err := os.OpenFile(path, flag, perm)
		ch <- result{file: f, err: err}
	}()

	select {
	case res := <-ch:
		return res.file, res.err
	case <-time.After(timeout):
		return nil, fmt.Errorf("open timed out after %s for path: %s", timeout, path)
	}
}

func RemoveWithTimeout(path string, timeout time.Duration) error {
	ch := make(chan error, 1)

	go func() {
		ch <- os.Remove(path)
	}()

	select {
	case err := <-ch:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("remove timed out after %s for path: %s", timeout, path)
	}
}
