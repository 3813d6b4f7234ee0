//go:build linux

package organize

import (
	"io/fs"
	"time"

	"golang.org/x/sys/unix"
)

// creationTime returns the birth time when the filesystem records one,
// falling back to the modification time.
func creationTime(path string, info fs.FileInfo) time.Time {
	var stx unix.Statx_t
	err := unix.Statx(unix.AT_FDCWD, path, 0, unix.STATX_BTIME, &stx)
	if err == nil && stx.Mask&unix.STATX_BTIME != 0 {
		return time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec))
	}
	return info.ModTime()
}
