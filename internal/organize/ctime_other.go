//go:build !linux

package organize

import (
	"io/fs"
	"time"
)

func creationTime(_ string, info fs.FileInfo) time.Time {
	return info.ModTime()
}
