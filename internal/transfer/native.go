package transfer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"
)

// NativeTransferer renames within a filesystem and streams a copy otherwise.
type NativeTransferer struct {
	bufferSize int
}

func NewNativeTransferer(bufferSize int) *NativeTransferer {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &NativeTransferer{bufferSize: bufferSize}
}

func (n *NativeTransferer) Name() string {
	return "native"
}

func (n *NativeTransferer) CanResume() bool {
	return false
}

func (n *NativeTransferer) Move(ctx context.Context, src, dst string, opts TransferOptions) (*TransferResult, error) {
	result := &TransferResult{Attempts: 1}
	startTime := time.Now()

	srcInfo, err := n.prepare(src, dst, opts, result)
	if err != nil {
		return result, err
	}
	if err := ctx.Err(); err != nil {
		result.Error = err
		return result, err
	}

	err = os.Rename(src, dst)
	if err == nil {
		result.Success = true
		result.Renamed = true
		result.SourceRemoved = true
		result.BytesCopied = srcInfo.Size()
		result.Duration = time.Since(startTime)
		if err := ApplyFileOwnership(dst, opts); err != nil {
			result.Error = err
			return result, err
		}
		return result, nil
	}
	if !isCrossDevice(err) {
		result.Error = fmt.Errorf("rename %s: %w", src, err)
		return result, result.Error
	}

	result, err = n.Copy(ctx, src, dst, opts)
	if err != nil {
		return result, err
	}

	if err := RemoveWithTimeout(src, 30*time.Second); err != nil {
		result.SourceRemoved = false
		return result, nil
	}

	result.SourceRemoved = true
	return result, nil
}

func (n *NativeTransferer) Copy(ctx context.Context, src, dst string, opts TransferOptions) (*TransferResult, error) {
	result := &TransferResult{}
	startTime := time.Now()

	srcInfo, err := n.prepare(src, dst, opts, result)
	if err != nil {
		return result, err
	}

	if err := CheckDiskHealthForTransfer(src, dst, 5*time.Second, result.BytesTotal); err != nil {
		result.Error = fmt.Errorf("%w: %v", ErrDiskUnhealthy, err)
		return result, result.Error
	}

	err = retry(ctx, opts, result, func() error {
		bytesCopied, err := n.copyFile(ctx, src, dst, srcInfo, opts)
		result.BytesCopied = bytesCopied
		if err != nil && opts.DeletePartial {
			os.Remove(dst)
		}
		return err
	})
	result.Duration = time.Since(startTime)
	if err != nil {
		result.Error = err
		return result, err
	}

	if opts.Checksum {
		sum, err := verifyChecksum(src, dst)
		if err != nil {
			result.Error = err
			return result, err
		}
		result.Checksum = sum
	}

	result.Success = true
	return result, nil
}

func (n *NativeTransferer) prepare(src, dst string, opts TransferOptions, result *TransferResult) (os.FileInfo, error) {
	srcInfo, err := StatWithTimeout(src, 10*time.Second)
	if err != nil {
		result.Error = fmt.Errorf("%w: %v", ErrSourceNotFound, err)
		return nil, result.Error
	}
	if !srcInfo.Mode().IsRegular() {
		result.Error = fmt.Errorf("%w: %s is not a regular file", ErrSourceNotFound, src)
		return nil, result.Error
	}
	result.BytesTotal = srcInfo.Size()

	if _, err := EnsureDir(filepath.Dir(dst), opts); err != nil {
		result.Error = err
		return nil, result.Error
	}
	return srcInfo, nil
}

func (n *NativeTransferer) copyFile(ctx context.Context, src, dst string, srcInfo os.FileInfo, opts TransferOptions) (int64, error) {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Minute
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srcFile, err := OpenWithTimeout(src, os.O_RDONLY, 0, 10*time.Second)
	if err != nil {
		return 0, fmt.Errorf("failed to open source: %w", err)
	}
	defer srcFile.Close()

	dstFile, err := OpenWithTimeout(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, srcInfo.Mode().Perm(), 10*time.Second)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDestinationNotWritable, err)
	}
	defer dstFile.Close()

	var bytesCopied int64
	var lastProgress atomic.Int64
	var stalled atomic.Bool
	lastProgress.Store(time.Now().UnixNano())

	// stall watchdog
	go func() {
		ticker := time.NewTicker(timeout / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if time.Since(time.Unix(0, lastProgress.Load())) > timeout {
					stalled.Store(true)
					cancel()
					return
				}
			}
		}
	}()

	buf := make([]byte, n.bufferSize)
	total := srcInfo.Size()

	for {
		if err := ctx.Err(); err != nil {
			if stalled.Load() {
				return bytesCopied, fmt.Errorf("%w: no progress for %s", ErrTimeout, timeout)
			}
			return bytesCopied, err
		}

		nr, readErr := srcFile.Read(buf)
		if nr > 0 {
			nw, writeErr := dstFile.Write(buf[:nr])
			if nw > 0 {
				bytesCopied += int64(nw)
				lastProgress.Store(time.Now().UnixNano())
				if opts.Progress != nil {
					opts.Progress(bytesCopied, total)
				}
			}
			if writeErr != nil {
				return bytesCopied, fmt.Errorf("write error: %w", writeErr)
			}
			if nr != nw {
				return bytesCopied, fmt.Errorf("short write: %d != %d", nr, nw)
			}
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return bytesCopied, fmt.Errorf("read error: %w", readErr)
		}
	}

	if err := dstFile.Sync(); err != nil {
		return bytesCopied, fmt.Errorf("sync error: %w", err)
	}

	if opts.PreserveAttrs {
		os.Chmod(dst, srcInfo.Mode().Perm())
		os.Chtimes(dst, time.Now(), srcInfo.ModTime())
	}

	if err := ApplyFileOwnership(dst, opts); err != nil {
		return bytesCopied, fmt.Errorf("permission error: %w", err)
	}

	return bytesCopied, nil
}

func isCrossDevice(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}

func verifyChecksum(src, dst string) (string, error) {
	want, err := fileSHA256(src)
	if err != nil {
		return "", err
	}
	got, err := fileSHA256(dst)
	if err != nil {
		return "", err
	}
	if want != got {
		return "", fmt.Errorf("%w: %s", ErrChecksumMismatch, dst)
	}
	return got, nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
