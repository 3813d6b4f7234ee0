// Package transfer moves and copies media files with stall timeouts, retries,
// optional checksum verification and ownership/mode application.
//
// Moves on the same filesystem are a plain rename. Across filesystems the
// file is copied, verified and only then is the source removed, so a failing
// disk never loses the only copy.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Common errors returned by transfer operations
var (
	// ErrTimeout is returned when a transfer times out due to no progress
	ErrTimeout = errors.New("transfer timed out: no progress")

	// ErrChecksumMismatch is returned when post-transfer checksum verification fails
	ErrChecksumMismatch = errors.New("checksum mismatch after transfer")

	// ErrSourceNotFound is returned when the source file doesn't exist
	ErrSourceNotFound = errors.New("source file not found")

	// ErrDestinationNotWritable is returned when the destination is not writable
	ErrDestinationNotWritable = errors.New("destination not writable")

	// ErrDiskUnhealthy is returned when the pre-flight space or access check fails
	ErrDiskUnhealthy = errors.New("disk health check failed")

	// ErrRetryExhausted is returned when all retry attempts have been exhausted
	ErrRetryExhausted = errors.New("all retry attempts exhausted")
)

// TransferOptions configures the behavior of a file transfer operation.
type TransferOptions struct {
	// Timeout specifies how long to wait without progress before aborting.
	// A value of 0 means 30 minutes.
	Timeout time.Duration

	// Checksum enables post-transfer checksum verification of copies.
	Checksum bool

	// Progress is called periodically with bytes transferred so far and the
	// total, which may be -1 if unknown.
	Progress func(current, total int64)

	// RetryAttempts specifies how many times to retry on transient failures.
	RetryAttempts int

	// RetryDelay specifies how long to wait between retry attempts.
	RetryDelay time.Duration

	// PreserveAttrs preserves source mode and times on copies.
	PreserveAttrs bool

	// DeletePartial removes partial files if a copy attempt fails.
	DeletePartial bool

	// TargetUID and TargetGID set ownership of transferred files; -1 keeps it.
	TargetUID int
	TargetGID int

	// FileMode sets the permissions for transferred files; 0 keeps the source mode.
	FileMode os.FileMode

	// DirMode sets the permissions for created directories; 0 means 0755.
	DirMode os.FileMode
}

// DefaultOptions returns sensible default transfer options.
func DefaultOptions() TransferOptions {
	return TransferOptions{
		Timeout:       5 * time.Minute,
		RetryAttempts: 3,
		RetryDelay:    5 * time.Second,
		PreserveAttrs: true,
		DeletePartial: true,
		TargetUID:     -1,
		TargetGID:     -1,
	}
}

func (o TransferOptions) dirMode() os.FileMode {
	if o.DirMode == 0 {
		return 0755
	}
	return o.DirMode
}

// TransferResult contains details about a completed transfer operation.
type TransferResult struct {
	Success       bool
	BytesTotal    int64
	BytesCopied   int64
	Duration      time.Duration
	Checksum      string
	SourceRemoved bool
	// Renamed is set when a move completed as a same-filesystem rename.
	Renamed  bool
	Attempts int
	Error    error
}

// Transferer is the interface for file transfer implementations.
// Implementations must be safe for concurrent use.
type Transferer interface {
	// Move transfers src to dst, then removes the source. The source is only
	// removed after the copy succeeded.
	Move(ctx context.Context, src, dst string, opts TransferOptions) (*TransferResult, error)

	// Copy transfers src to dst without removing the source.
	Copy(ctx context.Context, src, dst string, opts TransferOptions) (*TransferResult, error)

	// CanResume returns true if interrupted transfers can be resumed.
	CanResume() bool

	// Name returns a human-readable name for this transferer implementation.
	Name() string
}

type Backend int

const (
	BackendAuto Backend = iota
	BackendRsync
	BackendNative
)

func (b Backend) String() string {
	switch b {
	case BackendAuto:
		return "auto"
	case BackendRsync:
		return "rsync"
	case BackendNative:
		return "native"
	default:
		return "unknown"
	}
}

const defaultBufferSize = 32 * 1024 * 1024

// New returns the transferer for backend. Auto prefers the native backend for
// its rename fast path and falls back to rsync when it is installed.
func New(backend Backend) (Transferer, error) {
	switch backend {
	case BackendRsync:
		rsyncPath, err := exec.LookPath("rsync")
		if err != nil {
			return nil, fmt.Errorf("rsync not found: %w", err)
		}
		return NewRsyncTransferer(rsyncPath), nil

	case BackendNative:
		return NewNativeTransferer(defaultBufferSize), nil

	case BackendAuto:
		fallthrough
	default:
		native := NewNativeTransferer(defaultBufferSize)
		if rsyncPath, err := exec.LookPath("rsync"); err == nil {
			return NewFallbackTransferer(native, NewRsyncTransferer(rsyncPath)), nil
		}
		return native, nil
	}
}

func MustNew(backend Backend) Transferer {
	t, err := New(backend)
	if err != nil {
		panic(fmt.Sprintf("transfer.MustNew: %v", err))
	}
	return t
}

func ParseBackend(s string) Backend {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rsync":
		return BackendRsync
	case "native":
		return BackendNative
	default:
		return BackendAuto
	}
}

// retry runs fn up to RetryAttempts+1 times, sleeping RetryDelay between
// attempts. Context cancellation stops it immediately.
func retry(ctx context.Context, opts TransferOptions, result *TransferResult, fn func() error) error {
	maxAttempts := opts.RetryAttempts + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(opts.RetryDelay):
			}
		}
	}
	if maxAttempts == 1 {
		return lastErr
	}
	return fmt.Errorf("%w: %w", ErrRetryExhausted, lastErr)
}
