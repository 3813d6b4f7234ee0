package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Nomadcxx/javorganize/internal/logging"
)

// FallbackTransferer tries multiple backends in order until one succeeds.
type FallbackTransferer struct {
	backends []Transferer
	log      *logging.Component
}

// NewFallbackTransferer creates a transferer that tries backends in order.
// If the first backend fails, it tries the next, and so on.
func NewFallbackTransferer(backends ...Transferer) *FallbackTransferer {
	return &FallbackTransferer{backends: backends, log: logging.Nop().Named("transfer")}
}

// WithLogger reports backend fallbacks to log.
func (f *FallbackTransferer) WithLogger(log *logging.Logger) *FallbackTransferer {
	if log != nil {
		f.log = log.Named("transfer")
	}
	return f
}

func (f *FallbackTransferer) Name() string {
	names := make([]string, len(f.backends))
	for i, b := range f.backends {
		names[i] = b.Name()
	}
	return "fallback(" + strings.Join(names, ",") + ")"
}

func (f *FallbackTransferer) CanResume() bool {
	for _, b := range f.backends {
		if b.CanResume() {
			return true
		}
	}
	return false
}

func (f *FallbackTransferer) Move(ctx context.Context, src, dst string, opts TransferOptions) (*TransferResult, error) {
	return f.tryAll(ctx, src, dst, opts, true)
}

func (f *FallbackTransferer) Copy(ctx context.Context, src, dst string, opts TransferOptions) (*TransferResult, error) {
	return f.tryAll(ctx, src, dst, opts, false)
}

func (f *FallbackTransferer) tryAll(ctx context.Context, src, dst string, opts TransferOptions, isMove bool) (*TransferResult, error) {
	var lastResult *TransferResult
	var errs []error

	for i, backend := range f.backends {
		var result *TransferResult
		var err error

		if isMove {
			result, err = backend.Move(ctx, src, dst, opts)
		} else {
			result, err = backend.Copy(ctx, src, dst, opts)
		}

		if err == nil && result != nil && result.Success {
			return result, nil
		}
		if err == nil {
			err = errors.New("transfer reported failure")
		}

		lastResult = result
		errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))

		// a missing source or a cancelled run fails every backend the same way
		if errors.Is(err, ErrSourceNotFound) || ctx.Err() != nil {
			break
		}

		if i < len(f.backends)-1 {
			f.log.Warn("backend failed, trying next",
				logging.F("backend", backend.Name()),
				logging.F("next", f.backends[i+1].Name()),
				logging.F("source", src),
				logging.F("error", err.Error()))
		}
	}

	joined := errors.Join(errs...)
	if joined == nil {
		joined = errors.New("no transfer backends configured")
	}
	if lastResult == nil {
		lastResult = &TransferResult{}
	}
	lastResult.Success = false
	lastResult.Error = fmt.Errorf("all backends failed: %w", joined)
	return lastResult, lastResult.Error
}
