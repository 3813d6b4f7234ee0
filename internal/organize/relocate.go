package organize

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Nomadcxx/javorganize/internal/logging"
	"github.com/Nomadcxx/javorganize/internal/transfer"
)

// ErrDestinationExists is returned when the primary destination exists and
// overwriting is disabled. Nothing is moved in that case.
var ErrDestinationExists = errors.New("destination already exists")

const nfoExt = ".nfo"

// Relocation is what Execute did.
type Relocation struct {
	PrimaryRelocated bool
	Moved            []Move
	Skipped          []Move
	Bytes            int64
	NFORewritten     []string
}

// Relocator executes plans with a transfer backend.
type Relocator struct {
	transferer transfer.Transferer
	opts       transfer.TransferOptions
	copy       bool
	overwrite  bool
	log        *logging.Component
}

func NewRelocator(t transfer.Transferer, opts transfer.TransferOptions, copyOriginal, overwrite bool, log *logging.Logger) *Relocator {
	if log == nil {
		log = logging.Nop()
	}
	return &Relocator{
		transferer: t,
		opts:       opts,
		copy:       copyOriginal,
		overwrite:  overwrite,
		log:        log.Named("relocate"),
	}
}

// Execute moves or copies the primary and then its siblings. A sibling whose
// destination exists is skipped when overwriting is disabled. The first
// transfer error stops the group; completed pairs are not rolled back.
func (r *Relocator) Execute(ctx context.Context, plan Plan) (*Relocation, error) {
	rel := &Relocation{}
	if err := ctx.Err(); err != nil {
		return rel, err
	}

	if !r.overwrite && exists(plan.Primary.To) {
		return rel, fmt.Errorf("%w: %s", ErrDestinationExists, plan.Primary.To)
	}

	created, err := transfer.EnsureDir(plan.TargetDir, r.opts)
	if err != nil {
		return rel, fmt.Errorf("create %s: %w", plan.TargetDir, err)
	}
	for _, dir := range created {
		r.log.Debug("created directory", logging.F("path", dir))
	}

	var runErr error
	for i, m := range plan.Moves() {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		// source already in place; copying onto itself would truncate it
		if samePath(m.From, m.To) {
			rel.Skipped = append(rel.Skipped, m)
			if i == 0 {
				rel.PrimaryRelocated = true
			}
			continue
		}
		if !r.overwrite && exists(m.To) {
			r.log.Info("destination exists, skipping", logging.F("from", m.From), logging.F("to", m.To))
			rel.Skipped = append(rel.Skipped, m)
			continue
		}

		var res *transfer.TransferResult
		var err error
		if r.copy {
			res, err = r.transferer.Copy(ctx, m.From, m.To, r.opts)
		} else {
			res, err = r.transferer.Move(ctx, m.From, m.To, r.opts)
		}
		if err != nil {
			runErr = fmt.Errorf("relocate %s: %w", m.From, err)
			break
		}
		if !r.copy && res != nil && !res.SourceRemoved {
			r.log.Warn("source left behind after copy", logging.F("path", m.From))
		}

		r.log.Info(r.verb(), logging.F("from", m.From), logging.F("to", m.To))
		rel.Moved = append(rel.Moved, m)
		if res != nil {
			rel.Bytes += res.BytesCopied
		}
		if i == 0 {
			rel.PrimaryRelocated = true
		}
	}

	for _, m := range rel.Moved {
		if !strings.EqualFold(filepath.Ext(m.To), nfoExt) {
			continue
		}
		changed, err := rewriteNFO(m.To, plan.SourceDir, plan.TargetDir)
		if err != nil {
			r.log.Warn("failed to rewrite nfo", logging.F("path", m.To), logging.F("error", err.Error()))
			continue
		}
		if changed {
			rel.NFORewritten = append(rel.NFORewritten, m.To)
		}
	}

	return rel, runErr
}

func (r *Relocator) verb() string {
	if r.copy {
		return "copied"
	}
	return "moved"
}

// rewriteNFO replaces every literal occurrence of oldDir in the file with newDir.
func rewriteNFO(path, oldDir, newDir string) (bool, error) {
	if oldDir == newDir {
		return false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	text := string(data)
	if !strings.Contains(text, oldDir) {
		return false, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	text = strings.ReplaceAll(text, oldDir, newDir)
	if err := os.WriteFile(path, []byte(text), info.Mode().Perm()); err != nil {
		return false, err
	}
	return true, nil
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}
