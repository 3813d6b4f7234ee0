// Package organize moves scraped JAV releases from watch folders into a
// template-named library, together with their subtitles, artwork and .nfo
// files, then clears what is left behind.
package organize

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Nomadcxx/javorganize/internal/activity"
	"github.com/Nomadcxx/javorganize/internal/logging"
	"github.com/Nomadcxx/javorganize/internal/metadata"
	"github.com/Nomadcxx/javorganize/internal/transfer"
)

// Engine runs one organize pass at a time. It is not safe for concurrent Runs.
type Engine struct {
	opts         Options
	catalog      Catalog
	formatter    Formatter
	cache        MetadataCache
	classifier   VideoClassifier
	transferer   transfer.Transferer
	transferOpts transfer.TransferOptions
	journal      Journal
	logger       *logging.Logger
	log          *logging.Component
	progress     ProgressFunc
	runID        string
	now          func() time.Time
}

type EngineOption func(*Engine)

func NewEngine(opts Options, catalog Catalog, formatter Formatter, options ...EngineOption) *Engine {
	e := &Engine{
		opts:         opts,
		catalog:      catalog,
		formatter:    formatter,
		classifier:   ExtensionClassifier{},
		transferOpts: transfer.DefaultOptions(),
		logger:       logging.Nop(),
		now:          time.Now,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.transferer == nil {
		e.transferer = transfer.MustNew(transfer.BackendAuto)
	}
	if e.runID == "" {
		e.runID = uuid.NewString()
	}
	e.log = e.logger.Named("organize")
	return e
}

// WithDryRun resolves plans without touching anything
func WithDryRun(dryRun bool) EngineOption {
	return func(e *Engine) {
		e.opts.DryRun = dryRun
	}
}

// WithMetadataCache backfills incomplete records
func WithMetadataCache(c MetadataCache) EngineOption {
	return func(e *Engine) {
		e.cache = c
	}
}

func WithClassifier(c VideoClassifier) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.classifier = c
		}
	}
}

// WithTransferer sets the backend and its options
func WithTransferer(t transfer.Transferer, opts transfer.TransferOptions) EngineOption {
	return func(e *Engine) {
		e.transferer = t
		e.transferOpts = opts
	}
}

func WithLogger(l *logging.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithJournal records every outcome and cleanup deletion
func WithJournal(j Journal) EngineOption {
	return func(e *Engine) {
		e.journal = j
	}
}

func WithProgress(fn ProgressFunc) EngineOption {
	return func(e *Engine) {
		e.progress = fn
	}
}

// WithRunID overrides the generated run identifier
func WithRunID(id string) EngineOption {
	return func(e *Engine) {
		e.runID = id
	}
}

// RunID identifies the run in logs, the journal and the history table.
func (e *Engine) RunID() string {
	return e.runID
}

// Run organizes every eligible file and then cleans up. Only an invalid
// configuration or a cancelled context produce an error; a cancelled run
// still returns the partial report.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	report := &Report{RunID: e.runID, StartedAt: e.now(), DryRun: e.opts.DryRun}
	progress := &progressTracker{fn: e.progress}
	progress.report(0)

	finish := func(err error) (*Report, error) {
		report.FinishedAt = e.now()
		if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			report.Cancelled = true
			e.log.Warn("run cancelled", logging.F("run", e.runID), logging.F("processed", len(report.Outcomes)))
		}
		return report, err
	}

	if err := e.opts.Validate(); err != nil {
		e.log.Error("cannot start organize run", err)
		return finish(err)
	}

	e.log.Info("running", logging.F("run", e.runID), logging.F("dry_run", e.opts.DryRun))

	watch := FilterWatchLocations(e.opts.watchLocations(), e.opts.ManagedLibraryFolders, e.log)
	candidates, err := NewDiscoverer(e.classifier, e.opts.MinFileSize, e.logger).Discover(ctx, watch)
	if err != nil {
		return finish(err)
	}
	report.Found = len(candidates)
	e.log.Info("files found", logging.F("count", len(candidates)))

	if len(candidates) == 0 {
		progress.report(1)
		return finish(nil)
	}

	relocator := NewRelocator(e.transferer, e.transferOpts, e.opts.CopyOriginal, e.opts.OverwriteExisting, e.logger)
	processed := NewProcessedFolderSet()

	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			report.ProcessedFolders = processed.List()
			return finish(err)
		}
		progress.report(float64(i) / float64(len(candidates)))

		out := e.organizeFile(ctx, relocator, c)
		report.Outcomes = append(report.Outcomes, out)
		e.record(out)

		if out.PrimaryRelocated {
			processed.Add(filepath.Dir(c.Path))
		}
	}
	report.ProcessedFolders = processed.List()
	if err := ctx.Err(); err != nil {
		return finish(err)
	}
	progress.report(0.99)

	if !e.opts.DryRun {
		if err := e.cleanup(ctx, report, watch); err != nil {
			return finish(err)
		}
	}

	progress.report(1)
	e.log.Info("run complete",
		logging.F("run", e.runID),
		logging.F("relocated", report.Relocated()),
		logging.F("skipped", report.Count(StatusSkipped)),
		logging.F("failed", report.Count(StatusFailed)),
		logging.F("leftovers_deleted", report.LeftoversDeleted),
		logging.F("folders_removed", report.FoldersRemoved))
	return finish(nil)
}

func (e *Engine) organizeFile(ctx context.Context, relocator *Relocator, c Candidate) (out Outcome) {
	start := e.now()
	out = Outcome{Source: c.Path}
	defer func() { out.Duration = e.now().Sub(start) }()

	item, err := e.catalog.FindItemByPath(c.Path)
	if err != nil {
		e.log.Error("catalog lookup failed", err, logging.F("path", c.Path))
		return failed(out, "catalog lookup failed", err)
	}
	if item == nil {
		e.log.Error("the movie does not exist in the catalog", ErrNoCatalogItem, logging.F("path", c.Path))
		return skipped(out, "not in catalog", ErrNoCatalogItem)
	}
	if item.Video == nil {
		e.log.Error("the movie has no metadata", ErrNoMetadata, logging.F("path", c.Path))
		return skipped(out, "no metadata", ErrNoMetadata)
	}

	video := e.backfill(item.Video)
	out.Num = video.Num

	dest, err := Resolve(e.formatter, video, item.Genres, e.opts, c.Path)
	if err != nil {
		e.log.Error("cannot resolve destination", err, logging.F("path", c.Path))
		return failed(out, "cannot resolve destination", err)
	}
	out.Target = dest.Path

	plan, err := CollectSiblings(c.Path, dest)
	if err != nil {
		e.log.Error("cannot collect sidecar files", err, logging.F("path", c.Path))
		return failed(out, "cannot collect sidecar files", err)
	}
	out.Plan = &plan

	if e.opts.DryRun {
		if !e.opts.OverwriteExisting && exists(dest.Path) {
			return skipped(out, "destination exists", ErrDestinationExists)
		}
		out.Status = StatusPlanned
		return out
	}

	rel, err := relocator.Execute(ctx, plan)
	out.Moved = rel.Moved
	out.Skipped = rel.Skipped
	out.Bytes = rel.Bytes
	out.PrimaryRelocated = rel.PrimaryRelocated

	if errors.Is(err, ErrDestinationExists) {
		e.log.Error("destination exists", err, logging.F("path", c.Path))
		return skipped(out, "destination exists", err)
	}

	if rel.PrimaryRelocated {
		if uerr := e.catalog.UpdateItemPath(item, dest.Path); uerr != nil {
			e.log.Error("failed to update catalog path", uerr, logging.F("path", dest.Path))
			if err == nil {
				err = fmt.Errorf("update catalog: %w", uerr)
			}
		}
	}

	if err != nil {
		e.log.Error("relocation failed", err, logging.F("path", c.Path))
		return failed(out, "relocation failed", err)
	}
	out.Status = StatusSuccess
	return out
}

func (e *Engine) backfill(v *metadata.Video) *metadata.Video {
	if e.cache == nil || !v.Incomplete() {
		return v
	}
	cached, err := e.cache.LoadCachedFields(v)
	if err != nil {
		e.log.Warn("metadata cache lookup failed", logging.F("num", v.Num), logging.F("error", err.Error()))
		return v
	}
	if cached == nil {
		return v
	}
	return v.Backfill(cached)
}

func (e *Engine) cleanup(ctx context.Context, report *Report, watch []string) error {
	exts := e.opts.NormalizedLeftoverExtensions()
	if len(exts) == 0 && !e.opts.DeleteEmptyFolders {
		return nil
	}

	protected := append(e.opts.watchLocations(), e.opts.targetRoot())
	cleaner := NewCleaner(protected, e.logger)
	cleaner.OnRemove = func(path string, isDir bool) {
		action := activity.ActionDelete
		if isDir {
			action = activity.ActionPruneDir
		}
		e.journalEntry(activity.Entry{Action: action, Source: path, Success: true})
	}

	targets := report.ProcessedFolders
	if e.opts.ExtendedClean {
		targets = append(append([]string(nil), targets...), watch...)
	}

	for _, dir := range targets {
		if len(exts) > 0 {
			n, err := cleaner.DeleteLeftovers(ctx, dir, exts)
			report.LeftoversDeleted += n
			if err != nil {
				return err
			}
		}
		if e.opts.DeleteEmptyFolders {
			n, err := cleaner.PruneEmpty(ctx, dir)
			report.FoldersRemoved += n
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) record(out Outcome) {
	entry := activity.Entry{
		Source:     out.Source,
		Target:     out.Target,
		Num:        out.Num,
		Bytes:      out.Bytes,
		DurationMs: out.Duration.Milliseconds(),
		Reason:     out.Reason,
	}
	if out.Plan != nil {
		entry.Siblings = len(out.Plan.Siblings)
	}
	if out.Err != nil {
		entry.Error = out.Err.Error()
	}

	switch out.Status {
	case StatusSuccess:
		entry.Action = activity.ActionMove
		if e.opts.CopyOriginal {
			entry.Action = activity.ActionCopy
		}
		entry.Success = true
	case StatusPlanned:
		entry.Action = activity.ActionPlan
		entry.Success = true
	case StatusSkipped:
		entry.Action = activity.ActionSkip
	default:
		entry.Action = activity.ActionFail
	}
	e.journalEntry(entry)
}

func (e *Engine) journalEntry(entry activity.Entry) {
	if e.journal == nil {
		return
	}
	entry.RunID = e.runID
	if err := e.journal.Log(entry); err != nil {
		e.log.Warn("failed to write activity journal", logging.F("error", err.Error()))
	}
}

func skipped(out Outcome, reason string, err error) Outcome {
	out.Status = StatusSkipped
	out.Reason = reason
	out.Err = err
	return out
}

func failed(out Outcome, reason string, err error) Outcome {
	out.Status = StatusFailed
	out.Reason = reason
	out.Err = err
	return out
}
