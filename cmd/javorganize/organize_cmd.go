package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Nomadcxx/javorganize/internal/activity"
	"github.com/Nomadcxx/javorganize/internal/config"
	"github.com/Nomadcxx/javorganize/internal/database"
	"github.com/Nomadcxx/javorganize/internal/logging"
	"github.com/Nomadcxx/javorganize/internal/naming"
	"github.com/Nomadcxx/javorganize/internal/organize"
	"github.com/Nomadcxx/javorganize/internal/paths"
	"github.com/Nomadcxx/javorganize/internal/transfer"
	"github.com/Nomadcxx/javorganize/internal/ui"
)

func newOrganizeCmd() *cobra.Command {
	var (
		dryRun     bool
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "organize",
		Short: "Move every scraped release from the watch locations into the library",
		Long: `Run one organize pass over [organize].watch_locations.

Each video whose path is in the catalog is renamed by the folder and file
templates and moved, together with its sidecar files, below
[organize].target_location. Leftovers and empty folders are removed afterwards.

Examples:
  javorganize organize
  javorganize organize --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrganize(cmd, dryRun, !noProgress)
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "print the plan without moving anything")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "do not draw the progress line")

	return cmd
}

func runOrganize(cmd *cobra.Command, dryRun, showProgress bool) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	opts, err := organize.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}

	db, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	tr, err := transfer.FromConfig(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create transfer backend: %w", err)
	}

	engineOpts := []organize.EngineOption{
		organize.WithDryRun(dryRun),
		organize.WithMetadataCache(db),
		organize.WithTransferer(tr, transfer.OptionsFromConfig(cfg)),
		organize.WithLogger(logger),
	}

	journal, err := openJournal(cfg, logger)
	if err != nil {
		return err
	}
	if journal != nil {
		defer journal.Close()
		engineOpts = append(engineOpts, organize.WithJournal(journal))
	}

	var bar *ui.ProgressBar
	if showProgress {
		bar = ui.NewProgressBar(out, "organize")
		engineOpts = append(engineOpts, organize.WithProgress(bar.Update))
	}

	engine := organize.NewEngine(opts, db, naming.NewFormatter(), engineOpts...)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.StartRun(engine.RunID(), time.Now(), dryRun); err != nil {
		logger.Warn("history", "failed to record run start", logging.F("error", err.Error()))
	}

	report, runErr := engine.Run(ctx)
	if bar != nil {
		bar.Finish()
	}

	if err := db.FinishRun(runRecord(report, runErr)); err != nil {
		logger.Warn("history", "failed to record run result", logging.F("error", err.Error()))
	}

	printReport(out, report)
	if runErr != nil && errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("organize interrupted: %w", runErr)
	}
	return runErr
}

// openJournal returns nil when the activity journal is disabled.
func openJournal(cfg *config.Config, logger *logging.Logger) (*activity.Logger, error) {
	if !cfg.Activity.Enabled {
		return nil, nil
	}
	dir, err := paths.ActivityDir()
	if err != nil {
		return nil, fmt.Errorf("cannot resolve activity directory: %w", err)
	}
	journal, err := activity.NewLogger(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open activity journal: %w", err)
	}
	if err := journal.PruneOld(cfg.Activity.RetentionDays); err != nil {
		logger.Warn("activity", "failed to prune old journals", logging.F("error", err.Error()))
	}
	return journal, nil
}

func runRecord(report *organize.Report, runErr error) *database.Run {
	finished := report.FinishedAt
	run := &database.Run{
		ID:               report.RunID,
		StartedAt:        report.StartedAt,
		FinishedAt:       &finished,
		DryRun:           report.DryRun,
		Found:            report.Found,
		Relocated:        report.Relocated(),
		Skipped:          report.Count(organize.StatusSkipped),
		Failed:           report.Count(organize.StatusFailed),
		BytesRelocated:   report.BytesRelocated(),
		LeftoversDeleted: report.LeftoversDeleted,
		FoldersRemoved:   report.FoldersRemoved,
		Status:           database.RunCompleted,
	}
	switch {
	case report.Cancelled:
		run.Status = database.RunCancelled
	case runErr != nil:
		run.Status = database.RunFailed
		run.Error = runErr.Error()
	}
	return run
}

func printReport(w io.Writer, report *organize.Report) {
	if report.DryRun {
		ui.Section(w, "Plan")
	} else {
		ui.Section(w, "Result")
	}

	for _, o := range report.Outcomes {
		switch o.Status {
		case organize.StatusPlanned:
			fmt.Fprintf(w, "%s %s\n    -> %s\n", ui.Status(o.Status.String()), o.Source, ui.Path(o.Target))
			if o.Plan != nil {
				for _, s := range o.Plan.Siblings {
					fmt.Fprintf(w, "       + %s\n", ui.Dim(s.To))
				}
			}
		case organize.StatusSuccess:
			if verbose {
				fmt.Fprintf(w, "%s %s -> %s\n", ui.Status(o.Status.String()), o.Source, ui.Path(o.Target))
			}
		default:
			msg := o.Reason
			if o.Err != nil {
				msg = fmt.Sprintf("%s: %v", o.Reason, o.Err)
			}
			fmt.Fprintf(w, "%s %s (%s)\n", ui.Status(o.Status.String()), o.Source, msg)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Found:     %d\n", report.Found)
	if report.DryRun {
		fmt.Fprintf(w, "Planned:   %d\n", report.Count(organize.StatusPlanned))
	} else {
		fmt.Fprintf(w, "Relocated: %d (%s)\n", report.Relocated(), ui.FormatBytes(report.BytesRelocated()))
	}
	fmt.Fprintf(w, "Skipped:   %d\n", report.Count(organize.StatusSkipped))
	fmt.Fprintf(w, "Failed:    %d\n", report.Count(organize.StatusFailed))
	if !report.DryRun {
		fmt.Fprintf(w, "Cleaned:   %d leftovers, %d folders\n", report.LeftoversDeleted, report.FoldersRemoved)
	}
	fmt.Fprintf(w, "Duration:  %s\n", ui.FormatDuration(report.FinishedAt.Sub(report.StartedAt)))

	if report.Cancelled {
		ui.WarningMsg(w, "run %s was interrupted", report.RunID)
	}
}
