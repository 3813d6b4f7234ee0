package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Nomadcxx/javorganize/internal/activity"
	"github.com/Nomadcxx/javorganize/internal/database"
	"github.com/Nomadcxx/javorganize/internal/paths"
	"github.com/Nomadcxx/javorganize/internal/ui"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit int
		files bool
		runID string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past organize runs",
		Long: `List recent organize runs. With --files, also list what happened to each file
of the latest run (or of --run) from the activity journal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openCatalog(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := db.RecentRuns(limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No organize runs recorded yet.")
				return nil
			}
			renderRuns(out, runs)

			if !files && runID == "" {
				return nil
			}
			if runID == "" {
				runID = runs[0].ID
			} else {
				runID = resolveRunID(runs, runID)
			}
			dir, err := paths.ActivityDir()
			if err != nil {
				return err
			}
			journal, err := activity.NewLogger(dir)
			if err != nil {
				return err
			}
			defer journal.Close()

			entries, err := journal.GetRecentEntriesFor(runID, 0)
			if err != nil {
				return err
			}
			ui.Section(out, "Run "+runID)
			renderEntries(out, entries)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "number of runs to show")
	cmd.Flags().BoolVar(&files, "files", false, "list the files of the latest run")
	cmd.Flags().StringVar(&runID, "run", "", "list the files of this run")

	return cmd
}

func renderRuns(w io.Writer, runs []database.Run) {
	tbl := ui.NewTable("RUN", "STARTED", "STATUS", "FOUND", "MOVED", "SKIPPED", "FAILED", "SIZE", "CLEANED", "DURATION").
		AlignRight(3, 4, 5, 6, 7, 8)
	for _, r := range runs {
		status := string(r.Status)
		if r.DryRun {
			status += " (dry)"
		}
		duration := "-"
		if r.FinishedAt != nil {
			duration = ui.FormatDuration(r.Duration())
		}
		tbl.AddRow(
			shortID(r.ID),
			ui.FormatTime(r.StartedAt),
			status,
			strconv.Itoa(r.Found),
			strconv.Itoa(r.Relocated),
			strconv.Itoa(r.Skipped),
			strconv.Itoa(r.Failed),
			ui.FormatBytes(r.BytesRelocated),
			strconv.Itoa(r.LeftoversDeleted+r.FoldersRemoved),
			duration,
		)
	}
	tbl.Render(w)
}

func renderEntries(w io.Writer, entries []activity.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No journal entries for this run.")
		return
	}
	tbl := ui.NewTable("TIME", "ACTION", "NUM", "SOURCE", "TARGET", "NOTE")
	tbl.SetMaxWidth(50)
	for _, e := range entries {
		note := e.Reason
		if e.Error != "" {
			note = e.Error
		}
		tbl.AddRow(e.Timestamp.Local().Format("15:04:05"), string(e.Action), e.Num, e.Source, e.Target, note)
	}
	tbl.Render(w)
}

// resolveRunID expands a short id shown in the runs table.
func resolveRunID(runs []database.Run, prefix string) string {
	for _, r := range runs {
		if strings.HasPrefix(r.ID, prefix) {
			return r.ID
		}
	}
	return prefix
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
