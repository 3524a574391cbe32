package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/clipforge/internal/adapter/storage/sqlite"
	"github.com/bnema/clipforge/internal/domain"
)

func newHistoryCommand(load configLoader) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List finished jobs recorded in the archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if !cfg.ArchiveEnabled {
				return fmt.Errorf("the job archive is disabled (archive_enabled = false)")
			}
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}

			archive, err := sqlite.Open(cfg.DataDir)
			if err != nil {
				return fmt.Errorf("open archive: %w", err)
			}
			defer func() { _ = archive.Close() }()

			jobs, err := archive.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No archived jobs.")
				return nil
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"ID", "Status", "Codec", "Q", "Size", "Duration", "Finished", "Message"},
				historyRows(jobs),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of jobs to list")
	return cmd
}

func historyRows(jobs []*domain.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		size := ""
		if j.ArtifactSizeMB > 0 {
			size = fmt.Sprintf("%.2f MB", j.ArtifactSizeMB)
		}
		duration := ""
		if j.SourceDurationSeconds > 0 {
			duration = domain.FormatDuration(j.SourceDurationSeconds)
		}
		finished := ""
		if j.FinishedAt != nil {
			finished = j.FinishedAt.Local().Format(time.DateTime)
		}
		rows = append(rows, []string{
			j.ID,
			string(j.Status),
			j.Codec,
			strconv.Itoa(j.Quality),
			size,
			duration,
			finished,
			j.Message,
		})
	}
	return rows
}
