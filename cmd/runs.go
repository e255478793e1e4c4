package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/energy-etl/internal/model"
	"github.com/sells-group/energy-etl/internal/monitoring"
	"github.com/sells-group/energy-etl/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect ETL run history",
	Long:  "Commands for listing, viewing, and summarizing ETL runs recorded in the run store.",
}

func openRunStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, eris.New("run history is disabled (store.path is empty)")
	}
	return st, nil
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ETL runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openRunStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status: model.RunStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openRunStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openRunStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		since, _ := cmd.Flags().GetDuration("since")
		hours := int(since.Hours())
		if hours < 1 {
			hours = 1
		}

		snap, err := monitoring.NewCollector(st).Collect(ctx, hours)
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}
		formatRunStats(os.Stdout, snap)
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (extracting, loading, complete, failed, ...)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsStatsCmd.Flags().Duration("since", 24*time.Hour, "time window for stats (e.g. 24h, 72h, 168h)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes an aligned table of runs to out. Column widths use
// display width so that non-ASCII input paths line up.
func formatRunsList(out io.Writer, runs []model.Run) {
	rows := [][]string{{"ID", "INPUT", "STATUS", "ROWS", "DROPPED", "OBS", "QUALITY", "CREATED", "DURATION"}}
	for _, r := range runs {
		rowsIn, dropped, obs, quality := "", "", "", ""
		if r.Result != nil {
			rowsIn = fmt.Sprint(r.Result.InputRows)
			dropped = fmt.Sprint(r.Result.DroppedRows)
			obs = fmt.Sprint(r.Result.Observations)
			if r.Status == model.RunStatusComplete {
				quality = fmt.Sprintf("%.1f", r.Result.Quality.TotalScore)
			}
		}
		rows = append(rows, []string{
			truncateID(r.ID),
			runewidth.Truncate(r.Input, 40, "..."),
			string(r.Status),
			rowsIn,
			dropped,
			obs,
			quality,
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String(),
		})
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	for _, row := range rows {
		var sb strings.Builder
		for i, cell := range row {
			sb.WriteString(cell)
			if i < len(row)-1 {
				sb.WriteString(strings.Repeat(" ", widths[i]-runewidth.StringWidth(cell)+2))
			}
		}
		_, _ = fmt.Fprintln(out, strings.TrimRight(sb.String(), " "))
	}
}

// formatRunStats writes aggregate stats to out.
func formatRunStats(out io.Writer, s *monitoring.RunSnapshot) {
	lines := [][2]string{
		{"Window:", fmt.Sprintf("%dh", s.LookbackHours)},
		{"Total runs:", fmt.Sprint(s.Total)},
		{"Complete:", fmt.Sprint(s.Complete)},
		{"Failed:", fmt.Sprint(s.Failed)},
		{"In progress:", fmt.Sprint(s.InProgress)},
		{"Failure rate:", fmt.Sprintf("%.1f%%", s.FailRate*100)},
		{"Rows dropped:", fmt.Sprint(s.RowsDropped)},
		{"Observations:", fmt.Sprint(s.Observations)},
	}
	if s.AvgQuality > 0 {
		lines = append(lines, [2]string{"Avg quality:", fmt.Sprintf("%.1f", s.AvgQuality)})
	}
	width := 0
	for _, l := range lines {
		width = max(width, runewidth.StringWidth(l[0]))
	}
	for _, l := range lines {
		_, _ = fmt.Fprintf(out, "%s  %s\n", runewidth.FillRight(l[0], width), l[1])
	}
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
