package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yonatangross/hookwarden/internal/config"
	"github.com/yonatangross/hookwarden/internal/trace"
)

// newTraceCmd queries the local dispatch trace.
func newTraceCmd(cfgPath *string) *cobra.Command {
	var (
		sessionID string
		limit     int
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "List recent dispatch decisions from the trace store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := mustBuildLogger("warn")
			cfg, err := config.Load(*cfgPath, logger)
			if err != nil {
				return err
			}
			snap := cfg.Snapshot()
			if snap.TraceDB == "" {
				return fmt.Errorf("no trace_db configured")
			}

			store, err := trace.Open(snap.TraceDB, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			rows, err := store.Recent(cmd.Context(), sessionID, limit)
			if err != nil {
				return err
			}

			if asJSON {
				return json.NewEncoder(os.Stdout).Encode(rows)
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tTOOL\tVERDICT\tREASONS\tPATH")
			for _, row := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					row.Timestamp.Format("2006-01-02 15:04:05"),
					row.Tool,
					row.Verdict,
					strings.Join(row.ReasonCodes, ","),
					row.Path,
				)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "filter by session id")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON instead of a table")
	return cmd
}
