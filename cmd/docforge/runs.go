// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/docforge/internal/journal"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent pipeline runs from the journal",
	Long: `Runs lists recent pipeline runs recorded in the run journal, newest
first: source, output, final state, and timing. Requires journal_path to be
configured.`,
	RunE: runRuns,
}

func runRuns(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	path := viper.GetString("journal_path")
	if path == "" {
		return fmt.Errorf("no journal configured: set journal_path in docforge.yaml")
	}
	jrnl, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer jrnl.Close()

	runs, err := jrnl.ListRuns(context.Background(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATE\tSTARTED\tDURATION\tSOURCE\tOUTPUT\tERROR")
	for _, r := range runs {
		duration := ""
		if !r.Finished.IsZero() {
			duration = r.Finished.Sub(r.Started).Round(time.Millisecond).String()
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.State, r.Started.Local().Format("2006-01-02 15:04:05"),
			duration, r.Source, r.Output, r.Error)
	}
	return w.Flush()
}

func init() {
	runsCmd.Flags().Int("limit", 20, "maximum number of runs to list")

	rootCmd.AddCommand(runsCmd)
}
