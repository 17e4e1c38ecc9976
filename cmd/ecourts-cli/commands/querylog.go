package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	configlibsql "ecourts-backend/lib/configutil/libsql"
	"ecourts-backend/lib/querylog"
	"ecourts-backend/lib/util/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	logsDb    *string
	logsLimit *int
	statsDb   *string
)

func init() {
	logsDb = logsCmd.Flags().String("db", "queries.db", "The query log database.")
	logsLimit = logsCmd.Flags().IntP("limit", "n", querylog.DefaultRecentLimit, "Number of entries to show.")
	statsDb = statsCmd.Flags().String("db", "queries.db", "The query log database.")
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(statsCmd)
}

func openStore(ctx context.Context, path string) querylog.Store {
	db, err := configlibsql.Struct{File: path}.OpenDB()
	if err != nil {
		serviceutil.Fatal("failed to open db", err)
	}
	store := querylog.NewStore(db)
	err = store.Migrate(ctx)
	if err != nil {
		serviceutil.Fatal("failed to migrate db", err)
	}
	return store
}

var logsCmd = &cobra.Command{
	Use:   "logs [--db <path/to/queries.db>] [-n <limit>]",
	Short: "Lists the most recent searches.",
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore(cmd.Context(), *logsDb)
		entries, err := store.Recent(cmd.Context(), *logsLimit)
		if err != nil {
			serviceutil.Fatal("failed to read query log", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Time", "State", "District", "Case", "Success", "Error"})
		for _, e := range entries {
			t.AppendRow(table.Row{
				e.Time.Format(time.DateTime),
				e.State,
				e.District,
				fmt.Sprintf("%s/%s/%s", e.CaseType, e.CaseNumber, e.CaseYear),
				e.Success,
				e.Error,
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats [--db <path/to/queries.db>]",
	Short: "Summarizes the query log.",
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore(cmd.Context(), *statsDb)
		stats, err := store.Stats(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to read query log", err)
		}

		summary := table.NewWriter()
		summary.SetOutputMirror(os.Stdout)
		summary.AppendRows([]table.Row{
			{"Total", stats.Total},
			{"Successful", stats.Successful},
			{"Failed", stats.Failed},
			{"Success rate", fmt.Sprintf("%.1f%%", stats.SuccessRate)},
		})
		summary.SetStyle(table.StyleRounded)
		summary.Render()

		top := table.NewWriter()
		top.SetOutputMirror(os.Stdout)
		top.AppendHeader(table.Row{"State", "Searches"})
		for _, s := range stats.TopStates {
			top.AppendRow(table.Row{s.State, s.Count})
		}
		top.SetStyle(table.StyleRounded)
		top.Render()
	},
}
