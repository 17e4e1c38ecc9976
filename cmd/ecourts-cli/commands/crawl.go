package commands

import (
	"log/slog"
	"time"

	"ecourts-backend/lib/directory"
	"ecourts-backend/lib/util/serviceutil"

	"github.com/spf13/cobra"
)

var (
	crawlOut       *string
	crawlIndex     *string
	crawlPerSecond *float64
)

func init() {
	crawlOut = crawlCmd.Flags().StringP("out", "o", "ecourts_data.json", "Where to write the court directory.")
	crawlIndex = crawlCmd.Flags().String("index", directory.DefaultIndexUrl, "The page listing every state.")
	crawlPerSecond = crawlCmd.Flags().Float64("rate", 2, "Pages fetched per second.")
	rootCmd.AddCommand(crawlCmd)
}

var crawlCmd = &cobra.Command{
	Use:   "crawl [--out <path/to/ecourts_data.json>]",
	Short: "Builds the state and district directory from the ecourts site.",
	Run: func(cmd *cobra.Command, args []string) {
		crawler, err := directory.NewCrawler(directory.CrawlerOptions{
			IndexUrl:          *crawlIndex,
			RequestsPerSecond: *crawlPerSecond,
		})
		if err != nil {
			serviceutil.Fatal("failed to create crawler", err)
		}

		t1 := time.Now()
		dir, err := crawler.Crawl(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to crawl", err)
		}
		states, districts := dir.Count()
		slog.Info(
			"crawled court directory",
			"states", states,
			"districts", districts,
			"seconds", time.Since(t1).Seconds(),
		)

		err = dir.Save(*crawlOut)
		if err != nil {
			serviceutil.Fatal("failed to save directory", err)
		}
		slog.Info("wrote court directory", "path", *crawlOut)
	},
}
