// threadsync builds a durable local snapshot of a conversation graph
// anchored at seed users or tweet ids, resuming safely across runs
// without re-fetching known data.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "threadsync",
	Short:         "Incrementally download tweets and reply threads",
	Long: `threadsync downloads and manages tweets and threads for one or more
users, using a JSON state file to store progress and avoid re-doing
work. Seed authors' timelines are synced incrementally; authors in the
expand set additionally have every tweet's replies, retweets and
quote-retweets discovered by scraping the public conversation view.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("threadsync v0.2.0")
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
