package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/guhdong/threadsync/internal/report"
	"github.com/guhdong/threadsync/internal/store"
)

var reportDBPath string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print per-user tweet and conversation counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.New(reportDBPath).Load()
		if err != nil {
			return err
		}
		return report.Write(os.Stdout, db)
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportDBPath, "db", "", "JSON state file (required)")
	reportCmd.MarkFlagRequired("db")
}
