package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/guhdong/threadsync/api/types"
	"github.com/guhdong/threadsync/internal/closure"
	"github.com/guhdong/threadsync/internal/config"
	"github.com/guhdong/threadsync/internal/fetch"
	"github.com/guhdong/threadsync/internal/resolve"
	"github.com/guhdong/threadsync/internal/scrape"
	"github.com/guhdong/threadsync/internal/stats"
	"github.com/guhdong/threadsync/internal/store"
	"github.com/guhdong/threadsync/pkg/client"
)

var (
	syncDBPath   string
	syncKeysPath string
	syncUsers    []string
	syncExpand   []string
	syncTweetIDs []string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch new tweets and expand reply threads",
	Long: `Fetch tweets into the state file. --user seeds an author timeline
(up to the upstream's history limit on the first run, incrementally
afterwards). --expand marks authors whose tweets are expanded to find
replies/retweets/quote-retweets; the discovered tweets are always
fetched, whoever wrote them. --tweet fetches a single tweet by id,
which combined with --expand can pull in an entire conversation tree.
A selector is a numeric id, a username, or an @-prefixed username.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runSync(ctx, config.ReadConfig())
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncDBPath, "db", "", "JSON state file (required)")
	syncCmd.Flags().StringVarP(&syncKeysPath, "keys", "k", "keys.json", "JSON file with the API and user secret keys")
	syncCmd.Flags().StringArrayVarP(&syncUsers, "user", "u", nil, "sync the timeline of this author (repeatable)")
	syncCmd.Flags().StringArrayVarP(&syncExpand, "expand", "e", nil, "expand replies for this author's tweets (repeatable)")
	syncCmd.Flags().StringArrayVarP(&syncTweetIDs, "tweet", "t", nil, "fetch this tweet id (repeatable)")
	syncCmd.MarkFlagRequired("db")
}

func runSync(ctx context.Context, cfg config.Config) error {
	runID := uuid.New().String()
	logrus.WithField("run_id", runID).Info("Starting sync run")

	keys, err := types.LoadKeys(syncKeysPath)
	if err != nil {
		return err
	}
	api, err := client.NewClient(keys, client.Timeout(cfg.HTTPTimeout))
	if err != nil {
		return err
	}

	st := store.New(syncDBPath)
	db, err := st.Load()
	if err != nil {
		return err
	}

	collector := stats.NewCollector()
	resolver := &resolve.Resolver{API: api, DB: db, Stats: collector, RunID: runID}
	userIDs, err := resolver.UserIDs(ctx, syncUsers)
	if err != nil {
		return err
	}
	expandIDs, err := resolver.UserIDs(ctx, syncExpand)
	if err != nil {
		return err
	}
	if err := st.Save(db); err != nil {
		return err
	}

	fetcher := &fetch.Fetcher{API: fetch.WrapClient(api), DB: db, Stats: collector, RunID: runID}
	if err := fetcher.TweetsByID(ctx, syncTweetIDs, nil); err != nil {
		return err
	}
	if err := st.Save(db); err != nil {
		return err
	}
	if err := fetcher.BackfillUsers(ctx); err != nil {
		return err
	}
	if err := st.Save(db); err != nil {
		return err
	}
	if err := fetcher.Timelines(ctx, userIDs); err != nil {
		return err
	}
	if err := st.Save(db); err != nil {
		return err
	}

	expand := make(map[string]struct{}, len(expandIDs))
	for _, id := range expandIDs {
		expand[id] = struct{}{}
	}
	engine := &closure.Engine{
		DB:      db,
		Fetcher: fetcher,
		Scraper: scrape.NewClient(
			scrape.HTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
			scrape.RateLimitNotify(func() { collector.Add(runID, stats.ScrapeRateWaits, 1) }),
		),
		Expand:     expand,
		Checkpoint: store.NewCheckpointer(st, db, cfg.CheckpointInterval),
		Stats:      collector,
		RunID:      runID,
	}
	if err := engine.Run(ctx); err != nil {
		return err
	}

	if err := fetcher.BackfillUsers(ctx); err != nil {
		return err
	}
	if err := st.Save(db); err != nil {
		return err
	}
	collector.LogSummary(runID)
	return nil
}
