// Package closure implements the incremental reply-closure algorithm:
// starting from the tweets already in the database, discover every
// adjacent tweet (replies, retweets, quotes) of the expand-set authors
// by scraping, chase every structural reference for any author, and
// fetch newly discovered ids until a full pass adds nothing.
package closure

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/guhdong/threadsync/api/types"
	"github.com/guhdong/threadsync/internal/stats"
	"github.com/guhdong/threadsync/internal/store"
)

// Scraper returns adjacent tweet ids for one tweet, or a sentinel
// result. Satisfied by scrape.Client.
type Scraper interface {
	RelatedTweets(ctx context.Context, tweetID string) ([]string, error)
}

// IDFetcher fetches tweet ids in sub-batches, appending results and
// per-resource errors to the database. Satisfied by fetch.Fetcher.
type IDFetcher interface {
	TweetsByID(ctx context.Context, ids []string, checkpoint func() error) error
}

// Engine owns one closure run over a database. The database is touched
// only from this single control flow; every unit of work is followed
// by a checkpoint tick so an interruption loses at most the in-flight
// unit.
type Engine struct {
	DB         *types.Database
	Fetcher    IDFetcher
	Scraper    Scraper
	Expand     map[string]struct{}
	Checkpoint *store.Checkpointer
	Stats      *stats.Collector
	RunID      string
}

// Run iterates scan-scrape-fetch passes until a fixed point: a full
// pass over the unscanned tail that leaves the pending batch empty.
// On any error, including cancellation, it writes one final
// best-effort checkpoint and propagates the error unchanged.
func (e *Engine) Run(ctx context.Context) error {
	known := e.DB.KnownIDs()
	for i := range e.DB.Tweets {
		for _, ref := range e.DB.Tweets[i].ScrapedRefs {
			known[ref] = struct{}{}
		}
	}

	var batch []string
	pos := 0
	for {
		// Only tweets appended since the previous pass are unscanned.
		for i := pos; i < len(e.DB.Tweets); i++ {
			if err := ctx.Err(); err != nil {
				return e.abort(err)
			}
			tweet := &e.DB.Tweets[i]
			scraped := tweet.ScrapedRefs
			if len(scraped) == 0 && e.inExpand(tweet.AuthorID) {
				logrus.Infof("Scraping related tweets for %s", tweet.ID)
				refs, err := e.Scraper.RelatedTweets(ctx, tweet.ID)
				if err != nil {
					return e.abort(err)
				}
				// Set exactly once; empty and sentinel results are
				// final too.
				tweet.ScrapedRefs = refs
				scraped = refs
				if e.Stats != nil {
					e.Stats.Add(e.RunID, stats.Scrapes, 1)
				}
			}
			for _, ref := range tweet.ReferencedTweets {
				if _, ok := known[ref.ID]; !ok {
					known[ref.ID] = struct{}{}
					batch = append(batch, ref.ID)
				}
			}
			for _, id := range scraped {
				if _, ok := known[id]; !ok {
					known[id] = struct{}{}
					batch = append(batch, id)
				}
			}
			if err := e.Checkpoint.Tick(); err != nil {
				return err
			}
		}
		if len(batch) == 0 {
			return e.Checkpoint.Flush()
		}
		pos = len(e.DB.Tweets)
		logrus.Infof("Chasing tweets: processing batch of %d", len(batch))
		if err := e.Fetcher.TweetsByID(ctx, batch, e.Checkpoint.Tick); err != nil {
			return e.abort(err)
		}
		batch = batch[:0]
	}
}

func (e *Engine) inExpand(authorID string) bool {
	_, ok := e.Expand[authorID]
	return ok
}

// abort flushes progress before letting the error propagate. The
// flush is best effort: its failure must not mask the original error.
func (e *Engine) abort(err error) error {
	if flushErr := e.Checkpoint.Flush(); flushErr != nil {
		logrus.WithError(flushErr).Error("Failed to write final checkpoint")
	}
	return err
}
