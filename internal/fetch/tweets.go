package fetch

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/guhdong/threadsync/internal/stats"
	"github.com/guhdong/threadsync/pkg/client"
)

// TweetsByID fetches the given tweet ids, skipping every id already
// known (fetched, permanently errored, or sentinel). Lookups go out in
// sub-batches of the upstream limit; checkpoint, when non-nil, runs
// after each appended sub-batch.
func (f *Fetcher) TweetsByID(ctx context.Context, ids []string, checkpoint func() error) error {
	known := f.DB.KnownIDs()
	seen := map[string]struct{}{}
	todo := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := known[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		todo = append(todo, id)
	}
	if len(todo) == 0 {
		return nil
	}
	for start := 0; start < len(todo); start += client.MaxLookupBatch {
		end := min(start+client.MaxLookupBatch, len(todo))
		got, err := f.API.TweetsByIDs(ctx, todo[start:end])
		if err != nil {
			return err
		}
		f.DB.Tweets = append(f.DB.Tweets, got.Tweets...)
		f.DB.Errors = append(f.DB.Errors, got.Errors...)
		f.addStat(stats.TweetsFetched, uint(len(got.Tweets)))
		f.addStat(stats.ResourceErrors, uint(len(got.Errors)))
		if checkpoint != nil {
			if err := checkpoint(); err != nil {
				return err
			}
		}
	}
	logrus.Infof("Fetched %d tweets by id", len(todo))
	return nil
}
