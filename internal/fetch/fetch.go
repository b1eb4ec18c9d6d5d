// Package fetch populates the database from the official batched API:
// tweet lookups by id, incremental per-author timelines, and author
// profile backfill.
package fetch

import (
	"context"

	"github.com/guhdong/threadsync/api/types"
	"github.com/guhdong/threadsync/internal/stats"
	"github.com/guhdong/threadsync/pkg/client"
)

// Paginator is a restartable page sequence over an author timeline.
// Satisfied by client.TimelinePaginator.
type Paginator interface {
	Next(ctx context.Context) bool
	Tweets() []types.Tweet
	Err() error
}

// API is the part of the official client the fetchers need.
type API interface {
	TweetsByIDs(ctx context.Context, ids []string) (*client.TweetLookup, error)
	UsersByIDs(ctx context.Context, ids []string) (*client.UserLookup, error)
	Timeline(userID, sinceID string) Paginator
}

// Fetcher appends fetched tweets, users and per-resource errors to the
// database. It never requests an id that is already known.
type Fetcher struct {
	API   API
	DB    *types.Database
	Stats *stats.Collector
	RunID string
}

func (f *Fetcher) addStat(typ stats.StatType, num uint) {
	if f.Stats != nil && num > 0 {
		f.Stats.Add(f.RunID, typ, num)
	}
}
