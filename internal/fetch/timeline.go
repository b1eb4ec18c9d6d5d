package fetch

import (
	"context"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/guhdong/threadsync/internal/stats"
)

// Timelines fetches every listed author's timeline, strictly newer
// than the watermark already stored for that author. Re-running with
// the same author only pulls tweets published since the last run.
func (f *Fetcher) Timelines(ctx context.Context, userIDs []string) error {
	for _, userID := range userIDs {
		since := f.watermark(userID)
		pager := f.API.Timeline(userID, since)
		var fetched uint
		for pager.Next(ctx) {
			page := pager.Tweets()
			f.DB.Tweets = append(f.DB.Tweets, page...)
			fetched += uint(len(page))
		}
		if err := pager.Err(); err != nil {
			return err
		}
		f.addStat(stats.TimelineTweets, fetched)
		logrus.Infof("Fetched %d timeline tweets for user_id %s", fetched, userID)
	}
	return nil
}

// watermark returns the maximum stored tweet id for the author, as a
// decimal string, or "" when nothing is stored yet. Ids are
// snowflakes, so the numeric maximum is also the newest.
func (f *Fetcher) watermark(userID string) string {
	var max uint64
	for i := range f.DB.Tweets {
		t := &f.DB.Tweets[i]
		if t.AuthorID != userID {
			continue
		}
		id, err := strconv.ParseUint(t.ID, 10, 64)
		if err != nil {
			continue
		}
		if id > max {
			max = id
		}
	}
	if max == 0 {
		return ""
	}
	return strconv.FormatUint(max, 10)
}
