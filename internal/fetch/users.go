package fetch

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/guhdong/threadsync/api/types"
	"github.com/guhdong/threadsync/internal/stats"
	"github.com/guhdong/threadsync/pkg/client"
)

// BackfillUsers fetches profiles for every author id that appears
// among the stored tweets but not yet among the stored users. Ids
// whose lookup fails permanently are recorded as placeholder users so
// they are not looked up again on the next run.
func (f *Fetcher) BackfillUsers(ctx context.Context) error {
	knownUsers := make(map[string]struct{}, len(f.DB.Users))
	for _, u := range f.DB.Users {
		knownUsers[u.ID] = struct{}{}
	}
	var toFetch []string
	seen := map[string]struct{}{}
	for _, t := range f.DB.Tweets {
		if _, ok := knownUsers[t.AuthorID]; ok {
			continue
		}
		if _, ok := seen[t.AuthorID]; ok {
			continue
		}
		seen[t.AuthorID] = struct{}{}
		toFetch = append(toFetch, t.AuthorID)
	}
	for start := 0; start < len(toFetch); start += client.MaxLookupBatch {
		end := min(start+client.MaxLookupBatch, len(toFetch))
		batch := toFetch[start:end]
		got, err := f.API.UsersByIDs(ctx, batch)
		if err != nil {
			return err
		}
		for _, e := range got.Errors {
			f.DB.Users = append(f.DB.Users, types.User{
				ID:          e.ResourceID,
				Name:        e.Title,
				Description: e.Detail,
			})
		}
		f.DB.Users = append(f.DB.Users, got.Users...)
		f.addStat(stats.UsersFetched, uint(len(got.Users)))
		logrus.Infof("Looked up %d user profiles", len(batch))
	}
	return nil
}
