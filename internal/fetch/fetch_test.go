package fetch_test

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/guhdong/threadsync/api/types"
	. "github.com/guhdong/threadsync/internal/fetch"
	"github.com/guhdong/threadsync/pkg/client"
)

// fakePaginator yields a fixed page sequence.
type fakePaginator struct {
	pages [][]types.Tweet
	pos   int
	err   error
}

func (p *fakePaginator) Next(context.Context) bool {
	if p.err != nil || p.pos >= len(p.pages) {
		return false
	}
	p.pos++
	return true
}

func (p *fakePaginator) Tweets() []types.Tweet {
	return p.pages[p.pos-1]
}

func (p *fakePaginator) Err() error {
	return p.err
}

type fakeAPI struct {
	tweetBatches [][]string
	tweetResult  func(ids []string) *client.TweetLookup
	userBatches  [][]string
	userResult   func(ids []string) *client.UserLookup
	timelines    map[string]*fakePaginator
	sinceSeen    map[string]string
}

func (f *fakeAPI) TweetsByIDs(_ context.Context, ids []string) (*client.TweetLookup, error) {
	f.tweetBatches = append(f.tweetBatches, ids)
	if f.tweetResult != nil {
		return f.tweetResult(ids), nil
	}
	out := &client.TweetLookup{}
	for _, id := range ids {
		out.Tweets = append(out.Tweets, types.Tweet{ID: id, AuthorID: "someone"})
	}
	return out, nil
}

func (f *fakeAPI) UsersByIDs(_ context.Context, ids []string) (*client.UserLookup, error) {
	f.userBatches = append(f.userBatches, ids)
	if f.userResult != nil {
		return f.userResult(ids), nil
	}
	out := &client.UserLookup{}
	for _, id := range ids {
		out.Users = append(out.Users, types.User{ID: id, Username: "u" + id})
	}
	return out, nil
}

func (f *fakeAPI) Timeline(userID, sinceID string) Paginator {
	if f.sinceSeen == nil {
		f.sinceSeen = map[string]string{}
	}
	f.sinceSeen[userID] = sinceID
	if p, ok := f.timelines[userID]; ok {
		return p
	}
	return &fakePaginator{}
}

var _ = Describe("Fetcher", func() {
	var (
		api     *fakeAPI
		db      *types.Database
		fetcher *Fetcher
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		api = &fakeAPI{timelines: map[string]*fakePaginator{}}
		db = &types.Database{}
		fetcher = &Fetcher{API: api, DB: db}
	})

	Describe("TweetsByID", func() {
		It("skips ids that are already known", func() {
			db.Tweets = []types.Tweet{{ID: "1", AuthorID: "a"}}
			db.Errors = []types.ResourceError{{ResourceID: "123"}}

			err := fetcher.TweetsByID(ctx, []string{"1", "123", "2", types.TweetWasDeleted, types.CouldntScrape}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(api.tweetBatches).To(Equal([][]string{{"2"}}))
			Expect(db.Tweets).To(HaveLen(2))
		})

		It("issues no request when everything is known", func() {
			db.Errors = []types.ResourceError{{ResourceID: "123"}}
			err := fetcher.TweetsByID(ctx, []string{"123"}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(api.tweetBatches).To(BeEmpty())
		})

		It("deduplicates requested ids", func() {
			err := fetcher.TweetsByID(ctx, []string{"5", "5", "6"}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(api.tweetBatches).To(Equal([][]string{{"5", "6"}}))
		})

		It("splits requests into sub-batches of the upstream limit", func() {
			ids := make([]string, 0, 150)
			for i := 0; i < 150; i++ {
				ids = append(ids, fmt.Sprintf("%d", 1000+i))
			}
			checkpoints := 0
			err := fetcher.TweetsByID(ctx, ids, func() error {
				checkpoints++
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(api.tweetBatches).To(HaveLen(2))
			Expect(api.tweetBatches[0]).To(HaveLen(client.MaxLookupBatch))
			Expect(api.tweetBatches[1]).To(HaveLen(50))
			Expect(checkpoints).To(Equal(2))
		})

		It("records per-resource errors as permanent", func() {
			api.tweetResult = func(ids []string) *client.TweetLookup {
				return &client.TweetLookup{
					Errors: []types.ResourceError{{ResourceID: ids[0], Title: "Not Found Error"}},
				}
			}
			Expect(fetcher.TweetsByID(ctx, []string{"77"}, nil)).To(Succeed())
			Expect(db.Errors).To(HaveLen(1))

			// The errored id is known now: no second request.
			Expect(fetcher.TweetsByID(ctx, []string{"77"}, nil)).To(Succeed())
			Expect(api.tweetBatches).To(HaveLen(1))
		})
	})

	Describe("Timelines", func() {
		It("fetches the full history for an unseen author", func() {
			api.timelines["11"] = &fakePaginator{pages: [][]types.Tweet{
				{{ID: "300", AuthorID: "11"}, {ID: "299", AuthorID: "11"}},
				{{ID: "298", AuthorID: "11"}},
			}}
			Expect(fetcher.Timelines(ctx, []string{"11"})).To(Succeed())
			Expect(api.sinceSeen["11"]).To(Equal(""))
			Expect(db.Tweets).To(HaveLen(3))
		})

		It("uses the stored maximum id as the watermark", func() {
			db.Tweets = []types.Tweet{
				{ID: "250", AuthorID: "11"},
				{ID: "90", AuthorID: "11"},
				{ID: "9999", AuthorID: "other"},
			}
			Expect(fetcher.Timelines(ctx, []string{"11"})).To(Succeed())
			Expect(api.sinceSeen["11"]).To(Equal("250"))
		})

		It("propagates paginator failures", func() {
			api.timelines["11"] = &fakePaginator{err: fmt.Errorf("timeline down")}
			Expect(fetcher.Timelines(ctx, []string{"11"})).To(HaveOccurred())
		})
	})

	Describe("BackfillUsers", func() {
		It("fetches only authors missing from the user list", func() {
			db.Users = []types.User{{ID: "1", Username: "alice"}}
			db.Tweets = []types.Tweet{
				{ID: "100", AuthorID: "1"},
				{ID: "101", AuthorID: "2"},
				{ID: "102", AuthorID: "2"},
				{ID: "103", AuthorID: "3"},
			}
			Expect(fetcher.BackfillUsers(ctx)).To(Succeed())
			Expect(api.userBatches).To(Equal([][]string{{"2", "3"}}))
			Expect(db.Users).To(HaveLen(3))
		})

		It("records failed lookups as placeholder users", func() {
			db.Tweets = []types.Tweet{{ID: "100", AuthorID: "13"}}
			api.userResult = func(ids []string) *client.UserLookup {
				return &client.UserLookup{
					Errors: []types.ResourceError{{
						ResourceID: "13",
						Title:      "Forbidden",
						Detail:     "User has been suspended",
					}},
				}
			}
			Expect(fetcher.BackfillUsers(ctx)).To(Succeed())
			Expect(db.Users).To(HaveLen(1))
			Expect(db.Users[0].ID).To(Equal("13"))
			Expect(db.Users[0].Username).To(BeEmpty())
			Expect(db.Users[0].Name).To(Equal("Forbidden"))

			// Treated as known on the next pass.
			Expect(fetcher.BackfillUsers(ctx)).To(Succeed())
			Expect(api.userBatches).To(HaveLen(1))
		})

		It("does nothing when all authors are known", func() {
			db.Users = []types.User{{ID: "1"}}
			db.Tweets = []types.Tweet{{ID: "100", AuthorID: "1"}}
			Expect(fetcher.BackfillUsers(ctx)).To(Succeed())
			Expect(api.userBatches).To(BeEmpty())
		})
	})
})
