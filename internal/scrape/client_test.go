package scrape_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/guhdong/threadsync/api/types"
	. "github.com/guhdong/threadsync/internal/scrape"
)

func tweetDocument(ids ...string) string {
	entries := ""
	for i, id := range ids {
		if i > 0 {
			entries += ","
		}
		entries += fmt.Sprintf(`{
			"content": {
				"entryType": "TimelineTimelineItem",
				"itemContent": {
					"itemType": "TimelineTweet",
					"tweet_results": {"result": {"__typename": "Tweet", "rest_id": %q}}
				}
			}
		}`, id)
	}
	return fmt.Sprintf(`{
		"data": {
			"threaded_conversation_with_injections_v2": {
				"instructions": [{"entries": [%s]}]
			}
		}
	}`, entries)
}

var _ = Describe("Client", func() {
	var (
		mux           *http.ServeMux
		server        *httptest.Server
		scraper       *Client
		activations   int
		detailHandler http.HandlerFunc
		slept         []time.Duration
		now           time.Time
	)

	BeforeEach(func() {
		activations = 0
		slept = nil
		now = time.Unix(2_000_000, 0)
		mux = http.NewServeMux()
		mux.HandleFunc("/activate", func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.Method).To(Equal(http.MethodPost))
			Expect(r.Header.Get("authorization")).To(ContainSubstring("Bearer "))
			activations++
			fmt.Fprint(w, `{"guest_token": "gt-123"}`)
		})
		mux.HandleFunc("/detail", func(w http.ResponseWriter, r *http.Request) {
			detailHandler(w, r)
		})
		server = httptest.NewServer(mux)
		scraper = NewClient(
			Endpoints(server.URL+"/activate", server.URL+"/detail"),
			Clock(
				func() time.Time { return now },
				func(ctx context.Context, d time.Duration) error {
					slept = append(slept, d)
					return ctx.Err()
				},
			),
		)
	})

	AfterEach(func() {
		server.Close()
	})

	It("activates the guest session once and replays the client shape", func() {
		detailHandler = func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Query().Get("variables")).To(ContainSubstring(`"focalTweetId":"555"`))
			Expect(r.Header.Get("x-guest-token")).To(Equal("gt-123"))
			// CSRF token mirrored in cookie and header.
			csrf := r.Header.Get("x-csrf-token")
			Expect(csrf).NotTo(BeEmpty())
			Expect(r.Header.Get("cookie")).To(ContainSubstring("ct0=" + csrf))
			Expect(r.Header.Get("cookie")).To(ContainSubstring("gt=gt-123"))
			fmt.Fprint(w, tweetDocument("556", "557"))
		}

		ids, err := scraper.RelatedTweets(context.Background(), "555")
		Expect(err).NotTo(HaveOccurred())
		Expect(ids).To(Equal([]string{"556", "557"}))

		_, err = scraper.RelatedTweets(context.Background(), "555")
		Expect(err).NotTo(HaveOccurred())
		Expect(activations).To(Equal(1))
	})

	It("sleeps until the announced reset on rate limiting and retries", func() {
		limited := true
		detailHandler = func(w http.ResponseWriter, r *http.Request) {
			if limited {
				limited = false
				w.Header().Set("x-rate-limit-reset", strconv.FormatInt(now.Unix()+30, 10))
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			fmt.Fprint(w, tweetDocument("1"))
		}

		ids, err := scraper.RelatedTweets(context.Background(), "555")
		Expect(err).NotTo(HaveOccurred())
		Expect(ids).To(Equal([]string{"1"}))
		Expect(slept).To(HaveLen(1))
		Expect(slept[0]).To(Equal(30 * time.Second))
	})

	It("reports every rate-limit wait through the notify hook", func() {
		waits := 0
		scraper = NewClient(
			Endpoints(server.URL+"/activate", server.URL+"/detail"),
			Clock(
				func() time.Time { return now },
				func(context.Context, time.Duration) error { return nil },
			),
			RateLimitNotify(func() { waits++ }),
		)
		limited := 2
		detailHandler = func(w http.ResponseWriter, r *http.Request) {
			if limited > 0 {
				limited--
				w.Header().Set("x-rate-limit-reset", strconv.FormatInt(now.Unix()+30, 10))
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			fmt.Fprint(w, tweetDocument("1"))
		}

		_, err := scraper.RelatedTweets(context.Background(), "555")
		Expect(err).NotTo(HaveOccurred())
		Expect(waits).To(Equal(2))
	})

	It("aborts a rate-limit wait when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		detailHandler = func(w http.ResponseWriter, r *http.Request) {
			// Announce a reset far in the future, then cancel.
			cancel()
			w.Header().Set("x-rate-limit-reset", strconv.FormatInt(now.Unix()+900, 10))
			w.WriteHeader(http.StatusTooManyRequests)
		}

		_, err := scraper.RelatedTweets(ctx, "555")
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
	})

	It("fails on any other non-success status", func() {
		detailHandler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}
		_, err := scraper.RelatedTweets(context.Background(), "555")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("non-200"))
	})

	It("maps an empty payload to the deleted sentinel", func() {
		detailHandler = func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data": null}`)
		}
		ids, err := scraper.RelatedTweets(context.Background(), "999")
		Expect(err).NotTo(HaveOccurred())
		Expect(ids).To(Equal([]string{types.TweetWasDeleted}))
	})

	It("maps an entry-less document to the couldnt-scrape sentinel", func() {
		detailHandler = func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, tweetDocument())
		}
		ids, err := scraper.RelatedTweets(context.Background(), "888")
		Expect(err).NotTo(HaveOccurred())
		Expect(ids).To(Equal([]string{types.CouldntScrape}))
	})

	It("fails when guest activation is rejected", func() {
		bad := NewClient(Endpoints(server.URL+"/nope", server.URL+"/detail"))
		_, err := bad.RelatedTweets(context.Background(), "555")
		Expect(err).To(HaveOccurred())
	})
})
