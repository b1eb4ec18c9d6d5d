package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"

	"github.com/guhdong/threadsync/api/types"
)

// The conversation-detail endpoint is an unofficial contract: requests
// must replay a realistic web-client shape (bearer, guest session,
// synthetic cookies, CSRF token mirrored into cookie and header) or
// they are rejected.
const (
	bearerAuth = "Bearer AAAAAAAAAAAAAAAAAAAAANRILgAAAAAAnNwIzUejRCOuH5E6I8xn" +
		"Zz4puTs%3D1Zv7ttfk8LF81IUq16cHjhLTvJu4FA33AGWWjCpTnA"

	activateEndpoint = "https://api.twitter.com/1.1/guest/activate.json"

	tweetDetailQueryID = "BoHLKeBvibdYDiJON1oqTg"
	tweetDetailURL     = "https://twitter.com/i/api/graphql/" + tweetDetailQueryID + "/TweetDetail"

	csrfToken = "6b2cb3a2c07b2ec4a562f2c407f75af9"
	guestID   = "v1%3A166856715467666900"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/107.0.0.0 Safari/537.36"

	rateLimitResetHeader = "x-rate-limit-reset"
)

// Client fetches the ids of tweets adjacent to a given tweet (replies,
// retweets, quote-retweets) from the public conversation view. The
// guest session is activated lazily, once per run, on the first scrape.
type Client struct {
	httpClient  *http.Client
	guestToken  string
	now         func() time.Time
	sleep       func(context.Context, time.Duration) error
	onRateWait  func()
	activateURL string
	detailURL   string
}

type Option func(*Client)

// Endpoints overrides the upstream URLs. Test hook.
func Endpoints(activate, detail string) Option {
	return func(c *Client) {
		c.activateURL = activate
		c.detailURL = detail
	}
}

// Clock replaces the wall clock and sleep function so tests can run
// rate-limit waits without real delays.
func Clock(now func() time.Time, sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		c.now = now
		c.sleep = sleep
	}
}

// RateLimitNotify registers a callback invoked once per rate-limit
// wait, before the sleep starts.
func RateLimitNotify(fn func()) Option {
	return func(c *Client) {
		c.onRateWait = fn
	}
}

func HTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		now:         time.Now,
		sleep:       sleepContext,
		activateURL: activateEndpoint,
		detailURL:   tweetDetailURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// activate exchanges the fixed application credential for a short-lived
// anonymous session token. Transient network failures are retried with
// exponential backoff; a rejected activation is fatal.
func (c *Client) activate(ctx context.Context) error {
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.activateURL, strings.NewReader(""))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("accept", "*/*")
		req.Header.Set("accept-language", "en-US,en;q=0.9")
		req.Header.Set("authorization", bearerAuth)
		req.Header.Set("referer", "https://twitter.com/")
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("guest activation failed with status %d: %s",
				resp.StatusCode, string(body)))
		}
		var out struct {
			GuestToken string `json:"guest_token"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return backoff.Permanent(fmt.Errorf("error decoding guest activation response: %w", err))
		}
		if out.GuestToken == "" {
			return backoff.Permanent(fmt.Errorf("guest activation returned no token"))
		}
		c.guestToken = out.GuestToken
		return nil
	}
	strategy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	if err := backoff.Retry(op, backoff.WithContext(strategy, ctx)); err != nil {
		return err
	}
	logrus.Infof("Guest token is %s", c.guestToken)
	return nil
}

// RelatedTweets returns the ids of all tweets adjacent to tweetID in
// its conversation view, or a single sentinel when the tweet is gone
// or cannot be rendered. Rate limiting never fails the call: the
// client sleeps until the server-announced reset and retries.
func (c *Client) RelatedTweets(ctx context.Context, tweetID string) ([]string, error) {
	if c.guestToken == "" {
		if err := c.activate(ctx); err != nil {
			return nil, err
		}
	}

	params := url.Values{}
	params.Set("variables", detailVariables(tweetID))
	params.Set("features", detailFeatures)
	u := c.detailURL + "?" + params.Encode()

	var body []byte
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		c.detailHeaders(req, tweetID)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("error requesting conversation detail: %w", err)
		}
		body, err = io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("error reading conversation detail response: %w", err)
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			wait := c.resetWait(resp.Header)
			logrus.Warnf("Rate limited, sleeping for %.1f seconds", wait.Seconds())
			if c.onRateWait != nil {
				c.onRateWait()
			}
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("got a non-200 status from conversation detail: %d %s",
				resp.StatusCode, string(body))
		}
		break
	}
	return parseDetail(body)
}

// detailHeaders replays the browser request shape the endpoint expects.
// The CSRF token must appear identically in the cookie set and in the
// x-csrf-token header.
func (c *Client) detailHeaders(req *http.Request, tweetID string) {
	cookie := strings.Join([]string{
		"guest_id_marketing=" + guestID,
		"guest_id_ads=" + guestID,
		`personalization_id="v1_hV6te5/6PItvp10SCWb8dw=="`,
		"guest_id=" + guestID,
		"ct0=" + csrfToken,
		"gt=" + c.guestToken,
	}, "; ")
	req.Header.Set("accept", "*/*")
	req.Header.Set("accept-language", "en-US,en;q=0.9")
	req.Header.Set("authorization", bearerAuth)
	req.Header.Set("content-type", "application/json")
	req.Header.Set("cookie", cookie)
	req.Header.Set("dnt", "1")
	req.Header.Set("referer", "https://twitter.com/guhdong/status/"+tweetID)
	req.Header.Set("sec-ch-ua", `"Google Chrome";v="107", "Chromium";v="107", "Not=A?Brand";v="24"`)
	req.Header.Set("sec-ch-ua-mobile", "?0")
	req.Header.Set("sec-ch-ua-platform", "Windows")
	req.Header.Set("sec-fetch-dest", "empty")
	req.Header.Set("sec-fetch-mode", "cors")
	req.Header.Set("sec-fetch-site", "same-origin")
	req.Header.Set("user-agent", userAgent)
	req.Header.Set("x-csrf-token", csrfToken)
	req.Header.Set("x-guest-token", c.guestToken)
	req.Header.Set("x-twitter-active-user", "yes")
	req.Header.Set("x-twitter-client-language", "en")
}

func (c *Client) resetWait(h http.Header) time.Duration {
	reset, err := strconv.ParseFloat(h.Get(rateLimitResetHeader), 64)
	if err != nil {
		return 15 * time.Second
	}
	wait := time.Unix(int64(reset), 0).Sub(c.now())
	if wait < 0 {
		wait = 0
	}
	return wait
}

// sleepContext pauses for d but wakes up on cancellation, so an
// interrupt during a long rate-limit wait still reaches the caller.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Sentinel results, returned instead of scraped ids. Kept as slices so
// callers store them directly as scraped_refs.
var (
	deletedResult       = []string{types.TweetWasDeleted}
	couldntScrapeResult = []string{types.CouldntScrape}
)
