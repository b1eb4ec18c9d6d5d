package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/guhdong/threadsync/api/types"
)

const (
	defaultBaseURL = "https://api.twitter.com/2"

	// MaxLookupBatch is the upstream limit on ids/usernames per batched
	// lookup call.
	MaxLookupBatch = 100

	// rateLimitResetHeader carries the unix time at which a throttled
	// endpoint accepts requests again.
	rateLimitResetHeader = "x-rate-limit-reset"
)

// tweetFields and userFields mirror the expansions requested on every
// tweet and user lookup.
var (
	tweetFields = "attachments,author_id,conversation_id,created_at," +
		"in_reply_to_user_id,possibly_sensitive,referenced_tweets"
	userFields = "created_at,description,location,pinned_tweet_id," +
		"profile_image_url,url"
)

// Client talks to the official API with user-context OAuth 1.0a.
// Rate limiting is absorbed here: a throttled response makes the
// client sleep until the server-announced reset and retry, so callers
// never see a rate-limit error.
type Client struct {
	baseURL    string
	keys       *types.Keys
	httpClient *http.Client
	limiter    *rate.Limiter
	now        func() time.Time
	sleep      func(time.Duration)
	nonce      func() string
}

func NewClient(keys *types.Keys, opts ...Option) (*Client, error) {
	if keys == nil || keys.ConsumerKey == "" || keys.ConsumerSecret == "" ||
		keys.AccessToken == "" || keys.AccessTokenSecret == "" {
		return nil, fmt.Errorf("incomplete credential bundle")
	}
	o, err := NewOptions(opts...)
	if err != nil {
		return nil, err
	}
	nonce := o.Nonce
	if nonce == nil {
		nonce = randomNonce
	}
	return &Client{
		baseURL: o.BaseURL,
		keys:    keys,
		httpClient: &http.Client{
			Timeout: o.Timeout,
			Transport: &http.Transport{
				MaxIdleConns: o.MaxIdleConns,
			},
		},
		limiter: o.Limiter,
		now:     o.Now,
		sleep:   o.Sleep,
		nonce:   nonce,
	}, nil
}

// get issues a signed GET and returns the response body. On 429 it
// sleeps until the reset instant from the response headers and retries
// the same request.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	u := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("error creating GET request: %w", err)
		}
		c.sign(req, params)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("error making GET request: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("error reading response body: %w", err)
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			wait := c.resetWait(resp.Header)
			logrus.Warnf("Rate limited on %s, sleeping for %.1f seconds", endpoint, wait.Seconds())
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			c.sleep(wait)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status code %d from %s: %s",
				resp.StatusCode, endpoint, string(body))
		}
		return body, nil
	}
}

// resetWait reads the server-specified reset instant. When the header
// is missing or malformed a short fallback pause is used.
func (c *Client) resetWait(h http.Header) time.Duration {
	reset, err := strconv.ParseInt(h.Get(rateLimitResetHeader), 10, 64)
	if err != nil {
		return 15 * time.Second
	}
	wait := time.Unix(reset, 0).Sub(c.now())
	if wait < 0 {
		wait = 0
	}
	return wait
}
