package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/guhdong/threadsync/api/types"
)

const timelinePageSize = 100

// TimelinePaginator walks an author's timeline newest-first, strictly
// newer than sinceID, one page per Next call:
//
//	p := api.Timeline(userID, sinceID)
//	for p.Next(ctx) {
//		tweets := p.Tweets()
//		...
//	}
//	if err := p.Err(); err != nil { ... }
//
// The sequence is exhausted when the upstream stops returning a next
// page token.
type TimelinePaginator struct {
	client    *Client
	userID    string
	sinceID   string
	nextToken string
	started   bool
	done      bool
	page      []types.Tweet
	err       error
}

// Timeline returns a paginator over the author's tweets newer than
// sinceID. An empty sinceID means the full available history (bounded
// by the upstream's own retention).
func (c *Client) Timeline(userID, sinceID string) *TimelinePaginator {
	return &TimelinePaginator{client: c, userID: userID, sinceID: sinceID}
}

// Next fetches the following page. It returns false when the timeline
// is exhausted or a fetch failed; Err distinguishes the two. Pages
// whose tweets were all filtered out upstream still carry a next
// token and are skipped, not treated as the end.
func (p *TimelinePaginator) Next(ctx context.Context) bool {
	if p.done || p.err != nil {
		return false
	}
	for {
		if p.started && p.nextToken == "" {
			p.done = true
			return false
		}
		params := url.Values{}
		params.Set("max_results", fmt.Sprintf("%d", timelinePageSize))
		params.Set("tweet.fields", tweetFields)
		if p.sinceID != "" {
			params.Set("since_id", p.sinceID)
		}
		if p.nextToken != "" {
			params.Set("pagination_token", p.nextToken)
		}
		body, err := p.client.get(ctx, "users/"+p.userID+"/tweets", params)
		if err != nil {
			p.err = err
			return false
		}
		var raw struct {
			Data []types.Tweet `json:"data"`
			Meta struct {
				NextToken   string `json:"next_token"`
				ResultCount int    `json:"result_count"`
			} `json:"meta"`
		}
		if err := json.Unmarshal(body, &raw); err != nil {
			p.err = fmt.Errorf("error decoding timeline response: %w", err)
			return false
		}
		p.started = true
		p.nextToken = raw.Meta.NextToken
		if len(raw.Data) == 0 {
			continue
		}
		p.page = raw.Data
		return true
	}
}

// Tweets returns the page fetched by the last successful Next.
func (p *TimelinePaginator) Tweets() []types.Tweet {
	return p.page
}

func (p *TimelinePaginator) Err() error {
	return p.err
}
