package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/guhdong/threadsync/api/types"
)

// UserLookup is the result of a batched user lookup: found users plus
// per-resource errors for the ids that could not be resolved.
type UserLookup struct {
	Users  []types.User
	Errors []types.ResourceError
}

// TweetLookup is the result of a batched tweet lookup.
type TweetLookup struct {
	Tweets []types.Tweet
	Errors []types.ResourceError
}

// apiError is the upstream partial-error shape. Depending on the
// endpoint the failing id arrives as resource_id or value.
type apiError struct {
	ResourceID   string `json:"resource_id"`
	Value        string `json:"value"`
	ResourceType string `json:"resource_type"`
	Type         string `json:"type"`
	Title        string `json:"title"`
	Detail       string `json:"detail"`
}

func (e apiError) toResourceError() types.ResourceError {
	id := e.ResourceID
	if id == "" {
		id = e.Value
	}
	kind := e.ResourceType
	if kind == "" {
		kind = e.Type
	}
	return types.ResourceError{
		ResourceID: id,
		Kind:       kind,
		Title:      e.Title,
		Detail:     e.Detail,
	}
}

func convertErrors(errs []apiError) []types.ResourceError {
	if len(errs) == 0 {
		return nil
	}
	out := make([]types.ResourceError, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.toResourceError())
	}
	return out
}

// UsersByUsernames looks up at most MaxLookupBatch users by username in
// one call.
func (c *Client) UsersByUsernames(ctx context.Context, usernames []string) (*UserLookup, error) {
	if len(usernames) > MaxLookupBatch {
		return nil, fmt.Errorf("username batch of %d exceeds limit of %d", len(usernames), MaxLookupBatch)
	}
	params := url.Values{}
	params.Set("usernames", strings.Join(usernames, ","))
	params.Set("user.fields", userFields)
	return c.userLookup(ctx, "users/by", params)
}

// UsersByIDs looks up at most MaxLookupBatch users by id in one call.
func (c *Client) UsersByIDs(ctx context.Context, ids []string) (*UserLookup, error) {
	if len(ids) > MaxLookupBatch {
		return nil, fmt.Errorf("user id batch of %d exceeds limit of %d", len(ids), MaxLookupBatch)
	}
	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))
	params.Set("user.fields", userFields)
	return c.userLookup(ctx, "users", params)
}

func (c *Client) userLookup(ctx context.Context, endpoint string, params url.Values) (*UserLookup, error) {
	body, err := c.get(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	var raw struct {
		Data   []types.User `json:"data"`
		Errors []apiError   `json:"errors"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("error decoding user lookup response: %w", err)
	}
	return &UserLookup{Users: raw.Data, Errors: convertErrors(raw.Errors)}, nil
}

// TweetsByIDs looks up at most MaxLookupBatch tweets by id in one
// call. Ids that no longer resolve come back as per-resource errors
// alongside the found tweets.
func (c *Client) TweetsByIDs(ctx context.Context, ids []string) (*TweetLookup, error) {
	if len(ids) > MaxLookupBatch {
		return nil, fmt.Errorf("tweet id batch of %d exceeds limit of %d", len(ids), MaxLookupBatch)
	}
	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))
	params.Set("tweet.fields", tweetFields)
	body, err := c.get(ctx, "tweets", params)
	if err != nil {
		return nil, err
	}
	var raw struct {
		Data   []types.Tweet `json:"data"`
		Errors []apiError    `json:"errors"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("error decoding tweet lookup response: %w", err)
	}
	return &TweetLookup{Tweets: raw.Data, Errors: convertErrors(raw.Errors)}, nil
}
