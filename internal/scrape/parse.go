package scrape

import (
	"encoding/json"
	"fmt"
)

// detailVariables builds the GraphQL variables blob for one focal
// tweet. The flag set matches what the web client sends; changing it
// changes what the endpoint is willing to return.
func detailVariables(tweetID string) string {
	v := map[string]any{
		"focalTweetId":                           tweetID,
		"with_rux_injections":                    false,
		"includePromotedContent":                 false,
		"withCommunity":                          true,
		"withQuickPromoteEligibilityTweetFields": false,
		"withBirdwatchNotes":                     false,
		"withSuperFollowsUserFields":             false,
		"withDownvotePerspective":                false,
		"withReactionsMetadata":                  false,
		"withReactionsPerspective":               false,
		"withSuperFollowsTweetFields":            false,
		"withVoice":                              true,
		"withV2Timeline":                         true,
	}
	blob, _ := json.Marshal(v)
	return string(blob)
}

var detailFeatures = func() string {
	f := map[string]any{
		"responsive_web_twitter_blue_verified_badge_is_enabled":                    true,
		"verified_phone_label_enabled":                                             false,
		"responsive_web_graphql_timeline_navigation_enabled":                       true,
		"unified_cards_ad_metadata_container_dynamic_card_content_query_enabled":   true,
		"tweetypie_unmention_optimization_enabled":                                 true,
		"responsive_web_uc_gql_enabled":                                            true,
		"vibe_api_enabled":                                                         true,
		"responsive_web_edit_tweet_api_enabled":                                    true,
		"graphql_is_translatable_rweb_tweet_is_translatable_enabled":               true,
		"standardized_nudges_misinfo":                                              true,
		"tweet_with_visibility_results_prefer_gql_limited_actions_policy_enabled":  false,
		"interactive_text_enabled":                                                 true,
		"responsive_web_text_conversations_enabled":                                false,
		"responsive_web_enhance_cards_enabled":                                     true,
	}
	blob, _ := json.Marshal(f)
	return string(blob)
}()

// ParseError means the conversation document had a shape this client
// does not recognize. The endpoint's format has changed and silently
// skipping would lose relations, so the run must stop.
type ParseError struct {
	Reason  string
	Context string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unrecognized conversation document: %s (context: %s)", e.Reason, e.Context)
}

type detailResponse struct {
	Data json.RawMessage `json:"data"`
}

type detailData struct {
	Conversation struct {
		Instructions []struct {
			Entries []struct {
				Content entryContent `json:"content"`
			} `json:"entries"`
		} `json:"instructions"`
	} `json:"threaded_conversation_with_injections_v2"`
}

type entryContent struct {
	EntryType   string        `json:"entryType"`
	ItemContent *itemContent  `json:"itemContent"`
	Items       []moduleEntry `json:"items"`
}

type moduleEntry struct {
	Item struct {
		ItemContent *itemContent `json:"itemContent"`
	} `json:"item"`
}

type itemContent struct {
	ItemType     string `json:"itemType"`
	TweetResults struct {
		Result struct {
			TypeName string `json:"__typename"`
			RestID   string `json:"rest_id"`
		} `json:"result"`
	} `json:"tweet_results"`
}

// parseDetail extracts adjacent tweet ids from a conversation-detail
// document. A response with no data payload means the focal tweet was
// deleted since discovery; a parseable document yielding no tweets
// means it cannot be rendered for anonymous sessions. Both outcomes
// map to sentinels.
func parseDetail(body []byte) ([]string, error) {
	var resp detailResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ParseError{Reason: err.Error(), Context: truncate(string(body))}
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" || string(resp.Data) == "{}" {
		return deletedResult, nil
	}
	var data detailData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, &ParseError{Reason: err.Error(), Context: truncate(string(body))}
	}
	if len(data.Conversation.Instructions) == 0 {
		return nil, &ParseError{Reason: "no timeline instructions", Context: truncate(string(body))}
	}
	var result []string
	for _, entry := range data.Conversation.Instructions[0].Entries {
		ids, err := parseEntryContent(entry.Content)
		if err != nil {
			return nil, err
		}
		result = append(result, ids...)
	}
	if len(result) == 0 {
		return couldntScrapeResult, nil
	}
	return result, nil
}

// parseEntryContent handles the closed set of entry types: a single
// tweet item or a module of items. Anything else is fatal.
func parseEntryContent(content entryContent) ([]string, error) {
	switch content.EntryType {
	case "TimelineTimelineItem":
		if id, ok := timelineItemID(content.ItemContent); ok {
			return []string{id}, nil
		}
		return nil, nil
	case "TimelineTimelineModule":
		var ids []string
		for _, item := range content.Items {
			if id, ok := timelineItemID(item.Item.ItemContent); ok {
				ids = append(ids, id)
			}
		}
		return ids, nil
	default:
		raw, _ := json.Marshal(content)
		return nil, &ParseError{
			Reason:  fmt.Sprintf("unknown entryType %q", content.EntryType),
			Context: truncate(string(raw)),
		}
	}
}

// timelineItemID extracts the tweet id from one item. Entries whose
// inner type is not a tweet (ads, cursors rendered as items) are
// skipped.
func timelineItemID(ic *itemContent) (string, bool) {
	if ic == nil || ic.ItemType != "TimelineTweet" {
		return "", false
	}
	if ic.TweetResults.Result.TypeName != "Tweet" {
		return "", false
	}
	return ic.TweetResults.Result.RestID, true
}

func truncate(s string) string {
	const max = 512
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
