package types

// SentinelID is a reserved non-numeric tweet id recording a terminal
// scrape outcome. Sentinels are globally known and never fetched or
// scraped again.
type SentinelID = string

const (
	// TweetWasDeleted marks a tweet that existed when discovered but was
	// gone by the time its conversation was scraped.
	TweetWasDeleted SentinelID = "tweet_was_deleted"

	// CouldntScrape marks a tweet whose conversation view rendered no
	// entries (age-restricted, withheld, or otherwise hidden from
	// logged-out sessions).
	CouldntScrape SentinelID = "couldnt_scrape"
)

// IsSentinel reports whether id is one of the reserved sentinel values.
func IsSentinel(id string) bool {
	return id == TweetWasDeleted || id == CouldntScrape
}

// User is a Twitter account as returned by the v2 user lookup endpoints.
// Users are append-only: once in the database they are never mutated or
// removed.
type User struct {
	ID              string `json:"id"`
	Username        string `json:"username,omitempty"`
	Name            string `json:"name,omitempty"`
	Description     string `json:"description,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
	Location        string `json:"location,omitempty"`
	PinnedTweetID   string `json:"pinned_tweet_id,omitempty"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
	URL             string `json:"url,omitempty"`
}

// ReferencedTweet is a structural link from one tweet to another:
// replied_to, quoted or retweeted.
type ReferencedTweet struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Tweet is a single tweet record. Tweets are append-only; the only
// permitted mutation is attaching ScrapedRefs exactly once.
type Tweet struct {
	ID                string            `json:"id"`
	AuthorID          string            `json:"author_id"`
	ConversationID    string            `json:"conversation_id,omitempty"`
	CreatedAt         string            `json:"created_at,omitempty"`
	Text              string            `json:"text,omitempty"`
	InReplyToUserID   string            `json:"in_reply_to_user_id,omitempty"`
	PossiblySensitive bool              `json:"possibly_sensitive,omitempty"`
	Attachments       map[string]any    `json:"attachments,omitempty"`
	ReferencedTweets  []ReferencedTweet `json:"referenced_tweets,omitempty"`

	// ScrapedRefs holds the adjacent tweet ids discovered by scraping
	// this tweet's conversation view, or a single sentinel. Once set it
	// is authoritative, even when it records a negative outcome.
	ScrapedRefs []string `json:"scraped_refs,omitempty"`
}

// ResourceError is a permanently failed lookup for one resource id.
// Recording it makes the id terminal; it is never requested again.
type ResourceError struct {
	ResourceID string `json:"resource_id"`
	Kind       string `json:"kind,omitempty"`
	Title      string `json:"title,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// Database is the whole persisted document. All three lists are
// append-only. The store does not enforce id uniqueness; callers keep
// the lists duplicate-free through the known-id set.
type Database struct {
	Users  []User          `json:"users"`
	Tweets []Tweet         `json:"tweets"`
	Errors []ResourceError `json:"errors"`
}

// KnownIDs returns the set of resolved tweet ids: every stored tweet,
// every permanently errored id, and both sentinels.
func (db *Database) KnownIDs() map[string]struct{} {
	known := make(map[string]struct{}, len(db.Tweets)+len(db.Errors)+2)
	for _, t := range db.Tweets {
		known[t.ID] = struct{}{}
	}
	for _, e := range db.Errors {
		known[e.ResourceID] = struct{}{}
	}
	known[TweetWasDeleted] = struct{}{}
	known[CouldntScrape] = struct{}{}
	return known
}

// UserByID returns the stored user with the given id, if any.
func (db *Database) UserByID(id string) (*User, bool) {
	for i := range db.Users {
		if db.Users[i].ID == id {
			return &db.Users[i], true
		}
	}
	return nil, false
}
