// Package report aggregates per-user activity from a saved database:
// tweet count and distinct conversation count per author, sorted by
// tweet count.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/guhdong/threadsync/api/types"
)

// Row is one user's aggregate.
type Row struct {
	Username      string
	Name          string
	Tweets        int
	Conversations int
}

// Rows computes the per-user aggregates, sorted descending by tweet
// count. Tweets by authors missing from the user list are ignored.
func Rows(db *types.Database) []Row {
	type agg struct {
		user   *types.User
		tweets int
		convos map[string]struct{}
	}
	byID := map[string]*agg{}
	order := make([]*agg, 0, len(db.Users))
	for i := range db.Users {
		u := &db.Users[i]
		if _, ok := byID[u.ID]; ok {
			continue
		}
		a := &agg{user: u, convos: map[string]struct{}{}}
		byID[u.ID] = a
		order = append(order, a)
	}
	for i := range db.Tweets {
		t := &db.Tweets[i]
		a, ok := byID[t.AuthorID]
		if !ok {
			continue
		}
		a.tweets++
		a.convos[t.ConversationID] = struct{}{}
	}
	rows := make([]Row, 0, len(order))
	for _, a := range order {
		rows = append(rows, Row{
			Username:      a.user.Username,
			Name:          a.user.Name,
			Tweets:        a.tweets,
			Conversations: len(a.convos),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Tweets > rows[j].Tweets
	})
	return rows
}

// Write prints the aggregates as a fixed-width table.
func Write(w io.Writer, db *types.Database) error {
	if _, err := fmt.Fprintf(w, "@%-18s %-28s %8s %8s\n", "username", "name", "tweets", "convos"); err != nil {
		return err
	}
	for _, row := range Rows(db) {
		if _, err := fmt.Fprintf(w, "@%-18s %-28s %8d %8d\n",
			row.Username, row.Name, row.Tweets, row.Conversations); err != nil {
			return err
		}
	}
	return nil
}
