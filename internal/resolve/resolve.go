// Package resolve maps author selectors to canonical user ids. A
// selector is a literal numeric id, a username, or an "@"-prefixed
// username (the prefix forces username interpretation for all-digit
// handles).
package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/guhdong/threadsync/api/types"
	"github.com/guhdong/threadsync/internal/stats"
	"github.com/guhdong/threadsync/pkg/client"
)

// API is the part of the official client the resolver needs.
type API interface {
	UsersByUsernames(ctx context.Context, usernames []string) (*client.UserLookup, error)
}

// ResolutionError means a username batch could not be resolved. It is
// fatal: no partial resolution is accepted.
type ResolutionError struct {
	Usernames []string
	Errors    []types.ResourceError
	Cause     error
}

func (e *ResolutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("couldn't look up users %v: %v", e.Usernames, e.Cause)
	}
	return fmt.Sprintf("couldn't look up users %v: %+v", e.Usernames, e.Errors)
}

func (e *ResolutionError) Unwrap() error {
	return e.Cause
}

// Resolver resolves selectors against the in-database user cache,
// falling back to batched username lookups. Newly resolved users are
// appended to the database so future runs hit the cache.
type Resolver struct {
	API   API
	DB    *types.Database
	Stats *stats.Collector
	RunID string
}

// UserIDs returns one canonical id per selector, in input order.
func (r *Resolver) UserIDs(ctx context.Context, selectors []string) ([]string, error) {
	if len(selectors) == 0 {
		return nil, nil
	}
	result := make([]string, len(selectors))
	need := map[string][]int{}
	for i, sel := range selectors {
		name, isName := parseSelector(sel)
		if !isName {
			result[i] = name
			continue
		}
		if user, ok := r.cached(name); ok {
			result[i] = user.ID
			continue
		}
		need[strings.ToLower(name)] = append(need[strings.ToLower(name)], i)
	}
	if len(need) == 0 {
		return result, nil
	}

	usernames := make([]string, 0, len(need))
	for name := range need {
		usernames = append(usernames, name)
	}
	for start := 0; start < len(usernames); start += client.MaxLookupBatch {
		end := min(start+client.MaxLookupBatch, len(usernames))
		batch := usernames[start:end]
		got, err := r.API.UsersByUsernames(ctx, batch)
		if err != nil {
			return nil, &ResolutionError{Usernames: batch, Cause: err}
		}
		if len(got.Errors) > 0 {
			return nil, &ResolutionError{Usernames: batch, Errors: got.Errors}
		}
		for _, user := range got.Users {
			r.DB.Users = append(r.DB.Users, user)
			for _, pos := range need[strings.ToLower(user.Username)] {
				result[pos] = user.ID
			}
		}
		if r.Stats != nil {
			r.Stats.Add(r.RunID, stats.UsernameLookups, uint(len(batch)))
		}
		logrus.Infof("Looked up %d usernames", len(batch))
	}
	for name, positions := range need {
		for _, pos := range positions {
			if result[pos] == "" {
				return nil, &ResolutionError{Usernames: []string{name}}
			}
		}
	}
	return result, nil
}

// cached finds a user by case-insensitive username among already known
// users.
func (r *Resolver) cached(name string) (*types.User, bool) {
	for i := range r.DB.Users {
		u := &r.DB.Users[i]
		if u.Username != "" && strings.EqualFold(u.Username, name) {
			return u, true
		}
	}
	return nil, false
}

// parseSelector splits a selector into (value, isUsername).
func parseSelector(sel string) (string, bool) {
	if name, ok := strings.CutPrefix(sel, "@"); ok {
		return name, true
	}
	if isDigits(sel) {
		return sel, false
	}
	return sel, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
