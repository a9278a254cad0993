// Package feed reconciles the two backend sources into one deduplicated,
// chronologically ordered post list and keeps it hydrated with engagement
// metrics.
package feed

import (
	"sort"

	"github.com/opengrove/groupfeed/internal/normalize"
	"github.com/opengrove/groupfeed/internal/types"
)

// GroupRules carries the group attributes that shape the reconciled list.
type GroupRules struct {
	// OwnerID is the group owner; only their posts survive announcement mode.
	OwnerID int64
	// ForumEnabled false puts the group in announcement mode.
	ForumEnabled bool
}

// OpenGroup is the rule set for a group with open posting.
var OpenGroup = GroupRules{ForumEnabled: true}

// Reconcile merges the raw records of both sources into the rendered feed:
// normalize, scope-filter, dedupe by id (first occurrence wins), sort by
// recency with stable tie order. A nil scope yields an empty list; unscoped
// content is never shown. In announcement mode only owner posts remain, and
// event posts are excluded from that filtered view.
func Reconcile(n *normalize.Normalizer, groupRaw, activityRaw []types.RawItem, scope *int64, rules GroupRules) []*types.Post {
	if scope == nil {
		return []*types.Post{}
	}

	seen := make(map[int64]bool)
	posts := make([]*types.Post, 0, len(groupRaw)+len(activityRaw))

	for _, raw := range append(append([]types.RawItem{}, groupRaw...), activityRaw...) {
		post := n.Normalize(raw)
		if post == nil {
			continue
		}
		if post.GroupID == nil || *post.GroupID != *scope {
			continue
		}
		if seen[post.ID] {
			continue
		}
		seen[post.ID] = true
		posts = append(posts, post)
	}

	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})

	if !rules.ForumEnabled {
		announcements := posts[:0]
		for _, p := range posts {
			// Authorless posts never match, even against a missing owner id.
			if p.Author.ID != 0 && p.Author.ID == rules.OwnerID && p.Kind != types.KindEvent {
				announcements = append(announcements, p)
			}
		}
		posts = announcements
	}

	return posts
}
