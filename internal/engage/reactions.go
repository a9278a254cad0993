// Package engage drives the optimistic engagement mutations: post reactions,
// threaded comments, poll votes, and shares. Local state changes apply before
// the network call settles; each engine documents its reconciliation strategy.
package engage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/opengrove/groupfeed/internal/logx"
	"github.com/opengrove/groupfeed/internal/types"
)

// ErrEngagementDisabled is returned for posts whose moderation state forbids
// engagement (under review or removed).
var ErrEngagementDisabled = errors.New("engagement disabled for this post")

const syncTimeout = 10 * time.Second

// ReactionAPI is the backend call behind the reaction toggle.
type ReactionAPI interface {
	ToggleReaction(ctx context.Context, target types.Target, reaction string) error
}

// Reactions is the per-post single-choice reaction state machine.
type Reactions struct {
	api ReactionAPI
	wg  sync.WaitGroup
}

// NewReactions creates the reaction engine.
func NewReactions(api ReactionAPI) *Reactions {
	return &Reactions{api: api}
}

// Toggle applies the reaction transition optimistically and syncs it in the
// background. Selecting the active reaction clears it; selecting a different
// one replaces it atomically. The sync call is fire-and-forget: a failure is
// logged, never rolled back; the next metrics refresh reconciles.
func (r *Reactions) Toggle(ctx context.Context, post *types.Post, reaction string) error {
	if !types.ValidReaction(reaction) {
		return fmt.Errorf("unknown reaction %q", reaction)
	}
	if !post.Moderation.CanEngage {
		return ErrEngagementDisabled
	}

	applyReactionToggle(post, reaction)

	target := post.Engagement
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		syncCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), syncTimeout)
		defer cancel()
		if err := r.api.ToggleReaction(syncCtx, target, reaction); err != nil {
			logx.Warn.Printf("reaction sync failed for %s %d: %v", target.Type, target.ID, err)
		}
	}()

	return nil
}

// Flush blocks until every in-flight background sync has settled. Short-lived
// callers must drain it before exiting, or the process dies with the toggle
// unsent.
func (r *Reactions) Flush() {
	r.wg.Wait()
}

// applyReactionToggle is the pure state transition. The like counter moves only
// on none→R and R→none; switching between two reactions leaves it unchanged.
func applyReactionToggle(post *types.Post, reaction string) {
	switch post.ViewerReaction {
	case reaction:
		post.ViewerReaction = ""
		if post.Metrics.Likes > 0 {
			post.Metrics.Likes--
		}
	case "":
		post.ViewerReaction = reaction
		post.Metrics.Likes++
	default:
		post.ViewerReaction = reaction
	}
}
