// Package moderation handles report filing and the visibility rules derived
// from a post's moderation status.
package moderation

import (
	"context"
	"errors"
	"fmt"

	"github.com/opengrove/groupfeed/internal/types"
)

// RemovedPlaceholder is the only content rendered for a removed post.
const RemovedPlaceholder = "This content was removed by moderators."

// ErrOwnPost is returned when a viewer reports their own post.
var ErrOwnPost = errors.New("cannot report your own post")

// RenderState tells the UI how to present a post.
type RenderState int

const (
	// RenderVisible shows the full post card.
	RenderVisible RenderState = iota
	// RenderBlurred hides content behind a blur notice while a report is open.
	RenderBlurred
	// RenderRemoved shows only the removal placeholder, with every engagement
	// control hidden. The post stays in the feed list so its id and metrics
	// remain addressable.
	RenderRemoved
)

// API is the backend call behind report filing.
type API interface {
	Report(ctx context.Context, target types.Target, reason, notes string) error
}

// StateFor resolves the render state of a post for a viewer. Authors and staff
// see posts under review unblurred.
func StateFor(post *types.Post, viewer types.Viewer) RenderState {
	switch post.Moderation.Status {
	case types.ModerationRemoved:
		return RenderRemoved
	case types.ModerationUnderReview:
		if viewer.ID == post.Author.ID || viewer.IsStaff {
			return RenderVisible
		}
		return RenderBlurred
	}
	return RenderVisible
}

// Reporter files moderation reports and applies the local under_review
// transition. Resolution out of under_review is driven entirely by backend
// moderators and observed on the next fetch.
type Reporter struct {
	api    API
	viewer types.Viewer
}

// NewReporter creates the reporting engine.
func NewReporter(api API, viewer types.Viewer) *Reporter {
	return &Reporter{api: api, viewer: viewer}
}

// Report files a report against a post. On success the post flips to
// under_review immediately: engagement disabled, blurred for everyone but the
// author and staff. A duplicate report surfaces as api.ErrAlreadyReported and
// leaves local state untouched.
func (r *Reporter) Report(ctx context.Context, post *types.Post, reason, notes string) error {
	if r.viewer.ID == post.Author.ID {
		return ErrOwnPost
	}

	if err := r.api.Report(ctx, post.Engagement, reason, notes); err != nil {
		return fmt.Errorf("report %s %d: %w", post.Engagement.Type, post.Engagement.ID, err)
	}

	if post.Moderation.Status == types.ModerationNone {
		post.Moderation.Status = types.ModerationUnderReview
		post.Moderation.CanEngage = false
		post.Moderation.IsBlurred = !r.viewer.IsStaff && r.viewer.ID != post.Author.ID
	}
	return nil
}
