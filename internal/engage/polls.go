package engage

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/opengrove/groupfeed/internal/normalize"
	"github.com/opengrove/groupfeed/internal/types"
)

var (
	// ErrNotPoll is returned when voting on a post without a poll payload.
	ErrNotPoll = errors.New("post is not a poll")
	// ErrPollClosed is returned when the poll no longer accepts votes.
	ErrPollClosed = errors.New("poll is closed")
	// ErrAlreadyVoted is returned when the viewer already selected this option.
	ErrAlreadyVoted = errors.New("already voted for this option")
)

// PollAPI is the backend call behind poll voting.
type PollAPI interface {
	VotePoll(ctx context.Context, feedItemID, optionID int64) (types.RawItem, error)
}

// Polls is the poll voting engine.
type Polls struct {
	api PollAPI
}

// NewPolls creates the poll engine.
func NewPolls(api PollAPI) *Polls {
	return &Polls{api: api}
}

// Vote casts a single-selection vote. On success the post's entire poll
// payload is replaced with the server's response. Tallies are never
// incremented locally.
func (p *Polls) Vote(ctx context.Context, post *types.Post, optionID int64) error {
	if post.Poll == nil {
		return ErrNotPoll
	}
	if !post.Moderation.CanEngage {
		return ErrEngagementDisabled
	}
	if post.Poll.IsClosed {
		return ErrPollClosed
	}
	if post.Poll.HasVoted(optionID) {
		return ErrAlreadyVoted
	}

	raw, err := p.api.VotePoll(ctx, post.ID, optionID)
	if err != nil {
		return fmt.Errorf("vote on poll %d: %w", post.ID, err)
	}

	if updated := normalize.PollPayload(raw); updated != nil {
		post.Poll = updated
	}
	return nil
}

// Percent returns the rounded share of votes an option holds, 0 when the poll
// has no votes.
func Percent(optionVotes, totalVotes int) int {
	if totalVotes <= 0 {
		return 0
	}
	return int(math.Round(float64(optionVotes) / float64(totalVotes) * 100))
}
