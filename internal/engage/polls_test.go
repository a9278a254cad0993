package engage

import (
	"context"
	"errors"
	"testing"

	"github.com/opengrove/groupfeed/internal/types"
)

type fakePollAPI struct {
	response types.RawItem
	err      error
	calls    int
}

func (f *fakePollAPI) VotePoll(ctx context.Context, feedItemID, optionID int64) (types.RawItem, error) {
	f.calls++
	return f.response, f.err
}

func pollPost() *types.Post {
	return &types.Post{
		ID:   3,
		Kind: types.KindPoll,
		Poll: &types.Poll{
			Question: "Q?",
			Options: []types.PollOption{
				{ID: 1, Label: "A", Votes: 2},
				{ID: 2, Label: "B", Votes: 1},
			},
		},
		Moderation: types.Moderation{CanEngage: true},
		Engagement: types.Target{Type: "post", ID: 3},
	}
}

func TestVoteReplacesTalliesFromServer(t *testing.T) {
	t.Parallel()

	api := &fakePollAPI{response: types.RawItem{
		"poll": map[string]any{
			"question": "Q?",
			"options": []any{
				map[string]any{"id": 1, "text": "A", "votes": 3},
				map[string]any{"id": 2, "text": "B", "votes": 1},
			},
			"user_votes": []any{1},
		},
	}}

	post := pollPost()
	if err := NewPolls(api).Vote(context.Background(), post, 1); err != nil {
		t.Fatal(err)
	}
	if post.Poll.Options[0].Votes != 3 {
		t.Errorf("option A votes = %d, want the server's tally", post.Poll.Options[0].Votes)
	}
	if !post.Poll.HasVoted(1) {
		t.Error("vote not recorded")
	}
}

func TestVoteGuards(t *testing.T) {
	t.Parallel()

	closed := pollPost()
	closed.Poll.IsClosed = true

	voted := pollPost()
	voted.Poll.UserVotes = []int64{1}

	moderated := pollPost()
	moderated.Moderation.CanEngage = false

	notPoll := pollPost()
	notPoll.Poll = nil

	tests := []struct {
		name string
		post *types.Post
		want error
	}{
		{"closed poll", closed, ErrPollClosed},
		{"already voted", voted, ErrAlreadyVoted},
		{"moderated post", moderated, ErrEngagementDisabled},
		{"not a poll", notPoll, ErrNotPoll},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			api := &fakePollAPI{}
			if err := NewPolls(api).Vote(context.Background(), tc.post, 1); err != tc.want {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
			if api.calls != 0 {
				t.Error("guarded vote reached the backend")
			}
		})
	}
}

func TestVoteBackendFailureLeavesPollUnchanged(t *testing.T) {
	t.Parallel()

	api := &fakePollAPI{err: errors.New("backend down")}
	post := pollPost()

	if err := NewPolls(api).Vote(context.Background(), post, 1); err == nil {
		t.Fatal("expected error")
	}
	if post.Poll.Options[0].Votes != 2 || len(post.Poll.UserVotes) != 0 {
		t.Errorf("poll changed on failed vote: %+v", post.Poll)
	}
}

func TestPercent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		votes, total, want int
	}{
		{0, 0, 0},
		{3, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{5, 5, 100},
		{1, 8, 13},
	}
	for _, tc := range tests {
		tc := tc
		if got := Percent(tc.votes, tc.total); got != tc.want {
			t.Errorf("Percent(%d, %d) = %d, want %d", tc.votes, tc.total, got, tc.want)
		}
	}
}
