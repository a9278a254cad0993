package render

import (
	"strings"
	"testing"
	"time"

	"github.com/opengrove/groupfeed/internal/moderation"
	"github.com/opengrove/groupfeed/internal/types"
)

var viewer = types.Viewer{ID: 42}

func textPost(id int64) *types.Post {
	return &types.Post{
		ID:         id,
		Kind:       types.KindText,
		Author:     types.Author{ID: 7, Name: "Ada"},
		Text:       "hello world",
		CreatedAt:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Metrics:    types.Metrics{Likes: 3, Comments: 1},
		Moderation: types.Moderation{CanEngage: true},
	}
}

func TestFeedRemovedPostShowsOnlyPlaceholder(t *testing.T) {
	t.Parallel()

	post := textPost(1)
	post.Moderation.Status = types.ModerationRemoved

	out := Feed([]*types.Post{post}, viewer)
	if !strings.Contains(out, moderation.RemovedPlaceholder) {
		t.Errorf("placeholder missing:\n%s", out)
	}
	if strings.Contains(out, "hello world") {
		t.Errorf("removed content leaked:\n%s", out)
	}
	if strings.Contains(out, "likes") {
		t.Errorf("metrics rendered for removed post:\n%s", out)
	}
	if strings.Contains(out, "Ada") {
		t.Errorf("author rendered for removed post:\n%s", out)
	}
}

func TestFeedBlurredPostHidesContent(t *testing.T) {
	t.Parallel()

	post := textPost(1)
	post.Moderation.Status = types.ModerationUnderReview
	post.Moderation.IsBlurred = true

	out := Feed([]*types.Post{post}, viewer)
	if !strings.Contains(out, "hidden while under review") {
		t.Errorf("blur notice missing:\n%s", out)
	}
	if strings.Contains(out, "hello world") {
		t.Errorf("blurred content leaked:\n%s", out)
	}
}

func TestFeedAuthorSeesOwnReportedPost(t *testing.T) {
	t.Parallel()

	post := textPost(1)
	post.Moderation.Status = types.ModerationUnderReview

	out := Feed([]*types.Post{post}, types.Viewer{ID: 7})
	if !strings.Contains(out, "hello world") {
		t.Errorf("author cannot see their own post:\n%s", out)
	}
}

func TestFeedVisiblePost(t *testing.T) {
	t.Parallel()

	post := textPost(1)
	post.ViewerReaction = types.ReactionLike

	out := Feed([]*types.Post{post}, viewer)
	for _, want := range []string{"hello world", "Ada", "3 likes", "1 comments", "you: like"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q:\n%s", want, out)
		}
	}
}

func TestFeedPoll(t *testing.T) {
	t.Parallel()

	post := textPost(1)
	post.Kind = types.KindPoll
	post.Poll = &types.Poll{
		Question: "Best option?",
		Options: []types.PollOption{
			{ID: 1, Label: "A", Votes: 3},
			{ID: 2, Label: "B", Votes: 1},
		},
		UserVotes: []int64{1},
	}

	out := Feed([]*types.Post{post}, viewer)
	if !strings.Contains(out, "Best option?") {
		t.Errorf("question missing:\n%s", out)
	}
	if !strings.Contains(out, "75%") || !strings.Contains(out, "25%") {
		t.Errorf("percentages missing:\n%s", out)
	}
	if !strings.Contains(out, "* A") {
		t.Errorf("voted marker missing:\n%s", out)
	}
}

func TestFeedEmpty(t *testing.T) {
	t.Parallel()

	if out := Feed(nil, viewer); !strings.Contains(out, "No posts.") {
		t.Errorf("out = %q", out)
	}
}

func TestCommentsIndentation(t *testing.T) {
	t.Parallel()

	roots := []*types.Comment{
		{
			ID:     1,
			Author: types.Author{Name: "Ada"},
			Text:   "root",
			Children: []*types.Comment{
				{ID: 2, Author: types.Author{Name: "Bob"}, Text: "reply"},
			},
		},
	}

	out := Comments(roots)
	if !strings.Contains(out, "[1] Ada: root") {
		t.Errorf("root missing:\n%s", out)
	}
	if !strings.Contains(out, "  [2] Bob: reply") {
		t.Errorf("reply not indented:\n%s", out)
	}
}
