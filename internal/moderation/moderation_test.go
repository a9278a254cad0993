package moderation

import (
	"context"
	"errors"
	"testing"

	"github.com/opengrove/groupfeed/internal/api"
	"github.com/opengrove/groupfeed/internal/types"
)

type fakeReportAPI struct {
	err   error
	calls int
}

func (f *fakeReportAPI) Report(ctx context.Context, target types.Target, reason, notes string) error {
	f.calls++
	return f.err
}

func reportablePost(authorID int64) *types.Post {
	return &types.Post{
		ID:         3,
		Author:     types.Author{ID: authorID},
		Moderation: types.Moderation{Status: types.ModerationNone, CanEngage: true},
		Engagement: types.Target{Type: "post", ID: 3},
	}
}

func TestStateFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status types.ModerationStatus
		viewer types.Viewer
		want   RenderState
	}{
		{"clean post", types.ModerationNone, types.Viewer{ID: 9}, RenderVisible},
		{"under review, other viewer", types.ModerationUnderReview, types.Viewer{ID: 9}, RenderBlurred},
		{"under review, author", types.ModerationUnderReview, types.Viewer{ID: 7}, RenderVisible},
		{"under review, staff", types.ModerationUnderReview, types.Viewer{ID: 9, IsStaff: true}, RenderVisible},
		{"removed, other viewer", types.ModerationRemoved, types.Viewer{ID: 9}, RenderRemoved},
		{"removed, author", types.ModerationRemoved, types.Viewer{ID: 7}, RenderRemoved},
		{"removed, staff", types.ModerationRemoved, types.Viewer{ID: 9, IsStaff: true}, RenderRemoved},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			post := reportablePost(7)
			post.Moderation.Status = tc.status
			if got := StateFor(post, tc.viewer); got != tc.want {
				t.Errorf("state = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestReportTransitionsToUnderReview(t *testing.T) {
	t.Parallel()

	backend := &fakeReportAPI{}
	post := reportablePost(7)

	if err := NewReporter(backend, types.Viewer{ID: 42}).Report(context.Background(), post, "spam", ""); err != nil {
		t.Fatal(err)
	}
	if post.Moderation.Status != types.ModerationUnderReview {
		t.Errorf("status = %s", post.Moderation.Status)
	}
	if post.Moderation.CanEngage {
		t.Error("reported post should not be engageable")
	}
	if !post.Moderation.IsBlurred {
		t.Error("reported post should blur for the reporting viewer")
	}
}

func TestReportOwnPost(t *testing.T) {
	t.Parallel()

	backend := &fakeReportAPI{}
	post := reportablePost(42)

	if err := NewReporter(backend, types.Viewer{ID: 42}).Report(context.Background(), post, "spam", ""); err != ErrOwnPost {
		t.Fatalf("err = %v, want ErrOwnPost", err)
	}
	if backend.calls != 0 {
		t.Error("own-post report reached the backend")
	}
}

func TestReportDuplicateLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	backend := &fakeReportAPI{err: api.ErrAlreadyReported}
	post := reportablePost(7)

	err := NewReporter(backend, types.Viewer{ID: 42}).Report(context.Background(), post, "spam", "")
	if !errors.Is(err, api.ErrAlreadyReported) {
		t.Fatalf("err = %v, want ErrAlreadyReported in the chain", err)
	}
	if post.Moderation.Status != types.ModerationNone || !post.Moderation.CanEngage {
		t.Errorf("moderation changed on duplicate report: %+v", post.Moderation)
	}
}

func TestReportDoesNotRegressRemovedPost(t *testing.T) {
	t.Parallel()

	post := reportablePost(7)
	post.Moderation.Status = types.ModerationRemoved
	post.Moderation.CanEngage = false

	if err := NewReporter(&fakeReportAPI{}, types.Viewer{ID: 42}).Report(context.Background(), post, "spam", ""); err != nil {
		t.Fatal(err)
	}
	if post.Moderation.Status != types.ModerationRemoved {
		t.Errorf("status = %s, removed must stay removed", post.Moderation.Status)
	}
}
