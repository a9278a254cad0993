package feed

import (
	"context"
	"errors"
	"testing"

	"github.com/opengrove/groupfeed/internal/api"
	"github.com/opengrove/groupfeed/internal/types"
)

type fakeMetrics struct {
	response map[int64]api.MetricsSnapshot
	err      error
	calls    int
	lastIDs  []int64
}

func (f *fakeMetrics) EngagementMetrics(ctx context.Context, ids []int64) (map[int64]api.MetricsSnapshot, error) {
	f.calls++
	f.lastIDs = ids
	return f.response, f.err
}

func testPosts() []*types.Post {
	return []*types.Post{
		{ID: 1, Metrics: types.Metrics{Likes: 1}},
		{ID: 2, Metrics: types.Metrics{Likes: 2}},
	}
}

func TestHydrateBatchesAllIDs(t *testing.T) {
	t.Parallel()

	fetcher := &fakeMetrics{response: map[int64]api.MetricsSnapshot{
		1: {Likes: 10, Comments: 3, Shares: 1, ViewerReaction: "like"},
		2: {Likes: 20},
	}}

	posts := Hydrate(context.Background(), fetcher, testPosts())

	if fetcher.calls != 1 {
		t.Errorf("fetcher called %d times, want a single batched call", fetcher.calls)
	}
	if len(fetcher.lastIDs) != 2 {
		t.Errorf("batched ids = %v", fetcher.lastIDs)
	}
	if posts[0].Metrics.Likes != 10 || posts[0].ViewerReaction != "like" {
		t.Errorf("post 1 = %+v %q", posts[0].Metrics, posts[0].ViewerReaction)
	}
	if posts[1].Metrics.Likes != 20 {
		t.Errorf("post 2 likes = %d", posts[1].Metrics.Likes)
	}
}

func TestHydratePartialResponse(t *testing.T) {
	t.Parallel()

	fetcher := &fakeMetrics{response: map[int64]api.MetricsSnapshot{
		1: {Likes: 10},
	}}

	posts := Hydrate(context.Background(), fetcher, testPosts())
	if posts[0].Metrics.Likes != 10 {
		t.Errorf("post 1 likes = %d, want 10", posts[0].Metrics.Likes)
	}
	if posts[1].Metrics.Likes != 2 {
		t.Errorf("post 2 likes = %d, want normalize-time default preserved", posts[1].Metrics.Likes)
	}
}

func TestHydrateFailureLeavesPostsUnchanged(t *testing.T) {
	t.Parallel()

	fetcher := &fakeMetrics{err: errors.New("backend down")}

	posts := Hydrate(context.Background(), fetcher, testPosts())
	if posts[0].Metrics.Likes != 1 || posts[1].Metrics.Likes != 2 {
		t.Errorf("metrics changed on failure: %+v %+v", posts[0].Metrics, posts[1].Metrics)
	}
}
