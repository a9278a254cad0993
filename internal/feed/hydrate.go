package feed

import (
	"context"

	"github.com/opengrove/groupfeed/internal/api"
	"github.com/opengrove/groupfeed/internal/logx"
	"github.com/opengrove/groupfeed/internal/types"
)

// MetricsFetcher is the single batched metrics call, keyed by the full id list.
type MetricsFetcher interface {
	EngagementMetrics(ctx context.Context, ids []int64) (map[int64]api.MetricsSnapshot, error)
}

// Hydrate folds batch-fetched engagement metrics into the posts, in place. One
// round trip covers every id; there is no per-post fallback. On fetch failure
// or for ids missing from a partial response, posts keep their
// normalization-time defaults.
func Hydrate(ctx context.Context, fetcher MetricsFetcher, posts []*types.Post) []*types.Post {
	if len(posts) == 0 {
		return posts
	}

	ids := make([]int64, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	metrics, err := fetcher.EngagementMetrics(ctx, ids)
	if err != nil {
		logx.Warn.Printf("metrics hydration failed, keeping defaults: %v", err)
		return posts
	}

	for _, p := range posts {
		snap, ok := metrics[p.ID]
		if !ok {
			continue
		}
		p.Metrics = types.Metrics{Likes: snap.Likes, Comments: snap.Comments, Shares: snap.Shares}
		p.ViewerReaction = snap.ViewerReaction
	}

	return posts
}
