package feed

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/opengrove/groupfeed/internal/api"
	"github.com/opengrove/groupfeed/internal/events"
	"github.com/opengrove/groupfeed/internal/logx"
	"github.com/opengrove/groupfeed/internal/normalize"
	"github.com/opengrove/groupfeed/internal/types"
)

// ErrSuperseded is returned when a Load was replaced by a newer Load for the
// same service before it finished. The stale result is discarded; the newer
// request owns the feed state.
var ErrSuperseded = errors.New("feed load superseded by a newer request")

// Source is the backend surface the feed service consumes.
type Source interface {
	Group(ctx context.Context, id int64) (*types.Group, error)
	GroupPosts(ctx context.Context, groupID int64) ([]types.RawItem, error)
	ActivityFeed(ctx context.Context, groupID int64) ([]types.RawItem, error)
	EngagementMetrics(ctx context.Context, ids []int64) (map[int64]api.MetricsSnapshot, error)
}

// Enricher decorates loaded posts (link previews). Failures must be swallowed.
type Enricher interface {
	Enrich(ctx context.Context, posts []*types.Post)
}

// Service owns the reconciled feed of one viewer. Loads follow last-request-
// wins: starting a new Load cancels the in-flight one, and a superseded Load
// never overwrites newer state.
type Service struct {
	source   Source
	norm     *normalize.Normalizer
	bus      *events.Bus
	enricher Enricher // optional

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	groupID int64
	posts   []*types.Post
}

// NewService creates a feed service. bus may be nil; enricher may be nil.
func NewService(source Source, viewer types.Viewer, bus *events.Bus, enricher Enricher) *Service {
	return &Service{
		source:   source,
		norm:     normalize.New(viewer),
		bus:      bus,
		enricher: enricher,
	}
}

// Load fetches, reconciles, and hydrates the feed for a group. Source failures
// degrade to empty slices so one broken endpoint never blanks the page; only
// supersession and cancellation surface as errors.
func (s *Service) Load(ctx context.Context, groupID int64) ([]*types.Post, error) {
	ctx, gen := s.begin(ctx)

	group, err := s.source.Group(ctx, groupID)
	rules := OpenGroup
	if err != nil {
		logx.Warn.Printf("group %d lookup failed, assuming open posting: %v", groupID, err)
	} else {
		rules = GroupRules{OwnerID: group.OwnerID, ForumEnabled: group.ForumEnabled}
	}

	groupRaw, activityRaw := s.fetchSources(ctx, groupID)

	scope := &groupID
	posts := Reconcile(s.norm, groupRaw, activityRaw, scope, rules)
	posts = Hydrate(ctx, s.source, posts)

	if s.enricher != nil {
		s.enricher.Enrich(ctx, posts)
	}

	return s.commit(ctx, gen, groupID, posts)
}

// begin registers a new load generation and cancels the previous in-flight one.
func (s *Service) begin(ctx context.Context) (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.gen++
	return ctx, s.gen
}

// commit installs the result unless a newer load started meanwhile or the
// caller cancelled this one.
func (s *Service) commit(ctx context.Context, gen uint64, groupID int64, posts []*types.Post) ([]*types.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return nil, ErrSuperseded
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.groupID = groupID
	s.posts = posts

	if s.bus != nil {
		s.bus.Publish(events.Event{Topic: events.TopicFeedRefreshed, GroupID: groupID, Payload: posts})
	}
	return posts, nil
}

// fetchSources issues both source requests concurrently. Each one falls back to
// an empty slice on failure.
func (s *Service) fetchSources(ctx context.Context, groupID int64) (groupRaw, activityRaw []types.RawItem) {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		items, err := s.source.GroupPosts(ctx, groupID)
		if err != nil {
			logx.Warn.Printf("group posts fetch failed for group %d: %v", groupID, err)
			return nil
		}
		groupRaw = items
		return nil
	})
	g.Go(func() error {
		items, err := s.source.ActivityFeed(ctx, groupID)
		if err != nil {
			logx.Warn.Printf("activity feed fetch failed for group %d: %v", groupID, err)
			return nil
		}
		activityRaw = items
		return nil
	})

	g.Wait()
	return groupRaw, activityRaw
}

// Posts returns the most recently committed feed.
func (s *Service) Posts() []*types.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.posts
}

// Post looks a post up by id in the committed feed.
func (s *Service) Post(id int64) *types.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.posts {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// GroupID returns the group of the committed feed.
func (s *Service) GroupID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groupID
}
