package app

import (
	"context"
	"sync"
	"time"

	"github.com/opengrove/groupfeed/internal/api"
	"github.com/opengrove/groupfeed/internal/config"
	"github.com/opengrove/groupfeed/internal/engage"
	"github.com/opengrove/groupfeed/internal/events"
	"github.com/opengrove/groupfeed/internal/feed"
	"github.com/opengrove/groupfeed/internal/logx"
	"github.com/opengrove/groupfeed/internal/moderation"
	"github.com/opengrove/groupfeed/internal/preview"
	"github.com/opengrove/groupfeed/internal/store"
	"github.com/opengrove/groupfeed/internal/types"
)

// App wires the feed engine and its engagement sub-engines together.
type App struct {
	mu  sync.RWMutex
	bus *events.Bus  // immutable after creation
	db  *store.Store // immutable after creation, may be nil

	// Mutable fields - use getSnapshot() for concurrent access.
	config    *config.Config
	client    *api.Client
	feed      *feed.Service
	reactions *engage.Reactions
	threads   *engage.Threads
	polls     *engage.Polls
	shares    *engage.Shares
	reporter  *moderation.Reporter
}

// snapshot holds fields that may be replaced by ReloadConfig.
type snapshot struct {
	config    *config.Config
	client    *api.Client
	feed      *feed.Service
	reactions *engage.Reactions
	threads   *engage.Threads
	polls     *engage.Polls
	shares    *engage.Shares
	reporter  *moderation.Reporter
}

// getSnapshot returns a snapshot of mutable fields under read lock.
func (a *App) getSnapshot() snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return snapshot{
		config:    a.config,
		client:    a.client,
		feed:      a.feed,
		reactions: a.reactions,
		threads:   a.threads,
		polls:     a.polls,
		shares:    a.shares,
		reporter:  a.reporter,
	}
}

// New creates a new App instance. The snapshot store is optional: a nil db
// disables snapshot logging.
func New(cfg *config.Config, db *store.Store) *App {
	a := &App{
		bus: events.New(),
		db:  db,
	}
	a.apply(cfg)
	return a
}

// apply rebuilds every config-derived component.
func (a *App) apply(cfg *config.Config) {
	viewer := types.Viewer{ID: cfg.Viewer.UserID, IsStaff: cfg.Viewer.IsStaff}
	timeout := time.Duration(cfg.Backend.TimeoutSeconds) * time.Second
	client := api.New(cfg.Backend.BaseURL, cfg.Backend.AuthToken, timeout)

	var enricher feed.Enricher
	if cfg.Feed.FetchLinkPreviews {
		enricher = preview.New(timeout, cfg.Feed.ReplyConcurrency)
	}

	a.mu.Lock()
	a.config = cfg
	a.client = client
	a.feed = feed.NewService(client, viewer, a.bus, enricher)
	a.reactions = engage.NewReactions(client)
	a.threads = engage.NewThreads(client, viewer, cfg.Feed.ReplyConcurrency)
	a.polls = engage.NewPolls(client)
	a.shares = engage.NewShares(client, viewer)
	a.reporter = moderation.NewReporter(client, viewer)
	a.mu.Unlock()
}

// ReloadConfig reloads the configuration from disk and rebuilds the engines.
func (a *App) ReloadConfig() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.apply(cfg)
	logx.Info.Printf("Configuration reloaded")
	return nil
}

// Viewer returns the configured viewer identity.
func (a *App) Viewer() types.Viewer {
	s := a.getSnapshot()
	return types.Viewer{ID: s.config.Viewer.UserID, IsStaff: s.config.Viewer.IsStaff}
}

// Bus exposes the event bus for subscribers.
func (a *App) Bus() *events.Bus {
	return a.bus
}

// RefreshFeed loads the reconciled, hydrated feed for a group and logs a
// snapshot when the store is enabled.
func (a *App) RefreshFeed(ctx context.Context, groupID int64) ([]*types.Post, error) {
	s := a.getSnapshot()

	posts, err := s.feed.Load(ctx, groupID)
	if err != nil {
		return nil, err
	}
	logx.Info.Printf("Loaded %d posts for group %d", len(posts), groupID)

	if a.db != nil {
		if err := a.db.SaveSnapshot(groupID, posts); err != nil {
			logx.Warn.Printf("snapshot save failed: %v", err)
		}
	}

	return posts, nil
}

// Feed returns the feed service.
func (a *App) Feed() *feed.Service { return a.getSnapshot().feed }

// Reactions returns the reaction engine.
func (a *App) Reactions() *engage.Reactions { return a.getSnapshot().reactions }

// Threads returns the comment engine.
func (a *App) Threads() *engage.Threads { return a.getSnapshot().threads }

// Polls returns the poll voting engine.
func (a *App) Polls() *engage.Polls { return a.getSnapshot().polls }

// Shares returns the share engine.
func (a *App) Shares() *engage.Shares { return a.getSnapshot().shares }

// Reporter returns the moderation reporter.
func (a *App) Reporter() *moderation.Reporter { return a.getSnapshot().reporter }

// Client returns the API client.
func (a *App) Client() *api.Client { return a.getSnapshot().client }

// Store returns the snapshot store, nil when caching is disabled.
func (a *App) Store() *store.Store { return a.db }

// Config returns the active configuration.
func (a *App) Config() *config.Config { return a.getSnapshot().config }
