// Command groupfeed is a dev CLI for the group feed engine: render a group's
// feed in the terminal and drive reactions, comments, poll votes, shares, and
// moderation reports against it.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/browser"

	"github.com/opengrove/groupfeed/internal/api"
	"github.com/opengrove/groupfeed/internal/app"
	"github.com/opengrove/groupfeed/internal/config"
	"github.com/opengrove/groupfeed/internal/engage"
	"github.com/opengrove/groupfeed/internal/events"
	"github.com/opengrove/groupfeed/internal/logx"
	"github.com/opengrove/groupfeed/internal/render"
	"github.com/opengrove/groupfeed/internal/scheduler"
	"github.com/opengrove/groupfeed/internal/store"
	"github.com/opengrove/groupfeed/internal/types"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	if os.Args[1] == "open" {
		if len(os.Args) < 3 {
			fmt.Println("Usage: groupfeed open <config|cache>")
			os.Exit(1)
		}
		runOpen(os.Args[2])
		return
	}

	a := newApp()
	ctx := context.Background()

	var err error
	switch os.Args[1] {
	case "feed":
		err = runFeed(ctx, a, os.Args[2:])
	case "watch":
		err = runWatch(ctx, a, os.Args[2:])
	case "react":
		err = runReact(ctx, a, os.Args[2:])
	case "comments":
		err = runComments(ctx, a, os.Args[2:])
	case "comment":
		err = runComment(ctx, a, os.Args[2:])
	case "reply":
		err = runReply(ctx, a, os.Args[2:])
	case "delete-comment":
		err = runDeleteComment(ctx, a, os.Args[2:])
	case "like-comment":
		err = runLikeComment(ctx, a, os.Args[2:])
	case "vote":
		err = runVote(ctx, a, os.Args[2:])
	case "create-poll":
		err = runCreatePoll(ctx, a, os.Args[2:])
	case "snapshot":
		err = runSnapshot(a, os.Args[2:])
	case "share":
		err = runShare(ctx, a, os.Args[2:])
	case "report":
		err = runReport(ctx, a, os.Args[2:])
	default:
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		logx.Error.Printf("%v", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: groupfeed <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  feed <groupID>                              Fetch and render a group's feed")
	fmt.Println("  watch <groupID>                             Refresh the feed periodically")
	fmt.Println("  react <groupID> <postID> <reaction>         Toggle a reaction on a post")
	fmt.Println("  comments <groupID> <postID>                 Show a post's comment thread")
	fmt.Println("  comment <groupID> <postID> <text>           Add a root comment")
	fmt.Println("  reply <groupID> <postID> <parentID> <text>  Reply to a comment")
	fmt.Println("  delete-comment <groupID> <postID> <id>      Delete a comment (with confirmation)")
	fmt.Println("  like-comment <groupID> <postID> <id>        Toggle your like on a comment")
	fmt.Println("  vote <groupID> <postID> <optionID>          Vote on a poll")
	fmt.Println("  create-poll <groupID> <question> <opt...>   Create a poll post")
	fmt.Println("  snapshot <groupID>                          Show the last cached feed snapshot")
	fmt.Println("  share <groupID> <postID> <userID...>        Share a post with group members")
	fmt.Println("  report <groupID> <postID> <reason> [notes]  Report a post to moderators")
	fmt.Println("  open config|cache                           Open the config file or cache dir")
}

func newApp() *app.App {
	cfg, err := config.Load()
	if err != nil {
		if os.IsNotExist(err) {
			cfg = config.Default()
			if err := cfg.Save(); err != nil {
				logx.Warn.Printf("could not save default config: %v", err)
			} else {
				path, _ := config.ConfigPath()
				logx.Info.Printf("Created default config at: %s", path)
			}
		} else {
			logx.Warn.Printf("could not load config: %v (using defaults)", err)
			cfg = config.Default()
		}
	}

	var db *store.Store
	if cfg.Cache.Enabled {
		dbPath, err := cfg.DBPath()
		if err == nil {
			db, err = store.New(dbPath)
		}
		if err != nil {
			logx.Warn.Printf("snapshot store unavailable: %v", err)
		}
	}

	return app.New(cfg, db)
}

func parseID(s, name string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return id, nil
}

// loadPost refreshes the group feed and returns the requested post from it.
func loadPost(ctx context.Context, a *app.App, groupStr, postStr string) (*types.Post, int64, error) {
	groupID, err := parseID(groupStr, "group id")
	if err != nil {
		return nil, 0, err
	}
	postID, err := parseID(postStr, "post id")
	if err != nil {
		return nil, 0, err
	}

	if _, err := a.RefreshFeed(ctx, groupID); err != nil {
		return nil, 0, err
	}

	post := a.Feed().Post(postID)
	if post == nil {
		return nil, 0, fmt.Errorf("post %d not found in group %d", postID, groupID)
	}
	return post, groupID, nil
}

func runFeed(ctx context.Context, a *app.App, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: groupfeed feed <groupID>")
	}
	groupID, err := parseID(args[0], "group id")
	if err != nil {
		return err
	}

	posts, err := a.RefreshFeed(ctx, groupID)
	if err != nil {
		return err
	}
	fmt.Print(render.Feed(posts, a.Viewer()))
	return nil
}

func runWatch(ctx context.Context, a *app.App, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: groupfeed watch <groupID>")
	}
	groupID, err := parseID(args[0], "group id")
	if err != nil {
		return err
	}

	unsubscribe := a.Bus().Subscribe(events.TopicFeedRefreshed, func(e events.Event) {
		logx.Info.Printf("feed refreshed for group %d", e.GroupID)
	})
	defer unsubscribe()

	sched := scheduler.New()
	job := func(ctx context.Context) error {
		posts, err := a.RefreshFeed(ctx, groupID)
		if err != nil {
			return err
		}
		fmt.Print(render.Feed(posts, a.Viewer()))
		return nil
	}

	interval := a.Config().Feed.RefreshIntervalMinutes
	if err := sched.AddRefreshJob(fmt.Sprintf("refresh-group-%d", groupID), interval, job); err != nil {
		return err
	}
	if err := sched.RunNow("initial-refresh", job); err != nil {
		logx.Warn.Printf("initial refresh failed: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	return nil
}

func runReact(ctx context.Context, a *app.App, args []string) error {
	if len(args) < 3 {
		return errors.New("usage: groupfeed react <groupID> <postID> <reaction>")
	}
	post, groupID, err := loadPost(ctx, a, args[0], args[1])
	if err != nil {
		return err
	}

	if err := a.Reactions().Toggle(ctx, post, args[2]); err != nil {
		return err
	}
	// The sync runs in the background; hold the process open until it lands.
	a.Reactions().Flush()
	a.Bus().Publish(events.Event{Topic: events.TopicPostUpdated, GroupID: groupID, PostID: post.ID})
	if post.ViewerReaction == "" {
		fmt.Printf("Cleared reaction on post %d (%d likes)\n", post.ID, post.Metrics.Likes)
	} else {
		fmt.Printf("Reacted %s on post %d (%d likes)\n", post.ViewerReaction, post.ID, post.Metrics.Likes)
	}
	return nil
}

func openThread(ctx context.Context, a *app.App, groupStr, postStr string) (*engage.Thread, *types.Post, error) {
	post, groupID, err := loadPost(ctx, a, groupStr, postStr)
	if err != nil {
		return nil, nil, err
	}
	if !post.Moderation.CanEngage {
		return nil, nil, engage.ErrEngagementDisabled
	}

	group, err := a.Client().Group(ctx, groupID)
	ownerID := int64(0)
	if err == nil {
		ownerID = group.OwnerID
	}
	return a.Threads().Open(post.Engagement, ownerID), post, nil
}

func runComments(ctx context.Context, a *app.App, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: groupfeed comments <groupID> <postID>")
	}
	thread, _, err := openThread(ctx, a, args[0], args[1])
	if err != nil {
		return err
	}
	roots, err := thread.Load(ctx)
	if err != nil {
		return err
	}
	fmt.Print(render.Comments(roots))
	return nil
}

func runComment(ctx context.Context, a *app.App, args []string) error {
	if len(args) < 3 {
		return errors.New("usage: groupfeed comment <groupID> <postID> <text>")
	}
	thread, post, err := openThread(ctx, a, args[0], args[1])
	if err != nil {
		return err
	}
	roots, err := thread.Create(ctx, strings.Join(args[2:], " "))
	if err != nil {
		return err
	}
	a.Bus().Publish(events.Event{Topic: events.TopicCommentsReloaded, PostID: post.ID})
	fmt.Print(render.Comments(roots))
	return nil
}

func runReply(ctx context.Context, a *app.App, args []string) error {
	if len(args) < 4 {
		return errors.New("usage: groupfeed reply <groupID> <postID> <parentID> <text>")
	}
	thread, post, err := openThread(ctx, a, args[0], args[1])
	if err != nil {
		return err
	}
	parentID, err := parseID(args[2], "comment id")
	if err != nil {
		return err
	}
	roots, err := thread.Reply(ctx, parentID, strings.Join(args[3:], " "))
	if err != nil {
		return err
	}
	a.Bus().Publish(events.Event{Topic: events.TopicCommentsReloaded, PostID: post.ID})
	fmt.Print(render.Comments(roots))
	return nil
}

func runDeleteComment(ctx context.Context, a *app.App, args []string) error {
	if len(args) < 3 {
		return errors.New("usage: groupfeed delete-comment <groupID> <postID> <commentID>")
	}
	thread, post, err := openThread(ctx, a, args[0], args[1])
	if err != nil {
		return err
	}
	commentID, err := parseID(args[2], "comment id")
	if err != nil {
		return err
	}
	if _, err := thread.Load(ctx); err != nil {
		return err
	}

	roots, err := thread.Delete(ctx, commentID, func() bool {
		fmt.Printf("Delete comment %d? [y/N] ", commentID)
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		return strings.TrimSpace(strings.ToLower(line)) == "y"
	})
	if errors.Is(err, engage.ErrNotConfirmed) {
		fmt.Println("Aborted.")
		return nil
	}
	if err != nil {
		return err
	}
	a.Bus().Publish(events.Event{Topic: events.TopicCommentsReloaded, PostID: post.ID})
	fmt.Print(render.Comments(roots))
	return nil
}

func runLikeComment(ctx context.Context, a *app.App, args []string) error {
	if len(args) < 3 {
		return errors.New("usage: groupfeed like-comment <groupID> <postID> <commentID>")
	}
	thread, post, err := openThread(ctx, a, args[0], args[1])
	if err != nil {
		return err
	}
	commentID, err := parseID(args[2], "comment id")
	if err != nil {
		return err
	}
	if _, err := thread.Load(ctx); err != nil {
		return err
	}

	if err := thread.ToggleLike(ctx, commentID); err != nil {
		return err
	}
	thread.Flush()
	a.Bus().Publish(events.Event{Topic: events.TopicCommentsReloaded, PostID: post.ID})
	fmt.Print(render.Comments(thread.Comments()))
	return nil
}

func runVote(ctx context.Context, a *app.App, args []string) error {
	if len(args) < 3 {
		return errors.New("usage: groupfeed vote <groupID> <postID> <optionID>")
	}
	post, groupID, err := loadPost(ctx, a, args[0], args[1])
	if err != nil {
		return err
	}
	optionID, err := parseID(args[2], "option id")
	if err != nil {
		return err
	}

	if err := a.Polls().Vote(ctx, post, optionID); err != nil {
		return err
	}
	a.Bus().Publish(events.Event{Topic: events.TopicPostUpdated, GroupID: groupID, PostID: post.ID})
	fmt.Print(render.Feed([]*types.Post{post}, a.Viewer()))
	return nil
}

func runCreatePoll(ctx context.Context, a *app.App, args []string) error {
	if len(args) < 4 {
		return errors.New("usage: groupfeed create-poll <groupID> <question> <option> <option> [option...]")
	}
	groupID, err := parseID(args[0], "group id")
	if err != nil {
		return err
	}

	if err := a.Client().CreatePoll(ctx, groupID, args[1], args[2:]); err != nil {
		return err
	}
	fmt.Printf("Created poll in group %d with %d options\n", groupID, len(args[2:]))

	posts, err := a.RefreshFeed(ctx, groupID)
	if err != nil {
		return err
	}
	fmt.Print(render.Feed(posts, a.Viewer()))
	return nil
}

func runShare(ctx context.Context, a *app.App, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: groupfeed share <groupID> <postID> [userID...]")
	}
	post, groupID, err := loadPost(ctx, a, args[0], args[1])
	if err != nil {
		return err
	}

	candidates, err := a.Shares().Candidates(ctx, groupID)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		fmt.Println("No friends in this group to share with.")
		return nil
	}

	if len(args) == 2 {
		fmt.Println("Share candidates:")
		for _, f := range candidates {
			fmt.Printf("  %d  %s\n", f.ID, f.Name)
		}
		return nil
	}

	// Only ids from the candidate set are sent.
	allowed := make(map[int64]bool, len(candidates))
	for _, f := range candidates {
		allowed[f.ID] = true
	}
	var recipients []int64
	for _, arg := range args[2:] {
		id, err := parseID(arg, "user id")
		if err != nil {
			return err
		}
		if !allowed[id] {
			return fmt.Errorf("user %d is not a shareable friend in this group", id)
		}
		recipients = append(recipients, id)
	}

	if err := a.Shares().Share(ctx, post, recipients); err != nil {
		return err
	}
	a.Bus().Publish(events.Event{Topic: events.TopicPostUpdated, GroupID: groupID, PostID: post.ID})
	fmt.Printf("Shared post %d with %d recipient(s) (%d shares)\n", post.ID, len(recipients), post.Metrics.Shares)
	return nil
}

func runReport(ctx context.Context, a *app.App, args []string) error {
	if len(args) < 3 {
		return errors.New("usage: groupfeed report <groupID> <postID> <reason> [notes]")
	}
	post, _, err := loadPost(ctx, a, args[0], args[1])
	if err != nil {
		return err
	}

	notes := ""
	if len(args) > 3 {
		notes = strings.Join(args[3:], " ")
	}

	err = a.Reporter().Report(ctx, post, args[2], notes)
	if errors.Is(err, api.ErrAlreadyReported) {
		fmt.Println("You already reported this post; moderators are reviewing it.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("Reported post %d; it is now under review.\n", post.ID)
	return nil
}

func runSnapshot(a *app.App, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: groupfeed snapshot <groupID>")
	}
	groupID, err := parseID(args[0], "group id")
	if err != nil {
		return err
	}
	db := a.Store()
	if db == nil {
		return errors.New("snapshot cache is disabled in config")
	}

	rows, fetchedAt, err := db.LatestSnapshot(groupID)
	if err != nil {
		return fmt.Errorf("no snapshot for group %d: %w", groupID, err)
	}

	fmt.Printf("Snapshot of group %d fetched at %s (%d posts)\n", groupID, fetchedAt.Format("2006-01-02 15:04:05"), len(rows))
	for _, r := range rows {
		fmt.Printf("  #%d  %-8s %-20s %d likes / %d comments / %d shares", r.PostID, r.Kind, r.AuthorName, r.Likes, r.Comments, r.Shares)
		if r.ModerationStatus != "" && r.ModerationStatus != "none" {
			fmt.Printf("  [%s]", r.ModerationStatus)
		}
		fmt.Println()
	}
	return nil
}

func runOpen(target string) {
	var path string
	var err error

	switch target {
	case "config":
		path, err = config.ConfigPath()
	case "cache":
		path, err = config.CacheDir()
	default:
		fmt.Printf("Unknown target: %s\n", target)
		os.Exit(1)
	}

	if err != nil {
		logx.Error.Fatalf("Failed to get path: %v", err)
	}

	if err := browser.OpenFile(path); err != nil {
		logx.Error.Fatalf("Failed to open: %v", err)
	}
}
