package engage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/opengrove/groupfeed/internal/logx"
	"github.com/opengrove/groupfeed/internal/types"
	"github.com/opengrove/groupfeed/internal/workpool"
)

// ErrNotPermitted is returned when the viewer may not delete a comment.
var ErrNotPermitted = errors.New("viewer may not delete this comment")

// ErrNotConfirmed is returned when the confirmation step rejects a delete.
var ErrNotConfirmed = errors.New("delete not confirmed")

// DefaultReplyConcurrency bounds how many reply requests run at once while a
// thread loads.
const DefaultReplyConcurrency = 3

// CommentAPI is the backend surface the thread manager consumes.
type CommentAPI interface {
	Comments(ctx context.Context, target types.Target) ([]types.Comment, error)
	CommentReplies(ctx context.Context, rootID int64) ([]types.Comment, error)
	CreateComment(ctx context.Context, target types.Target, text string, parentID *int64) error
	DeleteComment(ctx context.Context, id int64) error
	ToggleReaction(ctx context.Context, target types.Target, reaction string) error
}

// Threads creates per-post comment threads.
type Threads struct {
	api         CommentAPI
	viewer      types.Viewer
	concurrency int
}

// NewThreads creates the comment engine. concurrency < 1 falls back to the
// default.
func NewThreads(api CommentAPI, viewer types.Viewer, concurrency int) *Threads {
	if concurrency < 1 {
		concurrency = DefaultReplyConcurrency
	}
	return &Threads{api: api, viewer: viewer, concurrency: concurrency}
}

// Open returns the thread for one engagement target. groupOwnerID feeds the
// moderator side of the delete permission check.
func (t *Threads) Open(target types.Target, groupOwnerID int64) *Thread {
	return &Thread{mgr: t, target: target, groupOwnerID: groupOwnerID}
}

// Thread is the comment tree of a single post.
type Thread struct {
	mgr          *Threads
	target       types.Target
	groupOwnerID int64

	mu    sync.Mutex
	roots []*types.Comment
	wg    sync.WaitGroup
}

// Load fetches the thread in two phases: root comments, then each root's
// replies through the bounded worker pool. A failed reply fetch leaves that
// root childless rather than failing the thread.
func (th *Thread) Load(ctx context.Context) ([]*types.Comment, error) {
	roots, err := th.mgr.api.Comments(ctx, th.target)
	if err != nil {
		return nil, fmt.Errorf("load comments for %s %d: %w", th.target.Type, th.target.ID, err)
	}

	replyLists, err := workpool.Map(ctx, th.mgr.concurrency, roots, func(ctx context.Context, root types.Comment) ([]types.Comment, error) {
		replies, err := th.mgr.api.CommentReplies(ctx, root.ID)
		if err != nil {
			logx.Warn.Printf("replies fetch failed for comment %d: %v", root.ID, err)
			return nil, nil
		}
		return replies, nil
	})
	if err != nil {
		return nil, err
	}

	flat := make([]types.Comment, 0, len(roots)*2)
	flat = append(flat, roots...)
	for _, replies := range replyLists {
		flat = append(flat, replies...)
	}

	tree := BuildTree(flat)

	th.mu.Lock()
	th.roots = tree
	th.mu.Unlock()

	return tree, nil
}

// Comments returns the current tree.
func (th *Thread) Comments() []*types.Comment {
	th.mu.Lock()
	defer th.mu.Unlock()
	return th.roots
}

// Create posts a root comment and reloads the thread.
func (th *Thread) Create(ctx context.Context, text string) ([]*types.Comment, error) {
	if err := th.mgr.api.CreateComment(ctx, th.target, text, nil); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return th.Load(ctx)
}

// Reply posts a child comment under parentID and reloads the thread.
func (th *Thread) Reply(ctx context.Context, parentID int64, text string) ([]*types.Comment, error) {
	if err := th.mgr.api.CreateComment(ctx, th.target, text, &parentID); err != nil {
		return nil, fmt.Errorf("reply to comment %d: %w", parentID, err)
	}
	return th.Load(ctx)
}

// CanDelete reports whether the viewer may delete the comment: its author, or
// the group owner.
func (th *Thread) CanDelete(c *types.Comment) bool {
	return th.mgr.viewer.ID == c.Author.ID || th.mgr.viewer.ID == th.groupOwnerID
}

// Delete removes a comment after an explicit confirmation step. The row is
// removed optimistically, then the thread reloads; if the backend call failed,
// the reload restores the true state.
func (th *Thread) Delete(ctx context.Context, commentID int64, confirm func() bool) ([]*types.Comment, error) {
	c := th.find(commentID)
	if c == nil {
		return th.Comments(), nil
	}
	if !th.CanDelete(c) {
		return nil, ErrNotPermitted
	}
	if confirm == nil || !confirm() {
		return nil, ErrNotConfirmed
	}

	th.removeLocal(commentID)

	if err := th.mgr.api.DeleteComment(ctx, commentID); err != nil {
		logx.Warn.Printf("comment delete failed for %d, reloading: %v", commentID, err)
	}
	return th.Load(ctx)
}

// ToggleLike flips the viewer's like on a comment: immediate local counter
// move mirrored by a background API call. Unlike post reactions this is a
// binary toggle.
func (th *Thread) ToggleLike(ctx context.Context, commentID int64) error {
	c := th.find(commentID)
	if c == nil {
		return fmt.Errorf("comment %d not in thread", commentID)
	}

	th.mu.Lock()
	if c.ViewerHasLiked {
		c.ViewerHasLiked = false
		if c.LikeCount > 0 {
			c.LikeCount--
		}
	} else {
		c.ViewerHasLiked = true
		c.LikeCount++
	}
	th.mu.Unlock()

	th.wg.Add(1)
	go func() {
		defer th.wg.Done()
		syncCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), syncTimeout)
		defer cancel()
		if err := th.mgr.api.ToggleReaction(syncCtx, types.Target{Type: "comment", ID: commentID}, types.ReactionLike); err != nil {
			logx.Warn.Printf("comment like sync failed for %d: %v", commentID, err)
		}
	}()

	return nil
}

// Flush blocks until every in-flight like sync has settled. Short-lived
// callers must drain it before exiting.
func (th *Thread) Flush() {
	th.wg.Wait()
}

func (th *Thread) find(commentID int64) *types.Comment {
	th.mu.Lock()
	defer th.mu.Unlock()

	var walk func(nodes []*types.Comment) *types.Comment
	walk = func(nodes []*types.Comment) *types.Comment {
		for _, n := range nodes {
			if n.ID == commentID {
				return n
			}
			if found := walk(n.Children); found != nil {
				return found
			}
		}
		return nil
	}
	return walk(th.roots)
}

func (th *Thread) removeLocal(commentID int64) {
	th.mu.Lock()
	defer th.mu.Unlock()

	var prune func(nodes []*types.Comment) []*types.Comment
	prune = func(nodes []*types.Comment) []*types.Comment {
		out := nodes[:0]
		for _, n := range nodes {
			if n.ID == commentID {
				continue
			}
			n.Children = prune(n.Children)
			out = append(out, n)
		}
		return out
	}
	th.roots = prune(th.roots)
}

// BuildTree reconstructs the comment forest from a flat list in a single pass
// over a parent-id map. Roots sort newest-first; children sort oldest-first
// within their root, chronological reading order for a conversation. A comment
// whose parent is absent from the list is kept as a root.
func BuildTree(flat []types.Comment) []*types.Comment {
	nodes := make(map[int64]*types.Comment, len(flat))
	ordered := make([]*types.Comment, 0, len(flat))
	for i := range flat {
		c := flat[i]
		c.Children = nil
		nodes[c.ID] = &c
		ordered = append(ordered, &c)
	}

	var roots []*types.Comment
	for _, c := range ordered {
		if c.ParentID != nil {
			if parent, ok := nodes[*c.ParentID]; ok && parent != c {
				parent.Children = append(parent.Children, c)
				continue
			}
		}
		roots = append(roots, c)
	}

	sort.SliceStable(roots, func(i, j int) bool {
		return roots[i].CreatedAt.After(roots[j].CreatedAt)
	})
	for _, root := range roots {
		sortChildren(root)
	}

	return roots
}

func sortChildren(c *types.Comment) {
	sort.SliceStable(c.Children, func(i, j int) bool {
		return c.Children[i].CreatedAt.Before(c.Children[j].CreatedAt)
	})
	for _, child := range c.Children {
		sortChildren(child)
	}
}
