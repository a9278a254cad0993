package engage

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/opengrove/groupfeed/internal/logx"
	"github.com/opengrove/groupfeed/internal/types"
)

// ErrNoRecipients is returned when sharing with an empty recipient list.
var ErrNoRecipients = errors.New("no recipients selected")

// ShareAPI is the backend surface the share resolver consumes.
type ShareAPI interface {
	Friends(ctx context.Context, userID int64) ([]types.Friend, error)
	GroupMemberIDs(ctx context.Context, groupID int64) ([]int64, error)
	Share(ctx context.Context, target types.Target, toUsers []int64) error
}

// Shares resolves share candidates and sends shares.
type Shares struct {
	api    ShareAPI
	viewer types.Viewer
}

// NewShares creates the share engine.
func NewShares(api ShareAPI, viewer types.Viewer) *Shares {
	return &Shares{api: api, viewer: viewer}
}

// Candidates computes the viewer's friends who are also members of the group.
// The two lookups run concurrently. The result is a strict intersection: when
// either lookup fails the candidate set is empty, never the unfiltered friend
// list.
func (s *Shares) Candidates(ctx context.Context, groupID int64) ([]types.Friend, error) {
	var (
		friends []types.Friend
		members []int64
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		friends, err = s.api.Friends(ctx, s.viewer.ID)
		if err != nil {
			logx.Warn.Printf("friends lookup failed for user %d: %v", s.viewer.ID, err)
			friends = nil
		}
		return nil
	})
	g.Go(func() error {
		var err error
		members, err = s.api.GroupMemberIDs(ctx, groupID)
		if err != nil {
			logx.Warn.Printf("member lookup failed for group %d: %v", groupID, err)
			members = nil
		}
		return nil
	})
	g.Wait()

	memberSet := make(map[int64]bool, len(members))
	for _, id := range members {
		memberSet[id] = true
	}

	candidates := make([]types.Friend, 0, len(friends))
	for _, f := range friends {
		if memberSet[f.ID] {
			candidates = append(candidates, f)
		}
	}
	return candidates, nil
}

// Share sends the post to the selected recipients and, on success, increments
// the local share counter by exactly 1. A share event is one unit regardless
// of fan-out.
func (s *Shares) Share(ctx context.Context, post *types.Post, toUsers []int64) error {
	if len(toUsers) == 0 {
		return ErrNoRecipients
	}
	if !post.Moderation.CanEngage {
		return ErrEngagementDisabled
	}

	if err := s.api.Share(ctx, post.Engagement, toUsers); err != nil {
		return fmt.Errorf("share %s %d: %w", post.Engagement.Type, post.Engagement.ID, err)
	}

	post.Metrics.Shares++
	return nil
}
