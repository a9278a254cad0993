// Package api is the REST client for the community backend. It covers the two
// feed sources, the engagement endpoints, polls, shares, and moderation
// reports. Callers decide how to degrade on failure; this package only reports
// errors, with sentinel values for the cases the UI must distinguish.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/opengrove/groupfeed/internal/types"
)

// ErrAlreadyReported is returned when the backend answers a report with 409:
// the viewer already filed one against this target. It must surface to the user
// distinctly from a generic failure.
var ErrAlreadyReported = errors.New("already reported")

// Client talks to the community backend.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// New creates a client for the given base URL. token may be empty for
// unauthenticated development backends.
func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpc:   &http.Client{Timeout: timeout},
	}
}

// Group fetches the group record (owner, forum_enabled).
func (c *Client) Group(ctx context.Context, id int64) (*types.Group, error) {
	var g types.Group
	if err := c.getJSON(ctx, fmt.Sprintf("/groups/%d/", id), nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// GroupPosts fetches raw post records for a group. This source must not be
// trusted for polls.
func (c *Client) GroupPosts(ctx context.Context, groupID int64) ([]types.RawItem, error) {
	return c.getRawList(ctx, fmt.Sprintf("/groups/%d/posts/", groupID), nil)
}

// ActivityFeed fetches raw activity-feed records scoped to a group. This is the
// authoritative source for polls.
func (c *Client) ActivityFeed(ctx context.Context, groupID int64) ([]types.RawItem, error) {
	q := url.Values{}
	q.Set("scope", "group")
	q.Set("group_id", strconv.FormatInt(groupID, 10))
	return c.getRawList(ctx, "/activity/feed/", q)
}

// MetricsSnapshot is one entry of the batched metrics response.
type MetricsSnapshot struct {
	Likes          int    `json:"likes"`
	Comments       int    `json:"comments"`
	Shares         int    `json:"shares"`
	ViewerReaction string `json:"viewer_reaction"`
}

// EngagementMetrics batch-fetches metrics for all ids in a single round trip.
func (c *Client) EngagementMetrics(ctx context.Context, ids []int64) (map[int64]MetricsSnapshot, error) {
	if len(ids) == 0 {
		return map[int64]MetricsSnapshot{}, nil
	}

	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	q := url.Values{}
	q.Set("ids", strings.Join(parts, ","))

	var out map[string]MetricsSnapshot
	if err := c.getJSON(ctx, "/engagements/metrics/", q, &out); err != nil {
		return nil, err
	}

	metrics := make(map[int64]MetricsSnapshot, len(out))
	for k, v := range out {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		metrics[id] = v
	}
	return metrics, nil
}

// ToggleReaction flips the viewer's reaction on a target. The same endpoint
// serves post reactions and binary comment likes.
func (c *Client) ToggleReaction(ctx context.Context, target types.Target, reaction string) error {
	body := map[string]any{
		"targetType": target.Type,
		"targetId":   target.ID,
		"reaction":   reaction,
	}
	return c.postJSON(ctx, "/engagements/reactions/toggle/", body, nil)
}

// Comments fetches the root comments of a target (no parent filter).
func (c *Client) Comments(ctx context.Context, target types.Target) ([]types.Comment, error) {
	q := url.Values{}
	q.Set("target_type", target.Type)
	q.Set("target_id", strconv.FormatInt(target.ID, 10))
	return c.getComments(ctx, q)
}

// CommentReplies fetches the direct children of a root comment.
func (c *Client) CommentReplies(ctx context.Context, rootID int64) ([]types.Comment, error) {
	q := url.Values{}
	q.Set("parent", strconv.FormatInt(rootID, 10))
	return c.getComments(ctx, q)
}

// CreateComment posts a comment. parentID nil makes it a root comment against
// the target descriptor; otherwise a reply.
func (c *Client) CreateComment(ctx context.Context, target types.Target, text string, parentID *int64) error {
	body := map[string]any{
		"targetType": target.Type,
		"targetId":   target.ID,
		"text":       text,
	}
	if parentID != nil {
		body["parent"] = *parentID
	}
	return c.postJSON(ctx, "/engagements/comments/", body, nil)
}

// DeleteComment removes a comment. The server enforces authorship; the client
// hides the control from everyone else.
func (c *Client) DeleteComment(ctx context.Context, id int64) error {
	req, err := c.newRequest(ctx, http.MethodDelete, fmt.Sprintf("/engagements/comments/%d/", id), nil, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// VotePoll casts a single-selection vote and returns the server's updated poll
// record, which replaces the local one wholesale.
func (c *Client) VotePoll(ctx context.Context, feedItemID, optionID int64) (types.RawItem, error) {
	body := map[string]any{"option_id": optionID}
	var out map[string]any
	if err := c.postJSON(ctx, fmt.Sprintf("/activity/feed/%d/poll/vote/", feedItemID), body, &out); err != nil {
		return nil, err
	}
	return types.RawItem(out), nil
}

// CreatePoll creates a poll post in a group.
func (c *Client) CreatePoll(ctx context.Context, groupID int64, question string, options []string) error {
	body := map[string]any{
		"group_id": groupID,
		"question": question,
		"options":  options,
	}
	return c.postJSON(ctx, "/activity/feed/polls/create/", body, nil)
}

// Friends fetches the viewer's friend list, trying candidate endpoint shapes
// until one returns data.
func (c *Client) Friends(ctx context.Context, userID int64) ([]types.Friend, error) {
	idStr := strconv.FormatInt(userID, 10)

	var friends []types.Friend
	if err := c.getList(ctx, fmt.Sprintf("/users/%d/friends/", userID), nil, &friends); err == nil && len(friends) > 0 {
		return friends, nil
	}

	q := url.Values{}
	q.Set("user_id", idStr)
	if err := c.getList(ctx, "/friends/", q, &friends); err != nil {
		return nil, err
	}
	return friends, nil
}

// GroupMemberIDs fetches the ids of a group's members, trying candidate
// endpoint shapes until one returns data. An error means every candidate
// failed; callers must not fall back to an unfiltered list.
func (c *Client) GroupMemberIDs(ctx context.Context, groupID int64) ([]int64, error) {
	var members []json.RawMessage
	err := c.getList(ctx, fmt.Sprintf("/groups/%d/members/", groupID), nil, &members)
	if err != nil || len(members) == 0 {
		if err2 := c.getList(ctx, fmt.Sprintf("/groups/%d/member-ids/", groupID), nil, &members); err2 != nil {
			if err != nil {
				return nil, err
			}
			return nil, err2
		}
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		// Entries are either bare ids or member objects.
		var id int64
		if json.Unmarshal(m, &id) == nil {
			ids = append(ids, id)
			continue
		}
		var obj struct {
			ID     int64 `json:"id"`
			UserID int64 `json:"user_id"`
		}
		if json.Unmarshal(m, &obj) == nil {
			if obj.UserID != 0 {
				ids = append(ids, obj.UserID)
			} else if obj.ID != 0 {
				ids = append(ids, obj.ID)
			}
		}
	}
	return ids, nil
}

// Share sends a post to the selected recipients.
func (c *Client) Share(ctx context.Context, target types.Target, toUsers []int64) error {
	body := map[string]any{
		"targetType": target.Type,
		"targetId":   target.ID,
		"toUsers":    toUsers,
	}
	return c.postJSON(ctx, "/engagements/shares/", body, nil)
}

// Report files a moderation report. A 409 response maps to ErrAlreadyReported.
func (c *Client) Report(ctx context.Context, target types.Target, reason, notes string) error {
	body := map[string]any{
		"targetType": target.Type,
		"targetId":   target.ID,
		"reason":     reason,
		"notes":      notes,
	}
	err := c.postJSON(ctx, "/moderation/reports/", body, nil)
	var se *statusError
	if errors.As(err, &se) && se.code == http.StatusConflict {
		return ErrAlreadyReported
	}
	return err
}

func (c *Client) getComments(ctx context.Context, q url.Values) ([]types.Comment, error) {
	var wire []commentWire
	if err := c.getList(ctx, "/engagements/comments/", q, &wire); err != nil {
		return nil, err
	}
	comments := make([]types.Comment, len(wire))
	for i, w := range wire {
		comments[i] = w.toComment()
	}
	return comments, nil
}

// commentWire is the backend comment record.
type commentWire struct {
	ID             int64        `json:"id"`
	Parent         *int64       `json:"parent"`
	Author         types.Author `json:"author"`
	AuthorID       int64        `json:"author_id"`
	Text           string       `json:"text"`
	CreatedAt      time.Time    `json:"created_at"`
	LikeCount      int          `json:"like_count"`
	ViewerHasLiked bool         `json:"viewer_has_liked"`
}

func (w commentWire) toComment() types.Comment {
	author := w.Author
	if author.ID == 0 {
		author.ID = w.AuthorID
	}
	return types.Comment{
		ID:             w.ID,
		ParentID:       w.Parent,
		Author:         author,
		Text:           w.Text,
		CreatedAt:      w.CreatedAt,
		LikeCount:      w.LikeCount,
		ViewerHasLiked: w.ViewerHasLiked,
	}
}

// statusError reports a non-2xx response.
type statusError struct {
	code int
	path string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.path, e.code)
}

func (c *Client) newRequest(ctx context.Context, method, path string, q url.Values, body io.Reader) (*http.Request, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return &statusError{code: resp.StatusCode, path: req.URL.Path}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, q, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, bytes.NewReader(data))
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// getList decodes a list endpoint into out, tolerating both bare arrays and
// {"results": [...]} envelopes.
func (c *Client) getList(ctx context.Context, path string, q url.Values, out any) error {
	var raw json.RawMessage
	if err := c.getJSON(ctx, path, q, &raw); err != nil {
		return err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var envelope struct {
			Results json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		trimmed = bytes.TrimSpace(envelope.Results)
	}
	if len(trimmed) == 0 {
		return nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) getRawList(ctx context.Context, path string, q url.Values) ([]types.RawItem, error) {
	var records []map[string]any
	if err := c.getList(ctx, path, q, &records); err != nil {
		return nil, err
	}
	items := make([]types.RawItem, len(records))
	for i, r := range records {
		items[i] = types.RawItem(r)
	}
	return items, nil
}
