// Package normalize maps raw backend feed records onto typed posts. It is the
// compatibility shim for every legacy field-name variant the two feed sources
// emit; nothing outside this package inspects raw records.
package normalize

import (
	"encoding/json"
	"fmt"

	"github.com/opengrove/groupfeed/internal/types"
)

// metadataKeys are the legacy aliases under which older backend surfaces nested
// the post payload.
var metadataKeys = []string{"metadata", "meta", "data", "payload"}

// postLikeKeys mark a record as carrying flat post fields when no metadata
// envelope is present.
var postLikeKeys = []string{"type", "text", "content", "body", "question", "options", "url", "image", "image_url", "file_url", "video_url"}

// Normalizer converts raw feed items into posts for one viewer. Blur decisions
// depend on who is looking.
type Normalizer struct {
	viewer types.Viewer
}

// New creates a Normalizer for the given viewer.
func New(viewer types.Viewer) *Normalizer {
	return &Normalizer{viewer: viewer}
}

// Normalize maps a raw record to a typed post. It returns nil when the record
// should be dropped: no usable id, or soft-deleted without being a moderator
// removal (removed posts must still surface their placeholder). The input is
// never mutated, so normalizing the same record twice yields equal posts.
func (n *Normalizer) Normalize(raw types.RawItem) *types.Post {
	if raw == nil {
		return nil
	}

	rec := resolveRecord(raw)
	if rec == nil {
		return nil
	}

	id, ok := rawInt(rec, "id", "post_id", "item_id")
	if !ok || id <= 0 {
		return nil
	}

	status := moderationStatus(rec)

	softDeleted := rawBool(rec, "is_deleted", "deleted", "is_hidden", "hidden")
	if softDeleted && status != types.ModerationRemoved {
		return nil
	}

	author := resolveAuthor(rec)

	post := &types.Post{
		ID:        id,
		Author:    author,
		CreatedAt: rawTime(rec, "created_at", "created", "timestamp", "published_at"),
		GroupID:   resolveGroupID(rec),
		Metrics: types.Metrics{
			Likes:    rawCount(rec, "likes", "like_count", "likes_count"),
			Comments: rawCount(rec, "comments", "comment_count", "comments_count"),
			Shares:   rawCount(rec, "shares", "share_count", "shares_count"),
		},
		ViewerReaction: rawString(rec, "viewer_reaction", "user_reaction", "my_reaction"),
	}

	post.Moderation = types.Moderation{
		Status:    status,
		CanEngage: status == types.ModerationNone,
		IsBlurred: status == types.ModerationUnderReview && author.ID != n.viewer.ID && !n.viewer.IsStaff,
	}

	resolveKind(rec, post)
	post.Engagement = resolveTarget(rec, post)

	return post
}

// resolveRecord unwraps the metadata envelope and layers identity fields from
// the outer record underneath it. When no envelope exists the record itself is
// used, but only if it looks post-like; otherwise nil is returned and the item
// is dropped. The result is always a fresh map, never the input.
func resolveRecord(raw types.RawItem) types.RawItem {
	var meta types.RawItem

	for _, key := range metadataKeys {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case map[string]any:
			meta = types.RawItem(t)
		case string:
			// Some admin surfaces double-encode metadata as a JSON string.
			var decoded map[string]any
			if err := json.Unmarshal([]byte(t), &decoded); err == nil {
				meta = types.RawItem(decoded)
			}
		}
		if meta != nil {
			break
		}
	}

	if meta == nil {
		if !looksPostLike(raw) {
			return nil
		}
		rec := make(types.RawItem, len(raw))
		for k, v := range raw {
			rec[k] = v
		}
		return rec
	}

	// Outer record first, envelope wins on conflicts.
	rec := make(types.RawItem, len(raw)+len(meta))
	for k, v := range raw {
		if isMetadataKey(k) {
			continue
		}
		rec[k] = v
	}
	for k, v := range meta {
		rec[k] = v
	}
	return rec
}

func isMetadataKey(k string) bool {
	for _, mk := range metadataKeys {
		if k == mk {
			return true
		}
	}
	return false
}

func looksPostLike(raw types.RawItem) bool {
	for _, k := range postLikeKeys {
		if _, ok := raw[k]; ok {
			return true
		}
	}
	return false
}

// resolveKind detects the post variant and attaches its payload. Order matters
// because fields overlap: poll markers are checked before any URL heuristics,
// and a bare url only falls through to link after resource fields had their
// chance to claim it.
func resolveKind(rec types.RawItem, post *types.Post) {
	typ := rawString(rec, "type", "kind", "post_type")
	post.Text = rawString(rec, "text", "content", "body", "message")

	if poll := resolvePoll(rec, typ); poll != nil {
		post.Kind = types.KindPoll
		post.Poll = poll
		return
	}

	if img := rawString(rec, "image", "image_url"); img != "" {
		post.Kind = types.KindImage
		post.Image = &types.Image{
			URL:     img,
			Caption: rawString(rec, "caption"),
		}
		return
	}

	if typ == "event" || rawString(rec, "start_time", "starts_at", "event_date") != "" {
		post.Kind = types.KindEvent
		post.Event = &types.Event{
			Title:    rawString(rec, "title", "name"),
			Location: rawString(rec, "location", "venue"),
			StartsAt: rawTime(rec, "start_time", "starts_at", "event_date"),
		}
		return
	}

	fileURL := rawString(rec, "file_url", "file")
	videoURL := rawString(rec, "video_url", "video")
	if typ == "resource" || fileURL != "" || videoURL != "" {
		post.Kind = types.KindResource
		post.Resource = &types.Resource{
			Title:    rawString(rec, "title", "name"),
			FileURL:  fileURL,
			LinkURL:  rawString(rec, "link_url", "url", "link"),
			VideoURL: videoURL,
		}
		return
	}

	if url := rawString(rec, "url", "link", "link_url"); url != "" {
		post.Kind = types.KindLink
		post.Link = &types.Link{
			URL:   url,
			Title: rawString(rec, "title"),
		}
		return
	}

	post.Kind = types.KindText
}

// resolvePoll returns a poll payload when the record carries any poll marker:
// an explicit type, a non-empty options array, or a question field.
func resolvePoll(rec types.RawItem, typ string) *types.Poll {
	options := rawSlice(rec, "options", "choices")
	question := rawString(rec, "question")

	if typ != "poll" && len(options) == 0 && question == "" {
		return nil
	}

	if question == "" {
		question = rawString(rec, "title", "text")
	}

	poll := &types.Poll{
		Question: question,
		IsClosed: rawBool(rec, "is_closed", "closed"),
	}

	for i, o := range options {
		om, ok := o.(map[string]any)
		if !ok {
			// Bare string options from the legacy create form.
			if s, isStr := o.(string); isStr {
				poll.Options = append(poll.Options, types.PollOption{ID: int64(i + 1), Label: s})
			}
			continue
		}
		opt := types.RawItem(om)
		optID, ok := rawInt(opt, "id", "option_id")
		if !ok {
			optID = int64(i + 1)
		}
		poll.Options = append(poll.Options, types.PollOption{
			ID:    optID,
			Label: rawString(opt, "label", "text", "title"),
			Votes: rawCount(opt, "votes", "vote_count"),
		})
	}

	for _, v := range rawSlice(rec, "user_votes", "my_votes") {
		if id, ok := toInt64(v); ok {
			poll.UserVotes = append(poll.UserVotes, id)
		}
	}

	return poll
}

// PollPayload maps a raw poll record onto a poll payload. It accepts the
// shapes the vote endpoint answers with: a bare poll object, a {"poll": ...}
// wrapper, or a full feed record. Returns nil when no poll markers are present.
func PollPayload(raw types.RawItem) *types.Poll {
	if raw == nil {
		return nil
	}
	if nested := rawMap(raw, "poll"); nested != nil {
		raw = nested
	}
	rec := resolveRecord(raw)
	if rec == nil {
		return nil
	}
	return resolvePoll(rec, rawString(rec, "type", "kind", "post_type"))
}

// resolveAuthor pulls the author out of nested or flat actor encodings and
// applies the display-name fallback chain.
func resolveAuthor(rec types.RawItem) types.Author {
	var author types.Author

	if nested := rawMap(rec, "author", "user", "actor", "created_by"); nested != nil {
		author.ID, _ = rawInt(nested, "id", "user_id")
		author.Name = rawString(nested, "name", "full_name", "username", "actor_name")
		author.AvatarURL = rawString(nested, "avatar_url", "avatar", "profile_image")
	} else {
		author.ID, _ = rawInt(rec, "author_id", "user_id", "actor_id")
		author.Name = rawString(rec, "author_name", "user_name", "actor_name")
		author.AvatarURL = rawString(rec, "author_avatar", "avatar_url")
	}

	if author.Name == "" {
		if author.ID > 0 {
			author.Name = fmt.Sprintf("User #%d", author.ID)
		} else {
			author.Name = "Unknown User"
		}
	}

	return author
}

func resolveGroupID(rec types.RawItem) *int64 {
	if id, ok := rawInt(rec, "group_id", "group"); ok && id > 0 {
		return &id
	}
	if nested := rawMap(rec, "group"); nested != nil {
		if id, ok := rawInt(nested, "id"); ok && id > 0 {
			return &id
		}
	}
	return nil
}

func moderationStatus(rec types.RawItem) types.ModerationStatus {
	if rawBool(rec, "removed_by_moderator") {
		return types.ModerationRemoved
	}
	status := rawString(rec, "moderation_status", "report_status")
	if status == "" {
		if nested := rawMap(rec, "moderation"); nested != nil {
			status = rawString(nested, "status")
		}
	}
	switch status {
	case "removed":
		return types.ModerationRemoved
	case "under_review", "reported":
		return types.ModerationUnderReview
	}
	if rawBool(rec, "is_under_review") {
		return types.ModerationUnderReview
	}
	return types.ModerationNone
}

// resolveTarget picks the engagement target: the wrapped resource or event when
// the record references one, otherwise the post itself.
func resolveTarget(rec types.RawItem, post *types.Post) types.Target {
	if id, ok := rawInt(rec, "resource_id"); ok && id > 0 {
		return types.Target{Type: "resource", ID: id}
	}
	if id, ok := rawInt(rec, "event_id"); ok && id > 0 {
		return types.Target{Type: "event", ID: id}
	}
	return types.Target{Type: "post", ID: post.ID}
}
