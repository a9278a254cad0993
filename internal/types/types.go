package types

import "time"

// Kind discriminates the post variants in a group feed.
type Kind string

const (
	KindText     Kind = "text"
	KindImage    Kind = "image"
	KindPoll     Kind = "poll"
	KindEvent    Kind = "event"
	KindResource Kind = "resource"
	KindLink     Kind = "link"
)

// ModerationStatus is the report lifecycle state of a post.
type ModerationStatus string

const (
	ModerationNone        ModerationStatus = "none"
	ModerationUnderReview ModerationStatus = "under_review"
	ModerationRemoved     ModerationStatus = "removed"
)

// Reaction ids accepted by the backend. Selecting the active one toggles it off.
const (
	ReactionLike       = "like"
	ReactionIntriguing = "intriguing"
	ReactionSpotOn     = "spot_on"
	ReactionValidated  = "validated"
	ReactionDebatable  = "debatable"
)

// Reactions lists every valid reaction id.
var Reactions = []string{ReactionLike, ReactionIntriguing, ReactionSpotOn, ReactionValidated, ReactionDebatable}

// ValidReaction reports whether id is a known reaction.
func ValidReaction(id string) bool {
	for _, r := range Reactions {
		if r == id {
			return true
		}
	}
	return false
}

// RawItem is an undecoded backend record from either feed source. Its shape
// varies by source and legacy metadata encoding; it never survives past
// normalization.
type RawItem map[string]any

// Author identifies the user who created a post or comment.
type Author struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// Metrics holds the engagement counts displayed on a post card.
type Metrics struct {
	Likes    int `json:"likes"`
	Comments int `json:"comments"`
	Shares   int `json:"shares"`
}

// Moderation carries the visibility state derived from a post's report lifecycle.
type Moderation struct {
	Status    ModerationStatus `json:"status"`
	CanEngage bool             `json:"can_engage"`
	IsBlurred bool             `json:"is_blurred"`
}

// PollOption is one selectable answer with its server-confirmed tally.
type PollOption struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
	Votes int    `json:"votes"`
}

// Poll is the poll payload of a poll post. UserVotes holds the option ids the
// viewer has already selected.
type Poll struct {
	Question  string       `json:"question"`
	Options   []PollOption `json:"options"`
	UserVotes []int64      `json:"user_votes"`
	IsClosed  bool         `json:"is_closed"`
}

// TotalVotes sums the option tallies.
func (p *Poll) TotalVotes() int {
	total := 0
	for _, o := range p.Options {
		total += o.Votes
	}
	return total
}

// HasVoted reports whether the viewer already selected the given option.
func (p *Poll) HasVoted(optionID int64) bool {
	for _, id := range p.UserVotes {
		if id == optionID {
			return true
		}
	}
	return false
}

// Image is the payload of an image post.
type Image struct {
	URL     string `json:"url"`
	Caption string `json:"caption"`
}

// Event is the payload of an event post.
type Event struct {
	Title    string    `json:"title"`
	Location string    `json:"location"`
	StartsAt time.Time `json:"starts_at"`
}

// Resource is the payload of a resource post. Any of the URLs may be empty.
type Resource struct {
	Title    string `json:"title"`
	FileURL  string `json:"file_url"`
	LinkURL  string `json:"link_url"`
	VideoURL string `json:"video_url"`
}

// Link is the payload of a link post, optionally enriched with an Open Graph preview.
type Link struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// Target is the (type, id) pair an engagement attaches to: the post itself, or
// the resource/event object it wraps.
type Target struct {
	Type string `json:"target_type"`
	ID   int64  `json:"target_id"`
}

// Post is a normalized feed item. Identity fields are immutable after
// normalization; engagement fields are mutated in place by optimistic handlers.
type Post struct {
	ID        int64     `json:"id"`
	Kind      Kind      `json:"kind"`
	Author    Author    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	GroupID   *int64    `json:"group_id"`

	Text     string    `json:"text,omitempty"`
	Image    *Image    `json:"image,omitempty"`
	Poll     *Poll     `json:"poll,omitempty"`
	Event    *Event    `json:"event,omitempty"`
	Resource *Resource `json:"resource,omitempty"`
	Link     *Link     `json:"link,omitempty"`

	Metrics        Metrics    `json:"metrics"`
	ViewerReaction string     `json:"viewer_reaction,omitempty"` // empty when the viewer has not reacted
	Moderation     Moderation `json:"moderation"`
	Engagement     Target     `json:"engagement"`
}

// Comment is one node of a post's comment forest. ParentID is nil for roots.
type Comment struct {
	ID             int64      `json:"id"`
	ParentID       *int64     `json:"parent_id"`
	Author         Author     `json:"author"`
	Text           string     `json:"text"`
	CreatedAt      time.Time  `json:"created_at"`
	LikeCount      int        `json:"like_count"`
	ViewerHasLiked bool       `json:"viewer_has_liked"`
	Children       []*Comment `json:"children,omitempty"`
}

// Friend is a share candidate.
type Friend struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// Group holds the group attributes the feed engine needs.
type Group struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	OwnerID      int64  `json:"owner_id"`
	ForumEnabled bool   `json:"forum_enabled"`
}

// Viewer identifies the signed-in user and whether they hold staff privileges.
type Viewer struct {
	ID      int64 `json:"id"`
	IsStaff bool  `json:"is_staff"`
}
