// Package render produces the plain-text feed view used by the CLI.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/opengrove/groupfeed/internal/engage"
	"github.com/opengrove/groupfeed/internal/moderation"
	"github.com/opengrove/groupfeed/internal/types"
)

// Feed renders the post list for a viewer. Removed posts show only the removal
// placeholder; posts under review blur for non-author, non-staff viewers.
func Feed(posts []*types.Post, viewer types.Viewer) string {
	var buf bytes.Buffer

	if len(posts) == 0 {
		buf.WriteString("No posts.\n")
		return buf.String()
	}

	for i, p := range posts {
		if i > 0 {
			buf.WriteString("\n")
		}
		writePost(&buf, p, viewer)
	}

	return buf.String()
}

func writePost(buf *bytes.Buffer, p *types.Post, viewer types.Viewer) {
	switch moderation.StateFor(p, viewer) {
	case moderation.RenderRemoved:
		fmt.Fprintf(buf, "#%d  %s\n", p.ID, moderation.RemovedPlaceholder)
		return
	case moderation.RenderBlurred:
		fmt.Fprintf(buf, "#%d  %s · %s\n", p.ID, p.Author.Name, p.CreatedAt.Format("Jan 2 15:04"))
		buf.WriteString("    [hidden while under review]\n")
		return
	}

	fmt.Fprintf(buf, "#%d  %s · %s · %s\n", p.ID, p.Author.Name, p.Kind, p.CreatedAt.Format("Jan 2 15:04"))

	switch p.Kind {
	case types.KindPoll:
		writePoll(buf, p.Poll)
	case types.KindImage:
		fmt.Fprintf(buf, "    [image] %s\n", p.Image.URL)
		if p.Image.Caption != "" {
			fmt.Fprintf(buf, "    %s\n", p.Image.Caption)
		}
	case types.KindEvent:
		fmt.Fprintf(buf, "    [event] %s @ %s\n", p.Event.Title, p.Event.Location)
		if !p.Event.StartsAt.IsZero() {
			fmt.Fprintf(buf, "    starts %s\n", p.Event.StartsAt.Format("Jan 2 15:04"))
		}
	case types.KindResource:
		fmt.Fprintf(buf, "    [resource] %s\n", p.Resource.Title)
		for _, u := range []string{p.Resource.FileURL, p.Resource.LinkURL, p.Resource.VideoURL} {
			if u != "" {
				fmt.Fprintf(buf, "    %s\n", u)
			}
		}
	case types.KindLink:
		fmt.Fprintf(buf, "    [link] %s\n", p.Link.URL)
		if p.Link.Title != "" {
			fmt.Fprintf(buf, "    %s\n", p.Link.Title)
		}
		if p.Link.Description != "" {
			fmt.Fprintf(buf, "    %s\n", p.Link.Description)
		}
	default:
		if p.Text != "" {
			fmt.Fprintf(buf, "    %s\n", p.Text)
		}
	}

	reaction := ""
	if p.ViewerReaction != "" {
		reaction = fmt.Sprintf(" · you: %s", p.ViewerReaction)
	}
	fmt.Fprintf(buf, "    %d likes · %d comments · %d shares%s\n",
		p.Metrics.Likes, p.Metrics.Comments, p.Metrics.Shares, reaction)
}

func writePoll(buf *bytes.Buffer, poll *types.Poll) {
	fmt.Fprintf(buf, "    [poll] %s", poll.Question)
	if poll.IsClosed {
		buf.WriteString(" (closed)")
	}
	buf.WriteString("\n")

	total := poll.TotalVotes()
	for _, opt := range poll.Options {
		pct := engage.Percent(opt.Votes, total)
		marker := " "
		if poll.HasVoted(opt.ID) {
			marker = "*"
		}
		fmt.Fprintf(buf, "    %s %-24s %3d%% (%d)\n", marker, opt.Label, pct, opt.Votes)
	}
}

// Comments renders a comment tree with indentation.
func Comments(roots []*types.Comment) string {
	var buf bytes.Buffer
	if len(roots) == 0 {
		buf.WriteString("No comments.\n")
		return buf.String()
	}
	writeComments(&buf, roots, 0)
	return buf.String()
}

func writeComments(buf *bytes.Buffer, nodes []*types.Comment, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, c := range nodes {
		liked := ""
		if c.ViewerHasLiked {
			liked = " ♥"
		}
		fmt.Fprintf(buf, "%s[%d] %s: %s (%d likes%s)\n", indent, c.ID, c.Author.Name, c.Text, c.LikeCount, liked)
		writeComments(buf, c.Children, depth+1)
	}
}
