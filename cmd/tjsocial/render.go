package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/dreamware/tjsocial/internal/api"
	"github.com/dreamware/tjsocial/internal/feed"
)

func printFeed(w io.Writer, key feed.SortKey, items []feed.Item, exhausted bool, now time.Time) {
	fmt.Fprintf(w, "== %s (%s) ==\n", key.Title(), count(len(items), "post"))
	for _, it := range items {
		fmt.Fprint(w, formatItem(it, now))
	}
	if exhausted {
		fmt.Fprintln(w, "-- end of feed --")
	}
}

// formatItem renders one post as a short block.
func formatItem(it feed.Item, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (@%s) · %s\n", it.Author.Name, it.Author.Username,
		humanize.RelTime(it.CreatedAt, now, "ago", "from now"))
	if it.Description != "" {
		fmt.Fprintf(&b, "  %s\n", it.Description)
	}
	if len(it.Hashtags) > 0 {
		tags := make([]string, len(it.Hashtags))
		for i, t := range it.Hashtags {
			tags[i] = "#" + t
		}
		fmt.Fprintf(&b, "  %s\n", strings.Join(tags, " "))
	}
	if len(it.Images) > 0 {
		fmt.Fprintf(&b, "  [%s]\n", count(len(it.Images), "image"))
	}

	fmt.Fprintf(&b, "  %s · %s", count(it.LikeCount, "like"), count(it.CommentCount, "comment"))
	if it.Liked {
		b.WriteString(" · liked")
	}
	if it.Bookmarked {
		b.WriteString(" · bookmarked")
	}
	fmt.Fprintf(&b, "\n  id %s\n", it.ID)
	return b.String()
}

func formatUser(u api.User) string {
	return fmt.Sprintf("Signed in as %s (@%s) · %s · %s following\n",
		u.Name, u.Username, count(u.FollowerCount, "follower"), humanize.Comma(int64(u.FollowingCount)))
}

// count renders "1 like", "1,204 likes".
func count(n int, singular string) string {
	return humanize.Comma(int64(n)) + " " + english.PluralWord(n, singular, "")
}
