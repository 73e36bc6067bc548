package feed

import (
	"context"
	"time"
)

// Author is the user reference carried by an item.
type Author struct {
	ID         string
	Name       string
	Username   string
	ProfilePic string
}

// Item is one post in a feed. IDs are unique within a feed.
type Item struct {
	CreatedAt    time.Time
	Author       Author
	ID           string
	Description  string
	Type         string // "draft" or "posted"
	PostType     string // "post" or "story"
	Images       []string
	Hashtags     []string
	LikeCount    int
	CommentCount int
	Liked        bool
	Bookmarked   bool
}

// clone returns a deep copy so callers never share slices with the store.
func (it Item) clone() Item {
	out := it
	out.Images = append([]string(nil), it.Images...)
	out.Hashtags = append([]string(nil), it.Hashtags...)
	return out
}

// Page is one fetched page.
type Page struct {
	Items []Item

	// HasNext is the server's explicit "more pages" flag, nil when the
	// endpoint does not supply one and an empty page signals the end.
	HasNext *bool
}

// Fetcher loads one 1-based page of a feed.
type Fetcher interface {
	FetchPage(ctx context.Context, page int) (Page, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, page int) (Page, error)

// FetchPage calls f(ctx, page).
func (f FetcherFunc) FetchPage(ctx context.Context, page int) (Page, error) {
	return f(ctx, page)
}

// State is a snapshot of a paginated feed.
type State struct {
	Items         []Item // Arrival order
	Cursor        int    // Next page to request, starts at 1
	Exhausted     bool   // Terminal: no further fetch is issued
	FetchInFlight bool
}
