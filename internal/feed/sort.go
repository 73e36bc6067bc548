package feed

import (
	"cmp"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// SortKey selects the display order of a feed.
type SortKey string

const (
	SortRecent        SortKey = "recent"
	SortOldest        SortKey = "oldest"
	SortMostLiked     SortKey = "mostLiked"
	SortMostCommented SortKey = "mostCommented"
)

// SortKeys lists every key in selector order.
var SortKeys = []SortKey{SortRecent, SortOldest, SortMostLiked, SortMostCommented}

// ParseSortKey accepts the enum names as well as the short selector values
// "likes" and "comments". Matching is case-insensitive.
func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "recent", "":
		return SortRecent, nil
	case "oldest":
		return SortOldest, nil
	case "mostliked", "likes", "most-liked":
		return SortMostLiked, nil
	case "mostcommented", "comments", "most-commented":
		return SortMostCommented, nil
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// Title is the heading shown above a feed in this order.
func (k SortKey) Title() string {
	switch k {
	case SortOldest:
		return "Oldest"
	case SortMostLiked:
		return "Most Liked"
	case SortMostCommented:
		return "Most Commented"
	default:
		return "Most Recent"
	}
}

// Project returns a new slice holding items in the order selected by key.
// It never modifies its input. The sort is stable, so items that compare
// equal keep their arrival order and repeated calls on the same input give
// identical output. Unknown keys keep arrival order.
func Project(items []Item, key SortKey) []Item {
	out := slices.Clone(items)
	compare := comparator(key)
	if compare == nil {
		return out
	}
	slices.SortStableFunc(out, compare)
	return out
}

func comparator(key SortKey) func(a, b Item) int {
	switch key {
	case SortRecent:
		return func(a, b Item) int { return b.CreatedAt.Compare(a.CreatedAt) }
	case SortOldest:
		return func(a, b Item) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case SortMostLiked:
		return func(a, b Item) int { return cmp.Compare(b.LikeCount, a.LikeCount) }
	case SortMostCommented:
		return func(a, b Item) int { return cmp.Compare(b.CommentCount, a.CommentCount) }
	}
	return nil
}
