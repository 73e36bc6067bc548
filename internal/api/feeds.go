package api

import (
	"context"

	"github.com/dreamware/tjsocial/internal/feed"
)

// ToItem converts a wire post into a feed item.
func ToItem(p Post) feed.Item {
	images := make([]string, 0, len(p.Images))
	for _, img := range p.Images {
		images = append(images, img.URL)
	}
	return feed.Item{
		CreatedAt: p.CreatedAt,
		Author: feed.Author{
			ID:         p.Author.ID,
			Name:       p.Author.Name,
			Username:   p.Author.Username,
			ProfilePic: p.Author.ProfilePic,
		},
		ID:           p.ID,
		Description:  p.Description,
		Type:         p.Type,
		PostType:     p.PostType,
		Images:       images,
		Hashtags:     append([]string(nil), p.Hashtags...),
		LikeCount:    p.LikeCount,
		CommentCount: p.CommentCount,
		Liked:        p.Liked,
		Bookmarked:   p.Bookmarked,
	}
}

func toItems(posts []Post) []feed.Item {
	items := make([]feed.Item, len(posts))
	for i, p := range posts {
		items[i] = ToItem(p)
	}
	return items
}

// HomeFeed pages through the home feed, which reports hasNext explicitly.
func (c *Client) HomeFeed() feed.Fetcher {
	return feed.FetcherFunc(func(ctx context.Context, page int) (feed.Page, error) {
		fp, err := c.FetchFeed(ctx, page)
		if err != nil {
			return feed.Page{}, err
		}
		hasNext := fp.HasNext
		return feed.Page{Items: toItems(fp.Items), HasNext: &hasNext}, nil
	})
}

// UserFeed pages through another user's posts; an empty page ends it.
func (c *Client) UserFeed(userID string) feed.Fetcher {
	return feed.FetcherFunc(func(ctx context.Context, page int) (feed.Page, error) {
		posts, err := c.FetchUserPosts(ctx, userID, page)
		if err != nil {
			return feed.Page{}, err
		}
		return feed.Page{Items: toItems(posts)}, nil
	})
}

// MineFeed pages through the signed-in user's posts.
func (c *Client) MineFeed() feed.Fetcher {
	return feed.FetcherFunc(func(ctx context.Context, page int) (feed.Page, error) {
		posts, err := c.FetchMyPosts(ctx, page)
		if err != nil {
			return feed.Page{}, err
		}
		return feed.Page{Items: toItems(posts)}, nil
	})
}
