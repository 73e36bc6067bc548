package mockapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/exp/slices"

	"github.com/dreamware/tjsocial/internal/api"
)

type post struct {
	id           string
	authorID     string
	description  string
	images       []string
	hashtags     []string
	createdAt    time.Time
	commentCount int
}

// PostSeed describes a post created with SeedPost.
type PostSeed struct {
	Description  string
	Images       []string
	Hashtags     []string
	CreatedAt    time.Time // Default now
	CommentCount int
}

// SeedPost creates a post by authorID and returns its id.
func (s *Server) SeedPost(authorID string, seed PostSeed) string {
	if seed.CreatedAt.IsZero() {
		seed.CreatedAt = s.now()
	}
	p := &post{
		id:           uuid.NewString(),
		authorID:     authorID,
		description:  seed.Description,
		images:       slices.Clone(seed.Images),
		hashtags:     slices.Clone(seed.Hashtags),
		createdAt:    seed.CreatedAt,
		commentCount: seed.CommentCount,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = append(s.posts, p)
	return p.id
}

// wireLocked renders p as seen by viewer.
func (s *Server) wireLocked(p *post, viewer string) api.Post {
	author := s.users[p.authorID].user
	images := make([]api.Image, len(p.images))
	for i, url := range p.images {
		images[i] = api.Image{URL: url}
	}
	return api.Post{
		CreatedAt: p.createdAt,
		Author: api.Author{
			ID:         author.ID,
			Name:       author.Name,
			Username:   author.Username,
			ProfilePic: author.ProfilePic,
		},
		ID:           p.id,
		Description:  p.description,
		Type:         "posted",
		PostType:     "post",
		Images:       images,
		Hashtags:     slices.Clone(p.hashtags),
		LikeCount:    len(s.likes[p.id]),
		CommentCount: p.commentCount,
		Liked:        viewer != "" && s.likes[p.id][viewer],
		Bookmarked:   viewer != "" && s.bookmarks[p.id][viewer],
	}
}

// pageLocked returns one newest-first page of posts matching keep and
// whether more follow.
func (s *Server) pageLocked(page int, viewer string, keep func(*post) bool) ([]api.Post, bool) {
	var matched []*post
	for _, p := range s.posts {
		if keep(p) {
			matched = append(matched, p)
		}
	}
	slices.SortStableFunc(matched, func(a, b *post) int {
		return b.createdAt.Compare(a.createdAt)
	})

	start := (page - 1) * s.pageSize
	if start >= len(matched) {
		return []api.Post{}, false
	}
	end := min(start+s.pageSize, len(matched))
	out := make([]api.Post, 0, end-start)
	for _, p := range matched[start:end] {
		out = append(out, s.wireLocked(p, viewer))
	}
	return out, end < len(matched)
}

func pageParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	viewer := s.currentUser(r)
	s.mu.Lock()
	items, hasNext := s.pageLocked(pageParam(r), viewer, func(*post) bool { return true })
	s.mu.Unlock()
	respond(w, http.StatusOK, api.FeedPage{Items: items, HasNext: hasNext}, "Posts fetched")
}

func (s *Server) handleUserPosts(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	viewer := s.currentUser(r)
	s.mu.Lock()
	if _, ok := s.users[userID]; !ok {
		s.mu.Unlock()
		respond(w, http.StatusNotFound, nil, "User not found")
		return
	}
	items, _ := s.pageLocked(pageParam(r), viewer, func(p *post) bool { return p.authorID == userID })
	s.mu.Unlock()
	respond(w, http.StatusOK, items, "")
}

func (s *Server) handleMyPosts(w http.ResponseWriter, r *http.Request) {
	viewer := s.requireUser(w, r)
	if viewer == "" {
		return
	}
	s.mu.Lock()
	items, _ := s.pageLocked(pageParam(r), viewer, func(p *post) bool { return p.authorID == viewer })
	s.mu.Unlock()
	respond(w, http.StatusOK, items, "")
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	viewer := s.requireUser(w, r)
	if viewer == "" {
		return
	}
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.posts, func(p *post) bool { return p.id == id })
	if i < 0 {
		respond(w, http.StatusNotFound, nil, "Post not found")
		return
	}
	if s.posts[i].authorID != viewer {
		respond(w, http.StatusForbidden, nil, "Not your post")
		return
	}
	s.posts = slices.Delete(s.posts, i, i+1)
	delete(s.likes, id)
	delete(s.bookmarks, id)
	respond(w, http.StatusOK, nil, "Post deleted")
}

// flip toggles viewer's membership in set[key] and returns the new state.
func flip(set map[string]map[string]bool, key, viewer string) bool {
	members := set[key]
	if members == nil {
		members = make(map[string]bool)
		set[key] = members
	}
	if members[viewer] {
		delete(members, viewer)
		return false
	}
	members[viewer] = true
	return true
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	s.togglePost(w, r, s.likes, "Post Liked", "Post Unliked")
}

func (s *Server) handleBookmark(w http.ResponseWriter, r *http.Request) {
	s.togglePost(w, r, s.bookmarks, "Post Bookmarked", "Bookmark Removed")
}

func (s *Server) togglePost(w http.ResponseWriter, r *http.Request, set map[string]map[string]bool, on, off string) {
	viewer := s.requireUser(w, r)
	if viewer == "" {
		return
	}
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	if !slices.ContainsFunc(s.posts, func(p *post) bool { return p.id == id }) {
		s.mu.Unlock()
		respond(w, http.StatusNotFound, nil, "Post not found")
		return
	}
	state := flip(set, id, viewer)
	s.mu.Unlock()

	msg := off
	if state {
		msg = on
	}
	respond(w, http.StatusOK, state, msg)
}

func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request) {
	viewer := s.requireUser(w, r)
	if viewer == "" {
		return
	}
	target := mux.Vars(r)["id"]
	if target == viewer {
		respond(w, http.StatusBadRequest, nil, "You cannot follow yourself")
		return
	}
	s.mu.Lock()
	if _, ok := s.users[target]; !ok {
		s.mu.Unlock()
		respond(w, http.StatusNotFound, nil, "User not found")
		return
	}
	state := flip(s.follows, target, viewer)
	s.mu.Unlock()

	msg := "Unfollowed"
	if state {
		msg = "Followed"
	}
	respond(w, http.StatusOK, state, msg)
}
