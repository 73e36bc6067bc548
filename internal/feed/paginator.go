package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dreamware/tjsocial/internal/notify"
)

// DefaultFetchError is the notification shown when a page fails to load.
const DefaultFetchError = "Failed to fetch posts."

// Config configures a Paginator.
type Config struct {
	Fetcher  Fetcher
	Notifier notify.Notifier // Default notify.Discard
	Logger   *slog.Logger    // Default slog.Default()

	// Name labels the feed in logs, e.g. "home" or "user:42".
	Name string
	// FetchErrorMessage overrides DefaultFetchError.
	FetchErrorMessage string
}

// Paginator owns one feed's pagination state: the loaded items, the page
// cursor, the exhausted flag and the single-fetch-in-flight guard.
//
// The only external trigger for loading is TriggerOnVisible, called by the
// view when the element for the armed last item scrolls into view. The
// trigger is armed on the id of the last item in arrival order and re-armed
// whenever that identity changes, so a trigger bound to an item that is no
// longer last never fires again.
//
// A Paginator lives as long as the view that created it. Safe for
// concurrent use; no lock is held while a page is being fetched.
type Paginator struct {
	fetcher  Fetcher
	notifier notify.Notifier
	logger   *slog.Logger
	items    *ItemStore
	fetchMsg string

	mu        sync.Mutex
	armed     string // id the visibility trigger is bound to, "" for an empty feed
	cursor    int
	exhausted bool
	inFlight  bool
}

// NewPaginator creates a paginator positioned at page 1.
func NewPaginator(cfg Config) *Paginator {
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Discard
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.FetchErrorMessage == "" {
		cfg.FetchErrorMessage = DefaultFetchError
	}
	logger := cfg.Logger
	if cfg.Name != "" {
		logger = logger.With("feed", cfg.Name)
	}
	return &Paginator{
		fetcher:  cfg.Fetcher,
		notifier: cfg.Notifier,
		logger:   logger,
		items:    NewItemStore(),
		fetchMsg: cfg.FetchErrorMessage,
		cursor:   1,
	}
}

// RequestNextPage fetches the page at the cursor unless a fetch is already
// in flight or the feed is exhausted, in which case it does nothing and
// returns false. On success the page is appended (ids already present are
// dropped) and the cursor advances. On failure cursor and exhausted are
// left unchanged, a notification is emitted and the error is returned;
// the paginator never retries on its own.
func (p *Paginator) RequestNextPage(ctx context.Context) (bool, error) {
	p.mu.Lock()
	if p.inFlight || p.exhausted {
		p.mu.Unlock()
		return false, nil
	}
	p.inFlight = true
	page := p.cursor
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.inFlight = false
		p.mu.Unlock()
	}()

	if p.fetcher == nil {
		return true, errors.New("feed: no fetcher configured")
	}

	p.logger.Debug("fetching page", "page", page)
	res, err := p.fetcher.FetchPage(ctx, page)
	if err != nil {
		p.logger.Warn("page fetch failed", "page", page, "error", err)
		notify.Error(p.notifier, p.fetchMsg)
		return true, fmt.Errorf("fetch page %d: %w", page, err)
	}

	p.mu.Lock()
	added := p.items.Append(res.Items)
	p.cursor = page + 1
	if res.HasNext != nil {
		p.exhausted = !*res.HasNext
	} else {
		p.exhausted = len(res.Items) == 0
	}
	p.armed = p.items.LastID()
	exhausted := p.exhausted
	p.mu.Unlock()

	p.logger.Debug("page loaded", "page", page, "received", len(res.Items), "added", added, "exhausted", exhausted)
	return true, nil
}

// TriggerOnVisible is called by the view when the element for lastItemID
// becomes visible. It requests the next page only if lastItemID is the item
// the trigger is currently armed on; triggers from stale elements are
// ignored. Pass "" for the empty-feed sentinel on first mount.
func (p *Paginator) TriggerOnVisible(ctx context.Context, lastItemID string) (bool, error) {
	p.mu.Lock()
	armed := p.armed
	p.mu.Unlock()

	if lastItemID != armed {
		p.logger.Debug("ignoring stale visibility trigger", "item", lastItemID, "armed", armed)
		return false, nil
	}
	return p.RequestNextPage(ctx)
}

// ArmedItemID returns the id the visibility trigger is currently bound to:
// the last item in arrival order, or "" while the feed is empty.
func (p *Paginator) ArmedItemID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.armed
}

// Remove drops an item, e.g. after the user deleted the post, and re-arms
// the trigger if the last item changed.
func (p *Paginator) Remove(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.items.Delete(id) {
		return false
	}
	p.armed = p.items.LastID()
	return true
}

// Item returns a copy of one loaded item.
func (p *Paginator) Item(id string) (Item, bool) {
	return p.items.Get(id)
}

// Items returns copies of the loaded items in arrival order.
func (p *Paginator) Items() []Item {
	return p.items.List()
}

// View returns the loaded items ordered by key. It is recomputed on every
// call so it always reflects the latest interaction state.
func (p *Paginator) View(key SortKey) []Item {
	return Project(p.items.List(), key)
}

// Snapshot returns a consistent copy of the pagination state.
func (p *Paginator) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return State{
		Items:         p.items.List(),
		Cursor:        p.cursor,
		Exhausted:     p.exhausted,
		FetchInFlight: p.inFlight,
	}
}

// Likes exposes the like state of loaded items for optimistic toggling.
func (p *Paginator) Likes() Interactions {
	return Interactions{store: p.items, field: fieldLike}
}

// Bookmarks exposes the bookmark state of loaded items for optimistic toggling.
func (p *Paginator) Bookmarks() Interactions {
	return Interactions{store: p.items, field: fieldBookmark}
}

type interactionField int

const (
	fieldLike interactionField = iota
	fieldBookmark
)

// Interactions reads and writes one boolean interaction of loaded items.
// It is the only write path into items after they are fetched.
type Interactions struct {
	store *ItemStore
	field interactionField
}

// Lookup returns the current value and count for id. Bookmarks carry no
// count and always report 0.
func (v Interactions) Lookup(id string) (bool, int, bool) {
	it, ok := v.store.Get(id)
	if !ok {
		return false, 0, false
	}
	if v.field == fieldBookmark {
		return it.Bookmarked, 0, true
	}
	return it.Liked, it.LikeCount, true
}

// Store writes value and count for id; it reports false for unknown ids.
func (v Interactions) Store(id string, value bool, count int) bool {
	return v.store.Update(id, func(it *Item) {
		if v.field == fieldBookmark {
			it.Bookmarked = value
			return
		}
		it.Liked = value
		it.LikeCount = max(count, 0)
	})
}
