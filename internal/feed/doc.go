// Package feed implements incremental, visibility-triggered loading of a
// social feed and the client-side re-ordering of what has been loaded.
//
// # Overview
//
// A feed view owns one Paginator for as long as it is mounted. The
// paginator keeps the items received so far in arrival order, the 1-based
// page cursor, a terminal exhausted flag and a fetch-in-flight guard:
//
//	view scrolls ──► TriggerOnVisible(lastID) ──► RequestNextPage
//	                        │ stale id: ignored          │ in flight / exhausted: no-op
//	                        ▼                            ▼
//	                 armed on last item ◄──── append page (dedup by id), cursor++
//
// # Invariants
//
//   - At most one fetch is in flight per Paginator.
//   - Exhausted is terminal; once set no fetch is issued again.
//   - An item whose id is already loaded is dropped from later pages. The
//     loaded copy keeps its position and content.
//   - A failed fetch leaves cursor and exhausted as they were, so the same
//     trigger can retry. The paginator itself never retries.
//
// # Ordering
//
// Project re-derives display order from loaded items without fetching. It
// is a pure, stable function: ties keep arrival order and nothing is cached,
// so a like toggled a moment ago is reflected by the next call.
//
//	items := p.View(feed.SortMostLiked)
//
// # Interaction write-back
//
// Items are mutated after loading only through Likes() and Bookmarks(),
// which package interaction uses for optimistic toggles.
package feed
