package crawler

import "slices"

// queueItem is a URL waiting to be visited at a BFS depth.
type queueItem struct {
	url   string
	depth int
}

// frontier is the crawl state. It is owned by the control loop and never
// touched by workers.
//
// Invariants: a URL enters visited at most once, and the queue never holds
// a visited URL. Only fetched URLs count against maxPages.
type frontier struct {
	visited  map[string]struct{}
	queued   map[string]struct{}
	queue    []queueItem
	fetched  int
	maxPages int
	maxDepth int
}

func newFrontier(maxPages, maxDepth int) *frontier {
	return &frontier{
		visited:  make(map[string]struct{}),
		queued:   make(map[string]struct{}),
		maxPages: maxPages,
		maxDepth: maxDepth,
	}
}

// done reports whether traversal must stop.
func (f *frontier) done() bool {
	return len(f.queue) == 0 || f.fetched >= f.maxPages
}

// enqueue adds url at depth unless it was seen before or is too deep.
func (f *frontier) enqueue(url string, depth int) bool {
	if depth > f.maxDepth {
		return false
	}
	if _, ok := f.visited[url]; ok {
		return false
	}
	if _, ok := f.queued[url]; ok {
		return false
	}
	f.queued[url] = struct{}{}
	f.queue = append(f.queue, queueItem{url: url, depth: depth})
	return true
}

// nextBatch dequeues up to limit items at the depth of the queue head,
// bounded by the remaining page budget, and marks them visited.
func (f *frontier) nextBatch(limit int) []queueItem {
	if f.done() {
		return nil
	}
	limit = min(limit, f.maxPages-f.fetched)
	depth := f.queue[0].depth

	n := 0
	for n < len(f.queue) && n < limit && f.queue[n].depth == depth {
		n++
	}
	batch := make([]queueItem, n)
	copy(batch, f.queue[:n])
	f.queue = f.queue[n:]

	for _, item := range batch {
		delete(f.queued, item.url)
		f.visited[item.url] = struct{}{}
	}
	f.fetched += n
	return batch
}

// markVisited records url as seen without spending page budget. It is used
// for redirect targets, whose document was already fetched under another
// URL. A queued copy of url is dropped.
func (f *frontier) markVisited(url string) {
	if _, ok := f.visited[url]; ok {
		return
	}
	f.visited[url] = struct{}{}
	if _, ok := f.queued[url]; !ok {
		return
	}
	delete(f.queued, url)
	f.queue = slices.DeleteFunc(f.queue, func(item queueItem) bool {
		return item.url == url
	})
}
