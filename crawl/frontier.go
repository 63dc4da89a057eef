// Package crawl implements the local recursive crawl adapter: a bloom-deduped
// priority frontier driven by a bounded worker pool with per-domain rate
// limiting. It is the fallback mapper for targets that publish no sitemap.
package crawl

import (
	"container/heap"
	"strings"
	"sync"

	"github.com/fwojciec/sweep/bloom"
)

// Link priorities. Navigation pages are expanded before leaf assets so the
// crawl reaches breadth before the URL cap hits.
const (
	PriorityNavigation = 2
	PriorityContent    = 1
	PriorityAsset      = 0
)

// Link is one frontier entry.
type Link struct {
	URL      string
	Parent   string
	Priority int
	Depth    int
}

// Frontier is an in-memory URL frontier with priority ordering and bloom
// filter deduplication. Safe for concurrent use.
type Frontier struct {
	mu    sync.Mutex
	seen  *bloom.Filter
	queue *linkHeap
}

// NewFrontier creates a Frontier sized for n expected URLs with the given
// false positive rate.
func NewFrontier(n uint, fpRate float64) *Frontier {
	h := &linkHeap{}
	heap.Init(h)
	return &Frontier{
		seen:  bloom.NewFilter(n, fpRate),
		queue: h,
	}
}

// Push adds a link. Returns false when the URL was already seen. Fragments
// are stripped before deduplication.
func (f *Frontier) Push(link Link) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	url := stripFragment(link.URL)
	if f.seen.TestAndAdd(url) {
		return false
	}

	link.URL = url
	heap.Push(f.queue, link)
	return true
}

// MarkSeen records the URL as seen without queueing it. Returns false when it
// was already seen. Used for references that are reported but never fetched.
func (f *Frontier) MarkSeen(rawURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return !f.seen.TestAndAdd(stripFragment(rawURL))
}

// Pop returns the highest-priority link. The bool result is false when the
// frontier is empty.
func (f *Frontier) Pop() (Link, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.queue.Len() == 0 {
		return Link{}, false
	}
	link, _ := heap.Pop(f.queue).(Link)
	return link, true
}

// Len returns the number of queued links.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queue.Len()
}

// Seen reports whether the URL has been queued or processed.
func (f *Frontier) Seen(rawURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen.Test(stripFragment(rawURL))
}

func stripFragment(url string) string {
	if idx := strings.Index(url, "#"); idx != -1 {
		return url[:idx]
	}
	return url
}

// linkHeap implements heap.Interface as a max-heap on priority; equal
// priorities pop shallower links first.
type linkHeap []Link

func (h linkHeap) Len() int { return len(h) }

func (h linkHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].Depth < h[j].Depth
}

func (h linkHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *linkHeap) Push(x any) {
	link, _ := x.(Link)
	*h = append(*h, link)
}

func (h *linkHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}
