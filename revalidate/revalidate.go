package revalidate

import (
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"caballos/config"
	"caballos/metrics"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// Page is a rendered response kept until its path goes stale or it expires
type Page struct {
	Path        string
	Generation  uint64
	Body        []byte
	ContentType string
	CreatedAt   int64
}

func (p *Page) expired(now int64) bool {
	return config.PAGE_CACHE_TTL > 0 && now-p.CreatedAt >= int64(config.PAGE_CACHE_TTL/time.Second)
}

type Listener func(paths []string)

var (
	pages       = cmap.New[*Page]()
	generations = cmap.New[uint64]()
	listeners   = cmap.New[Listener]()
	listenerID  atomic.Uint64
)

// Get looks up a cached page by request URI (path plus query).
// Pages rendered before their path last went stale, or older than
// PAGE_CACHE_TTL, are dropped instead of returned.
func Get(uri string) (*Page, bool) {
	page, ok := pages.Get(uri)
	if !ok {
		return nil, false
	}
	if page.Generation != Generation(page.Path) || page.expired(time.Now().Unix()) {
		pages.RemoveCb(uri, func(_ string, v *Page, exists bool) bool {
			return exists && v == page
		})
		return nil, false
	}
	return page, true
}

// Generation is bumped by every Paths call naming path. Read it before
// rendering and hand it to Store so a render that raced a mutation is never kept.
func Generation(path string) uint64 {
	g, _ := generations.Get(path)
	return g
}

// Set stores a page rendered against the current state of its path
func Set(uri string, body []byte, contentType string) bool {
	return Store(uri, Generation(pathOf(uri)), body, contentType)
}

// Store keeps a page rendered when its path was at generation. Returns false
// when the path went stale in the meantime or the cache is full.
func Store(uri string, generation uint64, body []byte, contentType string) bool {
	path := pathOf(uri)
	if generation != Generation(path) {
		metrics.PageCacheDiscarded.Inc()
		return false
	}
	now := time.Now().Unix()
	if config.PAGE_CACHE_MAX_ENTRIES > 0 && pages.Count() >= config.PAGE_CACHE_MAX_ENTRIES {
		prune(now)
		if pages.Count() >= config.PAGE_CACHE_MAX_ENTRIES {
			metrics.PageCacheDiscarded.Inc()
			return false
		}
	}
	pages.Set(uri, &Page{
		Path:        path,
		Generation:  generation,
		Body:        body,
		ContentType: contentType,
		CreatedAt:   now,
	})
	return true
}

// prune drops expired and outdated pages
func prune(now int64) {
	for uri, page := range pages.Items() {
		if page.expired(now) || page.Generation != Generation(page.Path) {
			pages.Remove(uri)
		}
	}
}

func pathOf(uri string) string {
	path, _, _ := strings.Cut(uri, "?")
	return path
}

func Len() int {
	return pages.Count()
}

func Reset() {
	pages.Clear()
}

// Paths marks the given page paths as stale. Cached entries for the path and
// any query variant of it are evicted so the next request renders them again.
// Listeners and the optional webhook are told about every path, cached or not.
// Returns the number of evicted cache entries.
func Paths(paths ...string) int {
	if len(paths) == 0 {
		return 0
	}
	paths = unique(paths)
	for _, p := range paths {
		generations.Upsert(p, 0, func(_ bool, old, _ uint64) uint64 {
			return old + 1
		})
	}
	evicted := 0
	for _, uri := range pages.Keys() {
		for _, p := range paths {
			if uri == p || strings.HasPrefix(uri, p+"?") {
				pages.Remove(uri)
				evicted++
				break
			}
		}
	}
	metrics.RevalidatedPaths.Add(float64(len(paths)))
	for _, l := range listeners.Items() {
		l(paths)
	}
	if config.REVALIDATE_WEBHOOK != "" {
		go (&Notification{Paths: paths, At: time.Now().Unix()}).Send()
	}
	return evicted
}

// OnStale registers a listener called synchronously from Paths, it must not block
func OnStale(l Listener) (unsubscribe func()) {
	key := strconv.FormatUint(listenerID.Add(1), 10)
	listeners.Set(key, l)
	return func() {
		listeners.Remove(key)
	}
}

func unique(paths []string) []string {
	seen := map[string]bool{}
	result := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		result = append(result, p)
	}
	return result
}
