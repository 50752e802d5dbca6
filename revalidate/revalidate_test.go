package revalidate

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"caballos/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathsEvictsExactAndQueryVariants(t *testing.T) {
	Reset()
	Set("/galeria", []byte("a"), "text/html")
	Set("/galeria?page=2", []byte("b"), "text/html")
	Set("/galeria/5", []byte("c"), "text/html")
	Set("/galeria-old", []byte("d"), "text/html")
	Set("/foro", []byte("e"), "text/html")

	evicted := Paths("/galeria", "/galeria")
	assert.Equal(t, 2, evicted)
	_, ok := Get("/galeria/5")
	assert.True(t, ok, "other albums stay cached")
	_, ok = Get("/galeria-old")
	assert.True(t, ok)
	_, ok = Get("/galeria?page=2")
	assert.False(t, ok)

	assert.Equal(t, 2, Paths(AlbumPaths(5)...)+Paths(ForumPath))
	assert.Equal(t, 1, Len())
}

func TestStoreRejectsRendersOlderThanStale(t *testing.T) {
	Reset()
	before := Generation("/foro")
	Paths(ForumPath)
	assert.Equal(t, before+1, Generation("/foro"))

	assert.False(t, Store("/foro?page=2", before, []byte("old"), "text/html"))
	_, ok := Get("/foro?page=2")
	assert.False(t, ok)

	// Stored first, invalidated afterwards: never served again
	require.True(t, Store("/foro", Generation("/foro"), []byte("fresh"), "text/html"))
	Paths("/foro/9")
	page, ok := Get("/foro")
	require.True(t, ok, "other paths do not touch it")
	assert.Equal(t, "fresh", string(page.Body))
	generations.Upsert("/foro", 0, func(_ bool, old, _ uint64) uint64 { return old + 1 })
	_, ok = Get("/foro")
	assert.False(t, ok)
	assert.Equal(t, 0, Len())
}

func TestPageExpiry(t *testing.T) {
	Reset()
	old := config.PAGE_CACHE_TTL
	t.Cleanup(func() { config.PAGE_CACHE_TTL = old })
	config.PAGE_CACHE_TTL = time.Minute

	require.True(t, Set("/mercado", []byte("a"), "text/html"))
	page, ok := Get("/mercado")
	require.True(t, ok)
	page.CreatedAt -= 61
	_, ok = Get("/mercado")
	assert.False(t, ok)
	assert.Equal(t, 0, Len())
}

func TestMaxEntries(t *testing.T) {
	Reset()
	old := config.PAGE_CACHE_MAX_ENTRIES
	t.Cleanup(func() { config.PAGE_CACHE_MAX_ENTRIES = old })
	config.PAGE_CACHE_MAX_ENTRIES = 2

	assert.True(t, Set("/foro", []byte("a"), "text/html"))
	assert.True(t, Set("/foro?page=2", []byte("b"), "text/html"))
	assert.False(t, Set("/foro?page=3", []byte("c"), "text/html"))
	assert.Equal(t, 2, Len())

	// Outdated pages make room
	generations.Upsert("/foro", 0, func(_ bool, old, _ uint64) uint64 { return old + 1 })
	assert.True(t, Set("/mercado", []byte("d"), "text/html"))
	assert.Equal(t, 1, Len())
}

func TestOnStale(t *testing.T) {
	Reset()
	got := [][]string{}
	unsubscribe := OnStale(func(paths []string) {
		got = append(got, paths)
	})
	Paths(ThreadPaths(3)...)
	unsubscribe()
	Paths(AdPaths()...)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"/foro", "/foro/3", "/"}, got[0])
}

func TestWebhook(t *testing.T) {
	var mu sync.Mutex
	received := Notification{}
	done := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		json.NewDecoder(r.Body).Decode(&received)
		close(done)
	}))
	defer server.Close()
	config.REVALIDATE_WEBHOOK = server.URL
	t.Cleanup(func() { config.REVALIDATE_WEBHOOK = "" })

	Paths(HorsePaths("tornado")...)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("webhook not called")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"/salon-de-la-fama", "/", "/salon-de-la-fama/tornado"}, received.Paths)
}

func TestWebhookStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()
	config.REVALIDATE_WEBHOOK = server.URL
	t.Cleanup(func() { config.REVALIDATE_WEBHOOK = "" })
	err := (&Notification{Paths: []string{"/"}}).Send()
	assert.EqualError(t, err, "status: 502")
}
