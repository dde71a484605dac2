package catalog_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"release-notifier-bot/catalog"
)

const showPage = `<html><body>
<h1 class="entry-title">One Piece</h1>
<img class="img-responsive img-center" src="/wp-content/uploads/one-piece.jpg" />
<div class="series-syn">
  <p>Gol D. Roger was known as the Pirate King.</p>
</div>
</body></html>`

const schedule = `{"tz": "Europe/Berlin", "schedule": {
  "Monday": [{"title": "Other", "page": "other", "image_url": "/x.jpg", "time": "12:00"}],
  "Sunday": [{"title": "One Piece", "page": "one-piece", "image_url": "/one-piece.jpg", "time": "02:15"}]
}}`

func newSite(t *testing.T) (*httptest.Server, *int) {
	t.Helper()
	hits := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/shows/one-piece/", func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte(showPage))
	})
	mux.HandleFunc("/shows/no-synopsis/", func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte(`<h1 class="entry-title">x</h1><img class="img-responsive img-center" src="/a.jpg" />`))
	})
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(schedule))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &hits
}

func newScraper(server *httptest.Server) *catalog.Scraper {
	return catalog.NewScraper(server.URL, server.URL+"/api/?f=schedule", 0)
}

type memoryStore struct {
	mu        sync.Mutex
	shows     map[string]catalog.Show
	failPut   bool
	putCalls  int
	updateErr map[string]error
}

func newMemoryStore(shows ...catalog.Show) *memoryStore {
	s := &memoryStore{shows: make(map[string]catalog.Show), updateErr: make(map[string]error)}
	for _, show := range shows {
		s.shows[show.ID] = show
	}
	return s
}

func (s *memoryStore) IsShowStored(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.shows[id]
	return ok, nil
}

func (s *memoryStore) GetShow(id string) (catalog.Show, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	show, ok := s.shows[id]
	if !ok {
		return catalog.Show{}, errors.New("not found")
	}
	return show, nil
}

func (s *memoryStore) PutShow(show catalog.Show) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putCalls++
	if s.failPut {
		return errors.New("db down")
	}
	s.shows[show.ID] = show
	return nil
}

func (s *memoryStore) UpdateShow(show catalog.Show) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.updateErr[show.ID]; err != nil {
		return err
	}
	s.shows[show.ID] = show
	return nil
}

func (s *memoryStore) AllShowIDs() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.shows))
	for id := range s.shows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func TestScrapeShow(t *testing.T) {
	server, _ := newSite(t)
	show, err := newScraper(server).Scrape(context.Background(), "one-piece")
	if err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}
	if show.Name != "One Piece" || show.ID != "one-piece" {
		t.Fatalf("unexpected show: %#v", show)
	}
	if show.ImageURL != server.URL+"/wp-content/uploads/one-piece.jpg" {
		t.Fatalf("unexpected image url %q", show.ImageURL)
	}
	if show.Synopsis != "Gol D. Roger was known as the Pirate King." {
		t.Fatalf("unexpected synopsis %q", show.Synopsis)
	}
	expected := catalog.AirTime{IsAiring: true, WeekDay: 6, Hour: 2, Minute: 15}
	if show.AirTime != expected {
		t.Fatalf("unexpected air time %#v", show.AirTime)
	}
}

func TestScrapeFailures(t *testing.T) {
	server, _ := newSite(t)
	for _, id := range []string{"missing-page", "no-synopsis"} {
		_, err := newScraper(server).Scrape(context.Background(), id)
		if !errors.Is(err, catalog.ErrShowNotAvailable) {
			t.Fatalf("expected ErrShowNotAvailable for %v, got %v", id, err)
		}
	}
}

func TestResolveOrCreateScrapesOnce(t *testing.T) {
	server, hits := newSite(t)
	store := newMemoryStore()
	c := catalog.New(store, newScraper(server), 0)

	first, err := c.ResolveOrCreate(context.Background(), "one-piece")
	if err != nil {
		t.Fatalf("ResolveOrCreate failed: %v", err)
	}
	second, err := c.ResolveOrCreate(context.Background(), "one-piece")
	if err != nil {
		t.Fatalf("second ResolveOrCreate failed: %v", err)
	}
	if first != second {
		t.Fatalf("expected the stored show to be returned, got %#v and %#v", first, second)
	}
	if *hits != 1 {
		t.Fatalf("expected a single page fetch, got %d", *hits)
	}
	if store.putCalls != 1 {
		t.Fatalf("expected one insert, got %d", store.putCalls)
	}
}

func TestResolveOrCreateUnavailable(t *testing.T) {
	server, _ := newSite(t)
	store := newMemoryStore()
	_, err := catalog.New(store, newScraper(server), 0).ResolveOrCreate(context.Background(), "nope")
	if !errors.Is(err, catalog.ErrShowNotAvailable) {
		t.Fatalf("expected ErrShowNotAvailable, got %v", err)
	}
	if store.putCalls != 0 {
		t.Fatal("nothing must be stored for an unavailable show")
	}
}

func TestResolveOrCreateStoreFailure(t *testing.T) {
	server, _ := newSite(t)
	store := newMemoryStore()
	store.failPut = true
	_, err := catalog.New(store, newScraper(server), 0).ResolveOrCreate(context.Background(), "one-piece")
	if !errors.Is(err, catalog.ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}
}

type scriptedScraper struct {
	calls []string
	fail  map[string]bool
	after func()
}

func (s *scriptedScraper) Scrape(_ context.Context, id string) (catalog.Show, error) {
	s.calls = append(s.calls, id)
	if s.after != nil {
		s.after()
	}
	if s.fail[id] {
		return catalog.Show{}, errors.Wrap(catalog.ErrShowNotAvailable, "site down")
	}
	return catalog.Show{ID: id, Name: "refreshed " + id, AirTime: catalog.NotAiring()}, nil
}

func TestRefreshAllUpdatesEveryShow(t *testing.T) {
	store := newMemoryStore(catalog.Show{ID: "a"}, catalog.Show{ID: "b"}, catalog.Show{ID: "c"})
	store.updateErr["b"] = errors.New("write failed")
	scraper := &scriptedScraper{}
	err := catalog.New(store, scraper, 0).RefreshAll(context.Background())
	if err != nil {
		t.Fatalf("RefreshAll failed: %v", err)
	}
	if fmt.Sprint(scraper.calls) != "[a b c]" {
		t.Fatalf("unexpected scrapes %v", scraper.calls)
	}
	if store.shows["a"].Name != "refreshed a" || store.shows["c"].Name != "refreshed c" {
		t.Fatalf("expected shows to be overwritten: %#v", store.shows)
	}
}

func TestRefreshAllStopsAtFirstScrapeFailure(t *testing.T) {
	store := newMemoryStore(catalog.Show{ID: "a"}, catalog.Show{ID: "b"}, catalog.Show{ID: "c"})
	scraper := &scriptedScraper{fail: map[string]bool{"b": true}}
	err := catalog.New(store, scraper, 0).RefreshAll(context.Background())
	if !errors.Is(err, catalog.ErrShowNotAvailable) {
		t.Fatalf("expected ErrShowNotAvailable, got %v", err)
	}
	if fmt.Sprint(scraper.calls) != "[a b]" {
		t.Fatalf("expected refresh to stop after b, got %v", scraper.calls)
	}
	if store.shows["c"].Name != "" {
		t.Fatal("c must not be refreshed")
	}
}

func TestRefreshAllWaitsBetweenScrapes(t *testing.T) {
	const delay = 30 * time.Millisecond
	store := newMemoryStore(catalog.Show{ID: "a"}, catalog.Show{ID: "b"}, catalog.Show{ID: "c"})
	scraper := &scriptedScraper{}
	started := time.Now()
	err := catalog.New(store, scraper, delay).RefreshAll(context.Background())
	if err != nil {
		t.Fatalf("RefreshAll failed: %v", err)
	}
	if elapsed := time.Since(started); elapsed < 2*delay {
		t.Fatalf("3 scrapes took %v, want at least %v", elapsed, 2*delay)
	}
	if len(scraper.calls) != 3 {
		t.Fatalf("unexpected scrapes %v", scraper.calls)
	}
}

func TestRefreshAllCancelledWhileWaiting(t *testing.T) {
	store := newMemoryStore(catalog.Show{ID: "a"}, catalog.Show{ID: "b"})
	ctx, cancel := context.WithCancel(context.Background())
	scraper := &scriptedScraper{after: cancel}
	err := catalog.New(store, scraper, time.Hour).RefreshAll(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if !strings.Contains(err.Error(), "catalog refresh interrupted") {
		t.Fatalf("unexpected error %v", err)
	}
	if fmt.Sprint(scraper.calls) != "[a]" {
		t.Fatalf("expected only a to be scraped, got %v", scraper.calls)
	}
}
