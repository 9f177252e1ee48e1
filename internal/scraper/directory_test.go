package scraper

import (
	"context"
	"fmt"
	"testing"
)

type fakeFetcher struct {
	pages map[string]string
	err   error
}

func (f *fakeFetcher) FetchHTML(_ context.Context, pageURL string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.pages[pageURL], nil
}

func scrapeAll(t *testing.T, s *DirectoryScraper) ([]map[string]interface{}, []error) {
	t.Helper()
	var bags []map[string]interface{}
	var errs []error
	for item, err := range s.Fetch(context.Background()) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		bags = append(bags, item.Props)
	}
	return bags, errs
}

const structuredPage = `<html><body>
<script type="application/ld+json">
[
  {
    "@type": "Park",
    "name": "Stone Mountain State Park",
    "description": "Granite dome and trout streams.",
    "url": "https://example.org/parks/stone-mountain",
    "geo": {"latitude": 36.39, "longitude": -81.05},
    "address": {"streetAddress": "3042 Frank Pkwy", "addressLocality": "Roaring Gap", "addressRegion": "NC"}
  },
  {
    "@type": "BreadcrumbList",
    "name": "ignored"
  },
  {
    "@type": "Place",
    "name": "Pilot Mountain State Park"
  }
]
</script>
</body></html>`

func TestDirectoryStructuredData(t *testing.T) {
	cfg := DefaultDirectoryConfig("https://example.org/parks", "NC")
	cfg.Agency = "state_parks"
	s := &DirectoryScraper{
		fetcher: &fakeFetcher{pages: map[string]string{"https://example.org/parks": structuredPage}},
		config:  cfg,
	}

	bags, errs := scrapeAll(t, s)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(bags) != 2 {
		t.Fatalf("got %d parks, want 2", len(bags))
	}

	first := bags[0]
	if first["name"] != "Stone Mountain State Park" {
		t.Errorf("got name %v", first["name"])
	}
	if first["state"] != "NC" {
		t.Errorf("got state %v", first["state"])
	}
	if first["latitude"] != 36.39 {
		t.Errorf("got latitude %v", first["latitude"])
	}
	if first["address"] != "3042 Frank Pkwy, Roaring Gap" {
		t.Errorf("got address %v", first["address"])
	}
	if first["agency"] != "state_parks" {
		t.Errorf("got agency %v", first["agency"])
	}
	if bags[1]["name"] != "Pilot Mountain State Park" {
		t.Errorf("got second name %v", bags[1]["name"])
	}
}

const cardPage = `<html><body>
<div class="cards">
  <a href="/parks/hanging-rock" class="card">Hanging Rock State Park</a>
  <a href="/parks/hanging-rock">Hanging Rock State Park</a>
  <a href="/parks/eno-river">Eno River State Park</a>
  <a href="/about">About Us</a>
</div>
</body></html>`

func TestDirectoryLinkFallback(t *testing.T) {
	s := &DirectoryScraper{
		fetcher: &fakeFetcher{pages: map[string]string{"https://example.org/parks": cardPage}},
		config:  DefaultDirectoryConfig("https://example.org/parks", "NC"),
	}

	bags, errs := scrapeAll(t, s)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(bags) != 2 {
		t.Fatalf("got %d parks, want 2", len(bags))
	}
	if bags[0]["name"] != "Hanging Rock State Park" {
		t.Errorf("got name %v", bags[0]["name"])
	}
	if bags[0]["website"] != "https://example.org/parks/hanging-rock" {
		t.Errorf("got website %v", bags[0]["website"])
	}
}

func TestDirectoryPagination(t *testing.T) {
	page := func(names ...string) string {
		body := "<html><body>"
		for _, n := range names {
			body += fmt.Sprintf(`<a href="/parks/%s">%s</a>`, n, n)
		}
		body += `<a rel="next" href="?page=next">Next</a></body></html>`
		return body
	}
	lastPage := `<html><body><a href="/parks/last">Last Park</a></body></html>`

	cfg := DefaultDirectoryConfig("https://example.org/parks", "NC")
	cfg.DelayBetween = 0
	s := &DirectoryScraper{
		fetcher: &fakeFetcher{pages: map[string]string{
			"https://example.org/parks":        page("Park One", "Park Two"),
			"https://example.org/parks?page=2": page("Park Three"),
			"https://example.org/parks?page=3": lastPage,
		}},
		config: cfg,
	}

	bags, errs := scrapeAll(t, s)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(bags) != 4 {
		t.Fatalf("got %d parks, want 4", len(bags))
	}
}

func TestDirectoryDedupeAcrossPages(t *testing.T) {
	repeat := `<html><body><a href="/parks/one">Park One</a><a rel="next" href="?page=next">Next</a></body></html>`

	cfg := DefaultDirectoryConfig("https://example.org/parks", "NC")
	cfg.DelayBetween = 0
	cfg.MaxPages = 5
	s := &DirectoryScraper{
		fetcher: &fakeFetcher{pages: map[string]string{
			"https://example.org/parks":        repeat,
			"https://example.org/parks?page=2": repeat,
		}},
		config: cfg,
	}

	bags, _ := scrapeAll(t, s)
	if len(bags) != 1 {
		t.Fatalf("got %d parks, want 1 (repeat page contributes nothing and ends the walk)", len(bags))
	}
}

func TestDirectoryFetchError(t *testing.T) {
	s := &DirectoryScraper{
		fetcher: &fakeFetcher{err: fmt.Errorf("tab crashed")},
		config:  DefaultDirectoryConfig("https://example.org/parks", "NC"),
	}
	bags, errs := scrapeAll(t, s)
	if len(bags) != 0 || len(errs) != 1 {
		t.Fatalf("got %d parks, %d errors", len(bags), len(errs))
	}
}
