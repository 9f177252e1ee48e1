package scraper

import (
	"context"
	"fmt"
	"html"
	"iter"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"parkatlas/internal/models"
)

// htmlFetcher is what DirectoryScraper needs from the browser. Tests
// substitute canned HTML.
type htmlFetcher interface {
	FetchHTML(ctx context.Context, pageURL string) (string, error)
}

// DirectoryConfig controls one park-directory scrape.
type DirectoryConfig struct {
	BaseURL      string
	State        string
	Agency       string
	MaxPages     int
	DelayBetween time.Duration
}

// DefaultDirectoryConfig returns sane scrape settings
func DefaultDirectoryConfig(baseURL, state string) DirectoryConfig {
	return DirectoryConfig{
		BaseURL:      baseURL,
		State:        state,
		MaxPages:     10,
		DelayBetween: 2 * time.Second,
	}
}

// DirectoryScraper walks a state park directory site page by page,
// yielding one raw item per park it can identify.
type DirectoryScraper struct {
	fetcher htmlFetcher
	config  DirectoryConfig
}

// NewDirectoryScraper creates a scraper over a started browser
func NewDirectoryScraper(browser *Browser, config DirectoryConfig) *DirectoryScraper {
	return &DirectoryScraper{
		fetcher: browser,
		config:  config,
	}
}

// Fetch yields park property bags from successive listing pages. A
// failed page yields an error and ends the walk; parks already seen
// are not re-yielded.
func (s *DirectoryScraper) Fetch(ctx context.Context) iter.Seq2[models.RawItem, error] {
	return func(yield func(models.RawItem, error) bool) {
		seen := make(map[string]bool)

		for page := 1; page <= s.config.MaxPages; page++ {
			select {
			case <-ctx.Done():
				yield(models.RawItem{}, ctx.Err())
				return
			default:
			}

			pageURL := s.config.BaseURL
			if page > 1 {
				pageURL = fmt.Sprintf("%s?page=%d", s.config.BaseURL, page)
			}

			log.Printf("Scraping directory page %d: %s", page, pageURL)

			html, err := s.fetcher.FetchHTML(ctx, pageURL)
			if err != nil {
				yield(models.RawItem{}, fmt.Errorf("page %d: %w", page, err))
				return
			}

			items, hasMore := s.parsePage(html)
			log.Printf("Found %d parks on page %d", len(items), page)

			yielded := 0
			for _, item := range items {
				name, _ := item.Props["name"].(string)
				if name == "" || seen[name] {
					continue
				}
				seen[name] = true
				if !yield(item, nil) {
					return
				}
				yielded++
			}

			if !hasMore || yielded == 0 {
				return
			}

			select {
			case <-ctx.Done():
				yield(models.RawItem{}, ctx.Err())
				return
			case <-time.After(s.config.DelayBetween):
			}
		}
	}
}

var (
	ldJSONPattern   = regexp.MustCompile(`(?s)<script[^>]*type="application/ld\+json"[^>]*>(.+?)</script>`)
	parkLinkPattern = regexp.MustCompile(`<a[^>]+href="(/(?:parks?|find-a-park)/[^"#?]+)"[^>]*>([^<]+)</a>`)
	nextPattern     = regexp.MustCompile(`rel="next"|aria-label="Go to next page"|data-testid="[^"]*next[^"]*"`)
)

// parsePage extracts parks from a listing page. Structured data wins;
// bare park links are the fallback.
func (s *DirectoryScraper) parsePage(pageHTML string) ([]models.RawItem, bool) {
	items := s.parseStructuredData(pageHTML)
	if len(items) == 0 {
		items = s.parseParkLinks(pageHTML)
	}
	return items, nextPattern.MatchString(pageHTML)
}

// parseStructuredData reads JSON-LD blocks for Park/Place records.
func (s *DirectoryScraper) parseStructuredData(pageHTML string) []models.RawItem {
	var items []models.RawItem

	for _, match := range ldJSONPattern.FindAllStringSubmatch(pageHTML, -1) {
		doc := gjson.Parse(strings.TrimSpace(match[1]))

		records := []gjson.Result{doc}
		if doc.IsArray() {
			records = doc.Array()
		} else if graph := doc.Get("@graph"); graph.IsArray() {
			records = graph.Array()
		} else if list := doc.Get("itemListElement"); list.IsArray() {
			records = list.Array()
		}

		for _, rec := range records {
			if inner := rec.Get("item"); inner.Exists() {
				rec = inner
			}
			if item := s.parseRecord(rec); item != nil {
				items = append(items, *item)
			}
		}
	}

	return items
}

func (s *DirectoryScraper) parseRecord(rec gjson.Result) *models.RawItem {
	schemaType := rec.Get("@type").String()
	switch schemaType {
	case "Park", "Place", "TouristAttraction", "LandmarksOrHistoricalBuildings":
	default:
		return nil
	}

	name := strings.TrimSpace(rec.Get("name").String())
	if name == "" {
		return nil
	}

	props := map[string]interface{}{
		"name": name,
	}
	if s.config.State != "" {
		props["state"] = s.config.State
	}
	if s.config.Agency != "" {
		props["agency"] = s.config.Agency
	}
	if v := rec.Get("description").String(); v != "" {
		props["description"] = v
	}
	if v := rec.Get("url").String(); v != "" {
		props["website"] = v
	}
	if v := rec.Get("telephone").String(); v != "" {
		props["phone"] = v
	}
	if geo := rec.Get("geo"); geo.Exists() {
		if lat := geo.Get("latitude"); lat.Exists() {
			props["latitude"] = lat.Float()
			props["longitude"] = geo.Get("longitude").Float()
		}
	}
	if addr := rec.Get("address"); addr.Exists() {
		street := addr.Get("streetAddress").String()
		city := addr.Get("addressLocality").String()
		if street != "" && city != "" {
			props["address"] = street + ", " + city
		}
		if region := addr.Get("addressRegion").String(); region != "" {
			props["state"] = region
		}
	}

	return &models.RawItem{Props: props}
}

// parseParkLinks falls back to anchor tags pointing at park detail
// pages when a site ships no structured data.
func (s *DirectoryScraper) parseParkLinks(pageHTML string) []models.RawItem {
	var items []models.RawItem
	seen := make(map[string]bool)

	for _, match := range parkLinkPattern.FindAllStringSubmatch(pageHTML, -1) {
		path := match[1]
		name := strings.TrimSpace(html.UnescapeString(match[2]))
		if name == "" || seen[path] {
			continue
		}
		seen[path] = true

		props := map[string]interface{}{
			"name":    name,
			"website": s.absoluteURL(path),
		}
		if s.config.State != "" {
			props["state"] = s.config.State
		}
		if s.config.Agency != "" {
			props["agency"] = s.config.Agency
		}
		items = append(items, models.RawItem{Props: props})
	}

	return items
}

func (s *DirectoryScraper) absoluteURL(path string) string {
	base := s.config.BaseURL
	if i := strings.Index(base, "://"); i >= 0 {
		if j := strings.Index(base[i+3:], "/"); j >= 0 {
			base = base[:i+3+j]
		}
	}
	return base + path
}
