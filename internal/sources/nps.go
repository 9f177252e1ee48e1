package sources

import (
	"context"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"parkatlas/internal/models"
)

// NPSClient pulls park records from the National Park Service API,
// which wraps results in {"total": "...", "data": [...]} envelopes
// and pages with start/limit parameters.
type NPSClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	apiKey     string
	pageSize   int
}

func NewNPSClient(baseURL, apiKey string) *NPSClient {
	return &NPSClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
		baseURL:    baseURL,
		apiKey:     apiKey,
		pageSize:   50,
	}
}

// Fetch yields one property bag per park record. The API returns no
// geometry, only point coordinates, so Geometry is always nil here.
func (c *NPSClient) Fetch(ctx context.Context) iter.Seq2[models.RawItem, error] {
	return func(yield func(models.RawItem, error) bool) {
		start := 0
		for {
			if err := c.limiter.Wait(ctx); err != nil {
				yield(models.RawItem{}, err)
				return
			}

			body, err := c.fetchPage(ctx, start)
			if err != nil {
				yield(models.RawItem{}, fmt.Errorf("page at start %d: %w", start, err))
				return
			}

			records := gjson.GetBytes(body, "data").Array()
			if len(records) == 0 {
				return
			}

			for _, rec := range records {
				if !yield(models.RawItem{Props: parkRecord(rec)}, nil) {
					return
				}
			}

			start += len(records)
			if total := gjson.GetBytes(body, "total").Int(); total > 0 && int64(start) >= total {
				return
			}
		}
	}
}

func (c *NPSClient) fetchPage(ctx context.Context, start int) ([]byte, error) {
	params := url.Values{}
	params.Set("start", strconv.Itoa(start))
	params.Set("limit", strconv.Itoa(c.pageSize))
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned %d: %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}

// parkRecord flattens one NPS record into the key names the schema
// normalizer already understands.
func parkRecord(rec gjson.Result) map[string]interface{} {
	props := map[string]interface{}{}

	setIf := func(key string, r gjson.Result) {
		if r.Exists() && r.String() != "" {
			props[key] = r.String()
		}
	}

	setIf("fullName", rec.Get("fullName"))
	setIf("states", rec.Get("states"))
	setIf("description", rec.Get("description"))
	setIf("url", rec.Get("url"))
	setIf("designation", rec.Get("designation"))

	if lat := rec.Get("latitude"); lat.Exists() && lat.String() != "" {
		props["latitude"] = lat.String()
	}
	if lng := rec.Get("longitude"); lng.Exists() && lng.String() != "" {
		props["longitude"] = lng.String()
	}

	if addr := rec.Get("addresses.#(type==Physical)"); addr.Exists() {
		street := addr.Get("line1").String()
		city := addr.Get("city").String()
		if street != "" && city != "" {
			props["address"] = street + ", " + city
		}
	}
	if phone := rec.Get("contacts.phoneNumbers.0.phoneNumber"); phone.Exists() {
		props["phone"] = phone.String()
	}
	if email := rec.Get("contacts.emailAddresses.0.emailAddress"); email.Exists() {
		props["email"] = email.String()
	}

	var activities []interface{}
	rec.Get("activities.#.name").ForEach(func(_, v gjson.Result) bool {
		activities = append(activities, v.String())
		return true
	})
	if len(activities) > 0 {
		props["activities"] = activities
	}

	props["agency"] = "National Park Service"
	return props
}
