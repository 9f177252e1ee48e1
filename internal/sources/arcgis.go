package sources

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/paulmach/orb/geojson"
	"golang.org/x/time/rate"

	"parkatlas/internal/models"
)

// ArcGISClient pulls protected-area features from an ArcGIS REST
// MapServer/FeatureServer query endpoint, page by page.
type ArcGISClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	pageSize   int
	maxRetries int
	retryDelay time.Duration
}

// NewArcGISClient creates a client for one query endpoint. Pages are
// pulled at most twice a second so a long pull stays polite.
func NewArcGISClient(baseURL string) *ArcGISClient {
	return &ArcGISClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		baseURL:    baseURL,
		pageSize:   1000,
		maxRetries: 3,
		retryDelay: 2 * time.Second,
	}
}

// Fetch yields every feature the endpoint returns, requesting GeoJSON
// in WGS84. Rate-limit responses sleep for the server-specified
// interval and reissue the same request; they are not errors.
func (c *ArcGISClient) Fetch(ctx context.Context) iter.Seq2[models.RawItem, error] {
	return func(yield func(models.RawItem, error) bool) {
		offset := 0
		for {
			if err := c.limiter.Wait(ctx); err != nil {
				yield(models.RawItem{}, err)
				return
			}

			fc, err := c.fetchPage(ctx, offset)
			if err != nil {
				yield(models.RawItem{}, fmt.Errorf("page at offset %d: %w", offset, err))
				return
			}
			if len(fc.Features) == 0 {
				return
			}

			for _, f := range fc.Features {
				item := models.RawItem{
					Props:    map[string]interface{}(f.Properties),
					Geometry: f.Geometry,
				}
				if !yield(item, nil) {
					return
				}
			}

			offset += len(fc.Features)
		}
	}
}

func (c *ArcGISClient) fetchPage(ctx context.Context, offset int) (*geojson.FeatureCollection, error) {
	params := url.Values{}
	params.Set("where", "1=1")
	params.Set("outFields", "*")
	params.Set("outSR", "4326")
	params.Set("f", "geojson")
	params.Set("resultOffset", strconv.Itoa(offset))
	params.Set("resultRecordCount", strconv.Itoa(c.pageSize))

	reqURL := fmt.Sprintf("%s?%s", c.baseURL, params.Encode())

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * c.retryDelay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("fetching page: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			wait := retryAfter(resp)
			resp.Body.Close()
			log.Printf("ArcGIS: rate limited, sleeping %s before reissuing", wait)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			attempt-- // a 429 does not consume a retry
			continue
		}

		if resp.StatusCode >= 500 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("API returned %d: %s", resp.StatusCode, string(body))
			continue
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("API returned %d: %s", resp.StatusCode, string(body))
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("reading response: %w", err)
			continue
		}

		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("decoding response: %w", err)
		}
		return fc, nil
	}

	return nil, lastErr
}

// retryAfter reads the server-specified wait, defaulting to 5s.
func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 5 * time.Second
}
