package geocode

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"parkatlas/internal/models"
)

func testGeocoder(srv *httptest.Server) *Geocoder {
	g := NewGeocoder()
	g.baseURL = srv.URL
	return g
}

func TestGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing User-Agent header")
		}
		q := r.URL.Query().Get("q")
		switch q {
		case "Umstead State Park, Raleigh, NC":
			fmt.Fprint(w, `[{"lat": "35.8651", "lon": "-78.7526", "display_name": "William B. Umstead State Park", "type": "park", "importance": 0.82}]`)
		case "vague":
			fmt.Fprint(w, `[{"lat": "35.0", "lon": "-79.0", "display_name": "Somewhere", "type": "hamlet", "importance": 0.31}]`)
		default:
			fmt.Fprint(w, `[]`)
		}
	}))
	defer srv.Close()

	g := testGeocoder(srv)

	lat, lng, err := g.Geocode(context.Background(), "Umstead State Park, Raleigh, NC")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if lat != 35.8651 || lng != -78.7526 {
		t.Errorf("got (%v, %v)", lat, lng)
	}

	if _, _, err := g.Geocode(context.Background(), "vague"); err == nil {
		t.Error("low-importance result should be rejected")
	}

	if _, _, err := g.Geocode(context.Background(), "nowhere at all"); err == nil {
		t.Error("empty result set should be an error")
	}
}

func TestReverseGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("lat") == "35.865100" {
			fmt.Fprint(w, `{"display_name": "Umstead, Wake County, North Carolina, USA", "address": {"state": "North Carolina"}}`)
			return
		}
		fmt.Fprint(w, `{"display_name": "Atlantic Ocean", "address": {}}`)
	}))
	defer srv.Close()

	g := testGeocoder(srv)

	state, err := g.ReverseGeocode(context.Background(), 35.8651, -78.7526)
	if err != nil {
		t.Fatalf("ReverseGeocode: %v", err)
	}
	if state != "NC" {
		t.Errorf("got state %q, want NC", state)
	}

	state, err = g.ReverseGeocode(context.Background(), 0, -40)
	if err != nil {
		t.Fatalf("ReverseGeocode ocean: %v", err)
	}
	if state != models.StateUnknown {
		t.Errorf("got state %q, want %q", state, models.StateUnknown)
	}
}
