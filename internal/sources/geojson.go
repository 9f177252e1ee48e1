package sources

import (
	"context"
	"fmt"
	"iter"
	"os"

	"github.com/paulmach/orb/geojson"

	"parkatlas/internal/models"
)

// GeoJSONFile reads a FeatureCollection from disk, one item per feature.
type GeoJSONFile struct {
	Path string
}

// Fetch parses the file up front; an unparseable or feature-less file
// yields a single error and nothing else — the hard-failure case.
func (s *GeoJSONFile) Fetch(_ context.Context) iter.Seq2[models.RawItem, error] {
	return func(yield func(models.RawItem, error) bool) {
		data, err := os.ReadFile(s.Path)
		if err != nil {
			yield(models.RawItem{}, fmt.Errorf("read %s: %w", s.Path, err))
			return
		}
		items, err := ParseGeoJSON(data)
		if err != nil {
			yield(models.RawItem{}, err)
			return
		}
		for _, item := range items {
			if !yield(item, nil) {
				return
			}
		}
	}
}

// ParseGeoJSON converts FeatureCollection bytes into raw items. Used by
// both the file source and the staged-upload job after chunk assembly.
func ParseGeoJSON(data []byte) ([]models.RawItem, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse feature collection: %w", err)
	}
	if len(fc.Features) == 0 {
		return nil, fmt.Errorf("feature collection has no features")
	}

	items := make([]models.RawItem, 0, len(fc.Features))
	for _, f := range fc.Features {
		items = append(items, models.RawItem{
			Props:    map[string]interface{}(f.Properties),
			Geometry: f.Geometry,
		})
	}
	return items, nil
}
