// Package sources produces raw property-bag items from the places park
// data comes from: uploaded GeoJSON files, government REST APIs, and
// scrape output. Each source yields zero or more items; normalization
// and reconciliation happen downstream.
package sources

import (
	"context"
	"iter"

	"parkatlas/internal/models"
)

// Source yields raw items. A yielded error describes a failure for one
// page or feature; the sequence continues afterwards when it can.
type Source interface {
	Fetch(ctx context.Context) iter.Seq2[models.RawItem, error]
}
