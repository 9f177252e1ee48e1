package reconcile

import (
	"fmt"
	"strings"

	"github.com/xrash/smetrics"

	"parkatlas/internal/db"
	"parkatlas/internal/models"
	"parkatlas/internal/normalize"
)

// MatcherConfig tunes the fuzzy rule. The containment heuristic is a
// known source of false matches on short names; keeping it configurable
// lets it be tightened per source without touching the matcher.
type MatcherConfig struct {
	// MaxLenDiff is the largest normalized-length difference the
	// containment rule accepts.
	MaxLenDiff int
	// Containment enables the substring fuzzy rule.
	Containment bool
	// JaroWinklerMin, when > 0, also accepts pairs whose Jaro-Winkler
	// similarity reaches the threshold.
	JaroWinklerMin float64
}

// DefaultMatcherConfig mirrors the tuning the ingestion sources assume.
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		MaxLenDiff:  5,
		Containment: true,
	}
}

// Matcher finds the existing record a candidate most likely describes.
type Matcher struct {
	db  *db.DB
	cfg MatcherConfig
}

// NewMatcher creates a matcher over the given store.
func NewMatcher(database *db.DB, cfg MatcherConfig) *Matcher {
	if cfg.MaxLenDiff <= 0 {
		cfg.MaxLenDiff = DefaultMatcherConfig().MaxLenDiff
	}
	return &Matcher{db: database, cfg: cfg}
}

// Find searches same-state records for a name match. Exact equality of
// normalized names wins over fuzzy matches; among equally-ranked
// matches the lexically smallest normalized name wins, so results do
// not depend on store iteration order. Returns nil when nothing
// matches.
func (m *Matcher) Find(name, state string) (*models.Park, error) {
	if name == "" || name == models.PlaceholderName {
		return nil, nil
	}

	parks, err := m.db.QueryParks(db.ParkFilter{State: state})
	if err != nil {
		return nil, fmt.Errorf("matcher query for state %s: %w", state, err)
	}

	return m.pick(name, parks), nil
}

// pick applies the match rules to an in-memory record set. The ingester
// also uses it to match against rows buffered for insert.
func (m *Matcher) pick(name string, parks []models.Park) *models.Park {
	target := normalize.Name(name)
	if target == "" {
		return nil
	}

	var exact, fuzzy *models.Park
	var exactKey, fuzzyKey string

	for i := range parks {
		p := &parks[i]
		if p.Name == models.PlaceholderName {
			continue
		}
		key := normalize.Name(p.Name)
		if key == "" {
			continue
		}

		if key == target {
			if exact == nil || key < exactKey || (key == exactKey && p.ID < exact.ID) {
				exact, exactKey = p, key
			}
			continue
		}

		if m.fuzzyMatch(target, key) {
			if fuzzy == nil || key < fuzzyKey || (key == fuzzyKey && p.ID < fuzzy.ID) {
				fuzzy, fuzzyKey = p, key
			}
		}
	}

	if exact != nil {
		return exact
	}
	return fuzzy
}

// fuzzyMatch applies the configured approximate rules to two
// normalized names.
func (m *Matcher) fuzzyMatch(a, b string) bool {
	if m.cfg.Containment {
		diff := len(a) - len(b)
		if diff < 0 {
			diff = -diff
		}
		if diff < m.cfg.MaxLenDiff && (strings.Contains(a, b) || strings.Contains(b, a)) {
			return true
		}
	}

	if m.cfg.JaroWinklerMin > 0 {
		if smetrics.JaroWinkler(a, b, 0.7, 4) >= m.cfg.JaroWinklerMin {
			return true
		}
	}

	return false
}
