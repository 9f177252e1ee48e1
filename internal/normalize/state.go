package normalize

import (
	"strings"

	"parkatlas/internal/models"
)

var stateNames = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
	"california": "CA", "colorado": "CO", "connecticut": "CT",
	"delaware": "DE", "district of columbia": "DC", "florida": "FL",
	"georgia": "GA", "hawaii": "HI", "idaho": "ID", "illinois": "IL",
	"indiana": "IN", "iowa": "IA", "kansas": "KS", "kentucky": "KY",
	"louisiana": "LA", "maine": "ME", "maryland": "MD",
	"massachusetts": "MA", "michigan": "MI", "minnesota": "MN",
	"mississippi": "MS", "missouri": "MO", "montana": "MT",
	"nebraska": "NE", "nevada": "NV", "new hampshire": "NH",
	"new jersey": "NJ", "new mexico": "NM", "new york": "NY",
	"north carolina": "NC", "north dakota": "ND", "ohio": "OH",
	"oklahoma": "OK", "oregon": "OR", "pennsylvania": "PA",
	"puerto rico": "PR", "rhode island": "RI", "south carolina": "SC",
	"south dakota": "SD", "tennessee": "TN", "texas": "TX",
	"utah": "UT", "vermont": "VT", "virginia": "VA", "washington": "WA",
	"west virginia": "WV", "wisconsin": "WI", "wyoming": "WY",
}

var stateCodes = func() map[string]bool {
	codes := make(map[string]bool, len(stateNames))
	for _, c := range stateNames {
		codes[c] = true
	}
	return codes
}()

// State resolves a raw state value to a 2-letter code. Unresolvable
// input maps to the "N/A" sentinel, never to an empty string — the
// store requires a non-null state.
func State(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return models.StateUnknown
	}

	upper := strings.ToUpper(trimmed)
	if len(upper) == 2 && stateCodes[upper] {
		return upper
	}

	if code, ok := stateNames[strings.ToLower(trimmed)]; ok {
		return code
	}

	// NPS multi-state records look like "NC,TN"; take the first code.
	if i := strings.IndexAny(upper, ",;"); i == 2 && stateCodes[upper[:2]] {
		return upper[:2]
	}

	return models.StateUnknown
}
