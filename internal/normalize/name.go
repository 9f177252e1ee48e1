package normalize

import (
	"strings"
	"unicode"
)

// jurisdiction abbreviations expanded before stopword removal, so that
// "Blue Ridge SP" and "Blue Ridge State Park" normalize identically.
var abbreviations = map[string]string{
	"np":   "national park",
	"sp":   "state park",
	"nf":   "national forest",
	"sf":   "state forest",
	"nwr":  "national wildlife refuge",
	"nra":  "national recreation area",
	"sra":  "state recreation area",
	"nhs":  "national historic site",
	"shs":  "state historic site",
	"nm":   "national monument",
	"nsra": "national scenic recreation area",
	"wma":  "wildlife management area",
	"rec":  "recreation",
	"mem":  "memorial",
	"mt":   "mount",
	"ft":   "fort",
	"st":   "saint",
}

// Generic park/jurisdiction terms stripped after abbreviation expansion.
// What survives is the distinctive part of the name.
var stopwords = map[string]bool{
	"state": true, "county": true, "city": true, "park": true,
	"recreation": true, "area": true, "forest": true, "wildlife": true,
	"refuge": true, "national": true, "monument": true, "memorial": true,
	"historic": true, "site": true, "center": true,
	"management": true, "preserve": true, "reserve": true,
	"the": true, "of": true, "and": true,
}

// Name canonicalizes a park name for matching, not for display:
// lower-case, strip punctuation, expand jurisdiction abbreviations on
// word boundaries, drop generic stopwords. Pure and deterministic.
func Name(name string) string {
	lower := strings.ToLower(name)

	// Strip punctuation, keeping letters, digits and spaces.
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	words := strings.Fields(b.String())

	expanded := make([]string, 0, len(words))
	for _, w := range words {
		if full, ok := abbreviations[w]; ok {
			expanded = append(expanded, strings.Fields(full)...)
		} else {
			expanded = append(expanded, w)
		}
	}

	kept := expanded[:0]
	for _, w := range expanded {
		if !stopwords[w] {
			kept = append(kept, w)
		}
	}

	return strings.Join(kept, " ")
}
