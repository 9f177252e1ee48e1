package normalize

import "strings"

// Federal agencies get a controlled short code plus canonical full name;
// everything else passes through as free text.
var agencyVocab = []struct {
	code string
	full string
	keys []string
}{
	{"NPS", "National Park Service", []string{"national park service", "nps", "us national park service"}},
	{"USFS", "United States Forest Service", []string{"united states forest service", "us forest service", "usfs", "usda forest service", "forest service"}},
	{"FWS", "United States Fish and Wildlife Service", []string{"united states fish and wildlife service", "us fish and wildlife service", "fish and wildlife service", "usfws", "fws"}},
	{"BLM", "Bureau of Land Management", []string{"bureau of land management", "blm"}},
	{"USACE", "United States Army Corps of Engineers", []string{"united states army corps of engineers", "us army corps of engineers", "army corps of engineers", "usace"}},
	{"USBR", "Bureau of Reclamation", []string{"bureau of reclamation", "usbr"}},
	{"TVA", "Tennessee Valley Authority", []string{"tennessee valley authority", "tva"}},
}

// Agency maps a free-text managing-body label onto the controlled
// federal vocabulary; unrecognized agencies come back unchanged with
// the raw text as the full name.
func Agency(raw string) (code, full string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ""
	}

	key := strings.ToLower(trimmed)
	key = strings.Trim(key, ".")
	for _, a := range agencyVocab {
		for _, k := range a.keys {
			if key == k {
				return a.code, a.full
			}
		}
	}

	// State/local/NGO bodies stay free text.
	return trimmed, trimmed
}
