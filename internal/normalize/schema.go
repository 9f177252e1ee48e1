package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"parkatlas/internal/models"
)

// fieldAlias binds one canonical field to the source keys that may carry
// it, in priority order. Adding a new source convention means adding
// aliases here, nothing else.
type fieldAlias struct {
	field   string
	aliases []string
}

// aliasTable covers generic GIS attribute conventions (PAD-US style),
// the NPS API shape, and the RIDB (Recreation.gov) shape. First match
// wins, scanning aliases left to right.
var aliasTable = []fieldAlias{
	{"sourceId", []string{"id", "unit_code", "parkcode", "globalid", "facilityid", "source_id"}},
	{"name", []string{"name", "fullname", "unit_name", "unit_nm", "park_name", "parkname", "site_name", "loc_name", "facilityname", "label"}},
	{"state", []string{"state", "states", "state_code", "stusps", "state_abbr", "st", "addressstatecode"}},
	{"agency", []string{"agency", "manager", "mang_name", "d_mang_nam", "managing_agency", "owner", "operator"}},
	{"description", []string{"description", "desc", "facilitydescription", "notes", "comments"}},
	{"website", []string{"website", "url", "web_url", "weburl", "homepage"}},
	{"phone", []string{"phone", "telephone", "phone_number", "facilityphone", "contact_phone"}},
	{"email", []string{"email", "facilityemail", "contact_email"}},
	{"address", []string{"address", "street_address", "streetaddress1", "full_address", "addr"}},
	{"county", []string{"county", "county_name", "cnty_name"}},
	{"acres", []string{"acres", "gis_acres", "gisacres", "acreage", "area_acres"}},
	{"category", []string{"category", "unit_type", "feat_class", "facilitytypedescription", "type"}},
	{"designationType", []string{"designation", "designationtype", "designation_type", "des_tp", "d_des_tp"}},
	{"publicAccess", []string{"public_access", "pub_access", "d_pub_acce", "access", "accessibility"}},
	{"amenities", []string{"amenities", "facilities"}},
	{"activities", []string{"activities", "things_to_do"}},
	{"latitude", []string{"latitude", "lat", "facilitylatitude", "point_y", "y"}},
	{"longitude", []string{"longitude", "lon", "lng", "long", "facilitylongitude", "point_x", "x"}},
}

// Schema maps loosely-typed source property bags onto candidates.
type Schema struct {
	// lowercase alias -> canonical field, for unknown-key reporting
	known map[string]bool
}

// NewSchema builds the normalizer from the alias table.
func NewSchema() *Schema {
	known := make(map[string]bool)
	for _, fa := range aliasTable {
		for _, a := range fa.aliases {
			known[a] = true
		}
	}
	return &Schema{known: known}
}

// Normalize produces a candidate from one raw property bag. Missing keys
// map to zero values, never errors. The second return lists keys no
// alias covers — callers may log them, the store never sees them.
func (s *Schema) Normalize(bag map[string]interface{}) (*models.Candidate, []string) {
	// Case-insensitive key lookup.
	lowered := make(map[string]interface{}, len(bag))
	var unknown []string
	for k, v := range bag {
		lk := strings.ToLower(strings.TrimSpace(k))
		if _, dup := lowered[lk]; !dup {
			lowered[lk] = v
		}
		if !s.known[lk] {
			unknown = append(unknown, k)
		}
	}

	lookup := func(field string) (interface{}, bool) {
		for _, fa := range aliasTable {
			if fa.field != field {
				continue
			}
			for _, a := range fa.aliases {
				if v, ok := lowered[a]; ok && v != nil {
					return v, true
				}
			}
			break
		}
		return nil, false
	}

	str := func(field string) string {
		v, ok := lookup(field)
		if !ok {
			return ""
		}
		return asString(v)
	}

	c := &models.Candidate{
		SourceID:        str("sourceId"),
		Description:     str("description"),
		Website:         str("website"),
		Phone:           str("phone"),
		Email:           str("email"),
		Address:         str("address"),
		County:          str("county"),
		Category:        str("category"),
		DesignationType: str("designationType"),
		PublicAccess:    str("publicAccess"),
	}

	c.Name = strings.TrimSpace(str("name"))
	if c.Name == "" {
		c.Name = models.PlaceholderName
	}

	c.State = State(str("state"))
	c.Agency, c.AgencyFullName = Agency(str("agency"))

	if v, ok := lookup("acres"); ok {
		if f, ok := asFloat(v); ok && f >= 0 {
			c.Acres = &f
		}
	}

	if v, ok := lookup("amenities"); ok {
		c.Amenities = StringList(v)
	}
	if v, ok := lookup("activities"); ok {
		c.Activities = StringList(v)
	}

	// Coordinates are jointly present or jointly absent.
	lat, latOK := floatField(lookup, "latitude")
	lng, lngOK := floatField(lookup, "longitude")
	if latOK && lngOK {
		c.Latitude = &lat
		c.Longitude = &lng
	}

	return c, unknown
}

func floatField(lookup func(string) (interface{}, bool), field string) (float64, bool) {
	v, ok := lookup(field)
	if !ok {
		return 0, false
	}
	return asFloat(v)
}

// StringList normalizes an array-ish value — a native list or a
// comma-separated string — to a case-insensitively deduplicated list
// preserving each entry's first-seen form.
func StringList(v interface{}) []string {
	var raw []string
	switch t := v.(type) {
	case []string:
		raw = t
	case []interface{}:
		for _, item := range t {
			raw = append(raw, asString(item))
		}
	case string:
		raw = strings.Split(t, ",")
	default:
		return nil
	}

	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func asString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
