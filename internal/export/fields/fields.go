// Package fields declares every exportable column and how its value is
// extracted from a catalog record.
package fields

import (
	"fmt"
	"strings"
	"time"

	"catalog-export/internal/catalog"
)

// Kind tags how a column's value is produced.
type Kind int

const (
	// Simple is a direct scalar attribute lookup.
	Simple Kind = iota
	// Computed aggregates one of the nested collections.
	Computed
	// Unknown is a caller-supplied key the registry does not know; it falls
	// back to a raw attribute lookup with the key itself as label.
	Unknown
)

// RenderFunc produces the cell value for one record. now is the session's
// snapshot instant; every time-relative rule in one export sees the same
// value.
type RenderFunc func(rec *catalog.AssetRecord, now time.Time) string

// Descriptor describes one output column.
type Descriptor struct {
	Key    string
	Label  string
	Group  string
	Kind   Kind
	Render RenderFunc
}

// Group names for the canonical full-export layout.
const (
	GroupGeneral      = "General"
	GroupTitles       = "Titles"
	GroupCast         = "Cast & Crew"
	GroupRatings      = "Ratings"
	GroupLicensing    = "Licensing"
	GroupEvents       = "Events"
	GroupRestrictions = "Restrictions"
	GroupIdentifiers  = "Identifiers"
)

const joinSep = ", "

// Registry is an immutable set of column descriptors plus the canonical
// full-export order. Build it once and pass it by reference.
type Registry struct {
	byKey     map[string]Descriptor
	canonical []Descriptor
}

// NewRegistry builds the registry. dateFormat is the display format applied
// to date-bearing simple fields.
func NewRegistry(dateFormat string) *Registry {
	canonical := []Descriptor{
		{Key: "contentId", Label: "Content ID", Group: GroupGeneral, Kind: Simple, Render: simple("contentId")},
		{Key: "assetType", Label: "Asset Type", Group: GroupGeneral, Kind: Simple, Render: simple("assetType")},
		{Key: "contentState", Label: "Content State", Group: GroupGeneral, Kind: Simple, Render: simple("contentState")},
		{Key: "productionYear", Label: "Production Year", Group: GroupGeneral, Kind: Simple, Render: simple("productionYear")},
		{Key: "duration", Label: "Duration", Group: GroupGeneral, Kind: Simple, Render: simple("duration")},
		{Key: "originalLanguage", Label: "Original Language", Group: GroupGeneral, Kind: Simple, Render: simple("originalLanguage")},
		{Key: "createdDate", Label: "Created", Group: GroupGeneral, Kind: Simple, Render: simpleDate("createdDate", dateFormat)},
		{Key: "modifiedDate", Label: "Modified", Group: GroupGeneral, Kind: Simple, Render: simpleDate("modifiedDate", dateFormat)},

		{Key: "mainTitle", Label: "Main Title", Group: GroupTitles, Kind: Simple, Render: simple("mainTitle")},
		{Key: "secondaryTitle", Label: "Secondary Title", Group: GroupTitles, Kind: Simple, Render: simple("secondaryTitle")},
		{Key: "seriesTitle", Label: "Series Title", Group: GroupTitles, Kind: Simple, Render: simple("seriesTitle")},
		{Key: "seasonNumber", Label: "Season", Group: GroupTitles, Kind: Simple, Render: simple("seasonNumber")},
		{Key: "episodeNumber", Label: "Episode", Group: GroupTitles, Kind: Simple, Render: simple("episodeNumber")},

		{Key: "actors", Label: "Actors", Group: GroupCast, Kind: Computed, Render: castRole("ACTOR")},
		{Key: "directors", Label: "Directors", Group: GroupCast, Kind: Computed, Render: castRole("DIRECTOR")},
		{Key: "producers", Label: "Producers", Group: GroupCast, Kind: Computed, Render: castRole("PRODUCER")},

		{Key: "ratings", Label: "Ratings", Group: GroupRatings, Kind: Computed, Render: ratings},

		{Key: "currentLicenseWindows", Label: "Current License Windows", Group: GroupLicensing, Kind: Computed, Render: windows(licenseWindows, CategoryCurrent)},
		{Key: "futureLicenseWindows", Label: "Future License Windows", Group: GroupLicensing, Kind: Computed, Render: windows(licenseWindows, CategoryFuture)},
		{Key: "expiredLicenseWindows", Label: "Expired License Windows", Group: GroupLicensing, Kind: Computed, Render: windows(licenseWindows, CategoryExpired)},

		{Key: "currentEventWindows", Label: "Current Event Windows", Group: GroupEvents, Kind: Computed, Render: windows(eventWindows, CategoryCurrent)},
		{Key: "futureEventWindows", Label: "Future Event Windows", Group: GroupEvents, Kind: Computed, Render: windows(eventWindows, CategoryFuture)},
		{Key: "expiredEventWindows", Label: "Expired Event Windows", Group: GroupEvents, Kind: Computed, Render: windows(eventWindows, CategoryExpired)},

		{Key: "geoAccessTypes", Label: "Geo Access Types", Group: GroupRestrictions, Kind: Computed, Render: geoAttr(func(g catalog.GeoRestriction) string { return g.AccessType })},
		{Key: "geoRestrictionTypes", Label: "Geo Restriction Types", Group: GroupRestrictions, Kind: Computed, Render: geoAttr(func(g catalog.GeoRestriction) string { return g.RestrictionType })},
		{Key: "geoRegions", Label: "Geo Regions", Group: GroupRestrictions, Kind: Computed, Render: geoAttr(func(g catalog.GeoRestriction) string { return g.Region })},

		{Key: "externalIds", Label: "External IDs", Group: GroupIdentifiers, Kind: Computed, Render: externalIDs},
	}

	byKey := make(map[string]Descriptor, len(canonical))
	for _, d := range canonical {
		byKey[d.Key] = d
	}

	return &Registry{byKey: byKey, canonical: canonical}
}

// Resolve returns the descriptor for key. ok is false for unknown keys.
func (r *Registry) Resolve(key string) (Descriptor, bool) {
	d, ok := r.byKey[key]
	return d, ok
}

// Canonical returns the full-export column list in its fixed order.
func (r *Registry) Canonical() []Descriptor {
	out := make([]Descriptor, len(r.canonical))
	copy(out, r.canonical)
	return out
}

// Select resolves a caller-supplied ordered key list. Unknown keys become
// Unknown descriptors that render a raw attribute lookup.
func (r *Registry) Select(keys []string) []Descriptor {
	out := make([]Descriptor, 0, len(keys))
	for _, key := range keys {
		if d, ok := r.byKey[key]; ok {
			out = append(out, d)
			continue
		}
		out = append(out, Descriptor{
			Key:    key,
			Label:  key,
			Kind:   Unknown,
			Render: simple(key),
		})
	}
	return out
}

// --- Simple extraction ---

func simple(key string) RenderFunc {
	return func(rec *catalog.AssetRecord, _ time.Time) string {
		return renderScalar(rec.Attribute(key))
	}
}

func simpleDate(key, dateFormat string) RenderFunc {
	return func(rec *catalog.AssetRecord, _ time.Time) string {
		raw := renderScalar(rec.Attribute(key))
		if raw == "" {
			return ""
		}
		if ts, ok := ParseTimestamp(raw); ok {
			return ts.Format(dateFormat)
		}
		// Not a recognizable timestamp; keep the raw value.
		return raw
	}
}

func renderScalar(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		// JSON numbers decode as float64; keep integers clean.
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// --- Computed extraction ---

func castRole(role string) RenderFunc {
	return func(rec *catalog.AssetRecord, _ time.Time) string {
		var parts []string
		for _, c := range rec.Cast {
			if !strings.EqualFold(c.Role, role) || c.Name == "" {
				continue
			}
			if c.Character != "" {
				parts = append(parts, fmt.Sprintf("%s (%s)", c.Name, c.Character))
			} else {
				parts = append(parts, c.Name)
			}
		}
		return strings.Join(parts, joinSep)
	}
}

func ratings(rec *catalog.AssetRecord, _ time.Time) string {
	var parts []string
	for _, r := range rec.Ratings {
		if r.Body == "" && r.Value == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", r.Body, r.Value))
	}
	return strings.Join(parts, joinSep)
}

func externalIDs(rec *catalog.AssetRecord, _ time.Time) string {
	var parts []string
	for _, e := range rec.ExternalIDs {
		if e.Provider == "" && e.ID == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", e.Provider, e.ID))
	}
	return strings.Join(parts, joinSep)
}

func geoAttr(attr func(catalog.GeoRestriction) string) RenderFunc {
	return func(rec *catalog.AssetRecord, _ time.Time) string {
		var parts []string
		for _, g := range rec.GeoRestrictions {
			if v := attr(g); v != "" {
				parts = append(parts, v)
			}
		}
		return strings.Join(parts, joinSep)
	}
}

// --- Time-window categorization ---

type Category int

const (
	CategoryCurrent Category = iota
	CategoryFuture
	CategoryExpired
)

func licenseWindows(rec *catalog.AssetRecord) []catalog.Window { return rec.LicenseWindows }
func eventWindows(rec *catalog.AssetRecord) []catalog.Window   { return rec.EventWindows }

// windows collects the entries of one window list matching a single
// category against the snapshot instant. Entries with an unparseable start
// are skipped, not fatal.
func windows(list func(*catalog.AssetRecord) []catalog.Window, cat Category) RenderFunc {
	return func(rec *catalog.AssetRecord, now time.Time) string {
		var parts []string
		for _, w := range list(rec) {
			got, ok := Classify(w, now)
			if !ok || got != cat {
				continue
			}
			if w.End != "" {
				parts = append(parts, w.Start+";"+w.End)
			} else {
				parts = append(parts, w.Start)
			}
		}
		return strings.Join(parts, joinSep)
	}
}

// Classify buckets one window relative to now: FUTURE when start > now,
// EXPIRED when end < now, CURRENT otherwise including open-ended windows.
// ok is false when the start does not parse.
func Classify(w catalog.Window, now time.Time) (Category, bool) {
	start, ok := ParseTimestamp(w.Start)
	if !ok {
		return 0, false
	}
	if start.After(now) {
		return CategoryFuture, true
	}
	if w.End != "" {
		if end, ok := ParseTimestamp(w.End); ok && end.Before(now) {
			return CategoryExpired, true
		}
	}
	return CategoryCurrent, true
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp tries the timestamp layouts the catalog is known to emit.
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
