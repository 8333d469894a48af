package catalog

import "encoding/json"

// CastEntry is one credited person on an asset.
type CastEntry struct {
	Name      string `json:"name"`
	Character string `json:"character,omitempty"`
	Role      string `json:"role"`
}

// RatingEntry is one rating issued by a rating body.
type RatingEntry struct {
	Body  string `json:"body"`
	Value string `json:"value"`
}

// Window is a validity window. End may be empty for open-ended windows.
type Window struct {
	Start string `json:"start"`
	End   string `json:"end,omitempty"`
}

// GeoRestriction describes one geographic access rule.
type GeoRestriction struct {
	AccessType      string `json:"accessType"`
	RestrictionType string `json:"restrictionType"`
	Region          string `json:"region"`
}

// ExternalID is one identifier an external provider knows the asset by.
type ExternalID struct {
	Provider string `json:"provider"`
	ID       string `json:"id"`
	Type     string `json:"type,omitempty"`
}

// AssetRecord is one catalog entry: scalar attributes plus named nested
// collections. Scalars stay in a raw map because selective exports may ask
// for columns the field registry does not know, which fall back to a direct
// attribute lookup.
type AssetRecord struct {
	Attributes      map[string]interface{}
	Cast            []CastEntry
	Ratings         []RatingEntry
	LicenseWindows  []Window
	EventWindows    []Window
	GeoRestrictions []GeoRestriction
	ExternalIDs     []ExternalID
}

// nested list keys split out of the attribute map during decoding
const (
	keyCast            = "cast"
	keyRatings         = "ratings"
	keyLicenseWindows  = "licenseWindows"
	keyEventWindows    = "eventWindows"
	keyGeoRestrictions = "geoRestrictions"
	keyExternalIDs     = "externalIds"
)

// UnmarshalJSON splits the known nested lists from the scalar attributes.
// A nested list that fails to decode is left empty instead of failing the
// record; per-record anomalies are handled downstream.
func (r *AssetRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if msg, ok := raw[keyCast]; ok {
		_ = json.Unmarshal(msg, &r.Cast)
		delete(raw, keyCast)
	}
	if msg, ok := raw[keyRatings]; ok {
		_ = json.Unmarshal(msg, &r.Ratings)
		delete(raw, keyRatings)
	}
	if msg, ok := raw[keyLicenseWindows]; ok {
		_ = json.Unmarshal(msg, &r.LicenseWindows)
		delete(raw, keyLicenseWindows)
	}
	if msg, ok := raw[keyEventWindows]; ok {
		_ = json.Unmarshal(msg, &r.EventWindows)
		delete(raw, keyEventWindows)
	}
	if msg, ok := raw[keyGeoRestrictions]; ok {
		_ = json.Unmarshal(msg, &r.GeoRestrictions)
		delete(raw, keyGeoRestrictions)
	}
	if msg, ok := raw[keyExternalIDs]; ok {
		_ = json.Unmarshal(msg, &r.ExternalIDs)
		delete(raw, keyExternalIDs)
	}

	r.Attributes = make(map[string]interface{}, len(raw))
	for k, msg := range raw {
		var v interface{}
		if err := json.Unmarshal(msg, &v); err == nil {
			r.Attributes[k] = v
		}
	}
	return nil
}

// Attribute returns the named scalar attribute, or nil when absent.
func (r *AssetRecord) Attribute(key string) interface{} {
	if r.Attributes == nil {
		return nil
	}
	return r.Attributes[key]
}

// Filter narrows the catalog result set. Zero values mean "no constraint".
type Filter struct {
	ContentStates []string `json:"contentStates,omitempty"`
	AssetTypes    []string `json:"assetTypes,omitempty"`
	TitleContains string   `json:"titleContains,omitempty"`
	ModifiedSince string   `json:"modifiedSince,omitempty"`
}
