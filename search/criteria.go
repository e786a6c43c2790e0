package search

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/aks-o/voxlink-sub005/provider"
)

// SortBy selects the ranking mode.
type SortBy string

// Ranking modes.
const (
	SortRelevance SortBy = "relevance"
	SortCost      SortBy = "cost"
)

// Preferences are soft ranking signals. Numbers that do not match are kept,
// only ranked lower.
type Preferences struct {
	Features  []provider.Feature `json:"features,omitempty"`
	AreaCodes []string           `json:"area_codes,omitempty"`
	SortBy    SortBy             `json:"sort_by,omitempty"`
}

// Criteria describe a number search.
type Criteria struct {
	// CountryCode is the ISO 3166 alpha-2 country. Required.
	CountryCode string `json:"country_code"`

	AreaCode string `json:"area_code,omitempty"`
	City     string `json:"city,omitempty"`
	Region   string `json:"region,omitempty"`

	// Pattern is a regular expression the phone number must match.
	Pattern string `json:"pattern,omitempty"`

	// Features must all be present on every returned number.
	Features []provider.Feature `json:"features,omitempty"`

	// MaxMonthlyRate and MaxSetupFee are ceilings in minor units.
	MaxMonthlyRate *int64 `json:"max_monthly_rate,omitempty"`
	MaxSetupFee    *int64 `json:"max_setup_fee,omitempty"`

	// Limit caps the result size. Zero selects the configured default.
	Limit int `json:"limit,omitempty"`

	Preferences *Preferences `json:"preferences,omitempty"`
}

// normalized is validated criteria in canonical form.
type normalized struct {
	Criteria
	pattern *regexp.Regexp
}

var (
	countryRe = regexp.MustCompile(`^[A-Z]{2}$`)
	digitsRe  = regexp.MustCompile(`^[0-9]+$`)
	e164      = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidCriteria, fmt.Sprintf(format, args...))
}

// normalize validates c and returns its canonical form: trimmed and
// upper-cased codes, sorted feature sets, and a resolved limit.
func (c Criteria) normalize(cfg Config) (normalized, error) {
	n := normalized{Criteria: c}

	n.CountryCode = strings.ToUpper(strings.TrimSpace(c.CountryCode))
	if n.CountryCode == "" {
		return normalized{}, invalid("country code is required")
	}
	if !countryRe.MatchString(n.CountryCode) {
		return normalized{}, invalid("country code %q is not ISO 3166 alpha-2", c.CountryCode)
	}

	n.AreaCode = strings.TrimSpace(c.AreaCode)
	if n.AreaCode != "" && !digitsRe.MatchString(n.AreaCode) {
		return normalized{}, invalid("area code %q must be digits", c.AreaCode)
	}
	n.City = strings.TrimSpace(c.City)
	n.Region = strings.TrimSpace(c.Region)

	if c.Pattern != "" {
		re, err := regexp.Compile(c.Pattern)
		if err != nil {
			return normalized{}, invalid("pattern: %v", err)
		}
		n.pattern = re
	}

	n.Features = canonicalFeatures(c.Features)

	if c.MaxMonthlyRate != nil && *c.MaxMonthlyRate < 0 {
		return normalized{}, invalid("max monthly rate must not be negative")
	}
	if c.MaxSetupFee != nil && *c.MaxSetupFee < 0 {
		return normalized{}, invalid("max setup fee must not be negative")
	}

	switch {
	case c.Limit < 0:
		return normalized{}, invalid("limit must not be negative")
	case c.Limit == 0:
		n.Limit = cfg.DefaultLimit
	case c.Limit > cfg.MaxLimit:
		n.Limit = cfg.MaxLimit
	}

	if p := c.Preferences; p != nil {
		switch p.SortBy {
		case "", SortRelevance, SortCost:
		default:
			return normalized{}, invalid("unknown sort %q", p.SortBy)
		}
		areas := slices.Clone(p.AreaCodes)
		slices.Sort(areas)
		n.Preferences = &Preferences{
			Features:  canonicalFeatures(p.Features),
			AreaCodes: slices.Compact(areas),
			SortBy:    p.SortBy,
		}
	}
	return n, nil
}

func canonicalFeatures(in []provider.Feature) []provider.Feature {
	if len(in) == 0 {
		return nil
	}
	out := make([]provider.Feature, len(in))
	for i, f := range in {
		out[i] = provider.Feature(strings.ToLower(strings.TrimSpace(string(f))))
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// anyValue marks an absent optional field in cache keys.
const anyValue = "any"

func orAny(s string) any {
	if s == "" {
		return anyValue
	}
	return s
}

func orAnyInt(v *int64) any {
	if v == nil {
		return anyValue
	}
	return *v
}

func orAnyFeatures(fs []provider.Feature) any {
	if len(fs) == 0 {
		return anyValue
	}
	out := make([]any, len(fs))
	for i, f := range fs {
		out[i] = string(f)
	}
	return out
}

// keyInput is the canonical cache-key material. Every optional field is
// present, holding "any" when unset, so field order and omission cannot
// change the key.
func (n normalized) keyInput() map[string]any {
	in := map[string]any{
		"country":          n.CountryCode,
		"area_code":        orAny(n.AreaCode),
		"city":             orAny(strings.ToLower(n.City)),
		"region":           orAny(strings.ToLower(n.Region)),
		"pattern":          orAny(n.Pattern),
		"features":         orAnyFeatures(n.Features),
		"max_monthly_rate": orAnyInt(n.MaxMonthlyRate),
		"max_setup_fee":    orAnyInt(n.MaxSetupFee),
		"limit":            n.Limit,
		"preferences":      anyValue,
	}
	if p := n.Preferences; p != nil {
		areas := make([]any, len(p.AreaCodes))
		for i, a := range p.AreaCodes {
			areas[i] = a
		}
		sortBy := p.SortBy
		if sortBy == "" {
			sortBy = SortRelevance
		}
		in["preferences"] = map[string]any{
			"features":   orAnyFeatures(p.Features),
			"area_codes": areas,
			"sort_by":    string(sortBy),
		}
	}
	return in
}

// request builds the provider query. Only a purely numeric pattern is
// forwarded, as a substring hint; everything else is filtered locally.
// With local filters present the provider is asked for maxLimit numbers so
// filtering has enough candidates.
func (n normalized) request(maxLimit int) provider.SearchRequest {
	req := provider.SearchRequest{
		CountryCode: n.CountryCode,
		AreaCode:    n.AreaCode,
		City:        n.City,
		Region:      n.Region,
		Features:    n.Features,
		Limit:       n.Limit,
	}
	if digitsRe.MatchString(n.Pattern) {
		req.Pattern = n.Pattern
	}
	if n.pattern != nil || n.MaxMonthlyRate != nil || n.MaxSetupFee != nil || n.Preferences != nil {
		req.Limit = maxLimit
	}
	return req
}

func (n normalized) tags() []string {
	return []string{
		countryTag(n.CountryCode),
		areaTag(n.AreaCode),
		tagSearchResults,
	}
}
