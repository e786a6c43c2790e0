package provider

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func TestConfig_Validate(t *testing.T) {
	valid := Config{ID: "acme", Type: "http", Regions: []string{"US"}}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing id", func(c *Config) { c.ID = " " }},
		{"missing type", func(c *Config) { c.Type = "" }},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }},
		{"negative rate", func(c *Config) { c.RateLimit.Rate = -1 }},
		{"bad region", func(c *Config) { c.Regions = []string{"USA"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestConfig_Supports(t *testing.T) {
	cfg := Config{
		Regions:      []string{"US", "CA"},
		Capabilities: []Capability{CapabilitySearch, CapabilityAvailability},
	}

	tests := []struct {
		country string
		cap     Capability
		want    bool
	}{
		{"US", CapabilitySearch, true},
		{"us", CapabilitySearch, true},
		{"GB", CapabilitySearch, false},
		{"", CapabilityAvailability, true},
		{"US", CapabilityPort, false},
	}
	for _, tt := range tests {
		if got := cfg.Supports(tt.country, tt.cap); got != tt.want {
			t.Errorf("Supports(%q, %s) = %v, want %v", tt.country, tt.cap, got, tt.want)
		}
	}

	if !(Config{}).Supports("JP", CapabilityPort) {
		t.Error("empty config should support everything")
	}
	if !cfg.SupportsAny([]string{"GB", "CA"}, CapabilitySearch) {
		t.Error("SupportsAny(GB, CA) = false, want true")
	}
	if cfg.SupportsAny([]string{"GB"}, CapabilitySearch) {
		t.Error("SupportsAny(GB) = true, want false")
	}
	if !cfg.SupportsAny(nil, CapabilitySearch) {
		t.Error("SupportsAny(nil) = false, want true")
	}
}

func TestConfig_Timeout(t *testing.T) {
	if got := (Config{}).timeout(); got != DefaultTimeout {
		t.Errorf("timeout() = %v, want %v", got, DefaultTimeout)
	}
	if got := (Config{Timeout: time.Second}).timeout(); got != time.Second {
		t.Errorf("timeout() = %v, want 1s", got)
	}
}

func TestCountriesForNumber(t *testing.T) {
	tests := []struct {
		phone string
		want  []string
	}{
		{"+12125550100", dialingPrefixes["1"]},
		{"+442071234567", []string{"GB", "GG", "IM", "JE"}},
		{"+4915112345678", []string{"DE"}},
		{"+35312345678", []string{"IE"}},
		{"+79161234567", []string{"RU", "KZ"}},
		{"2125550100", nil},
		{"+999", nil},
		{"", nil},
	}
	for _, tt := range tests {
		if got := CountriesForNumber(tt.phone); !slices.Equal(got, tt.want) {
			t.Errorf("CountriesForNumber(%q) = %v, want %v", tt.phone, got, tt.want)
		}
	}
}

func TestCallingCode(t *testing.T) {
	tests := map[string]string{"US": "1", "gb": "44", "IE": "353", "ZZ": ""}
	for country, want := range tests {
		if got := CallingCode(country); got != want {
			t.Errorf("CallingCode(%q) = %q, want %q", country, got, want)
		}
	}
}
