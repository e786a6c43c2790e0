package static

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aks-o/voxlink-sub005/provider"
)

// Entry is one inventory line as written in an inventory file. Prices are
// integer minor units.
type Entry struct {
	PhoneNumber string             `yaml:"phone_number"`
	CountryCode string             `yaml:"country_code"`
	AreaCode    string             `yaml:"area_code"`
	City        string             `yaml:"city"`
	Region      string             `yaml:"region"`
	MonthlyRate int64              `yaml:"monthly_rate"`
	SetupFee    int64              `yaml:"setup_fee"`
	Currency    string             `yaml:"currency"`
	Features    []provider.Feature `yaml:"features"`
}

func (e Entry) number() provider.AvailableNumber {
	currency := e.Currency
	if currency == "" {
		currency = "USD"
	}
	return provider.AvailableNumber{
		PhoneNumber: e.PhoneNumber,
		CountryCode: strings.ToUpper(e.CountryCode),
		AreaCode:    e.AreaCode,
		City:        e.City,
		Region:      e.Region,
		MonthlyRate: e.MonthlyRate,
		SetupFee:    e.SetupFee,
		Currency:    currency,
		Features:    e.Features,
	}
}

// LoadInventory reads a YAML list of entries from path.
func LoadInventory(path string) ([]provider.AvailableNumber, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read inventory: %w", err)
	}

	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse inventory %s: %w", path, err)
	}

	out := make([]provider.AvailableNumber, 0, len(entries))
	for i, e := range entries {
		if e.PhoneNumber == "" || e.CountryCode == "" {
			return nil, fmt.Errorf("inventory %s: entry %d: phone_number and country_code are required", path, i)
		}
		out = append(out, e.number())
	}
	return out, nil
}

// demoCities seeds the generated inventory. Area codes are national
// significant prefixes.
type demoCity struct{ area, city, region string }

var demoCities = map[string][]demoCity{
	"US": {{"212", "New York", "NY"}, {"415", "San Francisco", "CA"}, {"312", "Chicago", "IL"}},
	"CA": {{"416", "Toronto", "ON"}, {"604", "Vancouver", "BC"}},
	"GB": {{"20", "London", "ENG"}, {"161", "Manchester", "ENG"}},
	"DE": {{"30", "Berlin", "BE"}, {"89", "Munich", "BY"}},
}

// DefaultInventory generates a small deterministic inventory for countries.
// An empty list yields US numbers.
func DefaultInventory(countries []string) []provider.AvailableNumber {
	if len(countries) == 0 {
		countries = []string{"US"}
	}

	var out []provider.AvailableNumber
	for _, cc := range countries {
		cc = strings.ToUpper(cc)
		code := provider.CallingCode(cc)
		if code == "" {
			continue
		}
		cities, ok := demoCities[cc]
		if !ok {
			cities = []demoCity{{area: "2"}}
		}
		for _, c := range cities {
			for i := range 4 {
				features := []provider.Feature{provider.FeatureVoice}
				if i%2 == 0 {
					features = append(features, provider.FeatureSMS)
				}
				if i == 3 {
					features = append(features, provider.FeatureMMS)
				}
				out = append(out, provider.AvailableNumber{
					PhoneNumber: fmt.Sprintf("+%s%s555010%d", code, c.area, i),
					CountryCode: cc,
					AreaCode:    c.area,
					City:        c.city,
					Region:      c.region,
					MonthlyRate: 100 + int64(i)*50,
					SetupFee:    int64(i%2) * 100,
					Currency:    "USD",
					Features:    features,
				})
			}
		}
	}
	return out
}
