package provider

import "strings"

// dialingPrefixes maps E.164 country calling codes to the ISO countries that
// share them. Codes shared by several countries make number ownership
// ambiguous.
var dialingPrefixes = map[string][]string{
	"1":   {"US", "CA", "PR", "JM", "BS", "BB", "TT", "DO"},
	"7":   {"RU", "KZ"},
	"20":  {"EG"},
	"27":  {"ZA"},
	"30":  {"GR"},
	"31":  {"NL"},
	"32":  {"BE"},
	"33":  {"FR"},
	"34":  {"ES"},
	"36":  {"HU"},
	"39":  {"IT", "VA"},
	"40":  {"RO"},
	"41":  {"CH"},
	"43":  {"AT"},
	"44":  {"GB", "GG", "IM", "JE"},
	"45":  {"DK"},
	"46":  {"SE"},
	"47":  {"NO", "SJ"},
	"48":  {"PL"},
	"49":  {"DE"},
	"52":  {"MX"},
	"54":  {"AR"},
	"55":  {"BR"},
	"56":  {"CL"},
	"57":  {"CO"},
	"60":  {"MY"},
	"61":  {"AU", "CX", "CC"},
	"62":  {"ID"},
	"63":  {"PH"},
	"64":  {"NZ"},
	"65":  {"SG"},
	"66":  {"TH"},
	"81":  {"JP"},
	"82":  {"KR"},
	"84":  {"VN"},
	"86":  {"CN"},
	"90":  {"TR"},
	"91":  {"IN"},
	"234": {"NG"},
	"254": {"KE"},
	"351": {"PT"},
	"352": {"LU"},
	"353": {"IE"},
	"358": {"FI", "AX"},
	"420": {"CZ"},
	"852": {"HK"},
	"886": {"TW"},
	"971": {"AE"},
	"972": {"IL"},
	"974": {"QA"},
	"966": {"SA"},
}

// CountriesForNumber infers the countries an E.164 number may belong to
// from its leading digits. It returns nil when no calling code matches.
func CountriesForNumber(phoneNumber string) []string {
	digits := strings.TrimPrefix(strings.TrimSpace(phoneNumber), "+")
	for n := 3; n >= 1; n-- {
		if len(digits) < n {
			continue
		}
		if countries, ok := dialingPrefixes[digits[:n]]; ok {
			return append([]string(nil), countries...)
		}
	}
	return nil
}

// CallingCode returns the calling code for an ISO country, or "".
func CallingCode(country string) string {
	country = strings.ToUpper(country)
	for code, countries := range dialingPrefixes {
		for _, c := range countries {
			if c == country {
				return code
			}
		}
	}
	return ""
}
