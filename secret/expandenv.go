package secret

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

// ExpandEnvStrict expands $VAR and ${VAR} from the process environment.
// Unlike os.ExpandEnv, a reference to an unset variable is an error naming
// every missing variable; "$$" yields a literal "$".
func ExpandEnvStrict(s string) (string, error) {
	return ExpandWith(s, os.LookupEnv)
}

// ExpandWith is ExpandEnvStrict over an arbitrary lookup.
func ExpandWith(s string, lookup func(string) (string, bool)) (string, error) {
	if !strings.Contains(s, "$") {
		return s, nil
	}

	var missing []string
	out := os.Expand(s, func(name string) string {
		if name == "$" {
			return "$"
		}
		v, ok := lookup(name)
		if !ok && !slices.Contains(missing, name) {
			missing = append(missing, name)
		}
		return v
	})
	if len(missing) > 0 {
		slices.Sort(missing)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}
	return out, nil
}
