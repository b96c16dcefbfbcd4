package resolve

import (
	"fmt"
	"regexp"
	"strings"
)

// Mode selects how Substitute treats placeholders with no value.
type Mode int

const (
	// ModeSafe leaves unknown placeholders in place and never fails.
	ModeSafe Mode = iota

	// ModeStrict fails when any placeholder has no value.
	ModeStrict
)

// placeholderPattern matches $$, $name and ${name}.
var placeholderPattern = regexp.MustCompile(`\$(?:(\$)|([_A-Za-z][_A-Za-z0-9]*)|\{([_A-Za-z][_A-Za-z0-9]*)\})`)

// Substitute replaces $name and ${name} placeholders with values from ns.
// "$$" yields a literal "$". Substituted values are not scanned again.
func Substitute(s string, ns Namespace, mode Mode) (string, error) {
	var missing []string

	result := placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := placeholderPattern.FindStringSubmatch(match)
		if groups[1] != "" {
			return "$"
		}

		key := groups[2]
		if key == "" {
			key = groups[3]
		}

		value, ok := ns[key]
		if !ok {
			missing = append(missing, key)
			return match
		}
		return value
	})

	if mode == ModeStrict && len(missing) > 0 {
		return "", fmt.Errorf("missing variables: ${%s}", strings.Join(missing, "}, ${"))
	}

	return result, nil
}

// SafeSubstitute is Substitute in ModeSafe, which cannot fail.
func SafeSubstitute(s string, ns Namespace) string {
	out, _ := Substitute(s, ns, ModeSafe)
	return out
}
