package cmd

import "strings"

// legacyFlags are the long flags older CI pipelines pass with one dash.
var legacyFlags = map[string]bool{
	"file":       true,
	"out":        true,
	"image_name": true,
	"arch":       true,
	"tag":        true,
}

// normalizeArgs rewrites "-file x" and "-file=x" to their "--" form so
// pflag does not read them as bundled shorthands.
func normalizeArgs(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		out[i] = arg
		if arg == "--" {
			copy(out[i:], args[i:])
			break
		}
		if !strings.HasPrefix(arg, "-") || strings.HasPrefix(arg, "--") {
			continue
		}

		name, _, _ := strings.Cut(arg[1:], "=")
		if legacyFlags[name] {
			out[i] = "-" + arg
		}
	}
	return out
}
