package resolve

import (
	"fmt"
	"strings"

	"github.com/cameronsjo/podgen/internal/job"
)

// Namespace maps placeholder names to values.
type Namespace map[string]string

// Layer copies every entry of src into ns, overriding existing keys.
func (ns Namespace) Layer(src map[string]string) Namespace {
	for k, v := range src {
		ns[k] = v
	}
	return ns
}

// jobLayer holds the job-level fields.
func jobLayer(spec *job.Spec) map[string]string {
	layer := scalars(spec.Extra)
	setDeclared(layer, map[string]string{
		"job":           spec.Job,
		"registry_host": spec.RegistryHost,
		"registry_path": spec.RegistryPath,
	})
	return layer
}

// imageLayer holds the fields of the selected image.
func imageLayer(img job.Image) map[string]string {
	layer := scalars(img.Extra)
	setDeclared(layer, map[string]string{
		"name": img.Name,
		"tag":  img.Tag,
		"arch": img.Arch,
		"uri":  img.URI,
		"url":  img.URL,
		"uid":  img.UID,
		"gid":  img.GID,
	})
	return layer
}

// setDeclared copies the non-empty fields into layer. An undeclared field
// must not shadow a lower layer or turn a placeholder into "".
func setDeclared(layer, fields map[string]string) {
	for k, v := range fields {
		if v != "" {
			layer[k] = v
		}
	}
}

// environLayer parses KEY=VALUE pairs as returned by os.Environ.
func environLayer(environ []string) map[string]string {
	layer := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		layer[k] = v
	}
	return layer
}

// scalars keeps the scalar values of a decoded YAML mapping as text.
// Nested mappings and sequences are skipped.
func scalars(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch v.(type) {
		case map[string]any, []any, nil:
			continue
		}
		out[k] = toString(v)
	}
	return out
}

// toString converts a YAML scalar to its text form.
func toString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%d", val)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	case float32, float64:
		return fmt.Sprintf("%v", val)
	case bool:
		return fmt.Sprintf("%t", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
