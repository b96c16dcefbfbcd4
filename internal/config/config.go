// Package config resolves podgen run settings.
//
// Values come from compiled defaults, then PODGEN_* environment variables,
// then command-line flags.
package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/cameronsjo/podgen/internal/resolve"
)

// Environment variables that override the compiled defaults.
const (
	EnvArch    = "PODGEN_ARCH"
	EnvTag     = "PODGEN_TAG"
	EnvVariant = "PODGEN_VARIANT"
)

// Variant names.
const (
	VariantStandard = "standard"
	VariantLegacy   = "legacy"
)

var variants = map[string]resolve.Variant{
	VariantStandard: resolve.VariantStandard,
	VariantLegacy:   resolve.VariantLegacy,
}

// Config holds the settings for one generator run.
type Config struct {
	// File is the job document to read.
	File string

	// Out is the manifest destination. Empty means stdout.
	Out string

	// ImageName selects the image. Empty selects the first one.
	ImageName string

	// Arch is the architecture for images that declare none.
	Arch string

	// Tag is the tag for images that declare none.
	Tag string

	// Variant names the generator flavour (standard or legacy).
	Variant string

	// Verify checks the rendered manifest before writing it.
	Verify bool
}

// Default returns the compiled defaults overlaid with the environment.
func Default() *Config {
	return &Config{
		Arch:    envOr(EnvArch, resolve.DefaultArch),
		Tag:     envOr(EnvTag, resolve.DefaultTag),
		Variant: envOr(EnvVariant, VariantStandard),
	}
}

// Validate checks that the settings are usable.
func (c *Config) Validate() error {
	if c.File == "" {
		return fmt.Errorf("job file is required")
	}
	if _, err := ParseVariant(c.Variant); err != nil {
		return err
	}
	return nil
}

// ResolveOptions converts the settings into resolver options.
func (c *Config) ResolveOptions() (resolve.Options, error) {
	variant, err := ParseVariant(c.Variant)
	if err != nil {
		return resolve.Options{}, err
	}

	return resolve.Options{
		ImageName:   c.ImageName,
		DefaultArch: c.Arch,
		DefaultTag:  c.Tag,
		Variant:     variant,
		Environ:     os.Environ,
	}, nil
}

// ParseVariant looks up a named variant.
func ParseVariant(name string) (resolve.Variant, error) {
	v, ok := variants[name]
	if !ok {
		return resolve.Variant{}, fmt.Errorf("unknown variant %q (supported: %v)", name, VariantNames())
	}
	return v, nil
}

// VariantNames lists the known variant names in sorted order.
func VariantNames() []string {
	names := make([]string, 0, len(variants))
	for name := range variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
