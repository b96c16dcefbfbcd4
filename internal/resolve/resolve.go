// Package resolve selects the container image of a job and fills in its
// tag, architecture, registry location and user ids.
package resolve

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cameronsjo/podgen/internal/job"
)

// Defaults applied when neither the image entry nor the caller set a value.
const (
	DefaultArch = "x86_64"
	DefaultTag  = "latest"
	DefaultUID  = "0"
	DefaultGID  = "0"
)

// ArchLabel is the node label the default node selector matches on.
const ArchLabel = "kubernetes.io/arch"

var (
	// ErrImageNotFound indicates no runs_on_dockers entry matched.
	ErrImageNotFound = errors.New("image not found")

	// ErrUnknownArch indicates an architecture with no node label mapping.
	ErrUnknownArch = errors.New("unknown architecture")
)

// archTargets maps image architectures to Kubernetes node architectures.
var archTargets = map[string]string{
	"x86_64":  "amd64",
	"aarch64": "arm64",
	"ppc64le": "ppc64le",
}

// SupportedArchs returns the architectures with a node label mapping.
func SupportedArchs() []string {
	archs := make([]string, 0, len(archTargets))
	for arch := range archTargets {
		archs = append(archs, arch)
	}
	sort.Strings(archs)
	return archs
}

// Variant captures the behaviour that differs between generator flavours.
type Variant struct {
	// EnvOverlay adds the process environment as the highest-precedence
	// placeholder layer.
	EnvOverlay bool

	// DefaultNodeSelector synthesizes an architecture node selector when the
	// job does not declare one.
	DefaultNodeSelector bool
}

// Named variants.
var (
	VariantStandard = Variant{EnvOverlay: true, DefaultNodeSelector: true}
	VariantLegacy   = Variant{}
)

// Options controls image selection and defaulting.
type Options struct {
	// ImageName selects the image by name. Empty selects the first image.
	ImageName string

	// DefaultArch is used when the image declares no arch.
	DefaultArch string

	// DefaultTag is used when the image declares no tag.
	DefaultTag string

	Variant Variant

	// Environ supplies the process environment. Defaults to os.Environ.
	Environ func() []string
}

// Image is a fully populated image selection.
type Image struct {
	Name string `yaml:"name"`
	Tag  string `yaml:"tag"`
	Arch string `yaml:"arch"`
	URI  string `yaml:"uri"`
	URL  string `yaml:"url"`
	UID  string `yaml:"uid"`
	GID  string `yaml:"gid"`

	// NodeSelector is the job's declared selector or the synthesized
	// architecture selector. A zero node means no selector.
	NodeSelector yaml.Node `yaml:"-"`
}

// Resolve selects an image from spec and returns it with every field set.
// spec is not modified.
func Resolve(spec *job.Spec, opts Options) (*Image, error) {
	raw, err := selectImage(spec.Images, opts.ImageName)
	if err != nil {
		return nil, err
	}

	defaultArch := opts.DefaultArch
	if defaultArch == "" {
		defaultArch = DefaultArch
	}
	defaultTag := opts.DefaultTag
	if defaultTag == "" {
		defaultTag = DefaultTag
	}

	img := &Image{
		Name: raw.Name,
		Tag:  valueOr(raw.Tag, defaultTag),
		Arch: valueOr(raw.Arch, defaultArch),
		UID:  valueOr(raw.UID, DefaultUID),
		GID:  valueOr(raw.GID, DefaultGID),
	}

	// Placeholders see the defaulted tag and arch.
	layered := raw
	layered.Tag = img.Tag
	layered.Arch = img.Arch
	layered.UID = img.UID
	layered.GID = img.GID

	uri := valueOr(raw.URI, img.Arch+"/"+img.Name)
	img.URI = SafeSubstitute(uri, buildNamespace(spec, layered, opts))

	layered.URI = img.URI
	url := valueOr(raw.URL, spec.RegistryHost+spec.RegistryPath+"/"+uri+":"+img.Tag)
	img.URL = SafeSubstitute(url, buildNamespace(spec, layered, opts))

	selector, err := nodeSelector(spec, img.Arch, opts.Variant)
	if err != nil {
		return nil, err
	}
	img.NodeSelector = selector

	return img, nil
}

// selectImage returns the first image named name, or the first image when
// name is empty.
func selectImage(images []job.Image, name string) (job.Image, error) {
	for _, img := range images {
		if name == "" || img.Name == name {
			return img, nil
		}
	}

	if name == "" {
		return job.Image{}, fmt.Errorf("%w: runs_on_dockers is empty", ErrImageNotFound)
	}
	return job.Image{}, fmt.Errorf("%w: %q is not in runs_on_dockers", ErrImageNotFound, name)
}

// buildNamespace layers job fields, image fields, the job env block and,
// for the env-overlay variant, the process environment.
func buildNamespace(spec *job.Spec, img job.Image, opts Options) Namespace {
	ns := Namespace{}
	ns.Layer(jobLayer(spec))
	ns.Layer(imageLayer(img))
	ns.Layer(spec.Env)

	if opts.Variant.EnvOverlay {
		environ := opts.Environ
		if environ == nil {
			environ = os.Environ
		}
		ns.Layer(environLayer(environ()))
	}

	return ns
}

// nodeSelector returns the declared selector, or one matching arch when the
// variant asks for a default.
func nodeSelector(spec *job.Spec, arch string, variant Variant) (yaml.Node, error) {
	if job.Declared(&spec.Kubernetes.NodeSelector) {
		return spec.Kubernetes.NodeSelector, nil
	}
	if !variant.DefaultNodeSelector {
		return yaml.Node{}, nil
	}

	target, ok := archTargets[arch]
	if !ok {
		return yaml.Node{}, fmt.Errorf("%w: %q has no node selector mapping (supported: %v)", ErrUnknownArch, arch, SupportedArchs())
	}

	var node yaml.Node
	if err := node.Encode(map[string]string{ArchLabel: target}); err != nil {
		return yaml.Node{}, fmt.Errorf("encode node selector: %w", err)
	}
	return node, nil
}

func valueOr(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
