package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/cameronsjo/podgen/internal/job"
	"github.com/cameronsjo/podgen/internal/resolve"
)

var (
	// ErrInvalidSetting indicates a kubernetes setting of an unusable shape.
	ErrInvalidSetting = errors.New("invalid kubernetes setting")

	// ErrInvalidName indicates an image name that yields no container name.
	ErrInvalidName = errors.New("invalid container name")
)

// containerNamePattern matches characters not allowed in a container name.
var containerNamePattern = regexp.MustCompile(`[^a-z0-9-]`)

// Render fills the Pod template for spec running on img.
func Render(spec *job.Spec, img *resolve.Image) (*Document, error) {
	limits, err := flowSetting("limits", &spec.Kubernetes.Limits)
	if err != nil {
		return nil, err
	}
	requests, err := flowSetting("requests", &spec.Kubernetes.Requests)
	if err != nil {
		return nil, err
	}
	selector, err := blockSetting("nodeSelector", &img.NodeSelector)
	if err != nil {
		return nil, err
	}

	volumes, mounts, err := volumeBlocks(spec.Volumes)
	if err != nil {
		return nil, err
	}

	containerName := ContainerName(img.Name)
	if containerName == "" {
		return nil, fmt.Errorf("%w: image name %q has no characters valid in a container name", ErrInvalidName, img.Name)
	}

	fields := podFields{
		PodName:       spec.Job,
		ImageURL:      img.URL,
		ContainerName: containerName,
		UID:           img.UID,
		GID:           img.GID,
		Limits:        limits,
		Requests:      requests,
		NodeSelector:  selector,
		VolumeMounts:  mounts,
		Volumes:       volumes,
	}

	text, err := execute(podTmpl, fields)
	if err != nil {
		return nil, err
	}

	return newDocument(text), nil
}

// ContainerName lowercases name and drops every character that is not
// valid in a DNS-1123 label, such as the periods of "gcc.11".
func ContainerName(name string) string {
	cleaned := containerNamePattern.ReplaceAllString(strings.ToLower(name), "")
	return strings.Trim(cleaned, "-")
}

// VolumeName is the name shared by the i-th volume and its mount.
func VolumeName(i int) string {
	return fmt.Sprintf("volume-%d", i)
}

// volumeBlocks renders one volume and one mount block per volume, in order.
func volumeBlocks(volumes []job.Volume) (string, string, error) {
	var volumeText, mountText strings.Builder

	for i, v := range volumes {
		fields := volumeFields{
			Name:      VolumeName(i),
			HostPath:  v.HostPath,
			MountPath: v.MountPath,
		}

		block, err := execute(volumeTmpl, fields)
		if err != nil {
			return "", "", err
		}
		volumeText.WriteString(block)

		block, err = execute(mountTmpl, fields)
		if err != nil {
			return "", "", err
		}
		mountText.WriteString(block)
	}

	return volumeText.String(), mountText.String(), nil
}

func execute(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s template: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// flowSetting formats a limits/requests node as a one-line mapping literal.
// Text that is not already braced has its lines joined into one.
func flowSetting(key string, n *yaml.Node) (string, error) {
	n = job.Deref(n)
	if !job.Declared(n) {
		return "", nil
	}

	switch n.Kind {
	case yaml.MappingNode:
		styled, err := restyle(n, yaml.FlowStyle, nil)
		if err != nil {
			return "", fmt.Errorf("%w: kubernetes.%s: %v", ErrInvalidSetting, key, err)
		}
		out, err := yaml.Marshal(styled)
		if err != nil {
			return "", fmt.Errorf("encode %s: %w", key, err)
		}
		return oneLine(string(out), " "), nil
	case yaml.ScalarNode:
		text := strings.TrimSpace(n.Value)
		if strings.HasPrefix(text, "{") {
			return oneLine(text, " "), nil
		}
		return "{" + oneLine(text, ", ") + "}", nil
	default:
		return "", fmt.Errorf("%w: kubernetes.%s must be a mapping or text", ErrInvalidSetting, key)
	}
}

// blockSetting formats a nodeSelector node as block text.
func blockSetting(key string, n *yaml.Node) (string, error) {
	n = job.Deref(n)
	if !job.Declared(n) {
		return "", nil
	}

	switch n.Kind {
	case yaml.MappingNode:
		styled, err := restyle(n, 0, nil)
		if err != nil {
			return "", fmt.Errorf("%w: kubernetes.%s: %v", ErrInvalidSetting, key, err)
		}
		out, err := yaml.Marshal(styled)
		if err != nil {
			return "", fmt.Errorf("encode %s: %w", key, err)
		}
		return strings.TrimSpace(string(out)), nil
	case yaml.ScalarNode:
		return strings.TrimSpace(n.Value), nil
	default:
		return "", fmt.Errorf("%w: kubernetes.%s must be a mapping or text", ErrInvalidSetting, key)
	}
}

// restyle returns a deep copy of n with every collection set to style.
// Aliases are replaced by copies of their targets and anchors are dropped,
// so the result marshals on its own. Scalars keep their quoting.
func restyle(n *yaml.Node, style yaml.Style, visiting map[*yaml.Node]bool) (*yaml.Node, error) {
	if n.Kind == yaml.AliasNode {
		if n.Alias == nil {
			return nil, fmt.Errorf("unknown alias %q", n.Value)
		}
		if visiting[n.Alias] {
			return nil, fmt.Errorf("alias %q refers to itself", n.Value)
		}
		return restyle(n.Alias, style, visiting)
	}

	if visiting == nil {
		visiting = make(map[*yaml.Node]bool)
	}
	visiting[n] = true
	defer delete(visiting, n)

	out := *n
	out.Anchor = ""
	out.HeadComment, out.LineComment, out.FootComment = "", "", ""
	if n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode {
		out.Style = style
	}
	out.Content = make([]*yaml.Node, len(n.Content))
	for i, child := range n.Content {
		styled, err := restyle(child, style, visiting)
		if err != nil {
			return nil, err
		}
		out.Content[i] = styled
	}
	return &out, nil
}

// oneLine joins the non-blank lines of s with sep.
func oneLine(s, sep string) string {
	var parts []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, sep)
}
