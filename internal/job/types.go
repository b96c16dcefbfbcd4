// Package job loads CI job-description documents.
//
// A job document names the container images a job may run on, the registry
// they are pulled from, the Kubernetes resources the pod asks for and the
// host paths mounted into it:
//
//	job: demo
//	registry_host: https://r.example.com
//	registry_path: /ci
//	runs_on_dockers:
//	  - {name: build, arch: x86_64}
//	kubernetes:
//	  limits: {memory: 2Gi}
//	volumes:
//	  - {hostPath: /tmp/a, mountPath: /mnt/a}
//	env:
//	  flavor: rhel8
package job

import (
	"gopkg.in/yaml.v3"
)

// Spec is a parsed job document.
type Spec struct {
	// Job is the job name, used as the pod name.
	Job string `yaml:"job"`

	// RegistryHost is the registry scheme and host, e.g. "https://r.example.com".
	RegistryHost string `yaml:"registry_host"`

	// RegistryPath is appended to RegistryHost when building image URLs.
	RegistryPath string `yaml:"registry_path"`

	// Images lists the containers the job may run on, in declaration order.
	Images []Image `yaml:"runs_on_dockers"`

	// Kubernetes holds raw pod scheduling and resource settings.
	Kubernetes Kubernetes `yaml:"kubernetes"`

	// Volumes lists host paths bound into the container.
	Volumes []Volume `yaml:"volumes"`

	// Env overrides placeholder values for URI/URL resolution.
	Env map[string]string `yaml:"env,omitempty"`

	// Extra keeps any other top-level keys for placeholder resolution.
	Extra map[string]any `yaml:",inline"`
}

// Image is one entry of runs_on_dockers. Empty fields are filled in by the
// resolver; the loaded value itself is never modified.
type Image struct {
	Name string `yaml:"name"`
	Tag  string `yaml:"tag,omitempty"`
	Arch string `yaml:"arch,omitempty"`
	URI  string `yaml:"uri,omitempty"`
	URL  string `yaml:"url,omitempty"`
	UID  string `yaml:"uid,omitempty"`
	GID  string `yaml:"gid,omitempty"`

	// Extra keeps any other keys of the entry for placeholder resolution.
	Extra map[string]any `yaml:",inline"`
}

// Kubernetes holds the pod settings copied verbatim into the manifest.
// Each field is either a mapping or a block of text; a zero node means the
// key was not declared.
type Kubernetes struct {
	Limits       yaml.Node `yaml:"limits"`
	Requests     yaml.Node `yaml:"requests"`
	NodeSelector yaml.Node `yaml:"nodeSelector"`
}

// Volume binds a host path to a path inside the container.
type Volume struct {
	HostPath  string `yaml:"hostPath"`
	MountPath string `yaml:"mountPath"`
}

// Declared reports whether a raw kubernetes node was present and non-null.
// An alias is judged by the node it refers to.
func Declared(n *yaml.Node) bool {
	n = Deref(n)
	if n == nil || n.Kind == 0 || n.Kind == yaml.AliasNode {
		return false
	}
	if n.Kind == yaml.ScalarNode && (n.Tag == "!!null" || n.Value == "") {
		return false
	}
	return true
}

// Deref follows aliases to the anchored node.
func Deref(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}
