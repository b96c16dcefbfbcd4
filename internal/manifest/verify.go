package manifest

import (
	"errors"
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/util/validation"
	"sigs.k8s.io/yaml"
)

// ErrInvalidManifest indicates a rendered document is not a usable Pod.
var ErrInvalidManifest = errors.New("invalid pod manifest")

// Verify parses doc as a Kubernetes object and checks the fields the API
// server would reject: kind and apiVersion, object and container names,
// resource quantities and volume mount references.
func Verify(doc *Document) error {
	data, err := yaml.YAMLToJSON(doc.Bytes())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}

	obj := &unstructured.Unstructured{}
	if err := obj.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}

	var problems []string

	if obj.GetAPIVersion() != "v1" || obj.GetKind() != "Pod" {
		problems = append(problems, fmt.Sprintf("expected v1 Pod, got %s %s", obj.GetAPIVersion(), obj.GetKind()))
	}

	for _, msg := range validation.IsDNS1123Subdomain(obj.GetName()) {
		problems = append(problems, fmt.Sprintf("metadata.name %q: %s", obj.GetName(), msg))
	}

	volumes, err := volumeNames(obj)
	if err != nil {
		problems = append(problems, err.Error())
	}

	containers, _, err := unstructured.NestedSlice(obj.Object, "spec", "containers")
	if err != nil {
		problems = append(problems, err.Error())
	}
	if len(containers) == 0 {
		problems = append(problems, "spec.containers is empty")
	}

	for i, raw := range containers {
		container, ok := raw.(map[string]any)
		if !ok {
			problems = append(problems, fmt.Sprintf("spec.containers[%d] is not a mapping", i))
			continue
		}
		problems = append(problems, verifyContainer(i, container, volumes)...)
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidManifest, strings.Join(problems, "; "))
	}
	return nil
}

func verifyContainer(i int, container map[string]any, volumes map[string]bool) []string {
	var problems []string
	path := fmt.Sprintf("spec.containers[%d]", i)

	name, _, _ := unstructured.NestedString(container, "name")
	for _, msg := range validation.IsDNS1123Label(name) {
		problems = append(problems, fmt.Sprintf("%s.name %q: %s", path, name, msg))
	}

	for _, section := range []string{"limits", "requests"} {
		raw, _, _ := unstructured.NestedFieldNoCopy(container, "resources", section)
		switch quantities := raw.(type) {
		case nil:
		case map[string]any:
			for resourceName, value := range quantities {
				if _, err := resource.ParseQuantity(fmt.Sprint(value)); err != nil {
					problems = append(problems, fmt.Sprintf("%s.resources.%s.%s %v: %v", path, section, resourceName, value, err))
				}
			}
		default:
			problems = append(problems, fmt.Sprintf("%s.resources.%s is not a mapping", path, section))
		}
	}

	mounts, _, _ := unstructured.NestedFieldNoCopy(container, "volumeMounts")
	list, _ := mounts.([]any)
	for j, raw := range list {
		mount, _ := raw.(map[string]any)
		mountName, _, _ := unstructured.NestedString(mount, "name")
		if !volumes[mountName] {
			problems = append(problems, fmt.Sprintf("%s.volumeMounts[%d] references unknown volume %q", path, j, mountName))
		}
	}

	return problems
}

// volumeNames collects spec.volumes[*].name.
func volumeNames(obj *unstructured.Unstructured) (map[string]bool, error) {
	names := make(map[string]bool)

	raw, _, _ := unstructured.NestedFieldNoCopy(obj.Object, "spec", "volumes")
	if raw == nil {
		return names, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return names, fmt.Errorf("spec.volumes is not a list")
	}

	for _, item := range list {
		volume, _ := item.(map[string]any)
		name, _, _ := unstructured.NestedString(volume, "name")
		names[name] = true
	}
	return names, nil
}
