package resolve

import (
	"testing"

	"github.com/go-test/deep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cameronsjo/podgen/internal/job"
)

func parseJob(t *testing.T, doc string) *job.Spec {
	t.Helper()
	spec, err := job.Parse([]byte(doc))
	require.NoError(t, err)
	return spec
}

func noEnviron() []string { return nil }

func selectorValue(t *testing.T, n yaml.Node) map[string]string {
	t.Helper()
	var out map[string]string
	require.NoError(t, n.Decode(&out))
	return out
}

const demoDoc = `job: demo
registry_host: "https://r.example.com"
registry_path: "/ci"
runs_on_dockers:
  - {name: build, arch: x86_64}
kubernetes: {}
volumes:
  - {hostPath: /tmp/a, mountPath: /mnt/a}
`

func TestResolve_Demo(t *testing.T) {
	spec := parseJob(t, demoDoc)

	img, err := Resolve(spec, Options{Variant: VariantStandard, Environ: noEnviron})
	require.NoError(t, err)

	want := Image{
		Name: "build",
		Tag:  "latest",
		Arch: "x86_64",
		URI:  "x86_64/build",
		URL:  "https://r.example.com/ci/x86_64/build:latest",
		UID:  "0",
		GID:  "0",
	}
	got := *img
	got.NodeSelector = yaml.Node{}
	if diff := deep.Equal(got, want); diff != nil {
		t.Error(diff)
	}

	assert.Equal(t, map[string]string{ArchLabel: "amd64"}, selectorValue(t, img.NodeSelector))
}

func TestResolve_Selection(t *testing.T) {
	spec := parseJob(t, `job: demo
runs_on_dockers:
  - {name: first}
  - {name: second, tag: v2}
  - {name: second, tag: v3}
`)

	t.Run("first entry when no name given", func(t *testing.T) {
		img, err := Resolve(spec, Options{Environ: noEnviron})
		require.NoError(t, err)
		assert.Equal(t, "first", img.Name)
	})

	t.Run("first match wins", func(t *testing.T) {
		img, err := Resolve(spec, Options{ImageName: "second", Environ: noEnviron})
		require.NoError(t, err)
		assert.Equal(t, "v2", img.Tag)
	})

	t.Run("unknown name", func(t *testing.T) {
		img, err := Resolve(spec, Options{ImageName: "third", Environ: noEnviron})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrImageNotFound)
		assert.Nil(t, img)
		assert.Contains(t, err.Error(), "third")
	})

	t.Run("empty list", func(t *testing.T) {
		_, err := Resolve(parseJob(t, "job: demo\n"), Options{Environ: noEnviron})
		assert.ErrorIs(t, err, ErrImageNotFound)
	})
}

func TestResolve_Defaults(t *testing.T) {
	spec := parseJob(t, `job: demo
registry_host: r.io
registry_path: /p
runs_on_dockers:
  - name: custom
    tag: "1.0"
    arch: aarch64
    uid: 1000
    gid: 2000
  - name: bare
`)

	t.Run("declared fields are kept", func(t *testing.T) {
		img, err := Resolve(spec, Options{ImageName: "custom", DefaultArch: "ppc64le", DefaultTag: "nightly", Variant: VariantStandard, Environ: noEnviron})
		require.NoError(t, err)
		assert.Equal(t, "1.0", img.Tag)
		assert.Equal(t, "aarch64", img.Arch)
		assert.Equal(t, "1000", img.UID)
		assert.Equal(t, "2000", img.GID)
		assert.Equal(t, "aarch64/custom", img.URI)
		assert.Equal(t, "r.io/p/aarch64/custom:1.0", img.URL)
		assert.Equal(t, map[string]string{ArchLabel: "arm64"}, selectorValue(t, img.NodeSelector))
	})

	t.Run("caller defaults fill gaps", func(t *testing.T) {
		img, err := Resolve(spec, Options{ImageName: "bare", DefaultArch: "ppc64le", DefaultTag: "nightly", Variant: VariantStandard, Environ: noEnviron})
		require.NoError(t, err)
		assert.Equal(t, "nightly", img.Tag)
		assert.Equal(t, "ppc64le", img.Arch)
		assert.Equal(t, "0", img.UID)
		assert.Equal(t, "0", img.GID)
		assert.Equal(t, "r.io/p/ppc64le/bare:nightly", img.URL)
	})

	t.Run("built-in defaults when caller passes none", func(t *testing.T) {
		img, err := Resolve(spec, Options{ImageName: "bare", Environ: noEnviron})
		require.NoError(t, err)
		assert.Equal(t, DefaultTag, img.Tag)
		assert.Equal(t, DefaultArch, img.Arch)
	})

	t.Run("job spec is not modified", func(t *testing.T) {
		_, err := Resolve(spec, Options{ImageName: "bare", Environ: noEnviron})
		require.NoError(t, err)
		assert.Empty(t, spec.Images[1].Tag)
		assert.Empty(t, spec.Images[1].URI)
		assert.Empty(t, spec.Images[1].URL)
	})
}

func TestResolve_Placeholders(t *testing.T) {
	spec := parseJob(t, `job: demo
registry_host: https://r.io
registry_path: /$job
flavor: job-flavor
runs_on_dockers:
  - name: build
    uri: $flavor/${name}-$distro
    url: ${registry_host}/mirror/$uri:$tag-$unknown
    distro: ubuntu
  - name: plain
    url: $registry_host$registry_path/${arch}/$name
env:
  distro: rhel8
`)

	t.Run("layer precedence", func(t *testing.T) {
		img, err := Resolve(spec, Options{Environ: noEnviron})
		require.NoError(t, err)
		// env block beats image field, image field beats job field.
		assert.Equal(t, "job-flavor/build-rhel8", img.URI)
		assert.Equal(t, "https://r.io/mirror/job-flavor/build-rhel8:latest-$unknown", img.URL)
	})

	t.Run("process environment overlays everything", func(t *testing.T) {
		environ := func() []string { return []string{"distro=sles15", "unknown=known", "flavor=env-flavor"} }
		img, err := Resolve(spec, Options{Variant: VariantStandard, Environ: environ})
		require.NoError(t, err)
		assert.Equal(t, "env-flavor/build-sles15", img.URI)
		assert.Equal(t, "https://r.io/mirror/env-flavor/build-sles15:latest-known", img.URL)
	})

	t.Run("environment ignored without overlay", func(t *testing.T) {
		environ := func() []string { return []string{"distro=sles15"} }
		img, err := Resolve(spec, Options{Variant: VariantLegacy, Environ: environ})
		require.NoError(t, err)
		assert.Equal(t, "job-flavor/build-rhel8", img.URI)
	})

	t.Run("registry path placeholders resolve in url", func(t *testing.T) {
		img, err := Resolve(spec, Options{ImageName: "plain", Environ: noEnviron})
		require.NoError(t, err)
		assert.Equal(t, "https://r.io/$job/x86_64/plain", img.URL)
	})
}

func TestResolve_NodeSelector(t *testing.T) {
	t.Run("unknown arch fails with default selector", func(t *testing.T) {
		spec := parseJob(t, "job: demo\nruns_on_dockers:\n  - {name: build, arch: riscv64}\n")
		img, err := Resolve(spec, Options{Variant: VariantStandard, Environ: noEnviron})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnknownArch)
		assert.Nil(t, img)
	})

	t.Run("unknown arch is fine with explicit selector", func(t *testing.T) {
		spec := parseJob(t, `job: demo
runs_on_dockers:
  - {name: build, arch: riscv64}
kubernetes:
  nodeSelector:
    pool: riscv
`)
		img, err := Resolve(spec, Options{Variant: VariantStandard, Environ: noEnviron})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"pool": "riscv"}, selectorValue(t, img.NodeSelector))
	})

	t.Run("unknown arch is fine without default selector", func(t *testing.T) {
		spec := parseJob(t, "job: demo\nruns_on_dockers:\n  - {name: build, arch: riscv64}\n")
		img, err := Resolve(spec, Options{Variant: VariantLegacy, Environ: noEnviron})
		require.NoError(t, err)
		assert.False(t, job.Declared(&img.NodeSelector))
	})

	t.Run("default arch mapping", func(t *testing.T) {
		for arch, target := range map[string]string{"x86_64": "amd64", "aarch64": "arm64", "ppc64le": "ppc64le"} {
			spec := parseJob(t, "job: demo\nruns_on_dockers:\n  - {name: build}\n")
			img, err := Resolve(spec, Options{DefaultArch: arch, Variant: VariantStandard, Environ: noEnviron})
			require.NoError(t, err, arch)
			assert.Equal(t, map[string]string{ArchLabel: target}, selectorValue(t, img.NodeSelector), arch)
		}
	})
}

func TestSupportedArchs(t *testing.T) {
	assert.Equal(t, []string{"aarch64", "ppc64le", "x86_64"}, SupportedArchs())
}
