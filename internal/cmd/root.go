// Package cmd provides the CLI commands for podgen.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/podgen/internal/config"
	"github.com/cameronsjo/podgen/internal/job"
	"github.com/cameronsjo/podgen/internal/manifest"
	"github.com/cameronsjo/podgen/internal/resolve"
	"github.com/cameronsjo/podgen/internal/ui"
)

const version = "0.1.0"

// newRootCmd builds the podgen command tree. The root command renders the
// Pod manifest; subcommands expose the individual pipeline stages.
func newRootCmd() *cobra.Command {
	cfg := config.Default()

	rootCmd := &cobra.Command{
		Use:   "podgen",
		Short: "Generate a Kubernetes Pod manifest from a CI job file",
		Long: `podgen - CI job to Kubernetes Pod manifest

Reads a job description (job_matrix.yaml), selects a container from
runs_on_dockers, resolves its registry URL and renders a single-container
Pod with the job's resources, node selector and host-path volumes.

Placeholders ($name or ${name}) in an image's uri and url resolve against
the job fields, the image fields, the env block and, for the standard
variant, the process environment. Unknown placeholders are kept as-is.

VARIANTS
  standard   environment overlay on, default node selector from arch
  legacy     environment overlay off, no default node selector

ENVIRONMENT
  PODGEN_ARCH      default for --arch
  PODGEN_TAG       default for --tag
  PODGEN_VARIANT   default for --variant

Examples:
  podgen --file .ci/job_matrix.yaml
  podgen --file .ci/job_matrix.yaml --image_name centos7 --out pod.yaml
  podgen -file .ci/job_matrix.yaml -arch aarch64 -tag 2.0
  podgen image --file .ci/job_matrix.yaml --field url`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.OutOrStdout(), cfg, cmd.Flags().Changed("arch"))
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfg.File, "file", "f", cfg.File, "Path to the job_matrix.yaml file")
	flags.StringVarP(&cfg.ImageName, "image_name", "i", cfg.ImageName, "Select container by name (default: first entry of runs_on_dockers)")
	flags.StringVarP(&cfg.Arch, "arch", "a", cfg.Arch, "Container arch for images that declare none")
	flags.StringVarP(&cfg.Tag, "tag", "t", cfg.Tag, "Container tag for images that declare none")
	flags.StringVar(&cfg.Variant, "variant", cfg.Variant, fmt.Sprintf("Generator variant %v", config.VariantNames()))

	rootCmd.Flags().StringVarP(&cfg.Out, "out", "o", cfg.Out, "Output file for the pod manifest (default: stdout)")
	rootCmd.Flags().BoolVar(&cfg.Verify, "verify", cfg.Verify, "Check the rendered manifest before writing it")

	rootCmd.SetVersionTemplate("podgen version {{.Version}}\n")
	rootCmd.AddCommand(newImageCmd(cfg))

	return rootCmd
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	ui.Init()

	rootCmd := newRootCmd()
	rootCmd.SetArgs(normalizeArgs(os.Args[1:]))

	if err := rootCmd.Execute(); err != nil {
		ui.Error("%v", err)
		os.Exit(1)
	}
}

// runGenerate loads, resolves, renders and writes one manifest. archSet
// reports whether --arch was given on the command line.
func runGenerate(stdout io.Writer, cfg *config.Config, archSet bool) error {
	spec, img, err := loadAndResolve(cfg, true)
	if err != nil {
		return err
	}

	if archSet && cfg.Arch != "" && img.Arch != cfg.Arch {
		ui.Warning("Image %s declares arch %s, ignoring --arch %s", img.Name, img.Arch, cfg.Arch)
	}

	doc, err := manifest.Render(spec, img)
	if err != nil {
		return fmt.Errorf("render manifest: %w", err)
	}

	if cfg.Verify {
		if err := manifest.Verify(doc); err != nil {
			return err
		}
	}

	if cfg.Out == "" {
		_, err := doc.WriteTo(stdout)
		return err
	}

	if err := doc.WriteFile(cfg.Out); err != nil {
		return err
	}
	ui.Success("Wrote %s (image %s)", cfg.Out, img.URL)
	return nil
}

// loadAndResolve runs the first two pipeline stages. Without withSelector
// no default node selector is synthesized, so arches lacking a node label
// mapping still resolve.
func loadAndResolve(cfg *config.Config, withSelector bool) (*job.Spec, *resolve.Image, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	opts, err := cfg.ResolveOptions()
	if err != nil {
		return nil, nil, err
	}
	if !withSelector {
		opts.Variant.DefaultNodeSelector = false
	}

	spec, err := job.Load(cfg.File)
	if err != nil {
		return nil, nil, err
	}

	img, err := resolve.Resolve(spec, opts)
	if err != nil {
		return nil, nil, err
	}

	return spec, img, nil
}
