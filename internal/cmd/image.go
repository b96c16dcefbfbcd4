package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cameronsjo/podgen/internal/config"
	"github.com/cameronsjo/podgen/internal/resolve"
)

// imageFields maps --field names to resolved image values.
var imageFields = map[string]func(*resolve.Image) string{
	"name": func(img *resolve.Image) string { return img.Name },
	"tag":  func(img *resolve.Image) string { return img.Tag },
	"arch": func(img *resolve.Image) string { return img.Arch },
	"uri":  func(img *resolve.Image) string { return img.URI },
	"url":  func(img *resolve.Image) string { return img.URL },
	"uid":  func(img *resolve.Image) string { return img.UID },
	"gid":  func(img *resolve.Image) string { return img.GID },
}

func imageFieldNames() []string {
	names := make([]string, 0, len(imageFields))
	for name := range imageFields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newImageCmd(cfg *config.Config) *cobra.Command {
	var field string

	imageCmd := &cobra.Command{
		Use:   "image",
		Short: "Print the resolved container image",
		Long: `Resolve the selected container image without rendering a manifest.

Prints the image after defaults and placeholder resolution as YAML, or a
single value with --field. Useful for CI steps that need the image URL.

Examples:
  podgen image --file .ci/job_matrix.yaml
  podgen image --file .ci/job_matrix.yaml --image_name centos7 --field url`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImage(cmd.OutOrStdout(), cfg, field)
		},
	}

	imageCmd.Flags().StringVar(&field, "field", "", fmt.Sprintf("Print only this field %v", imageFieldNames()))

	return imageCmd
}

func runImage(stdout io.Writer, cfg *config.Config, field string) error {
	var get func(*resolve.Image) string
	if field != "" {
		var ok bool
		if get, ok = imageFields[field]; !ok {
			return fmt.Errorf("unknown field %q (supported: %v)", field, imageFieldNames())
		}
	}

	_, img, err := loadAndResolve(cfg, false)
	if err != nil {
		return err
	}

	if get != nil {
		_, err := fmt.Fprintln(stdout, get(img))
		return err
	}

	out, err := yaml.Marshal(img)
	if err != nil {
		return fmt.Errorf("marshal image: %w", err)
	}
	_, err = stdout.Write(out)
	return err
}
